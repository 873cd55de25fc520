package slogobs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/leofalp/sequencer/providers/observability"
)

func newTestObserver(level slog.Level) (*Observer, *bytes.Buffer) {
	var buf bytes.Buffer
	observer := New(WithFormat(FormatJSON), WithLevel(level), WithOutput(&buf))
	return observer, &buf
}

func TestObserver_Span_LogsStartAndEndWithAttributes(t *testing.T) {
	observer, buf := newTestObserver(slog.LevelDebug)
	ctx := context.Background()

	_, span := observer.StartSpan(ctx, observability.SpanSequenceRun, observability.Int(observability.AttrGraphNodeCount, 3))
	span.SetAttributes(observability.String(observability.AttrLLMModel, "gemini-2.5-pro"))
	span.SetStatus(observability.StatusOK, "")
	span.End()

	output := buf.String()
	for _, want := range []string{`"msg":"Span started"`, `"msg":"Span ended"`, `"span":"` + observability.SpanSequenceRun + `"`, `"llm.model":"gemini-2.5-pro"`, `"status":"ok"`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output, got: %s", want, output)
		}
	}
}

func TestObserver_SpanRecordError_LogsAtErrorLevel(t *testing.T) {
	observer, buf := newTestObserver(slog.LevelError)

	_, span := observer.StartSpan(context.Background(), observability.SpanLLMRequest)
	span.RecordError(errors.New("upstream 500"))
	span.RecordError(nil)
	span.End()

	output := buf.String()
	if strings.Count(output, "\n") != 1 {
		t.Fatalf("expected only the error record at ERROR level, got: %s", output)
	}
	if !strings.Contains(output, "upstream 500") {
		t.Errorf("expected the error text, got: %s", output)
	}
}

func TestObserver_Counter_AccumulatesAcrossLookups(t *testing.T) {
	observer, _ := newTestObserver(slog.LevelError)
	ctx := context.Background()

	observer.Counter(observability.MetricRunCount).Add(ctx, 1)
	observer.Counter(observability.MetricRunCount).Add(ctx, 2)

	if got := observer.CounterValue(observability.MetricRunCount); got != 3 {
		t.Errorf("CounterValue = %d, want 3", got)
	}
	if got := observer.CounterValue("never.used"); got != 0 {
		t.Errorf("CounterValue for unknown metric = %d, want 0", got)
	}
}

func TestObserver_Histogram_LogsValue(t *testing.T) {
	observer, buf := newTestObserver(slog.LevelDebug)
	observer.Histogram(observability.MetricRunDuration).Record(context.Background(), 1.5)

	if !strings.Contains(buf.String(), `"value":1.5`) {
		t.Errorf("expected the recorded value, got: %s", buf.String())
	}
}

func TestObserver_LogMethods_RespectLevel(t *testing.T) {
	observer, buf := newTestObserver(slog.LevelInfo)
	ctx := context.Background()

	observer.Trace(ctx, "trace message")
	observer.Debug(ctx, "debug message")
	observer.Info(ctx, "info message", observability.String("key", "value"))
	observer.Warn(ctx, "warn message")
	observer.Error(ctx, "error message")

	output := buf.String()
	for _, hidden := range []string{"trace message", "debug message"} {
		if strings.Contains(output, hidden) {
			t.Errorf("%q should be filtered at INFO, got: %s", hidden, output)
		}
	}
	for _, want := range []string{"info message", `"key":"value"`, "warn message", "error message"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestObserver_WithLogger_UsesGivenLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	observer := New(WithLogger(logger), WithFormat(FormatPretty))

	if observer.Logger() != logger {
		t.Fatal("expected the injected logger to be used")
	}
	observer.Info(context.Background(), "through text handler")
	if !strings.Contains(buf.String(), "msg=\"through text handler\"") {
		t.Errorf("expected slog text output, got: %s", buf.String())
	}
}

func TestNew_DefaultsFromEnvironment(t *testing.T) {
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogLevel, "warn")

	cfg := applyOptions()
	if cfg.format != FormatJSON {
		t.Errorf("format = %q, want json", cfg.format)
	}
	if cfg.level != slog.LevelWarn {
		t.Errorf("level = %v, want WARN", cfg.level)
	}

	cfg = applyOptions(WithFormat(FormatPretty), WithLevel(slog.LevelDebug), WithColors(true))
	if cfg.format != FormatPretty || cfg.level != slog.LevelDebug || !cfg.colors {
		t.Errorf("options did not override the environment: %+v", cfg)
	}
}
