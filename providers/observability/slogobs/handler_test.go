package slogobs

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(format Format, level slog.Level) (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	handler := NewHandler(&HandlerOptions{
		Format: format,
		Level:  level,
		Output: &buf,
	})
	return slog.New(handler), &buf
}

func TestHandler_Compact_WritesSingleLineWithJSONAttrs(t *testing.T) {
	logger, buf := newTestLogger(FormatCompact, slog.LevelDebug)
	logger.Info("run completed", "model", "gemini-2.5-pro", "outputs", 3)

	output := buf.String()
	for _, want := range []string{" INFO ", "run completed", " → ", `"model":"gemini-2.5-pro"`, `"outputs":3`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
	if strings.Count(output, "\n") != 1 {
		t.Errorf("expected exactly one line, got: %q", output)
	}
}

func TestHandler_Compact_NoAttrsOmitsSeparator(t *testing.T) {
	logger, buf := newTestLogger(FormatCompact, slog.LevelDebug)
	logger.Warn("nothing attached")

	output := buf.String()
	if strings.Contains(output, "→") {
		t.Errorf("separator should be omitted without attributes, got: %s", output)
	}
	if !strings.Contains(output, " WARN ") {
		t.Errorf("expected WARN level, got: %s", output)
	}
}

func TestHandler_Pretty_SortsAttributesIntoTree(t *testing.T) {
	logger, buf := newTestLogger(FormatPretty, slog.LevelDebug)
	logger.Info("node finished", "zeta", 1, "alpha", "x")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), lines)
	}
	if !strings.Contains(lines[0], "🟢") || !strings.Contains(lines[0], "node finished") {
		t.Errorf("unexpected header line: %q", lines[0])
	}
	if !strings.Contains(lines[1], "├─ alpha: x") {
		t.Errorf("expected alpha first with a middle branch, got: %q", lines[1])
	}
	if !strings.Contains(lines[2], "└─ zeta: 1") {
		t.Errorf("expected zeta last with a closing branch, got: %q", lines[2])
	}
}

func TestHandler_JSON_MergesAttrsAtTopLevel(t *testing.T) {
	logger, buf := newTestLogger(FormatJSON, slog.LevelDebug)
	logger.Error("request failed", "status", 429, "error", errors.New("rate limited"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not valid JSON: %v (%s)", err, buf.String())
	}
	if record["level"] != "ERROR" {
		t.Errorf("level = %v, want ERROR", record["level"])
	}
	if record["msg"] != "request failed" {
		t.Errorf("msg = %v, want request failed", record["msg"])
	}
	if record["status"] != float64(429) {
		t.Errorf("status = %v, want 429", record["status"])
	}
	if record["error"] != "rate limited" {
		t.Errorf("error = %v, want the error text", record["error"])
	}
	if _, ok := record["time"]; !ok {
		t.Error("expected a time field")
	}
}

func TestHandler_Level_FiltersLowerRecords(t *testing.T) {
	logger, buf := newTestLogger(FormatCompact, slog.LevelWarn)
	logger.Info("hidden")
	logger.Debug("hidden too")
	logger.Warn("visible")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("records below WARN should be dropped, got: %s", output)
	}
	if !strings.Contains(output, "visible") {
		t.Errorf("expected the WARN record, got: %s", output)
	}
}

func TestHandler_TraceLevel_RendersAsTrace(t *testing.T) {
	logger, buf := newTestLogger(FormatCompact, LevelTrace)
	logger.Log(t.Context(), LevelTrace, "frame parsed")

	if !strings.Contains(buf.String(), "TRACE") {
		t.Errorf("expected TRACE level, got: %s", buf.String())
	}
}

func TestHandler_WithAttrsAndGroup_PrefixesKeys(t *testing.T) {
	logger, buf := newTestLogger(FormatJSON, slog.LevelDebug)
	logger.With("component", "server").WithGroup("http").Info("served", "status", 200)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if record["component"] != "server" {
		t.Errorf("component = %v, want server", record["component"])
	}
	if record["http.status"] != float64(200) {
		t.Errorf("http.status = %v, want 200", record["http.status"])
	}
}

func TestHandler_GroupThenAttrs_QualifiesBoth(t *testing.T) {
	logger, buf := newTestLogger(FormatJSON, slog.LevelDebug)
	logger.WithGroup("http").With("route", "/health").WithGroup("response").Info("served", "status", 200)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if record["http.route"] != "/health" {
		t.Errorf("http.route = %v, want /health", record["http.route"])
	}
	if record["http.response.status"] != float64(200) {
		t.Errorf("http.response.status = %v, want 200", record["http.response.status"])
	}
	if _, ok := record["http.response.route"]; ok {
		t.Errorf("route picked up a group opened after it was added: %v", record)
	}
}

func TestHandler_GroupValue_FlattensAndDropsEmpty(t *testing.T) {
	logger, buf := newTestLogger(FormatJSON, slog.LevelDebug)
	logger.Info("run", slog.Group("node", "id", "2", "kind", "prompt"), slog.Attr{}, slog.Group("empty"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if record["node.id"] != "2" || record["node.kind"] != "prompt" {
		t.Errorf("group members not flattened: %v", record)
	}
	if _, ok := record[""]; ok {
		t.Errorf("empty attribute was written: %v", record)
	}
	if _, ok := record["empty"]; ok {
		t.Errorf("empty group was written: %v", record)
	}
}

func TestHandler_WithAttrs_DoesNotLeakIntoParent(t *testing.T) {
	logger, buf := newTestLogger(FormatCompact, slog.LevelDebug)
	_ = logger.With("session", "abc")
	logger.Info("plain")

	if strings.Contains(buf.String(), "session") {
		t.Errorf("derived attributes leaked into the parent handler: %s", buf.String())
	}
}

func TestHandler_Colors_WrapsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&HandlerOptions{Format: FormatCompact, Output: &buf, Colors: true}))
	logger.Error("boom")

	if !strings.Contains(buf.String(), colorRed+"ERROR"+colorReset) {
		t.Errorf("expected colored level, got: %q", buf.String())
	}
}

func TestNewHandler_NilOptions_UsesDefaults(t *testing.T) {
	handler := NewHandler(nil)
	if handler.format != FormatCompact {
		t.Errorf("format = %q, want compact", handler.format)
	}
	if handler.level != slog.LevelInfo {
		t.Errorf("level = %v, want INFO", handler.level)
	}
	if handler.output == nil {
		t.Error("expected a default output writer")
	}
}
