package observability

import (
	"context"
	"testing"
)

func TestSpanFromContext_Empty(t *testing.T) {
	if span := SpanFromContext(context.Background()); span != nil {
		t.Errorf("Expected nil span from empty context, got %v", span)
	}
}

func TestSpanFromContext_WithSpan(t *testing.T) {
	mockSpan := &mockSpan{name: "test-span"}

	ctx := ContextWithSpan(context.Background(), mockSpan)

	if span := SpanFromContext(ctx); span != mockSpan {
		t.Errorf("Expected same span instance, got %v", span)
	}
}

func TestSpanFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), spanContextKey, "not a span")

	if span := SpanFromContext(ctx); span != nil {
		t.Errorf("Expected nil when value is not a Span, got %v", span)
	}
}

func TestContextWithObserver_RoundTrip(t *testing.T) {
	observer := &mockProvider{label: "round-trip-observer"}
	ctx := ContextWithObserver(context.Background(), observer)

	retrieved := ObserverFromContext(ctx)
	if retrieved != observer {
		t.Fatalf("ObserverFromContext returned %v, expected the stored observer", retrieved)
	}
}

func TestObserverFromContext_NilContext(t *testing.T) {
	//nolint:staticcheck // intentionally passing nil to verify defensive guard
	if observer := ObserverFromContext(nil); observer != nil {
		t.Errorf("Expected nil from nil context, got %v", observer)
	}
}

func TestObserverAndSpan_Independent(t *testing.T) {
	observer := &mockProvider{label: "observer"}
	span := &mockSpan{name: "span"}

	ctx := ContextWithObserver(context.Background(), observer)
	ctx = ContextWithSpan(ctx, span)

	if ObserverFromContext(ctx) != observer {
		t.Error("Expected observer to survive span attachment")
	}
	if SpanFromContext(ctx) != span {
		t.Error("Expected span to be retrievable")
	}
}

type mockSpan struct {
	name    string
	ended   bool
	status  StatusCode
	errors  []error
	attrs   []Attribute
	events  []string
	details string
}

func (m *mockSpan) End()                             { m.ended = true }
func (m *mockSpan) SetAttributes(attrs ...Attribute) { m.attrs = append(m.attrs, attrs...) }
func (m *mockSpan) SetStatus(code StatusCode, description string) {
	m.status = code
	m.details = description
}
func (m *mockSpan) RecordError(err error)                   { m.errors = append(m.errors, err) }
func (m *mockSpan) AddEvent(name string, _ ...Attribute)    { m.events = append(m.events, name) }

type mockProvider struct {
	label string
	spans []*mockSpan
}

func (m *mockProvider) StartSpan(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	span := &mockSpan{name: name, attrs: attrs}
	m.spans = append(m.spans, span)
	return ctx, span
}
func (m *mockProvider) Counter(_ string) Counter                          { return nil }
func (m *mockProvider) Histogram(_ string) Histogram                      { return nil }
func (m *mockProvider) Trace(_ context.Context, _ string, _ ...Attribute) {}
func (m *mockProvider) Debug(_ context.Context, _ string, _ ...Attribute) {}
func (m *mockProvider) Info(_ context.Context, _ string, _ ...Attribute)  {}
func (m *mockProvider) Warn(_ context.Context, _ string, _ ...Attribute)  {}
func (m *mockProvider) Error(_ context.Context, _ string, _ ...Attribute) {}
