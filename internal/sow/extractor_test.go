package sow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/travisfleish/staffing-plan-poc/internal/engine"
)

// mockChatter implements Chatter for testing.
type mockChatter struct {
	response string
	err      error
	delay    time.Duration
}

func (m *mockChatter) Chat(ctx context.Context, model string, messages []engine.Message, jsonSchema *engine.Schema) (string, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m.response, m.err
}

func newTestExtractor(m *mockChatter, timeout time.Duration) *Extractor {
	return NewExtractor(m, "phi3.5", timeout, 0.5, 0.2)
}

func TestExtractStructuredAnswer(t *testing.T) {
	mock := &mockChatter{
		response: `{"complexity_level":"high","duration_months":12,"workstream_count":4,"estimated_total_hours":9600,"key_deliverables":["Brand strategy","Creative campaign"]}`,
	}
	e := newTestExtractor(mock, time.Second)

	fs := e.Extract(context.Background(), "Comprehensive year-long integrated retainer")

	if fs.Complexity != ComplexityHigh {
		t.Errorf("Complexity = %q, want high", fs.Complexity)
	}
	if fs.DurationMonths != 12 {
		t.Errorf("DurationMonths = %v, want 12", fs.DurationMonths)
	}
	if fs.WorkstreamCount != 4 {
		t.Errorf("WorkstreamCount = %d, want 4", fs.WorkstreamCount)
	}
	if fs.EstimatedTotalHours != 9600 {
		t.Errorf("EstimatedTotalHours = %v, want 9600", fs.EstimatedTotalHours)
	}
	if len(fs.KeyDeliverables) != 2 {
		t.Errorf("KeyDeliverables = %v, want 2 entries", fs.KeyDeliverables)
	}
}

func TestExtractLenientNumbers(t *testing.T) {
	// Small models sometimes emit "TBD" or string numbers; the parser must
	// not propagate garbage.
	mock := &mockChatter{
		response: `{"complexity_level":"medium","duration_months":"TBD","workstream_count":2,"estimated_total_hours":"TBD","key_deliverables":[]}`,
	}
	e := newTestExtractor(mock, time.Second)

	fs := e.Extract(context.Background(), "some scope")

	if fs.DurationMonths != 4 {
		t.Errorf("DurationMonths = %v, want default 4", fs.DurationMonths)
	}
	if fs.EstimatedTotalHours != 800 {
		t.Errorf("EstimatedTotalHours = %v, want medium table value 800", fs.EstimatedTotalHours)
	}
}

func TestExtractMalformedFallsBack(t *testing.T) {
	mock := &mockChatter{response: `not valid json {{{`}
	e := newTestExtractor(mock, time.Second)

	fs := e.Extract(context.Background(), "a standalone design audit, limited scope")

	if err := fs.Validate(); err != nil {
		t.Fatalf("fallback produced invalid feature set: %v", err)
	}
	if fs.Complexity != ComplexityLow {
		t.Errorf("Complexity = %q, want low from heuristics", fs.Complexity)
	}
	if fs.EstimatedTotalHours != 500 {
		t.Errorf("EstimatedTotalHours = %v, want 500", fs.EstimatedTotalHours)
	}
}

func TestExtractEngineErrorFallsBack(t *testing.T) {
	mock := &mockChatter{err: errors.New("connection refused")}
	e := newTestExtractor(mock, time.Second)

	fs := e.Extract(context.Background(), "global integrated campaign across markets")

	if fs.Complexity != ComplexityHigh {
		t.Errorf("Complexity = %q, want high from heuristics", fs.Complexity)
	}
	if err := fs.Validate(); err != nil {
		t.Errorf("fallback produced invalid feature set: %v", err)
	}
}

func TestExtractTimeoutFallsBack(t *testing.T) {
	mock := &mockChatter{
		response: `{"complexity_level":"low"}`,
		delay:    500 * time.Millisecond,
	}
	e := newTestExtractor(mock, 50*time.Millisecond)

	start := time.Now()
	fs := e.Extract(context.Background(), "an annual retainer for brand work")
	elapsed := time.Since(start)

	if elapsed > 300*time.Millisecond {
		t.Errorf("extraction took %v, timeout did not bound the call", elapsed)
	}
	if fs.DurationMonths != 6 {
		t.Errorf("DurationMonths = %v, want 6 for retainer language", fs.DurationMonths)
	}
}

func TestExtractEmptyText(t *testing.T) {
	e := newTestExtractor(&mockChatter{response: "{}"}, time.Second)
	fs := e.Extract(context.Background(), "   ")
	if err := fs.Validate(); err != nil {
		t.Errorf("empty text must still yield a valid feature set: %v", err)
	}
	if fs.Complexity != ComplexityMedium {
		t.Errorf("Complexity = %q, want medium", fs.Complexity)
	}
}
