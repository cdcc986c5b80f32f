package synthia

import (
	"sync"
	"time"
)

// ──────────────────────────────────────────────
// Call tracing — bounded ring of federation round trips
// ──────────────────────────────────────────────

// CallSpan records a single federation round trip.
type CallSpan struct {
	Action     string    `json:"action"`
	StartTime  time.Time `json:"start_time"`
	DurationMs float64   `json:"duration_ms"`
	Status     string    `json:"status"` // "ok" or "error"
	Error      string    `json:"error,omitempty"`
}

func newCallSpan(action string, start time.Time, err error) CallSpan {
	span := CallSpan{
		Action:     action,
		StartTime:  start,
		DurationMs: float64(time.Since(start).Microseconds()) / 1000.0,
		Status:     "ok",
	}
	if err != nil {
		span.Status = "error"
		span.Error = err.Error()
	}
	return span
}

// CallTracer keeps a bounded in-memory ring of recent federation call spans
// for diagnostics. There is no external exporter.
type CallTracer struct {
	mu    sync.Mutex
	spans []CallSpan
	max   int
}

// NewCallTracer creates a tracer retaining the most recent max spans.
func NewCallTracer(max int) *CallTracer {
	if max <= 0 {
		max = 100
	}
	return &CallTracer{max: max}
}

// Record appends a span, evicting the oldest when full.
func (t *CallTracer) Record(span CallSpan) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spans = append(t.spans, span)
	if len(t.spans) > t.max {
		t.spans = t.spans[len(t.spans)-t.max:]
	}
}

// Recent returns a copy of the retained spans, oldest first.
func (t *CallTracer) Recent() []CallSpan {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]CallSpan, len(t.spans))
	copy(out, t.spans)
	return out
}

// Reset drops all retained spans.
func (t *CallTracer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spans = nil
}
