package synthia

import (
	"context"
	"fmt"
	"testing"
)

func TestProcess_HealthyUsesPrimary(t *testing.T) {
	fed := newFakeFederation()
	fed.respond("synthesize", `{
		"response": "the answer",
		"confidence": 0.92,
		"dominant_hemisphere": "creative",
		"reasoning_trace": ["step 1", "step 2"],
		"governance_validated": true
	}`)
	r := NewSovereignRouter(testConfig(), fed)

	res, err := r.Process(context.Background(), "what now?", "strict")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Response != "the answer" || res.Confidence != 0.92 || res.Hemisphere != "creative" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !res.GovernanceValidated || res.Sovereign {
		t.Fatalf("unexpected flags: %+v", res)
	}
	if len(res.ReasoningTrace) != 2 {
		t.Fatalf("unexpected trace: %v", res.ReasoningTrace)
	}
	if fed.count("sovereign_synthesize") != 0 {
		t.Fatal("healthy path must not touch the sovereign endpoint")
	}
	if r.SovereignMode() {
		t.Fatal("sovereign mode must stay inactive")
	}
}

func TestProcess_PrimaryDefaultsMissingFields(t *testing.T) {
	fed := newFakeFederation()
	fed.respond("synthesize", `{"response": "ok"}`)
	r := NewSovereignRouter(testConfig(), fed)

	res, err := r.Process(context.Background(), "q", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Confidence != 0.8 {
		t.Fatalf("expected primary confidence default 0.8, got %v", res.Confidence)
	}
	if res.Hemisphere != "analytical" {
		t.Fatalf("expected hemisphere default, got %q", res.Hemisphere)
	}
	if res.GovernanceValidated {
		t.Fatal("missing governance flag must default to false")
	}
	if res.ReasoningTrace == nil || len(res.ReasoningTrace) != 0 {
		t.Fatalf("expected empty trace, got %v", res.ReasoningTrace)
	}
}

func TestProcess_UnhealthyGoesStraightToSovereign(t *testing.T) {
	fed := newFakeFederation()
	fed.healthy = false
	fed.respond("sovereign_synthesize", `{"response": "local answer", "confidence": 0.7}`)
	r := NewSovereignRouter(testConfig(), fed)

	res, err := r.Process(context.Background(), "q", "strict")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fed.count("synthesize") != 0 {
		t.Fatal("unhealthy federation must never receive the primary call")
	}
	if fed.count("sovereign_synthesize") != 1 {
		t.Fatalf("expected one sovereign call, got %d", fed.count("sovereign_synthesize"))
	}
	if !res.Sovereign || res.Hemisphere != "sovereign" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Confidence != 0.7 {
		t.Fatalf("explicit confidence must win over the default, got %v", res.Confidence)
	}
	if !r.SovereignMode() {
		t.Fatal("sovereign mode must be marked active")
	}
}

func TestProcess_PrimaryErrorFailsOverOnce(t *testing.T) {
	fed := newFakeFederation()
	fed.fail("synthesize", fmt.Errorf("primary down"))
	fed.respond("sovereign_synthesize", `{"response": "fallback"}`)
	r := NewSovereignRouter(testConfig(), fed)

	res, err := r.Process(context.Background(), "q", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fed.count("synthesize") != 1 {
		t.Fatalf("primary must not be retried, got %d calls", fed.count("synthesize"))
	}
	if fed.count("sovereign_synthesize") != 1 {
		t.Fatalf("expected exactly one sovereign call, got %d", fed.count("sovereign_synthesize"))
	}
	if res.Confidence != 0.75 {
		t.Fatalf("expected sovereign confidence default 0.75, got %v", res.Confidence)
	}
}

func TestProcess_StructuredErrorFailsOver(t *testing.T) {
	fed := newFakeFederation()
	fed.respond("synthesize", `{"error": "governance rejection"}`)
	fed.respond("sovereign_synthesize", `{"response": "fallback"}`)
	r := NewSovereignRouter(testConfig(), fed)

	if _, err := r.Process(context.Background(), "q", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fed.count("sovereign_synthesize") != 1 {
		t.Fatal("structured error must trigger failover")
	}
}

func TestProcess_SovereignFailurePropagates(t *testing.T) {
	fed := newFakeFederation()
	fed.healthy = false
	fed.fail("sovereign_synthesize", fmt.Errorf("everything down"))
	r := NewSovereignRouter(testConfig(), fed)

	if _, err := r.Process(context.Background(), "q", ""); err == nil {
		t.Fatal("terminal sovereign failure must propagate")
	}
	if fed.count("sovereign_synthesize") != 1 {
		t.Fatal("no further fallback expected")
	}
}

func TestWindow_BoundedToLastTen(t *testing.T) {
	fed := newFakeFederation()
	fed.respond("synthesize", `{"response": "r"}`)
	r := NewSovereignRouter(testConfig(), fed)

	for i := 0; i < 9; i++ {
		if _, err := r.Process(context.Background(), fmt.Sprintf("q%d", i), ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	window := r.Window()
	if len(window) != 10 {
		t.Fatalf("expected window bounded to 10, got %d", len(window))
	}
	// 9 exchanges = 18 turns; the last 10 start at exchange 4's user turn.
	if window[0].Role != "user" || window[0].Content != "q4" {
		t.Fatalf("unexpected window head: %+v", window[0])
	}
	if window[9].Role != "assistant" {
		t.Fatalf("unexpected window tail: %+v", window[9])
	}
}

func TestProcess_SovereignReceivesWindowContext(t *testing.T) {
	fed := newFakeFederation()
	fed.respond("synthesize", `{"response": "r"}`)
	r := NewSovereignRouter(testConfig(), fed)
	if _, err := r.Process(context.Background(), "earlier", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var gotContext int
	fed.healthy = false
	fed.handle("sovereign_synthesize", func(payload []byte) ([]byte, error) {
		gotContext = countJSONArray(payload, "context")
		return []byte(`{"response": "fallback"}`), nil
	})
	if _, err := r.Process(context.Background(), "now", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotContext != 2 {
		t.Fatalf("expected the prior exchange as context, got %d turns", gotContext)
	}
}
