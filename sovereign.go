package synthia

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/tidwall/gjson"
	"go.uber.org/atomic"
)

// ──────────────────────────────────────────────
// Sovereign failover — health-checked query routing
// ──────────────────────────────────────────────

// Confidence defaults applied when the backend omits the field.
const (
	defaultPrimaryConfidence   = 0.8
	defaultSovereignConfidence = 0.75
)

// SynthesisResult is the structured answer from whichever backend responded.
// GovernanceValidated is trusted verbatim; no local enforcement exists here.
type SynthesisResult struct {
	Response            string   `json:"response"`
	Confidence          float64  `json:"confidence"`
	Hemisphere          string   `json:"dominant_hemisphere"`
	ReasoningTrace      []string `json:"reasoning_trace"`
	GovernanceValidated bool     `json:"governance_validated"`
	// Sovereign reports which path answered.
	Sovereign bool `json:"sovereign"`
}

// SovereignRouter routes reasoning queries to the federation's primary
// synthesis endpoint, failing over to the sovereign endpoint when the
// federation is unreachable. It keeps a short local conversation window for
// sovereign-mode continuity.
type SovereignRouter struct {
	cfg       Config
	invoker   FederationInvoker
	sovereign atomic.Bool

	mu     sync.Mutex
	window []ConversationTurn
}

// NewSovereignRouter creates a router over the given transport.
func NewSovereignRouter(cfg Config, invoker FederationInvoker) *SovereignRouter {
	return &SovereignRouter{cfg: cfg.withDefaults(), invoker: invoker}
}

// CheckHealth pings the federation with a bounded wait. Any timeout or error
// yields false; CheckHealth never returns an error.
func (r *SovereignRouter) CheckHealth(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.HealthTimeout)
	defer cancel()
	return r.invoker.Ping(ctx)
}

// Process routes a reasoning query.
//
// When the health check fails, the query goes straight to the sovereign
// path. When the primary call fails — transport error or a structured error
// in the response — the router marks sovereign mode active and delegates
// once to the sovereign path, without retrying the primary. A sovereign
// failure propagates to the caller: it is the terminal path.
func (r *SovereignRouter) Process(ctx context.Context, query, governanceMode string) (SynthesisResult, error) {
	if !r.CheckHealth(ctx) {
		r.enterSovereign("health check failed")
		return r.processSovereign(ctx, query, governanceMode)
	}

	body, err := r.invoker.Invoke(ctx, "synthesize", map[string]interface{}{
		"query":           query,
		"session_id":      r.cfg.SessionID,
		"mode":            ModeFederation,
		"governance_mode": governanceMode,
	})
	if err != nil {
		r.enterSovereign(err.Error())
		return r.processSovereign(ctx, query, governanceMode)
	}
	root := gjson.ParseBytes(body)
	if root.Get("error").Exists() {
		r.enterSovereign(root.Get("error").String())
		return r.processSovereign(ctx, query, governanceMode)
	}

	result := parseSynthesisResult(root, false)
	r.appendExchange(query, result.Response)
	return result, nil
}

// processSovereign calls the alternate backend with the recent window as
// context. Failure propagates upward; there is no further fallback.
func (r *SovereignRouter) processSovereign(ctx context.Context, query, governanceMode string) (SynthesisResult, error) {
	body, err := r.invoker.Invoke(ctx, "sovereign_synthesize", map[string]interface{}{
		"query":           query,
		"session_id":      r.cfg.SessionID,
		"governance_mode": governanceMode,
		"context":         r.Window(),
	})
	if err != nil {
		return SynthesisResult{}, fmt.Errorf("sovereign path failed: %w", err)
	}

	result := parseSynthesisResult(gjson.ParseBytes(body), true)
	r.appendExchange(query, result.Response)
	return result, nil
}

// enterSovereign flips the mode flag once per transition.
func (r *SovereignRouter) enterSovereign(reason string) {
	if r.sovereign.CompareAndSwap(false, true) {
		log.Printf("[SovereignRouter] sovereign mode active: %s", reason)
	}
}

// SovereignMode reports whether the router has failed over.
func (r *SovereignRouter) SovereignMode() bool { return r.sovereign.Load() }

// ResetMode clears the failover flag, e.g. after a successful rehydration.
func (r *SovereignRouter) ResetMode() { r.sovereign.Store(false) }

// appendExchange records a user/assistant pair in the bounded window.
func (r *SovereignRouter) appendExchange(query, response string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.window = append(r.window,
		NewConversationTurn("user", query),
		NewConversationTurn("assistant", response),
	)
	if len(r.window) > r.cfg.WindowSize {
		r.window = r.window[len(r.window)-r.cfg.WindowSize:]
	}
}

// Window returns a copy of the recent conversation window, oldest first.
func (r *SovereignRouter) Window() []ConversationTurn {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ConversationTurn, len(r.window))
	copy(out, r.window)
	return out
}

// parseSynthesisResult reads a synthesis response leniently, defaulting any
// missing field.
func parseSynthesisResult(root gjson.Result, sovereign bool) SynthesisResult {
	result := SynthesisResult{
		Response:            root.Get("response").String(),
		Confidence:          defaultPrimaryConfidence,
		Hemisphere:          root.Get("dominant_hemisphere").String(),
		ReasoningTrace:      []string{},
		GovernanceValidated: root.Get("governance_validated").Bool(),
		Sovereign:           sovereign,
	}
	if sovereign {
		result.Confidence = defaultSovereignConfidence
		result.Hemisphere = ModeSovereign
	} else if result.Hemisphere == "" {
		result.Hemisphere = "analytical"
	}
	if c := root.Get("confidence"); c.Exists() {
		result.Confidence = c.Float()
	}
	for _, t := range root.Get("reasoning_trace").Array() {
		result.ReasoningTrace = append(result.ReasoningTrace, t.String())
	}
	return result
}
