package synthia

import (
	"context"
	"log"

	"github.com/tidwall/gjson"
)

// ──────────────────────────────────────────────
// Insight extraction — transcript to preferences/patterns/facts
// ──────────────────────────────────────────────

// minTranscriptTurns is the smallest transcript worth extracting from.
const minTranscriptTurns = 2

// ExtractInsights submits a conversation transcript to the federation and
// fans the structured insights out to knowledge evolution and memory
// storage.
//
// No-op for anonymous identities or transcripts shorter than two turns.
// Fan-out order is fixed: preferences (confidence above
// Config.PreferenceMinConfidence, evolved as "preference"), then patterns
// (above Config.PatternMinConfidence, evolved as "behavior"), then facts
// (stored unconditionally as "insight" memories). Each call completes before
// the next starts, so side effects are deterministic for a given response.
func (m *MemorySync) ExtractInsights(ctx context.Context, transcript []ConversationTurn) {
	m.mu.Lock()
	identity := m.identity
	m.mu.Unlock()

	userID, known := identity.UserID()
	if !known || len(transcript) < minTranscriptTurns {
		return
	}

	body, err := m.invoker.Invoke(ctx, "extract_insights", map[string]interface{}{
		"identity":   userID,
		"agent_id":   m.cfg.SatelliteID,
		"session_id": m.cfg.SessionID,
		"transcript": transcript,
	})
	if err != nil {
		log.Printf("[MemorySync] insight extraction failed: %v", err)
		m.markOffline(err)
		return
	}

	root := gjson.ParseBytes(body)
	if !root.Get("success").Bool() {
		log.Printf("[MemorySync] insight extraction rejected by federation")
		return
	}
	insights := root.Get("insights")

	for _, p := range insights.Get("preferences").Array() {
		if p.Get("confidence").Float() > m.cfg.PreferenceMinConfidence {
			m.Evolve(ctx, p.Get("key").String(), p.Get("value").Value(), "preference")
		}
	}
	for _, p := range insights.Get("patterns").Array() {
		if p.Get("confidence").Float() > m.cfg.PatternMinConfidence {
			m.Evolve(ctx, p.Get("key").String(), p.Get("value").Value(), "behavior")
		}
	}
	for _, f := range insights.Get("facts").Array() {
		importance := f.Get("importance").String()
		if importance == "" {
			importance = "medium"
		}
		m.StoreMemory(ctx, NewMemoryRecord(f.Get("content").String(), "insight", importance))
	}
}
