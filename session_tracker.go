package synthia

import (
	"encoding/json"
	"time"
)

// ──────────────────────────────────────────────
// Session Tracker — local interaction metadata
// ──────────────────────────────────────────────

// sessionMeta is persisted in the SnapshotStore.
type sessionMeta struct {
	TotalSessions int    `json:"total_sessions"`
	LastAt        string `json:"last_at"` // RFC3339
}

// SessionTracker derives interaction metadata for a satellite from the
// snapshot store, with zero remote calls: total session count, days since
// the last session, and returning-user detection for the offline path where
// the federation cannot supply the flag.
type SessionTracker struct {
	store     SnapshotStore
	namespace string
}

// NewSessionTracker creates a tracker for the given satellite.
func NewSessionTracker(store SnapshotStore, satelliteID string) *SessionTracker {
	return &SessionTracker{store: store, namespace: satelliteID}
}

// Touch increments the session count and updates the last-seen time.
// Call once per session, e.g. after the first interaction.
func (t *SessionTracker) Touch(now time.Time) {
	meta := t.loadMeta()
	meta.TotalSessions++
	meta.LastAt = now.Format(time.RFC3339)
	t.saveMeta(meta)
}

// TotalSessions returns the persisted session count.
func (t *SessionTracker) TotalSessions() int {
	return t.loadMeta().TotalSessions
}

// DaysSinceLast returns full days since the previous session, or -1 when no
// session was ever recorded.
func (t *SessionTracker) DaysSinceLast(now time.Time) int {
	meta := t.loadMeta()
	if meta.LastAt == "" {
		return -1
	}
	lastAt, err := time.Parse(time.RFC3339, meta.LastAt)
	if err != nil {
		return -1
	}
	days := int(now.Sub(lastAt).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return days
}

// IsReturning reports whether at least one prior session was recorded.
func (t *SessionTracker) IsReturning() bool {
	return t.loadMeta().TotalSessions > 0
}

// Apply fills the tracker-derived fields of a session record.
func (t *SessionTracker) Apply(s *SessionState) {
	if s == nil {
		return
	}
	s.TotalSessions = t.loadMeta().TotalSessions
}

// RecordInteraction bumps the interaction counter on a session record.
func (t *SessionTracker) RecordInteraction(s *SessionState) {
	if s == nil {
		return
	}
	s.TotalInteractions++
}

func (t *SessionTracker) loadMeta() sessionMeta {
	var meta sessionMeta
	raw, err := t.store.Get(t.namespace, sessionMetaKey)
	if err == nil && raw != "" {
		json.Unmarshal([]byte(raw), &meta)
	}
	return meta
}

func (t *SessionTracker) saveMeta(meta sessionMeta) {
	data, _ := json.Marshal(meta)
	t.store.Set(t.namespace, sessionMetaKey, string(data))
}
