package synthia

import (
	"context"
	"log"
)

// ──────────────────────────────────────────────
// Session synchronization — remote first, local mirror
// ──────────────────────────────────────────────

// UpdateSession pushes a partial session update to the federation and
// mirrors it into the local session record.
//
// Anonymous identities are a no-op. A remote failure is logged and the local
// merge is skipped — the update is lost rather than diverging from the
// remote session. When the remote accepts the update and no local session
// exists yet, a default session record is initialized before the merge
// instead of silently dropping the update.
func (m *MemorySync) UpdateSession(ctx context.Context, update SessionUpdate) {
	m.mu.Lock()
	identity := m.identity
	m.mu.Unlock()

	userID, known := identity.UserID()
	if !known {
		return
	}

	_, err := m.invoker.Invoke(ctx, "sync_session", map[string]interface{}{
		"identity":   userID,
		"agent_id":   m.cfg.SatelliteID,
		"session_id": m.cfg.SessionID,
		"update":     update,
	})
	if err != nil {
		log.Printf("[MemorySync] session sync failed (update dropped): %v", err)
		m.markOffline(err)
		return
	}

	m.mu.Lock()
	if m.session == nil {
		m.session = DefaultSessionState()
	}
	update.Apply(m.session)
	session := *m.session
	m.mu.Unlock()

	m.cache.Save(m.cfg.SatelliteID, CachedSnapshot{Session: &session})
}
