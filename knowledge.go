package synthia

import (
	"context"
	"log"

	"github.com/tidwall/gjson"
)

// ──────────────────────────────────────────────
// Knowledge evolution — remote scoring, local seeding
// ──────────────────────────────────────────────

// Evolve sends a key/value observation to the federation evolution service
// and merges the returned confidence and observation count into the local
// knowledge map.
//
// Anonymous identities never call out: the entry is seeded (or overwritten)
// locally with the default confidence and a single observation. On a remote
// error no local mutation occurs, so a stale entry is retained. This is a
// deliberate best-effort, last-write-wins policy with no conflict
// resolution.
//
// knowledgeType defaults to "preference".
func (m *MemorySync) Evolve(ctx context.Context, key string, value interface{}, knowledgeType ...string) KnowledgeEntry {
	kt := "preference"
	if len(knowledgeType) > 0 && knowledgeType[0] != "" {
		kt = knowledgeType[0]
	}

	m.mu.Lock()
	identity := m.identity
	m.mu.Unlock()

	userID, known := identity.UserID()
	if !known {
		entry := KnowledgeEntry{
			Value:        value,
			Confidence:   DefaultKnowledgeConfidence,
			Observations: DefaultObservationCount,
			Type:         kt,
		}
		m.setKnowledge(key, entry)
		return entry
	}

	body, err := m.invoker.Invoke(ctx, "evolve_knowledge", map[string]interface{}{
		"identity": userID,
		"agent_id": m.cfg.SatelliteID,
		"type":     kt,
		"key":      key,
		"value":    value,
	})
	if err != nil {
		log.Printf("[MemorySync] evolve failed for key=%s (stale entry retained): %v", key, err)
		m.markOffline(err)
		m.mu.Lock()
		stale := m.knowledge[key]
		m.mu.Unlock()
		return stale
	}

	entry := KnowledgeEntry{
		Value:        value,
		Confidence:   DefaultKnowledgeConfidence,
		Observations: DefaultObservationCount,
		Type:         kt,
	}
	evolved := gjson.GetBytes(body, "evolved")
	if trajectory := evolved.Get("confidence_trajectory").Array(); len(trajectory) > 0 {
		entry.Confidence = trajectory[len(trajectory)-1].Float()
		entry.Observations = int(evolved.Get("observations_count").Int())
		if entry.Observations <= 0 {
			entry.Observations = DefaultObservationCount
		}
	}

	m.setKnowledge(key, entry)
	return entry
}

// setKnowledge overwrites the entry under key and persists the knowledge
// slice of the snapshot.
func (m *MemorySync) setKnowledge(key string, entry KnowledgeEntry) {
	m.mu.Lock()
	m.knowledge[key] = entry
	snapshot := make(map[string]KnowledgeEntry, len(m.knowledge))
	for k, v := range m.knowledge {
		snapshot[k] = v
	}
	m.mu.Unlock()
	m.cache.Save(m.cfg.SatelliteID, CachedSnapshot{Knowledge: snapshot})
}
