package synthia

import (
	"encoding/json"
	"log"
)

// LocalCache persists last-known-good snapshots per satellite id on top of a
// SnapshotStore.
//
// Both Load and Save never fail from the caller's perspective: storage errors
// are logged and swallowed so a broken local store degrades to empty state
// without disturbing the sync path.
type LocalCache struct {
	store SnapshotStore
}

// NewLocalCache creates a cache over the given store.
func NewLocalCache(store SnapshotStore) *LocalCache {
	return &LocalCache{store: store}
}

// Load returns the cached snapshot for the satellite, or an empty snapshot
// when nothing is stored or the store fails.
func (c *LocalCache) Load(satelliteID string) CachedSnapshot {
	empty := CachedSnapshot{
		Memories:  []MemoryRecord{},
		Knowledge: map[string]KnowledgeEntry{},
	}
	raw, err := c.store.Get(satelliteID, snapshotKey)
	if err != nil {
		log.Printf("[LocalCache] load failed for satellite=%s: %v", satelliteID, err)
		return empty
	}
	if raw == "" {
		return empty
	}
	var snap CachedSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		log.Printf("[LocalCache] corrupt snapshot for satellite=%s: %v", satelliteID, err)
		return empty
	}
	if snap.Memories == nil {
		snap.Memories = []MemoryRecord{}
	}
	if snap.Knowledge == nil {
		snap.Knowledge = map[string]KnowledgeEntry{}
	}
	return snap
}

// Save shallow-merges the partial snapshot into whatever was previously
// stored and stamps the save time. Nil fields of partial leave the stored
// counterpart intact, so callers can persist just the slice of state they
// changed. A failed write leaves the prior cache untouched.
func (c *LocalCache) Save(satelliteID string, partial CachedSnapshot) {
	current := c.Load(satelliteID)
	if partial.Memories != nil {
		current.Memories = partial.Memories
	}
	if partial.Knowledge != nil {
		current.Knowledge = partial.Knowledge
	}
	if partial.Session != nil {
		current.Session = partial.Session
	}
	current.SavedAt = nowRFC3339()

	data, err := json.Marshal(current)
	if err != nil {
		log.Printf("[LocalCache] marshal failed for satellite=%s: %v", satelliteID, err)
		return
	}
	if err := c.store.Set(satelliteID, snapshotKey, string(data)); err != nil {
		log.Printf("[LocalCache] save failed for satellite=%s: %v", satelliteID, err)
	}
}
