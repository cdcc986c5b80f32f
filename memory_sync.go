package synthia

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/atomic"
)

// ──────────────────────────────────────────────
// Memory Synchronizer — federation state vs local cache
// ──────────────────────────────────────────────

// Mode names used as provenance tags on federation calls.
const (
	ModeFederation = "federation"
	ModeSovereign  = "sovereign"
)

// RehydrateResult reports the outcome of a rehydration attempt. Rehydrate
// never fails from the caller's perspective; a remote failure degrades to the
// local cache and Online=false.
type RehydrateResult struct {
	Online        bool
	ReturningUser bool
	Greeting      string
}

// MemorySync reconciles federation-held agent state with the local snapshot
// cache. It holds the in-memory memories, knowledge map and session record
// and decides online vs offline mode.
//
// Mode transitions: online→offline on any remote error, offline→online only
// via a successful Rehydrate.
type MemorySync struct {
	cfg     Config
	invoker FederationInvoker
	cache   *LocalCache
	tracker *SessionTracker
	online  atomic.Bool

	mu            sync.Mutex
	identity      Identity
	memories      []MemoryRecord
	knowledge     map[string]KnowledgeEntry
	session       *SessionState
	returningUser bool
	greeting      string
	lastSyncAt    time.Time

	delivery *DeliveryQueue
}

// NewMemorySync creates a synchronizer over the given transport and store.
func NewMemorySync(cfg Config, invoker FederationInvoker, store SnapshotStore) *MemorySync {
	cfg = cfg.withDefaults()
	return &MemorySync{
		cfg:       cfg,
		invoker:   invoker,
		cache:     NewLocalCache(store),
		tracker:   NewSessionTracker(store, cfg.SatelliteID),
		identity:  Anonymous(),
		memories:  []MemoryRecord{},
		knowledge: map[string]KnowledgeEntry{},
	}
}

// SetDeliveryQueue routes fire-and-forget deliveries through q instead of
// invoking them inline. Optional. A failed delivery still flips the
// synchronizer offline, same as the inline path.
func (m *MemorySync) SetDeliveryQueue(q *DeliveryQueue) {
	if q != nil {
		prev := q.OnResult
		q.OnResult = func(res DeliveryResult) {
			if res.Err != nil {
				m.markOffline(res.Err)
			}
			if prev != nil {
				prev(res)
			}
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delivery = q
}

// Rehydrate resolves the identity against the federation and restores the
// authoritative remote state. On any failure (or for an anonymous identity)
// it falls back to the local cache and marks the synchronizer offline.
func (m *MemorySync) Rehydrate(ctx context.Context, identity Identity) RehydrateResult {
	m.mu.Lock()
	m.identity = identity
	m.mu.Unlock()

	userID, known := identity.UserID()
	if !known {
		return RehydrateResult{ReturningUser: m.fallbackToCache()}
	}

	body, err := m.invoker.Invoke(ctx, "rehydrate", map[string]interface{}{
		"identity":   userID,
		"agent_id":   m.cfg.SatelliteID,
		"session_id": m.cfg.SessionID,
	})
	if err != nil {
		log.Printf("[MemorySync] rehydrate failed for %s: %v", identity, err)
		return RehydrateResult{ReturningUser: m.fallbackToCache()}
	}

	snap, returning, greeting := parseRehydrateResponse(body)

	m.mu.Lock()
	m.memories = snap.Memories
	m.knowledge = snap.Knowledge
	m.session = snap.Session
	m.returningUser = returning
	m.greeting = greeting
	m.lastSyncAt = time.Now()
	m.mu.Unlock()

	m.online.Store(true)
	m.cache.Save(m.cfg.SatelliteID, snap)
	m.tracker.Touch(time.Now())
	log.Printf("[MemorySync] rehydrated satellite=%s memories=%d knowledge=%d",
		m.cfg.SatelliteID, len(snap.Memories), len(snap.Knowledge))

	return RehydrateResult{Online: true, ReturningUser: returning, Greeting: greeting}
}

// fallbackToCache replaces in-memory state with the local cache and marks the
// synchronizer offline. The federation cannot supply the returning-user flag
// here, so it is derived from the locally tracked session history.
func (m *MemorySync) fallbackToCache() bool {
	snap := m.cache.Load(m.cfg.SatelliteID)
	returning := m.tracker.IsReturning()
	m.tracker.Touch(time.Now())
	m.mu.Lock()
	m.memories = snap.Memories
	m.knowledge = snap.Knowledge
	m.session = snap.Session
	m.returningUser = returning
	m.mu.Unlock()
	m.online.Store(false)
	log.Printf("[MemorySync] offline mode, loaded cache satellite=%s memories=%d returning=%v",
		m.cfg.SatelliteID, len(snap.Memories), returning)
	return returning
}

// StoreMemory always appends the record locally, bounded to the most recent
// MaxMemories, with the default confidence when unset. When online it
// additionally fires a remote store call tagged with the current mode;
// remote failure does not roll back the local append (at-most-once, no
// retry).
func (m *MemorySync) StoreMemory(ctx context.Context, record MemoryRecord) {
	if record.Confidence <= 0 {
		record.Confidence = DefaultMemoryConfidence
	}

	m.mu.Lock()
	m.memories = append(m.memories, record)
	if len(m.memories) > m.cfg.MaxMemories {
		m.memories = m.memories[len(m.memories)-m.cfg.MaxMemories:]
	}
	local := make([]MemoryRecord, len(m.memories))
	copy(local, m.memories)
	delivery := m.delivery
	m.mu.Unlock()

	m.cache.Save(m.cfg.SatelliteID, CachedSnapshot{Memories: local})

	if !m.online.Load() {
		return
	}

	payload := map[string]interface{}{
		"agent_id":   m.cfg.SatelliteID,
		"session_id": m.cfg.SessionID,
		"record":     record,
		"mode":       m.Mode(),
	}
	if delivery != nil {
		delivery.Submit("store_memory", payload)
		return
	}
	if _, err := m.invoker.Invoke(ctx, "store_memory", payload); err != nil {
		log.Printf("[MemorySync] remote store failed (local append kept): %v", err)
		m.markOffline(err)
	}
}

// markOffline transitions online→offline after a remote failure.
func (m *MemorySync) markOffline(err error) {
	if m.online.CompareAndSwap(true, false) {
		log.Printf("[MemorySync] entering offline mode: %v", err)
	}
}

// Mode returns the current provenance tag: ModeFederation when online,
// ModeSovereign otherwise.
func (m *MemorySync) Mode() string {
	if m.online.Load() {
		return ModeFederation
	}
	return ModeSovereign
}

// Online reports whether the last remote interaction succeeded.
func (m *MemorySync) Online() bool { return m.online.Load() }

// Identity returns the identity set by the last Rehydrate.
func (m *MemorySync) Identity() Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

// Memories returns a copy of the local memory list, oldest first.
func (m *MemorySync) Memories() []MemoryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MemoryRecord, len(m.memories))
	copy(out, m.memories)
	return out
}

// Knowledge returns a copy of the local knowledge map.
func (m *MemorySync) Knowledge() map[string]KnowledgeEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]KnowledgeEntry, len(m.knowledge))
	for k, v := range m.knowledge {
		out[k] = v
	}
	return out
}

// Session returns a copy of the session record, or nil when never
// initialized.
func (m *MemorySync) Session() *SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	cp := *m.session
	return &cp
}

// ReturningUser reports the flag from the last successful rehydration.
func (m *MemorySync) ReturningUser() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.returningUser
}

// Greeting returns the greeting from the last successful rehydration.
func (m *MemorySync) Greeting() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.greeting
}

// LastSyncAt returns the time of the last successful rehydration.
func (m *MemorySync) LastSyncAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSyncAt
}

// parseRehydrateResponse reads the rehydrate response leniently. Missing
// sections default to empty state.
func parseRehydrateResponse(body []byte) (CachedSnapshot, bool, string) {
	snap := CachedSnapshot{
		Memories:  []MemoryRecord{},
		Knowledge: map[string]KnowledgeEntry{},
	}
	root := gjson.ParseBytes(body)

	if raw := root.Get("context.memories"); raw.Exists() {
		var memories []MemoryRecord
		if json.Unmarshal([]byte(raw.Raw), &memories) == nil && memories != nil {
			snap.Memories = memories
		}
	}
	if raw := root.Get("context.knowledge"); raw.Exists() {
		var knowledge map[string]KnowledgeEntry
		if json.Unmarshal([]byte(raw.Raw), &knowledge) == nil && knowledge != nil {
			snap.Knowledge = knowledge
		}
	}
	if raw := root.Get("context.session"); raw.Exists() && raw.IsObject() {
		var session SessionState
		if json.Unmarshal([]byte(raw.Raw), &session) == nil {
			snap.Session = &session
		}
	}

	return snap, root.Get("isReturningUser").Bool(), root.Get("greeting").String()
}
