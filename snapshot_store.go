package synthia

import (
	"sync"
)

// SnapshotStore is the pluggable persistence backend for local satellite
// state.
//
// All data is organized by namespace (typically the satellite id) and key
// (e.g. "snapshot", "session_meta"). Implementations must be safe for
// concurrent use.
type SnapshotStore interface {
	Get(namespace, key string) (string, error)
	Set(namespace, key, value string) error
	Delete(namespace, key string) error
	ListKeys(namespace string) ([]string, error)
}

// Well-known store keys.
const (
	snapshotKey    = "snapshot"
	sessionMetaKey = "session_meta"
)

// InMemorySnapshotStore is a thread-safe in-memory SnapshotStore for
// development and tests. Data is lost on restart.
type InMemorySnapshotStore struct {
	mu sync.RWMutex
	kv map[string]map[string]string
}

// NewInMemorySnapshotStore creates a new in-memory store.
func NewInMemorySnapshotStore() *InMemorySnapshotStore {
	return &InMemorySnapshotStore{kv: make(map[string]map[string]string)}
}

func (s *InMemorySnapshotStore) Get(namespace, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ns, ok := s.kv[namespace]; ok {
		if v, ok := ns[key]; ok {
			return v, nil
		}
	}
	return "", nil
}

func (s *InMemorySnapshotStore) Set(namespace, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kv[namespace] == nil {
		s.kv[namespace] = make(map[string]string)
	}
	s.kv[namespace][key] = value
	return nil
}

func (s *InMemorySnapshotStore) Delete(namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ns, ok := s.kv[namespace]; ok {
		delete(ns, key)
	}
	return nil
}

func (s *InMemorySnapshotStore) ListKeys(namespace string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.kv[namespace]
	if !ok {
		return []string{}, nil
	}
	keys := make([]string, 0, len(ns))
	for k := range ns {
		keys = append(keys, k)
	}
	return keys, nil
}

var _ SnapshotStore = (*InMemorySnapshotStore)(nil)
