package synthia

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileSnapshotStore is a SnapshotStore backed by one JSON file per namespace
// under a base directory. Suitable for single-process edge deployments where
// no Redis or SQLite is available.
type FileSnapshotStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileSnapshotStore creates the base directory if needed.
func NewFileSnapshotStore(dir string) (*FileSnapshotStore, error) {
	if dir == "" {
		return nil, errors.New("file store: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file store: mkdir %s: %w", dir, err)
	}
	return &FileSnapshotStore{dir: dir}, nil
}

func (s *FileSnapshotStore) path(namespace string) string {
	return filepath.Join(s.dir, namespace+".json")
}

func (s *FileSnapshotStore) read(namespace string) (map[string]string, error) {
	b, err := os.ReadFile(s.path(namespace))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]string{}
	}
	return m, nil
}

func (s *FileSnapshotStore) write(namespace string, m map[string]string) error {
	b, err := json.MarshalIndent(m, "", " ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(namespace), b, 0o644)
}

func (s *FileSnapshotStore) Get(namespace, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.read(namespace)
	if err != nil {
		return "", err
	}
	return m[key], nil
}

func (s *FileSnapshotStore) Set(namespace, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.read(namespace)
	if err != nil {
		return err
	}
	m[key] = value
	return s.write(namespace, m)
}

func (s *FileSnapshotStore) Delete(namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.read(namespace)
	if err != nil {
		return err
	}
	delete(m, key)
	return s.write(namespace, m)
}

func (s *FileSnapshotStore) ListKeys(namespace string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.read(namespace)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys, nil
}

var _ SnapshotStore = (*FileSnapshotStore)(nil)
