package synthia

import (
	"context"
	"encoding/json"
	"sync"
)

// fakeFederation is a scripted FederationInvoker recording every call.
// Unhandled actions answer "{}".
type fakeFederation struct {
	mu       sync.Mutex
	calls    []string
	handlers map[string]func(payload []byte) ([]byte, error)
	healthy  bool
}

func newFakeFederation() *fakeFederation {
	return &fakeFederation{
		handlers: make(map[string]func(payload []byte) ([]byte, error)),
		healthy:  true,
	}
}

func (f *fakeFederation) handle(action string, fn func(payload []byte) ([]byte, error)) {
	f.handlers[action] = fn
}

func (f *fakeFederation) respond(action, body string) {
	f.handle(action, func([]byte) ([]byte, error) {
		return []byte(body), nil
	})
}

func (f *fakeFederation) fail(action string, err error) {
	f.handle(action, func([]byte) ([]byte, error) {
		return nil, err
	})
}

func (f *fakeFederation) Invoke(ctx context.Context, action string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls = append(f.calls, action)
	fn := f.handlers[action]
	f.mu.Unlock()
	if fn == nil {
		return []byte(`{}`), nil
	}
	return fn(data)
}

func (f *fakeFederation) Ping(ctx context.Context) bool {
	return f.healthy
}

func (f *fakeFederation) count(action string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == action {
			n++
		}
	}
	return n
}

func (f *fakeFederation) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// failingStore is a SnapshotStore whose every operation fails.
type failingStore struct{ err error }

func (s *failingStore) Get(namespace, key string) (string, error)   { return "", s.err }
func (s *failingStore) Set(namespace, key, value string) error      { return s.err }
func (s *failingStore) Delete(namespace, key string) error          { return s.err }
func (s *failingStore) ListKeys(namespace string) ([]string, error) { return nil, s.err }

// countJSONArray returns the length of the named top-level array field.
func countJSONArray(payload []byte, field string) int {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return -1
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(m[field], &arr); err != nil {
		return -1
	}
	return len(arr)
}

func testConfig() Config {
	return Config{
		FederationURL: "http://federation.test",
		SatelliteID:   "sat-1",
		SessionID:     "sess-1",
	}
}
