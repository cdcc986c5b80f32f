package synthia

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestDeliveryQueue_DeliversAndStops(t *testing.T) {
	fed := newFakeFederation()
	q := NewDeliveryQueue(fed)

	for i := 0; i < 5; i++ {
		if !q.Submit("store_memory", map[string]interface{}{"i": i}) {
			t.Fatal("expected submit accepted")
		}
	}
	q.Stop()

	if fed.count("store_memory") != 5 {
		t.Fatalf("expected 5 deliveries after drain, got %d", fed.count("store_memory"))
	}
}

func TestDeliveryQueue_DropsWhenFull(t *testing.T) {
	blocked := make(chan struct{})
	fed := newFakeFederation()
	fed.handle("store_memory", func([]byte) ([]byte, error) {
		<-blocked
		return []byte(`{}`), nil
	})
	q := NewDeliveryQueue(fed, DeliveryQueueConfig{Workers: 1, QueueSize: 1})

	// First submit is picked up by the worker and blocks; second fills the
	// queue; third must be dropped.
	q.Submit("store_memory", nil)
	q.Submit("store_memory", nil)
	dropped := false
	for i := 0; i < 10; i++ {
		if !q.Submit("store_memory", nil) {
			dropped = true
			break
		}
	}
	if !dropped {
		t.Fatal("expected a drop once the queue filled")
	}
	close(blocked)
	q.Stop()
}

func TestDeliveryQueue_FailureReportedNotRetried(t *testing.T) {
	fed := newFakeFederation()
	fed.fail("store_memory", fmt.Errorf("rejected"))
	q := NewDeliveryQueue(fed)

	var mu sync.Mutex
	var results []DeliveryResult
	q.OnResult = func(r DeliveryResult) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}

	q.Submit("store_memory", nil)
	q.Stop()

	if fed.count("store_memory") != 1 {
		t.Fatalf("no retry expected, got %d calls", fed.count("store_memory"))
	}
	mu.Lock()
	defer mu.Unlock()
	if len(results) != 1 || results[0].Err == nil {
		t.Fatalf("expected one failed result, got %+v", results)
	}
}

func TestMemorySync_UsesDeliveryQueue(t *testing.T) {
	fed := newFakeFederation()
	fed.respond("rehydrate", `{}`)
	m := NewMemorySync(testConfig(), fed, NewInMemorySnapshotStore())
	m.Rehydrate(context.Background(), Identified("user-1"))

	q := NewDeliveryQueue(fed)
	m.SetDeliveryQueue(q)

	m.StoreMemory(context.Background(), NewMemoryRecord("queued", "fact", "low"))
	q.Stop()

	if fed.count("store_memory") != 1 {
		t.Fatalf("expected queued delivery, got %d", fed.count("store_memory"))
	}
	if len(m.Memories()) != 1 {
		t.Fatal("local append must happen before delivery")
	}
}

func TestMemorySync_QueuedDeliveryFailureGoesOffline(t *testing.T) {
	fed := newFakeFederation()
	fed.respond("rehydrate", `{}`)
	fed.fail("store_memory", fmt.Errorf("backend down"))
	m := NewMemorySync(testConfig(), fed, NewInMemorySnapshotStore())
	m.Rehydrate(context.Background(), Identified("user-1"))

	q := NewDeliveryQueue(fed)
	m.SetDeliveryQueue(q)

	m.StoreMemory(context.Background(), NewMemoryRecord("queued", "fact", "low"))
	q.Stop()

	if m.Online() {
		t.Fatal("failed queued delivery must flip the synchronizer offline")
	}
	if len(m.Memories()) != 1 {
		t.Fatal("local append must survive the remote failure")
	}
}

func TestMemorySync_SetDeliveryQueueChainsResultHook(t *testing.T) {
	fed := newFakeFederation()
	fed.fail("store_memory", fmt.Errorf("rejected"))
	q := NewDeliveryQueue(fed)

	var mu sync.Mutex
	seen := 0
	q.OnResult = func(DeliveryResult) {
		mu.Lock()
		seen++
		mu.Unlock()
	}

	m := NewMemorySync(testConfig(), fed, NewInMemorySnapshotStore())
	m.SetDeliveryQueue(q)

	q.Submit("store_memory", nil)
	q.Stop()

	mu.Lock()
	defer mu.Unlock()
	if seen != 1 {
		t.Fatalf("expected prior OnResult hook preserved, got %d calls", seen)
	}
}
