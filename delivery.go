package synthia

import (
	"context"
	"log"
	"sync"
)

// ──────────────────────────────────────────────
// Async delivery queue — fire-and-forget federation calls
// ──────────────────────────────────────────────

// DeliveryQueueConfig controls the background delivery pipeline.
type DeliveryQueueConfig struct {
	Workers   int // background worker goroutines, default 1
	QueueSize int // buffered channel capacity, default 100
}

// DefaultDeliveryQueueConfig returns production defaults.
func DefaultDeliveryQueueConfig() DeliveryQueueConfig {
	return DeliveryQueueConfig{Workers: 1, QueueSize: 100}
}

type deliveryJob struct {
	Action  string
	Payload interface{}
}

// DeliveryResult is emitted after each background delivery completes.
type DeliveryResult struct {
	Action string
	Err    error
}

// DeliveryQueue takes fire-and-forget federation deliveries off the caller
// path. Deliveries keep at-most-once semantics: a failed call is logged and
// dropped, never retried.
type DeliveryQueue struct {
	invoker FederationInvoker
	config  DeliveryQueueConfig
	queue   chan deliveryJob
	wg      sync.WaitGroup
	cancel  context.CancelFunc

	// OnResult is called (from a worker goroutine) after each delivery.
	// May be nil.
	OnResult func(DeliveryResult)
}

// NewDeliveryQueue creates and starts a delivery pipeline.
// Call Stop() to drain the queue and shut down workers.
func NewDeliveryQueue(invoker FederationInvoker, config ...DeliveryQueueConfig) *DeliveryQueue {
	cfg := DefaultDeliveryQueueConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &DeliveryQueue{
		invoker: invoker,
		config:  cfg,
		queue:   make(chan deliveryJob, cfg.QueueSize),
		cancel:  cancel,
	}

	for i := 0; i < cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
	return q
}

// Submit enqueues a delivery. Non-blocking; drops if the queue is full.
// Returns true if enqueued, false if dropped.
func (q *DeliveryQueue) Submit(action string, payload interface{}) bool {
	select {
	case q.queue <- deliveryJob{Action: action, Payload: payload}:
		return true
	default:
		log.Printf("[DeliveryQueue] queue full, dropping %s delivery", action)
		return false
	}
}

// Pending returns the number of deliveries waiting in the queue.
func (q *DeliveryQueue) Pending() int {
	return len(q.queue)
}

// Stop signals workers to drain remaining deliveries and exit. Blocks until
// done.
func (q *DeliveryQueue) Stop() {
	q.cancel()
	close(q.queue)
	q.wg.Wait()
}

func (q *DeliveryQueue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case job, ok := <-q.queue:
			if !ok {
				return
			}
			q.deliver(job)
		case <-ctx.Done():
			// Drain remaining
			for job := range q.queue {
				q.deliver(job)
			}
			return
		}
	}
}

func (q *DeliveryQueue) deliver(job deliveryJob) {
	_, err := q.invoker.Invoke(context.Background(), job.Action, job.Payload)
	if err != nil {
		log.Printf("[DeliveryQueue] %s delivery failed (dropped): %v", job.Action, err)
	}
	if q.OnResult != nil {
		q.OnResult(DeliveryResult{Action: job.Action, Err: err})
	}
}
