package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Varun-1606/quick-cart/internal/core/domain"
	"github.com/Varun-1606/quick-cart/internal/port"
)

var ErrQueueFull = errors.New("event queue full")

// Dispatcher queues events and hands them to a pool of workers that
// publish through the wrapped publisher, so request handlers never block
// on the broker.
type Dispatcher struct {
	next    port.EventPublisher
	queue   chan domain.OrderEvent
	timeout time.Duration
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(next port.EventPublisher, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	d := &Dispatcher{
		next:    next,
		queue:   make(chan domain.OrderEvent, queueSize),
		timeout: 5 * time.Second,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			d.workerLoop(id)
		}(i)
	}
	return d
}

// Publish enqueues the event. It fails with ErrQueueFull instead of blocking.
func (d *Dispatcher) Publish(_ context.Context, event domain.OrderEvent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return errors.New("dispatcher closed")
	}
	select {
	case d.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events and waits for the queue to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) workerLoop(id int) {
	for event := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.next.Publish(ctx, event); err != nil {
			slog.Default().Error("event publish failed",
				"module", "events",
				"layer", "adapter",
				"operation", "dispatch",
				"outcome", "failure",
				"worker", id,
				"event_type", string(event.Type),
				"order_id", event.OrderID,
				"error", err.Error(),
			)
		}
		cancel()
	}
}
