package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Varun-1606/quick-cart/internal/core/domain"
)

// MemoryPublisher records events in order of publication.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []domain.OrderEvent
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, event domain.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *MemoryPublisher) Events() []domain.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.OrderEvent, len(p.events))
	copy(out, p.events)
	return out
}

// LoggingPublisher writes events to the structured log only.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, event domain.OrderEvent) error {
	p.logger.InfoContext(ctx, "order event",
		"module", "events",
		"layer", "adapter",
		"event_type", string(event.Type),
		"order_id", event.OrderID,
		"user_id", event.UserID,
		"status", string(event.Status),
		"total", event.Total.String(),
	)
	return nil
}
