package port

import (
	"context"

	"github.com/Varun-1606/quick-cart/internal/core/domain"
)

type EventPublisher interface {
	Publish(ctx context.Context, event domain.OrderEvent) error
}
