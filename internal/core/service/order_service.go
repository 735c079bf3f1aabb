package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Varun-1606/quick-cart/internal/core/domain"
	"github.com/Varun-1606/quick-cart/internal/port"
)

const DefaultSweepInterval = 30 * time.Second

type OrderService struct {
	orders    port.OrderRepository
	carts     port.CartRepository
	publisher port.EventPublisher
	mirror    *StateMirror
	clock     port.Clock
	newID     func() string
}

func NewOrderService(orders port.OrderRepository, carts port.CartRepository, publisher port.EventPublisher, mirror *StateMirror, clock port.Clock) *OrderService {
	if clock == nil {
		clock = port.SystemClock{}
	}
	return &OrderService{
		orders:    orders,
		carts:     carts,
		publisher: publisher,
		mirror:    mirror,
		clock:     clock,
		newID:     uuid.NewString,
	}
}

func orderLogger() *slog.Logger {
	return slog.Default().With("module", "orders", "layer", "service")
}

// PlaceOrder turns the actor's cart into a pending order and empties the cart.
func (s *OrderService) PlaceOrder(ctx context.Context, actor *domain.User) (domain.Order, error) {
	return s.place(ctx, actor, nil)
}

// PlaceCharged places the order only if the cart still holds exactly the
// lines in charged; otherwise it fails with ErrCartChanged and leaves the
// cart untouched.
func (s *OrderService) PlaceCharged(ctx context.Context, actor *domain.User, charged domain.Cart) (domain.Order, error) {
	return s.place(ctx, actor, &charged)
}

func (s *OrderService) place(ctx context.Context, actor *domain.User, charged *domain.Cart) (domain.Order, error) {
	if err := domain.Authorize(actor, domain.CapPlaceOrder); err != nil {
		return domain.Order{}, err
	}

	now := s.clock.Now()
	var order domain.Order
	_, err := s.carts.Mutate(ctx, actor.ID, func(c *domain.Cart) error {
		if c.Empty() {
			return domain.ErrEmptyCart
		}
		if charged != nil && !c.SameLines(*charged) {
			return domain.ErrCartChanged
		}
		order = domain.NewOrder(s.newID(), *c, now)
		c.Clear()
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	if err := s.orders.Create(ctx, order); err != nil {
		// Rollback: put the items back into the cart
		_, rbErr := s.carts.Mutate(ctx, actor.ID, func(c *domain.Cart) error {
			for _, item := range order.Items {
				c.Add(item.Product, item.Quantity)
			}
			return nil
		})
		if rbErr != nil {
			orderLogger().ErrorContext(ctx, "CRITICAL: failed to restore cart after order failure",
				"operation", "place_order",
				"user_id", actor.ID,
				"error", rbErr.Error(),
			)
		}
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}

	s.mirror.SaveCart(ctx, actor.ID)
	s.mirror.SaveOrders(ctx, actor.ID)
	s.publish(ctx, domain.EventOrderPlaced, order, now)

	orderLogger().InfoContext(ctx, "order placed",
		"operation", "place_order",
		"outcome", "success",
		"order_id", order.ID,
		"user_id", order.UserID,
		"total", order.Total.String(),
	)
	return order, nil
}

func (s *OrderService) Approve(ctx context.Context, actor *domain.User, orderID string) (domain.Order, error) {
	return s.review(ctx, actor, orderID, domain.EventOrderApproved, (*domain.Order).Approve)
}

func (s *OrderService) Reject(ctx context.Context, actor *domain.User, orderID string) (domain.Order, error) {
	return s.review(ctx, actor, orderID, domain.EventOrderRejected, (*domain.Order).Reject)
}

func (s *OrderService) review(ctx context.Context, actor *domain.User, orderID string, event domain.OrderEventType, apply func(*domain.Order, time.Time) error) (domain.Order, error) {
	if err := domain.Authorize(actor, domain.CapReviewOrders); err != nil {
		return domain.Order{}, err
	}

	now := s.clock.Now()
	order, err := s.orders.Mutate(ctx, orderID, func(o *domain.Order) error {
		return apply(o, now)
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.mirror.SaveOrders(ctx, order.UserID)
	s.publish(ctx, event, order, now)

	orderLogger().InfoContext(ctx, "order reviewed",
		"operation", string(event),
		"outcome", "success",
		"order_id", order.ID,
		"admin_id", actor.ID,
	)
	return order, nil
}

// Sweep delivers every approved order whose delivery window elapsed by now.
// It is idempotent: an order already delivered is skipped.
func (s *OrderService) Sweep(ctx context.Context, now time.Time) ([]domain.Order, error) {
	approved, err := s.orders.List(ctx, port.OrderQuery{Status: domain.OrderStatusApproved})
	if err != nil {
		return nil, fmt.Errorf("list approved orders: %w", err)
	}

	var delivered []domain.Order
	touched := make(map[string]bool)
	for _, candidate := range approved {
		if !candidate.DueForDelivery(now) {
			continue
		}
		order, err := s.orders.Mutate(ctx, candidate.ID, func(o *domain.Order) error {
			return o.Deliver(now)
		})
		if err != nil {
			// Another sweep got there first.
			if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrDeliveryNotDue) {
				continue
			}
			return delivered, fmt.Errorf("deliver order %s: %w", candidate.ID, err)
		}
		delivered = append(delivered, order)
		touched[order.UserID] = true
	}

	for userID := range touched {
		s.mirror.SaveOrders(ctx, userID)
	}
	for _, o := range delivered {
		s.publish(ctx, domain.EventOrderDelivered, o, now)
	}
	return delivered, nil
}

// TriggerSweep runs a sweep on behalf of an admin at the current clock time.
func (s *OrderService) TriggerSweep(ctx context.Context, actor *domain.User) ([]domain.Order, error) {
	if err := domain.Authorize(actor, domain.CapReviewOrders); err != nil {
		return nil, err
	}
	return s.Sweep(ctx, s.clock.Now())
}

// RunDeliverySweeper sweeps on every tick until ctx is cancelled.
func (s *OrderService) RunDeliverySweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	orderLogger().Info("delivery sweeper started", "operation", "sweep", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			orderLogger().Info("delivery sweeper stopped", "operation", "sweep")
			return
		case <-ticker.C:
			delivered, err := s.Sweep(ctx, s.clock.Now())
			if err != nil {
				orderLogger().ErrorContext(ctx, "sweep failed",
					"operation", "sweep",
					"outcome", "failure",
					"error", err.Error(),
				)
				continue
			}
			if len(delivered) > 0 {
				orderLogger().InfoContext(ctx, "orders delivered",
					"operation", "sweep",
					"outcome", "success",
					"count", len(delivered),
				)
			}
		}
	}
}

// ListMine returns the actor's orders, newest first.
func (s *OrderService) ListMine(ctx context.Context, actor *domain.User) ([]domain.Order, error) {
	if err := domain.Authorize(actor, domain.CapViewOwnOrders); err != nil {
		return nil, err
	}
	orders, err := s.orders.List(ctx, port.OrderQuery{UserID: actor.ID})
	if err != nil {
		return nil, err
	}
	newestFirst(orders)
	return orders, nil
}

// List returns every order, optionally filtered by status, newest first.
func (s *OrderService) List(ctx context.Context, actor *domain.User, status domain.OrderStatus) ([]domain.Order, error) {
	if err := domain.Authorize(actor, domain.CapReviewOrders); err != nil {
		return nil, err
	}
	orders, err := s.orders.List(ctx, port.OrderQuery{Status: status})
	if err != nil {
		return nil, err
	}
	newestFirst(orders)
	return orders, nil
}

// Get returns a single order. Customers only see their own orders; anything
// else reads as not found.
func (s *OrderService) Get(ctx context.Context, actor *domain.User, orderID string) (domain.Order, error) {
	if actor == nil {
		return domain.Order{}, domain.ErrUnauthenticated
	}
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if actor.IsAdmin() {
		return order, nil
	}
	if err := domain.Authorize(actor, domain.CapViewOwnOrders); err != nil {
		return domain.Order{}, err
	}
	if order.UserID != actor.ID {
		return domain.Order{}, domain.ErrNotFound
	}
	return order, nil
}

// Now exposes the service clock so callers can render delivery countdowns.
func (s *OrderService) Now() time.Time {
	return s.clock.Now()
}

// newestFirst orders by placement time; ledger order breaks ties.
func newestFirst(orders []domain.Order) {
	slices.Reverse(orders)
	slices.SortStableFunc(orders, func(a, b domain.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

func (s *OrderService) publish(ctx context.Context, t domain.OrderEventType, o domain.Order, at time.Time) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, domain.NewOrderEvent(t, o, at)); err != nil {
		orderLogger().WarnContext(ctx, "event publish failed",
			"operation", "publish",
			"outcome", "failure",
			"event_type", string(t),
			"order_id", o.ID,
			"error", err.Error(),
		)
	}
}
