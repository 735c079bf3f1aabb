package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Varun-1606/quick-cart/internal/core/domain"
	"github.com/Varun-1606/quick-cart/internal/port"
)

const DefaultIdempotencyTTL = 10 * time.Minute

type CheckoutResult struct {
	Order      domain.Order
	PaymentID  string
	PaymentURL string
}

// CheckoutService wraps order placement with the simulated payment step.
type CheckoutService struct {
	carts   port.CartRepository
	orders  *OrderService
	gateway port.PaymentGateway
	store   port.StateStore
	ttl     time.Duration
}

func NewCheckoutService(carts port.CartRepository, orders *OrderService, gateway port.PaymentGateway, store port.StateStore, idempotencyTTL time.Duration) *CheckoutService {
	if idempotencyTTL <= 0 {
		idempotencyTTL = DefaultIdempotencyTTL
	}
	return &CheckoutService{
		carts:   carts,
		orders:  orders,
		gateway: gateway,
		store:   store,
		ttl:     idempotencyTTL,
	}
}

func checkoutLogger() *slog.Logger {
	return slog.Default().With("module", "checkout", "layer", "service")
}

// Checkout creates a payment session for the cart total and places the
// order. A non-empty key may only be used once per user within the TTL.
func (s *CheckoutService) Checkout(ctx context.Context, actor *domain.User, key string) (CheckoutResult, error) {
	if err := domain.Authorize(actor, domain.CapPlaceOrder); err != nil {
		return CheckoutResult{}, err
	}

	cart, err := s.carts.Get(ctx, actor.ID)
	if err != nil {
		return CheckoutResult{}, err
	}
	if cart.Empty() {
		return CheckoutResult{}, domain.ErrEmptyCart
	}

	claimed := ""
	if key != "" {
		claimed = idempotencyKey(actor.ID, key)
		ok, err := s.store.SetIfAbsent(ctx, claimed, []byte(formatTime(s.orders.Now())), s.ttl)
		if err != nil {
			return CheckoutResult{}, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return CheckoutResult{}, domain.ErrDuplicateRequest
		}
	}

	payment, err := s.gateway.CreateSession(ctx, port.PaymentRequest{UserID: actor.ID, Amount: cart.Total()})
	if err != nil {
		s.release(ctx, claimed)
		return CheckoutResult{}, fmt.Errorf("create payment session: %w", err)
	}

	// The order must match the cart that was charged, not whatever the cart
	// holds after the payment delay.
	order, err := s.orders.PlaceCharged(ctx, actor, cart)
	if err != nil {
		s.release(ctx, claimed)
		return CheckoutResult{}, err
	}

	checkoutLogger().InfoContext(ctx, "checkout completed",
		"operation", "checkout",
		"outcome", "success",
		"order_id", order.ID,
		"payment_id", payment.ID,
	)
	return CheckoutResult{Order: order, PaymentID: payment.ID, PaymentURL: payment.URL}, nil
}

// release frees an idempotency key so a failed checkout can be retried.
func (s *CheckoutService) release(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		checkoutLogger().WarnContext(ctx, "failed to release idempotency key",
			"operation", "checkout",
			"key", key,
			"error", err.Error(),
		)
	}
}
