package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Varun-1606/quick-cart/internal/core/domain"
)

func TestCheckout_Success(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	customer := env.register("a@x.com")
	env.cart.Add(ctx, customer, "p1", 2)

	res, err := env.checkout.Checkout(ctx, customer, "key-1")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if res.PaymentURL == "" || res.Order.Status != domain.OrderStatusPending {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestCheckout_DuplicateKey(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	customer := env.register("a@x.com")
	env.cart.Add(ctx, customer, "p1", 1)
	env.checkout.Checkout(ctx, customer, "key-1")

	env.cart.Add(ctx, customer, "p1", 1)
	if _, err := env.checkout.Checkout(ctx, customer, "key-1"); !errors.Is(err, domain.ErrDuplicateRequest) {
		t.Errorf("expected ErrDuplicateRequest, got %v", err)
	}
	if env.gateway.calls != 1 {
		t.Errorf("expected a single payment session, got %d", env.gateway.calls)
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	env := newTestEnv()
	customer := env.register("a@x.com")
	if _, err := env.checkout.Checkout(context.Background(), customer, ""); !errors.Is(err, domain.ErrEmptyCart) {
		t.Errorf("expected ErrEmptyCart, got %v", err)
	}
}

func TestCheckout_PaymentFailureReleasesKey(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	customer := env.register("a@x.com")
	env.cart.Add(ctx, customer, "p1", 1)

	env.gateway.err = errors.New("gateway down")
	if _, err := env.checkout.Checkout(ctx, customer, "key-1"); err == nil {
		t.Fatal("expected error")
	}
	view, _ := env.cart.Get(ctx, customer)
	if view.TotalItems != 1 {
		t.Errorf("expected cart untouched, got %d items", view.TotalItems)
	}

	env.gateway.err = nil
	if _, err := env.checkout.Checkout(ctx, customer, "key-1"); err != nil {
		t.Errorf("expected retry with the same key to succeed, got %v", err)
	}
}

func TestCheckout_CartChangedDuringPayment(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	customer := env.register("a@x.com")
	env.cart.Add(ctx, customer, "p1", 1)

	env.gateway.during = func() {
		env.cart.Add(ctx, customer, "p2", 5)
	}
	if _, err := env.checkout.Checkout(ctx, customer, "key-1"); !errors.Is(err, domain.ErrCartChanged) {
		t.Fatalf("expected ErrCartChanged, got %v", err)
	}
	if mine, _ := env.order.ListMine(ctx, customer); len(mine) != 0 {
		t.Errorf("expected no order placed, got %d", len(mine))
	}
	view, _ := env.cart.Get(ctx, customer)
	if view.TotalItems != 6 {
		t.Errorf("expected cart kept with 6 items, got %d", view.TotalItems)
	}

	// The key is released, so a retry charges and orders the same total.
	env.gateway.during = nil
	res, err := env.checkout.Checkout(ctx, customer, "key-1")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	charged := env.gateway.charged[len(env.gateway.charged)-1]
	if !res.Order.Total.Equal(charged) || !charged.Equal(decimal.NewFromInt(325)) {
		t.Errorf("expected order total to equal charged 325, got order %s charged %s", res.Order.Total, charged)
	}
}
