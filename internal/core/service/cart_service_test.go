package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Varun-1606/quick-cart/internal/core/domain"
)

func TestCartAdd(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	customer := env.register("a@x.com")

	env.cart.Add(ctx, customer, "p1", 2)
	view, err := env.cart.Add(ctx, customer, "p2", 1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !view.TotalAmount.Equal(decimal.NewFromInt(110)) {
		t.Errorf("expected total 110, got %s", view.TotalAmount)
	}
	if view.TotalItems != 3 {
		t.Errorf("expected 3 items, got %d", view.TotalItems)
	}

	// Adding an existing product increments its line
	view, _ = env.cart.Add(ctx, customer, "p1", 0)
	if len(view.Items) != 2 || view.Items[0].Quantity != 3 {
		t.Errorf("expected milk quantity 3 on the same line, got %+v", view.Items)
	}
}

func TestCartAdd_Rejections(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	customer := env.register("a@x.com")

	tests := []struct {
		name      string
		actor     *domain.User
		productID string
		quantity  int
		want      error
	}{
		{"anonymous", nil, "p1", 1, domain.ErrUnauthenticated},
		{"admin", env.admin(), "p1", 1, domain.ErrForbidden},
		{"negative quantity", customer, "p1", -1, domain.ErrInvalidInput},
		{"unknown product", customer, "nope", 1, domain.ErrNotFound},
		{"out of stock", customer, "p3", 1, domain.ErrOutOfStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.cart.Add(ctx, tt.actor, tt.productID, tt.quantity); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCartUpdateRemoveClear(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	customer := env.register("a@x.com")
	env.cart.Add(ctx, customer, "p1", 1)
	env.cart.Add(ctx, customer, "p2", 1)

	view, _ := env.cart.UpdateQuantity(ctx, customer, "p1", 4)
	if view.TotalItems != 5 {
		t.Errorf("expected 5 items, got %d", view.TotalItems)
	}

	view, _ = env.cart.UpdateQuantity(ctx, customer, "p1", 0)
	if len(view.Items) != 1 || view.Items[0].Product.ID != "p2" {
		t.Errorf("expected zero quantity to remove the line, got %+v", view.Items)
	}

	view, _ = env.cart.Remove(ctx, customer, "p2")
	if len(view.Items) != 0 {
		t.Errorf("expected empty cart, got %+v", view.Items)
	}

	env.cart.Add(ctx, customer, "p1", 1)
	if err := env.cart.Clear(ctx, customer); err != nil {
		t.Fatalf("clear: %v", err)
	}
	view, _ = env.cart.Get(ctx, customer)
	if len(view.Items) != 0 || !view.TotalAmount.IsZero() {
		t.Errorf("expected cleared cart, got %+v", view)
	}
}

func TestCartKeepsPriceSnapshot(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	customer := env.register("a@x.com")
	env.cart.Add(ctx, customer, "p1", 2)

	env.catalog.Update(ctx, env.admin(), "p1", domain.ProductInput{
		Name: "Fresh Milk", Description: "500ml", Price: decimal.NewFromInt(99), Image: "milk.jpg", Category: "Dairy", InStock: true,
	})

	view, _ := env.cart.Get(ctx, customer)
	if !view.TotalAmount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected snapshot total 50, got %s", view.TotalAmount)
	}
}

func TestCartAdd_QuantityCap(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	customer := env.register("a@x.com")

	if _, err := env.cart.Add(ctx, customer, "p1", domain.MaxLineQuantity-1); err != nil {
		t.Fatalf("add: %v", err)
	}
	// An increment that would overflow int must not wrap the quantity.
	maxInt := int(^uint(0) >> 1)
	for _, qty := range []int{2, maxInt} {
		if _, err := env.cart.Add(ctx, customer, "p1", qty); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput adding %d, got %v", qty, err)
		}
	}
	if _, err := env.cart.UpdateQuantity(ctx, customer, "p1", domain.MaxLineQuantity+1); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput on update, got %v", err)
	}

	view, _ := env.cart.Get(ctx, customer)
	if view.TotalItems != domain.MaxLineQuantity-1 {
		t.Errorf("expected quantity unchanged at %d, got %d", domain.MaxLineQuantity-1, view.TotalItems)
	}
	if _, err := env.cart.Add(ctx, customer, "p1", 1); err != nil {
		t.Errorf("expected filling the line to the cap to succeed, got %v", err)
	}
}
