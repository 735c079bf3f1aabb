package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Varun-1606/quick-cart/internal/core/domain"
	"github.com/Varun-1606/quick-cart/internal/port"
)

type seedUser struct {
	id, name, email, password string
	role                      domain.Role
}

var seedUsers = []seedUser{
	{"1", "Admin User", "admin@quickcart.com", "admin123", domain.RoleAdmin},
	{"2", "Test Customer", "customer@example.com", "customer123", domain.RoleCustomer},
}

const unsplash = "https://images.unsplash.com/"

var seedProducts = []domain.Product{
	{ID: "1", Name: "Fresh Milk", Description: "Farm-fresh milk, 500ml packet", Price: decimal.NewFromInt(25), Image: unsplash + "photo-1563636619-e9143da7973b", Category: "Dairy", InStock: true},
	{ID: "2", Name: "Brown Eggs (6 pcs)", Description: "Organic brown eggs, pack of 6", Price: decimal.NewFromInt(60), Image: unsplash + "photo-1587486913049-53fc88980cfc", Category: "Dairy", InStock: true},
	{ID: "3", Name: "Whole Wheat Bread", Description: "Freshly baked whole wheat bread, 400g", Price: decimal.NewFromInt(35), Image: unsplash + "photo-1509440159596-0249088772ff", Category: "Bakery", InStock: true},
	{ID: "4", Name: "Tomatoes", Description: "Farm-fresh tomatoes, 500g", Price: decimal.NewFromInt(30), Image: unsplash + "photo-1582284540020-8acbe03f4924", Category: "Vegetables", InStock: true},
	{ID: "5", Name: "Bananas", Description: "Ripe yellow bananas, 6 pieces", Price: decimal.NewFromInt(40), Image: unsplash + "photo-1603833665858-e61d17a86224", Category: "Fruits", InStock: true},
	{ID: "6", Name: "Chicken Breast", Description: "Boneless chicken breast, 500g", Price: decimal.NewFromInt(180), Image: unsplash + "photo-1604503468506-a8da13d82791", Category: "Meat", InStock: false},
	{ID: "7", Name: "Rice Basmati", Description: "Premium basmati rice, 1kg", Price: decimal.NewFromInt(120), Image: unsplash + "photo-1586201375761-83865001e31c", Category: "Grains", InStock: true},
	{ID: "8", Name: "Potato Chips", Description: "Crispy salted potato chips, 100g", Price: decimal.NewFromInt(30), Image: unsplash + "photo-1566478989037-eec170784d0b", Category: "Snacks", InStock: true},
}

// Seed loads the demo catalog, accounts and order history. Seeded orders
// are placed relative to now: one pending, one approved and already past its
// delivery window, one delivered.
func Seed(ctx context.Context, products port.ProductRepository, users port.UserRepository, orders port.OrderRepository, hasher port.PasswordHasher, now time.Time) error {
	for _, p := range seedProducts {
		if err := products.Upsert(ctx, p); err != nil {
			return fmt.Errorf("seed product %s: %w", p.ID, err)
		}
	}

	for _, su := range seedUsers {
		hash, err := hasher.Hash(su.password)
		if err != nil {
			return fmt.Errorf("hash seed password: %w", err)
		}
		u := domain.User{
			ID:           su.id,
			Name:         su.name,
			Email:        su.email,
			PasswordHash: hash,
			Role:         su.role,
			CreatedAt:    now,
		}
		if err := users.Upsert(ctx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", su.id, err)
		}
	}

	history, err := seedOrders(now)
	if err != nil {
		return err
	}
	for _, o := range history {
		if err := orders.Upsert(ctx, o); err != nil {
			return fmt.Errorf("seed order %s: %w", o.ID, err)
		}
	}
	return nil
}

func seedOrders(now time.Time) ([]domain.Order, error) {
	at := func(minutesAgo int) time.Time {
		return now.Add(-time.Duration(minutesAgo) * time.Minute)
	}
	build := func(id string, placed time.Time, lines ...domain.CartItem) domain.Order {
		return domain.NewOrder(id, domain.Cart{UserID: "2", Items: lines}, placed)
	}
	line := func(i, qty int) domain.CartItem {
		return domain.CartItem{Product: seedProducts[i], Quantity: qty}
	}

	pending := build("1", at(30), line(0, 2), line(2, 1))

	approved := build("2", at(15), line(4, 3), line(7, 2))
	if err := approved.Approve(at(12)); err != nil {
		return nil, fmt.Errorf("seed order %s: %w", approved.ID, err)
	}

	delivered := build("3", at(60), line(3, 4), line(1, 1))
	if err := delivered.Approve(at(55)); err != nil {
		return nil, fmt.Errorf("seed order %s: %w", delivered.ID, err)
	}
	if err := delivered.Deliver(at(55).Add(domain.DeliveryWindow)); err != nil {
		return nil, fmt.Errorf("seed order %s: %w", delivered.ID, err)
	}

	return []domain.Order{pending, approved, delivered}, nil
}
