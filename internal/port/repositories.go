package port

import (
	"context"

	"github.com/Varun-1606/quick-cart/internal/core/domain"
)

type ProductRepository interface {
	// List returns products in catalog order.
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (domain.Product, error)
	// Upsert inserts or replaces a product by id.
	Upsert(ctx context.Context, p domain.Product) error
	// Mutate applies fn to the stored product atomically and returns the result.
	Mutate(ctx context.Context, id string, fn func(*domain.Product) error) (domain.Product, error)
	Delete(ctx context.Context, id string) error
	// ReplaceAll swaps the whole catalog for products, keeping their order.
	ReplaceAll(ctx context.Context, products []domain.Product) error
}

type UserRepository interface {
	// Create fails with domain.ErrEmailTaken when the email is already registered.
	Create(ctx context.Context, u domain.User) error
	Get(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	// Upsert reconciles a user by id, used when restoring mirrored state.
	Upsert(ctx context.Context, u domain.User) error
}

type OrderQuery struct {
	UserID string
	Status domain.OrderStatus
}

type OrderRepository interface {
	Create(ctx context.Context, o domain.Order) error
	Get(ctx context.Context, id string) (domain.Order, error)
	// List returns matching orders oldest first.
	List(ctx context.Context, q OrderQuery) ([]domain.Order, error)
	// Mutate applies fn to the stored order atomically; the order is left
	// untouched when fn returns an error.
	Mutate(ctx context.Context, id string, fn func(*domain.Order) error) (domain.Order, error)
	Upsert(ctx context.Context, o domain.Order) error
}

type CartRepository interface {
	// Get returns the user's cart, empty if none was stored.
	Get(ctx context.Context, userID string) (domain.Cart, error)
	// Mutate applies fn to the user's cart atomically; the cart is left
	// untouched when fn returns an error.
	Mutate(ctx context.Context, userID string, fn func(*domain.Cart) error) (domain.Cart, error)
	Put(ctx context.Context, c domain.Cart) error
}
