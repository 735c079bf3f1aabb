package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Varun-1606/quick-cart/internal/core/domain"
	"github.com/Varun-1606/quick-cart/internal/port"
)

var errQuantityTooLarge = fmt.Errorf("%w: a cart line holds at most %d units", domain.ErrInvalidInput, domain.MaxLineQuantity)

// CartView is a cart with its derived totals.
type CartView struct {
	Items       []domain.CartItem
	TotalItems  int
	TotalAmount decimal.Decimal
}

func newCartView(c domain.Cart) CartView {
	return CartView{
		Items:       c.Items,
		TotalItems:  c.TotalItems(),
		TotalAmount: c.Total(),
	}
}

type CartService struct {
	carts    port.CartRepository
	products port.ProductRepository
	mirror   *StateMirror
}

func NewCartService(carts port.CartRepository, products port.ProductRepository, mirror *StateMirror) *CartService {
	return &CartService{carts: carts, products: products, mirror: mirror}
}

func (s *CartService) Get(ctx context.Context, actor *domain.User) (CartView, error) {
	if err := domain.Authorize(actor, domain.CapManageCart); err != nil {
		return CartView{}, err
	}
	cart, err := s.carts.Get(ctx, actor.ID)
	if err != nil {
		return CartView{}, err
	}
	return newCartView(cart), nil
}

// Add puts quantity units of a product into the cart. A zero quantity means one.
func (s *CartService) Add(ctx context.Context, actor *domain.User, productID string, quantity int) (CartView, error) {
	if err := domain.Authorize(actor, domain.CapManageCart); err != nil {
		return CartView{}, err
	}
	if quantity < 0 {
		return CartView{}, fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidInput)
	}
	if quantity == 0 {
		quantity = 1
	}
	if quantity > domain.MaxLineQuantity {
		return CartView{}, errQuantityTooLarge
	}

	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return CartView{}, err
	}
	if !product.InStock {
		return CartView{}, domain.ErrOutOfStock
	}

	cart, err := s.carts.Mutate(ctx, actor.ID, func(c *domain.Cart) error {
		if c.Quantity(product.ID) > domain.MaxLineQuantity-quantity {
			return errQuantityTooLarge
		}
		c.Add(product, quantity)
		return nil
	})
	if err != nil {
		return CartView{}, err
	}
	s.mirror.SaveCart(ctx, actor.ID)
	return newCartView(cart), nil
}

// Remove drops a line from the cart. Removing an absent line is a no-op.
func (s *CartService) Remove(ctx context.Context, actor *domain.User, productID string) (CartView, error) {
	return s.mutate(ctx, actor, func(c *domain.Cart) {
		c.Remove(productID)
	})
}

// UpdateQuantity sets a line's quantity; zero or less removes the line.
func (s *CartService) UpdateQuantity(ctx context.Context, actor *domain.User, productID string, quantity int) (CartView, error) {
	if err := domain.Authorize(actor, domain.CapManageCart); err != nil {
		return CartView{}, err
	}
	if quantity > domain.MaxLineQuantity {
		return CartView{}, errQuantityTooLarge
	}
	return s.mutate(ctx, actor, func(c *domain.Cart) {
		c.SetQuantity(productID, quantity)
	})
}

func (s *CartService) Clear(ctx context.Context, actor *domain.User) error {
	_, err := s.mutate(ctx, actor, func(c *domain.Cart) {
		c.Clear()
	})
	return err
}

func (s *CartService) mutate(ctx context.Context, actor *domain.User, fn func(*domain.Cart)) (CartView, error) {
	if err := domain.Authorize(actor, domain.CapManageCart); err != nil {
		return CartView{}, err
	}
	cart, err := s.carts.Mutate(ctx, actor.ID, func(c *domain.Cart) error {
		fn(c)
		return nil
	})
	if err != nil {
		return CartView{}, err
	}
	s.mirror.SaveCart(ctx, actor.ID)
	return newCartView(cart), nil
}
