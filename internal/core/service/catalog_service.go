package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Varun-1606/quick-cart/internal/core/domain"
	"github.com/Varun-1606/quick-cart/internal/port"
)

type CatalogService struct {
	products port.ProductRepository
	mirror   *StateMirror
	newID    func() string
}

func NewCatalogService(products port.ProductRepository, mirror *StateMirror) *CatalogService {
	return &CatalogService{products: products, mirror: mirror, newID: uuid.NewString}
}

func catalogLogger() *slog.Logger {
	return slog.Default().With("module", "catalog", "layer", "service")
}

// List returns the products accepted by filter, in catalog order.
func (s *CatalogService) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if filter.Accepts(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (domain.Product, error) {
	return s.products.Get(ctx, id)
}

// Categories returns the distinct categories in first-seen order.
func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, p := range products {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, p.Category)
	}
	return out, nil
}

func (s *CatalogService) Create(ctx context.Context, actor *domain.User, in domain.ProductInput) (domain.Product, error) {
	if err := domain.Authorize(actor, domain.CapManageCatalog); err != nil {
		return domain.Product{}, err
	}
	if err := in.Validate(); err != nil {
		return domain.Product{}, err
	}

	product := domain.Product{ID: s.newID()}
	product.Apply(in)
	if err := s.products.Upsert(ctx, product); err != nil {
		return domain.Product{}, err
	}
	s.mirror.SaveProducts(ctx)

	catalogLogger().InfoContext(ctx, "product created",
		"operation", "create_product",
		"outcome", "success",
		"product_id", product.ID,
	)
	return product, nil
}

func (s *CatalogService) Update(ctx context.Context, actor *domain.User, id string, in domain.ProductInput) (domain.Product, error) {
	if err := domain.Authorize(actor, domain.CapManageCatalog); err != nil {
		return domain.Product{}, err
	}
	if err := in.Validate(); err != nil {
		return domain.Product{}, err
	}
	return s.mutate(ctx, id, func(p *domain.Product) { p.Apply(in) })
}

func (s *CatalogService) SetInStock(ctx context.Context, actor *domain.User, id string, inStock bool) (domain.Product, error) {
	if err := domain.Authorize(actor, domain.CapManageCatalog); err != nil {
		return domain.Product{}, err
	}
	return s.mutate(ctx, id, func(p *domain.Product) { p.InStock = inStock })
}

// Delete removes a product from the catalog. Existing carts and orders keep
// their snapshot of it.
func (s *CatalogService) Delete(ctx context.Context, actor *domain.User, id string) error {
	if err := domain.Authorize(actor, domain.CapManageCatalog); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.mirror.SaveProducts(ctx)
	catalogLogger().InfoContext(ctx, "product deleted",
		"operation", "delete_product",
		"outcome", "success",
		"product_id", id,
	)
	return nil
}

func (s *CatalogService) mutate(ctx context.Context, id string, fn func(*domain.Product)) (domain.Product, error) {
	product, err := s.products.Mutate(ctx, id, func(p *domain.Product) error {
		fn(p)
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	s.mirror.SaveProducts(ctx)
	return product, nil
}
