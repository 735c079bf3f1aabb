package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Image       string
	Category    string
	InStock     bool
}

// ProductInput is the editable part of a product.
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Image       string
	Category    string
	InStock     bool
}

func (in ProductInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" ||
		strings.TrimSpace(in.Description) == "" ||
		strings.TrimSpace(in.Image) == "" ||
		strings.TrimSpace(in.Category) == "" {
		return fmt.Errorf("%w: name, description, image and category are required", ErrInvalidInput)
	}
	if in.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	return nil
}

// Apply overwrites the editable fields in place; the id is kept.
func (p *Product) Apply(in ProductInput) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = strings.TrimSpace(in.Description)
	p.Price = in.Price
	p.Image = strings.TrimSpace(in.Image)
	p.Category = strings.TrimSpace(in.Category)
	p.InStock = in.InStock
}

// Matches is a case-insensitive substring search over name, description
// and category.
func (p Product) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Description), q) ||
		strings.Contains(strings.ToLower(p.Category), q)
}

type ProductFilter struct {
	Query       string
	Category    string
	InStockOnly bool
}

func (f ProductFilter) Accepts(p Product) bool {
	if f.InStockOnly && !p.InStock {
		return false
	}
	if f.Category != "" && !strings.EqualFold(f.Category, p.Category) {
		return false
	}
	return p.Matches(f.Query)
}
