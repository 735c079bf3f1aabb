package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Varun-1606/quick-cart/internal/core/domain"
	"github.com/Varun-1606/quick-cart/internal/port"
)

type DashboardStats struct {
	OrdersByStatus map[domain.OrderStatus]int
	TotalOrders    int
	Products       int
	InStock        int
	OutOfStock     int
	Customers      int
	// Revenue only counts delivered orders.
	Revenue decimal.Decimal
}

type DashboardService struct {
	orders   port.OrderRepository
	products port.ProductRepository
	users    port.UserRepository
}

func NewDashboardService(orders port.OrderRepository, products port.ProductRepository, users port.UserRepository) *DashboardService {
	return &DashboardService{orders: orders, products: products, users: users}
}

func (s *DashboardService) Stats(ctx context.Context, actor *domain.User) (DashboardStats, error) {
	if err := domain.Authorize(actor, domain.CapViewDashboard); err != nil {
		return DashboardStats{}, err
	}

	stats := DashboardStats{
		OrdersByStatus: make(map[domain.OrderStatus]int, len(domain.OrderStatuses)),
		Revenue:        decimal.Zero,
	}
	for _, st := range domain.OrderStatuses {
		stats.OrdersByStatus[st] = 0
	}

	orders, err := s.orders.List(ctx, port.OrderQuery{})
	if err != nil {
		return DashboardStats{}, err
	}
	for _, o := range orders {
		stats.TotalOrders++
		stats.OrdersByStatus[o.Status]++
		if o.Status == domain.OrderStatusDelivered {
			stats.Revenue = stats.Revenue.Add(o.Total)
		}
	}

	products, err := s.products.List(ctx)
	if err != nil {
		return DashboardStats{}, err
	}
	for _, p := range products {
		stats.Products++
		if p.InStock {
			stats.InStock++
		} else {
			stats.OutOfStock++
		}
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return DashboardStats{}, err
	}
	for _, u := range users {
		if u.Role == domain.RoleCustomer {
			stats.Customers++
		}
	}
	return stats, nil
}
