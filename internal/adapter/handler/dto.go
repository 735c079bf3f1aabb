package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Varun-1606/quick-cart/internal/core/domain"
	"github.com/Varun-1606/quick-cart/internal/core/service"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type productRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	InStock     bool            `json:"in_stock"`
}

func (r productRequest) input() domain.ProductInput {
	return domain.ProductInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Image:       r.Image,
		Category:    r.Category,
		InStock:     r.InStock,
	}
}

type stockRequest struct {
	InStock bool `json:"in_stock"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role)}
}

type sessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

func toSessionResponse(s service.Session) sessionResponse {
	return sessionResponse{Token: s.Token, ExpiresAt: s.ExpiresAt, User: toUserResponse(s.User)}
}

type productResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	InStock     bool            `json:"in_stock"`
}

func toProductResponse(p domain.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Image:       p.Image,
		Category:    p.Category,
		InStock:     p.InStock,
	}
}

func toProductResponses(products []domain.Product) []productResponse {
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	return out
}

type cartItemResponse struct {
	Product  productResponse `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

func toCartItemResponses(items []domain.CartItem) []cartItemResponse {
	out := make([]cartItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, cartItemResponse{
			Product:  toProductResponse(item.Product),
			Quantity: item.Quantity,
			Subtotal: item.Subtotal(),
		})
	}
	return out
}

type cartResponse struct {
	Items       []cartItemResponse `json:"items"`
	TotalItems  int                `json:"total_items"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
}

func toCartResponse(v service.CartView) cartResponse {
	return cartResponse{
		Items:       toCartItemResponses(v.Items),
		TotalItems:  v.TotalItems,
		TotalAmount: v.TotalAmount,
	}
}

type orderResponse struct {
	ID          string             `json:"id"`
	UserID      string             `json:"user_id"`
	Items       []cartItemResponse `json:"items"`
	Status      string             `json:"status"`
	Total       decimal.Decimal    `json:"total_amount"`
	CreatedAt   time.Time          `json:"created_at"`
	ApprovedAt  *time.Time         `json:"approved_at,omitempty"`
	DeliveredAt *time.Time         `json:"delivered_at,omitempty"`
	// DeliveryRemainingSeconds is only set while an order is in delivery.
	DeliveryRemainingSeconds *int64 `json:"delivery_remaining_seconds,omitempty"`
}

func toOrderResponse(o domain.Order, now time.Time) orderResponse {
	resp := orderResponse{
		ID:          o.ID,
		UserID:      o.UserID,
		Items:       toCartItemResponses(o.Items),
		Status:      string(o.Status),
		Total:       o.Total,
		CreatedAt:   o.CreatedAt,
		ApprovedAt:  o.ApprovedAt,
		DeliveredAt: o.DeliveredAt,
	}
	if o.Status == domain.OrderStatusApproved {
		remaining := int64(o.DeliveryRemaining(now).Seconds())
		resp.DeliveryRemainingSeconds = &remaining
	}
	return resp
}

func toOrderResponses(orders []domain.Order, now time.Time) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o, now))
	}
	return out
}

type dashboardResponse struct {
	OrdersByStatus map[string]int  `json:"orders_by_status"`
	TotalOrders    int             `json:"total_orders"`
	Products       int             `json:"products"`
	InStock        int             `json:"in_stock"`
	OutOfStock     int             `json:"out_of_stock"`
	Customers      int             `json:"customers"`
	Revenue        decimal.Decimal `json:"revenue"`
}

func toDashboardResponse(s service.DashboardStats) dashboardResponse {
	byStatus := make(map[string]int, len(s.OrdersByStatus))
	for st, n := range s.OrdersByStatus {
		byStatus[string(st)] = n
	}
	return dashboardResponse{
		OrdersByStatus: byStatus,
		TotalOrders:    s.TotalOrders,
		Products:       s.Products,
		InStock:        s.InStock,
		OutOfStock:     s.OutOfStock,
		Customers:      s.Customers,
		Revenue:        s.Revenue,
	}
}
