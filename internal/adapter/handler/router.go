package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Varun-1606/quick-cart/internal/core/service"
)

// Services bundles the use-cases the transport adapters expose.
type Services struct {
	Catalog   *service.CatalogService
	Cart      *service.CartService
	Orders    *service.OrderService
	Identity  *service.IdentityService
	Checkout  *service.CheckoutService
	Dashboard *service.DashboardService
	// Ready reports whether backing stores are reachable. Optional.
	Ready func(ctx context.Context) error
}

type Handler struct {
	catalog   *service.CatalogService
	cart      *service.CartService
	orders    *service.OrderService
	identity  *service.IdentityService
	checkout  *service.CheckoutService
	dashboard *service.DashboardService
	ready     func(ctx context.Context) error
}

func NewHTTPHandler(s Services) *Handler {
	return &Handler{
		catalog:   s.Catalog,
		cart:      s.Cart,
		orders:    s.Orders,
		identity:  s.Identity,
		checkout:  s.Checkout,
		dashboard: s.Dashboard,
		ready:     s.Ready,
	}
}

// NewRouter registers the storefront routes. Authorization is decided by
// the services; the router only resolves who is calling.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)

	r.Route("/v1", func(r chi.Router) {
		r.Use(h.identify)

		r.Post("/auth/register", h.register)
		r.Post("/auth/login", h.login)
		r.Post("/auth/logout", h.logout)
		r.Get("/auth/me", h.me)

		r.Get("/products", h.listProducts)
		r.Get("/products/{product_id}", h.getProduct)
		r.Get("/categories", h.listCategories)

		r.Get("/cart", h.getCart)
		r.Delete("/cart", h.clearCart)
		r.Post("/cart/items", h.addCartItem)
		r.Put("/cart/items/{product_id}", h.updateCartItem)
		r.Delete("/cart/items/{product_id}", h.removeCartItem)

		r.Post("/orders", h.placeOrder)
		r.Get("/orders", h.listMyOrders)
		r.Get("/orders/{order_id}", h.getOrder)
		r.Post("/checkout", h.checkoutCart)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/orders", h.listAllOrders)
			r.Post("/orders/sweep", h.sweepOrders)
			r.Post("/orders/{order_id}/approve", h.approveOrder)
			r.Post("/orders/{order_id}/reject", h.rejectOrder)
			r.Get("/dashboard", h.dashboardStats)

			r.Post("/products", h.createProduct)
			r.Put("/products/{product_id}", h.updateProduct)
			r.Delete("/products/{product_id}", h.deleteProduct)
			r.Post("/products/{product_id}/stock", h.setProductStock)
		})
	})

	return r
}
