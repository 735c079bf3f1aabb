package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Varun-1606/quick-cart/internal/core/domain"
	"github.com/Varun-1606/quick-cart/internal/core/service"
)

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"state": "ok"})
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			logOperationError(r.Context(), "readyz", http.StatusServiceUnavailable, "NOT_READY", err)
			writeError(w, http.StatusServiceUnavailable, "NOT_READY", "dependencies unavailable")
			return
		}
	}
	writeSuccess(w, http.StatusOK, map[string]string{"state": "ready"})
}

// Auth

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "register", err)
		return
	}
	sess, err := h.identity.Register(r.Context(), service.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "register", err)
		return
	}
	writeSuccess(w, http.StatusCreated, toSessionResponse(sess))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "login", err)
		return
	}
	sess, err := h.identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeMappedError(r.Context(), w, "login", err)
		return
	}
	writeSuccess(w, http.StatusOK, toSessionResponse(sess))
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	token, ok := tokenFromContext(r.Context())
	if !ok {
		writeMappedError(r.Context(), w, "logout", domain.ErrUnauthenticated)
		return
	}
	if err := h.identity.Logout(r.Context(), token); err != nil {
		writeMappedError(r.Context(), w, "logout", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"state": "logged_out"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	if actor == nil {
		writeMappedError(r.Context(), w, "me", domain.ErrUnauthenticated)
		return
	}
	writeSuccess(w, http.StatusOK, toUserResponse(*actor))
}

// Catalog

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ProductFilter{
		Query:    q.Get("q"),
		Category: q.Get("category"),
	}
	if raw := q.Get("in_stock"); raw != "" {
		inStock, err := strconv.ParseBool(raw)
		if err != nil {
			writeValidationError(r.Context(), w, "list_products", fmt.Errorf("invalid in_stock %q", raw))
			return
		}
		filter.InStockOnly = inStock
	}
	products, err := h.catalog.List(r.Context(), filter)
	if err != nil {
		writeMappedError(r.Context(), w, "list_products", err)
		return
	}
	writeSuccess(w, http.StatusOK, toProductResponses(products))
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.Get(r.Context(), chi.URLParam(r, "product_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "get_product", err)
		return
	}
	writeSuccess(w, http.StatusOK, toProductResponse(product))
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		writeMappedError(r.Context(), w, "list_categories", err)
		return
	}
	if categories == nil {
		categories = []string{}
	}
	writeSuccess(w, http.StatusOK, categories)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_product", err)
		return
	}
	product, err := h.catalog.Create(r.Context(), actorFromContext(r.Context()), req.input())
	if err != nil {
		writeMappedError(r.Context(), w, "create_product", err)
		return
	}
	writeSuccess(w, http.StatusCreated, toProductResponse(product))
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "update_product", err)
		return
	}
	product, err := h.catalog.Update(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "product_id"), req.input())
	if err != nil {
		writeMappedError(r.Context(), w, "update_product", err)
		return
	}
	writeSuccess(w, http.StatusOK, toProductResponse(product))
}

func (h *Handler) setProductStock(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "set_product_stock", err)
		return
	}
	product, err := h.catalog.SetInStock(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "product_id"), req.InStock)
	if err != nil {
		writeMappedError(r.Context(), w, "set_product_stock", err)
		return
	}
	writeSuccess(w, http.StatusOK, toProductResponse(product))
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "product_id")); err != nil {
		writeMappedError(r.Context(), w, "delete_product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Cart

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.cart.Get(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		writeMappedError(r.Context(), w, "get_cart", err)
		return
	}
	writeSuccess(w, http.StatusOK, toCartResponse(view))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Clear(r.Context(), actorFromContext(r.Context())); err != nil {
		writeMappedError(r.Context(), w, "clear_cart", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "add_cart_item", err)
		return
	}
	if strings.TrimSpace(req.ProductID) == "" {
		writeValidationError(r.Context(), w, "add_cart_item", fmt.Errorf("product_id is required"))
		return
	}
	view, err := h.cart.Add(r.Context(), actorFromContext(r.Context()), req.ProductID, req.Quantity)
	if err != nil {
		writeMappedError(r.Context(), w, "add_cart_item", err)
		return
	}
	writeSuccess(w, http.StatusOK, toCartResponse(view))
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "update_cart_item", err)
		return
	}
	view, err := h.cart.UpdateQuantity(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "product_id"), req.Quantity)
	if err != nil {
		writeMappedError(r.Context(), w, "update_cart_item", err)
		return
	}
	writeSuccess(w, http.StatusOK, toCartResponse(view))
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	view, err := h.cart.Remove(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "product_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "remove_cart_item", err)
		return
	}
	writeSuccess(w, http.StatusOK, toCartResponse(view))
}

// Orders

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.PlaceOrder(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		writeMappedError(r.Context(), w, "place_order", err)
		return
	}
	writeSuccess(w, http.StatusCreated, toOrderResponse(order, h.orders.Now()))
}

func (h *Handler) checkoutCart(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	res, err := h.checkout.Checkout(r.Context(), actorFromContext(r.Context()), key)
	if err != nil {
		writeMappedError(r.Context(), w, "checkout", err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{
		"order":       toOrderResponse(res.Order, h.orders.Now()),
		"payment_id":  res.PaymentID,
		"payment_url": res.PaymentURL,
	})
}

func (h *Handler) listMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListMine(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		writeMappedError(r.Context(), w, "list_my_orders", err)
		return
	}
	writeSuccess(w, http.StatusOK, toOrderResponses(orders, h.orders.Now()))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "order_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "get_order", err)
		return
	}
	writeSuccess(w, http.StatusOK, toOrderResponse(order, h.orders.Now()))
}

// Admin

func (h *Handler) listAllOrders(w http.ResponseWriter, r *http.Request) {
	var status domain.OrderStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, ok := domain.ParseOrderStatus(raw)
		if !ok {
			writeValidationError(r.Context(), w, "list_orders", fmt.Errorf("unknown status %q", raw))
			return
		}
		status = parsed
	}
	orders, err := h.orders.List(r.Context(), actorFromContext(r.Context()), status)
	if err != nil {
		writeMappedError(r.Context(), w, "list_orders", err)
		return
	}
	writeSuccess(w, http.StatusOK, toOrderResponses(orders, h.orders.Now()))
}

func (h *Handler) approveOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Approve(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "order_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "approve_order", err)
		return
	}
	writeSuccess(w, http.StatusOK, toOrderResponse(order, h.orders.Now()))
}

func (h *Handler) rejectOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Reject(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "order_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "reject_order", err)
		return
	}
	writeSuccess(w, http.StatusOK, toOrderResponse(order, h.orders.Now()))
}

func (h *Handler) sweepOrders(w http.ResponseWriter, r *http.Request) {
	delivered, err := h.orders.TriggerSweep(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		writeMappedError(r.Context(), w, "sweep_orders", err)
		return
	}
	writeSuccess(w, http.StatusOK, toOrderResponses(delivered, h.orders.Now()))
}

func (h *Handler) dashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.Stats(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		writeMappedError(r.Context(), w, "dashboard", err)
		return
	}
	writeSuccess(w, http.StatusOK, toDashboardResponse(stats))
}
