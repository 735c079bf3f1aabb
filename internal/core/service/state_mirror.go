package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Varun-1606/quick-cart/internal/core/domain"
	"github.com/Varun-1606/quick-cart/internal/port"
)

const (
	keyUsers    = "users"
	keyProducts = "products"
)

func cartKey(userID string) string       { return "cart-" + userID }
func ordersKey(userID string) string     { return "orders-" + userID }
func sessionKey(sessionID string) string { return "session-" + sessionID }
func idempotencyKey(userID, key string) string {
	return fmt.Sprintf("idempotency-%s-%s", userID, key)
}

var errMalformedState = errors.New("malformed state")

// StateMirror copies repository contents into the state store after each
// mutation and reads them back on startup. Writes are best effort: failures
// are logged and never reach the caller. A nil *StateMirror is a no-op.
type StateMirror struct {
	// mu keeps snapshot and write together so an older snapshot never
	// lands after a newer one.
	mu       sync.Mutex
	store    port.StateStore
	products port.ProductRepository
	users    port.UserRepository
	orders   port.OrderRepository
	carts    port.CartRepository
}

func NewStateMirror(store port.StateStore, products port.ProductRepository, users port.UserRepository, orders port.OrderRepository, carts port.CartRepository) *StateMirror {
	return &StateMirror{
		store:    store,
		products: products,
		users:    users,
		orders:   orders,
		carts:    carts,
	}
}

func mirrorLogger() *slog.Logger {
	return slog.Default().With("module", "state_mirror", "layer", "service")
}

type productRecord struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	InStock     bool            `json:"inStock"`
}

type userRecord struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	Role         string `json:"role"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

type cartItemRecord struct {
	Product  productRecord `json:"product"`
	Quantity int           `json:"quantity"`
}

type orderRecord struct {
	ID          string           `json:"id"`
	UserID      string           `json:"userId"`
	Items       []cartItemRecord `json:"items"`
	Status      string           `json:"status"`
	CreatedAt   string           `json:"createdAt"`
	ApprovedAt  string           `json:"approvedAt,omitempty"`
	DeliveredAt string           `json:"deliveredAt,omitempty"`
	UpdatedAt   string           `json:"updatedAt,omitempty"`
	TotalAmount decimal.Decimal  `json:"totalAmount"`
}

type sessionRecord struct {
	UserID    string `json:"userId"`
	ExpiresAt string `json:"expiresAt"`
}

func (m *StateMirror) SaveProducts(ctx context.Context) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	products, err := m.products.List(ctx)
	if err != nil {
		m.logFailure(ctx, keyProducts, err)
		return
	}
	records := make([]productRecord, 0, len(products))
	for _, p := range products {
		records = append(records, toProductRecord(p))
	}
	m.write(ctx, keyProducts, records)
}

func (m *StateMirror) SaveUsers(ctx context.Context) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	users, err := m.users.List(ctx)
	if err != nil {
		m.logFailure(ctx, keyUsers, err)
		return
	}
	records := make([]userRecord, 0, len(users))
	for _, u := range users {
		records = append(records, userRecord{
			ID:           u.ID,
			Name:         u.Name,
			Email:        u.Email,
			PasswordHash: u.PasswordHash,
			Role:         string(u.Role),
			CreatedAt:    formatTime(u.CreatedAt),
		})
	}
	m.write(ctx, keyUsers, records)
}

func (m *StateMirror) SaveCart(ctx context.Context, userID string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cart, err := m.carts.Get(ctx, userID)
	if err != nil {
		m.logFailure(ctx, cartKey(userID), err)
		return
	}
	m.write(ctx, cartKey(userID), toCartItemRecords(cart.Items))
}

func (m *StateMirror) SaveOrders(ctx context.Context, userID string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	orders, err := m.orders.List(ctx, port.OrderQuery{UserID: userID})
	if err != nil {
		m.logFailure(ctx, ordersKey(userID), err)
		return
	}
	records := make([]orderRecord, 0, len(orders))
	for _, o := range orders {
		records = append(records, toOrderRecord(o))
	}
	m.write(ctx, ordersKey(userID), records)
}

// SaveAll writes every key the repositories currently hold. The server calls
// it once at boot so seeded data is persisted before the first mutation.
func (m *StateMirror) SaveAll(ctx context.Context) {
	if m == nil {
		return
	}
	m.SaveProducts(ctx)
	m.SaveUsers(ctx)
	users, err := m.users.List(ctx)
	if err != nil {
		m.logFailure(ctx, keyUsers, err)
		return
	}
	for _, u := range users {
		m.SaveOrders(ctx, u.ID)
		if !u.IsAdmin() {
			m.SaveCart(ctx, u.ID)
		}
	}
}

func (m *StateMirror) write(ctx context.Context, key string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		m.logFailure(ctx, key, err)
		return
	}
	if err := m.store.Set(ctx, key, payload); err != nil {
		m.logFailure(ctx, key, err)
	}
}

func (m *StateMirror) logFailure(ctx context.Context, key string, err error) {
	mirrorLogger().WarnContext(ctx, "state mirror write failed",
		"operation", "mirror_write",
		"outcome", "failure",
		"key", key,
		"error", err.Error(),
	)
}

// Restore loads mirrored state back into the repositories, reconciling by
// id. Malformed payloads are dropped and their key deleted. Only store
// failures are returned.
func (m *StateMirror) Restore(ctx context.Context) error {
	if m == nil {
		return nil
	}

	// A persisted catalog replaces the seeded one so deletions survive restarts.
	var products []productRecord
	found, err := m.read(ctx, keyProducts, &products)
	if err != nil {
		return err
	}
	if found {
		catalog := make([]domain.Product, 0, len(products))
		for _, rec := range products {
			if rec.ID == "" {
				continue
			}
			catalog = append(catalog, fromProductRecord(rec))
		}
		if err := m.products.ReplaceAll(ctx, catalog); err != nil {
			return fmt.Errorf("restore products: %w", err)
		}
	}

	var users []userRecord
	if _, err := m.read(ctx, keyUsers, &users); err != nil {
		return err
	}
	for _, rec := range users {
		u, ok := fromUserRecord(rec)
		if !ok {
			continue
		}
		if err := m.users.Upsert(ctx, u); err != nil {
			mirrorLogger().WarnContext(ctx, "skipping restored user",
				"operation", "restore",
				"user_id", u.ID,
				"error", err.Error(),
			)
		}
	}

	known, err := m.users.List(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	restoredOrders := 0
	for _, u := range known {
		if !u.IsAdmin() {
			var items []cartItemRecord
			if _, err := m.read(ctx, cartKey(u.ID), &items); err != nil {
				return err
			}
			if items != nil {
				if err := m.carts.Put(ctx, domain.Cart{UserID: u.ID, Items: fromCartItemRecords(items)}); err != nil {
					return fmt.Errorf("restore cart %s: %w", u.ID, err)
				}
			}
		}

		var orders []orderRecord
		if _, err := m.read(ctx, ordersKey(u.ID), &orders); err != nil {
			return err
		}
		decoded := make([]domain.Order, 0, len(orders))
		for _, rec := range orders {
			o, err := fromOrderRecord(rec)
			if err != nil || o.UserID != u.ID {
				decoded = nil
				m.discard(ctx, ordersKey(u.ID), errMalformedState)
				break
			}
			decoded = append(decoded, o)
		}
		for _, o := range decoded {
			if err := m.orders.Upsert(ctx, o); err != nil {
				return fmt.Errorf("restore order %s: %w", o.ID, err)
			}
			restoredOrders++
		}
	}

	mirrorLogger().InfoContext(ctx, "state restored",
		"operation", "restore",
		"outcome", "success",
		"products", len(products),
		"users", len(users),
		"orders", restoredOrders,
	)
	return nil
}

// read decodes key into v. A missing or malformed key leaves v untouched.
// read decodes key into v and reports whether a well-formed payload was found.
func (m *StateMirror) read(ctx context.Context, key string, v any) (bool, error) {
	payload, err := m.store.Get(ctx, key)
	if errors.Is(err, port.ErrStateNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		m.discard(ctx, key, err)
		return false, nil
	}
	return true, nil
}

func (m *StateMirror) discard(ctx context.Context, key string, cause error) {
	mirrorLogger().WarnContext(ctx, "discarding malformed state",
		"operation", "restore",
		"outcome", "discarded",
		"key", key,
		"error", cause.Error(),
	)
	if err := m.store.Delete(ctx, key); err != nil {
		m.logFailure(ctx, key, err)
	}
}

func toProductRecord(p domain.Product) productRecord {
	return productRecord{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Image:       p.Image,
		Category:    p.Category,
		InStock:     p.InStock,
	}
}

func fromProductRecord(r productRecord) domain.Product {
	return domain.Product{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Image:       r.Image,
		Category:    r.Category,
		InStock:     r.InStock,
	}
}

func fromUserRecord(r userRecord) (domain.User, bool) {
	role := domain.Role(r.Role)
	if r.ID == "" || r.Email == "" || (role != domain.RoleAdmin && role != domain.RoleCustomer) {
		return domain.User{}, false
	}
	createdAt, _ := parseTime(r.CreatedAt)
	return domain.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         role,
		CreatedAt:    createdAt,
	}, true
}

func toCartItemRecords(items []domain.CartItem) []cartItemRecord {
	out := make([]cartItemRecord, 0, len(items))
	for _, item := range items {
		out = append(out, cartItemRecord{Product: toProductRecord(item.Product), Quantity: item.Quantity})
	}
	return out
}

func fromCartItemRecords(records []cartItemRecord) []domain.CartItem {
	out := make([]domain.CartItem, 0, len(records))
	for _, rec := range records {
		if rec.Product.ID == "" || rec.Quantity <= 0 {
			continue
		}
		out = append(out, domain.CartItem{Product: fromProductRecord(rec.Product), Quantity: rec.Quantity})
	}
	return out
}

func toOrderRecord(o domain.Order) orderRecord {
	rec := orderRecord{
		ID:          o.ID,
		UserID:      o.UserID,
		Items:       toCartItemRecords(o.Items),
		Status:      string(o.Status),
		CreatedAt:   formatTime(o.CreatedAt),
		UpdatedAt:   formatTime(o.UpdatedAt),
		TotalAmount: o.Total,
	}
	if o.ApprovedAt != nil {
		rec.ApprovedAt = formatTime(*o.ApprovedAt)
	}
	if o.DeliveredAt != nil {
		rec.DeliveredAt = formatTime(*o.DeliveredAt)
	}
	return rec
}

func fromOrderRecord(r orderRecord) (domain.Order, error) {
	status, ok := domain.ParseOrderStatus(r.Status)
	if !ok || r.ID == "" {
		return domain.Order{}, errMalformedState
	}
	createdAt, err := parseTime(r.CreatedAt)
	if err != nil {
		return domain.Order{}, err
	}
	o := domain.Order{
		ID:        r.ID,
		UserID:    r.UserID,
		Items:     fromCartItemRecords(r.Items),
		Status:    status,
		Total:     r.TotalAmount,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if r.UpdatedAt != "" {
		if o.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
			return domain.Order{}, err
		}
	}
	if r.ApprovedAt != "" {
		t, err := parseTime(r.ApprovedAt)
		if err != nil {
			return domain.Order{}, err
		}
		o.ApprovedAt = &t
	}
	if r.DeliveredAt != "" {
		t, err := parseTime(r.DeliveredAt)
		if err != nil {
			return domain.Order{}, err
		}
		o.DeliveredAt = &t
	}
	if (status == domain.OrderStatusApproved || status == domain.OrderStatusDelivered) && o.ApprovedAt == nil {
		return domain.Order{}, errMalformedState
	}
	return o, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errMalformedState
	}
	return time.Parse(time.RFC3339Nano, raw)
}
