package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Varun-1606/quick-cart/internal/core/domain"
	"github.com/Varun-1606/quick-cart/internal/port"
)

// MemoryProductRepository keeps the catalog in insertion order with an id index.
type MemoryProductRepository struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]domain.Product
}

func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{byID: make(map[string]domain.Product)}
}

func (r *MemoryProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Product, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out, nil
}

func (r *MemoryProductRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, nil
}

func (r *MemoryProductRepository) Upsert(ctx context.Context, p domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[p.ID]; !ok {
		r.order = append(r.order, p.ID)
	}
	r.byID[p.ID] = p
	return nil
}

func (r *MemoryProductRepository) Mutate(ctx context.Context, id string, fn func(*domain.Product) error) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	if err := fn(&p); err != nil {
		return domain.Product{}, err
	}
	p.ID = id
	r.byID[id] = p
	return p, nil
}

func (r *MemoryProductRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.byID, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MemoryProductRepository) ReplaceAll(ctx context.Context, products []domain.Product) error {
	order := make([]string, 0, len(products))
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		if _, dup := byID[p.ID]; !dup {
			order = append(order, p.ID)
		}
		byID[p.ID] = p
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = order
	r.byID = byID
	return nil
}

// MemoryUserRepository indexes users by id and by email.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	order   []string
	byID    map[string]domain.User
	byEmail map[string]string
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryUserRepository) Create(ctx context.Context, u domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[u.Email]; taken {
		return domain.ErrEmailTaken
	}
	if _, exists := r.byID[u.ID]; exists {
		return domain.ErrInvalidInput
	}
	r.put(u)
	return nil
}

func (r *MemoryUserRepository) Upsert(ctx context.Context, u domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ownerID, taken := r.byEmail[u.Email]; taken && ownerID != u.ID {
		return domain.ErrEmailTaken
	}
	if prev, ok := r.byID[u.ID]; ok {
		delete(r.byEmail, prev.Email)
	}
	r.put(u)
	return nil
}

func (r *MemoryUserRepository) put(u domain.User) {
	if _, ok := r.byID[u.ID]; !ok {
		r.order = append(r.order, u.ID)
	}
	r.byID[u.ID] = u
	r.byEmail[u.Email] = u.ID
}

func (r *MemoryUserRepository) Get(ctx context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryUserRepository) List(ctx context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.User, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out, nil
}

// MemoryOrderRepository is the order ledger. Orders are never deleted.
type MemoryOrderRepository struct {
	mu     sync.RWMutex
	seq    int64
	byID   map[string]*orderEntry
	byUser map[string][]string
}

type orderEntry struct {
	seq   int64
	order domain.Order
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		byID:   make(map[string]*orderEntry),
		byUser: make(map[string][]string),
	}
}

func (r *MemoryOrderRepository) Create(ctx context.Context, o domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[o.ID]; exists {
		return domain.ErrInvalidInput
	}
	r.insert(o)
	return nil
}

func (r *MemoryOrderRepository) insert(o domain.Order) {
	r.seq++
	r.byID[o.ID] = &orderEntry{seq: r.seq, order: o.Clone()}
	r.byUser[o.UserID] = append(r.byUser[o.UserID], o.ID)
}

func (r *MemoryOrderRepository) Upsert(ctx context.Context, o domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byID[o.ID]
	if !ok {
		r.insert(o)
		return nil
	}
	if entry.order.UserID != o.UserID {
		return domain.ErrInvalidInput
	}
	entry.order = o.Clone()
	return nil
}

func (r *MemoryOrderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.byID[id]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return entry.order.Clone(), nil
}

func (r *MemoryOrderRepository) List(ctx context.Context, q port.OrderQuery) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entries []*orderEntry
	if q.UserID != "" {
		for _, id := range r.byUser[q.UserID] {
			entries = append(entries, r.byID[id])
		}
	} else {
		entries = make([]*orderEntry, 0, len(r.byID))
		for _, entry := range r.byID {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make([]domain.Order, 0, len(entries))
	for _, entry := range entries {
		if q.Status != "" && entry.order.Status != q.Status {
			continue
		}
		out = append(out, entry.order.Clone())
	}
	return out, nil
}

func (r *MemoryOrderRepository) Mutate(ctx context.Context, id string, fn func(*domain.Order) error) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byID[id]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	working := entry.order.Clone()
	if err := fn(&working); err != nil {
		return domain.Order{}, err
	}
	working.ID = id
	working.UserID = entry.order.UserID
	entry.order = working
	return working.Clone(), nil
}

// MemoryCartRepository holds one cart per customer.
type MemoryCartRepository struct {
	mu     sync.Mutex
	byUser map[string]domain.Cart
}

func NewMemoryCartRepository() *MemoryCartRepository {
	return &MemoryCartRepository{byUser: make(map[string]domain.Cart)}
}

func (r *MemoryCartRepository) Get(ctx context.Context, userID string) (domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.byUser[userID]
	if !ok {
		return domain.Cart{UserID: userID}, nil
	}
	return cart.Clone(), nil
}

func (r *MemoryCartRepository) Mutate(ctx context.Context, userID string, fn func(*domain.Cart) error) (domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	working := domain.Cart{UserID: userID}
	if cart, ok := r.byUser[userID]; ok {
		working = cart.Clone()
	}
	if err := fn(&working); err != nil {
		return domain.Cart{}, err
	}
	working.UserID = userID
	r.byUser[userID] = working
	return working.Clone(), nil
}

func (r *MemoryCartRepository) Put(ctx context.Context, c domain.Cart) error {
	if strings.TrimSpace(c.UserID) == "" {
		return domain.ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byUser[c.UserID] = c.Clone()
	return nil
}
