package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Varun-1606/quick-cart/internal/adapter/events"
	"github.com/Varun-1606/quick-cart/internal/adapter/storage"
	"github.com/Varun-1606/quick-cart/internal/core/domain"
	"github.com/Varun-1606/quick-cart/internal/port"
)

// Mock Clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Mock PasswordHasher
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (plainHasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return errors.New("mismatch")
	}
	return nil
}

// Mock TokenIssuer; tokens are "sid|userID".
type fakeTokens struct{}

func (fakeTokens) Issue(c port.SessionClaims) (string, error) {
	return c.SessionID + "|" + c.UserID, nil
}

func (fakeTokens) Parse(token string) (port.SessionClaims, error) {
	sid, userID, ok := strings.Cut(token, "|")
	if !ok {
		return port.SessionClaims{}, domain.ErrUnauthenticated
	}
	return port.SessionClaims{SessionID: sid, UserID: userID}, nil
}

// Mock PaymentGateway
type fakeGateway struct {
	mu      sync.Mutex
	err     error
	calls   int
	charged []decimal.Decimal
	// during runs while the payment session is open.
	during func()
}

func (g *fakeGateway) CreateSession(ctx context.Context, req port.PaymentRequest) (port.PaymentSession, error) {
	if g.during != nil {
		g.during()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.charged = append(g.charged, req.Amount)
	if g.err != nil {
		return port.PaymentSession{}, g.err
	}
	return port.PaymentSession{ID: "pay-1", URL: "https://pay.test/checkout/pay-1"}, nil
}

// Mock OrderRepository that fails on Create.
type failingOrderRepo struct {
	port.OrderRepository
}

func (failingOrderRepo) Create(ctx context.Context, o domain.Order) error {
	return errors.New("ledger unavailable")
}

// testEnv wires every service over the in-memory adapters.
type testEnv struct {
	clock     *fakeClock
	store     *storage.MemoryStateStore
	products  *storage.MemoryProductRepository
	users     *storage.MemoryUserRepository
	orders    *storage.MemoryOrderRepository
	carts     *storage.MemoryCartRepository
	publisher *events.MemoryPublisher
	gateway   *fakeGateway
	mirror    *StateMirror

	catalog   *CatalogService
	cart      *CartService
	order     *OrderService
	identity  *IdentityService
	checkout  *CheckoutService
	dashboard *DashboardService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		clock:     newFakeClock(),
		store:     storage.NewMemoryStateStore(),
		products:  storage.NewMemoryProductRepository(),
		users:     storage.NewMemoryUserRepository(),
		orders:    storage.NewMemoryOrderRepository(),
		carts:     storage.NewMemoryCartRepository(),
		publisher: events.NewMemoryPublisher(),
		gateway:   &fakeGateway{},
	}
	env.mirror = NewStateMirror(env.store, env.products, env.users, env.orders, env.carts)
	env.catalog = NewCatalogService(env.products, env.mirror)
	env.cart = NewCartService(env.carts, env.products, env.mirror)
	env.order = NewOrderService(env.orders, env.carts, env.publisher, env.mirror, env.clock)
	env.identity = NewIdentityService(env.users, plainHasher{}, fakeTokens{}, env.store, env.mirror, env.clock, time.Hour)
	env.checkout = NewCheckoutService(env.carts, env.order, env.gateway, env.store, time.Minute)
	env.dashboard = NewDashboardService(env.orders, env.products, env.users)

	ctx := context.Background()
	env.products.Upsert(ctx, domain.Product{ID: "p1", Name: "Fresh Milk", Description: "500ml", Price: decimal.NewFromInt(25), Image: "milk.jpg", Category: "Dairy", InStock: true})
	env.products.Upsert(ctx, domain.Product{ID: "p2", Name: "Brown Eggs", Description: "6 pcs", Price: decimal.NewFromInt(60), Image: "eggs.jpg", Category: "Dairy", InStock: true})
	env.products.Upsert(ctx, domain.Product{ID: "p3", Name: "Chicken Breast", Description: "500g", Price: decimal.NewFromInt(180), Image: "chicken.jpg", Category: "Meat", InStock: false})
	env.users.Upsert(ctx, domain.User{ID: "admin", Name: "Admin", Email: "admin@quickcart.com", PasswordHash: "hashed:admin123", Role: domain.RoleAdmin})
	return env
}

func (e *testEnv) admin() *domain.User {
	u, _ := e.users.Get(context.Background(), "admin")
	return &u
}

func (e *testEnv) register(email string) *domain.User {
	sess, err := e.identity.Register(context.Background(), RegisterRequest{Name: "Customer", Email: email, Password: "pw"})
	if err != nil {
		panic(err)
	}
	return &sess.User
}
