package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Varun-1606/quick-cart/internal/adapter/events"
	"github.com/Varun-1606/quick-cart/internal/adapter/storage"
	"github.com/Varun-1606/quick-cart/internal/core/domain"
	"github.com/Varun-1606/quick-cart/internal/port"
)

type integrationEnv struct {
	redis   *redis.Client
	mysql   *sql.DB
	cache   *storage.RedisAdapter
	db      *storage.MySQLAdapter
	cleanup func()
}

func setupIntegrationEnv(t *testing.T) *integrationEnv {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/quickcart?parseTime=true"
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	mysqlAdapter := storage.NewMySQLAdapter(db)
	if err := mysqlAdapter.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	return &integrationEnv{
		redis: rdb,
		mysql: db,
		cache: storage.NewRedisAdapter(rdb, "quickcart-it-"+uuid.NewString()+":"),
		db:    mysqlAdapter,
		cleanup: func() {
			rdb.Close()
			db.Close()
		},
	}
}

type storefront struct {
	products *storage.MemoryProductRepository
	users    *storage.MemoryUserRepository
	orders   *storage.MemoryOrderRepository
	carts    *storage.MemoryCartRepository
	mirror   *StateMirror
	cart     *CartService
	order    *OrderService
	identity *IdentityService
	checkout *CheckoutService
}

// newStorefront wires the services over store, as the server does at boot.
func newStorefront(t *testing.T, store port.StateStore, clock port.Clock, seed bool) *storefront {
	t.Helper()
	ctx := context.Background()
	sf := &storefront{
		products: storage.NewMemoryProductRepository(),
		users:    storage.NewMemoryUserRepository(),
		orders:   storage.NewMemoryOrderRepository(),
		carts:    storage.NewMemoryCartRepository(),
	}
	if seed {
		if err := Seed(ctx, sf.products, sf.users, sf.orders, plainHasher{}, clock.Now()); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	sf.mirror = NewStateMirror(store, sf.products, sf.users, sf.orders, sf.carts)
	if err := sf.mirror.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	sf.mirror.SaveAll(ctx)

	sf.cart = NewCartService(sf.carts, sf.products, sf.mirror)
	sf.order = NewOrderService(sf.orders, sf.carts, events.NewMemoryPublisher(), sf.mirror, clock)
	sf.identity = NewIdentityService(sf.users, plainHasher{}, fakeTokens{}, store, sf.mirror, clock, time.Hour)
	sf.checkout = NewCheckoutService(sf.carts, sf.order, &fakeGateway{}, store, time.Minute)
	return sf
}

func TestIntegration_RestartRestoresFromRedis(t *testing.T) {
	env := setupIntegrationEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	clock := newFakeClock()
	first := newStorefront(t, env.cache, clock, true)

	admin, err := first.identity.Login(ctx, "admin@quickcart.com", "admin123")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}

	var wg sync.WaitGroup
	placed := make(chan string, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := first.identity.Register(ctx, RegisterRequest{Name: "Customer", Email: uuid.NewString() + "@example.com", Password: "pw"})
			if err != nil {
				t.Errorf("register: %v", err)
				return
			}
			if _, err := first.cart.Add(ctx, &sess.User, "1", 1); err != nil {
				t.Errorf("add: %v", err)
				return
			}
			order, err := first.order.PlaceOrder(ctx, &sess.User)
			if err != nil {
				t.Errorf("place: %v", err)
				return
			}
			placed <- order.ID
		}()
	}
	wg.Wait()
	close(placed)

	var approvedID string
	for id := range placed {
		if approvedID == "" {
			if _, err := first.order.Approve(ctx, &admin.User, id); err != nil {
				t.Fatalf("approve: %v", err)
			}
			approvedID = id
		}
	}

	// Restart without seeding; everything comes back from Redis
	second := newStorefront(t, env.cache, clock, false)
	all, err := second.orders.List(ctx, port.OrderQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	// 3 seeded orders plus 10 placed
	if len(all) != 13 {
		t.Errorf("expected 13 restored orders, got %d", len(all))
	}
	got, err := second.orders.Get(ctx, approvedID)
	if err != nil || got.Status != domain.OrderStatusApproved {
		t.Errorf("expected approved order after restart, got %+v %v", got, err)
	}

	// Sessions survive the restart as well
	if _, err := second.identity.Authenticate(ctx, admin.Token); err != nil {
		t.Errorf("expected admin session to survive restart: %v", err)
	}
}

func TestIntegration_CheckoutIdempotencyOnMySQL(t *testing.T) {
	env := setupIntegrationEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	sf := newStorefront(t, env.db, newFakeClock(), true)

	sess, err := sf.identity.Register(ctx, RegisterRequest{Name: "Customer", Email: uuid.NewString() + "@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := sf.cart.Add(ctx, &sess.User, "2", 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	key := uuid.NewString()
	var successCount, duplicateCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sf.checkout.Checkout(ctx, &sess.User, key)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrDuplicateRequest), errors.Is(err, domain.ErrEmptyCart):
				duplicateCount.Add(1)
			default:
				t.Errorf("unexpected checkout error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("expected exactly 1 checkout, got %d", successCount.Load())
	}
	if duplicateCount.Load() != 9 {
		t.Errorf("expected 9 rejected duplicates, got %d", duplicateCount.Load())
	}

	mine, _ := sf.order.ListMine(ctx, &sess.User)
	if len(mine) != 1 {
		t.Errorf("expected 1 order for customer, got %d", len(mine))
	}

	env.db.Delete(ctx, idempotencyKey(sess.User.ID, key))
}
