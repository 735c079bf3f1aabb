package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Varun-1606/quick-cart/internal/adapter/events"
	"github.com/Varun-1606/quick-cart/internal/adapter/security"
	"github.com/Varun-1606/quick-cart/internal/adapter/storage"
	"github.com/Varun-1606/quick-cart/internal/core/domain"
	"github.com/Varun-1606/quick-cart/internal/core/service"
	"github.com/Varun-1606/quick-cart/internal/port"
)

const (
	totalCustomers   = 50
	approvalsPerItem = 3
	concurrentSweeps = 5
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func main() {
	ctx := context.Background()
	clock := &manualClock{now: time.Now().UTC()}

	// Redis is optional; without it the state mirror stays in process.
	var store port.StateStore = storage.NewMemoryStateStore()
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb, err := storage.ConnectRedis(ctx, addr)
		if err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer rdb.Close()
		store = storage.NewRedisAdapter(rdb, "quickcart-stress:")
	}

	products := storage.NewMemoryProductRepository()
	users := storage.NewMemoryUserRepository()
	orders := storage.NewMemoryOrderRepository()
	carts := storage.NewMemoryCartRepository()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	tokens, err := security.NewEphemeralJWTIssuer()
	if err != nil {
		log.Fatalf("failed to create token issuer: %v", err)
	}
	if err := service.Seed(ctx, products, users, orders, hasher, clock.Now()); err != nil {
		log.Fatalf("failed to seed: %v", err)
	}

	publisher := events.NewMemoryPublisher()
	dispatcher := events.NewDispatcher(publisher, 4, 1024)

	mirror := service.NewStateMirror(store, products, users, orders, carts)
	cartService := service.NewCartService(carts, products, mirror)
	orderService := service.NewOrderService(orders, carts, dispatcher, mirror, clock)
	identityService := service.NewIdentityService(users, hasher, tokens, store, mirror, clock, 0)

	admin, err := identityService.Login(ctx, "admin@quickcart.com", "admin123")
	if err != nil {
		log.Fatalf("failed to login admin: %v", err)
	}

	// Phase 1: customers place orders concurrently
	var placed atomic.Int32
	var placeFailed atomic.Int32
	orderIDs := make(chan string, totalCustomers)

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < totalCustomers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			session, err := identityService.Register(ctx, service.RegisterRequest{
				Name:     fmt.Sprintf("Customer %d", n),
				Email:    fmt.Sprintf("stress-%d@example.com", n),
				Password: "secret",
			})
			if err != nil {
				placeFailed.Add(1)
				return
			}
			if _, err := cartService.Add(ctx, &session.User, "1", 2); err != nil {
				placeFailed.Add(1)
				return
			}
			order, err := orderService.PlaceOrder(ctx, &session.User)
			if err != nil {
				placeFailed.Add(1)
				return
			}
			placed.Add(1)
			orderIDs <- order.ID
		}(i)
	}
	wg.Wait()
	close(orderIDs)

	// Phase 2: racing approvals, only one per order may win
	var approved atomic.Int32
	var rejectedRaces atomic.Int32
	for id := range orderIDs {
		for j := 0; j < approvalsPerItem; j++ {
			wg.Add(1)
			go func(orderID string) {
				defer wg.Done()
				_, err := orderService.Approve(ctx, &admin.User, orderID)
				switch {
				case err == nil:
					approved.Add(1)
				case errors.Is(err, domain.ErrInvalidTransition):
					rejectedRaces.Add(1)
				}
			}(id)
		}
	}
	wg.Wait()

	// Phase 3: racing sweeps once the delivery window has passed
	clock.Advance(domain.DeliveryWindow + time.Second)
	var delivered atomic.Int32
	for i := 0; i < concurrentSweeps; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := orderService.Sweep(ctx, clock.Now())
			if err != nil {
				log.Printf("sweep failed: %v", err)
				return
			}
			delivered.Add(int32(len(out)))
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)
	dispatcher.Close()

	// One seeded order is already approved and becomes due in the same sweep.
	expectedDelivered := int32(totalCustomers + 1)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Customers:        %d\n", totalCustomers)
	fmt.Printf("Orders Placed:    %d\n", placed.Load())
	fmt.Printf("Place Failures:   %d\n", placeFailed.Load())
	fmt.Printf("Approvals Won:    %d\n", approved.Load())
	fmt.Printf("Approvals Lost:   %d\n", rejectedRaces.Load())
	fmt.Printf("Delivered:        %d\n", delivered.Load())
	fmt.Printf("Events Published: %d\n", len(publisher.Events()))
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if placed.Load() == totalCustomers && placeFailed.Load() == 0 {
		fmt.Printf("PASS: All %d orders placed\n", totalCustomers)
	} else {
		fmt.Printf("FAIL: Expected %d orders, got %d (%d failures)\n", totalCustomers, placed.Load(), placeFailed.Load())
	}

	if approved.Load() == totalCustomers && rejectedRaces.Load() == int32(totalCustomers*(approvalsPerItem-1)) {
		fmt.Println("PASS: Each order approved exactly once")
	} else {
		fmt.Printf("FAIL: Expected %d approvals, got %d\n", totalCustomers, approved.Load())
	}

	if delivered.Load() == expectedDelivered {
		fmt.Printf("PASS: %d orders delivered exactly once\n", expectedDelivered)
	} else {
		fmt.Printf("FAIL: Expected %d deliveries, got %d\n", expectedDelivered, delivered.Load())
	}

	// Every customer cart must be empty after checkout
	for _, u := range mustListUsers(ctx, users) {
		cart, _ := carts.Get(ctx, u.ID)
		if !cart.Empty() {
			fmt.Printf("FAIL: cart of %s still holds %d items\n", u.Email, cart.TotalItems())
			return
		}
	}
	fmt.Println("PASS: All carts emptied")
}

func mustListUsers(ctx context.Context, users port.UserRepository) []domain.User {
	list, err := users.List(ctx)
	if err != nil {
		log.Fatalf("failed to list users: %v", err)
	}
	return list
}
