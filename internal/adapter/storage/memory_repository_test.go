package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Varun-1606/quick-cart/internal/core/domain"
	"github.com/Varun-1606/quick-cart/internal/port"
)

func TestProductRepository_KeepsCatalogOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryProductRepository()

	for _, id := range []string{"3", "1", "2"} {
		if err := repo.Upsert(ctx, domain.Product{ID: id, Name: "p" + id}); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}
	// Replacing must not move the product.
	repo.Upsert(ctx, domain.Product{ID: "1", Name: "renamed"})

	list, _ := repo.List(ctx)
	if len(list) != 3 {
		t.Fatalf("expected 3 products, got %d", len(list))
	}
	if list[0].ID != "3" || list[1].ID != "1" || list[2].ID != "2" {
		t.Errorf("unexpected order: %v %v %v", list[0].ID, list[1].ID, list[2].ID)
	}
	if list[1].Name != "renamed" {
		t.Errorf("expected renamed product, got %s", list[1].Name)
	}

	if err := repo.Delete(ctx, "1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := repo.Get(ctx, "1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, "1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestProductRepository_ReplaceAll(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryProductRepository()
	repo.Upsert(ctx, domain.Product{ID: "1", Name: "milk"})
	repo.Upsert(ctx, domain.Product{ID: "2", Name: "eggs"})

	if err := repo.ReplaceAll(ctx, []domain.Product{{ID: "9", Name: "tea"}, {ID: "2", Name: "brown eggs"}}); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	if _, err := repo.Get(ctx, "1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected product 1 gone after replace, got %v", err)
	}
	list, _ := repo.List(ctx)
	if len(list) != 2 || list[0].ID != "9" || list[1].Name != "brown eggs" {
		t.Errorf("unexpected catalog after replace: %+v", list)
	}
}

func TestProductRepository_MutateErrorLeavesProduct(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryProductRepository()
	repo.Upsert(ctx, domain.Product{ID: "1", Name: "Milk", Price: decimal.NewFromInt(25)})

	boom := errors.New("boom")
	_, err := repo.Mutate(ctx, "1", func(p *domain.Product) error {
		p.Name = "changed"
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	p, _ := repo.Get(ctx, "1")
	if p.Name != "Milk" {
		t.Errorf("failed mutation leaked: %s", p.Name)
	}
}

func TestUserRepository_EmailUnique(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	if err := repo.Create(ctx, domain.User{ID: "1", Email: "a@x.com"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	err := repo.Create(ctx, domain.User{ID: "2", Email: "a@x.com"})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}

	users, _ := repo.List(ctx)
	if len(users) != 1 {
		t.Errorf("expected 1 user, got %d", len(users))
	}

	u, err := repo.GetByEmail(ctx, "a@x.com")
	if err != nil || u.ID != "1" {
		t.Errorf("expected user 1, got %+v %v", u, err)
	}
	if _, err := repo.GetByEmail(ctx, "A@x.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("email lookup must be exact, got %v", err)
	}
}

func TestUserRepository_ConcurrentRegistrationSameEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := repo.Create(ctx, domain.User{ID: fmt.Sprintf("u-%d", i), Email: "same@x.com"}); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("expected exactly 1 registration, got %d", created)
	}
}

func TestOrderRepository_ListAndMutate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryOrderRepository()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, user := range []string{"u1", "u2", "u1"} {
		o := domain.Order{ID: fmt.Sprintf("o%d", i+1), UserID: user, Status: domain.OrderStatusPending, CreatedAt: now}
		if err := repo.Create(ctx, o); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	mine, _ := repo.List(ctx, port.OrderQuery{UserID: "u1"})
	if len(mine) != 2 || mine[0].ID != "o1" || mine[1].ID != "o3" {
		t.Fatalf("unexpected orders for u1: %+v", mine)
	}

	approved, err := repo.Mutate(ctx, "o2", func(o *domain.Order) error { return o.Approve(now) })
	if err != nil {
		t.Fatalf("mutate failed: %v", err)
	}
	if approved.Status != domain.OrderStatusApproved {
		t.Errorf("expected approved, got %s", approved.Status)
	}

	pending, _ := repo.List(ctx, port.OrderQuery{Status: domain.OrderStatusPending})
	if len(pending) != 2 {
		t.Errorf("expected 2 pending orders, got %d", len(pending))
	}

	// A rejected transition leaves the stored order as it was.
	_, err = repo.Mutate(ctx, "o2", func(o *domain.Order) error { return o.Reject(now) })
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	stored, _ := repo.Get(ctx, "o2")
	if stored.Status != domain.OrderStatusApproved {
		t.Errorf("expected approved to stick, got %s", stored.Status)
	}

	if _, err := repo.Mutate(ctx, "missing", func(*domain.Order) error { return nil }); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestOrderRepository_ConcurrentApproveRejectSingleWinner(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryOrderRepository()
	repo.Create(ctx, domain.Order{ID: "o1", UserID: "u1", Status: domain.OrderStatusPending})

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Mutate(ctx, "o1", func(o *domain.Order) error {
				if i%2 == 0 {
					return o.Approve(time.Now())
				}
				return o.Reject(time.Now())
			})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly 1 successful transition, got %d", wins)
	}
}

func TestCartRepository_ScopedPerUser(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCartRepository()
	milk := domain.Product{ID: "1", Price: decimal.NewFromInt(25)}

	repo.Mutate(ctx, "u1", func(c *domain.Cart) error {
		c.Add(milk, 2)
		return nil
	})

	other, _ := repo.Get(ctx, "u2")
	if !other.Empty() || other.UserID != "u2" {
		t.Errorf("expected empty cart for u2, got %+v", other)
	}

	mine, _ := repo.Get(ctx, "u1")
	if mine.TotalItems() != 2 {
		t.Errorf("expected 2 items, got %d", mine.TotalItems())
	}

	// Returned carts are copies.
	mine.Items[0].Quantity = 50
	again, _ := repo.Get(ctx, "u1")
	if again.Items[0].Quantity != 2 {
		t.Error("repository leaked internal cart storage")
	}

	if err := repo.Put(ctx, domain.Cart{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for cart without user, got %v", err)
	}
}
