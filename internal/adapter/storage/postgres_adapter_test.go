package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/Varun-1606/quick-cart/internal/port"
)

func getPostgresAdapter(t *testing.T) *PostgresAdapter {
	url := os.Getenv("POSTGRES_URL")
	if url == "" {
		t.Skip("POSTGRES_URL not set")
	}
	db, err := ConnectPostgres(context.Background(), url)
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	adapter := NewPostgresAdapter(db)
	if err := adapter.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	return adapter
}

func TestPostgresSetGetDelete(t *testing.T) {
	adapter := getPostgresAdapter(t)
	ctx := context.Background()
	adapter.Delete(ctx, "test-products")

	if err := adapter.Set(ctx, "test-products", []byte(`[]`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := adapter.Set(ctx, "test-products", []byte(`[{"id":"1"}]`)); err != nil {
		t.Fatalf("Set overwrite failed: %v", err)
	}

	got, err := adapter.Get(ctx, "test-products")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `[{"id":"1"}]` {
		t.Errorf("unexpected value %q", got)
	}

	if err := adapter.Delete(ctx, "test-products"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := adapter.Get(ctx, "test-products"); !errors.Is(err, port.ErrStateNotFound) {
		t.Errorf("expected ErrStateNotFound, got %v", err)
	}
}

func TestPostgresSetIfAbsent(t *testing.T) {
	adapter := getPostgresAdapter(t)
	ctx := context.Background()
	adapter.Delete(ctx, "test-idem")

	ok, err := adapter.SetIfAbsent(ctx, "test-idem", []byte("1"), time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first claim to succeed, got %v %v", ok, err)
	}
	ok, err = adapter.SetIfAbsent(ctx, "test-idem", []byte("1"), time.Minute)
	if err != nil || ok {
		t.Fatalf("expected second claim to fail, got %v %v", ok, err)
	}

	adapter.Delete(ctx, "test-idem")
}
