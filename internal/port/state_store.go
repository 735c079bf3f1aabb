package port

import (
	"context"
	"errors"
	"time"
)

var ErrStateNotFound = errors.New("state key not found")

// StateStore is the key-value store the in-memory state is mirrored to.
type StateStore interface {
	// Get returns ErrStateNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	// SetIfAbsent stores value only when key does not exist yet, returns false if it already exists
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
}
