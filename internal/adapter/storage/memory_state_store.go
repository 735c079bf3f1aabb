package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Varun-1606/quick-cart/internal/port"
)

type memoryValue struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStateStore is the default state store; nothing survives a restart.
type MemoryStateStore struct {
	mu     sync.Mutex
	values map[string]memoryValue
	now    func() time.Time
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		values: make(map[string]memoryValue),
		now:    time.Now,
	}
}

func (s *MemoryStateStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.lookup(key)
	if !ok {
		return nil, port.ErrStateNotFound
	}
	return append([]byte(nil), v.data...), nil
}

func (s *MemoryStateStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = memoryValue{data: append([]byte(nil), value...)}
	return nil
}

func (s *MemoryStateStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

func (s *MemoryStateStore) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookup(key); ok {
		return false, nil
	}
	v := memoryValue{data: append([]byte(nil), value...)}
	if ttl > 0 {
		v.expiresAt = s.now().Add(ttl)
	}
	s.values[key] = v
	return true, nil
}

// lookup drops expired keys lazily. Callers hold s.mu.
func (s *MemoryStateStore) lookup(key string) (memoryValue, bool) {
	v, ok := s.values[key]
	if !ok {
		return memoryValue{}, false
	}
	if !v.expiresAt.IsZero() && !s.now().Before(v.expiresAt) {
		delete(s.values, key)
		return memoryValue{}, false
	}
	return v, true
}

// Keys lists live keys with the given prefix.
func (s *MemoryStateStore) Keys(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for k := range s.values {
		if _, ok := s.lookup(k); ok && strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}
