package kvstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is the small get/set/delete capability the browser's local storage
// is modelled on. Implementations flush on every mutation.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Memory keeps values in process memory only.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}

// Scoped namespaces every key of an underlying store, one scope per client.
type Scoped struct {
	inner Store
	scope string
}

func NewScoped(inner Store, scope string) *Scoped {
	return &Scoped{inner: inner, scope: scope}
}

func (s *Scoped) key(k string) string {
	return fmt.Sprintf("%s/%s", s.scope, k)
}

func (s *Scoped) Get(ctx context.Context, key string) (string, error) {
	return s.inner.Get(ctx, s.key(key))
}

func (s *Scoped) Set(ctx context.Context, key, value string) error {
	return s.inner.Set(ctx, s.key(key), value)
}

func (s *Scoped) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.key(key))
}
