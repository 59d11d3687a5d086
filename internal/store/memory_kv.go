package store

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryKV implements KV using in-memory storage. It is used in tests and
// as the backing store for ephemeral sessions.
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
	closed bool

	// FailWrites forces Set to fail, used to exercise quota/write-error
	// handling in tests.
	FailWrites bool
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		values: make(map[string]string),
	}
}

func (m *MemoryKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return "", ErrStoreClosed
	}

	value, ok := m.values[key]
	if !ok {
		return "", ErrKeyNotFound
	}

	return value, nil
}

func (m *MemoryKV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if m.FailWrites {
		return ErrWriteFailed
	}

	m.values[key] = value
	return nil
}

func (m *MemoryKV) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.values, key)
	return nil
}

func (m *MemoryKV) Enumerate(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	keys := make([]string, 0, len(m.values))
	for key := range m.values {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryKV) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}
