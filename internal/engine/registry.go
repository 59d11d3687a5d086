package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bookedly/replica/internal/models"
)

var (
	// ErrNotRegistered is returned when syncing a type no entity manager
	// has registered.
	ErrNotRegistered = errors.New("data type not registered")

	// ErrAlreadyRegistered is returned on duplicate registration.
	ErrAlreadyRegistered = errors.New("data type already registered")
)

// Strategy is the pair of callbacks an entity manager registers for its
// data type. Registration keeps the dependency one-way: managers know the
// engine, the engine never imports them.
type Strategy struct {
	// Load serializes the current local collection for a push.
	Load func(ctx context.Context, tenantID string) ([]byte, error)

	// Apply replaces the entire local collection with a remote payload.
	Apply func(ctx context.Context, tenantID string, payload []byte) error
}

// Registry maps each data type to its registered strategy.
type Registry struct {
	mu         sync.RWMutex
	strategies map[models.DataType]Strategy
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[models.DataType]Strategy),
	}
}

// Register binds a strategy to a data type. The type must belong to the
// closed set and may only be registered once.
func (r *Registry) Register(dt models.DataType, s Strategy) error {
	if !dt.Valid() {
		return fmt.Errorf("unknown data type %q", dt)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.strategies[dt]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, dt)
	}

	r.strategies[dt] = s
	return nil
}

// Strategy returns the strategy registered for dt.
func (r *Registry) Strategy(dt models.DataType) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.strategies[dt]
	return s, ok
}

// Types returns the registered data types in the enum's stable order.
func (r *Registry) Types() []models.DataType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var types []models.DataType
	for _, dt := range models.AllDataTypes() {
		if _, ok := r.strategies[dt]; ok {
			types = append(types, dt)
		}
	}

	return types
}
