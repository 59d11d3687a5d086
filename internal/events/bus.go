// Package events provides the in-process pub/sub bus that announces entity
// and sync state changes to decoupled subscribers.
package events

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bookedly/replica/internal/models"
)

// Event names surfaced to UI collaborators.
const (
	EntityCreated = "entity_created"
	EntityUpdated = "entity_updated"
	EntityDeleted = "entity_deleted"
	SyncSucceeded = "sync_succeeded"
	SyncFailed    = "sync_failed"
)

// Envelope wraps an emitted event.
type Envelope struct {
	Name      string
	Payload   any
	Timestamp time.Time
}

// EntityEvent is the payload carried by the domain events above.
type EntityEvent struct {
	EntityType models.DataType
	EntityID   string
	TenantID   string
	Timestamp  time.Time
}

// Handler receives emitted events. Handlers run synchronously on the
// emitting goroutine and must not block for long.
type Handler func(Envelope)

type subscriber struct {
	id      int64
	handler Handler
}

// Bus is a synchronous in-process pub/sub bus. Fan-out is in subscription
// order; a panicking handler is recovered and logged so the remaining
// handlers still run. An emit with no subscribers is dropped silently.
type Bus struct {
	mu     sync.RWMutex
	nextID int64
	subs   map[string][]subscriber
	now    func() time.Time
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[string][]subscriber),
		now:  time.Now,
	}
}

// Subscription identifies one registered handler. Go functions are not
// comparable, so unsubscription is by handle rather than by handler value.
type Subscription struct {
	bus  *Bus
	name string
	id   int64
}

// Subscribe registers a handler for events with the given name.
func (b *Bus) Subscribe(name string, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subs[name] = append(b.subs[name], subscriber{id: b.nextID, handler: handler})

	return &Subscription{bus: b, name: name, id: b.nextID}
}

// Unsubscribe removes the handler. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}

	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	subs := s.bus.subs[s.name]
	for i, sub := range subs {
		if sub.id == s.id {
			s.bus.subs[s.name] = append(subs[:i], subs[i+1:]...)
			break
		}
	}

	if len(s.bus.subs[s.name]) == 0 {
		delete(s.bus.subs, s.name)
	}
}

// Emit delivers the payload to every current subscriber of name, in order.
func (b *Bus) Emit(name string, payload any) {
	b.mu.RLock()
	subs := make([]subscriber, len(b.subs[name]))
	copy(subs, b.subs[name])
	envelope := Envelope{Name: name, Payload: payload, Timestamp: b.now()}
	b.mu.RUnlock()

	for _, sub := range subs {
		b.dispatch(sub, envelope)
	}
}

// dispatch runs one handler, isolating panics so the rest of the fan-out
// still happens.
func (b *Bus) dispatch(sub subscriber, envelope Envelope) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("event", envelope.Name).
				Interface("panic", r).
				Msg("event handler panicked")
		}
	}()

	sub.handler(envelope)
}

// ListenerCount returns the number of subscribers for name.
func (b *Bus) ListenerCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subs[name])
}

// ActiveEvents returns every event name with at least one subscriber.
func (b *Bus) ActiveEvents() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.subs))
	for name := range b.subs {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}
