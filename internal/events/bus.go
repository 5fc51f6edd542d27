package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Observer receives events. Returning an error is recorded but never
// interrupts delivery to later observers or the emitting operation.
type Observer func(Event) error

// Bus fans events out to observers synchronously, in registration
// order. A panicking or erroring observer is isolated: the publish
// continues and the emitting operation never sees the failure.
type Bus struct {
	mu        sync.RWMutex
	observers []registration
	nextID    int
	now       func() time.Time
}

type registration struct {
	id int
	fn Observer
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{now: time.Now}
}

// Subscribe registers an observer and returns a handle for
// Unsubscribe.
func (b *Bus) Subscribe(fn Observer) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.observers = append(b.observers, registration{id: b.nextID, fn: fn})
	return b.nextID
}

// Unsubscribe removes the observer with the given handle.
func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, reg := range b.observers {
		if reg.id == id {
			b.observers = append(b.observers[:i], b.observers[i+1:]...)
			return
		}
	}
}

// Publish delivers the event to every observer in registration order,
// stamping the timestamp if unset. Observer failures are logged and
// swallowed.
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = b.now()
	}

	b.mu.RLock()
	observers := make([]registration, len(b.observers))
	copy(observers, b.observers)
	b.mu.RUnlock()

	for _, reg := range observers {
		b.deliver(reg, event)
	}
}

// deliver invokes one observer, converting panics into logged errors.
func (b *Bus) deliver(reg registration, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Int("observer", reg.id).
				Str("event", string(event.Type)).
				Interface("panic", r).
				Msg("event observer panicked")
		}
	}()

	if err := reg.fn(event); err != nil {
		log.Warn().
			Int("observer", reg.id).
			Str("event", string(event.Type)).
			Err(err).
			Msg("event observer failed")
	}
}

// ObserverCount returns the number of registered observers.
func (b *Bus) ObserverCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers)
}
