package utils

import (
	"sync"

	"github.com/google/uuid"
)

// ListenerID identifies a registered listener so that it can be removed again.
type ListenerID string

type listener[E any] struct {
	id ListenerID
	fn func(E)
}

// Emitter delivers events of type E to registered callbacks, in registration
// order, on the goroutine that calls Emit. Listeners may register or remove
// listeners from within a callback; such changes take effect on the next Emit.
type Emitter[E any] struct {
	mu        sync.RWMutex
	listeners []listener[E]
	closed    bool
}

func NewEmitter[E any]() *Emitter[E] {
	return &Emitter[E]{}
}

// On registers fn. Once the emitter has been cleared for good, registrations
// are accepted but never fire.
func (em *Emitter[E]) On(fn func(E)) ListenerID {
	id := ListenerID(uuid.NewString())

	em.mu.Lock()
	defer em.mu.Unlock()

	if em.closed {
		return id
	}

	em.listeners = append(em.listeners, listener[E]{id: id, fn: fn})
	return id
}

func (em *Emitter[E]) RemoveListener(id ListenerID) bool {
	em.mu.Lock()
	defer em.mu.Unlock()

	for i, l := range em.listeners {
		if l.id == id {
			em.listeners = append(em.listeners[:i:i], em.listeners[i+1:]...)
			return true
		}
	}
	return false
}

func (em *Emitter[E]) Emit(event E) {
	em.mu.RLock()
	snapshot := make([]listener[E], len(em.listeners))
	copy(snapshot, em.listeners)
	em.mu.RUnlock()

	for _, l := range snapshot {
		l.fn(event)
	}
}

// Close removes every listener and turns later registrations into no-ops.
// Closing twice is harmless.
func (em *Emitter[E]) Close() {
	em.mu.Lock()
	defer em.mu.Unlock()

	em.listeners = nil
	em.closed = true
}
