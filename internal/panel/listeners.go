package panel

import (
	"sync"

	"github.com/google/uuid"

	"github.com/sebakerckhof/ats-bridge/internal/ats"
)

// Listener is a zero-argument callback invoked after a state change has
// been committed to the store. Listeners read the new state back through
// the coordinator's accessors.
type Listener func()

// listenerKey identifies an entity-scoped listener list.
type listenerKey struct {
	kind   ats.EntityKind
	number int
}

// entry pairs a callback with an opaque token so unregistration removes
// exactly one registration, even when the same function is registered
// twice.
type entry struct {
	id uuid.UUID
	fn Listener
}

// listenerRegistry holds entity-scoped and global listener lists in
// registration order.
//
// Registration returns an unregister func tied to the entry's token;
// calling it twice, or after the entry is already gone, is a no-op.
type listenerRegistry struct {
	mu     sync.Mutex
	byKey  map[listenerKey][]entry
	global []entry
}

func newListenerRegistry() *listenerRegistry {
	return &listenerRegistry{
		byKey: make(map[listenerKey][]entry),
	}
}

// register appends a listener for (kind, number) and returns its
// unregister func.
func (r *listenerRegistry) register(kind ats.EntityKind, number int, fn Listener) func() {
	key := listenerKey{kind: kind, number: number}
	e := entry{id: uuid.New(), fn: fn}

	r.mu.Lock()
	r.byKey[key] = append(r.byKey[key], e)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.byKey[key] = removeEntry(r.byKey[key], e.id)
		if len(r.byKey[key]) == 0 {
			delete(r.byKey, key)
		}
	}
}

// registerGlobal appends a global listener and returns its unregister func.
func (r *listenerRegistry) registerGlobal(fn Listener) func() {
	e := entry{id: uuid.New(), fn: fn}

	r.mu.Lock()
	r.global = append(r.global, e)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.global = removeEntry(r.global, e.id)
	}
}

// snapshot returns the callbacks to invoke for (kind, number): the
// entity-scoped list first, then the global list, each in registration
// order. Copies out so fan-out runs without holding the lock.
func (r *listenerRegistry) snapshot(kind ats.EntityKind, number int) (scoped, global []Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.byKey[listenerKey{kind: kind, number: number}] {
		scoped = append(scoped, e.fn)
	}
	for _, e := range r.global {
		global = append(global, e.fn)
	}
	return scoped, global
}

// snapshotGlobal returns only the global callbacks, in registration order.
func (r *listenerRegistry) snapshotGlobal() []Listener {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Listener, 0, len(r.global))
	for _, e := range r.global {
		out = append(out, e.fn)
	}
	return out
}

// count returns the total number of registered listeners.
func (r *listenerRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.global)
	for _, list := range r.byKey {
		n += len(list)
	}
	return n
}

// removeEntry removes the entry with the given token, preserving order.
// Unknown tokens are ignored.
func removeEntry(list []entry, id uuid.UUID) []entry {
	for i, e := range list {
		if e.id == id {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
