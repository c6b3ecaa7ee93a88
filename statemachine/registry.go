package statemachine

import (
	"sync"

	"facette.io/natsort"
	"go.uber.org/atomic"
	"golang.org/x/text/cases"
)

type registration struct {
	name    string
	handler Handler
}

// registry maps folded state names to handlers. Writes are only allowed
// before freeze; after freeze the map is read without locking.
type registry struct {
	mu      sync.RWMutex
	frozen  atomic.Bool
	entries map[string]registration
}

// foldName returns the case-insensitive key for a state name.
// A Caser keeps state, so each call gets its own.
func foldName(name string) string {
	return cases.Fold().String(name)
}

func sameState(a, b string) bool {
	return foldName(a) == foldName(b)
}

func (r *registry) register(name string, h Handler) error {
	if name == "" {
		return ErrInvalidStateName
	}

	if err := h.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen.Load() {
		return ErrRegistryFrozen
	}

	key := foldName(name)
	if _, exists := r.entries[key]; exists {
		return WrapStateError(name, ErrDuplicateState)
	}

	if r.entries == nil {
		r.entries = make(map[string]registration)
	}

	r.entries[key] = registration{name: name, handler: h}

	return nil
}

func (r *registry) lookup(name string) (Handler, bool) {
	if !r.frozen.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}

	reg, ok := r.entries[foldName(name)]

	return reg.handler, ok
}

// freeze is idempotent and cannot be undone.
func (r *registry) freeze() {
	if r.frozen.Load() {
		return
	}

	r.mu.Lock()
	r.frozen.Store(true)
	r.mu.Unlock()
}

func (r *registry) names() []string {
	if !r.frozen.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}

	names := make([]string, 0, len(r.entries))
	for _, reg := range r.entries {
		names = append(names, reg.name)
	}

	natsort.Sort(names)

	return names
}

// Register adds an action state. It fails once any transition has begun.
func (m *Machine) Register(name string, h Handler) error {
	return m.registry.register(name, h)
}

// RegisterSync registers a synchronous action state.
func (m *Machine) RegisterSync(name string, fn SyncFunc) error {
	return m.Register(name, Sync(fn))
}

// RegisterAsync registers an asynchronous action state.
func (m *Machine) RegisterAsync(name string, fn AsyncFunc) error {
	return m.Register(name, Async(fn))
}

// RegisterCancelable registers an asynchronous action state that the
// cancel command can interrupt.
func (m *Machine) RegisterCancelable(name string, fn AsyncFunc) error {
	return m.Register(name, Cancelable(fn))
}

// IsActionState reports whether name has a registered handler.
func (m *Machine) IsActionState(name string) bool {
	_, ok := m.registry.lookup(name)

	return ok
}

// ActionStates returns the registered action state names in natural order.
func (m *Machine) ActionStates() []string {
	return m.registry.names()
}
