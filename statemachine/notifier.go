package statemachine

import "sync"

// Property names published through the machine's Notifier.
const (
	PropertyState  = "State"
	PropertyErrors = "Errors"
)

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// listeners is an ordered list of callbacks. Emit calls a snapshot so
// callbacks may subscribe or unsubscribe while being called.
type listeners[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscriber[T]
}

func (l *listeners[T]) add(fn func(T)) func() {
	if fn == nil {
		return func() {}
	}

	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.subs = append(l.subs, subscriber[T]{id: id, fn: fn})
	l.mu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() { l.remove(id) })
	}
}

func (l *listeners[T]) remove(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, sub := range l.subs {
		if sub.id == id {
			l.subs = append(l.subs[:i:i], l.subs[i+1:]...)

			return
		}
	}
}

func (l *listeners[T]) emit(value T) {
	l.mu.Lock()
	subs := l.subs
	l.mu.Unlock()

	for _, sub := range subs {
		sub.fn(value)
	}
}

func (l *listeners[T]) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.subs)
}

// Notifier publishes property-changed notifications. Listeners run
// synchronously on the goroutine that changed the property, in the order
// they subscribed.
type Notifier struct {
	listeners listeners[string]
}

// Subscribe registers fn and returns a function that removes it.
func (n *Notifier) Subscribe(fn func(property string)) (unsubscribe func()) {
	return n.listeners.add(fn)
}

// Notify calls every listener with property.
func (n *Notifier) Notify(property string) {
	n.listeners.emit(property)
}
