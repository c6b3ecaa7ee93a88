package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifier_Order(t *testing.T) {
	t.Parallel()

	var (
		n   Notifier
		got []string
	)

	n.Subscribe(func(p string) { got = append(got, "first:"+p) })
	n.Subscribe(func(p string) { got = append(got, "second:"+p) })

	n.Notify(PropertyState)

	assert.Equal(t, []string{"first:State", "second:State"}, got)
}

func TestNotifier_Unsubscribe(t *testing.T) {
	t.Parallel()

	var (
		n     Notifier
		calls int
	)

	unsubscribe := n.Subscribe(func(string) { calls++ })

	n.Notify(PropertyState)
	unsubscribe()
	unsubscribe()
	n.Notify(PropertyState)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, n.listeners.len())
}

func TestNotifier_UnsubscribeDuringNotify(t *testing.T) {
	t.Parallel()

	var (
		n        Notifier
		got      []string
		removeMe func()
	)

	n.Subscribe(func(string) {
		got = append(got, "a")
		removeMe()
	})
	removeMe = n.Subscribe(func(string) { got = append(got, "b") })
	n.Subscribe(func(string) { got = append(got, "c") })

	n.Notify(PropertyErrors)
	n.Notify(PropertyErrors)

	// The snapshot taken for the first notification still includes b.
	assert.Equal(t, []string{"a", "b", "c", "a", "c"}, got)
}

func TestNotifier_NilListener(t *testing.T) {
	t.Parallel()

	var n Notifier

	unsubscribe := n.Subscribe(nil)
	unsubscribe()

	n.Notify(PropertyState)
	assert.Equal(t, 0, n.listeners.len())
}
