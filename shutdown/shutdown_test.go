package shutdown

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reset(t *testing.T) {
	t.Helper()

	mut.Lock()
	hooks = nil
	trigger = nil
	mut.Unlock()
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("context was not canceled")
	}
}

//nolint:paralleltest // mutates package state
func TestShutdown_RunsHooksInOrder(t *testing.T) {
	reset(t)

	ctx := SetupHandler(t.Context())

	var order []string

	BeforeShutdown(func() {
		assert.NoError(t, ctx.Err(), "hooks run before the context is canceled")

		order = append(order, "first")
	})
	BeforeShutdown(nil)
	BeforeShutdown(func() { order = append(order, "second") })

	Shutdown()

	waitDone(t, ctx.Done())
	assert.Equal(t, []string{"first", "second"}, order)

	mut.Lock()
	assert.Nil(t, hooks)
	assert.Nil(t, trigger)
	mut.Unlock()

	// A second request is a no-op.
	Shutdown()
}

//nolint:paralleltest // mutates package state
func TestShutdown_WithoutHandler(t *testing.T) {
	reset(t)

	called := false

	BeforeShutdown(func() { called = true })
	Shutdown()

	assert.False(t, called)
}

//nolint:paralleltest // mutates package state and sends a signal to the process
func TestSetupHandler_Signal(t *testing.T) {
	reset(t)

	ctx := SetupHandler(t.Context())

	called := make(chan struct{})
	BeforeShutdown(func() { close(called) })

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	waitDone(t, called)
	waitDone(t, ctx.Done())
}

//nolint:paralleltest // mutates package state
func TestSetupHandler_ParentCanceled(t *testing.T) {
	reset(t)

	parent, cancel := context.WithCancel(t.Context())
	ctx := SetupHandler(parent)

	called := false

	BeforeShutdown(func() { called = true })
	cancel()

	waitDone(t, ctx.Done())
	assert.False(t, called)
}
