// Package testing provides helpers for exercising state machines in tests.
//
//nolint:varnamelen // short names idiomatic
package testing

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/amp-labs/actionstate/future"
	"github.com/amp-labs/actionstate/statemachine"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"
)

// DefaultTimeout bounds every wait in this package.
const DefaultTimeout = 5 * time.Second

// NewMachine creates a machine whose transition log goes to t.Log.
func NewMachine(t *testing.T, config *statemachine.Config) *statemachine.Machine {
	t.Helper()

	if config == nil {
		config = statemachine.DefaultConfig()
		config.Name = t.Name()
		config.Metrics = false
	}

	m, err := statemachine.New(config)
	require.NoError(t, err, "failed to create machine")

	m.SetLogger(NewLogger(t))

	return m
}

// Logger routes transition logging to t.Log.
type Logger struct {
	log *slog.Logger
}

var _ statemachine.Logger = (*Logger)(nil)

// NewLogger returns a statemachine.Logger backed by slogt.
func NewLogger(t *testing.T) *Logger {
	t.Helper()

	return &Logger{log: slogt.New(t)}
}

func (l *Logger) StateEntered(ctx context.Context, state, previous string, kind string) {
	l.log.DebugContext(ctx, "State entered", "state", state, "previous", previous, "kind", kind)
}

func (l *Logger) StateExited(ctx context.Context, state string, duration time.Duration, err error) {
	l.log.DebugContext(ctx, "State exited", "state", state, "duration", duration, "error", err)
}

func (l *Logger) RunCompleted(ctx context.Context, final string, duration time.Duration, err error) {
	l.log.DebugContext(ctx, "Run completed", "final_state", final, "duration", duration, "error", err)
}

// Recorder records every state a machine publishes, in order.
type Recorder struct {
	machine *statemachine.Machine
	stop    func()

	mu      sync.Mutex
	states  []string
	updated chan struct{}
}

// Record starts recording m's published states. Recording stops when the
// test ends.
func Record(t *testing.T, m *statemachine.Machine) *Recorder {
	t.Helper()

	r := &Recorder{
		machine: m,
		updated: make(chan struct{}),
	}

	r.stop = m.Notifier().Subscribe(r.onChanged)
	t.Cleanup(r.stop)

	return r
}

func (r *Recorder) onChanged(property string) {
	if property != statemachine.PropertyState {
		return
	}

	state, err := r.machine.State()
	if err != nil {
		return
	}

	r.mu.Lock()
	r.states = append(r.states, state)
	close(r.updated)
	r.updated = make(chan struct{})
	r.mu.Unlock()
}

// States returns the states recorded so far.
func (r *Recorder) States() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.states)
}

// WaitFor blocks until state has been recorded, failing the test after
// DefaultTimeout.
func (r *Recorder) WaitFor(t *testing.T, state string) {
	t.Helper()

	deadline := time.After(DefaultTimeout)

	for {
		r.mu.Lock()
		found := slices.Contains(r.states, state)
		updated := r.updated
		r.mu.Unlock()

		if found {
			return
		}

		select {
		case <-updated:
		case <-deadline:
			require.Failf(t, "state not reached", "waiting for %q, recorded %v", state, r.States())
		}
	}
}

// ChangeCounter counts availability-changed notifications raised by a command.
type ChangeCounter struct {
	mu    sync.Mutex
	count int
}

// Watch starts counting cmd's availability changes until the test ends.
func Watch(t *testing.T, cmd statemachine.Command) *ChangeCounter {
	t.Helper()

	c := &ChangeCounter{}
	t.Cleanup(cmd.OnCanExecuteChanged(func() {
		c.mu.Lock()
		c.count++
		c.mu.Unlock()
	}))

	return c
}

// Count returns the number of notifications seen.
func (c *ChangeCounter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.count
}

// Gate is an async handler that blocks until the test releases it.
type Gate struct {
	entered chan *statemachine.ActionContext
	release chan error
}

// NewGate creates a gate.
func NewGate() *Gate {
	return &Gate{
		entered: make(chan *statemachine.ActionContext, 16), //nolint:mnd
		release: make(chan error),
	}
}

// Handler returns a handler that waits for Release or Fail and then moves
// to next. It returns ctx.Err() if its context ends first.
func (g *Gate) Handler(next string) statemachine.AsyncFunc {
	return func(ctx context.Context, ac *statemachine.ActionContext) error {
		g.entered <- ac

		select {
		case err := <-g.release:
			if err != nil {
				return err
			}

			ac.Enter(next)

			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// WaitEntered blocks until a handler of this gate has started and returns
// its context.
func (g *Gate) WaitEntered(t *testing.T) *statemachine.ActionContext {
	t.Helper()

	select {
	case ac := <-g.entered:
		return ac
	case <-time.After(DefaultTimeout):
		require.FailNow(t, "gate handler was not entered")

		return nil
	}
}

// Release lets the waiting handler finish successfully.
func (g *Gate) Release(t *testing.T) {
	t.Helper()
	g.send(t, nil)
}

// Fail makes the waiting handler return err.
func (g *Gate) Fail(t *testing.T, err error) {
	t.Helper()
	g.send(t, err)
}

func (g *Gate) send(t *testing.T, err error) {
	t.Helper()

	select {
	case g.release <- err:
	case <-time.After(DefaultTimeout):
		require.FailNow(t, "no gate handler was waiting")
	}
}

// Await waits for fut with DefaultTimeout.
func Await[T any](t *testing.T, fut *future.Future[T]) (T, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(t.Context(), DefaultTimeout)
	defer cancel()

	_, _ = fut.AwaitContext(ctx)
	if !fut.IsDone() {
		require.FailNow(t, "future did not settle in time")
	}

	return fut.Await()
}
