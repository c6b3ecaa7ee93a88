// Package statemachine implements an asynchronous state machine whose states
// are either quiet (no handler) or action states (a handler that runs on
// entry and names the next state).
//
// A transition run starts at one state and follows NextState from action
// state to action state until it reaches a quiet state, a handler fails, or a
// handler is canceled. At most one run is active per machine. Every state of a
// run is published through the Notifier before its handler starts.
package statemachine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	asErrors "github.com/amp-labs/actionstate/errors"
	"github.com/amp-labs/actionstate/future"
	"github.com/amp-labs/actionstate/logger"
	"github.com/amp-labs/actionstate/utils"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
)

// Machine is a state machine instance. The zero value is not usable; create
// one with New.
type Machine struct {
	id       string
	config   *Config
	registry registry
	gate     *CancellationGate
	notifier *Notifier
	log      Logger
	metrics  metrics

	busy atomic.Bool

	mu            sync.Mutex
	state         string
	started       bool
	current       *future.Future[string]
	active        *future.Future[string]
	lastScheduled *future.Future[string]
	lastEnqueued  string

	validation asErrors.Collection

	// beforeDequeue runs in a queued transition after the run it waited for
	// has settled and before it tries to start. Tests only.
	beforeDequeue func()
}

// New creates a machine. A nil config uses DefaultConfig.
func New(config *Config) (*Machine, error) {
	if config == nil {
		config = DefaultConfig()
	}

	err := config.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	machine := &Machine{
		id:       uuid.NewString(),
		config:   config,
		gate:     &CancellationGate{},
		notifier: &Notifier{},
		log:      nopLogger{},
		metrics:  newMetrics(config),
	}

	if config.LogTransitions {
		machine.log = NewDefaultLogger(slog.LevelInfo)
	}

	return machine, nil
}

// SetLogger sets the transition logger. Call it before the first transition.
func (m *Machine) SetLogger(l Logger) {
	if l == nil {
		l = nopLogger{}
	}

	m.log = l
}

// ID returns the machine's unique identifier.
func (m *Machine) ID() string {
	return m.id
}

// Name returns the configured machine name.
func (m *Machine) Name() string {
	return m.config.Name
}

// Notifier returns the notifier the machine publishes property changes on.
func (m *Machine) Notifier() *Notifier {
	return m.notifier
}

// State returns the last published state. It fails with ErrNotStarted until
// the first transition has begun.
func (m *Machine) State() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return "", ErrNotStarted
	}

	return m.state, nil
}

// Transition returns the future of the most recently started run.
func (m *Machine) Transition() *future.Future[string] {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return future.Failed[string](ErrNotStarted)
	}

	return m.current
}

// IsBusy reports whether a run is in an action state.
func (m *Machine) IsBusy() bool {
	return m.busy.Load()
}

// TransitionTo starts a run at state. The first state is published before
// TransitionTo returns; if it is quiet the returned future is already
// settled. Handlers run on a separate goroutine.
//
// The future fails with ErrArgument for an empty state, with ErrBusy while
// another run is active, and with a *StateError when a handler fails, is
// canceled or leaves NextState empty.
func (m *Machine) TransitionTo(ctx context.Context, state string, param any) *future.Future[string] {
	m.mu.Lock()

	r, fut, err := m.acquire(ctx, state, param)
	if err == nil && (m.lastScheduled == nil || m.lastScheduled.IsDone()) {
		m.lastScheduled = fut
		m.lastEnqueued = ""
	}

	m.mu.Unlock()

	if err != nil {
		m.metrics.runEnded(outcomeRejected)

		return future.Failed[string](err)
	}

	r.start(state)

	return fut
}

// acquire claims the machine for a new run. m.mu must be held.
func (m *Machine) acquire(ctx context.Context, state string, param any) (*run, *future.Future[string], error) {
	m.registry.freeze()

	if state == "" {
		return nil, nil, ErrArgument
	}

	if !m.busy.CompareAndSwap(false, true) {
		return nil, nil, ErrBusy
	}

	fut, promise := future.New[string]()

	m.current = fut
	m.active = fut

	return m.newRun(ctx, state, param, promise), fut, nil
}

func (m *Machine) published() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// publish sets the observable state and notifies listeners synchronously.
func (m *Machine) publish(ctx context.Context, state, previous, kind string) {
	m.mu.Lock()
	m.state = state
	m.started = true
	m.mu.Unlock()

	m.metrics.stateEntered(state, kind)
	m.log.StateEntered(ctx, state, previous, kind)
	m.notifier.Notify(PropertyState)
}

// run is one transition run, from the state it was started at to the quiet
// state, fault or cancellation that ends it.
type run struct {
	machine *Machine
	id      string
	ctx     context.Context //nolint:containedctx
	span    trace.Span
	param   any
	promise *future.Promise[string]
	started time.Time
}

func (m *Machine) newRun(ctx context.Context, destination string, param any, promise *future.Promise[string]) *run {
	if ctx == nil {
		ctx = context.Background()
	}

	id := uuid.NewString()
	ctx = logger.With(ctx, "machine", m.config.Name, "machine_id", m.id, "run_id", id)
	ctx, span := m.startRunSpan(ctx, id, destination)

	return &run{
		machine: m,
		id:      id,
		ctx:     ctx,
		span:    span,
		param:   param,
		promise: promise,
		started: time.Now(),
	}
}

// step is one action state being executed.
type step struct {
	ac      *ActionContext
	handler Handler
	ctx     context.Context //nolint:containedctx
	release func()
	span    trace.Span
	entered time.Time
}

// start handles the first state on the caller's goroutine and hands any
// handler work to a new goroutine.
func (r *run) start(state string) {
	handler, ok := r.machine.registry.lookup(state)
	if !ok {
		r.settle(state)

		return
	}

	go r.loop(r.enter(state, handler))
}

func (r *run) loop(current *step) {
	for {
		next, err := r.execute(current)
		if err != nil {
			r.fail(err)

			return
		}

		handler, ok := r.machine.registry.lookup(next)
		if !ok {
			r.settle(next)

			return
		}

		current = r.enter(next, handler)
	}
}

// enter prepares the handler's context, updates the cancellation gate and
// publishes state. The handler has not started when enter returns.
func (r *run) enter(state string, handler Handler) *step {
	m := r.machine
	previous := m.published()

	ctx, span := m.startStateSpan(r.ctx, state, previous, handler.Kind)

	stopTimeout := func() {}
	if m.config.HandlerTimeout > 0 && handler.Kind != KindSync {
		ctx, stopTimeout = context.WithTimeout(ctx, m.config.HandlerTimeout)
	}

	ctx, cancel := context.WithCancelCause(ctx)

	if handler.Kind == KindCancelable {
		m.gate.set(cancel)
	} else {
		m.gate.clear()
	}

	current := &step{
		ac: &ActionContext{
			Machine:       m,
			RunID:         r.id,
			PreviousState: previous,
			State:         state,
			Parameter:     r.param,
		},
		handler: handler,
		ctx:     ctx,
		span:    span,
		release: func() {
			cancel(nil)
			stopTimeout()
		},
		entered: time.Now(),
	}

	m.publish(ctx, state, previous, handler.Kind.String())

	return current
}

// execute runs the handler and returns the state it chose.
func (r *run) execute(current *step) (string, error) {
	defer current.release()

	state := current.ac.State

	err := utils.Protect(func() error {
		return current.handler.invoke(current.ctx, current.ac)
	})

	outcome := outcomeSuccess

	switch {
	case err != nil:
		err = handlerError(state, err)
		outcome = outcomeFault

		if errors.Is(err, ErrCanceled) {
			outcome = outcomeCanceled
		}
	case current.ac.NextState == "":
		err = WrapStateError(state, ErrNoNextState)
		outcome = outcomeFault
	}

	elapsed := time.Since(current.entered)

	r.machine.metrics.handlerFinished(state, outcome, elapsed.Seconds())
	r.machine.log.StateExited(current.ctx, state, elapsed, err)
	endSpan(current.span, err)

	return current.ac.NextState, err
}

// settle ends the run in a quiet state. The cancel command is closed before
// listeners see the state, which they see while the machine is still busy;
// the future settles after busy is cleared.
func (r *run) settle(state string) {
	m := r.machine

	m.gate.clear()
	m.publish(r.ctx, state, m.published(), kindQuiet)
	m.busy.Store(false)

	r.finish(state, nil)
}

// fail ends the run with err. The published state stays at the state that
// failed.
func (r *run) fail(err error) {
	r.machine.gate.clear()
	r.machine.busy.Store(false)

	r.finish("", err)
}

func (r *run) finish(final string, err error) {
	outcome := outcomeSuccess

	switch {
	case errors.Is(err, ErrCanceled):
		outcome = outcomeCanceled
	case err != nil:
		outcome = outcomeFault
	}

	elapsed := time.Since(r.started)

	r.machine.metrics.runEnded(outcome)
	r.machine.log.RunCompleted(r.ctx, final, elapsed, err)
	endSpan(r.span, err)

	r.promise.Complete(final, err)
}
