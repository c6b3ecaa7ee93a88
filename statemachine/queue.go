package statemachine

import (
	"context"
	"errors"

	"github.com/amp-labs/actionstate/future"
)

// EnqueueTransitionTo starts a run at state once every previously scheduled
// run has settled, without failing while the machine is busy.
//
// When nothing is pending it behaves like TransitionTo. Otherwise the request
// is queued behind the last scheduled run; its outcome is not inherited. A
// request for the same state (case-insensitive) as the request queued just
// before it returns that request's future instead of queueing again.
//
// A direct TransitionTo that claims the machine while a queued request is
// waiting always settles before the queued request starts.
func (m *Machine) EnqueueTransitionTo(ctx context.Context, state string, param any) *future.Future[string] {
	if ctx == nil {
		ctx = context.Background()
	}

	m.registry.freeze()

	if state == "" {
		m.metrics.runEnded(outcomeRejected)

		return future.Failed[string](ErrArgument)
	}

	m.mu.Lock()

	if m.lastScheduled == nil || m.lastScheduled.IsDone() {
		m.lastEnqueued = ""

		r, fut, err := m.acquire(ctx, state, param)
		if err == nil {
			m.lastScheduled = fut
			m.mu.Unlock()

			m.metrics.enqueued(enqueueImmediate)
			r.start(state)

			return fut
		}

		// A queued request gave up on its context while a run is active.
		// Queue behind that run instead.
		m.lastScheduled = m.active
	}

	if m.lastEnqueued != "" && sameState(state, m.lastEnqueued) {
		fut := m.lastScheduled
		m.mu.Unlock()

		m.metrics.enqueued(enqueueDeduplicated)

		return fut
	}

	fut := m.chain(ctx, m.lastScheduled, state, param)
	m.lastScheduled = fut
	m.lastEnqueued = state
	m.mu.Unlock()

	m.metrics.enqueued(enqueueQueued)

	return fut
}

// chain returns a future that waits for previous to settle, then starts a
// run at state and adopts its outcome.
func (m *Machine) chain(
	ctx context.Context,
	previous *future.Future[string],
	state string,
	param any,
) *future.Future[string] {
	fut, promise := future.New[string]()

	go func() {
		select {
		case <-previous.Done():
		case <-ctx.Done():
			promise.Failure(context.Cause(ctx))

			return
		}

		if m.beforeDequeue != nil {
			m.beforeDequeue()
		}

		promise.Adopt(m.transitionWhenIdle(ctx, state, param))
	}()

	return fut
}

// transitionWhenIdle starts a run at state, waiting out any run that holds
// the machine.
func (m *Machine) transitionWhenIdle(ctx context.Context, state string, param any) *future.Future[string] {
	for {
		m.mu.Lock()
		r, fut, err := m.acquire(ctx, state, param)
		active := m.active
		m.mu.Unlock()

		if err == nil {
			r.start(state)

			return fut
		}

		if !errors.Is(err, ErrBusy) {
			return future.Failed[string](err)
		}

		select {
		case <-active.Done():
		case <-ctx.Done():
			return future.Failed[string](context.Cause(ctx))
		}
	}
}
