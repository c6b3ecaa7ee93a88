package statemachine_test

import (
	"testing"

	"github.com/amp-labs/actionstate/future"
	"github.com/amp-labs/actionstate/statemachine"
	smtesting "github.com/amp-labs/actionstate/statemachine/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// busyMachine returns a machine whose run from A is parked in the gate and
// will move on to the quiet state B when released. register runs before the
// first transition freezes the registry.
func busyMachine(
	t *testing.T,
	register ...func(m *statemachine.Machine),
) (*statemachine.Machine, *smtesting.Gate, *smtesting.Recorder, *future.Future[string]) {
	t.Helper()

	m := smtesting.NewMachine(t, nil)
	gate := smtesting.NewGate()

	require.NoError(t, m.RegisterAsync("A", gate.Handler("B")))

	for _, fn := range register {
		fn(m)
	}

	rec := smtesting.Record(t, m)
	fut := m.TransitionTo(t.Context(), "A", nil)
	gate.WaitEntered(t)

	return m, gate, rec, fut
}

func TestEnqueue_IdleDispatchesImmediately(t *testing.T) {
	t.Parallel()

	m := smtesting.NewMachine(t, nil)

	fut := m.EnqueueTransitionTo(t.Context(), "idle", nil)
	require.True(t, fut.IsDone())

	final, err := fut.Await()
	require.NoError(t, err)
	assert.Equal(t, "idle", final)

	_, err = m.EnqueueTransitionTo(t.Context(), "", nil).Await()
	require.ErrorIs(t, err, statemachine.ErrArgument)
}

func TestEnqueue_DeduplicatesConsecutiveRequests(t *testing.T) {
	t.Parallel()

	m, gate, rec, running := busyMachine(t)

	first := m.EnqueueTransitionTo(t.Context(), "C", 1)
	second := m.EnqueueTransitionTo(t.Context(), "c", 2)
	assert.Same(t, first, second)
	assert.False(t, first.IsDone())

	gate.Release(t)

	_, err := smtesting.Await(t, running)
	require.NoError(t, err)

	final, err := smtesting.Await(t, first)
	require.NoError(t, err)
	assert.Equal(t, "C", final)

	_, err = smtesting.Await(t, second)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, rec.States())
}

func TestEnqueue_PreservesOrder(t *testing.T) {
	t.Parallel()

	m, gate, rec, _ := busyMachine(t)

	toC := m.EnqueueTransitionTo(t.Context(), "C", nil)
	toD := m.EnqueueTransitionTo(t.Context(), "D", nil)
	toCAgain := m.EnqueueTransitionTo(t.Context(), "C", nil)

	assert.NotSame(t, toC, toCAgain, "C is not consecutive with the first C")

	gate.Release(t)

	for _, fut := range []*future.Future[string]{toC, toD, toCAgain} {
		_, err := smtesting.Await(t, fut)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"A", "B", "C", "D", "C"}, rec.States())

	state, err := m.State()
	require.NoError(t, err)
	assert.Equal(t, "C", state)
}

func TestEnqueue_IgnoresPreviousOutcome(t *testing.T) {
	t.Parallel()

	m, gate, rec, running := busyMachine(t)

	queued := m.EnqueueTransitionTo(t.Context(), "C", nil)

	gate.Fail(t, errBoom)

	_, err := smtesting.Await(t, running)
	require.ErrorIs(t, err, errBoom)

	final, err := smtesting.Await(t, queued)
	require.NoError(t, err)
	assert.Equal(t, "C", final)
	assert.Equal(t, []string{"A", "C"}, rec.States())
}

func TestEnqueue_DirectTransitionSettlesFirst(t *testing.T) {
	t.Parallel()

	direct := smtesting.NewGate()
	queuedRan := make(chan struct{})

	m, gate, rec, _ := busyMachine(t, func(m *statemachine.Machine) {
		require.NoError(t, m.RegisterAsync("X", direct.Handler("Y")))
	})

	directFut := make(chan *future.Future[string], 1)

	statemachine.SetBeforeDequeue(m, func() {
		directFut <- m.TransitionTo(t.Context(), "X", nil)
	})

	queued := m.EnqueueTransitionTo(t.Context(), "C", nil)
	queued.OnResult(func(string, error) { close(queuedRan) })

	gate.Release(t)

	fut := <-directFut
	direct.WaitEntered(t)

	select {
	case <-queuedRan:
		require.FailNow(t, "queued transition settled while the direct run was active")
	default:
	}

	direct.Release(t)

	final, err := smtesting.Await(t, fut)
	require.NoError(t, err)
	assert.Equal(t, "Y", final)

	final, err = smtesting.Await(t, queued)
	require.NoError(t, err)
	assert.Equal(t, "C", final)

	assert.Equal(t, []string{"A", "B", "X", "Y", "C"}, rec.States())
}

func TestEnqueue_ResetsAfterImmediateDispatch(t *testing.T) {
	t.Parallel()

	m := smtesting.NewMachine(t, nil)
	gate := smtesting.NewGate()

	require.NoError(t, m.RegisterAsync("A", gate.Handler("B")))

	rec := smtesting.Record(t, m)

	first := m.EnqueueTransitionTo(t.Context(), "A", nil)
	gate.WaitEntered(t)

	second := m.EnqueueTransitionTo(t.Context(), "A", nil)
	assert.NotSame(t, first, second, "an immediately dispatched request is not a queued duplicate")

	gate.Release(t)
	gate.WaitEntered(t)
	gate.Release(t)

	_, err := smtesting.Await(t, second)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "A", "B"}, rec.States())
}

func TestEnqueue_AfterDirectTransition(t *testing.T) {
	t.Parallel()

	m, gate, rec, running := busyMachine(t)

	queued := m.EnqueueTransitionTo(t.Context(), "B", nil)
	assert.NotSame(t, running, queued)

	gate.Release(t)

	_, err := smtesting.Await(t, queued)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "B"}, rec.States())
}
