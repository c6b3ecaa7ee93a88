package statemachine

import (
	"context"
	"testing"
	"time"

	"github.com/amp-labs/actionstate/future"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func await(t *testing.T, fut *future.Future[string]) (string, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	return fut.AwaitContext(ctx)
}

// newTestMachine creates a machine whose metric series are unique to the test.
func newTestMachine(t *testing.T, metrics bool) *Machine {
	t.Helper()

	config := DefaultConfig()
	config.Name = t.Name()
	config.Metrics = metrics

	m, err := New(config)
	require.NoError(t, err)

	return m
}

func TestMetrics_Run(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t, true)
	name := m.Name()

	require.NoError(t, m.RegisterSync("Load", func(ac *ActionContext) error {
		ac.Enter("ready")

		return nil
	}))

	_, err := await(t, m.TransitionTo(t.Context(), "load", nil))
	require.NoError(t, err)

	_, err = await(t, m.TransitionTo(t.Context(), "", nil))
	require.ErrorIs(t, err, ErrArgument)

	assert.InDelta(t, 1, testutil.ToFloat64(runsTotal.WithLabelValues(name, outcomeSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(runsTotal.WithLabelValues(name, outcomeRejected)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(stateEntriesTotal.WithLabelValues(name, "load", "sync")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(stateEntriesTotal.WithLabelValues(name, "ready", kindQuiet)), 0)
}

func TestMetrics_Cancellation(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t, true)
	name := m.Name()

	entered := make(chan struct{})

	require.NoError(t, m.RegisterCancelable("saving", func(ctx context.Context, ac *ActionContext) error {
		close(entered)
		<-ctx.Done()

		return context.Cause(ctx)
	}))

	fut := m.EnqueueTransitionTo(t.Context(), "saving", nil)
	<-entered

	require.NoError(t, m.CancelCommand().Execute(t.Context(), nil))

	_, err := await(t, fut)
	require.ErrorIs(t, err, ErrCanceled)

	assert.InDelta(t, 1, testutil.ToFloat64(cancellationsTotal.WithLabelValues(name, "saving")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(runsTotal.WithLabelValues(name, outcomeCanceled)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(enqueueTotal.WithLabelValues(name, enqueueImmediate)), 0)
}

func TestMetrics_Disabled(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t, false)

	_, err := await(t, m.TransitionTo(t.Context(), "idle", nil))
	require.NoError(t, err)

	assert.InDelta(t, 0, testutil.ToFloat64(runsTotal.WithLabelValues(m.Name(), outcomeSuccess)), 0)
}

func TestSanitization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
		fn       func(string) string
	}{
		{"empty machine", "", "unknown", sanitizeMachine},
		{"machine", "orders", "orders", sanitizeMachine},
		{"empty state", "", "none", sanitizeState},
		{"folded state", "Saving", "saving", sanitizeState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, tt.fn(tt.input))
		})
	}
}
