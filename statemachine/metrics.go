package statemachine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run and handler outcomes used as metric labels.
const (
	outcomeSuccess  = "success"
	outcomeFault    = "fault"
	outcomeCanceled = "canceled"
	outcomeRejected = "rejected"
)

// Enqueue outcomes.
const (
	enqueueImmediate    = "immediate"
	enqueueQueued       = "queued"
	enqueueDeduplicated = "deduplicated"
)

// Quiet states have no handler kind.
const kindQuiet = "quiet"

var (
	// runsTotal counts transition runs by how they ended.
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "actionstate_runs_total",
		Help: "Total number of transition runs by machine and outcome",
	}, []string{"machine", "outcome"})

	// stateEntriesTotal counts published states.
	stateEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "actionstate_state_entries_total",
		Help: "Total number of states entered by machine, state and kind",
	}, []string{"machine", "state", "kind"})

	handlerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "actionstate_handler_duration_seconds",
		Help:    "Duration of action state handlers by machine, state and outcome",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"machine", "state", "outcome"})

	cancellationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "actionstate_cancellations_total",
		Help: "Total number of runs ended by cancellation, by machine and state",
	}, []string{"machine", "state"})

	enqueueTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "actionstate_enqueue_total",
		Help: "Total number of enqueue requests by machine and how they were scheduled",
	}, []string{"machine", "outcome"})
)

// metrics records to the package collectors, or does nothing when disabled.
type metrics struct {
	enabled bool
	machine string
}

func newMetrics(config *Config) metrics {
	return metrics{enabled: config.Metrics, machine: sanitizeMachine(config.Name)}
}

func (m metrics) runEnded(outcome string) {
	if m.enabled {
		runsTotal.WithLabelValues(m.machine, outcome).Inc()
	}
}

func (m metrics) stateEntered(state, kind string) {
	if m.enabled {
		stateEntriesTotal.WithLabelValues(m.machine, sanitizeState(state), kind).Inc()
	}
}

func (m metrics) handlerFinished(state, outcome string, seconds float64) {
	if !m.enabled {
		return
	}

	handlerDuration.WithLabelValues(m.machine, sanitizeState(state), outcome).Observe(seconds)

	if outcome == outcomeCanceled {
		cancellationsTotal.WithLabelValues(m.machine, sanitizeState(state)).Inc()
	}
}

func (m metrics) enqueued(outcome string) {
	if m.enabled {
		enqueueTotal.WithLabelValues(m.machine, outcome).Inc()
	}
}

func sanitizeMachine(name string) string {
	if name == "" {
		return "unknown"
	}

	return name
}

// sanitizeState folds the state so differently cased spellings share a series.
func sanitizeState(state string) string {
	if state == "" {
		return "none"
	}

	return foldName(state)
}
