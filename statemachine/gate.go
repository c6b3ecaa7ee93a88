package statemachine

import (
	"context"
	"sync"
)

// CancellationGate holds the cancel function of the cancelable action state
// that is currently running, if any. It is the machine's cancel command.
type CancellationGate struct {
	mu      sync.Mutex
	cancel  context.CancelCauseFunc
	changed listeners[struct{}]
}

var _ Command = (*CancellationGate)(nil)

// set installs cancel, or clears the gate when cancel is nil. Listeners are
// told once whenever the gate was or is now holding a source, so a handoff
// between two cancelable states raises exactly once.
func (g *CancellationGate) set(cancel context.CancelCauseFunc) {
	g.mu.Lock()
	hadSource := g.cancel != nil
	g.cancel = cancel
	g.mu.Unlock()

	if hadSource || cancel != nil {
		g.changed.emit(struct{}{})
	}
}

func (g *CancellationGate) clear() {
	g.set(nil)
}

// CanExecute reports whether a cancelable action state is running.
func (g *CancellationGate) CanExecute() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.cancel != nil
}

// Execute signals cancellation to the running handler. The handler decides
// when to stop.
func (g *CancellationGate) Execute(_ context.Context, _ any) error {
	g.mu.Lock()
	cancel := g.cancel
	g.mu.Unlock()

	if cancel == nil {
		return ErrCommandUnavailable
	}

	cancel(ErrCanceled)

	return nil
}

// OnCanExecuteChanged registers fn to run whenever availability may have changed.
func (g *CancellationGate) OnCanExecuteChanged(fn func()) (unsubscribe func()) {
	return subscribeChanged(&g.changed, fn)
}
