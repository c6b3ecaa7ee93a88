package statemachine

import (
	"context"
	"sync"

	"github.com/amp-labs/actionstate/future"
	"github.com/amp-labs/actionstate/logger"
	"github.com/amp-labs/actionstate/set"
)

// Command is an executable operation with observable availability.
type Command interface {
	// CanExecute reports whether Execute would currently be accepted.
	CanExecute() bool
	// Execute runs the command. Commands that start transitions return as
	// soon as the transition has started.
	Execute(ctx context.Context, param any) error
	// OnCanExecuteChanged registers fn to run when CanExecute may have
	// changed. The returned function removes the registration.
	OnCanExecuteChanged(fn func()) (unsubscribe func())
}

func subscribeChanged(l *listeners[struct{}], fn func()) func() {
	if fn == nil {
		return func() {}
	}

	return l.add(func(struct{}) { fn() })
}

// RelayCommand is a Command backed by plain functions.
type RelayCommand struct {
	execute    func(ctx context.Context, param any) error
	canExecute func() bool
	changed    listeners[struct{}]
}

var _ Command = (*RelayCommand)(nil)

// NewRelayCommand creates a command. A nil canExecute means always available.
func NewRelayCommand(execute func(ctx context.Context, param any) error, canExecute func() bool) *RelayCommand {
	return &RelayCommand{
		execute:    execute,
		canExecute: canExecute,
	}
}

// CanExecute calls the canExecute function, if any.
func (c *RelayCommand) CanExecute() bool {
	if c.canExecute == nil {
		return true
	}

	return c.canExecute()
}

// Execute calls the execute function. It does not consult CanExecute.
func (c *RelayCommand) Execute(ctx context.Context, param any) error {
	if c.execute == nil {
		return nil
	}

	return c.execute(ctx, param)
}

// OnCanExecuteChanged registers fn to run on RaiseCanExecuteChanged.
func (c *RelayCommand) OnCanExecuteChanged(fn func()) (unsubscribe func()) {
	return subscribeChanged(&c.changed, fn)
}

// RaiseCanExecuteChanged notifies listeners that availability may have changed.
func (c *RelayCommand) RaiseCanExecuteChanged() {
	c.changed.emit(struct{}{})
}

// transitionCommand starts a transition and reports failures to the log.
// It is always available.
type transitionCommand struct {
	destination string
	start       func(ctx context.Context, state string, param any) *future.Future[string]
}

func (c *transitionCommand) CanExecute() bool {
	return true
}

func (c *transitionCommand) Execute(ctx context.Context, param any) error {
	fut := c.start(ctx, c.destination, param)

	fut.OnError(func(err error) {
		logger.Get(ctx).Error("transition command failed",
			"destination", c.destination,
			"error", err)
	})

	return nil
}

func (c *transitionCommand) OnCanExecuteChanged(func()) (unsubscribe func()) {
	return func() {}
}

// TransitionCommand returns a command that calls TransitionTo(destination).
func (m *Machine) TransitionCommand(destination string) Command {
	return &transitionCommand{destination: destination, start: m.TransitionTo}
}

// EnqueuingTransitionCommand returns a command that calls
// EnqueueTransitionTo(destination).
func (m *Machine) EnqueuingTransitionCommand(destination string) Command {
	return &transitionCommand{destination: destination, start: m.EnqueueTransitionTo}
}

// CancelCommand returns the command that cancels the running cancelable
// action state.
func (m *Machine) CancelCommand() Command {
	return m.gate
}

// BoundCommand restricts another command to a set of machine states.
type BoundCommand struct {
	machine *Machine
	inner   Command

	mu     sync.Mutex
	states *set.StringSet
	wasIn  bool
	closed bool

	changed          listeners[struct{}]
	unsubscribeState func()
	unsubscribeInner func()
}

var _ Command = (*BoundCommand)(nil)

// BindCommand returns a command that is available only while the machine
// is in one of states and cmd itself is available. Binding a BoundCommand
// of this machine again adds states to it instead of wrapping it.
//
// The machine keeps no record of its bound commands, so binding the same
// inner command twice yields two independent wrappers. To grow one bound
// set, pass the returned *BoundCommand back in.
func (m *Machine) BindCommand(cmd Command, states ...string) *BoundCommand {
	if bound, ok := cmd.(*BoundCommand); ok && bound.machine == m {
		bound.add(states...)

		return bound
	}

	bound := &BoundCommand{
		machine: m,
		inner:   cmd,
		states:  set.NewStringSet(foldName),
	}

	bound.states.AddAll(states...)

	bound.wasIn = bound.inBoundState()
	bound.unsubscribeState = m.notifier.Subscribe(bound.onPropertyChanged)
	bound.unsubscribeInner = cmd.OnCanExecuteChanged(bound.raise)

	return bound
}

func (b *BoundCommand) add(states ...string) {
	b.mu.Lock()
	b.states.AddAll(states...)
	b.mu.Unlock()

	b.onPropertyChanged(PropertyState)
}

func (b *BoundCommand) inBoundState() bool {
	state, err := b.machine.State()
	if err != nil {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.states.Contains(state)
}

// onPropertyChanged raises only when the machine crosses the boundary of
// the bound set.
func (b *BoundCommand) onPropertyChanged(property string) {
	if property != PropertyState {
		return
	}

	in := b.inBoundState()

	b.mu.Lock()
	crossed := in != b.wasIn && !b.closed
	b.wasIn = in
	b.mu.Unlock()

	if crossed {
		b.raise()
	}
}

func (b *BoundCommand) raise() {
	b.changed.emit(struct{}{})
}

// States returns the bound states in natural order, each in the spelling
// it was first bound with.
func (b *BoundCommand) States() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.states.NaturalSortedEntries()
}

// CanExecute reports whether the machine is in a bound state and the inner
// command is available.
func (b *BoundCommand) CanExecute() bool {
	return b.inBoundState() && b.inner.CanExecute()
}

// Execute runs the inner command, or returns ErrCommandUnavailable when
// CanExecute is false.
func (b *BoundCommand) Execute(ctx context.Context, param any) error {
	if !b.CanExecute() {
		return ErrCommandUnavailable
	}

	return b.inner.Execute(ctx, param)
}

// OnCanExecuteChanged registers fn to run when the machine enters or leaves
// the bound states, and whenever the inner command raises.
func (b *BoundCommand) OnCanExecuteChanged(fn func()) (unsubscribe func()) {
	return subscribeChanged(&b.changed, fn)
}

// Close detaches the command from the machine and the inner command.
func (b *BoundCommand) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()

		return nil
	}

	b.closed = true
	b.mu.Unlock()

	b.unsubscribeState()
	b.unsubscribeInner()

	return nil
}
