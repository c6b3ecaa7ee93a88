package statemachine

import (
	"context"
	"errors"
	"fmt"
)

// Error categories. Every error the machine returns matches exactly one of
// these with errors.Is.
var (
	// ErrConfiguration covers invalid registrations and configuration.
	ErrConfiguration = errors.New("state machine configuration error")
	// ErrInvalidTransition covers transition requests the machine refuses.
	ErrInvalidTransition = errors.New("invalid transition request")
	// ErrHandlerFault marks a handler that returned an error or panicked.
	ErrHandlerFault = errors.New("action state handler failed")
	// ErrCanceled marks a handler that stopped after observing cancellation.
	ErrCanceled = errors.New("action state canceled")
	// ErrCommandUnavailable is returned when executing a command whose CanExecute is false.
	ErrCommandUnavailable = errors.New("command is not available")
)

var (
	ErrInvalidStateName = fmt.Errorf("%w: state name must not be empty", ErrConfiguration)
	ErrDuplicateState   = fmt.Errorf("%w: action state already registered", ErrConfiguration)
	ErrRegistryFrozen   = fmt.Errorf("%w: cannot register action states after the first transition", ErrConfiguration)
	ErrInvalidHandler   = fmt.Errorf("%w: handler has no callback", ErrConfiguration)

	ErrArgument    = fmt.Errorf("%w: destination state must not be empty", ErrInvalidTransition)
	ErrBusy        = fmt.Errorf("%w: already in an action state", ErrInvalidTransition)
	ErrNoNextState = fmt.Errorf("%w: cannot transition to null state", ErrInvalidTransition)

	// ErrNotStarted is returned by State before the first transition has begun.
	ErrNotStarted = errors.New("state machine has not been started")

	// ErrUnhandledFault is returned by the recovery shim when the error
	// handler neither redirected nor aborted.
	ErrUnhandledFault = errors.New("fault was not handled")
)

// StateError wraps a handler fault or cancellation with the state it happened in.
type StateError struct {
	State string
	Err   error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state %s: %v", e.State, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// WrapStateError wraps an error with state context.
func WrapStateError(state string, err error) error {
	if err == nil {
		return nil
	}

	return &StateError{
		State: state,
		Err:   err,
	}
}

// handlerError classifies what a handler returned into a fault or a cancellation.
func handlerError(state string, err error) error {
	switch {
	case errors.Is(err, ErrCanceled):
		return WrapStateError(state, err)
	case errors.Is(err, context.Canceled):
		return WrapStateError(state, fmt.Errorf("%w: %w", ErrCanceled, err))
	default:
		return WrapStateError(state, fmt.Errorf("%w: %w", ErrHandlerFault, err))
	}
}
