package statemachine

import (
	"context"
	"errors"
	"fmt"

	"github.com/amp-labs/actionstate/future"
	"github.com/amp-labs/actionstate/logger"
)

// TransitionWithRecovery is TransitionTo for callers that handle faults in a
// callback instead of through the returned future.
//
// When a run fails in a handler, onError receives an ErrorContext. Setting
// NextState starts a new run there, and the loop repeats. Setting
// CanTransition to false aborts with the original error. Leaving NextState
// empty fails with ErrUnhandledFault. CanTransition starts out true only when
// the machine is idle as onError runs.
//
// Failures that happen before a run starts, such as ErrBusy, are returned
// without calling onError.
//
// Deprecated: await the future returned by TransitionTo instead.
func (m *Machine) TransitionWithRecovery(
	ctx context.Context,
	state string,
	param any,
	onError func(*ErrorContext),
) *future.Future[string] {
	first := m.TransitionTo(ctx, state, param)
	if onError == nil {
		return first
	}

	if first.IsDone() {
		if _, err := first.Await(); err == nil {
			return first
		}
	}

	return future.GoContext(ctx, func(ctx context.Context) (string, error) {
		return m.recoverFrom(ctx, first, param, onError)
	})
}

func (m *Machine) recoverFrom(
	ctx context.Context,
	fut *future.Future[string],
	param any,
	onError func(*ErrorContext),
) (string, error) {
	for {
		final, err := fut.Await()
		if err == nil {
			return final, nil
		}

		var stateErr *StateError
		if !errors.As(err, &stateErr) {
			return "", err
		}

		errCtx := &ErrorContext{
			FaultedState:  stateErr.State,
			IsCanceled:    errors.Is(err, ErrCanceled),
			CanTransition: !m.IsBusy(),
		}

		if !errCtx.IsCanceled {
			errCtx.Err = stateErr.Err
		}

		onError(errCtx)

		if !errCtx.CanTransition {
			return "", err
		}

		if errCtx.NextState == "" {
			return "", fmt.Errorf("%w: %w", ErrUnhandledFault, err)
		}

		logger.Get(ctx).Debug("recovering from failed transition",
			"faulted_state", errCtx.FaultedState,
			"next_state", errCtx.NextState)

		fut = m.TransitionTo(ctx, errCtx.NextState, param)
	}
}

// RecoveringTransitionCommand returns a command that calls
// TransitionWithRecovery(destination, onError).
//
// Deprecated: use TransitionCommand.
func (m *Machine) RecoveringTransitionCommand(destination string, onError func(*ErrorContext)) Command {
	return &transitionCommand{
		destination: destination,
		start: func(ctx context.Context, state string, param any) *future.Future[string] {
			return m.TransitionWithRecovery(ctx, state, param, onError)
		},
	}
}
