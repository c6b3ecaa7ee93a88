package statemachine

import (
	"context"
	"fmt"
	"time"
)

// HandlerFactory creates handlers from state definitions.
// Applications can register custom builders to extend the set of kinds.
type HandlerFactory struct {
	builders map[string]HandlerBuilder
}

// HandlerBuilder creates a handler for a state definition.
type HandlerBuilder func(def StateDefinition) (Handler, error)

// NewHandlerFactory creates a factory with builders for the sync, async and
// cancelable kinds.
func NewHandlerFactory() *HandlerFactory {
	factory := &HandlerFactory{
		builders: make(map[string]HandlerBuilder),
	}

	factory.Register(StateKindSync, syncHandlerBuilder)
	factory.Register(StateKindAsync, asyncHandlerBuilder)
	factory.Register(StateKindCancelable, cancelableHandlerBuilder)

	return factory
}

// Register registers a builder for a state kind, replacing any existing one.
func (f *HandlerFactory) Register(kind string, builder HandlerBuilder) {
	f.builders[kind] = builder
}

// Create builds the handler for def.
func (f *HandlerFactory) Create(def StateDefinition) (Handler, error) {
	builder, ok := f.builders[def.Kind]
	if !ok {
		return Handler{}, fmt.Errorf("%w: %s", ErrUnknownStateKind, def.Kind)
	}

	return builder(def)
}

// finish applies the scripted outcome of def to ac.
func finish(def StateDefinition, ac *ActionContext) error {
	if def.Fail != "" {
		return fmt.Errorf("%w: %s", ErrScriptedFailure, def.Fail)
	}

	ac.Enter(def.Next)

	return nil
}

// pause waits for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func syncHandlerBuilder(def StateDefinition) (Handler, error) {
	return Sync(func(ac *ActionContext) error {
		time.Sleep(def.Delay)

		return finish(def, ac)
	}), nil
}

func delayed(def StateDefinition) AsyncFunc {
	return func(ctx context.Context, ac *ActionContext) error {
		err := pause(ctx, def.Delay)
		if err != nil {
			return err
		}

		return finish(def, ac)
	}
}

func asyncHandlerBuilder(def StateDefinition) (Handler, error) {
	return Async(delayed(def)), nil
}

func cancelableHandlerBuilder(def StateDefinition) (Handler, error) {
	return Cancelable(delayed(def)), nil
}
