package statemachine

import (
	"context"
	"fmt"
)

// Kind is the shape of an action state handler.
type Kind int

const (
	// KindSync handlers run to completion without a context.
	KindSync Kind = iota + 1
	// KindAsync handlers receive the run's context.
	KindAsync
	// KindCancelable handlers receive a context the cancel command can cancel.
	KindCancelable
)

func (k Kind) String() string {
	switch k {
	case KindSync:
		return "sync"
	case KindAsync:
		return "async"
	case KindCancelable:
		return "cancelable"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// SyncFunc is the callback of a KindSync handler.
type SyncFunc func(ac *ActionContext) error

// AsyncFunc is the callback of a KindAsync or KindCancelable handler.
type AsyncFunc func(ctx context.Context, ac *ActionContext) error

// Handler is the work attached to an action state. Build one with Sync,
// Async or Cancelable.
type Handler struct {
	Kind Kind

	sync  SyncFunc
	async AsyncFunc
}

// Sync wraps a synchronous callback.
func Sync(fn SyncFunc) Handler {
	return Handler{Kind: KindSync, sync: fn}
}

// Async wraps a callback that may block on ctx.
func Async(fn AsyncFunc) Handler {
	return Handler{Kind: KindAsync, async: fn}
}

// Cancelable wraps a callback whose ctx is canceled, with cause ErrCanceled,
// when the machine's cancel command executes.
func Cancelable(fn AsyncFunc) Handler {
	return Handler{Kind: KindCancelable, async: fn}
}

func (h Handler) validate() error {
	switch h.Kind {
	case KindSync:
		if h.sync == nil {
			return ErrInvalidHandler
		}
	case KindAsync, KindCancelable:
		if h.async == nil {
			return ErrInvalidHandler
		}
	default:
		return fmt.Errorf("%w: unknown kind %s", ErrInvalidHandler, h.Kind)
	}

	return nil
}

func (h Handler) invoke(ctx context.Context, ac *ActionContext) error {
	if h.Kind == KindSync {
		return h.sync(ac)
	}

	return h.async(ctx, ac)
}
