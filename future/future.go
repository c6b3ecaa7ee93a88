// Package future provides a typed Future/Promise pair for asynchronous results.
//
// A Future is the read side of a computation that settles exactly once with
// either a value or an error. A Promise is the write side. Any number of
// goroutines may wait on a Future; all of them observe the same outcome.
package future

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/amp-labs/actionstate/utils"
)

// result pairs the value and error a future settles with.
type result[T any] struct {
	Value T
	Error error
}

// Future represents the read-only side of an asynchronous computation.
type Future[T any] struct {
	once        sync.Once
	resultReady chan struct{}
	result      result[T]

	mu               sync.Mutex
	successCallbacks []func(T)
	errorCallbacks   []func(error)
	resultCallbacks  []func(T, error)
}

// New creates an unsettled future together with the promise that settles it.
func New[T any]() (*Future[T], *Promise[T]) {
	fut := &Future[T]{
		resultReady: make(chan struct{}),
	}

	return fut, &Promise[T]{future: fut}
}

// Failed returns a future that has already settled with err.
func Failed[T any](err error) *Future[T] {
	fut, promise := New[T]()
	promise.Failure(err)

	return fut
}

// Go runs fn on a new goroutine and returns a future for its outcome.
// Panics inside fn are recovered and surface as the future's error.
func Go[T any](fn func() (T, error)) *Future[T] {
	fut, promise := New[T]()

	go func() {
		var value T

		err := utils.Protect(func() error {
			var err error

			value, err = fn()

			return err
		})

		promise.Complete(value, err)
	}()

	return fut
}

// GoContext is like Go but hands ctx to fn. It does not abandon fn when ctx
// ends; fn is expected to observe ctx itself.
func GoContext[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	if ctx == nil {
		ctx = context.Background()
	}

	return Go(func() (T, error) {
		return fn(ctx)
	})
}

// Done returns a channel that is closed once the future has settled.
func (f *Future[T]) Done() <-chan struct{} {
	return f.resultReady
}

// IsDone reports whether the future has settled, without blocking.
func (f *Future[T]) IsDone() bool {
	select {
	case <-f.resultReady:
		return true
	default:
		return false
	}
}

// Await blocks until the future settles and returns its outcome.
// It can be called any number of times.
func (f *Future[T]) Await() (T, error) { //nolint:ireturn
	<-f.resultReady

	return f.result.Value, f.result.Error
}

// AwaitContext is like Await but gives up when ctx is done, returning ctx.Err().
// Giving up does not affect the future itself.
func (f *Future[T]) AwaitContext(ctx context.Context) (T, error) { //nolint:ireturn
	if ctx == nil {
		return f.Await()
	}

	select {
	case <-f.resultReady:
		return f.result.Value, f.result.Error
	case <-ctx.Done():
		var zero T

		return zero, ctx.Err()
	}
}

// OnSuccess registers a callback invoked (on its own goroutine) with the value
// if the future settles successfully. Registering after settlement still fires.
func (f *Future[T]) OnSuccess(callback func(T)) {
	f.register(func() {
		if f.result.Error == nil {
			invokeCallback("OnSuccess", callback, f.result.Value)
		}
	}, func() {
		f.successCallbacks = append(f.successCallbacks, callback)
	})
}

// OnError registers a callback invoked (on its own goroutine) with the error
// if the future settles with one.
func (f *Future[T]) OnError(callback func(error)) {
	f.register(func() {
		if f.result.Error != nil {
			invokeCallback("OnError", callback, f.result.Error)
		}
	}, func() {
		f.errorCallbacks = append(f.errorCallbacks, callback)
	})
}

// OnResult registers a callback invoked (on its own goroutine) with the
// outcome, whatever it is.
func (f *Future[T]) OnResult(callback func(T, error)) {
	f.register(func() {
		invokeResultCallback(callback, f.result.Value, f.result.Error)
	}, func() {
		f.resultCallbacks = append(f.resultCallbacks, callback)
	})
}

// register either fires a callback immediately (already settled) or queues it.
// The mutex pairs with the one taken in Promise.fulfill so a callback is never
// dropped between the settled check and the queue append.
func (f *Future[T]) register(fireNow func(), enqueue func()) {
	f.mu.Lock()

	if f.IsDone() {
		f.mu.Unlock()
		fireNow()

		return
	}

	enqueue()
	f.mu.Unlock()
}

func invokeResultCallback[T any](callback func(T, error), value T, err error) {
	if callback == nil {
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logPanic("OnResult", utils.GetPanicRecoveryError(r, debug.Stack()))
			}
		}()

		callback(value, err)
	}()
}
