package future

import "go.uber.org/atomic"

// Promise represents the write-only side of an asynchronous computation.
//
// A promise settles its future exactly once. Later calls to Success, Failure
// or Complete are ignored, so competing producers can race safely. Settling
// unblocks every goroutine waiting on the future and fires queued callbacks.
type Promise[T any] struct {
	future    *Future[T]
	fulfilled atomic.Bool
}

// Future returns the read side this promise settles.
func (p *Promise[T]) Future() *Future[T] {
	return p.future
}

// IsFulfilled reports whether the promise has already been settled.
func (p *Promise[T]) IsFulfilled() bool {
	return p.fulfilled.Load()
}

// fulfill stores the outcome, broadcasts completion by closing resultReady,
// and dispatches the callbacks that were queued before settlement.
func (p *Promise[T]) fulfill(res result[T]) {
	p.future.once.Do(func() {
		p.future.result = res

		// Holding the lock while closing keeps register from queuing a callback
		// that would never be collected.
		p.future.mu.Lock()
		close(p.future.resultReady)

		successCallbacks := p.future.successCallbacks
		errorCallbacks := p.future.errorCallbacks
		resultCallbacks := p.future.resultCallbacks

		p.future.successCallbacks = nil
		p.future.errorCallbacks = nil
		p.future.resultCallbacks = nil
		p.future.mu.Unlock()

		p.fulfilled.Store(true)

		for _, callback := range resultCallbacks {
			invokeResultCallback(callback, res.Value, res.Error)
		}

		if res.Error == nil {
			for _, callback := range successCallbacks {
				invokeCallback("OnSuccess", callback, res.Value)
			}
		} else {
			for _, callback := range errorCallbacks {
				invokeCallback("OnError", callback, res.Error)
			}
		}
	})
}

// Success settles the future with value.
func (p *Promise[T]) Success(value T) {
	p.fulfill(result[T]{Value: value})
}

// Failure settles the future with err. The value is the zero value of T.
func (p *Promise[T]) Failure(err error) {
	var zero T

	p.fulfill(result[T]{Value: zero, Error: err})
}

// Complete settles the future from a (value, error) pair, following Go's
// usual convention: a non-nil error wins and the value is discarded.
func (p *Promise[T]) Complete(value T, err error) {
	if err != nil {
		p.Failure(err)
	} else {
		p.Success(value)
	}
}

// Adopt settles this promise with whatever fut settles with, once it does.
func (p *Promise[T]) Adopt(fut *Future[T]) {
	go func() {
		p.Complete(fut.Await())
	}()
}
