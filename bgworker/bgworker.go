// Package bgworker runs batches of work on a bounded worker pool that stops
// cleanly on shutdown.
package bgworker

import (
	"context"
	"errors"
	"fmt"

	"github.com/alitto/pond/v2"
	"github.com/amp-labs/actionstate/envutil"
	"github.com/amp-labs/actionstate/logger"
	"github.com/amp-labs/actionstate/shutdown"
	"github.com/amp-labs/actionstate/utils"
)

const defaultWorkerCount = 10

// WorkerCount returns BACKGROUND_WORKER_COUNT, or 10 when unset or invalid.
func WorkerCount() int {
	return envutil.Int[int]("BACKGROUND_WORKER_COUNT",
		envutil.Default(defaultWorkerCount)).ValueOrElse(defaultWorkerCount)
}

// Pool is a fixed-size worker pool.
type Pool struct {
	pool pond.Pool
}

// New creates a pool with size workers. A size of zero or less uses
// WorkerCount. The pool is stopped by the shutdown hooks.
func New(ctx context.Context, size int) *Pool {
	if size <= 0 {
		size = WorkerCount()
	}

	logger.Get(ctx).Debug("Initializing background worker pool", "count", size)

	p := &Pool{pool: pond.NewPool(size, pond.WithContext(ctx))}

	shutdown.BeforeShutdown(func() {
		logger.Get(ctx).Debug("Stopping background worker pool")
		p.StopAndWait()
	})

	return p
}

// Submit submits fn and returns a Task that can be used to wait for it.
// A panic in fn is returned as the task's error.
func (p *Pool) Submit(fn func() error) pond.Task { //nolint:ireturn
	return p.pool.SubmitErr(func() error {
		return utils.Protect(fn)
	})
}

// Go submits fn and returns immediately. It fails if the pool is stopped.
func (p *Pool) Go(fn func()) error {
	return p.pool.Go(fn)
}

// StopAndWait stops accepting work and waits for running tasks.
func (p *Pool) StopAndWait() {
	p.pool.StopAndWait()
}

// Each runs fn for every index in [0, n) and returns every failure joined.
// Indexes whose task was never started because ctx ended report ctx's error.
func (p *Pool) Each(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	tasks := make([]pond.Task, n)

	for i := range n {
		tasks[i] = p.Submit(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			return fn(ctx, i)
		})
	}

	errs := make([]error, 0, n)

	for i, task := range tasks {
		if err := task.Wait(); err != nil {
			errs = append(errs, fmt.Errorf("task %d: %w", i, err))
		}
	}

	return errors.Join(errs...)
}
