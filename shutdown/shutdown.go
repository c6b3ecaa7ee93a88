// Package shutdown coordinates graceful process shutdown: hooks registered
// with BeforeShutdown run once, before the context returned by SetupHandler
// is canceled.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/amp-labs/actionstate/logger"
)

var (
	mut     sync.Mutex          //nolint:gochecknoglobals
	hooks   []func()            //nolint:gochecknoglobals
	trigger func(reason string) //nolint:gochecknoglobals
)

// BeforeShutdown registers a function to be called before the shutdown
// context is canceled. Hooks run in registration order, so the top-level
// context is still alive while they clean up.
func BeforeShutdown(h func()) {
	if h == nil {
		return
	}

	mut.Lock()
	defer mut.Unlock()

	hooks = append(hooks, h)
}

// Shutdown triggers the shutdown process programmatically. It returns once
// the hooks have run. It does nothing before SetupHandler and must not be
// called from a hook.
func Shutdown() {
	mut.Lock()
	fire := trigger
	mut.Unlock()

	if fire != nil {
		fire("requested")
	}
}

// SetupHandler installs a handler for SIGINT and SIGTERM and returns a
// context derived from parent that is canceled once the hooks have run.
func SetupHandler(parent context.Context) context.Context {
	if parent == nil {
		parent = context.Background()
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(parent)

	var once sync.Once

	fire := func(reason string) {
		once.Do(func() {
			signal.Stop(signals)
			logger.Get(ctx).Warn("Shutting down", "reason", reason)
			cleanup()
			cancel()
		})
	}

	mut.Lock()
	trigger = fire
	mut.Unlock()

	go func() {
		select {
		case sig := <-signals:
			fire(sig.String())
		case <-ctx.Done():
			signal.Stop(signals)
		}
	}()

	return ctx
}

func cleanup() {
	mut.Lock()
	pending := hooks
	hooks = nil
	trigger = nil
	mut.Unlock()

	for _, h := range pending {
		h()
	}
}
