package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/amp-labs/actionstate/bgworker"
	"github.com/amp-labs/actionstate/logger"
	"github.com/amp-labs/actionstate/statemachine"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/atomic"
)

const (
	readHeaderTimeout = 5 * time.Second
	cancelOneIn       = 3

	defaultMachines   = 100
	defaultSteps      = 20
	defaultDelayScale = 0.01
)

type soakOptions struct {
	machines    int
	steps       int
	workers     int
	seed        uint64
	delayScale  float64
	metricsAddr string
	quiet       bool
}

// soakStats counts how the runs of a soak ended.
type soakStats struct {
	commands  atomic.Int64
	succeeded atomic.Int64
	faulted   atomic.Int64
	canceled  atomic.Int64
}

func (s *soakStats) record(err error) {
	switch {
	case err == nil:
		s.succeeded.Inc()
	case errors.Is(err, statemachine.ErrCanceled):
		s.canceled.Inc()
	default:
		s.faulted.Inc()
	}
}

func (s *soakStats) String() string {
	return fmt.Sprintf("commands=%d succeeded=%d faulted=%d canceled=%d",
		s.commands.Load(), s.succeeded.Load(), s.faulted.Load(), s.canceled.Load())
}

func soakCommand(ctx context.Context, args []string, out io.Writer) error {
	var (
		src  sources
		opts soakOptions
	)

	fs := flag.NewFlagSet("soak", flag.ContinueOnError)
	fs.SetOutput(out)
	src.register(fs)
	fs.IntVar(&opts.machines, "machines", defaultMachines, "number of machines to drive")
	fs.IntVar(&opts.steps, "steps", defaultSteps, "commands executed per machine")
	fs.IntVar(&opts.workers, "workers", 0, "worker pool size (default: BACKGROUND_WORKER_COUNT)")
	fs.Uint64Var(&opts.seed, "seed", rand.Uint64(), "random seed")
	fs.Float64Var(&opts.delayScale, "delay-scale", defaultDelayScale, "multiplier applied to definition delays")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while soaking")
	fs.BoolVar(&opts.quiet, "quiet", false, "discard the machines' logs while soaking")

	err := fs.Parse(args)
	if err != nil {
		return err
	}

	def, err := src.loadDefinition()
	if err != nil {
		return err
	}

	config, err := src.loadConfig(def)
	if err != nil {
		return err
	}

	if opts.metricsAddr != "" {
		stop := serveMetrics(ctx, opts.metricsAddr)
		defer stop()
	}

	stats, err := soak(ctx, def, config, opts)

	fmt.Fprintf(out, "soaked %d machines (seed %d): %s\n", opts.machines, opts.seed, stats)

	return err
}

// soak drives opts.machines machines concurrently, each through opts.steps
// randomly chosen commands. Handler faults and cancellations are counted,
// not returned. With opts.quiet the machines log nothing.
func soak(
	ctx context.Context,
	def *statemachine.Definition,
	config *statemachine.Config,
	opts soakOptions,
) (*soakStats, error) {
	stats := &soakStats{}
	factory := scaledFactory(opts.delayScale)
	ctx = logger.WithMuted(ctx, opts.quiet)

	pool := bgworker.New(ctx, opts.workers)
	defer pool.StopAndWait()

	err := pool.Each(ctx, opts.machines, func(ctx context.Context, i int) error {
		cfg := *config
		rng := rand.New(rand.NewPCG(opts.seed, uint64(i))) //nolint:gosec

		return soakOne(ctx, def, &cfg, factory, rng, opts.steps, stats)
	})

	return stats, err
}

func soakOne(
	ctx context.Context,
	def *statemachine.Definition,
	config *statemachine.Config,
	factory *statemachine.HandlerFactory,
	rng *rand.Rand,
	steps int,
	stats *soakStats,
) error {
	rt, err := def.Build(ctx, config, factory)
	if err != nil {
		return err
	}

	defer func() { _ = rt.Close() }()

	m := rt.Machine

	for range steps {
		_, err := m.Transition().AwaitContext(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		stats.record(err)

		choices := rt.AvailableCommands()
		if len(choices) == 0 {
			break
		}

		name := choices[rng.IntN(len(choices))]
		cmd, _ := rt.Command(name)

		err = cmd.Execute(ctx, nil)
		if err != nil {
			logger.Get(ctx).Warn("Command failed", "command", name, "error", err)

			continue
		}

		stats.commands.Inc()

		if m.CancelCommand().CanExecute() && rng.IntN(cancelOneIn) == 0 {
			_ = m.CancelCommand().Execute(ctx, nil)
		}
	}

	_, err = m.Transition().AwaitContext(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	stats.record(err)

	return nil
}

// scaledFactory builds the standard handlers with every delay multiplied
// by scale.
func scaledFactory(scale float64) *statemachine.HandlerFactory {
	base := statemachine.NewHandlerFactory()
	factory := statemachine.NewHandlerFactory()

	for _, kind := range []string{
		statemachine.StateKindSync,
		statemachine.StateKindAsync,
		statemachine.StateKindCancelable,
	} {
		factory.Register(kind, func(sd statemachine.StateDefinition) (statemachine.Handler, error) {
			sd.Delay = time.Duration(float64(sd.Delay) * scale)

			return base.Create(sd)
		})
	}

	return factory
}

// serveMetrics exposes the default Prometheus registry until the returned
// function is called.
func serveMetrics(ctx context.Context, addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Get(ctx).Error("Metrics server failed", "addr", addr, "error", err)
		}
	}()

	return func() {
		_ = server.Shutdown(context.WithoutCancel(ctx))
	}
}
