// Command statewalk loads a machine definition and walks it: interactively
// (run), under concurrent load (soak), or as a Mermaid diagram (graph).
package main

import (
	"context"
	"embed"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/amp-labs/actionstate/envutil"
	"github.com/amp-labs/actionstate/logger"
	"github.com/amp-labs/actionstate/shutdown"
	"github.com/amp-labs/actionstate/statemachine"
	"github.com/amp-labs/actionstate/telemetry"
)

const (
	appName           = "statewalk"
	envPrefix         = "STATEWALK"
	defaultDefinition = "definitions/checkout.yaml"
)

//go:embed definitions/*.yaml
var definitions embed.FS

var errUsage = errors.New("usage: statewalk <run|soak|graph> [flags]")

func main() {
	ctx := shutdown.SetupHandler(context.Background())

	err := setupObservability(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	err = dispatch(ctx, os.Args[1:], os.Stdout)

	shutdown.Shutdown()

	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, err)
		}

		os.Exit(1)
	}
}

// setupObservability configures logging and, when enabled, OpenTelemetry
// export. Telemetry is flushed by the shutdown hooks.
func setupObservability(ctx context.Context) error {
	ctx = logger.WithSubsystem(ctx, appName)

	env := envutil.String("ENVIRONMENT", envutil.Default("local")).ValueOrElse("local")

	config, err := telemetry.LoadConfigFromEnv(ctx, env)
	if err != nil {
		return fmt.Errorf("failed to load telemetry config: %w", err)
	}

	err = telemetry.Initialize(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logger.ConfigureLogging(ctx, appName, logger.WithHandler(telemetry.LogHandler(appName)))

	shutdown.BeforeShutdown(func() {
		err := telemetry.Shutdown(context.WithoutCancel(ctx))
		if err != nil {
			logger.Get(ctx).Error("Failed to shut down telemetry", "error", err)
		}
	})

	return nil
}

func dispatch(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "run":
		return walkCommand(ctx, args[1:], out)
	case "soak":
		return soakCommand(ctx, args[1:], out)
	case "graph":
		return graphCommand(args[1:], out)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

// sources holds the flags shared by every subcommand.
type sources struct {
	definition string
	config     string
}

func (s *sources) register(fs *flag.FlagSet) {
	fs.StringVar(&s.definition, "def", "", "definition YAML (default: built-in checkout flow)")
	fs.StringVar(&s.config, "config", "", "machine config YAML (default: "+envPrefix+"_* environment)")
}

func (s *sources) loadDefinition() (*statemachine.Definition, error) {
	if s.definition == "" {
		return statemachine.LoadDefinitionFromFS(definitions, defaultDefinition)
	}

	return statemachine.LoadDefinition(s.definition)
}

// loadConfig loads the machine config. An unnamed machine takes the
// definition's name.
func (s *sources) loadConfig(def *statemachine.Definition) (*statemachine.Config, error) {
	var (
		config *statemachine.Config
		err    error
	)

	if s.config != "" {
		config, err = statemachine.LoadConfig(s.config)
	} else {
		config, err = statemachine.LoadConfigFromEnv(envPrefix)
	}

	if err != nil {
		return nil, err
	}

	if config.Name == statemachine.DefaultConfig().Name {
		config.Name = def.Name
	}

	return config, nil
}

func (s *sources) build(ctx context.Context) (*statemachine.Runtime, error) {
	def, err := s.loadDefinition()
	if err != nil {
		return nil, err
	}

	config, err := s.loadConfig(def)
	if err != nil {
		return nil, err
	}

	return def.Build(ctx, config, nil)
}
