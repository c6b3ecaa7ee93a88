package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/amp-labs/actionstate/statemachine"
	"github.com/amp-labs/actionstate/statemachine/visualizer"
)

const autoHighlight = "auto"

func graphCommand(args []string, out io.Writer) error {
	var (
		src        sources
		direction  string
		highlight  string
		noKinds    bool
		noCommands bool
	)

	fs := flag.NewFlagSet("graph", flag.ContinueOnError)
	fs.SetOutput(out)
	src.register(fs)
	fs.StringVar(&direction, "direction", "TD", "diagram direction: TD or LR")
	fs.StringVar(&highlight, "highlight", "",
		"comma-separated states to highlight, or \"auto\" for the path taken from the initial state")
	fs.BoolVar(&noKinds, "no-kinds", false, "omit handler kinds")
	fs.BoolVar(&noCommands, "no-commands", false, "omit command edges")

	err := fs.Parse(args)
	if err != nil {
		return err
	}

	def, err := src.loadDefinition()
	if err != nil {
		return err
	}

	opts := visualizer.DefaultOptions().
		WithDirection(direction).
		WithShowKinds(!noKinds).
		WithShowCommands(!noCommands)

	switch highlight {
	case "":
	case autoHighlight:
		opts = opts.WithHighlightPath(initialPath(def))
	default:
		opts = opts.WithHighlightPath(strings.Split(highlight, ","))
	}

	diagram, err := visualizer.GenerateMermaidWithOptions(def, opts)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(out, diagram)

	return err
}

// initialPath follows next from the initial state until it reaches a state
// without one or revisits a state.
func initialPath(def *statemachine.Definition) []string {
	var path []string

	seen := make(map[string]bool)

	for name := def.Initial; name != ""; {
		state, ok := def.State(name)
		if !ok || seen[state.Name] {
			break
		}

		seen[state.Name] = true
		path = append(path, state.Name)
		name = state.Next
	}

	return path
}
