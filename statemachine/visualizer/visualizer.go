// Package visualizer renders machine definitions as Mermaid state diagrams.
//
//nolint:varnamelen // short names idiomatic
package visualizer

import (
	"errors"
	"fmt"
	"strings"

	"facette.io/natsort"
	"github.com/amp-labs/actionstate/statemachine"
	"golang.org/x/text/cases"
)

// Visualizer errors.
var (
	ErrDefinitionNil  = errors.New("definition cannot be nil")
	ErrNoInitialState = errors.New("definition must have an initial state")
)

// GenerateMermaid converts a Definition to a Mermaid state diagram.
func GenerateMermaid(def *statemachine.Definition) (string, error) {
	return GenerateMermaidWithOptions(def, DefaultOptions())
}

// GenerateMermaidFromFile loads a definition from a file and generates a Mermaid diagram.
func GenerateMermaidFromFile(path string) (string, error) {
	def, err := statemachine.LoadDefinition(path)
	if err != nil {
		return "", fmt.Errorf("failed to load definition: %w", err)
	}

	return GenerateMermaid(def)
}

// GenerateMermaidWithOptions generates a Mermaid diagram with custom options.
//
// Action states are styled by kind, quiet states are left plain, and a state
// whose handler is scripted to fail gets an edge to the end marker. A command
// bound to states is drawn from each of them; an unbound command is drawn
// from every quiet state, since those are the states a user acts from.
func GenerateMermaidWithOptions(def *statemachine.Definition, opts Options) (string, error) {
	if def == nil {
		return "", ErrDefinitionNil
	}

	if def.Initial == "" {
		return "", ErrNoInitialState
	}

	direction := opts.Direction
	if direction == "" {
		direction = "TD"
	}

	highlighted := make(map[string]bool, len(opts.HighlightPath))
	for _, state := range opts.HighlightPath {
		highlighted[fold(state)] = true
	}

	var sb strings.Builder

	sb.WriteString("```mermaid\n")
	fmt.Fprintf(&sb, "stateDiagram-%s\n", direction)
	fmt.Fprintf(&sb, "    [*] --> %s\n", nodeID(def.Initial))

	for _, state := range def.States {
		id := nodeID(state.Name)

		if opts.ShowKinds && state.IsAction() {
			fmt.Fprintf(&sb, "    %s: %s\\n[%s]\n", id, state.Name, state.Kind)
		}

		switch {
		case highlighted[fold(state.Name)]:
			fmt.Fprintf(&sb, "    class %s highlighted\n", id)
		case state.IsAction():
			fmt.Fprintf(&sb, "    class %s %sState\n", id, state.Kind)
		}

		if state.Next != "" {
			fmt.Fprintf(&sb, "    %s --> %s\n", id, nodeID(state.Next))
		}

		if state.Fail != "" {
			fmt.Fprintf(&sb, "    %s --> [*]: fail\n", id)
		}

		if opts.ShowCommands {
			writeCommandEdges(&sb, def, state)
		}
	}

	sb.WriteString("\n")
	sb.WriteString("    classDef syncState fill:#e1f5ff,stroke:#01579b,stroke-width:2px\n")
	sb.WriteString("    classDef asyncState fill:#ede7f6,stroke:#4527a0,stroke-width:2px\n")
	sb.WriteString("    classDef cancelableState fill:#c8e6c9,stroke:#2e7d32,stroke-width:2px\n")
	sb.WriteString("    classDef highlighted fill:#fff9c4,stroke:#f57f17,stroke-width:3px\n")

	sb.WriteString("```\n")

	return sb.String(), nil
}

// writeCommandEdges draws the commands available from state, in natural
// order of command name.
func writeCommandEdges(sb *strings.Builder, def *statemachine.Definition, state statemachine.StateDefinition) {
	edges := make(map[string]string)

	for _, cmd := range def.Commands {
		if fold(cmd.Target) == fold(state.Name) || !availableFrom(cmd, state) {
			continue
		}

		edges[cmd.Name] = cmd.Target
	}

	names := make([]string, 0, len(edges))
	for name := range edges {
		names = append(names, name)
	}

	natsort.Sort(names)

	for _, name := range names {
		fmt.Fprintf(sb, "    %s --> %s: %s\n", nodeID(state.Name), nodeID(edges[name]), name)
	}
}

func availableFrom(cmd statemachine.CommandDefinition, state statemachine.StateDefinition) bool {
	if len(cmd.States) == 0 {
		return !state.IsAction()
	}

	for _, bound := range cmd.States {
		if fold(bound) == fold(state.Name) {
			return true
		}
	}

	return false
}

// nodeID returns a Mermaid-safe identifier for a state name. State names
// are case-insensitive, so the identifier is folded.
func nodeID(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, fold(name))
}

func fold(name string) string {
	return cases.Fold().String(name)
}
