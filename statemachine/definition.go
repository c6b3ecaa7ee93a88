package statemachine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"facette.io/natsort"
	"github.com/amp-labs/actionstate/set"
	"gopkg.in/yaml.v3"
)

// State kinds accepted in a definition.
const (
	StateKindQuiet      = "quiet"
	StateKindSync       = "sync"
	StateKindAsync      = "async"
	StateKindCancelable = "cancelable"
)

var (
	// ErrDefinitionNameRequired indicates that a definition name is required.
	ErrDefinitionNameRequired = fmt.Errorf("%w: definition name is required", ErrConfiguration)
	// ErrInitialStateRequired indicates that an initial state is required.
	ErrInitialStateRequired = fmt.Errorf("%w: initial state is required", ErrConfiguration)
	// ErrUnknownState indicates a reference to a state that is not declared.
	ErrUnknownState = fmt.Errorf("%w: state is not declared", ErrConfiguration)
	// ErrUnknownStateKind indicates an unsupported state kind.
	ErrUnknownStateKind = fmt.Errorf("%w: unknown state kind", ErrConfiguration)
	// ErrNextStateRequired indicates an action state with neither next nor fail.
	ErrNextStateRequired = fmt.Errorf("%w: action state needs next or fail", ErrConfiguration)
	// ErrQuietStateBehavior indicates a quiet state that declares handler behavior.
	ErrQuietStateBehavior = fmt.Errorf("%w: quiet state cannot declare next, delay or fail", ErrConfiguration)
	// ErrCommandNameRequired indicates a command without a name.
	ErrCommandNameRequired = fmt.Errorf("%w: command name is required", ErrConfiguration)
	// ErrDuplicateCommand indicates two commands with the same name.
	ErrDuplicateCommand = fmt.Errorf("%w: duplicate command name", ErrConfiguration)
	// ErrScriptedFailure is returned by handlers whose definition sets fail.
	ErrScriptedFailure = errors.New("scripted failure")
)

// Definition describes a machine declaratively: its states, what each
// action state does, and the commands that move between them.
type Definition struct {
	Name     string              `json:"name"     yaml:"name"`
	Initial  string              `json:"initial"  yaml:"initial"`
	States   []StateDefinition   `json:"states"   yaml:"states"`
	Commands []CommandDefinition `json:"commands" yaml:"commands"`
}

// StateDefinition describes one state. Kind defaults to quiet.
type StateDefinition struct {
	Name        string        `json:"name"        yaml:"name"`
	Kind        string        `json:"kind"        yaml:"kind"`
	Next        string        `json:"next"        yaml:"next"`
	Delay       time.Duration `json:"delay"       yaml:"delay"`
	Fail        string        `json:"fail"        yaml:"fail"`
	Description string        `json:"description" yaml:"description"`
}

// IsAction reports whether the state has a handler.
func (s StateDefinition) IsAction() bool {
	return s.Kind != "" && s.Kind != StateKindQuiet
}

// CommandDefinition describes a transition command, optionally bound to a
// set of states.
type CommandDefinition struct {
	Name    string   `json:"name"    yaml:"name"`
	Target  string   `json:"target"  yaml:"target"`
	States  []string `json:"states"  yaml:"states"`
	Enqueue bool     `json:"enqueue" yaml:"enqueue"`
}

// LoadDefinition loads a definition from a YAML file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Intentional path-based loading
	if err != nil {
		return nil, fmt.Errorf("failed to read definition file %q: %w", path, err)
	}

	return LoadDefinitionFromBytes(data)
}

// LoadDefinitionFromFS loads a definition from a filesystem such as embed.FS.
func LoadDefinitionFromFS(fsys fs.FS, path string) (*Definition, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition from FS: %w", err)
	}

	return LoadDefinitionFromBytes(data)
}

// LoadDefinitionFromBytes parses and validates a YAML definition.
func LoadDefinitionFromBytes(data []byte) (*Definition, error) {
	var def Definition

	err := yaml.Unmarshal(data, &def)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	err = def.Validate()
	if err != nil {
		return nil, err
	}

	return &def, nil
}

// Validate checks that the definition is complete and self-consistent.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return ErrDefinitionNameRequired
	}

	if d.Initial == "" {
		return ErrInitialStateRequired
	}

	declared := set.NewStringSet(foldName)

	for _, state := range d.States {
		if state.Name == "" {
			return ErrInvalidStateName
		}

		if !declared.Add(state.Name) {
			return WrapStateError(state.Name, ErrDuplicateState)
		}
	}

	known := declared.Contains

	if !known(d.Initial) {
		return fmt.Errorf("initial %q: %w", d.Initial, ErrUnknownState)
	}

	for _, state := range d.States {
		err := validateState(state, known)
		if err != nil {
			return WrapStateError(state.Name, err)
		}
	}

	commands := set.NewStringSet(foldName)

	for i, cmd := range d.Commands {
		if cmd.Name == "" {
			return fmt.Errorf("command %d: %w", i, ErrCommandNameRequired)
		}

		if !commands.Add(cmd.Name) {
			return fmt.Errorf("command %s: %w", cmd.Name, ErrDuplicateCommand)
		}

		if !known(cmd.Target) {
			return fmt.Errorf("command %s target %q: %w", cmd.Name, cmd.Target, ErrUnknownState)
		}

		for _, state := range cmd.States {
			if !known(state) {
				return fmt.Errorf("command %s state %q: %w", cmd.Name, state, ErrUnknownState)
			}
		}
	}

	return nil
}

func validateState(state StateDefinition, known func(string) bool) error {
	switch state.Kind {
	case "", StateKindQuiet:
		if state.Next != "" || state.Delay != 0 || state.Fail != "" {
			return ErrQuietStateBehavior
		}

		return nil
	case StateKindSync, StateKindAsync, StateKindCancelable:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownStateKind, state.Kind)
	}

	if state.Next == "" && state.Fail == "" {
		return ErrNextStateRequired
	}

	if state.Next != "" && !known(state.Next) {
		return fmt.Errorf("next %q: %w", state.Next, ErrUnknownState)
	}

	return nil
}

// State returns the definition of name (case-insensitive).
func (d *Definition) State(name string) (StateDefinition, bool) {
	for _, state := range d.States {
		if sameState(state.Name, name) {
			return state, true
		}
	}

	return StateDefinition{}, false
}

// StateNames returns every declared state name in natural order.
func (d *Definition) StateNames() []string {
	names := make([]string, 0, len(d.States))
	for _, state := range d.States {
		names = append(names, state.Name)
	}

	natsort.Sort(names)

	return names
}

// Runtime is a machine built from a Definition together with its commands.
type Runtime struct {
	Machine    *Machine
	Definition *Definition

	commands map[string]Command
	bound    []*BoundCommand
}

// Build creates a machine from the definition, registers its action states
// through factory, creates its commands and starts the transition to the
// initial state. A nil config uses DefaultConfig named after the definition.
// A nil factory uses NewHandlerFactory.
func (d *Definition) Build(ctx context.Context, config *Config, factory *HandlerFactory) (*Runtime, error) {
	err := d.Validate()
	if err != nil {
		return nil, err
	}

	if config == nil {
		config = DefaultConfig()
		config.Name = d.Name
	}

	if factory == nil {
		factory = NewHandlerFactory()
	}

	machine, err := New(config)
	if err != nil {
		return nil, err
	}

	for _, state := range d.States {
		if !state.IsAction() {
			continue
		}

		handler, err := factory.Create(state)
		if err != nil {
			return nil, fmt.Errorf("failed to build state %s: %w", state.Name, err)
		}

		err = machine.Register(state.Name, handler)
		if err != nil {
			return nil, err
		}
	}

	runtime := &Runtime{
		Machine:    machine,
		Definition: d,
		commands:   make(map[string]Command, len(d.Commands)),
	}

	for _, cmdDef := range d.Commands {
		var cmd Command
		if cmdDef.Enqueue {
			cmd = machine.EnqueuingTransitionCommand(cmdDef.Target)
		} else {
			cmd = machine.TransitionCommand(cmdDef.Target)
		}

		if len(cmdDef.States) > 0 {
			bound := machine.BindCommand(cmd, cmdDef.States...)
			runtime.bound = append(runtime.bound, bound)
			cmd = bound
		}

		runtime.commands[cmdDef.Name] = cmd
	}

	machine.TransitionTo(ctx, d.Initial, nil)

	return runtime, nil
}

// Command returns the command called name.
func (r *Runtime) Command(name string) (Command, bool) {
	cmd, ok := r.commands[name]

	return cmd, ok
}

// CommandNames returns the command names in natural order.
func (r *Runtime) CommandNames() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}

	natsort.Sort(names)

	return names
}

// AvailableCommands returns the names of commands that can execute now.
func (r *Runtime) AvailableCommands() []string {
	var names []string

	for _, name := range r.CommandNames() {
		if r.commands[name].CanExecute() {
			names = append(names, name)
		}
	}

	return names
}

// Close detaches the runtime's bound commands from the machine.
func (r *Runtime) Close() error {
	errs := make([]error, 0, len(r.bound))
	for _, bound := range r.bound {
		errs = append(errs, bound.Close())
	}

	return errors.Join(errs...)
}
