package statemachine_test

import (
	"os"
	"testing"
	"testing/fstest"

	"github.com/amp-labs/actionstate/statemachine"
	smtesting "github.com/amp-labs/actionstate/statemachine/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadCheckout(t *testing.T) *statemachine.Definition {
	t.Helper()

	def, err := statemachine.LoadDefinition("testdata/checkout.yaml")
	require.NoError(t, err)

	return def
}

func buildCheckout(t *testing.T) *statemachine.Runtime {
	t.Helper()

	config := statemachine.DefaultConfig()
	config.Name = t.Name()
	config.Metrics = false

	rt, err := loadCheckout(t).Build(t.Context(), config, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	return rt
}

func TestLoadDefinition(t *testing.T) {
	t.Parallel()

	def := loadCheckout(t)

	assert.Equal(t, "checkout", def.Name)
	assert.Equal(t, "loading", def.Initial)
	assert.Equal(t,
		[]string{"broken", "editing", "loading", "saved", "saving", "validating"},
		def.StateNames())

	saving, ok := def.State("SAVING")
	require.True(t, ok)
	assert.True(t, saving.IsAction())
	assert.Equal(t, statemachine.StateKindCancelable, saving.Kind)

	editing, ok := def.State("editing")
	require.True(t, ok)
	assert.False(t, editing.IsAction())
}

func TestLoadDefinitionFromFS(t *testing.T) {
	t.Parallel()

	data, err := os.ReadFile("testdata/checkout.yaml")
	require.NoError(t, err)

	fsys := fstest.MapFS{"defs/checkout.yaml": &fstest.MapFile{Data: data}}

	def, err := statemachine.LoadDefinitionFromFS(fsys, "defs/checkout.yaml")
	require.NoError(t, err)
	assert.Equal(t, "checkout", def.Name)
}

func TestDefinition_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		def     statemachine.Definition
		wantErr error
	}{
		{
			name:    "missing name",
			def:     statemachine.Definition{Initial: "a"},
			wantErr: statemachine.ErrDefinitionNameRequired,
		},
		{
			name:    "missing initial",
			def:     statemachine.Definition{Name: "d"},
			wantErr: statemachine.ErrInitialStateRequired,
		},
		{
			name: "undeclared initial",
			def: statemachine.Definition{
				Name: "d", Initial: "a",
				States: []statemachine.StateDefinition{{Name: "b"}},
			},
			wantErr: statemachine.ErrUnknownState,
		},
		{
			name: "duplicate state",
			def: statemachine.Definition{
				Name: "d", Initial: "a",
				States: []statemachine.StateDefinition{{Name: "a"}, {Name: "A"}},
			},
			wantErr: statemachine.ErrDuplicateState,
		},
		{
			name: "unknown kind",
			def: statemachine.Definition{
				Name: "d", Initial: "a",
				States: []statemachine.StateDefinition{{Name: "a", Kind: "parallel", Next: "a"}},
			},
			wantErr: statemachine.ErrUnknownStateKind,
		},
		{
			name: "action without next",
			def: statemachine.Definition{
				Name: "d", Initial: "a",
				States: []statemachine.StateDefinition{{Name: "a", Kind: "sync"}},
			},
			wantErr: statemachine.ErrNextStateRequired,
		},
		{
			name: "quiet state with behavior",
			def: statemachine.Definition{
				Name: "d", Initial: "a",
				States: []statemachine.StateDefinition{{Name: "a", Next: "a"}},
			},
			wantErr: statemachine.ErrQuietStateBehavior,
		},
		{
			name: "next not declared",
			def: statemachine.Definition{
				Name: "d", Initial: "a",
				States: []statemachine.StateDefinition{{Name: "a", Kind: "async", Next: "z"}},
			},
			wantErr: statemachine.ErrUnknownState,
		},
		{
			name: "duplicate command",
			def: statemachine.Definition{
				Name: "d", Initial: "a",
				States:   []statemachine.StateDefinition{{Name: "a"}},
				Commands: []statemachine.CommandDefinition{{Name: "go", Target: "a"}, {Name: "Go", Target: "a"}},
			},
			wantErr: statemachine.ErrDuplicateCommand,
		},
		{
			name: "command bound to undeclared state",
			def: statemachine.Definition{
				Name: "d", Initial: "a",
				States:   []statemachine.StateDefinition{{Name: "a"}},
				Commands: []statemachine.CommandDefinition{{Name: "go", Target: "a", States: []string{"x"}}},
			},
			wantErr: statemachine.ErrUnknownState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.def.Validate()
			require.ErrorIs(t, err, tt.wantErr)
			require.ErrorIs(t, err, statemachine.ErrConfiguration)
		})
	}
}

func TestRuntime_Walk(t *testing.T) {
	t.Parallel()

	rt := buildCheckout(t)
	m := rt.Machine
	rec := smtesting.Record(t, m)

	final, err := smtesting.Await(t, m.Transition())
	require.NoError(t, err)
	assert.Equal(t, "editing", final)

	assert.Equal(t, []string{"broken", "loading", "saving", "validating"}, m.ActionStates())
	assert.Equal(t, []string{"break", "edit", "save"}, rt.CommandNames())
	assert.Equal(t, []string{"break", "edit", "save"}, rt.AvailableCommands())

	save, ok := rt.Command("save")
	require.True(t, ok)
	require.NoError(t, save.Execute(t.Context(), nil))

	rec.WaitFor(t, "saving")
	assert.True(t, m.CancelCommand().CanExecute())
	assert.Equal(t, []string{"edit"}, rt.AvailableCommands())

	running := m.Transition()
	require.NoError(t, m.CancelCommand().Execute(t.Context(), nil))

	_, err = smtesting.Await(t, running)
	require.ErrorIs(t, err, statemachine.ErrCanceled)

	edit, ok := rt.Command("edit")
	require.True(t, ok)
	require.NoError(t, edit.Execute(t.Context(), nil))

	state, err := m.State()
	require.NoError(t, err)
	assert.Equal(t, "editing", state)
}

func TestRuntime_ScriptedFailure(t *testing.T) {
	t.Parallel()

	rt := buildCheckout(t)
	m := rt.Machine

	_, err := smtesting.Await(t, m.Transition())
	require.NoError(t, err)

	_, err = smtesting.Await(t, m.TransitionTo(t.Context(), "broken", nil))
	require.ErrorIs(t, err, statemachine.ErrScriptedFailure)
	require.ErrorIs(t, err, statemachine.ErrHandlerFault)
	assert.Contains(t, err.Error(), "payment declined")
}

func TestBuild_CustomFactory(t *testing.T) {
	t.Parallel()

	def := &statemachine.Definition{
		Name:    "custom",
		Initial: "start",
		States: []statemachine.StateDefinition{
			{Name: "start", Kind: "sync", Next: "end"},
			{Name: "end"},
		},
	}

	factory := statemachine.NewHandlerFactory()
	called := make(chan string, 1)

	factory.Register("sync", func(sd statemachine.StateDefinition) (statemachine.Handler, error) {
		return statemachine.Sync(func(ac *statemachine.ActionContext) error {
			called <- sd.Name
			ac.Enter(sd.Next)

			return nil
		}), nil
	})

	rt, err := def.Build(t.Context(), nil, factory)
	require.NoError(t, err)
	assert.Equal(t, "custom", rt.Machine.Name())

	final, err := smtesting.Await(t, rt.Machine.Transition())
	require.NoError(t, err)
	assert.Equal(t, "end", final)
	assert.Equal(t, "start", <-called)
}
