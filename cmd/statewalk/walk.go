package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/amp-labs/actionstate/cli"
	"github.com/amp-labs/actionstate/statemachine"
	"github.com/manifoldco/promptui"
)

const (
	choiceCancel = "[cancel]"
	choiceWait   = "[wait]"
	choiceQuit   = "[quit]"
)

// walkCommand lets the user drive a machine by picking commands.
func walkCommand(ctx context.Context, args []string, out io.Writer) error {
	var src sources

	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(out)
	src.register(fs)

	err := fs.Parse(args)
	if err != nil {
		return err
	}

	rt, err := src.build(ctx)
	if err != nil {
		return err
	}

	defer func() { _ = rt.Close() }()

	unsubscribe := rt.Machine.Notifier().Subscribe(func(property string) {
		if property == statemachine.PropertyState {
			state, _ := rt.Machine.State()
			fmt.Fprintf(out, "-> %s\n", state)
		}
	})
	defer unsubscribe()

	for ctx.Err() == nil {
		done, err := walkStep(ctx, rt, out)
		if err != nil || done {
			return err
		}
	}

	return nil
}

// walkChoices lists what the user can do in the machine's current state.
func walkChoices(rt *statemachine.Runtime) []string {
	choices := rt.AvailableCommands()

	if rt.Machine.CancelCommand().CanExecute() {
		choices = append(choices, choiceCancel)
	}

	if rt.Machine.IsBusy() {
		choices = append(choices, choiceWait)
	}

	return append(choices, choiceQuit)
}

func walkStep(ctx context.Context, rt *statemachine.Runtime, out io.Writer) (bool, error) {
	m := rt.Machine

	state, err := m.State()
	if err != nil {
		state = "(not started)"
	}

	choice, err := cli.Select("State: "+state, walkChoices(rt)...)
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return true, nil
		}

		return true, err
	}

	switch choice {
	case choiceQuit:
		if !m.IsBusy() {
			return true, nil
		}

		return cli.PromptConfirm("A transition is running. Quit anyway")
	case choiceWait:
		final, err := m.Transition().AwaitContext(ctx)
		report(out, final, err)
	case choiceCancel:
		err := m.CancelCommand().Execute(ctx, nil)
		if err != nil {
			fmt.Fprintf(out, "cannot cancel: %v\n", err)
		}
	default:
		cmd, ok := rt.Command(choice)
		if !ok {
			return false, nil
		}

		err := cmd.Execute(ctx, nil)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", choice, err)
		}
	}

	return false, nil
}

func report(out io.Writer, final string, err error) {
	switch {
	case errors.Is(err, statemachine.ErrCanceled):
		fmt.Fprintln(out, "transition canceled")
	case err != nil:
		fmt.Fprintf(out, "transition failed: %v\n", err)
	default:
		fmt.Fprintf(out, "settled in %s\n", final)
	}
}
