package statemachine

// ActionContext is handed to the handler of every action state entered
// during a run. A fresh one is built per state.
type ActionContext struct {
	// Machine is the machine running the handler.
	Machine *Machine
	// RunID identifies the transition run the state belongs to.
	RunID string
	// PreviousState is the state published before this one. It is empty only
	// for the first state the machine ever enters.
	PreviousState string
	// State is the action state being executed.
	State string
	// Parameter is the value given to the call that started the run. It is
	// the same for every state of the run.
	Parameter any
	// NextState must be set by the handler before it returns successfully.
	NextState string
}

// Enter sets the state the machine moves to after this handler returns.
func (ac *ActionContext) Enter(next string) {
	ac.NextState = next
}

// ErrorContext describes a failed run to a recovery handler.
type ErrorContext struct {
	FaultedState string
	IsCanceled   bool
	// Err is the handler's error. It is nil when the run was canceled.
	Err error
	// NextState redirects the machine when set.
	NextState string
	// CanTransition is false when the machine was busy when the handler ran.
	// Setting it to false aborts recovery.
	CanTransition bool
}
