package statemachine

// AddValidationError records err and publishes PropertyErrors. Nil errors
// are ignored.
func (m *Machine) AddValidationError(err error) {
	if m.validation.Add(err) {
		m.notifier.Notify(PropertyErrors)
	}
}

// ClearValidationErrors removes every recorded error, publishing
// PropertyErrors if there were any.
func (m *Machine) ClearValidationErrors() {
	if m.validation.Clear() {
		m.notifier.Notify(PropertyErrors)
	}
}

// ValidationError returns the recorded errors joined into one, or nil.
func (m *Machine) ValidationError() error {
	return m.validation.GetError()
}

// ValidationErrors returns the recorded errors in the order they were added.
func (m *Machine) ValidationErrors() []error {
	return m.validation.Errors()
}

func (m *Machine) HasValidationErrors() bool {
	return m.validation.HasError()
}
