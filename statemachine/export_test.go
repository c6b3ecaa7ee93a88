package statemachine

// SetBeforeDequeue installs a hook that runs in queued transitions after the
// run they waited for settled and before they try to start.
func SetBeforeDequeue(m *Machine, hook func()) {
	m.beforeDequeue = hook
}
