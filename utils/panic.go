package utils //nolint:revive // utils is an appropriate package name for utility functions

import (
	"fmt"
	"runtime/debug"

	"github.com/amp-labs/actionstate/errors"
)

// GetPanicRecoveryError converts a recovered panic value and optional stack trace
// into a standard error. If the panic value is nil, it returns nil.
// Error panic values stay reachable through errors.Is / errors.As.
func GetPanicRecoveryError(recovered any, stack []byte) error {
	if recovered == nil {
		return nil
	}

	var err error

	if cause, ok := recovered.(error); ok {
		err = fmt.Errorf("%w: %w", errors.ErrPanicRecovery, cause)
	} else {
		err = fmt.Errorf("%w: %v", errors.ErrPanicRecovery, recovered)
	}

	if stack != nil {
		return fmt.Errorf("%w\nstack trace:\n%s", err, string(stack))
	}

	return err
}

// Protect calls f and converts a panic raised inside it into an error
// carrying the stack trace. Errors returned by f pass through untouched.
func Protect(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = GetPanicRecoveryError(r, debug.Stack())
		}
	}()

	return f()
}
