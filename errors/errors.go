// Package errors holds shared sentinel errors and a small error accumulator.
package errors

import (
	"errors"
	"slices"
	"sync"
)

var (
	ErrNotImplemented = errors.New("not implemented")
	ErrWrongType      = errors.New("wrong type")

	// ErrPanicRecovery marks an error that was produced from a recovered panic.
	ErrPanicRecovery = errors.New("recovered from panic")
)

// Collection accumulates multiple errors and hands them back as a single error.
// It is safe for concurrent use; the zero value is ready to use.
type Collection struct {
	mu     sync.RWMutex
	errors []error
}

// Add appends an error to the collection. Nil errors are ignored.
// It reports whether the collection changed.
func (c *Collection) Add(err error) bool {
	if err == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.errors = append(c.errors, err)

	return true
}

// Clear removes all errors from the collection. It reports whether
// anything was removed.
func (c *Collection) Clear() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	had := len(c.errors) > 0
	c.errors = nil

	return had
}

// HasError returns true if the collection contains at least one error.
func (c *Collection) HasError() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.errors) > 0
}

// Len returns the number of collected errors.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.errors)
}

// Errors returns a copy of the collected errors in insertion order.
func (c *Collection) Errors() []error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return slices.Clone(c.errors)
}

// GetError returns the collected errors as a single error.
// Returns nil if the collection is empty, the single error if there's only one,
// or a joined error (using errors.Join) if there are multiple errors.
func (c *Collection) GetError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch len(c.errors) {
	case 0:
		return nil
	case 1:
		return c.errors[0]
	default:
		return errors.Join(c.errors...)
	}
}
