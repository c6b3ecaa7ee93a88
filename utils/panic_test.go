package utils //nolint:revive // utils is an appropriate package name for utility functions

import (
	"errors"
	"testing"

	asErrors "github.com/amp-labs/actionstate/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestGetPanicRecoveryError(t *testing.T) {
	t.Parallel()

	t.Run("returns nil for nil panic value", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, GetPanicRecoveryError(nil, nil))
	})

	t.Run("wraps error panic value", func(t *testing.T) {
		t.Parallel()

		err := GetPanicRecoveryError(errBoom, nil)
		require.ErrorIs(t, err, asErrors.ErrPanicRecovery)
		require.ErrorIs(t, err, errBoom)
		assert.NotContains(t, err.Error(), "stack trace:")
	})

	t.Run("formats non-error panic values", func(t *testing.T) {
		t.Parallel()

		err := GetPanicRecoveryError(42, nil)
		require.ErrorIs(t, err, asErrors.ErrPanicRecovery)
		assert.Contains(t, err.Error(), "42")
	})

	t.Run("appends stack trace", func(t *testing.T) {
		t.Parallel()

		err := GetPanicRecoveryError("panic message", []byte("goroutine 1 [running]:"))
		require.ErrorIs(t, err, asErrors.ErrPanicRecovery)
		assert.Contains(t, err.Error(), "panic message")
		assert.Contains(t, err.Error(), "stack trace:\ngoroutine 1")
	})
}

func TestProtect(t *testing.T) {
	t.Parallel()

	t.Run("passes through returned errors", func(t *testing.T) {
		t.Parallel()

		err := Protect(func() error { return errBoom })
		assert.Same(t, errBoom, err) //nolint:testifylint
	})

	t.Run("converts panics", func(t *testing.T) {
		t.Parallel()

		err := Protect(func() error { panic(errBoom) })
		require.ErrorIs(t, err, asErrors.ErrPanicRecovery)
		require.ErrorIs(t, err, errBoom)
		assert.Contains(t, err.Error(), "stack trace:")
	})

	t.Run("nil on success", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, Protect(func() error { return nil }))
	})
}
