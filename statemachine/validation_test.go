package statemachine_test

import (
	"errors"
	"testing"

	"github.com/amp-labs/actionstate/statemachine"
	smtesting "github.com/amp-labs/actionstate/statemachine/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrors(t *testing.T) {
	t.Parallel()

	m := smtesting.NewMachine(t, nil)

	var notified []string

	m.Notifier().Subscribe(func(property string) { notified = append(notified, property) })

	errName := errors.New("name is required")
	errAge := errors.New("age must be positive")

	m.AddValidationError(nil)
	m.ClearValidationErrors()
	assert.Empty(t, notified, "no-op mutations publish nothing")
	assert.False(t, m.HasValidationErrors())

	m.AddValidationError(errName)
	m.AddValidationError(errAge)

	assert.True(t, m.HasValidationErrors())
	assert.Equal(t, []error{errName, errAge}, m.ValidationErrors())
	require.ErrorIs(t, m.ValidationError(), errName)
	require.ErrorIs(t, m.ValidationError(), errAge)

	m.ClearValidationErrors()

	assert.False(t, m.HasValidationErrors())
	require.NoError(t, m.ValidationError())
	assert.Equal(t, []string{
		statemachine.PropertyErrors,
		statemachine.PropertyErrors,
		statemachine.PropertyErrors,
	}, notified)
}
