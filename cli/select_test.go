package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortChoices(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]string{"[cancel]", "step2", "step10", "submit"},
		sortChoices([]string{"submit", "step10", "", "step2", "[cancel]", "step2"}))
	assert.Empty(t, sortChoices(nil))
}

func TestPrefixSearcher(t *testing.T) {
	t.Parallel()

	search := prefixSearcher([]string{"Save", "submit", "edit"})

	assert.True(t, search("s", 0))
	assert.True(t, search("S", 1))
	assert.False(t, search("s", 2))
	assert.True(t, search("", 2))
}

func TestSelect_NoChoices(t *testing.T) {
	t.Parallel()

	_, err := Select("pick", "", "")
	require.ErrorIs(t, err, ErrNoChoices)
}
