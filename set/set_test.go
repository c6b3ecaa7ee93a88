package set

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringSet(t *testing.T) {
	t.Parallel()

	t.Run("Add and Contains", func(t *testing.T) {
		t.Parallel()

		s := NewStringSet(nil)

		assert.True(t, s.Add("foo"))
		assert.False(t, s.Add("foo"), "adding a duplicate reports false")

		assert.True(t, s.Contains("foo"))
		assert.False(t, s.Contains("Foo"), "nil key compares exactly")
		assert.Equal(t, 1, s.Size())
	})

	t.Run("key function decides equality", func(t *testing.T) {
		t.Parallel()

		s := NewStringSet(strings.ToLower)
		s.AddAll("Saving", "SAVING", "saved")

		assert.Equal(t, 2, s.Size())
		assert.True(t, s.Contains("saving"))
		assert.Equal(t, []string{"Saving", "saved"}, s.SortedEntries(), "first spelling is kept")
	})

	t.Run("Remove and Clear", func(t *testing.T) {
		t.Parallel()

		s := NewStringSet(strings.ToLower)
		s.AddAll("a", "b", "c")

		s.Remove("B")
		s.Remove("missing")
		assert.Equal(t, []string{"a", "c"}, s.SortedEntries())

		s.Clear()
		assert.Equal(t, 0, s.Size())
		assert.Empty(t, s.Entries())
	})

	t.Run("NaturalSortedEntries", func(t *testing.T) {
		t.Parallel()

		s := NewStringSet(nil)
		s.AddAll("step10", "step2", "step1")

		assert.Equal(t, []string{"step1", "step2", "step10"}, s.NaturalSortedEntries())
		assert.Equal(t, []string{"step1", "step10", "step2"}, s.SortedEntries())
	})

	t.Run("Union and Intersection", func(t *testing.T) {
		t.Parallel()

		left := NewStringSet(strings.ToLower)
		left.AddAll("A", "b")

		right := NewStringSet(strings.ToLower)
		right.AddAll("a", "c")

		assert.Equal(t, []string{"A", "b", "c"}, left.Union(right).SortedEntries())
		assert.Equal(t, []string{"A"}, left.Intersection(right).SortedEntries())
		assert.Equal(t, 2, left.Size(), "operands are not modified")
	})
}
