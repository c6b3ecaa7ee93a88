// Package cli holds the interactive prompts used by the command line tools.
package cli

import (
	"errors"
	"slices"
	"strings"

	"facette.io/natsort"
	"github.com/manifoldco/promptui"
)

// ErrNoChoices is returned by Select when there is nothing to choose from.
var ErrNoChoices = errors.New("no choices available")

// Select asks the user to pick one of choices, listed in natural order.
// Typing filters the list by case-insensitive prefix.
func Select(label string, choices ...string) (string, error) {
	items := sortChoices(choices)
	if len(items) == 0 {
		return "", ErrNoChoices
	}

	sel := &promptui.Select{
		Label:    label,
		Items:    items,
		Size:     min(len(items), 10), //nolint:mnd
		Searcher: prefixSearcher(items),
	}

	_, value, err := sel.Run()
	if err != nil {
		return "", err
	}

	return value, nil
}

// sortChoices returns the distinct non-empty choices in natural order.
func sortChoices(choices []string) []string {
	items := make([]string, 0, len(choices))

	for _, c := range choices {
		if c != "" && !slices.Contains(items, c) {
			items = append(items, c)
		}
	}

	natsort.Sort(items)

	return items
}

func prefixSearcher(items []string) func(input string, index int) bool {
	return func(input string, index int) bool {
		if input == "" {
			return true
		}

		return strings.HasPrefix(strings.ToLower(items[index]), strings.ToLower(input))
	}
}
