// Package set provides a string set whose notion of equality is chosen by
// the caller, such as case-insensitive state names.
package set

import (
	"sort"

	"facette.io/natsort"
)

// StringSet is a collection of unique strings. Two strings are the same
// element when the key function maps them to the same key; the set keeps
// the spelling that was added first.
//
// A StringSet is not safe for concurrent use.
type StringSet struct {
	key      func(string) string
	elements map[string]string
}

// NewStringSet creates an empty set. A nil key compares strings exactly.
func NewStringSet(key func(string) string) *StringSet {
	if key == nil {
		key = func(s string) string { return s }
	}

	return &StringSet{
		key:      key,
		elements: make(map[string]string),
	}
}

// AddAll adds multiple elements to the set.
func (s *StringSet) AddAll(elements ...string) {
	for _, elem := range elements {
		s.Add(elem)
	}
}

// Add adds element and reports whether it was not already present.
func (s *StringSet) Add(element string) bool {
	k := s.key(element)

	if _, ok := s.elements[k]; ok {
		return false
	}

	s.elements[k] = element

	return true
}

// Remove removes element. It is a no-op if the element is absent.
func (s *StringSet) Remove(element string) {
	delete(s.elements, s.key(element))
}

// Clear removes all elements from the set.
func (s *StringSet) Clear() {
	s.elements = make(map[string]string)
}

// Contains reports whether element is in the set.
func (s *StringSet) Contains(element string) bool {
	_, ok := s.elements[s.key(element)]

	return ok
}

// Size returns the number of elements in the set.
func (s *StringSet) Size() int {
	return len(s.elements)
}

// Entries returns all elements in the set. The order is not guaranteed.
func (s *StringSet) Entries() []string {
	items := make([]string, 0, len(s.elements))
	for _, item := range s.elements {
		items = append(items, item)
	}

	return items
}

// SortedEntries returns all elements sorted alphabetically.
func (s *StringSet) SortedEntries() []string {
	items := s.Entries()

	sort.Strings(items)

	return items
}

// NaturalSortedEntries returns all elements sorted using natural sort order,
// so "step2" comes before "step10".
func (s *StringSet) NaturalSortedEntries() []string {
	items := s.Entries()

	natsort.Sort(items)

	return items
}

// Union returns a new set with the elements of both sets. Elements of s win
// when both sets hold the same key.
func (s *StringSet) Union(other *StringSet) *StringSet {
	ns := NewStringSet(s.key)

	ns.AddAll(s.Entries()...)
	ns.AddAll(other.Entries()...)

	return ns
}

// Intersection returns a new set with the elements of s that other also
// contains.
func (s *StringSet) Intersection(other *StringSet) *StringSet {
	ns := NewStringSet(s.key)

	for _, item := range s.Entries() {
		if other.Contains(item) {
			ns.Add(item)
		}
	}

	return ns
}
