package domain

import (
	"encoding/json"
	"sort"
)

// SubdomainSet is a set of canonical subdomain names observed for one root
// domain. The zero value is not usable; construct with NewSubdomainSet.
//
// JSON encoding is a sorted string array, which keeps the persisted files
// diff-friendly and deterministic.
type SubdomainSet map[string]struct{}

// NewSubdomainSet builds a set from the given names.
func NewSubdomainSet(names ...string) SubdomainSet {
	s := make(SubdomainSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}

	return s
}

// Add inserts name into the set.
func (s SubdomainSet) Add(name string) { s[name] = struct{}{} }

// Has reports whether name is in the set.
func (s SubdomainSet) Has(name string) bool {
	_, ok := s[name]

	return ok
}

// Len returns the number of subdomains in the set.
func (s SubdomainSet) Len() int { return len(s) }

// Sorted returns the set's members as a lexicographically sorted slice.
func (s SubdomainSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)

	return out
}

// Clone returns an independent copy of the set.
func (s SubdomainSet) Clone() SubdomainSet {
	out := make(SubdomainSet, len(s))
	for n := range s {
		out[n] = struct{}{}
	}

	return out
}

// Union returns a new set containing the members of both s and other.
func (s SubdomainSet) Union(other SubdomainSet) SubdomainSet {
	out := make(SubdomainSet, len(s)+len(other))
	for n := range s {
		out[n] = struct{}{}
	}
	for n := range other {
		out[n] = struct{}{}
	}

	return out
}

// Diff returns the members of s that are absent from other, sorted
// lexicographically for deterministic notification formatting.
func (s SubdomainSet) Diff(other SubdomainSet) []string {
	var out []string
	for n := range s {
		if !other.Has(n) {
			out = append(out, n)
		}
	}
	sort.Strings(out)

	return out
}

// Equal reports whether both sets contain exactly the same members.
func (s SubdomainSet) Equal(other SubdomainSet) bool {
	if len(s) != len(other) {
		return false
	}
	for n := range s {
		if !other.Has(n) {
			return false
		}
	}

	return true
}

// MarshalJSON encodes the set as a sorted string array.
func (s SubdomainSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted()) //nolint: wrapcheck
}

// UnmarshalJSON decodes a string array into the set, deduplicating entries.
func (s *SubdomainSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err //nolint: wrapcheck
	}

	*s = NewSubdomainSet(names...)

	return nil
}
