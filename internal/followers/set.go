// Package followers holds the follower-set snapshot store and the change
// detector that compares one observation cycle against the previous one.
package followers

import "sort"

// Set is an unordered collection of opaque follower identifiers.
type Set map[string]struct{}

func FromIDs(ids []string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Set) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in stable order.
func (s Set) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
