package followers

import "sort"

// Change is the symmetric difference between two follower observations for
// one subject. Added and Removed are sorted so the persisted record has a
// stable shape across runs.
type Change struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

func (c Change) Empty() bool { return len(c.Added) == 0 && len(c.Removed) == 0 }

// Diff computes who started and stopped following between the previous and
// current observations. Both inputs are sets, so there is nothing to dedup;
// an empty previous set is simply "everyone is new" (the first-run case).
func Diff(current, previous Set) Change {
	change := Change{Added: []string{}, Removed: []string{}}
	for id := range current {
		if !previous.Contains(id) {
			change.Added = append(change.Added, id)
		}
	}
	for id := range previous {
		if !current.Contains(id) {
			change.Removed = append(change.Removed, id)
		}
	}
	sort.Strings(change.Added)
	sort.Strings(change.Removed)
	return change
}
