package project

import "slices"

// Diff is the set of relationship rows to write so that the stored
// associations match a desired team set.
type Diff struct {
	Add    []string
	Remove []string
}

// Empty reports whether nothing needs to change.
func (d Diff) Empty() bool {
	return len(d.Add) == 0 && len(d.Remove) == 0
}

// Reconcile computes Add = desired - current and Remove = current - desired.
//
// Inputs are treated as sets, so duplicates and order do not matter, and the
// outputs are sorted. Add and Remove are disjoint: applying them in any order
// converges on exactly the desired set. Applying them is not atomic; a
// partially applied diff is repaired by reconciling again.
func Reconcile(desired, current []string) Diff {
	want := toSet(desired)
	have := toSet(current)

	var d Diff
	for id := range want {
		if !have[id] {
			d.Add = append(d.Add, id)
		}
	}
	for id := range have {
		if !want[id] {
			d.Remove = append(d.Remove, id)
		}
	}
	slices.Sort(d.Add)
	slices.Sort(d.Remove)
	return d
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = true
		}
	}
	return set
}
