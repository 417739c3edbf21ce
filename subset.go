package lattice

import (
	"cmp"
	"slices"
)

// compare Returns -1, 0 or 1 as (aw, as) is less than, equal to or greater than
// (bw, bs) in the semiring: weights first, then strings by length and then label by
// label.
func (d *Determinizer[W]) compare(aw W, as StringID, bw W, bs StringID) int {
	if comp := aw.Compare(bw); comp != 0 {
		return comp
	}
	if as == bs {
		return 0
	}
	aLen, bLen := d.repo.Len(as), d.repo.Len(bs)
	if aLen < bLen {
		return -1
	} else if aLen > bLen {
		return 1
	}
	comp := compareLabels(d.repo.ConvertToVector(as), d.repo.ConvertToVector(bs))
	if comp == 0 {
		panic("lattice: distinct string handles with equal contents")
	}
	return comp
}

// epsilonClosure Follows epsilon-input arcs from every element of subset and returns
// the closed subset, sorted on state with one element per state. Where two paths
// reach the same state only the better (weight, string) pair is kept.
func (d *Determinizer[W]) epsilonClosure(subset []Element[W]) []Element[W] {
	elems := slices.Clone(subset)
	// State -> position in elems.
	index := d.closureIndex
	index.Clear()
	for i, e := range elems {
		index.Put(int32(e.State), int32(i))
	}

	// LIFO queue of elements whose arcs are still to be followed.
	queue := slices.Clone(subset)
	for len(queue) > 0 {
		elem := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		for _, arc := range d.ifst.Arcs(elem.State) {
			if arc.ILabel != Epsilon {
				if d.sorted {
					// No epsilons follow on an ilabel-sorted state.
					break
				}
				continue
			}
			if arc.Weight.IsZero() {
				continue
			}

			next := Element[W]{
				State:  arc.NextState,
				String: elem.String,
				Weight: elem.Weight.Times(arc.Weight),
			}
			if arc.OLabel != Epsilon {
				next.String = d.repo.Successor(elem.String, arc.OLabel)
			}

			i, ok := index.Get(int32(next.State))
			if !ok {
				index.Put(int32(next.State), int32(len(elems)))
				elems = append(elems, next)
				queue = append(queue, next)
				continue
			}
			// Normal determinization would add the weights; here the better
			// (weight, string) pair wins and the other is dropped.
			if d.compare(next.Weight, next.String, elems[i].Weight, elems[i].String) == 1 {
				elems[i].String = next.String
				elems[i].Weight = next.Weight
				queue = append(queue, next)
			}
		}
	}

	slices.SortFunc(elems, func(a, b Element[W]) int {
		return cmp.Compare(a.State, b.State)
	})
	return elems
}

// convertToMinimal Drops, in place, the elements whose state is neither final nor has
// an arc with a non-epsilon input label.
func (d *Determinizer[W]) convertToMinimal(subset []Element[W]) []Element[W] {
	out := subset[:0]
	for _, e := range subset {
		if d.isEmittingOrFinal(e.State) {
			out = append(out, e)
		}
	}
	return out
}

// isEmittingOrFinal Returns true if the input state is final or has at least one arc
// with a non-epsilon input label. Results are cached per state.
func (d *Determinizer[W]) isEmittingOrFinal(state int) bool {
	s := uint(state)
	if d.emittingKnown.Test(s) {
		return d.emittingYes.Test(s)
	}

	ans := !d.ifst.Final(state).IsZero()
	if !ans {
		for _, arc := range d.ifst.Arcs(state) {
			if arc.ILabel != Epsilon {
				ans = true
				break
			}
		}
	}
	d.emittingKnown.Set(s)
	d.emittingYes.SetTo(s, ans)
	return ans
}

// normalizeSubset Factors the semiring sum of the weights and the longest common
// prefix of the strings out of subset, in place, and returns them.
func (d *Determinizer[W]) normalizeSubset(subset []Element[W]) (W, StringID) {
	if len(subset) == 0 {
		panic("lattice: normalizing an empty subset")
	}
	prefix := d.repo.ConvertToVector(subset[0].String)
	weight := subset[0].Weight
	for i := 1; i < len(subset); i++ {
		weight = weight.Plus(subset[i].Weight)
		prefix = d.repo.ReduceToCommonPrefix(subset[i].String, prefix)
	}
	if weight.IsZero() {
		panic("lattice: normalizing a subset whose total weight is zero")
	}

	n := len(prefix)
	for i := range subset {
		subset[i].Weight = subset[i].Weight.Divide(weight)
		subset[i].String = d.repo.RemovePrefix(subset[i].String, n)
	}
	return weight, d.repo.ConvertFromVector(prefix)
}

// makeSubsetUnique Merges, in place, runs of elements with the same state, keeping the
// best (weight, string) pair of each run. The subset must be sorted on state.
func (d *Determinizer[W]) makeSubsetUnique(subset []Element[W]) []Element[W] {
	out := subset[:0]
	for i := 0; i < len(subset); {
		cur := subset[i]
		i++
		for i < len(subset) && subset[i].State == cur.State {
			if d.compare(subset[i].Weight, subset[i].String, cur.Weight, cur.String) == 1 {
				cur.String = subset[i].String
				cur.Weight = subset[i].Weight
			}
			i++
		}
		if i < len(subset) && subset[i].State < cur.State {
			panic("lattice: subset is not sorted on state")
		}
		out = append(out, cur)
	}
	return out
}
