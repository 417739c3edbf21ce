package lattice

import (
	"github.com/bits-and-blooms/bitset"
)

// IsEmpty Returns true if no final state can be reached from the start state.
func IsEmpty[W Weight[W]](f Fst[W]) bool {
	start := f.Start()
	if start == NoStateID || f.NumStates() == 0 {
		// Common case: no states
		return true
	}
	if !f.Final(start).IsZero() {
		// Apparently common case: it accepts the empty string
		return false
	}

	seen := bitset.New(uint(f.NumStates()))
	workList := []int{start}
	seen.Set(uint(start))
	for len(workList) > 0 {
		state := workList[0]
		workList = workList[1:]
		if !f.Final(state).IsZero() {
			return false
		}
		for _, arc := range f.Arcs(state) {
			if !seen.Test(uint(arc.NextState)) {
				seen.Set(uint(arc.NextState))
				workList = append(workList, arc.NextState)
			}
		}
	}
	return true
}

// IsAcyclic Returns true if no cycle can be reached from the start state. Lattices
// are normally acyclic; determinizing a cyclic one need not terminate.
func IsAcyclic[W Weight[W]](f Fst[W]) bool {
	start := f.Start()
	if start == NoStateID {
		return true
	}
	path := bitset.New(uint(f.NumStates()))
	visited := bitset.New(uint(f.NumStates()))
	return isAcyclic(f, start, path, visited)
}

// Checks whether there is a loop through state, depth first.
func isAcyclic[W Weight[W]](f Fst[W], state int, path, visited *bitset.BitSet) bool {
	path.Set(uint(state))
	for _, arc := range f.Arcs(state) {
		dest := uint(arc.NextState)
		if path.Test(dest) || (!visited.Test(dest) && !isAcyclic(f, arc.NextState, path, visited)) {
			return false
		}
	}
	path.Clear(uint(state))
	visited.Set(uint(state))
	return true
}

// Connect Returns a copy of f without the states that are not on some path from the
// start state to a final state. State order is preserved.
func Connect[W Weight[W]](f Fst[W]) *VectorFst[W] {
	numStates := f.NumStates()
	liveSet := liveStates(f)

	result := NewVectorFstV1[W](int(liveSet.Count()))
	mp := make([]int, numStates)
	for i := 0; i < numStates; i++ {
		mp[i] = NoStateID
		if liveSet.Test(uint(i)) {
			mp[i] = result.AddState()
			_ = result.SetFinal(mp[i], f.Final(i))
		}
	}

	for i := 0; i < numStates; i++ {
		if !liveSet.Test(uint(i)) {
			continue
		}
		// filter out arcs to dead states:
		for _, arc := range f.Arcs(i) {
			if liveSet.Test(uint(arc.NextState)) {
				arc.NextState = mp[arc.NextState]
				_ = result.AddArc(mp[i], arc)
			}
		}
	}

	if start := f.Start(); start != NoStateID && liveSet.Test(uint(start)) {
		_ = result.SetStart(mp[start])
	}
	return result
}

// liveStates Returns the states that are both reachable from the start state and
// able to reach a final state.
func liveStates[W Weight[W]](f Fst[W]) *bitset.BitSet {
	live := liveStatesFromStart(f)
	return live.Intersection(liveStatesToFinal(f))
}

func liveStatesFromStart[W Weight[W]](f Fst[W]) *bitset.BitSet {
	numStates := f.NumStates()
	live := bitset.New(uint(numStates))
	start := f.Start()
	if start == NoStateID {
		return live
	}
	live.Set(uint(start))
	workList := []int{start}
	for len(workList) > 0 {
		s := workList[len(workList)-1]
		workList = workList[:len(workList)-1]
		for _, arc := range f.Arcs(s) {
			if !live.Test(uint(arc.NextState)) {
				live.Set(uint(arc.NextState))
				workList = append(workList, arc.NextState)
			}
		}
	}
	return live
}

func liveStatesToFinal[W Weight[W]](f Fst[W]) *bitset.BitSet {
	numStates := f.NumStates()

	// Reverse the arcs, then search from every final state.
	reversed := make([][]int, numStates)
	for s := 0; s < numStates; s++ {
		for _, arc := range f.Arcs(s) {
			reversed[arc.NextState] = append(reversed[arc.NextState], s)
		}
	}

	live := bitset.New(uint(numStates))
	var workList []int
	for s := 0; s < numStates; s++ {
		if !f.Final(s).IsZero() {
			live.Set(uint(s))
			workList = append(workList, s)
		}
	}
	for len(workList) > 0 {
		s := workList[len(workList)-1]
		workList = workList[:len(workList)-1]
		for _, prev := range reversed[s] {
			if !live.Test(uint(prev)) {
				live.Set(uint(prev))
				workList = append(workList, prev)
			}
		}
	}
	return live
}
