package lattice

// Element One hypothesis inside a determinized state: the input automaton is in State,
// having emitted String (relative to the state's factored prefix) with Weight.
type Element[W Weight[W]] struct {
	State  int
	String StringID
	Weight W
}

var _ Hashable[subsetKey[TropicalWeight]] = subsetKey[TropicalWeight]{}

// subsetKey A frozen subset used as a hash key. The elements must be sorted on state
// with no state repeated. The hash covers only states and strings; weights are
// compared approximately, so subsets that differ only slightly in weight collide on
// purpose and are then treated as equal.
type subsetKey[W Weight[W]] struct {
	elems    []Element[W]
	delta    float32
	hashCode uint64
}

func newSubsetKey[W Weight[W]](elems []Element[W], delta float32) subsetKey[W] {
	return subsetKey[W]{elems: elems, delta: delta, hashCode: hashSubset(elems)}
}

func hashSubset[W Weight[W]](elems []Element[W]) uint64 {
	// Order dependent; elements are always sorted on state.
	h := uint64(len(elems))
	for _, e := range elems {
		h = h*phiC64 + mixPair(e.State, e.String)
	}
	return h
}

func (k subsetKey[W]) Hash() uint64 {
	return k.hashCode
}

func (k subsetKey[W]) Equals(other subsetKey[W]) bool {
	if len(k.elems) != len(other.elems) {
		return false
	}
	for i := range k.elems {
		a, b := &k.elems[i], &other.elems[i]
		if a.State != b.State || a.String != b.String || !a.Weight.ApproxEqual(b.Weight, k.delta) {
			return false
		}
	}
	return true
}

// sameStates reports whether two subsets cover the same input states, ignoring
// strings and weights.
func sameStates[W Weight[W]](s1, s2 []Element[W]) bool {
	if len(s1) != len(s2) {
		return false
	}
	for i := range s1 {
		if s1[i].State != s2[i].State {
			return false
		}
	}
	return true
}
