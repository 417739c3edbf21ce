package lattice

// Run Follows ilabels through a deterministic automaton from its start state and
// returns the path weight times the final weight. ok is false if some label has no
// arc or the last state is not final. Only the first arc with a matching input label
// is followed, so the answer is only meaningful for deterministic automata such as
// the output of determinization.
func Run[W Weight[W]](f Fst[W], ilabels []Label) (w W, ok bool) {
	state := f.Start()
	if state == NoStateID {
		return w.Zero(), false
	}
	w = w.One()
	for _, l := range ilabels {
		next := NoStateID
		for _, arc := range f.Arcs(state) {
			if arc.ILabel == l {
				next = arc.NextState
				w = w.Times(arc.Weight)
				break
			}
		}
		if next == NoStateID {
			return w.Zero(), false
		}
		state = next
	}
	final := f.Final(state)
	if final.IsZero() {
		return final, false
	}
	return w.Times(final), true
}
