package lattice

import (
	"context"
)

// freeMostMemory Release everything except the output arcs and the string
// repository, which are still needed to produce output.
func (d *Determinizer[W]) freeMostMemory() {
	d.ifst = nil
	d.minimal.Clear()
	d.initial.Clear()
	d.outputStates = nil
	d.emittingKnown = nil
	d.emittingYes = nil
	d.closureIndex = nil
	d.queue = nil
}

func (d *Determinizer[W]) checkOutput() error {
	if d.consumed {
		return ErrOutputConsumed
	}
	if !d.determinized {
		return ErrNotDeterminized
	}
	return nil
}

func (d *Determinizer[W]) finishOutput(destroy bool) {
	if destroy {
		d.outputArcs = nil
		d.repo.Destroy()
		d.consumed = true
	}
}

// OutputCompact Write the result as an acceptor with one state per output state; each
// arc and final weight carries its output labels on a CompactWeight. If destroy is
// true, memory is released while writing and the Determinizer cannot produce output
// again.
func (d *Determinizer[W]) OutputCompact(destroy bool) (*VectorFst[CompactWeight[W]], error) {
	if err := d.checkOutput(); err != nil {
		return nil, err
	}
	if destroy {
		d.freeMostMemory()
	}

	numStates := len(d.outputArcs)
	ofst := NewVectorFstV1[CompactWeight[W]](numStates)
	if numStates == 0 {
		d.finishOutput(destroy)
		return ofst, nil
	}
	for s := 0; s < numStates; s++ {
		ofst.AddState()
	}
	_ = ofst.SetStart(0)

	for s := 0; s < numStates; s++ {
		for _, arc := range d.outputArcs[s] {
			w := NewCompactWeight(arc.weight, d.repo.ConvertToVector(arc.str))
			if arc.nextState == NoStateID {
				if err := ofst.SetFinal(s, w); err != nil {
					return nil, err
				}
				continue
			}
			// Acceptor: input and output labels are the same.
			if err := ofst.AddArc(s, Arc[CompactWeight[W]]{
				ILabel:    arc.ilabel,
				OLabel:    arc.ilabel,
				Weight:    w,
				NextState: arc.nextState,
			}); err != nil {
				return nil, err
			}
		}
		if destroy {
			d.outputArcs[s] = nil
		}
	}

	d.finishOutput(destroy)
	return ofst, nil
}

// OutputExpanded Write the result as a transducer over the input weight type. An
// arc whose output string has more than one label becomes a chain through new
// states: the input label and weight go on the first arc, the remaining arcs have
// epsilon input and weight One, and each arc carries one output label. A final
// weight with a non-empty string becomes a chain of epsilon-input arcs ending in a
// new final state. If destroy is true, memory is released while writing and the
// Determinizer cannot produce output again.
func (d *Determinizer[W]) OutputExpanded(destroy bool) (*VectorFst[W], error) {
	if err := d.checkOutput(); err != nil {
		return nil, err
	}
	if destroy {
		d.freeMostMemory()
	}

	numStates := len(d.outputArcs)
	ofst := NewVectorFstV1[W](numStates)
	if numStates == 0 {
		d.finishOutput(destroy)
		return ofst, nil
	}
	// Extra states for the label chains are added after these.
	for s := 0; s < numStates; s++ {
		ofst.AddState()
	}
	_ = ofst.SetStart(0)

	var one W
	one = one.One()
	for s := 0; s < numStates; s++ {
		for _, arc := range d.outputArcs[s] {
			seq := d.repo.ConvertToVector(arc.str)

			if arc.nextState == NoStateID {
				// Chain to a final state, with the weight on the first arc.
				cur := s
				for i, l := range seq {
					next := ofst.AddState()
					w := one
					if i == 0 {
						w = arc.weight
					}
					if err := ofst.AddArc(cur, Arc[W]{ILabel: Epsilon, OLabel: l, Weight: w, NextState: next}); err != nil {
						return nil, err
					}
					cur = next
				}
				final := arc.weight
				if len(seq) > 0 {
					final = one
				}
				if err := ofst.SetFinal(cur, final); err != nil {
					return nil, err
				}
				continue
			}

			// All but the last label get a new state.
			cur := s
			for i := 0; i+1 < len(seq); i++ {
				next := ofst.AddState()
				a := Arc[W]{ILabel: Epsilon, OLabel: seq[i], Weight: one, NextState: next}
				if i == 0 {
					a.ILabel = arc.ilabel
					a.Weight = arc.weight
				}
				if err := ofst.AddArc(cur, a); err != nil {
					return nil, err
				}
				cur = next
			}
			last := Arc[W]{ILabel: Epsilon, OLabel: Epsilon, Weight: one, NextState: arc.nextState}
			if len(seq) <= 1 {
				last.ILabel = arc.ilabel
				last.Weight = arc.weight
			}
			if len(seq) > 0 {
				last.OLabel = seq[len(seq)-1]
			}
			if err := ofst.AddArc(cur, last); err != nil {
				return nil, err
			}
		}
		if destroy {
			d.outputArcs[s] = nil
		}
	}

	d.finishOutput(destroy)
	return ofst, nil
}

// DeterminizeLattice Determinize ifst and return the result in compact form.
func DeterminizeLattice[W Weight[W]](ctx context.Context, ifst Fst[W], opts ...Option) (*VectorFst[CompactWeight[W]], error) {
	d, err := NewDeterminizer(ifst, opts...)
	if err != nil {
		return nil, err
	}
	if err := d.Determinize(ctx); err != nil {
		return nil, err
	}
	return d.OutputCompact(true)
}

// DeterminizeLatticeExpanded Determinize ifst and return the result as a transducer
// over the input weight type.
func DeterminizeLatticeExpanded[W Weight[W]](ctx context.Context, ifst Fst[W], opts ...Option) (*VectorFst[W], error) {
	d, err := NewDeterminizer(ifst, opts...)
	if err != nil {
		return nil, err
	}
	if err := d.Determinize(ctx); err != nil {
		return nil, err
	}
	return d.OutputExpanded(true)
}
