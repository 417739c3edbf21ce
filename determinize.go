package lattice

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/bits-and-blooms/bitset"
)

// tempArc An arc of the determinized automaton in its working form: the output labels
// stay interned in the string repository. NextState NoStateID marks the record as
// the final weight of its state.
type tempArc[W any] struct {
	ilabel    Label
	str       StringID
	nextState int
	weight    W
}

// initialEntry What an initial (pre-closure) subset resolves to: an output state plus
// the weight and string factored out on the way.
type initialEntry[W any] struct {
	state  int
	weight W
	str    StringID
}

// Determinizer Determinizes a lattice: a weighted automaton whose output labels are
// carried along as strings. For every input label sequence the result has a single
// path, whose weight is the semiring sum over the input's paths with that sequence
// and whose output string is that of the best of them.
//
// Use NewDeterminizer, then Determinize, then one of OutputCompact or OutputExpanded.
// A Determinizer is not safe for concurrent use.
type Determinizer[W Weight[W]] struct {
	ifst   Fst[W]
	sorted bool
	delta  float32
	opts   *options
	logger *slog.Logger

	repo *StringRepository

	// Canonical (minimal, normalized) subset of each output state. State 0 is not
	// normalized.
	outputStates [][]Element[W]
	// Arcs and final-weight records of each output state.
	outputArcs [][]tempArc[W]

	// Canonical subset -> output state.
	minimal *HashMap[subsetKey[W], int]
	// Initial subset -> output state with remaining weight and string. Only a
	// lookaside cache; state 0 is never entered.
	initial *HashMap[subsetKey[W], initialEntry[W]]

	// Output states still to be expanded; LIFO.
	queue []int

	// Cache for isEmittingOrFinal.
	emittingKnown *bitset.BitSet
	emittingYes   *bitset.BitSet

	// Scratch table for epsilonClosure.
	closureIndex *IntIntHashMap

	lastExpanded int
	determinized bool
	consumed     bool
}

// NewDeterminizer Prepare to determinize ifst. The automaton is only read, and must
// not change until output has been produced.
func NewDeterminizer[W Weight[W]](ifst Fst[W], opts ...Option) (*Determinizer[W], error) {
	if ifst == nil {
		return nil, ErrNilFst
	}
	numStates := ifst.NumStates()
	start := ifst.Start()
	if start != NoStateID && (start < 0 || start >= numStates) {
		return nil, fmt.Errorf("%w: %d of %d states", ErrInvalidStart, start, numStates)
	}

	o := newOptions(opts...)
	d := &Determinizer[W]{
		ifst:          ifst,
		sorted:        ifst.ILabelSorted(),
		delta:         o.delta,
		opts:          o,
		logger:        o.logger,
		repo:          NewStringRepository(),
		minimal:       NewHashMap[subsetKey[W], int](WithCapacity(numStates/2+3), WithLoadFactor(o.loadFactor)),
		initial:       NewHashMap[subsetKey[W], initialEntry[W]](WithCapacity(numStates/2+3), WithLoadFactor(o.loadFactor)),
		emittingKnown: bitset.New(uint(numStates)),
		emittingYes:   bitset.New(uint(numStates)),
		closureIndex:  NewIntIntHashMap(16),
		lastExpanded:  NoStateID,
	}
	d.initialize()
	return d, nil
}

// initialize Create output state 0 from the start state. Unlike every other state it is
// not normalized: the factored weight and string would have nowhere to go without
// inventing a super-initial state.
func (d *Determinizer[W]) initialize() {
	start := d.ifst.Start()
	if start == NoStateID {
		return
	}
	var w W
	subset := []Element[W]{{State: start, String: d.repo.EmptyString(), Weight: w.One()}}
	subset = d.epsilonClosure(subset)
	subset = d.convertToMinimal(subset)

	d.outputStates = append(d.outputStates, subset)
	d.outputArcs = append(d.outputArcs, nil)
	d.minimal.Set(newSubsetKey(subset, d.delta), 0)
	d.queue = append(d.queue, 0)
}

// Determinize Run subset construction until every output state has been expanded.
// It returns early with the context's error, ErrTooManyStates, or a *TraceError
// if the trace hook asks to stop. Calling it again after success is a no-op.
func (d *Determinizer[W]) Determinize(ctx context.Context) error {
	if d.consumed {
		return ErrOutputConsumed
	}
	if d.determinized {
		return nil
	}

	for len(d.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("determinize lattice: %w", err)
		}
		if d.opts.maxStates > 0 && len(d.outputArcs) > d.opts.maxStates {
			return fmt.Errorf("%w: %d states exceed limit %d", ErrTooManyStates, len(d.outputArcs), d.opts.maxStates)
		}

		state := d.queue[len(d.queue)-1]
		d.queue = d.queue[:len(d.queue)-1]
		d.processState(state)
		d.lastExpanded = state

		if d.opts.trace != nil && d.opts.trace(TraceInfo{State: state, NumStates: len(d.outputArcs), Pending: len(d.queue)}) {
			return d.traceError()
		}
	}

	d.determinized = true
	if !d.logger.Enabled(ctx, slog.LevelDebug) {
		return nil
	}
	d.logger.DebugContext(ctx, "lattice determinized",
		"input_states", d.ifst.NumStates(),
		"output_states", d.NumStates(),
		"output_arcs", d.NumArcs(),
		"strings", d.repo.Size(),
		"minimal_subsets", d.minimal.Size(),
		"initial_subsets", d.initial.Size())
	return nil
}

// NumStates Output states created so far.
func (d *Determinizer[W]) NumStates() int {
	return len(d.outputArcs)
}

// NumArcs Output arcs created so far, not counting final-weight records.
func (d *Determinizer[W]) NumArcs() int {
	n := 0
	for _, arcs := range d.outputArcs {
		for _, arc := range arcs {
			if arc.nextState != NoStateID {
				n++
			}
		}
	}
	return n
}

// processState Create the final weight and the arcs of an output state.
func (d *Determinizer[W]) processState(state int) {
	d.processFinal(state)
	d.processTransitions(state)
}

// processFinal Record the final weight of an output state: the best (weight, string)
// among its elements whose input state is final.
func (d *Determinizer[W]) processFinal(state int) {
	var (
		found       bool
		finalWeight W
		finalString StringID
	)
	for _, elem := range d.outputStates[state] {
		w := d.ifst.Final(elem.State)
		if w.IsZero() {
			continue
		}
		w = elem.Weight.Times(w)
		if !found || d.compare(w, elem.String, finalWeight, finalString) == 1 {
			found = true
			finalWeight = w
			finalString = elem.String
		}
	}
	if found {
		d.outputArcs[state] = append(d.outputArcs[state], tempArc[W]{
			ilabel:    Epsilon,
			str:       finalString,
			nextState: NoStateID,
			weight:    finalWeight,
		})
	}
}

type labeledElement[W Weight[W]] struct {
	ilabel Label
	elem   Element[W]
}

// processTransitions Create one output arc per distinct input label leaving the
// elements of an output state.
func (d *Determinizer[W]) processTransitions(state int) {
	// The subset may be empty if parts of the input are not connected.
	var all []labeledElement[W]
	for _, elem := range d.outputStates[state] {
		for _, arc := range d.ifst.Arcs(elem.State) {
			if arc.ILabel == Epsilon || arc.Weight.IsZero() {
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
			all = append(all, labeledElement[W]{ilabel: arc.ILabel, elem: next})
		}
	}

	slices.SortStableFunc(all, func(a, b labeledElement[W]) int {
		if c := cmp.Compare(a.ilabel, b.ilabel); c != 0 {
			return c
		}
		return cmp.Compare(a.elem.State, b.elem.State)
	})

	var subset []Element[W]
	for i := 0; i < len(all); {
		ilabel := all[i].ilabel
		subset = subset[:0]
		for i < len(all) && all[i].ilabel == ilabel {
			subset = append(subset, all[i].elem)
			i++
		}
		d.processTransition(state, ilabel, subset)
	}
}

// processTransition Add the arc labeled ilabel leaving state. subset holds the
// destination elements, sorted on state but possibly with repeated states.
func (d *Determinizer[W]) processTransition(state int, ilabel Label, subset []Element[W]) {
	subset = d.makeSubsetUnique(subset)
	weight, str := d.normalizeSubset(subset)

	nextState, nextWeight, nextStr := d.initialToStateID(subset)
	if nextState == NoStateID {
		// Every destination is a dead end.
		return
	}
	d.outputArcs[state] = append(d.outputArcs[state], tempArc[W]{
		ilabel:    ilabel,
		str:       d.repo.Concatenate(str, nextStr),
		nextState: nextState,
		weight:    weight.Times(nextWeight),
	})
}

// initialToStateID Map a normalized initial (pre-closure) subset to its output
// state, creating it if needed, and return the weight and string left over from
// normalizing the canonical subset. The state is NoStateID if no element survives
// minimization.
func (d *Determinizer[W]) initialToStateID(subsetIn []Element[W]) (int, W, StringID) {
	if entry, ok := d.initial.Get(newSubsetKey(subsetIn, d.delta)); ok {
		return entry.state, entry.weight, entry.str
	}

	subset := d.epsilonClosure(subsetIn)
	subset = d.convertToMinimal(subset)

	entry := initialEntry[W]{state: NoStateID}
	if len(subset) > 0 {
		entry.weight, entry.str = d.normalizeSubset(subset)
		entry.state = d.minimalToStateID(subset)
	}

	// Remember the initial subset so the closure can be skipped next time.
	d.initial.Set(newSubsetKey(slices.Clone(subsetIn), d.delta), entry)
	return entry.state, entry.weight, entry.str
}

// minimalToStateID Map a canonical subset to its output state, creating and queuing
// a new state if the subset has not been seen. The subset is kept by the new state.
func (d *Determinizer[W]) minimalToStateID(subset []Element[W]) int {
	key := newSubsetKey(subset, d.delta)
	if state, ok := d.minimal.Get(key); ok {
		return state
	}
	state := len(d.outputArcs)
	d.outputStates = append(d.outputStates, subset)
	d.outputArcs = append(d.outputArcs, nil)
	d.minimal.Set(key, state)
	d.queue = append(d.queue, state)
	return state
}
