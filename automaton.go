package lattice

import (
	"fmt"
	"sort"

	"github.com/bits-and-blooms/bitset"
)

// Label An input or output symbol. Epsilon (0) means "no symbol".
type Label int32

const (
	// Epsilon The empty label.
	Epsilon Label = 0

	// NoStateID Marks a missing state: no start state, or a final-weight record in place
	// of a destination.
	NoStateID = -1
)

// Arc A weighted transition with an input and an output label.
type Arc[W any] struct {
	ILabel    Label
	OLabel    Label
	Weight    W
	NextState int
}

// Fst Read-only view of a weighted automaton. States are numbered 0..NumStates()-1.
// The slices returned by Arcs belong to the automaton and must not be modified.
type Fst[W any] interface {
	Start() int
	NumStates() int
	Final(state int) W
	Arcs(state int) []Arc[W]
	// ILabelSorted reports whether every state's arcs are known to be sorted by
	// input label.
	ILabelSorted() bool
}

var _ Fst[TropicalWeight] = &VectorFst[TropicalWeight]{}

// VectorFst A mutable automaton that keeps the arcs of each state in a slice. States
// are created with AddState; arcs may be added to any state in any order. The
// automaton tracks whether all states have their arcs sorted on input label: adding
// an arc whose input label is smaller than the previous one on the same state clears
// the property, and ArcSort restores it.
type VectorFst[W Weight[W]] struct {
	start  int
	states []vectorState[W]

	// If the bit is set then that state has a non-zero final weight.
	isFinal *bitset.BitSet

	// True if, for every state, arcs are sorted on input label.
	ilabelSorted bool
}

type vectorState[W any] struct {
	final W
	arcs  []Arc[W]
}

func NewVectorFst[W Weight[W]]() *VectorFst[W] {
	return NewVectorFstV1[W](2)
}

func NewVectorFstV1[W Weight[W]](numStates int) *VectorFst[W] {
	return &VectorFst[W]{
		start:        NoStateID,
		states:       make([]vectorState[W], 0, numStates),
		isFinal:      bitset.New(uint(numStates)),
		ilabelSorted: true,
	}
}

// AddState Create a new, non-final state with no arcs, and return its id.
func (f *VectorFst[W]) AddState() int {
	var w W
	f.states = append(f.states, vectorState[W]{final: w.Zero()})
	return len(f.states) - 1
}

// SetStart Set the start state; NoStateID clears it.
func (f *VectorFst[W]) SetStart(state int) error {
	if state != NoStateID && !f.validState(state) {
		return fmt.Errorf("%w: start %d", ErrInvalidState, state)
	}
	f.start = state
	return nil
}

// SetFinal Set the final weight of a state. A Zero weight makes the state non-final.
func (f *VectorFst[W]) SetFinal(state int, w W) error {
	if !f.validState(state) {
		return fmt.Errorf("%w: final %d", ErrInvalidState, state)
	}
	f.states[state].final = w
	f.isFinal.SetTo(uint(state), !w.IsZero())
	return nil
}

// AddArc Add an arc leaving source. Both source and the arc's destination must exist.
func (f *VectorFst[W]) AddArc(source int, arc Arc[W]) error {
	if !f.validState(source) {
		return fmt.Errorf("%w: arc source %d", ErrInvalidState, source)
	}
	if !f.validState(arc.NextState) {
		return fmt.Errorf("%w: arc destination %d", ErrInvalidState, arc.NextState)
	}
	s := &f.states[source]
	if n := len(s.arcs); n > 0 && s.arcs[n-1].ILabel > arc.ILabel {
		f.ilabelSorted = false
	}
	s.arcs = append(s.arcs, arc)
	return nil
}

func (f *VectorFst[W]) validState(state int) bool {
	return state >= 0 && state < len(f.states)
}

func (f *VectorFst[W]) Start() int {
	return f.start
}

// NumStates How many states this automaton has.
func (f *VectorFst[W]) NumStates() int {
	return len(f.states)
}

// NumArcs How many arcs leave this state.
func (f *VectorFst[W]) NumArcs(state int) int {
	return len(f.states[state].arcs)
}

// TotalArcs How many arcs this automaton has.
func (f *VectorFst[W]) TotalArcs() int {
	n := 0
	for i := range f.states {
		n += len(f.states[i].arcs)
	}
	return n
}

func (f *VectorFst[W]) Final(state int) W {
	return f.states[state].final
}

// IsFinal Returns true if this state has a non-zero final weight.
func (f *VectorFst[W]) IsFinal(state int) bool {
	return f.isFinal.Test(uint(state))
}

// NumFinal How many states are final.
func (f *VectorFst[W]) NumFinal() int {
	return int(f.isFinal.Count())
}

func (f *VectorFst[W]) Arcs(state int) []Arc[W] {
	return f.states[state].arcs
}

func (f *VectorFst[W]) ILabelSorted() bool {
	return f.ilabelSorted
}

// ArcSort Sort the arcs of every state on input label, then output label, then
// destination.
func (f *VectorFst[W]) ArcSort() {
	for i := range f.states {
		sort.Stable(&ilabelOLabelDestSorter[W]{arcs: f.states[i].arcs})
	}
	f.ilabelSorted = true
}

// IsDeterministic Returns true if no state has two arcs with the same input label and
// no arc has an epsilon input label.
func (f *VectorFst[W]) IsDeterministic() bool {
	seen := make(map[Label]struct{})
	for i := range f.states {
		clear(seen)
		for _, arc := range f.states[i].arcs {
			if arc.ILabel == Epsilon {
				return false
			}
			if _, ok := seen[arc.ILabel]; ok {
				return false
			}
			seen[arc.ILabel] = struct{}{}
		}
	}
	return true
}

// IsAcceptor Returns true if every arc has equal input and output labels.
func (f *VectorFst[W]) IsAcceptor() bool {
	for i := range f.states {
		for _, arc := range f.states[i].arcs {
			if arc.ILabel != arc.OLabel {
				return false
			}
		}
	}
	return true
}

// DeleteStates Remove all states and arcs.
func (f *VectorFst[W]) DeleteStates() {
	f.states = f.states[:0]
	f.isFinal.ClearAll()
	f.start = NoStateID
	f.ilabelSorted = true
}

// Copy Copies over all states and arcs from other. The state numbers are
// sequentially assigned (appended). If f has no start state yet it takes other's.
func (f *VectorFst[W]) Copy(other Fst[W]) {
	stateOffset := len(f.states)
	numStates := other.NumStates()
	for s := 0; s < numStates; s++ {
		f.AddState()
	}
	for s := 0; s < numStates; s++ {
		_ = f.SetFinal(stateOffset+s, other.Final(s))
		for _, arc := range other.Arcs(s) {
			arc.NextState += stateOffset
			_ = f.AddArc(stateOffset+s, arc)
		}
	}
	if f.start == NoStateID && other.Start() != NoStateID {
		f.start = other.Start() + stateOffset
	}
}

// Sorts arcs by input label, ascending, then output label ascending, then
// destination ascending.
type ilabelOLabelDestSorter[W any] struct {
	arcs []Arc[W]
}

func (r *ilabelOLabelDestSorter[W]) Len() int {
	return len(r.arcs)
}

func (r *ilabelOLabelDestSorter[W]) Less(i, j int) bool {
	a, b := &r.arcs[i], &r.arcs[j]

	// First input label:
	if a.ILabel != b.ILabel {
		return a.ILabel < b.ILabel
	}

	// Then output label:
	if a.OLabel != b.OLabel {
		return a.OLabel < b.OLabel
	}

	// Then dest:
	return a.NextState < b.NextState
}

func (r *ilabelOLabelDestSorter[W]) Swap(i, j int) {
	r.arcs[i], r.arcs[j] = r.arcs[j], r.arcs[i]
}
