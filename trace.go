package lattice

import (
	"slices"
	"strconv"
	"strings"
)

// TraceStep One arc on the way from the start state to a traced state.
type TraceStep struct {
	ILabel  Label
	OLabels []Label
}

// TraceError Reports where determinization was when the trace hook stopped it.
type TraceError struct {
	// State The output state whose provenance is reported.
	State int
	// NumStates Output states created so far.
	NumStates int
	// SameStates Other output states covering exactly the same input states as State.
	// A large count usually means weights that never converge within delta.
	SameStates int
	// Steps Input label and output labels of each arc from the start state to State.
	Steps []TraceStep
}

func (e *TraceError) Error() string {
	return ErrTraced.Error() + " at state " + strconv.Itoa(e.State) + ": " + e.Format()
}

func (e *TraceError) Unwrap() error {
	return ErrTraced
}

// Format Render the steps as "ilabel ( olabel olabel ) ilabel ( olabel ) ...".
func (e *TraceError) Format() string {
	var sb strings.Builder
	for i, step := range e.Steps {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.Itoa(int(step.ILabel)))
		sb.WriteString(" (")
		for _, l := range step.OLabels {
			sb.WriteByte(' ')
			sb.WriteString(strconv.Itoa(int(l)))
		}
		sb.WriteString(" )")
	}
	return sb.String()
}

func (d *Determinizer[W]) traceError() error {
	e := &TraceError{
		State:     d.lastExpanded,
		NumStates: len(d.outputArcs),
		Steps:     d.Traceback(d.lastExpanded),
	}
	if e.State != NoStateID {
		target := d.outputStates[e.State]
		for key, s := range d.minimal.Iterator() {
			if s != e.State && sameStates(key.elems, target) {
				e.SameStates++
			}
		}
	}
	d.logger.Warn("lattice determinization traced",
		"state", e.State,
		"states", e.NumStates,
		"same_states", e.SameStates,
		"traceback", e.Format())
	return e
}

// Traceback Return the arcs of a path from the start state to state. Every state
// other than 0 was created by an arc from a lower-numbered state, so following such
// arcs backwards always reaches the start.
func (d *Determinizer[W]) Traceback(state int) []TraceStep {
	if state <= 0 || state >= len(d.outputArcs) {
		return nil
	}

	predecessor := make([]int, state+1)
	for i := range predecessor {
		predecessor[i] = NoStateID
	}
	for i := 0; i < state; i++ {
		for _, arc := range d.outputArcs[i] {
			if arc.nextState > i && arc.nextState <= state && predecessor[arc.nextState] == NoStateID {
				predecessor[arc.nextState] = i
			}
		}
	}

	var steps []TraceStep
	for cur := state; cur != 0; {
		prev := predecessor[cur]
		if prev == NoStateID {
			panic("lattice: traceback did not reach the start state")
		}
		found := false
		for _, arc := range d.outputArcs[prev] {
			if arc.nextState == cur {
				steps = append(steps, TraceStep{ILabel: arc.ilabel, OLabels: d.repo.ConvertToVector(arc.str)})
				found = true
				break
			}
		}
		if !found {
			panic("lattice: traceback lost the arc to its predecessor")
		}
		cur = prev
	}
	slices.Reverse(steps)
	return steps
}
