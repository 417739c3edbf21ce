package lattice

import (
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

type testArc struct {
	src, dst       int
	ilabel, olabel Label
	weight         float32
}

// buildTropical builds a tropical-weight automaton with numStates states, start 0.
func buildTropical(t *testing.T, numStates int, arcs []testArc, finals map[int]float32) *VectorFst[TropicalWeight] {
	t.Helper()
	f := NewVectorFst[TropicalWeight]()
	for i := 0; i < numStates; i++ {
		f.AddState()
	}
	require.NoError(t, f.SetStart(0))
	for _, a := range arcs {
		require.NoError(t, f.AddArc(a.src, Arc[TropicalWeight]{
			ILabel: a.ilabel, OLabel: a.olabel, Weight: TropicalWeight(a.weight), NextState: a.dst,
		}))
	}
	for s, w := range finals {
		require.NoError(t, f.SetFinal(s, TropicalWeight(w)))
	}
	return f
}

// randomLattice returns an acyclic lattice whose arcs only go to higher-numbered
// states. About a quarter of the arcs have an epsilon input label.
func randomLattice(rng *rand.Rand, numStates int) *VectorFst[LatticeWeight] {
	f := NewVectorFst[LatticeWeight]()
	for i := 0; i < numStates; i++ {
		f.AddState()
	}
	_ = f.SetStart(0)
	for s := 0; s < numStates-1; s++ {
		numArcs := 1 + rng.Intn(3)
		for j := 0; j < numArcs; j++ {
			_ = f.AddArc(s, Arc[LatticeWeight]{
				ILabel:    Label(rng.Intn(4)),
				OLabel:    Label(rng.Intn(5)),
				Weight:    NewLatticeWeight(rng.Float32()*5, rng.Float32()*5),
				NextState: s + 1 + rng.Intn(numStates-1-s),
			})
		}
		if rng.Intn(5) == 0 {
			_ = f.SetFinal(s, NewLatticeWeight(rng.Float32()*2, rng.Float32()*2))
		}
	}
	_ = f.SetFinal(numStates-1, LatticeWeight{})
	return f
}

// enumeratePaths calls visit for every accepting path of an acyclic automaton, with
// the non-epsilon input and output labels along the path and its total weight.
func enumeratePaths[W Weight[W]](f Fst[W], visit func(ilabels, olabels []Label, w W)) {
	if f.Start() == NoStateID {
		return
	}
	var one W
	var walk func(state int, ilabels, olabels []Label, w W, depth int)
	walk = func(state int, ilabels, olabels []Label, w W, depth int) {
		if depth > 1000 {
			panic("enumeratePaths: automaton is not acyclic")
		}
		if final := f.Final(state); !final.IsZero() {
			visit(ilabels, olabels, w.Times(final))
		}
		for _, arc := range f.Arcs(state) {
			il, ol := ilabels, olabels
			if arc.ILabel != Epsilon {
				il = append(slices.Clone(ilabels), arc.ILabel)
			}
			if arc.OLabel != Epsilon {
				ol = append(slices.Clone(olabels), arc.OLabel)
			}
			walk(arc.NextState, il, ol, w.Times(arc.Weight), depth+1)
		}
	}
	walk(f.Start(), nil, nil, one.One(), 0)
}

type pathSummary struct {
	best    LatticeWeight
	strings [][]Label
	weights []LatticeWeight
}

// summarizeInput groups the accepting paths of a lattice by input label sequence.
func summarizeInput(f Fst[LatticeWeight]) map[string]*pathSummary {
	out := make(map[string]*pathSummary)
	enumeratePaths(f, func(ilabels, olabels []Label, w LatticeWeight) {
		key := fmt.Sprint(ilabels)
		ps, ok := out[key]
		if !ok {
			ps = &pathSummary{best: w.Zero()}
			out[key] = ps
		}
		ps.best = ps.best.Plus(w)
		ps.strings = append(ps.strings, olabels)
		ps.weights = append(ps.weights, w)
	})
	return out
}

type outputPath struct {
	weight  LatticeWeight
	olabels []Label
}

// summarizeCompact collects the paths of a compact lattice, failing if two paths
// share an input label sequence.
func summarizeCompact(t *testing.T, f Fst[CompactWeight[LatticeWeight]]) map[string]outputPath {
	t.Helper()
	out := make(map[string]outputPath)
	enumeratePaths(f, func(ilabels, _ []Label, w CompactWeight[LatticeWeight]) {
		key := fmt.Sprint(ilabels)
		_, dup := out[key]
		require.False(t, dup, "two paths with input %s", key)
		out[key] = outputPath{weight: w.Weight, olabels: slices.Clone(w.Labels)}
	})
	return out
}

// summarizeExpanded collects the paths of an expanded lattice.
func summarizeExpanded(t *testing.T, f Fst[LatticeWeight]) map[string]outputPath {
	t.Helper()
	out := make(map[string]outputPath)
	enumeratePaths(f, func(ilabels, olabels []Label, w LatticeWeight) {
		key := fmt.Sprint(ilabels)
		_, dup := out[key]
		require.False(t, dup, "two paths with input %s", key)
		out[key] = outputPath{weight: w, olabels: slices.Clone(olabels)}
	})
	return out
}

// requireEquivalent checks that the determinized paths match the input: the same
// input sequences, the best weight for each, and the output labels of some path
// achieving (close to) that weight.
func requireEquivalent(t *testing.T, in map[string]*pathSummary, out map[string]outputPath) {
	t.Helper()
	const tol = 0.02
	require.Len(t, out, len(in))
	for key, ps := range in {
		got, ok := out[key]
		require.True(t, ok, "missing input sequence %s", key)
		require.InDelta(t, ps.best.Value(), got.weight.Value(), tol, "weight of %s", key)

		matched := false
		for i, str := range ps.strings {
			if ps.weights[i].Value() <= ps.best.Value()+tol && slices.Equal(str, got.olabels) {
				matched = true
				break
			}
		}
		require.True(t, matched, "output labels %v of %s do not belong to a best path", got.olabels, key)
	}
}
