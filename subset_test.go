package lattice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closureFst:
//
//	0 -eps:10/1-> 1 -eps:11/1-> 2 -1:1/0-> 3 (final)
//	0 -eps:eps/3-> 2
//	4 (unreachable, no arcs)
func closureFst(t *testing.T) *VectorFst[TropicalWeight] {
	return buildTropical(t, 5, []testArc{
		{src: 0, dst: 1, olabel: 10, weight: 1},
		{src: 0, dst: 2, weight: 3},
		{src: 1, dst: 2, olabel: 11, weight: 1},
		{src: 2, dst: 3, ilabel: 1, olabel: 1},
	}, map[int]float32{3: 0})
}

func newTestDeterminizer[W Weight[W]](t *testing.T, f Fst[W], opts ...Option) *Determinizer[W] {
	t.Helper()
	d, err := NewDeterminizer(f, opts...)
	require.NoError(t, err)
	return d
}

func TestEpsilonClosure(t *testing.T) {
	for _, sorted := range []bool{true, false} {
		f := closureFst(t)
		if !sorted {
			// Same arcs, but the labeled arc of state 2 comes before an epsilon one.
			require.NoError(t, f.AddArc(2, Arc[TropicalWeight]{ILabel: Epsilon, OLabel: 12, Weight: 5, NextState: 4}))
		}
		assert.Equal(t, sorted, f.ILabelSorted())

		d := newTestDeterminizer[TropicalWeight](t, f)
		closure := d.epsilonClosure([]Element[TropicalWeight]{{State: 0, String: EmptyString, Weight: 0}})

		states := make([]int, len(closure))
		for i, e := range closure {
			states[i] = e.State
		}
		if sorted {
			assert.Equal(t, []int{0, 1, 2}, states)
		} else {
			assert.Equal(t, []int{0, 1, 2, 4}, states)
			assert.Equal(t, []Label{10, 11, 12}, d.repo.ConvertToVector(closure[3].String))
			assert.Equal(t, TropicalWeight(7), closure[3].Weight)
		}

		// State 2 is reached with weight 3 directly and 2 through state 1; the
		// cheaper path and its string win.
		assert.Equal(t, TropicalWeight(2), closure[2].Weight)
		assert.Equal(t, []Label{10, 11}, d.repo.ConvertToVector(closure[2].String))
		assert.Equal(t, TropicalWeight(1), closure[1].Weight)
		assert.Equal(t, []Label{10}, d.repo.ConvertToVector(closure[1].String))
	}
}

func TestEpsilonClosureDoesNotModifyInput(t *testing.T) {
	d := newTestDeterminizer[TropicalWeight](t, closureFst(t))
	in := []Element[TropicalWeight]{{State: 0, String: EmptyString, Weight: 0}}
	d.epsilonClosure(in)
	assert.Equal(t, []Element[TropicalWeight]{{State: 0, String: EmptyString, Weight: 0}}, in)
}

func TestEpsilonSelfLoop(t *testing.T) {
	tests := []struct {
		name   string
		weight float32
	}{
		{"ZeroCost", 0},
		{"PositiveCost", 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := buildTropical(t, 2, []testArc{
				{src: 0, dst: 0, weight: tt.weight},
				{src: 0, dst: 1, ilabel: 1, olabel: 1, weight: 1},
			}, map[int]float32{1: 0})
			f.ArcSort()

			d := newTestDeterminizer[TropicalWeight](t, f)
			closure := d.epsilonClosure([]Element[TropicalWeight]{{State: 0, String: EmptyString, Weight: 0}})
			require.Len(t, closure, 1)
			assert.Equal(t, 0, closure[0].State)
			assert.Equal(t, TropicalWeight(0), closure[0].Weight)
			assert.Equal(t, EmptyString, closure[0].String)
		})
	}
}

func TestConvertToMinimal(t *testing.T) {
	d := newTestDeterminizer[TropicalWeight](t, closureFst(t))
	subset := []Element[TropicalWeight]{
		{State: 0}, {State: 1}, {State: 2}, {State: 3}, {State: 4},
	}
	got := d.convertToMinimal(subset)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].State)
	assert.Equal(t, 3, got[1].State)

	// Cached answers agree with fresh ones.
	assert.True(t, d.isEmittingOrFinal(3))
	assert.False(t, d.isEmittingOrFinal(4))
	assert.False(t, d.isEmittingOrFinal(4))
	assert.Empty(t, d.convertToMinimal([]Element[TropicalWeight]{{State: 0}, {State: 4}}))
}

func TestNormalizeSubset(t *testing.T) {
	d := newTestDeterminizer[TropicalWeight](t, closureFst(t))
	r := d.repo

	t.Run("FactorsWeightAndPrefix", func(t *testing.T) {
		subset := []Element[TropicalWeight]{
			{State: 1, String: r.ConvertFromVector([]Label{5, 6}), Weight: 2},
			{State: 3, String: r.ConvertFromVector([]Label{5, 7}), Weight: 1},
		}
		w, prefix := d.normalizeSubset(subset)
		assert.Equal(t, TropicalWeight(1), w)
		assert.Equal(t, []Label{5}, r.ConvertToVector(prefix))
		assert.Equal(t, TropicalWeight(1), subset[0].Weight)
		assert.Equal(t, TropicalWeight(0), subset[1].Weight)
		assert.Equal(t, []Label{6}, r.ConvertToVector(subset[0].String))
		assert.Equal(t, []Label{7}, r.ConvertToVector(subset[1].String))
	})

	t.Run("SingleElement", func(t *testing.T) {
		subset := []Element[TropicalWeight]{{State: 2, String: r.ConvertFromVector([]Label{8, 9}), Weight: 4}}
		w, prefix := d.normalizeSubset(subset)
		assert.Equal(t, TropicalWeight(4), w)
		assert.Equal(t, []Label{8, 9}, r.ConvertToVector(prefix))
		assert.Equal(t, Element[TropicalWeight]{State: 2, String: EmptyString, Weight: 0}, subset[0])
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Panics(t, func() { d.normalizeSubset(nil) })
	})

	t.Run("ZeroWeight", func(t *testing.T) {
		var w TropicalWeight
		assert.Panics(t, func() {
			d.normalizeSubset([]Element[TropicalWeight]{{State: 1, Weight: w.Zero()}})
		})
	})
}

func TestMakeSubsetUnique(t *testing.T) {
	d := newTestDeterminizer[TropicalWeight](t, closureFst(t))
	r := d.repo
	x := r.ConvertFromVector([]Label{4})

	t.Run("KeepsBest", func(t *testing.T) {
		subset := []Element[TropicalWeight]{
			{State: 1, String: EmptyString, Weight: 3},
			{State: 1, String: x, Weight: 2},
			{State: 1, String: EmptyString, Weight: 5},
			{State: 2, String: EmptyString, Weight: 0},
		}
		got := d.makeSubsetUnique(subset)
		assert.Equal(t, []Element[TropicalWeight]{
			{State: 1, String: x, Weight: 2},
			{State: 2, String: EmptyString, Weight: 0},
		}, got)
	})

	t.Run("TieOnWeight", func(t *testing.T) {
		subset := []Element[TropicalWeight]{
			{State: 1, String: x, Weight: 2},
			{State: 1, String: EmptyString, Weight: 2},
		}
		got := d.makeSubsetUnique(subset)
		require.Len(t, got, 1)
		assert.Equal(t, x, got[0].String)
	})

	t.Run("Unsorted", func(t *testing.T) {
		assert.Panics(t, func() {
			d.makeSubsetUnique([]Element[TropicalWeight]{{State: 2}, {State: 1}})
		})
	})
}

func TestCompare(t *testing.T) {
	d := newTestDeterminizer[TropicalWeight](t, closureFst(t))
	r := d.repo
	a := r.ConvertFromVector([]Label{1, 2})
	b := r.ConvertFromVector([]Label{1, 3})
	c := r.ConvertFromVector([]Label{1})

	tests := []struct {
		name   string
		aw     TropicalWeight
		as     StringID
		bw     TropicalWeight
		bs     StringID
		expect int
	}{
		{"CheaperWins", 1, c, 2, a, 1},
		{"DearerLoses", 2, c, 1, a, -1},
		{"SameString", 1, a, 1, a, 0},
		{"LongerString", 1, a, 1, c, 1},
		{"ShorterString", 1, c, 1, a, -1},
		{"LabelOrder", 1, a, 1, b, -1},
		{"LabelOrderReversed", 1, b, 1, a, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, d.compare(tt.aw, tt.as, tt.bw, tt.bs))
		})
	}
}
