package lattice

import (
	"math"
	"strconv"
)

// Weight is the semiring contract required by the lattice determinizer. W is the
// implementing value type itself, so Zero and One may be called on any value,
// including the zero value of W.
//
// Compare must define a total order consistent with semiring equality: it returns
// 1 if the receiver is "more" in the semiring than other (for cost-like weights,
// cheaper), -1 if it is less, and 0 if they are equal. Plus is expected to select
// the Compare-greater operand; the determinizer relies on this when it keeps only
// the best (weight, string) pair for a merged state.
type Weight[W any] interface {
	Zero() W
	One() W
	IsZero() bool
	Plus(other W) W
	Times(other W) W
	// Divide is left division: w.Divide(v) returns u such that v.Times(u) == w.
	Divide(other W) W
	ApproxEqual(other W, delta float32) bool
	Compare(other W) int
	Hash() uint64
	String() string
}

var (
	_ Weight[TropicalWeight] = TropicalWeight(0)
	_ Weight[LatticeWeight]  = LatticeWeight{}
)

var posInf = float32(math.Inf(1))

// TropicalWeight A single cost in the tropical semiring (min, +).
type TropicalWeight float32

func (TropicalWeight) Zero() TropicalWeight {
	return TropicalWeight(posInf)
}

func (TropicalWeight) One() TropicalWeight {
	return 0
}

func (w TropicalWeight) IsZero() bool {
	return float32(w) == posInf
}

func (w TropicalWeight) Plus(other TropicalWeight) TropicalWeight {
	if other < w {
		return other
	}
	return w
}

func (w TropicalWeight) Times(other TropicalWeight) TropicalWeight {
	if w.IsZero() || other.IsZero() {
		return w.Zero()
	}
	return w + other
}

func (w TropicalWeight) Divide(other TropicalWeight) TropicalWeight {
	if other.IsZero() {
		panic("lattice: division by zero weight")
	}
	if w.IsZero() {
		return w
	}
	return w - other
}

func (w TropicalWeight) ApproxEqual(other TropicalWeight, delta float32) bool {
	if w == other {
		return true
	}
	return float32(w) <= float32(other)+delta && float32(other) <= float32(w)+delta
}

func (w TropicalWeight) Compare(other TropicalWeight) int {
	switch {
	case w < other:
		return 1
	case w > other:
		return -1
	default:
		return 0
	}
}

func (w TropicalWeight) Hash() uint64 {
	return uint64(math.Float32bits(float32(w)))
}

func (w TropicalWeight) String() string {
	return formatCost(float32(w))
}

// LatticeWeight A pair of costs (graph cost, acoustic cost) that behaves like the
// tropical semiring on their sum. Ties on the sum are broken on the graph cost, which
// makes Compare a total order.
type LatticeWeight struct {
	Graph    float32
	Acoustic float32
}

// NewLatticeWeight returns the weight (graph, acoustic).
func NewLatticeWeight(graph, acoustic float32) LatticeWeight {
	return LatticeWeight{Graph: graph, Acoustic: acoustic}
}

func (LatticeWeight) Zero() LatticeWeight {
	return LatticeWeight{Graph: posInf, Acoustic: posInf}
}

func (LatticeWeight) One() LatticeWeight {
	return LatticeWeight{}
}

func (w LatticeWeight) IsZero() bool {
	return w.Graph == posInf || w.Acoustic == posInf
}

// Value Total cost of the weight.
func (w LatticeWeight) Value() float32 {
	return w.Graph + w.Acoustic
}

func (w LatticeWeight) Plus(other LatticeWeight) LatticeWeight {
	if w.Compare(other) >= 0 {
		return w
	}
	return other
}

func (w LatticeWeight) Times(other LatticeWeight) LatticeWeight {
	if w.IsZero() || other.IsZero() {
		return w.Zero()
	}
	return LatticeWeight{Graph: w.Graph + other.Graph, Acoustic: w.Acoustic + other.Acoustic}
}

func (w LatticeWeight) Divide(other LatticeWeight) LatticeWeight {
	if other.IsZero() {
		panic("lattice: division by zero weight")
	}
	if w.IsZero() {
		return w
	}
	return LatticeWeight{Graph: w.Graph - other.Graph, Acoustic: w.Acoustic - other.Acoustic}
}

func (w LatticeWeight) ApproxEqual(other LatticeWeight, delta float32) bool {
	if w == other {
		return true
	}
	return TropicalWeight(w.Graph).ApproxEqual(TropicalWeight(other.Graph), delta) &&
		TropicalWeight(w.Acoustic).ApproxEqual(TropicalWeight(other.Acoustic), delta)
}

func (w LatticeWeight) Compare(other LatticeWeight) int {
	f1, f2 := w.Value(), other.Value()
	if f1 < f2 {
		return 1
	} else if f1 > f2 {
		return -1
	}

	// Then graph cost:
	if w.Graph < other.Graph {
		return 1
	} else if w.Graph > other.Graph {
		return -1
	}
	return 0
}

func (w LatticeWeight) Hash() uint64 {
	return uint64(math.Float32bits(w.Graph))<<32 | uint64(math.Float32bits(w.Acoustic))
}

func (w LatticeWeight) String() string {
	return formatCost(w.Graph) + "," + formatCost(w.Acoustic)
}

func formatCost(f float32) string {
	if f == posInf {
		return "Infinity"
	}
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}
