package lattice

import (
	"slices"
	"strconv"
	"strings"
)

// CompactWeight A base weight paired with a sequence of output labels. This is the
// weight carried by the arcs and final states of a compact (acceptor) lattice: the
// label sequence that would sit on the output side of a transducer lives on the
// weight instead.
type CompactWeight[W Weight[W]] struct {
	Weight W
	Labels []Label
}

// NewCompactWeight returns (w, labels). The label slice is kept, not copied.
func NewCompactWeight[W Weight[W]](w W, labels []Label) CompactWeight[W] {
	return CompactWeight[W]{Weight: w, Labels: labels}
}

func (c CompactWeight[W]) Zero() CompactWeight[W] {
	return CompactWeight[W]{Weight: c.Weight.Zero()}
}

func (c CompactWeight[W]) One() CompactWeight[W] {
	return CompactWeight[W]{Weight: c.Weight.One()}
}

func (c CompactWeight[W]) IsZero() bool {
	return c.Weight.IsZero()
}

// Plus keeps the Compare-greater operand; strings are never merged.
func (c CompactWeight[W]) Plus(other CompactWeight[W]) CompactWeight[W] {
	if c.Compare(other) >= 0 {
		return c
	}
	return other
}

func (c CompactWeight[W]) Times(other CompactWeight[W]) CompactWeight[W] {
	if c.IsZero() || other.IsZero() {
		return c.Zero()
	}
	str := make([]Label, 0, len(c.Labels)+len(other.Labels))
	str = append(str, c.Labels...)
	str = append(str, other.Labels...)
	return CompactWeight[W]{Weight: c.Weight.Times(other.Weight), Labels: str}
}

// Divide removes other's string from the front of c's string and divides the base
// weights. It panics if other's string is not a prefix of c's.
func (c CompactWeight[W]) Divide(other CompactWeight[W]) CompactWeight[W] {
	if c.IsZero() {
		return c
	}
	if len(other.Labels) > len(c.Labels) || !slices.Equal(c.Labels[:len(other.Labels)], other.Labels) {
		panic("lattice: divisor string is not a prefix of the dividend")
	}
	return CompactWeight[W]{
		Weight: c.Weight.Divide(other.Weight),
		Labels: slices.Clone(c.Labels[len(other.Labels):]),
	}
}

func (c CompactWeight[W]) ApproxEqual(other CompactWeight[W], delta float32) bool {
	return c.Weight.ApproxEqual(other.Weight, delta) && slices.Equal(c.Labels, other.Labels)
}

// Compare orders on the base weight first; ties are broken by string length and
// then element-wise on the labels.
func (c CompactWeight[W]) Compare(other CompactWeight[W]) int {
	if comp := c.Weight.Compare(other.Weight); comp != 0 {
		return comp
	}
	return compareLabels(c.Labels, other.Labels)
}

func (c CompactWeight[W]) Hash() uint64 {
	h := c.Weight.Hash()
	for _, l := range c.Labels {
		h = h*phiC64 + uint64(mix32(int(l)))
	}
	return h
}

// String formats the weight as "<weight>,<l1>_<l2>_..."; the label part is empty for
// an empty sequence.
func (c CompactWeight[W]) String() string {
	var sb strings.Builder
	sb.WriteString(c.Weight.String())
	sb.WriteByte(',')
	for i, l := range c.Labels {
		if i > 0 {
			sb.WriteByte('_')
		}
		sb.WriteString(strconv.Itoa(int(l)))
	}
	return sb.String()
}

func compareLabels(a, b []Label) int {
	if len(a) < len(b) {
		return -1
	} else if len(a) > len(b) {
		return 1
	}
	for i := range a {
		if a[i] < b[i] {
			return -1
		} else if a[i] > b[i] {
			return 1
		}
	}
	return 0
}
