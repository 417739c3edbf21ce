package latticeio

import (
	"fmt"
	"math"

	"github.com/geange/lattice"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	latticeStartField  protowire.Number = 1
	latticeStatesField protowire.Number = 2

	stateFinalGraphField    protowire.Number = 1
	stateFinalAcousticField protowire.Number = 2
	stateIsFinalField       protowire.Number = 3
	stateArcsField          protowire.Number = 4
	stateFinalLabelsField   protowire.Number = 5

	arcILabelField    protowire.Number = 1
	arcOLabelField    protowire.Number = 2
	arcNextStateField protowire.Number = 3
	arcGraphField     protowire.Number = 4
	arcAcousticField  protowire.Number = 5
	arcLabelsField    protowire.Number = 6
)

type compactLatticeWeight = lattice.CompactWeight[lattice.LatticeWeight]

// MarshalLattice Encodes a lattice in the binary form described in the package
// documentation.
func MarshalLattice(fst lattice.Fst[lattice.LatticeWeight]) []byte {
	return marshal(fst, func(w lattice.LatticeWeight) (lattice.LatticeWeight, []lattice.Label) {
		return w, nil
	})
}

// MarshalCompactLattice Encodes a compact lattice; output labels go in the packed
// label fields.
func MarshalCompactLattice(fst lattice.Fst[compactLatticeWeight]) []byte {
	return marshal(fst, func(w compactLatticeWeight) (lattice.LatticeWeight, []lattice.Label) {
		return w.Weight, w.Labels
	})
}

// UnmarshalLattice Decodes a lattice written by MarshalLattice. Label fields, if
// present, are ignored.
func UnmarshalLattice(b []byte) (*lattice.VectorFst[lattice.LatticeWeight], error) {
	return unmarshal(b, func(w lattice.LatticeWeight, _ []lattice.Label) lattice.LatticeWeight {
		return w
	})
}

// UnmarshalCompactLattice Decodes a lattice written by MarshalCompactLattice.
func UnmarshalCompactLattice(b []byte) (*lattice.VectorFst[compactLatticeWeight], error) {
	return unmarshal(b, func(w lattice.LatticeWeight, labels []lattice.Label) compactLatticeWeight {
		return lattice.NewCompactWeight(w, labels)
	})
}

func marshal[W lattice.Weight[W]](fst lattice.Fst[W], split func(W) (lattice.LatticeWeight, []lattice.Label)) []byte {
	var b []byte
	b = protowire.AppendTag(b, latticeStartField, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(fst.Start())))

	numStates := fst.NumStates()
	var sb, ab []byte
	for s := 0; s < numStates; s++ {
		sb = sb[:0]
		if final := fst.Final(s); !final.IsZero() {
			w, labels := split(final)
			sb = appendFixed32(sb, stateFinalGraphField, w.Graph)
			sb = appendFixed32(sb, stateFinalAcousticField, w.Acoustic)
			sb = protowire.AppendTag(sb, stateIsFinalField, protowire.VarintType)
			sb = protowire.AppendVarint(sb, protowire.EncodeBool(true))
			sb = appendLabels(sb, stateFinalLabelsField, labels)
		}
		for _, arc := range fst.Arcs(s) {
			w, labels := split(arc.Weight)
			ab = ab[:0]
			ab = appendInt32(ab, arcILabelField, int32(arc.ILabel))
			ab = appendInt32(ab, arcOLabelField, int32(arc.OLabel))
			ab = appendInt32(ab, arcNextStateField, int32(arc.NextState))
			ab = appendFixed32(ab, arcGraphField, w.Graph)
			ab = appendFixed32(ab, arcAcousticField, w.Acoustic)
			ab = appendLabels(ab, arcLabelsField, labels)

			sb = protowire.AppendTag(sb, stateArcsField, protowire.BytesType)
			sb = protowire.AppendBytes(sb, ab)
		}
		b = protowire.AppendTag(b, latticeStatesField, protowire.BytesType)
		b = protowire.AppendBytes(b, sb)
	}
	return b
}

func appendInt32(b []byte, num protowire.Number, v int32) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendFixed32(b []byte, num protowire.Number, f float32) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(f))
}

func appendLabels(b []byte, num protowire.Number, labels []lattice.Label) []byte {
	if len(labels) == 0 {
		return b
	}
	var packed []byte
	for _, l := range labels {
		packed = protowire.AppendVarint(packed, uint64(int32(l)))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

type wireArc struct {
	ilabel, olabel lattice.Label
	nextState      int
	weight         lattice.LatticeWeight
	labels         []lattice.Label
}

type wireState struct {
	isFinal     bool
	final       lattice.LatticeWeight
	finalLabels []lattice.Label
	arcs        []wireArc
}

func unmarshal[W lattice.Weight[W]](b []byte, join func(lattice.LatticeWeight, []lattice.Label) W) (*lattice.VectorFst[W], error) {
	start := lattice.NoStateID
	var states []wireState

	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch {
		case num == latticeStartField && typ == protowire.VarintType:
			start = int(protowire.DecodeZigZag(x))
		case num == latticeStatesField && typ == protowire.BytesType:
			st, err := unmarshalState(v)
			if err != nil {
				return err
			}
			states = append(states, st)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fst := lattice.NewVectorFstV1[W](len(states))
	for range states {
		fst.AddState()
	}
	if err := fst.SetStart(start); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWire, err)
	}
	for s, st := range states {
		if st.isFinal {
			if err := fst.SetFinal(s, join(st.final, st.finalLabels)); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrWire, err)
			}
		}
		for _, a := range st.arcs {
			arc := lattice.Arc[W]{ILabel: a.ilabel, OLabel: a.olabel, Weight: join(a.weight, a.labels), NextState: a.nextState}
			if err := fst.AddArc(s, arc); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrWire, err)
			}
		}
	}
	return fst, nil
}

func unmarshalState(b []byte) (wireState, error) {
	var st wireState
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch {
		case num == stateFinalGraphField && typ == protowire.Fixed32Type:
			st.final.Graph = math.Float32frombits(uint32(x))
		case num == stateFinalAcousticField && typ == protowire.Fixed32Type:
			st.final.Acoustic = math.Float32frombits(uint32(x))
		case num == stateIsFinalField && typ == protowire.VarintType:
			st.isFinal = protowire.DecodeBool(x)
		case num == stateFinalLabelsField && typ == protowire.BytesType:
			labels, err := unpackLabels(v)
			if err != nil {
				return err
			}
			st.finalLabels = labels
		case num == stateArcsField && typ == protowire.BytesType:
			arc, err := unmarshalArc(v)
			if err != nil {
				return err
			}
			st.arcs = append(st.arcs, arc)
		}
		return nil
	})
	return st, err
}

func unmarshalArc(b []byte) (wireArc, error) {
	var arc wireArc
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch {
		case num == arcILabelField && typ == protowire.VarintType:
			arc.ilabel = lattice.Label(int32(x))
		case num == arcOLabelField && typ == protowire.VarintType:
			arc.olabel = lattice.Label(int32(x))
		case num == arcNextStateField && typ == protowire.VarintType:
			arc.nextState = int(int32(x))
		case num == arcGraphField && typ == protowire.Fixed32Type:
			arc.weight.Graph = math.Float32frombits(uint32(x))
		case num == arcAcousticField && typ == protowire.Fixed32Type:
			arc.weight.Acoustic = math.Float32frombits(uint32(x))
		case num == arcLabelsField && typ == protowire.BytesType:
			labels, err := unpackLabels(v)
			if err != nil {
				return err
			}
			arc.labels = labels
		}
		return nil
	})
	return arc, err
}

func unpackLabels(b []byte) ([]lattice.Label, error) {
	var labels []lattice.Label
	for len(b) > 0 {
		x, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %w", ErrWire, protowire.ParseError(n))
		}
		labels = append(labels, lattice.Label(int32(x)))
		b = b[n:]
	}
	return labels, nil
}

// consumeFields Walks the fields of one message. Varint and fixed32 values arrive in
// x, length-delimited ones in v; unknown wire types are skipped.
func consumeFields(b []byte, field func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %w", ErrWire, protowire.ParseError(n))
		}
		b = b[n:]

		var (
			v []byte
			x uint64
		)
		switch typ {
		case protowire.VarintType:
			x, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			var u uint32
			u, n = protowire.ConsumeFixed32(b)
			x = uint64(u)
		case protowire.BytesType:
			v, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("%w: %w", ErrWire, protowire.ParseError(n))
		}
		b = b[n:]

		if err := field(num, typ, v, x); err != nil {
			return err
		}
	}
	return nil
}
