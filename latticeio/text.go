package latticeio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/geange/lattice"
)

// Lattice A keyed lattice as read from a text archive.
type Lattice struct {
	Key string
	Fst *lattice.VectorFst[lattice.LatticeWeight]
}

// Reader Reads lattices in text form. Each lattice is a key line followed by one line
// per arc ("src dst ilabel olabel [graph,acoustic]") or final state
// ("state [graph,acoustic]"), and ends at a blank line or end of input. The source
// of the first line is the start state.
type Reader struct {
	sc   *bufio.Scanner
	line int
}

func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return &Reader{sc: sc}
}

// Next Returns the next lattice, or io.EOF when there are none left.
func (r *Reader) Next() (*Lattice, error) {
	key, ok, err := r.nextNonBlank()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, io.EOF
	}
	if len(strings.Fields(key)) != 1 {
		return nil, r.syntaxError("expected a key line, got %q", key)
	}

	lat := &Lattice{Key: strings.TrimSpace(key), Fst: lattice.NewVectorFst[lattice.LatticeWeight]()}
	for r.sc.Scan() {
		r.line++
		fields := strings.Fields(r.sc.Text())
		if len(fields) == 0 {
			break
		}
		if err := r.parseLine(lat.Fst, fields); err != nil {
			return nil, err
		}
	}
	if err := r.sc.Err(); err != nil {
		return nil, fmt.Errorf("read lattice %s: %w", lat.Key, err)
	}
	return lat, nil
}

// ReadAll Reads every lattice from r.
func ReadAll(r io.Reader) ([]*Lattice, error) {
	rd := NewReader(r)
	var out []*Lattice
	for {
		lat, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, lat)
	}
}

func (r *Reader) nextNonBlank() (string, bool, error) {
	for r.sc.Scan() {
		r.line++
		if text := r.sc.Text(); strings.TrimSpace(text) != "" {
			return text, true, nil
		}
	}
	return "", false, r.sc.Err()
}

func (r *Reader) parseLine(fst *lattice.VectorFst[lattice.LatticeWeight], fields []string) error {
	switch len(fields) {
	case 1, 2:
		state, err := r.parseState(fst, fields[0])
		if err != nil {
			return err
		}
		w := lattice.LatticeWeight{}
		if len(fields) == 2 {
			if w, err = r.parseWeight(fields[1]); err != nil {
				return err
			}
		}
		return fst.SetFinal(state, w)
	case 4, 5:
		src, err := r.parseState(fst, fields[0])
		if err != nil {
			return err
		}
		dst, err := r.parseState(fst, fields[1])
		if err != nil {
			return err
		}
		ilabel, err := r.parseLabel(fields[2])
		if err != nil {
			return err
		}
		olabel, err := r.parseLabel(fields[3])
		if err != nil {
			return err
		}
		w := lattice.LatticeWeight{}
		if len(fields) == 5 {
			if w, err = r.parseWeight(fields[4]); err != nil {
				return err
			}
		}
		return fst.AddArc(src, lattice.Arc[lattice.LatticeWeight]{ILabel: ilabel, OLabel: olabel, Weight: w, NextState: dst})
	default:
		return r.syntaxError("unexpected %d fields", len(fields))
	}
}

// parseState Parses a state id, creating states up to it. The first state seen becomes
// the start state.
func (r *Reader) parseState(fst *lattice.VectorFst[lattice.LatticeWeight], s string) (int, error) {
	state, err := strconv.Atoi(s)
	if err != nil || state < 0 {
		return 0, r.syntaxError("bad state %q", s)
	}
	for fst.NumStates() <= state {
		fst.AddState()
	}
	if fst.Start() == lattice.NoStateID {
		_ = fst.SetStart(state)
	}
	return state, nil
}

func (r *Reader) parseLabel(s string) (lattice.Label, error) {
	l, err := strconv.ParseInt(s, 10, 32)
	if err != nil || l < 0 {
		return 0, r.syntaxError("bad label %q", s)
	}
	return lattice.Label(l), nil
}

func (r *Reader) parseWeight(s string) (lattice.LatticeWeight, error) {
	w, err := ParseLatticeWeight(s)
	if err != nil {
		return w, r.syntaxError("%v", err)
	}
	return w, nil
}

func (r *Reader) syntaxError(format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrSyntax, r.line, fmt.Sprintf(format, args...))
}

// ParseLatticeWeight Parses "graph,acoustic".
func ParseLatticeWeight(s string) (lattice.LatticeWeight, error) {
	graph, acoustic, ok := strings.Cut(s, ",")
	if !ok {
		return lattice.LatticeWeight{}, fmt.Errorf("bad weight %q", s)
	}
	g, err := parseCost(graph)
	if err != nil {
		return lattice.LatticeWeight{}, fmt.Errorf("bad weight %q", s)
	}
	a, err := parseCost(acoustic)
	if err != nil {
		return lattice.LatticeWeight{}, fmt.Errorf("bad weight %q", s)
	}
	return lattice.NewLatticeWeight(g, a), nil
}

func parseCost(s string) (float32, error) {
	f, err := strconv.ParseFloat(s, 32)
	return float32(f), err
}

// WriteText Writes fst in text form under key. Arcs are written state by state,
// starting with the start state; each state's final weight follows its arcs.
func WriteText(w io.Writer, key string, fst lattice.Fst[lattice.LatticeWeight]) error {
	return writeText(w, key, fst, func(bw *bufio.Writer, s int, arc lattice.Arc[lattice.LatticeWeight]) {
		fmt.Fprintf(bw, "%d\t%d\t%d\t%d\t%s\n", s, arc.NextState, arc.ILabel, arc.OLabel, arc.Weight)
	})
}

// WriteCompactText Writes a compact lattice in text form under key. Arcs are
// "src dst label graph,acoustic,l1_l2_..." and finals "state graph,acoustic,l1_l2_...".
func WriteCompactText(w io.Writer, key string, fst lattice.Fst[lattice.CompactWeight[lattice.LatticeWeight]]) error {
	return writeText(w, key, fst, func(bw *bufio.Writer, s int, arc lattice.Arc[lattice.CompactWeight[lattice.LatticeWeight]]) {
		fmt.Fprintf(bw, "%d\t%d\t%d\t%s\n", s, arc.NextState, arc.ILabel, arc.Weight)
	})
}

func writeText[W lattice.Weight[W]](w io.Writer, key string, fst lattice.Fst[W], writeArc func(*bufio.Writer, int, lattice.Arc[W])) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, key)

	start := fst.Start()
	if start != lattice.NoStateID {
		numStates := fst.NumStates()
		writeState := func(s int) {
			for _, arc := range fst.Arcs(s) {
				writeArc(bw, s, arc)
			}
			if final := fst.Final(s); !final.IsZero() {
				fmt.Fprintf(bw, "%d\t%s\n", s, final)
			}
		}
		writeState(start)
		for s := 0; s < numStates; s++ {
			if s != start {
				writeState(s)
			}
		}
	}

	fmt.Fprintln(bw)
	return bw.Flush()
}
