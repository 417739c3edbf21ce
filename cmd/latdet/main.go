package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/geange/lattice"
	"github.com/geange/lattice/internal/archive"
	"github.com/geange/lattice/latticeio"
	"google.golang.org/protobuf/encoding/protowire"
)

type config struct {
	delta     float64
	compact   bool
	maxStates int
	connect   bool
	dbPath    string
	format    string
	verbose   bool
}

func main() {
	os.Exit(realMain(os.Args[1:]))
}

// realMain Returns the exit code, so that deferred flushes run before the process exits.
func realMain(args []string) int {
	var cfg config
	flags := flag.NewFlagSet("latdet", flag.ContinueOnError)
	flags.Float64Var(&cfg.delta, "delta", float64(lattice.DefaultDelta), "tolerance for weight equality")
	flags.BoolVar(&cfg.compact, "compact", false, "write compact lattices (output labels on the weights)")
	flags.IntVar(&cfg.maxStates, "max-states", 0, "give up on a lattice after this many output states (0: no limit)")
	flags.BoolVar(&cfg.connect, "connect", true, "drop states that are not on a path from the start to a final state")
	flags.StringVar(&cfg.dbPath, "db", "", "archive every run in this sqlite database")
	flags.StringVar(&cfg.format, "format", "text", "output format: text or binary")
	flags.BoolVar(&cfg.verbose, "v", false, "log run statistics")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	if cfg.format != "text" && cfg.format != "binary" {
		fmt.Fprintln(os.Stderr, "usage: latdet [-delta f] [-compact] [-connect] [-max-states n] [-db path] [-format text|binary] [in [out]]")
		return 2
	}

	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	in, out, closeFiles, err := openFiles(flags.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer closeFiles()

	// SIGUSR1 asks a runaway determinization to print where it is and stop.
	var traced atomic.Bool
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGUSR1)
	defer signal.Stop(sigs)
	go func() {
		for range sigs {
			traced.Store(true)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = run(ctx, cfg, in, out, logger, func(lattice.TraceInfo) bool { return traced.Load() })
	var traceErr *lattice.TraceError
	if errors.As(err, &traceErr) {
		fmt.Fprintf(os.Stderr, "traceback: %s\n", traceErr.Format())
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func openFiles(args []string) (io.Reader, *bufio.Writer, func(), error) {
	var (
		in  io.Reader = os.Stdin
		out io.Writer = os.Stdout
		fs  []*os.File
	)
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open input: %w", err)
		}
		fs = append(fs, f)
		in = f
	}
	if len(args) > 1 && args[1] != "-" {
		f, err := os.Create(args[1])
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create output: %w", err)
		}
		fs = append(fs, f)
		out = f
	}
	bw := bufio.NewWriter(out)
	return in, bw, func() {
		bw.Flush()
		for _, f := range fs {
			f.Close()
		}
	}, nil
}

func run(ctx context.Context, cfg config, in io.Reader, out io.Writer, logger *slog.Logger, trace func(lattice.TraceInfo) bool) error {
	var store *archive.Store
	if cfg.dbPath != "" {
		var err error
		if store, err = archive.Open(cfg.dbPath); err != nil {
			return err
		}
		defer store.Close()
	}

	opts := []lattice.Option{
		lattice.WithDelta(float32(cfg.delta)),
		lattice.WithMaxStates(cfg.maxStates),
		lattice.WithLogger(logger),
		lattice.WithTrace(trace),
	}

	rd := latticeio.NewReader(in)
	n := 0
	for {
		lat, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if err := determinizeOne(ctx, cfg, lat, out, store, logger, opts); err != nil {
			return fmt.Errorf("lattice %s: %w", lat.Key, err)
		}
		n++
	}
	logger.Info("done", "lattices", n)
	return nil
}

func determinizeOne(ctx context.Context, cfg config, lat *latticeio.Lattice, out io.Writer, store *archive.Store, logger *slog.Logger, opts []lattice.Option) error {
	fst := lat.Fst
	if cfg.connect {
		fst = lattice.Connect[lattice.LatticeWeight](fst)
	}
	if !lattice.IsAcyclic[lattice.LatticeWeight](fst) {
		logger.Warn("cyclic lattice, determinization may not terminate", "key", lat.Key)
	}
	// Determinization stops scanning a state for epsilons at its first labeled arc.
	fst.ArcSort()

	d, err := lattice.NewDeterminizer[lattice.LatticeWeight](fst, opts...)
	if err != nil {
		return err
	}
	if err := d.Determinize(ctx); err != nil {
		return err
	}

	var (
		expanded *lattice.VectorFst[lattice.LatticeWeight]
		compact  *lattice.VectorFst[lattice.CompactWeight[lattice.LatticeWeight]]
	)
	// The archive keeps the expanded form, so it is produced first without
	// releasing anything whenever both are needed.
	if store != nil || !cfg.compact {
		if expanded, err = d.OutputExpanded(!cfg.compact); err != nil {
			return err
		}
	}
	if cfg.compact {
		if compact, err = d.OutputCompact(true); err != nil {
			return err
		}
	}

	if store != nil {
		id, err := store.Save(archive.RunRecord{
			Key:          lat.Key,
			Delta:        float32(cfg.delta),
			InputStates:  lat.Fst.NumStates(),
			OutputStates: expanded.NumStates(),
			OutputArcs:   expanded.TotalArcs(),
			Lattice:      latticeio.MarshalLattice(expanded),
		})
		if err != nil {
			return err
		}
		logger.Debug("archived run", "key", lat.Key, "run_id", id)
	}

	switch {
	case cfg.format == "binary" && compact != nil:
		return writeRecord(out, lat.Key, latticeio.MarshalCompactLattice(compact))
	case cfg.format == "binary":
		return writeRecord(out, lat.Key, latticeio.MarshalLattice(expanded))
	case compact != nil:
		return latticeio.WriteCompactText(out, lat.Key, compact)
	default:
		return latticeio.WriteText(out, lat.Key, expanded)
	}
}

// writeRecord Writes one length-delimited {1: key, 2: lattice} message.
func writeRecord(w io.Writer, key string, payload []byte) error {
	var rec []byte
	rec = protowire.AppendTag(rec, 1, protowire.BytesType)
	rec = protowire.AppendString(rec, key)
	rec = protowire.AppendTag(rec, 2, protowire.BytesType)
	rec = protowire.AppendBytes(rec, payload)
	_, err := w.Write(protowire.AppendBytes(nil, rec))
	return err
}
