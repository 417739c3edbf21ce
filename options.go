package lattice

import "log/slog"

// DefaultDelta Default tolerance for approximate weight equality.
const DefaultDelta float32 = 1.0 / 1024

// DefaultLoadFactor Default entries per bucket before a subset table grows.
const DefaultLoadFactor = 0.75

// TraceInfo Progress of a determinization run, passed to the trace hook after each
// state is expanded.
type TraceInfo struct {
	// State The output state that was just expanded.
	State int
	// NumStates Output states created so far.
	NumStates int
	// Pending Output states still waiting to be expanded.
	Pending int
}

type options struct {
	delta      float32
	trace      func(TraceInfo) bool
	logger     *slog.Logger
	maxStates  int
	loadFactor float64
}

func newOptions(opts ...Option) *options {
	o := &options{
		delta:      DefaultDelta,
		logger:     slog.New(slog.DiscardHandler),
		loadFactor: DefaultLoadFactor,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option Configures a Determinizer.
type Option func(*options)

// WithDelta Tolerance used when comparing the weights of two subsets.
func WithDelta(delta float32) Option {
	return func(o *options) {
		o.delta = delta
	}
}

// WithTrace Install a hook called after every state expansion. If it returns true,
// determinization stops and reports the provenance of the last expanded state as a
// *TraceError.
func WithTrace(trace func(TraceInfo) bool) Option {
	return func(o *options) {
		o.trace = trace
	}
}

// WithLogger Logger for run statistics and trace reports. Nil keeps the default, which discards.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMaxStates Stop with ErrTooManyStates once more than n output states exist.
// Zero, the default, means no limit.
func WithMaxStates(n int) Option {
	return func(o *options) {
		o.maxStates = n
	}
}

// WithTableLoadFactor Entries per bucket the subset tables allow before they grow.
// Larger values save memory on big lattices at the cost of longer chains.
// Values that are not positive keep the default.
func WithTableLoadFactor(f float64) Option {
	return func(o *options) {
		if f > 0 {
			o.loadFactor = f
		}
	}
}
