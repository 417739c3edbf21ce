package lattice

import "errors"

var (
	// ErrNilFst indicates no input automaton was given.
	ErrNilFst = errors.New("lattice: input automaton is nil")
	// ErrInvalidStart indicates the input's start state is out of range.
	ErrInvalidStart = errors.New("lattice: start state out of range")
	// ErrInvalidState indicates a state id that does not exist in the automaton.
	ErrInvalidState = errors.New("lattice: state out of range")
	// ErrNotDeterminized indicates output was requested before Determinize completed.
	ErrNotDeterminized = errors.New("lattice: determinization has not completed")
	// ErrOutputConsumed indicates a destructive output already released the result.
	ErrOutputConsumed = errors.New("lattice: output already consumed")
	// ErrTooManyStates indicates the configured state limit was exceeded.
	ErrTooManyStates = errors.New("lattice: too many states to determinize")
	// ErrTraced indicates the trace hook stopped determinization.
	ErrTraced = errors.New("lattice: determinization stopped by trace hook")
)
