package latticeio

import "errors"

var (
	// ErrSyntax indicates malformed text input.
	ErrSyntax = errors.New("latticeio: syntax error")
	// ErrWire indicates malformed binary input.
	ErrWire = errors.New("latticeio: malformed binary lattice")
)
