package engine

import (
	"errors"
	"fmt"
)

// Rejection reasons reported by Explain. They describe ordinary, expected
// outcomes of validation.
var (
	ErrNotYourTurn     = errors.New("not your turn")
	ErrWrongPhase      = errors.New("move not allowed in current phase")
	ErrOutOfBounds     = errors.New("position out of bounds")
	ErrNoRingsLeft     = errors.New("no rings left to place")
	ErrMarkerPoolEmpty = errors.New("no markers left in pool")
	ErrNotYourRing     = errors.New("source is not a ring of the mover")
	ErrOccupied        = errors.New("target position is occupied")
	ErrUnsupportedMove = errors.New("move kind not yet supported")
	ErrMalformedMove   = errors.New("move has no payload")
)

// ErrInvariant marks internal consistency faults. It is never the result of
// bad player input.
var ErrInvariant = errors.New("engine invariant violated")

// IllegalMoveError explains why a move was rejected.
type IllegalMoveError struct {
	Move   Move
	Reason error
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move %s: %v", e.Move, e.Reason)
}

func (e *IllegalMoveError) Unwrap() error {
	return e.Reason
}

// InvariantError is the panic value used when the engine detects corrupted
// state, such as two active pieces on one cell or Apply called on a move that
// fails validation. Session code recovers it at its boundary.
type InvariantError struct {
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvariant, e.Detail)
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariant
}

func invariantf(format string, args ...any) {
	panic(&InvariantError{Detail: fmt.Sprintf(format, args...)})
}

func illegal(m Move, reason error) error {
	return &IllegalMoveError{Move: m, Reason: reason}
}
