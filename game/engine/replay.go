package engine

import "fmt"

// ReplayError reports the first move of a sequence that could not be replayed.
type ReplayError struct {
	Index int
	Err   error
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("replay: move %d: %v", e.Index+1, e.Err)
}

func (e *ReplayError) Unwrap() error {
	return e.Err
}

// Replay plays moves in order from NewInitialState and returns the resulting
// state. It stops at the first move the validator rejects.
func Replay(moves []Move) (*GameState, error) {
	return ReplayFrom(NewInitialState(), moves)
}

// ReplayFrom is Replay starting from an arbitrary state. start is not modified.
func ReplayFrom(start *GameState, moves []Move) (*GameState, error) {
	s := start
	for i, m := range moves {
		if err := Explain(m, s); err != nil {
			return nil, &ReplayError{Index: i, Err: err}
		}
		s = Apply(m, s)
	}
	if s == start {
		s = start.Clone()
	}
	return s, nil
}
