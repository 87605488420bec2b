package engine

import "encoding/json"

// History is the append-only record of moves that have been applied to a game,
// in commit order.
type History struct {
	moves []Move
}

// NewHistory returns a history pre-filled with moves, as when restoring a
// persisted game.
func NewHistory(moves []Move) *History {
	h := &History{}
	h.moves = append(h.moves, moves...)
	return h
}

// PushMove appends m. Callers only push moves that have been applied.
func (h *History) PushMove(m Move) {
	h.moves = append(h.moves, m)
}

// Moves returns a copy of the recorded moves.
func (h *History) Moves() []Move {
	out := make([]Move, len(h.moves))
	copy(out, h.moves)
	return out
}

// Len returns the number of recorded moves
func (h *History) Len() int {
	return len(h.moves)
}

// Last returns the most recent move, or false if the history is empty.
func (h *History) Last() (Move, bool) {
	if len(h.moves) == 0 {
		return Move{}, false
	}
	return h.moves[len(h.moves)-1], true
}

func (h *History) MarshalJSON() ([]byte, error) {
	if h.moves == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h.moves)
}

func (h *History) UnmarshalJSON(b []byte) error {
	var moves []Move
	if err := json.Unmarshal(b, &moves); err != nil {
		return err
	}
	h.moves = moves
	return nil
}
