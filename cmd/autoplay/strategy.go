package main

import (
	"github.com/wricardo/yinsh/game/engine"
	"github.com/wricardo/yinsh/game/hex"
)

// SystematicStrategy picks moves by scoring every legal candidate. Rings go
// where they see the most open cells; markers are dropped so the moved ring
// lands on the open cell with the best view. Ties go to the cell nearer the
// centre, then to board order, so the same state always yields the same move.
type SystematicStrategy struct {
	cells []hex.Position

	// Evaluated counts candidate moves scored since the last Reset
	Evaluated int
}

// NewSystematicStrategy creates a strategy over the full board
func NewSystematicStrategy() *SystematicStrategy {
	return &SystematicStrategy{cells: hex.Cells()}
}

// NextMove returns the best legal move for the player to move, or false when
// there is none, e.g. once the marker pool is empty.
func (s *SystematicStrategy) NextMove(state *engine.GameState) (engine.Move, bool) {
	switch state.Phase {
	case engine.InitialRingPlacement:
		return s.bestRing(state)
	case engine.MarkerPlacement:
		return s.bestMarker(state)
	default:
		return engine.Move{}, false
	}
}

func (s *SystematicStrategy) bestRing(state *engine.GameState) (engine.Move, bool) {
	player := state.CurrentPlayer
	var best engine.Move
	bestScore, found := 0, false

	for _, cell := range s.cells {
		m := engine.NewPlaceRing(player, cell)
		if !engine.Validate(m, state) {
			continue
		}
		s.Evaluated++
		if score := s.score(state, cell); !found || score > bestScore {
			best, bestScore, found = m, score, true
		}
	}
	return best, found
}

func (s *SystematicStrategy) bestMarker(state *engine.GameState) (engine.Move, bool) {
	player := state.CurrentPlayer
	rings := state.FilterPieces(engine.Is(player), engine.Is(engine.Ring), engine.Is(engine.Active))

	var best engine.Move
	bestScore, found := 0, false

	for _, ring := range rings {
		source := *ring.Position
		for _, cell := range s.cells {
			m := engine.NewPlaceMarker(player, source, cell)
			if !engine.Validate(m, state) {
				continue
			}
			s.Evaluated++
			if score := s.score(engine.Apply(m, state), cell); !found || score > bestScore {
				best, bestScore, found = m, score, true
			}
		}
	}
	return best, found
}

// score rates a ring standing on pos. Open cells seen count double so reach
// dominates and centrality breaks ties.
func (s *SystematicStrategy) score(state *engine.GameState, pos hex.Position) int {
	return 2*reach(state, pos) - hex.Distance(hex.Origin, pos)
}

// Reset clears the evaluation counter
func (s *SystematicStrategy) Reset() {
	s.Evaluated = 0
}

// reach counts the empty cells visible from pos along the six directions,
// stopping at the first piece on each ray
func reach(state *engine.GameState, pos hex.Position) int {
	n := 0
	for _, d := range hex.Directions {
		for _, cell := range hex.Ray(pos, d) {
			if state.GetPieceAt(cell) != nil {
				break
			}
			n++
		}
	}
	return n
}
