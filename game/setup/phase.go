package setup

import (
	"fmt"

	"github.com/wricardo/yinsh/game/engine"
)

// PhaseProblems lists every way the piece layout disagrees with the declared
// phase and player to move. An empty result means the position can arise
// from play and the player to move has something to play.
func PhaseProblems(state *engine.GameState) []string {
	var problems []string
	fail := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	sum := state.Summarize()
	white, black := sum.RingsPlaced[engine.White], sum.RingsPlaced[engine.Black]
	markers := sum.MarkersPlaced[engine.White] + sum.MarkersPlaced[engine.Black]

	switch state.Phase {
	case engine.InitialRingPlacement:
		if markers > 0 {
			fail("%d markers on the board before ring placement is finished", markers)
		}
		if white+black == engine.TotalRings {
			fail("all %d rings are placed but the phase is still %s", engine.TotalRings, state.Phase)
		}
		// white places first, so white is never behind black
		switch {
		case white == black && state.CurrentPlayer != engine.White:
			fail("rings are even (%d each) so WHITE should be to move, got %s", white, state.CurrentPlayer)
		case white == black+1 && state.CurrentPlayer != engine.Black:
			fail("WHITE is one ring ahead so BLACK should be to move, got %s", state.CurrentPlayer)
		case white != black && white != black+1:
			fail("ring counts WHITE %d, BLACK %d cannot arise from alternating placement", white, black)
		}
	case engine.MarkerPlacement:
		if white+black != engine.TotalRings {
			fail("phase is %s but only %d of %d rings are placed", state.Phase, white+black, engine.TotalRings)
		}
		if sum.MarkersInPool == 0 {
			fail("marker pool is empty, %s cannot place a marker", state.CurrentPlayer)
		}
	default:
		fail("phase %s has no playable moves", state.Phase)
	}

	return problems
}
