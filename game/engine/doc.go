// Package engine implements the rules core of Yinsh.
//
// The engine package provides:
//   - The piece and game state model (GameState, Piece, Color, Phase)
//   - Moves as a closed set of payload variants (PlaceRing, PlaceMarker,
//     RemoveRow, RemoveRing)
//   - A pure validator (Validate, Explain)
//   - A pure state transition function (Apply)
//   - The append-only move History and Replay for audits
//
// Core Flow:
//
// A move is first checked with Explain. A nil answer means the move is legal
// and may be passed to Apply, which returns a new state and leaves its input
// untouched. Rejections are ordinary values (*IllegalMoveError); corrupted
// state is reported by panicking with *InvariantError, which callers owning a
// game recover at their boundary.
//
// Usage:
//
//	state := engine.NewInitialState()
//	move := engine.NewPlaceRing(engine.White, hex.Origin)
//	if err := engine.Explain(move, state); err != nil {
//		return err
//	}
//	state = engine.Apply(move, state)
//
// Phases:
//
// Rings are placed alternately, white first, until all ten are on the board;
// black's fifth ring moves the game to marker placement. Row removal is a
// declared phase with no way in yet, and REMOVE_ROW / REMOVE_RING moves are
// rejected with ErrUnsupportedMove. Markers the moving ring jumps over are
// not flipped.
package engine
