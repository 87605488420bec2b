package engine

import "github.com/wricardo/yinsh/game/hex"

// Validate reports whether m is legal in s. It never modifies s.
func Validate(m Move, s *GameState) bool {
	return Explain(m, s) == nil
}

// Explain returns nil when m is legal in s, otherwise an *IllegalMoveError
// wrapping one of the rejection sentinels. REMOVE_ROW and REMOVE_RING always
// yield ErrUnsupportedMove.
func Explain(m Move, s *GameState) error {
	var reason error
	switch d := m.Data.(type) {
	case PlaceRing:
		reason = checkPlaceRing(m.Player, d, s)
	case PlaceMarker:
		reason = checkPlaceMarker(m.Player, d, s)
	case RemoveRow, RemoveRing:
		reason = ErrUnsupportedMove
	case nil:
		reason = ErrMalformedMove
	default:
		reason = ErrUnsupportedMove
	}
	if reason != nil {
		return illegal(m, reason)
	}
	return nil
}

func checkPlaceRing(player Color, d PlaceRing, s *GameState) error {
	if !s.IsCurrentPlayer(player) {
		return ErrNotYourTurn
	}
	if s.Phase != InitialRingPlacement {
		return ErrWrongPhase
	}
	if !hex.IsInBounds(d.Target) {
		return ErrOutOfBounds
	}
	if len(s.FilterPieces(Is(player), Is(Ring), Is(Inactive))) == 0 {
		return ErrNoRingsLeft
	}
	if s.GetPieceAt(d.Target) != nil {
		return ErrOccupied
	}
	return nil
}

func checkPlaceMarker(player Color, d PlaceMarker, s *GameState) error {
	if !s.IsCurrentPlayer(player) {
		return ErrNotYourTurn
	}
	if s.Phase != MarkerPlacement {
		return ErrWrongPhase
	}
	if !hex.IsInBounds(d.Source) || !hex.IsInBounds(d.Target) {
		return ErrOutOfBounds
	}
	// markers are drawn from a shared pool whatever their placeholder color
	if len(s.FilterPieces(nil, Is(Marker), Is(Inactive))) == 0 {
		return ErrMarkerPoolEmpty
	}
	src := s.GetPieceAt(d.Source)
	if src == nil || src.Kind != Ring || src.Color != player {
		return ErrNotYourRing
	}
	if s.GetPieceAt(d.Target) != nil {
		return ErrOccupied
	}
	return nil
}
