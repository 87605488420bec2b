package engine

import "github.com/wricardo/yinsh/game/hex"

// Apply returns the state that results from playing m on s. The move must
// already have passed Validate; s itself is left untouched. Unmet
// preconditions panic with an *InvariantError.
func Apply(m Move, s *GameState) *GameState {
	next := s.Clone()

	switch d := m.Data.(type) {
	case PlaceRing:
		applyPlaceRing(m.Player, d, next)
	case PlaceMarker:
		applyPlaceMarker(m.Player, d, next)
	default:
		invariantf("apply called with unsupported move %s", m)
	}

	next.CurrentPlayer = m.Player.Opponent()
	return next
}

func applyPlaceRing(player Color, d PlaceRing, s *GameState) {
	rings := s.FilterPieces(Is(player), Is(Ring), Is(Inactive))
	if len(rings) == 0 {
		invariantf("%s has no ring left to place", player)
	}
	place(rings[0], d.Target)

	// black places the tenth ring
	if player == Black && len(rings) == 1 {
		s.Phase = MarkerPlacement
	}
}

func applyPlaceMarker(player Color, d PlaceMarker, s *GameState) {
	ring := s.GetPieceAt(d.Source)
	if ring == nil || ring.Kind != Ring || ring.Color != player {
		invariantf("no %s ring at %s", player, d.Source)
	}
	markers := s.FilterPieces(nil, Is(Marker), Is(Inactive))
	if len(markers) == 0 {
		invariantf("marker pool exhausted")
	}

	ring.Position = positionPtr(d.Target)

	marker := markers[0]
	marker.Color = player
	place(marker, d.Source)
}

func place(p *Piece, pos hex.Position) {
	p.State = Active
	p.Position = positionPtr(pos)
}

func positionPtr(pos hex.Position) *hex.Position {
	return &pos
}
