package engine

import (
	"fmt"

	"github.com/wricardo/yinsh/game/hex"
)

// Predicate selects values of one piece attribute. A nil Predicate matches everything.
type Predicate[T any] func(T) bool

// Is matches exactly v.
func Is[T comparable](v T) Predicate[T] {
	return func(x T) bool { return x == v }
}

// Any matches every value.
func Any[T any]() Predicate[T] {
	return nil
}

func (p Predicate[T]) match(v T) bool {
	return p == nil || p(v)
}

// NewInitialState returns the state every game starts from: all pieces in the
// pool, white to move, rings being placed. Markers carry a placeholder color
// until they are played.
func NewInitialState() *GameState {
	pieces := make([]Piece, 0, MarkerCount+TotalRings)
	for i := 0; i < MarkerCount; i++ {
		pieces = append(pieces, Piece{Color: White, Kind: Marker, State: Inactive})
	}
	for _, c := range []Color{White, Black} {
		for i := 0; i < RingsPerColor; i++ {
			pieces = append(pieces, Piece{Color: c, Kind: Ring, State: Inactive})
		}
	}

	return &GameState{
		Pieces:        pieces,
		CurrentPlayer: White,
		Phase:         InitialRingPlacement,
	}
}

// FilterPieces returns the pieces matching all three predicates, in collection
// order. The returned pointers alias the state's pieces.
func (s *GameState) FilterPieces(color Predicate[Color], kind Predicate[PieceKind], state Predicate[PieceState]) []*Piece {
	var out []*Piece
	for i := range s.Pieces {
		p := &s.Pieces[i]
		if color.match(p.Color) && kind.match(p.Kind) && state.match(p.State) {
			out = append(out, p)
		}
	}
	return out
}

// GetPieceAt returns the active piece on pos, or nil if the cell is empty.
// More than one active piece on a cell panics with an *InvariantError.
func (s *GameState) GetPieceAt(pos hex.Position) *Piece {
	var found *Piece
	for i := range s.Pieces {
		p := &s.Pieces[i]
		if !p.IsAt(pos) {
			continue
		}
		if found != nil {
			invariantf("two active pieces at %s", pos)
		}
		found = p
	}
	return found
}

// IsCurrentPlayer reports whether it is c's turn.
func (s *GameState) IsCurrentPlayer(c Color) bool {
	return s.CurrentPlayer == c
}

// Clone returns a deep copy.
func (s *GameState) Clone() *GameState {
	pieces := make([]Piece, len(s.Pieces))
	for i, p := range s.Pieces {
		if p.Position != nil {
			pos := *p.Position
			p.Position = &pos
		}
		pieces[i] = p
	}
	return &GameState{
		Pieces:        pieces,
		CurrentPlayer: s.CurrentPlayer,
		Phase:         s.Phase,
	}
}

// Equal reports whether o holds the same pieces, in the same order, with the
// same player to move and phase.
func (s *GameState) Equal(o *GameState) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.CurrentPlayer != o.CurrentPlayer || s.Phase != o.Phase || len(s.Pieces) != len(o.Pieces) {
		return false
	}
	for i, p := range s.Pieces {
		q := o.Pieces[i]
		if p.Color != q.Color || p.Kind != q.Kind || p.State != q.State {
			return false
		}
		if (p.Position == nil) != (q.Position == nil) {
			return false
		}
		if p.Position != nil && *p.Position != *q.Position {
			return false
		}
	}
	return true
}

// Summary holds piece counts derived from a state
type Summary struct {
	RingsPlaced   map[Color]int `json:"rings_placed"`
	RingsInPool   map[Color]int `json:"rings_in_pool"`
	MarkersPlaced map[Color]int `json:"markers_placed"`
	MarkersInPool int           `json:"markers_in_pool"`
	OccupiedCells int           `json:"occupied_cells"`
	CurrentPlayer Color         `json:"current_player"`
	Phase         Phase         `json:"phase"`
}

// Summarize counts pieces by kind, color and state.
func (s *GameState) Summarize() Summary {
	sum := Summary{
		RingsPlaced:   map[Color]int{White: 0, Black: 0},
		RingsInPool:   map[Color]int{White: 0, Black: 0},
		MarkersPlaced: map[Color]int{White: 0, Black: 0},
		CurrentPlayer: s.CurrentPlayer,
		Phase:         s.Phase,
	}
	for _, p := range s.Pieces {
		switch {
		case p.Kind == Ring && p.State == Active:
			sum.RingsPlaced[p.Color]++
			sum.OccupiedCells++
		case p.Kind == Ring:
			sum.RingsInPool[p.Color]++
		case p.State == Active:
			sum.MarkersPlaced[p.Color]++
			sum.OccupiedCells++
		default:
			sum.MarkersInPool++
		}
	}
	return sum
}

// FromSnapshot rebuilds a state from decoded data, typically a persisted or
// broadcast GameState, and checks it against the model invariants. The
// returned state shares nothing with snap.
func FromSnapshot(snap GameState) (*GameState, error) {
	s := snap.Clone()

	if _, ok := colorNames[s.CurrentPlayer]; !ok {
		return nil, fmt.Errorf("snapshot: unknown current player %d", s.CurrentPlayer)
	}
	if _, ok := phaseNames[s.Phase]; !ok {
		return nil, fmt.Errorf("snapshot: unknown phase %d", s.Phase)
	}

	rings := map[Color]int{}
	markers := 0
	occupied := make(map[hex.Position]int)
	for i, p := range s.Pieces {
		if _, ok := colorNames[p.Color]; !ok {
			return nil, fmt.Errorf("snapshot: piece %d has unknown color %d", i, p.Color)
		}
		switch p.Kind {
		case Ring:
			rings[p.Color]++
		case Marker:
			markers++
		default:
			return nil, fmt.Errorf("snapshot: piece %d has unknown kind %d", i, p.Kind)
		}

		switch p.State {
		case Inactive:
			if p.Position != nil {
				return nil, fmt.Errorf("snapshot: inactive piece %d has a position", i)
			}
		case Active:
			if p.Position == nil {
				return nil, fmt.Errorf("snapshot: active piece %d has no position", i)
			}
			if !hex.IsInBounds(*p.Position) {
				return nil, fmt.Errorf("snapshot: piece %d at %s: %w", i, *p.Position, ErrOutOfBounds)
			}
			if prev, dup := occupied[*p.Position]; dup {
				return nil, fmt.Errorf("snapshot: pieces %d and %d share %s: %w", prev, i, *p.Position, ErrInvariant)
			}
			occupied[*p.Position] = i
		default:
			return nil, fmt.Errorf("snapshot: piece %d has unknown state %d", i, p.State)
		}
	}

	if rings[White] != RingsPerColor || rings[Black] != RingsPerColor {
		return nil, fmt.Errorf("snapshot: want %d rings per color, got white=%d black=%d",
			RingsPerColor, rings[White], rings[Black])
	}
	if markers != MarkerCount {
		return nil, fmt.Errorf("snapshot: want %d markers, got %d", MarkerCount, markers)
	}

	return s, nil
}
