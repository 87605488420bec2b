package engine

import (
	"fmt"

	"github.com/wricardo/yinsh/game/hex"
)

// Color identifies a player and the owner of a piece.
type Color int

const (
	White Color = iota
	Black
)

// PieceKind distinguishes rings from markers
type PieceKind int

const (
	Ring PieceKind = iota
	Marker
)

// PieceState tells whether a piece is on the board or still in the pool.
type PieceState int

const (
	Inactive PieceState = iota
	Active
)

// Phase is the macro stage of the game; it controls which move kinds are accepted.
type Phase int

const (
	InitialRingPlacement Phase = iota
	MarkerPlacement
	RowRemoval
)

// Game composition constants
const (
	RingsPerColor = 5
	MarkerCount   = 51
	TotalRings    = 2 * RingsPerColor
)

var (
	colorNames = map[Color]string{White: "WHITE", Black: "BLACK"}
	kindNames  = map[PieceKind]string{Ring: "RING", Marker: "MARKER"}
	stateNames = map[PieceState]string{Inactive: "INACTIVE", Active: "ACTIVE"}
	phaseNames = map[Phase]string{
		InitialRingPlacement: "INITIAL_RING_PLACEMENT",
		MarkerPlacement:      "MARKER_PLACEMENT",
		RowRemoval:           "ROW_REMOVAL",
	}
)

// Opponent returns the other color
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string { return enumString(colorNames, c) }
func (k PieceKind) String() string { return enumString(kindNames, k) }
func (s PieceState) String() string { return enumString(stateNames, s) }
func (p Phase) String() string { return enumString(phaseNames, p) }
func (c Color) MarshalText() ([]byte, error) { return enumMarshal(colorNames, c) }
func (k PieceKind) MarshalText() ([]byte, error) { return enumMarshal(kindNames, k) }
func (s PieceState) MarshalText() ([]byte, error) { return enumMarshal(stateNames, s) }
func (p Phase) MarshalText() ([]byte, error) { return enumMarshal(phaseNames, p) }
func (c *Color) UnmarshalText(b []byte) error { return enumUnmarshal(colorNames, b, c) }
func (k *PieceKind) UnmarshalText(b []byte) error { return enumUnmarshal(kindNames, b, k) }
func (s *PieceState) UnmarshalText(b []byte) error { return enumUnmarshal(stateNames, b, s) }
func (p *Phase) UnmarshalText(b []byte) error { return enumUnmarshal(phaseNames, b, p) }

// ParseColor parses "WHITE" or "BLACK"
func ParseColor(s string) (Color, error) {
	var c Color
	err := c.UnmarshalText([]byte(s))
	return c, err
}

// Piece is a single ring or marker. Position is nil while the piece is in the pool.
type Piece struct {
	Color    Color         `json:"color"`
	Kind     PieceKind     `json:"kind"`
	State    PieceState    `json:"state"`
	Position *hex.Position `json:"position,omitempty"`
}

// IsAt reports whether the piece is on the board at pos.
func (p *Piece) IsAt(pos hex.Position) bool {
	return p.State == Active && p.Position != nil && *p.Position == pos
}

// GameState is the complete authoritative state of one game.
type GameState struct {
	Pieces        []Piece `json:"pieces"`
	CurrentPlayer Color   `json:"current_player"`
	Phase         Phase   `json:"phase"`
}

func enumString[T ~int](names map[T]string, v T) string {
	if s, ok := names[v]; ok {
		return s
	}
	return fmt.Sprintf("UNKNOWN(%d)", v)
}

func enumMarshal[T ~int](names map[T]string, v T) ([]byte, error) {
	s, ok := names[v]
	if !ok {
		return nil, fmt.Errorf("unknown enum value %d", v)
	}
	return []byte(s), nil
}

func enumUnmarshal[T ~int](names map[T]string, b []byte, dst *T) error {
	for v, s := range names {
		if s == string(b) {
			*dst = v
			return nil
		}
	}
	return fmt.Errorf("unknown value %q", string(b))
}
