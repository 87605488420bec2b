package engine

import (
	"encoding/json"
	"fmt"

	"github.com/wricardo/yinsh/game/hex"
)

// MoveKind names the variant carried by a Move.
type MoveKind int

const (
	KindPlaceRing MoveKind = iota
	KindPlaceMarker
	KindRemoveRow
	KindRemoveRing
)

var kindNamesByMove = map[MoveKind]string{
	KindPlaceRing:   "PLACE_RING",
	KindPlaceMarker: "PLACE_MARKER",
	KindRemoveRow:   "REMOVE_ROW",
	KindRemoveRing:  "REMOVE_RING",
}

func (k MoveKind) String() string { return enumString(kindNamesByMove, k) }
func (k MoveKind) MarshalText() ([]byte, error) { return enumMarshal(kindNamesByMove, k) }
func (k *MoveKind) UnmarshalText(b []byte) error { return enumUnmarshal(kindNamesByMove, b, k) }

// MoveData is the kind-specific payload of a Move. The set of implementations
// is closed: PlaceRing, PlaceMarker, RemoveRow and RemoveRing.
type MoveData interface {
	Kind() MoveKind
	isMoveData()
}

// PlaceRing puts one of the mover's pool rings on Target.
type PlaceRing struct {
	Target hex.Position `json:"target_position"`
}

// PlaceMarker drops a marker on Source, where one of the mover's rings stands,
// and moves that ring to Target.
type PlaceMarker struct {
	Source hex.Position `json:"source_position"`
	Target hex.Position `json:"target_position"`
}

// RemoveRow removes a completed row of markers. Declared, not yet playable.
type RemoveRow struct {
	Markers []hex.Position `json:"markers"`
}

// RemoveRing takes one of the mover's rings off the board. Declared, not yet playable.
type RemoveRing struct {
	Position hex.Position `json:"position"`
}

func (PlaceRing) Kind() MoveKind { return KindPlaceRing }
func (PlaceMarker) Kind() MoveKind { return KindPlaceMarker }
func (RemoveRow) Kind() MoveKind { return KindRemoveRow }
func (RemoveRing) Kind() MoveKind { return KindRemoveRing }

func (PlaceRing) isMoveData() {}
func (PlaceMarker) isMoveData() {}
func (RemoveRow) isMoveData() {}
func (RemoveRing) isMoveData() {}

// Move is a player's proposed action. Moves are values and are never modified
// after construction.
type Move struct {
	Player Color
	Data   MoveData
}

// NewPlaceRing builds a PLACE_RING move.
func NewPlaceRing(player Color, target hex.Position) Move {
	return Move{Player: player, Data: PlaceRing{Target: target}}
}

// NewPlaceMarker builds a PLACE_MARKER move.
func NewPlaceMarker(player Color, source, target hex.Position) Move {
	return Move{Player: player, Data: PlaceMarker{Source: source, Target: target}}
}

// Kind returns the variant of the payload, or -1 when the move carries none.
func (m Move) Kind() MoveKind {
	if m.Data == nil {
		return -1
	}
	return m.Data.Kind()
}

func (m Move) String() string {
	switch d := m.Data.(type) {
	case PlaceRing:
		return fmt.Sprintf("%s PLACE_RING %s", m.Player, d.Target)
	case PlaceMarker:
		return fmt.Sprintf("%s PLACE_MARKER %s->%s", m.Player, d.Source, d.Target)
	case RemoveRow:
		return fmt.Sprintf("%s REMOVE_ROW %v", m.Player, d.Markers)
	case RemoveRing:
		return fmt.Sprintf("%s REMOVE_RING %s", m.Player, d.Position)
	default:
		return fmt.Sprintf("%s <empty move>", m.Player)
	}
}

type moveWire struct {
	Player Color           `json:"player"`
	Kind   MoveKind        `json:"kind"`
	Data   json.RawMessage `json:"data"`
}

// MarshalJSON encodes the move as {"player", "kind", "data"}.
func (m Move) MarshalJSON() ([]byte, error) {
	if m.Data == nil {
		return nil, fmt.Errorf("move has no payload")
	}
	data, err := json.Marshal(m.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(moveWire{Player: m.Player, Kind: m.Data.Kind(), Data: data})
}

// UnmarshalJSON decodes {"player", "kind", "data"}, choosing the payload type from kind.
func (m *Move) UnmarshalJSON(b []byte) error {
	var w struct {
		Player *Color          `json:"player"`
		Kind   *MoveKind       `json:"kind"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if w.Player == nil {
		return fmt.Errorf("move: missing player")
	}
	if w.Kind == nil {
		return fmt.Errorf("move: missing kind")
	}
	kind := *w.Kind
	if len(w.Data) == 0 || string(w.Data) == "null" {
		return fmt.Errorf("move %s: missing data", kind)
	}

	var data MoveData
	var err error
	switch kind {
	case KindPlaceRing:
		var d PlaceRing
		err = json.Unmarshal(w.Data, &d)
		data = d
	case KindPlaceMarker:
		var d PlaceMarker
		err = json.Unmarshal(w.Data, &d)
		data = d
	case KindRemoveRow:
		var d RemoveRow
		err = json.Unmarshal(w.Data, &d)
		data = d
	case KindRemoveRing:
		var d RemoveRing
		err = json.Unmarshal(w.Data, &d)
		data = d
	default:
		return fmt.Errorf("unknown move kind %s", kind)
	}
	if err != nil {
		return fmt.Errorf("move %s: %w", kind, err)
	}

	m.Player = *w.Player
	m.Data = data
	return nil
}
