package service

import (
	"time"

	"github.com/wricardo/yinsh/game/engine"
	"github.com/wricardo/yinsh/game/hex"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string            `json:"id"`
	SetupName      string            `json:"setup_name"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	GameState      *engine.GameState `json:"game_state"`
	Summary        engine.Summary    `json:"summary"`
	MoveCount      int               `json:"move_count"`
	Seated         []engine.Color    `json:"seated"`
}

// MoveResult contains the result of a move submission. A rejected move is
// not an error: Accepted is false and Reason says why.
type MoveResult struct {
	Accepted   bool              `json:"accepted"`
	Move       engine.Move       `json:"move"`
	GameState  *engine.GameState `json:"game_state"`
	Reason     string            `json:"reason,omitempty"`
	ReasonCode string            `json:"reason_code,omitempty"` // machine-friendly: not_your_turn|wrong_phase|out_of_bounds|no_rings_left|marker_pool_empty|not_your_ring|occupied|unsupported_move|malformed_move
	Ply        int               `json:"ply,omitempty"`         // 1-based history index of an accepted move
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryEntry is one committed move
type HistoryEntry struct {
	Ply  int         `json:"ply"`
	Move engine.Move `json:"move"`
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []HistoryEntry `json:"moves"`
	TotalMoves  int            `json:"total_moves"`
	Page        int            `json:"page"`
	PageSize    int            `json:"page_size"`
	TotalPages  int            `json:"total_pages"`
	HasNext     bool           `json:"has_next"`
	HasPrevious bool           `json:"has_previous"`
}

// CellInfo describes one board cell in a session
type CellInfo struct {
	Position hex.Position  `json:"position"`
	InBounds bool          `json:"in_bounds"`
	Occupied bool          `json:"occupied"`
	Piece    *engine.Piece `json:"piece,omitempty"`
}
