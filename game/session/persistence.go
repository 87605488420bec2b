package session

import (
	"time"

	"github.com/wricardo/yinsh/game/engine"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData represents the JSON structure for persisted sessions
type PersistedSessionData struct {
	ID             string            `json:"id"`
	SetupName      string            `json:"setup_name"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	GameState      *engine.GameState `json:"game_state"`
	History        []engine.Move     `json:"history"`

	// InitialState is the position the session started from. When present,
	// replaying History from it must reproduce GameState.
	InitialState *engine.GameState `json:"initial_state,omitempty"`
}
