package service

import (
	"context"

	"github.com/wricardo/yinsh/game/engine"
	"github.com/wricardo/yinsh/game/hex"
	"github.com/wricardo/yinsh/game/session"
	"github.com/wricardo/yinsh/game/setup"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, setupName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	SubmitMove(ctx context.Context, sessionID string, move engine.Move) (*MoveResult, error)
	Connect(ctx context.Context, sessionID string, color engine.Color, n session.Notifier) error
	Disconnect(ctx context.Context, sessionID string, color engine.Color, n session.Notifier) error

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)
	DescribeCell(ctx context.Context, sessionID string, pos hex.Position) (*CellInfo, error)

	// Setups
	ListSetups(ctx context.Context) ([]*setup.Info, error)
	LoadSetup(ctx context.Context, setupName string) (*setup.Setup, error)
	SaveSetup(ctx context.Context, setupName string, s *setup.Setup) error
	ReloadSetups(ctx context.Context) ([]*setup.Info, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, setupName string, initial *engine.GameState) (*session.Session, error)
	Get(id string) (*session.Session, error)
	List() []*session.Session
	Delete(id string) error
	Save(id string) error
}

// SetupManager handles starting position loading
type SetupManager interface {
	LoadSetup(name string) (*setup.Setup, error)
	ListSetups() ([]*setup.Info, error)
	GetDefault() *engine.GameState
	SaveSetup(name string, s *setup.Setup) error
	RefreshCache()
}
