package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/wricardo/yinsh/game/engine"
	"github.com/wricardo/yinsh/game/hex"
	"github.com/wricardo/yinsh/game/session"
	"github.com/wricardo/yinsh/game/setup"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// reasonCodes maps rejection sentinels to MoveResult.ReasonCode
var reasonCodes = []struct {
	err  error
	code string
}{
	{engine.ErrNotYourTurn, "not_your_turn"},
	{engine.ErrWrongPhase, "wrong_phase"},
	{engine.ErrOutOfBounds, "out_of_bounds"},
	{engine.ErrNoRingsLeft, "no_rings_left"},
	{engine.ErrMarkerPoolEmpty, "marker_pool_empty"},
	{engine.ErrNotYourRing, "not_your_ring"},
	{engine.ErrOccupied, "occupied"},
	{engine.ErrUnsupportedMove, "unsupported_move"},
	{engine.ErrMalformedMove, "malformed_move"},
}

// gameServiceImpl implements the GameService interface. It holds no lock of
// its own; each session serializes its moves.
type gameServiceImpl struct {
	sessions SessionManager
	setups   SetupManager
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, setups SetupManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		setups:   setups,
	}
}

// CreateSession creates a new game session from the named setup, or from the
// default setup when setupName is empty
func (s *gameServiceImpl) CreateSession(ctx context.Context, setupName string) (*SessionInfo, error) {
	var initial *engine.GameState
	if setupName != "" {
		st, err := s.setups.LoadSetup(setupName)
		if err != nil {
			if errors.Is(err, setup.ErrSetupNotFound) {
				return nil, s.setupNotFound(setupName, err)
			}
			return nil, fmt.Errorf("failed to load setup %s: %w", setupName, err)
		}
		initial = st.State
	} else {
		setupName = setup.DefaultName
		initial = s.setups.GetDefault()
	}

	sess, err := s.sessions.Create("", setupName, initial)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return sessionInfo(sess), nil
}

// setupNotFound builds an error listing the available setups
func (s *gameServiceImpl) setupNotFound(name string, err error) error {
	available, listErr := s.setups.ListSetups()
	if listErr != nil || len(available) == 0 {
		return fmt.Errorf("setup '%s': %w", name, err)
	}
	ids := make([]string, 0, len(available))
	for _, info := range available {
		ids = append(ids, info.SetupID)
	}
	return fmt.Errorf("setup '%s': %w. Available setups: %v", name, err, ids)
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	log.Info().Str("session", sessionID).Msg("session deleted")
	return nil
}

// SubmitMove runs a move through the session. Illegal moves produce a
// MoveResult with Accepted false; the error is reserved for unknown sessions
// and engine invariant faults.
func (s *gameServiceImpl) SubmitMove(ctx context.Context, sessionID string, move engine.Move) (*MoveResult, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	outcome, err := sess.SubmitMove(move)
	if err != nil {
		return nil, err
	}

	result := &MoveResult{
		Accepted:  outcome.Accepted,
		Move:      move,
		GameState: outcome.State,
		Ply:       outcome.Ply,
	}
	if !outcome.Accepted {
		result.Reason = outcome.Reason.Error()
		result.ReasonCode = ReasonCode(outcome.Reason)
		return result, nil
	}

	if err := s.sessions.Save(sessionID); err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("failed to persist session after move")
	}

	return result, nil
}

// Connect seats n as color in the session. It receives the current state
// immediately.
func (s *gameServiceImpl) Connect(ctx context.Context, sessionID string, color engine.Color, n session.Notifier) error {
	if color != engine.White && color != engine.Black {
		return fmt.Errorf("unknown color %d", color)
	}
	sess, err := s.lookup(sessionID)
	if err != nil {
		return err
	}
	sess.Attach(color, n)
	log.Info().Str("session", sessionID).Stringer("color", color).Msg("seat connected")
	return nil
}

// Disconnect unseats n if it still holds color
func (s *gameServiceImpl) Disconnect(ctx context.Context, sessionID string, color engine.Color, n session.Notifier) error {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return err
	}
	if sess.Detach(color, n) {
		log.Info().Str("session", sessionID).Stringer("color", color).Msg("seat disconnected")
	}
	return nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.CurrentState(), nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.History()
	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultHistoryLimit
	}
	if opts.Limit > maxHistoryLimit {
		opts.Limit = maxHistoryLimit
	}
	if opts.Order != "asc" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	// pages past the end are empty; compared before multiplying so a huge
	// page number cannot overflow
	start := total
	if opts.Page <= totalPages {
		start = (opts.Page - 1) * opts.Limit
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}

	moves := []HistoryEntry{}
	for i := start; i < end; i++ {
		idx := i
		if opts.Order == "desc" {
			// most recent first
			idx = total - 1 - i
		}
		moves = append(moves, HistoryEntry{Ply: idx + 1, Move: history[idx]})
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// DescribeCell reports whether pos is on the board and what occupies it
func (s *gameServiceImpl) DescribeCell(ctx context.Context, sessionID string, pos hex.Position) (*CellInfo, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	info := &CellInfo{Position: pos, InBounds: hex.IsInBounds(pos)}
	if !info.InBounds {
		return info, nil
	}
	if p := sess.CurrentState().GetPieceAt(pos); p != nil {
		info.Occupied = true
		info.Piece = p
	}
	return info, nil
}

// ListSetups returns available setups
func (s *gameServiceImpl) ListSetups(ctx context.Context) ([]*setup.Info, error) {
	return s.setups.ListSetups()
}

// LoadSetup loads a specific setup
func (s *gameServiceImpl) LoadSetup(ctx context.Context, setupName string) (*setup.Setup, error) {
	return s.setups.LoadSetup(setupName)
}

// SaveSetup saves a setup to disk
func (s *gameServiceImpl) SaveSetup(ctx context.Context, setupName string, st *setup.Setup) error {
	return s.setups.SaveSetup(setupName, st)
}

// ReloadSetups drops cached setups so files edited on disk are read again,
// then lists what is now loadable
func (s *gameServiceImpl) ReloadSetups(ctx context.Context) ([]*setup.Info, error) {
	s.setups.RefreshCache()
	return s.setups.ListSetups()
}

// lookup fetches a session and marks it as accessed
func (s *gameServiceImpl) lookup(sessionID string) (*session.Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	sess.Touch()
	return sess, nil
}

func sessionInfo(sess *session.Session) *SessionInfo {
	state := sess.CurrentState()
	return &SessionInfo{
		ID:             sess.ID,
		SetupName:      sess.SetupName,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt(),
		GameState:      state,
		Summary:        state.Summarize(),
		MoveCount:      len(sess.History()),
		Seated:         sess.Seated(),
	}
}

// ReasonCode returns the machine-friendly code for a rejection reason, or
// "illegal_move" for anything unrecognized
func ReasonCode(err error) string {
	for _, rc := range reasonCodes {
		if errors.Is(err, rc.err) {
			return rc.code
		}
	}
	return "illegal_move"
}
