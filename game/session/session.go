package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wricardo/yinsh/game/engine"
)

// Notifier is implemented by anything that follows a game on behalf of one
// seat, typically a websocket client. Calls are made while the session lock is
// held, so implementations must not block or call back into the session.
type Notifier interface {
	// NotifyState delivers the authoritative state after a committed move,
	// and once on attach.
	NotifyState(state *engine.GameState)
	// NotifyInvalidMove tells the originator its move was rejected.
	NotifyInvalidMove(move engine.Move, state *engine.GameState, reason error)
	// NotifyDisconnect is called when the notifier is replaced or the
	// session closes.
	NotifyDisconnect()
}

// MoveOutcome is the result of SubmitMove. State is the committed state when
// Accepted, otherwise the unchanged current state; Reason is set on rejection.
// Ply is the 1-based history index of an accepted move.
type MoveOutcome struct {
	Accepted bool
	State    *engine.GameState
	Reason   error
	Ply      int
}

// Session is one game: an authoritative state, its move history and the seats
// following it. All methods are safe for concurrent use; moves are processed
// one at a time in lock-acquisition order.
type Session struct {
	ID        string
	SetupName string
	CreatedAt time.Time

	mu             sync.Mutex
	initial        *engine.GameState
	state          *engine.GameState
	history        *engine.History
	notifiers      map[engine.Color]Notifier
	lastAccessedAt time.Time
}

// New creates a session starting from initial, which is copied.
func New(id, setupName string, initial *engine.GameState) *Session {
	now := time.Now()
	return &Session{
		ID:             id,
		SetupName:      setupName,
		CreatedAt:      now,
		initial:        initial.Clone(),
		state:          initial.Clone(),
		history:        engine.NewHistory(nil),
		notifiers:      make(map[engine.Color]Notifier),
		lastAccessedAt: now,
	}
}

// SubmitMove validates m against the current state and, if legal, commits the
// resulting state, records m in the history and broadcasts the new state to
// every attached notifier. A rejected move is reported to the notifier seated
// as m.Player only.
//
// The returned error is non-nil only for engine invariant faults; the state is
// not committed in that case.
func (s *Session) SubmitMove(m engine.Move) (outcome MoveOutcome, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastAccessedAt = time.Now()

	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*engine.InvariantError)
			if !ok {
				panic(r)
			}
			log.Error().Str("session", s.ID).Str("move", m.String()).Err(ie).Msg("move aborted")
			outcome = MoveOutcome{State: s.state.Clone()}
			err = fmt.Errorf("session %s: %w", s.ID, ie)
		}
	}()

	if reason := engine.Explain(m, s.state); reason != nil {
		log.Debug().Str("session", s.ID).Str("move", m.String()).Err(reason).Msg("move rejected")
		if n := s.notifiers[m.Player]; n != nil {
			n.NotifyInvalidMove(m, s.state.Clone(), reason)
		}
		return MoveOutcome{State: s.state.Clone(), Reason: reason}, nil
	}

	next := engine.Apply(m, s.state)
	s.state = next
	s.history.PushMove(m)

	log.Debug().Str("session", s.ID).Str("move", m.String()).Int("ply", s.history.Len()).Msg("move committed")
	s.broadcast()

	return MoveOutcome{Accepted: true, State: next.Clone(), Ply: s.history.Len()}, nil
}

// CurrentState returns a snapshot of the authoritative state.
func (s *Session) CurrentState() *engine.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// History returns the committed moves in order.
func (s *Session) History() []engine.Move {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Moves()
}

// Attach seats n as color. A notifier already seated there is disconnected
// first. The new notifier immediately receives the current state.
func (s *Session) Attach(color engine.Color, n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev := s.notifiers[color]; prev != nil && prev != n {
		prev.NotifyDisconnect()
	}
	s.notifiers[color] = n
	s.lastAccessedAt = time.Now()
	n.NotifyState(s.state.Clone())
}

// Detach removes n from color if it is still the seated notifier. It reports
// whether anything was removed. The notifier is not told; it is the one leaving.
func (s *Session) Detach(color engine.Color, n Notifier) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.notifiers[color] != n {
		return false
	}
	delete(s.notifiers, color)
	return true
}

// Seated reports which colors currently have a notifier.
func (s *Session) Seated() []engine.Color {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []engine.Color
	for _, c := range []engine.Color{engine.White, engine.Black} {
		if s.notifiers[c] != nil {
			out = append(out, c)
		}
	}
	return out
}

// Close disconnects every seated notifier.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for c, n := range s.notifiers {
		n.NotifyDisconnect()
		delete(s.notifiers, c)
	}
}

// Touch marks the session as used now.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastAccessedAt = time.Now()
	s.mu.Unlock()
}

// LastAccessedAt returns the last time a move, attach or Touch hit the session.
func (s *Session) LastAccessedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessedAt
}

// broadcast sends the current state to every seat, white first. Callers hold mu.
func (s *Session) broadcast() {
	for _, c := range []engine.Color{engine.White, engine.Black} {
		if n := s.notifiers[c]; n != nil {
			n.NotifyState(s.state.Clone())
		}
	}
}

// Snapshot returns the persistable form of the session.
func (s *Session) Snapshot() PersistedSessionData {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := PersistedSessionData{
		ID:             s.ID,
		SetupName:      s.SetupName,
		CreatedAt:      s.CreatedAt,
		LastAccessedAt: s.lastAccessedAt,
		GameState:      s.state.Clone(),
		History:        s.history.Moves(),
	}
	if s.initial != nil {
		data.InitialState = s.initial.Clone()
	}
	return data
}

// Restore rebuilds a session from persisted data. The state is checked with
// engine.FromSnapshot. When the starting position was recorded, the history
// is replayed from it and must arrive at the stored state; data written
// without one keeps its history as recorded.
func Restore(data PersistedSessionData) (*Session, error) {
	if data.ID == "" {
		return nil, ErrInvalidSessionID
	}
	if data.GameState == nil {
		return nil, fmt.Errorf("session %s: no game state", data.ID)
	}
	state, err := engine.FromSnapshot(*data.GameState)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", data.ID, err)
	}

	var initial *engine.GameState
	if data.InitialState != nil {
		initial, err = engine.FromSnapshot(*data.InitialState)
		if err != nil {
			return nil, fmt.Errorf("session %s: initial state: %w", data.ID, err)
		}
		replayed, err := engine.ReplayFrom(initial, data.History)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w: %w", data.ID, ErrHistoryMismatch, err)
		}
		if !replayed.Equal(state) {
			return nil, fmt.Errorf("session %s: %w", data.ID, ErrHistoryMismatch)
		}
	}

	return &Session{
		ID:             data.ID,
		SetupName:      data.SetupName,
		CreatedAt:      data.CreatedAt,
		initial:        initial,
		state:          state,
		history:        engine.NewHistory(data.History),
		notifiers:      make(map[engine.Color]Notifier),
		lastAccessedAt: data.LastAccessedAt,
	}, nil
}
