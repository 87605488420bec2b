// Package session owns live Yinsh games.
//
// The session package implements:
//   - Session, one authoritative game state with its move history
//   - Serialized move submission (validate, apply, commit, broadcast)
//   - Seat notification through the Notifier interface
//   - Manager, the session store keyed by game ID
//   - File and SQLite persistence
//
// A persisted session records the position it started from. Loading replays
// the history from there and refuses data whose history does not arrive at
// the stored state (ErrHistoryMismatch).
//
// Core Types:
//
// Session holds a GameState behind a mutex. SubmitMove runs the engine's
// validator and processor under that lock, so moves for one game are handled
// one at a time in the order the lock is acquired. Accepted moves are pushed
// to the history and the new state is sent to every seated Notifier; a
// rejected move is reported only to the Notifier seated as the move's player.
//
// Manager maps IDs to sessions. IDs are case-insensitive; generated IDs are
// four hex characters from crypto/rand.
//
// Invariant Faults:
//
// The engine panics with *engine.InvariantError when it finds corrupted state.
// SubmitMove recovers that panic, leaves the state uncommitted and returns an
// error wrapping engine.ErrInvariant. Any other panic is re-raised.
//
// Concurrency:
//
// Sessions share no mutable state. Notifiers are called with the session lock
// held and must not block or call back into the session; the lock order is
// always Manager before Session.
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create("", "default", engine.NewInitialState())
//	if err != nil {
//		log.Fatal().Err(err).Msg("create")
//	}
//
//	sess.Attach(engine.White, whiteClient)
//	outcome, err := sess.SubmitMove(engine.NewPlaceRing(engine.White, hex.Origin))
//
// Persistence:
//
// FilePersistence writes one indented JSON document per session.
// SQLitePersistence stores the same document in a sessions table, with
// schema migrations tracked in _migrations. Loaded states are checked with
// engine.FromSnapshot.
package session
