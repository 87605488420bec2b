// Package service provides the business logic layer for the Yinsh server.
//
// The service package implements:
//   - Multi-session game management
//   - Starting positions (setups) for new sessions
//   - Move submission with machine-friendly rejection codes
//   - Seat connection for live notifications
//   - Paginated move history and cell inspection
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// SetupManager loads, lists and saves named starting positions.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game sessions. It holds no lock of its own: every session serializes
// its own moves, so games never wait on one another.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	setupMgr, _ := setup.NewManager("setups")
//	gameService := service.NewGameService(sessionMgr, setupMgr)
//
//	info, err := gameService.CreateSession(ctx, "")
//	if err != nil {
//		log.Fatal().Err(err).Msg("create session")
//	}
//
//	result, err := gameService.SubmitMove(ctx, info.ID, engine.NewPlaceRing(engine.White, hex.Origin))
//
// Errors:
//
// Unknown sessions yield errors wrapping session.ErrSessionNotFound. An
// illegal move is not an error: SubmitMove returns a MoveResult with Accepted
// false, a human-readable Reason and a ReasonCode. Engine invariant faults are
// returned as errors wrapping engine.ErrInvariant.
package service
