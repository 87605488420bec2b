// Package api provides HTTP REST API handlers for the Yinsh server.
//
// The api package implements:
//   - Session management endpoints
//   - Move submission and history
//   - Seat tokens for the WebSocket transport
//   - Board and cell inspection
//   - Setup listing, loading and saving
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create new session, optionally {"setup": "<name>"}
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get specific session
//   - DELETE /api/sessions/{id} - Delete a session and disconnect its seats
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current game state
//   - POST /api/sessions/{id}/moves - Submit a move
//   - GET /api/sessions/{id}/history - Move history (?page&limit&order)
//   - POST /api/sessions/{id}/seats - Issue a seat token, {"color": "WHITE"}
//   - GET /api/sessions/{id}/cell - Describe a cell (?q&r&s)
//   - GET /api/board - All playable cells
//
// Setups:
//   - GET /api/setups - List available setups
//   - GET /api/setups/{name} - Get one setup
//   - POST /api/setups - Save a setup
//   - POST /api/setups/reload - Re-read setup files from disk
//
// Other:
//   - GET /healthz - Liveness
//   - GET /ws?session=<id>&token=<seat token> - WebSocket upgrade
//
// Moves:
//
// A move is posted as
//
//	{"player": "WHITE", "kind": "PLACE_RING", "data": {"target_position": {"q": 0, "r": 0, "s": 0}}}
//
// and answered with a MoveResult: 200 when accepted, 422 when the rules
// reject it (reason and reason_code say why). A seat token in the
// Authorization header is optional; when present it must match the session
// and the moving color.
//
// Error Handling:
//
// Errors are returned as JSON with an HTTP status derived from the error
// chain: unknown sessions and setups are 404, malformed input is 400, engine
// invariant faults are 500.
//
//	{
//	  "error": "error message"
//	}
package api
