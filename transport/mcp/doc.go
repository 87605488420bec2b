// Package mcp exposes the Yinsh game server to AI agents over the Model
// Context Protocol.
//
// The client does not hold any game state of its own. Every tool is a thin
// wrapper over the REST API, so an agent plays through exactly the same
// validation path as a browser or a websocket client.
//
// MCP Tools:
//   - create_session: Start a game from the default or a named setup
//   - list_sessions / get_session: Inspect running games
//   - game_state: Board drawing plus ring and marker pools
//   - place_ring: Place a ring during INITIAL_RING_PLACEMENT
//   - place_marker: Drop a marker under one of your rings and move the ring
//   - move_history: Paginated list of accepted moves
//   - list_setups: Available starting positions
//   - describe_cell: What occupies a single cell
//   - game_instructions: Rules summary and coordinate system
//
// Coordinates are cube coordinates (q, r, s). The s argument may be omitted
// and defaults to -q-r.
//
// A rejected move is not a tool error. The tool returns the reason code and
// the unchanged state so the agent can pick another move.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
