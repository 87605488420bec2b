package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/yinsh/game/engine"
	"github.com/wricardo/yinsh/game/hex"
	"github.com/wricardo/yinsh/game/service"
	"github.com/wricardo/yinsh/game/setup"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Yinsh",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Yinsh - MCP Interface

This is a thin client that proxies all requests to the REST API server.

THE GAME:
Two players, WHITE and BLACK, share a hexagonal board of 85 cells addressed by
cube coordinates (q, r, s) with q+r+s = 0. Each player first places 5 rings,
alternating, WHITE first. Then each turn a player drops a marker on one of
their rings and moves that ring to an empty cell.

AVAILABLE TOOLS:
- create_session: Create a new game, optionally from a named setup
- list_sessions: List all active sessions
- get_session: Session details and piece counts
- game_state: Board drawing and whose turn it is
- place_ring: Place one of your rings on an empty cell
- place_marker: Drop a marker on your ring and move the ring
- move_history: Committed moves, paginated
- list_setups: Available starting positions
- describe_cell: What occupies a cell
- game_instructions: Full rules and coordinate help

Illegal moves are reported with a reason and leave the game unchanged.`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func playerProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        []string{"WHITE", "BLACK"},
		"description": "Color making the move; must be the player to move",
	}
}

func coordProperty(desc string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"minimum":     -hex.Radius,
		"maximum":     hex.Radius,
		"description": desc,
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional setup selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"setup": map[string]interface{}{
					"type":        "string",
					"description": "Name of the setup to start from (optional, see list_setups)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current board and whose turn it is",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "place_ring",
		Description: "Place one of your rings on an empty cell (ring placement phase)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"player":     playerProperty(),
				"q":          coordProperty("Target q"),
				"r":          coordProperty("Target r"),
				"s":          coordProperty("Target s (optional, defaults to -q-r)"),
			},
			Required: []string{"session_id", "player", "q", "r"},
		},
	}, c.handlePlaceRing)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "place_marker",
		Description: "Drop a marker on the cell of one of your rings and move that ring to an empty cell",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"player":     playerProperty(),
				"source_q":   coordProperty("q of your ring"),
				"source_r":   coordProperty("r of your ring"),
				"source_s":   coordProperty("s of your ring (optional)"),
				"target_q":   coordProperty("q the ring moves to"),
				"target_r":   coordProperty("r the ring moves to"),
				"target_s":   coordProperty("s the ring moves to (optional)"),
			},
			Required: []string{"session_id", "player", "source_q", "source_r", "target_q", "target_r"},
		},
	}, c.handlePlaceMarker)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get the committed moves of a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number (default 1)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Moves per page (default 20, max 100)",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Oldest first (asc) or newest first (desc, default)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleMoveHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_setups",
		Description: "List the starting positions a session can be created from",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSetups)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Tell whether a cell is on the board and what occupies it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"q":          coordProperty("q"),
				"r":          coordProperty("r"),
				"s":          coordProperty("s (optional, defaults to -q-r)"),
			},
			Required: []string{"session_id", "q", "r"},
		},
	}, c.handleDescribeCell)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the rules, coordinate system and board legend",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// apiError is a non-2xx answer from the REST API
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return e.Message
}

// apiCall performs one REST request. A 422 carries a rejected MoveResult and
// is decoded into result like a success.
func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusUnprocessableEntity {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return &apiError{Status: resp.StatusCode, Message: msg}
		}
		return &apiError{Status: resp.StatusCode, Message: fmt.Sprintf("API error: %d", resp.StatusCode)}
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// Argument helpers. JSON numbers arrive as float64.

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return map[string]interface{}{}
}

func stringArg(args map[string]interface{}, name string) string {
	s, _ := args[name].(string)
	return strings.TrimSpace(s)
}

func intArg(args map[string]interface{}, name string) (int, bool, error) {
	v, present := args[name]
	if !present || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		if n != float64(int(n)) {
			return 0, true, fmt.Errorf("%s must be an integer, got %v", name, n)
		}
		return int(n), true, nil
	case int:
		return n, true, nil
	case json.Number:
		i, err := n.Int64()
		return int(i), true, err
	default:
		return 0, true, fmt.Errorf("%s must be an integer", name)
	}
}

// positionArg reads <prefix>q, <prefix>r and an optional <prefix>s
func positionArg(args map[string]interface{}, prefix string) (hex.Position, error) {
	q, ok, err := intArg(args, prefix+"q")
	if err != nil {
		return hex.Position{}, err
	}
	if !ok {
		return hex.Position{}, fmt.Errorf("%sq is required", prefix)
	}
	r, ok, err := intArg(args, prefix+"r")
	if err != nil {
		return hex.Position{}, err
	}
	if !ok {
		return hex.Position{}, fmt.Errorf("%sr is required", prefix)
	}
	s, ok, err := intArg(args, prefix+"s")
	if err != nil {
		return hex.Position{}, err
	}
	if !ok {
		s = -q - r
	}
	return hex.New(q, r, s), nil
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]string{}
	if name := stringArg(arguments(request), "setup"); name != "" {
		body["setup"] = name
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Created session: %s\nSetup: %s\n\n%s",
		info.ID, info.SetupName, formatGameState(info.GameState))), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Count    int                    `json:"count"`
		Sessions []*service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(resp.Sessions) == 0 {
		return mcp.NewToolResultText("No active sessions"), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active sessions (%d):\n", len(resp.Sessions))
	for _, info := range resp.Sessions {
		fmt.Fprintf(&b, "- %s: %s\n", info.ID, formatSummaryLine(info))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var info service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&info)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handlePlaceRing(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	player, err := engine.ParseColor(stringArg(args, "player"))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("player: %v", err)), nil
	}
	target, err := positionArg(args, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return c.submit(ctx, stringArg(args, "session_id"), engine.NewPlaceRing(player, target))
}

func (c *Client) handlePlaceMarker(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	player, err := engine.ParseColor(stringArg(args, "player"))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("player: %v", err)), nil
	}
	source, err := positionArg(args, "source_")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := positionArg(args, "target_")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return c.submit(ctx, stringArg(args, "session_id"), engine.NewPlaceMarker(player, source, target))
}

func (c *Client) submit(ctx context.Context, sessionID string, move engine.Move) (*mcp.CallToolResult, error) {
	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/moves"), move, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	query := url.Values{}
	for _, name := range []string{"page", "limit"} {
		n, ok, err := intArg(args, name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if ok {
			query.Set(name, fmt.Sprint(n))
		}
	}
	if order := stringArg(args, "order"); order != "" {
		query.Set("order", order)
	}

	path := sessionPath(sessionID, "/history")
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListSetups(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var setups []*setup.Info
	if err := c.apiCall(ctx, "GET", "/api/setups", nil, &setups); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available setups:\n")
	for _, info := range setups {
		fmt.Fprintf(&b, "- %s: %s", info.SetupID, info.Name)
		if info.Description != "" {
			fmt.Fprintf(&b, " (%s)", info.Description)
		}
		fmt.Fprintf(&b, " [%s, %s to move, %d rings and %d markers on the board]\n",
			info.Phase, info.CurrentPlayer, info.RingsPlaced, info.MarkersPlaced)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	pos, err := positionArg(args, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query := url.Values{}
	query.Set("q", fmt.Sprint(pos.Q))
	query.Set("r", fmt.Sprint(pos.R))
	query.Set("s", fmt.Sprint(pos.S))

	var cell service.CellInfo
	if err := c.apiCall(ctx, "GET", sessionPath(stringArg(args, "session_id"), "/cell?"+query.Encode()), nil, &cell); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatCell(&cell)), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `YINSH RULES (implemented subset)

BOARD
- 85 cells addressed by cube coordinates (q, r, s) with q + r + s = 0.
- Every coordinate lies between -5 and 5; the six corners such as
  (5, -5, 0) or (0, 5, -5) are not part of the board.
- (0, 0, 0) is the centre. You may omit s in tool calls; it defaults to -q-r.

PIECES
- Each player owns 5 rings. 51 markers are shared; a marker takes the color
  of the player who places it.

PHASES
1. INITIAL_RING_PLACEMENT: players alternate placing one ring on any empty
   cell, WHITE first (place_ring). After all 10 rings are down the game moves
   to MARKER_PLACEMENT with WHITE to move.
2. MARKER_PLACEMENT: on your turn pick one of your rings, drop a marker of
   your color on its cell and move the ring to any empty cell (place_marker).
   The game needs a marker left in the shared pool.

Row removal and ring removal are not playable yet.

BOARD DRAWING (game_state)
- W / B: white / black ring
- w / b: white / black marker
- .    : empty cell
Each line is one r value from -5 (top) to 5 (bottom); within a line q grows
from left to right.

REJECTIONS
An illegal move leaves the game unchanged and reports a reason code:
not_your_turn, wrong_phase, out_of_bounds, no_rings_left, marker_pool_empty,
not_your_ring, occupied, unsupported_move, malformed_move.`

// Formatting helpers

func formatSummaryLine(info *service.SessionInfo) string {
	sum := info.Summary
	return fmt.Sprintf("%s, %s to move, %d moves, setup %s",
		sum.Phase, sum.CurrentPlayer, info.MoveCount, info.SetupName)
}

func formatSessionInfo(info *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s\n", info.ID)
	fmt.Fprintf(&b, "Setup: %s\n", info.SetupName)
	fmt.Fprintf(&b, "Created: %s\n", info.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Moves played: %d\n", info.MoveCount)
	if len(info.Seated) > 0 {
		seated := make([]string, 0, len(info.Seated))
		for _, c := range info.Seated {
			seated = append(seated, c.String())
		}
		fmt.Fprintf(&b, "Connected seats: %s\n", strings.Join(seated, ", "))
	}
	sum := info.Summary
	fmt.Fprintf(&b, "Rings on board: WHITE %d, BLACK %d\n", sum.RingsPlaced[engine.White], sum.RingsPlaced[engine.Black])
	fmt.Fprintf(&b, "Markers on board: WHITE %d, BLACK %d (pool %d)\n",
		sum.MarkersPlaced[engine.White], sum.MarkersPlaced[engine.Black], sum.MarkersInPool)
	if info.GameState != nil {
		b.WriteString("\n")
		b.WriteString(info.GameState.Render())
	}
	return b.String()
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return ""
	}
	sum := state.Summarize()
	var b strings.Builder
	b.WriteString(state.Render())
	fmt.Fprintf(&b, "Rings in pool: WHITE %d, BLACK %d\n", sum.RingsInPool[engine.White], sum.RingsInPool[engine.Black])
	fmt.Fprintf(&b, "Markers in pool: %d\n", sum.MarkersInPool)
	return b.String()
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder
	if result.Accepted {
		fmt.Fprintf(&b, "Move %d accepted: %s\n\n", result.Ply, result.Move)
	} else {
		fmt.Fprintf(&b, "Move rejected (%s): %s\n", result.ReasonCode, result.Reason)
		fmt.Fprintf(&b, "Attempted: %s\nThe game is unchanged.\n\n", result.Move)
	}
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move history (page %d of %d, %d moves total):\n", history.Page, history.TotalPages, history.TotalMoves)
	if len(history.Moves) == 0 {
		b.WriteString("No moves yet\n")
	}
	for _, entry := range history.Moves {
		fmt.Fprintf(&b, "%3d. %s\n", entry.Ply, entry.Move)
	}
	if history.HasNext {
		fmt.Fprintf(&b, "More moves on page %d\n", history.Page+1)
	}
	return b.String()
}

func formatCell(cell *service.CellInfo) string {
	switch {
	case !cell.InBounds:
		return fmt.Sprintf("%s is not on the board", cell.Position)
	case !cell.Occupied || cell.Piece == nil:
		return fmt.Sprintf("%s is empty", cell.Position)
	default:
		return fmt.Sprintf("%s holds a %s %s", cell.Position, cell.Piece.Color, strings.ToLower(cell.Piece.Kind.String()))
	}
}
