package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/wricardo/yinsh/auth"
	"github.com/wricardo/yinsh/game/engine"
	"github.com/wricardo/yinsh/game/service"
	"github.com/wricardo/yinsh/game/session"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Outbound messages buffered per client before it is dropped.
	sendBuffer = 64
)

// Message types
const (
	TypeMove        = "move"
	TypeState       = "state"
	TypeInvalidMove = "invalid_move"
	TypeError       = "error"
)

// ErrSeatMismatch is the rejection reason for a move made on behalf of the
// other color.
var ErrSeatMismatch = errors.New("move player does not match seat")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Seat tokens authenticate the connection, not the origin
		return true
	},
}

// Message is the envelope for everything the server sends
type Message struct {
	Type      string            `json:"type"`
	SessionID string            `json:"session_id,omitempty"`
	State     *engine.GameState `json:"state,omitempty"`
	Move      *engine.Move      `json:"move,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Code      string            `json:"code,omitempty"`
}

// inbound is what clients send: {"type":"move","move":{...}}
type inbound struct {
	Type string          `json:"type"`
	Move json.RawMessage `json:"move"`
}

// Client is one websocket connection holding one seat. It implements
// session.Notifier; notifications never block, a client that cannot keep up
// is disconnected.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
	color     engine.Color

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

var _ session.Notifier = (*Client)(nil)

type countRequest struct {
	sessionID string
	reply     chan int
}

// Hub tracks connected clients per session and performs the seat handshake
type Hub struct {
	service service.GameService
	seats   *auth.SeatIssuer

	// Registered clients by lower-cased session ID
	sessions map[string]map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	counts chan countRequest
	done   chan struct{}
}

// NewHub creates a new WebSocket hub
func NewHub(svc service.GameService, seats *auth.SeatIssuer) *Hub {
	return &Hub{
		service:    svc,
		seats:      seats,
		sessions:   make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		counts:     make(chan countRequest),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop. It returns when ctx is done, after
// disconnecting every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case req := <-h.counts:
			req.reply <- len(h.sessions[req.sessionID])

		case <-ctx.Done():
			for _, clients := range h.sessions {
				for client := range clients {
					client.shutdown()
				}
			}
			h.sessions = make(map[string]map[*Client]bool)
			close(h.done)
			return
		}
	}
}

// ClientCount reports how many clients are connected to a session
func (h *Hub) ClientCount(sessionID string) int {
	req := countRequest{sessionID: strings.ToLower(sessionID), reply: make(chan int, 1)}
	select {
	case h.counts <- req:
		return <-req.reply
	case <-h.done:
		return 0
	}
}

// ServeHTTP handles GET /ws?session=<id>&token=<seat token>
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.ServeWS(w, r, r.URL.Query().Get("session"))
}

// ServeWS authenticates the seat token, upgrades the connection and seats the
// client in the session. A bad token is answered with 401 and an unknown
// session with 404, before any upgrade.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session parameter is required")
		return
	}

	seat, err := h.seats.ParseFor(auth.TokenFromRequest(r), sessionID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	if _, err := h.service.GetSession(r.Context(), sessionID); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("websocket upgrade failed")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		sessionID: strings.ToLower(sessionID),
		color:     seat.Color,
		ctx:       ctx,
		cancel:    cancel,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		cancel()
		return
	}

	go client.writePump()

	if err := h.service.Connect(ctx, client.sessionID, client.color, client); err != nil {
		client.sendError(err.Error())
		client.shutdown()
		go client.readPump()
		return
	}

	go client.readPump()
}

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true

	log.Info().
		Str("session", client.sessionID).
		Stringer("color", client.color).
		Int("clients", len(h.sessions[client.sessionID])).
		Msg("websocket client registered")
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.sessions[client.sessionID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)

			// Clean up empty sessions
			if len(clients) == 0 {
				delete(h.sessions, client.sessionID)
			}

			log.Info().
				Str("session", client.sessionID).
				Stringer("color", client.color).
				Int("clients", len(clients)).
				Msg("websocket client unregistered")
		}
	}
}

// NotifyState sends the authoritative state to the client
func (c *Client) NotifyState(state *engine.GameState) {
	c.enqueue(Message{Type: TypeState, SessionID: c.sessionID, State: state})
}

// NotifyInvalidMove tells the client its move was rejected
func (c *Client) NotifyInvalidMove(move engine.Move, state *engine.GameState, reason error) {
	c.invalidMove(move, state, reason, service.ReasonCode(reason))
}

// NotifyDisconnect closes the connection; the seat was taken over or the
// session went away
func (c *Client) NotifyDisconnect() {
	c.shutdown()
}

func (c *Client) invalidMove(move engine.Move, state *engine.GameState, reason error, code string) {
	c.enqueue(Message{
		Type:      TypeInvalidMove,
		SessionID: c.sessionID,
		Move:      &move,
		State:     state,
		Reason:    reason.Error(),
		Code:      code,
	})
}

func (c *Client) sendError(reason string) {
	c.enqueue(Message{Type: TypeError, SessionID: c.sessionID, Reason: reason})
}

func (c *Client) enqueue(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("session", c.sessionID).Str("type", msg.Type).Msg("failed to marshal websocket message")
		return
	}

	select {
	case <-c.ctx.Done():
	case c.send <- data:
	default:
		log.Warn().Str("session", c.sessionID).Stringer("color", c.color).Msg("websocket client too slow, dropping")
		c.shutdown()
	}
}

// shutdown stops the write pump, which closes the connection
func (c *Client) shutdown() {
	c.closeOnce.Do(c.cancel)
}

// handleMessage runs one inbound message
func (c *Client) handleMessage(data []byte) {
	var in inbound
	if err := json.Unmarshal(data, &in); err != nil {
		c.sendError(fmt.Sprintf("malformed message: %v", err))
		return
	}

	switch in.Type {
	case TypeMove:
		var move engine.Move
		if err := json.Unmarshal(in.Move, &move); err != nil {
			c.sendError(fmt.Sprintf("malformed move: %v", err))
			return
		}
		if move.Player != c.color {
			state, _ := c.hub.service.GetGameState(c.ctx, c.sessionID)
			c.invalidMove(move, state, fmt.Errorf("%w: seated as %s", ErrSeatMismatch, c.color), "wrong_seat")
			return
		}
		// Rejections reach this client through NotifyInvalidMove
		if _, err := c.hub.service.SubmitMove(c.ctx, c.sessionID, move); err != nil {
			log.Error().Err(err).Str("session", c.sessionID).Msg("move failed")
			c.sendError(err.Error())
		}

	default:
		c.sendError(fmt.Sprintf("unknown message type %q", in.Type))
	}
}

// readPump pumps messages from the WebSocket connection into the session
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		if err := c.hub.service.Disconnect(context.Background(), c.sessionID, c.color, c); err != nil {
			log.Debug().Err(err).Str("session", c.sessionID).Msg("disconnect after close")
		}
		c.shutdown()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("session", c.sessionID).Msg("websocket read error")
			}
			return
		}
		c.handleMessage(data)
	}
}

// writePump pumps queued messages to the WebSocket connection, one frame per
// message
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.shutdown()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown()
				return
			}

		case <-c.ctx.Done():
			if !c.flush() {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush writes whatever is still queued. It reports false if a write failed.
func (c *Client) flush() bool {
	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return false
			}
		default:
			return true
		}
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
