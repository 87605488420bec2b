package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/wricardo/yinsh/auth"
	"github.com/wricardo/yinsh/game/engine"
	"github.com/wricardo/yinsh/game/hex"
	"github.com/wricardo/yinsh/game/service"
	"github.com/wricardo/yinsh/game/session"
	"github.com/wricardo/yinsh/game/setup"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	seats   *auth.SeatIssuer
	hub     http.Handler
	router  *mux.Router
}

// NewServer creates a new API server. hub serves /ws and may be nil.
func NewServer(gameService service.GameService, seats *auth.SeatIssuer, hub http.Handler) *Server {
	s := &Server{
		service: gameService,
		seats:   seats,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(chimw.Recoverer)

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Game operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetGameState).Methods("GET")
	api.HandleFunc("/sessions/{id}/moves", s.handleMove).Methods("POST")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")
	api.HandleFunc("/sessions/{id}/seats", s.handleIssueSeat).Methods("POST")
	api.HandleFunc("/sessions/{id}/cell", s.handleDescribeCell).Methods("GET")

	// Board geometry
	api.HandleFunc("/board", s.handleBoard).Methods("GET")

	// Setups
	api.HandleFunc("/setups", s.handleListSetups).Methods("GET")
	api.HandleFunc("/setups", s.handleCreateSetup).Methods("POST")
	api.HandleFunc("/setups/reload", s.handleReloadSetups).Methods("POST")
	api.HandleFunc("/setups/{name}", s.handleGetSetup).Methods("GET")

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	// WebSocket
	if s.hub != nil {
		s.router.Handle("/ws", s.hub)
	}

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "not found: "+r.URL.Path)
	})
}

// Mount serves h under prefix, e.g. the MCP endpoint
func (s *Server) Mount(prefix string, h http.Handler) {
	s.router.PathPrefix(prefix).Handler(h)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestLogger writes one debug line per request
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError picks the status from the error chain
func respondServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, setup.ErrSetupNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrInvalidSessionID), errors.Is(err, setup.ErrInvalidSetup):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrSessionAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrInvariant):
		log.Error().Err(err).Msg("engine invariant violated")
	}
	respondError(w, status, err.Error())
}

// decodeOptional decodes a JSON body that may be empty
func decodeOptional(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Setup string `json:"setup,omitempty"`
	}
	if err := decodeOptional(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	info, err := s.service.CreateSession(r.Context(), req.Setup)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Parse query parameters
	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Game Operation Handlers

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetGameState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

// handleMove submits a move. A seat token is optional here; when one is sent
// it must belong to this session and to the moving color.
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var move engine.Move
	if err := json.NewDecoder(r.Body).Decode(&move); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid move: "+err.Error())
		return
	}

	if token := auth.TokenFromRequest(r); token != "" {
		seat, err := s.seats.ParseFor(token, sessionID)
		if err != nil {
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if seat.Color != move.Player {
			respondError(w, http.StatusForbidden, fmt.Sprintf("seat is %s, move is for %s", seat.Color, move.Player))
			return
		}
	}

	result, err := s.service.SubmitMove(r.Context(), sessionID, move)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if !result.Accepted {
		respondJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetMoveHistory(r.Context(), mux.Vars(r)["id"], opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// handleIssueSeat hands out a token for one color of the session
func (s *Server) handleIssueSeat(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Color engine.Color `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	token, expiresAt, err := s.seats.Issue(info.ID, req.Color)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"session_id": info.ID,
		"color":      req.Color,
		"token":      token,
		"expires_at": expiresAt,
	})
}

func (s *Server) handleDescribeCell(w http.ResponseWriter, r *http.Request) {
	pos, err := parsePosition(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cell, err := s.service.DescribeCell(r.Context(), mux.Vars(r)["id"], pos)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cell)
}

// parsePosition reads q, r and optionally s from the query; s defaults to -q-r
func parsePosition(r *http.Request) (hex.Position, error) {
	query := r.URL.Query()
	coord := func(name string) (int, error) {
		v, err := strconv.Atoi(strings.TrimSpace(query.Get(name)))
		if err != nil {
			return 0, fmt.Errorf("query parameter %s must be an integer", name)
		}
		return v, nil
	}

	q, err := coord("q")
	if err != nil {
		return hex.Position{}, err
	}
	rr, err := coord("r")
	if err != nil {
		return hex.Position{}, err
	}
	sc := -q - rr
	if query.Get("s") != "" {
		if sc, err = coord("s"); err != nil {
			return hex.Position{}, err
		}
	}
	return hex.New(q, rr, sc), nil
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	cells := hex.Cells()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"radius": hex.Radius,
		"count":  len(cells),
		"cells":  cells,
	})
}

// Setup Handlers

func (s *Server) handleListSetups(w http.ResponseWriter, r *http.Request) {
	setups, err := s.service.ListSetups(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, setups)
}

func (s *Server) handleGetSetup(w http.ResponseWriter, r *http.Request) {
	st, err := s.service.LoadSetup(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleCreateSetup(w http.ResponseWriter, r *http.Request) {
	var st setup.Setup
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if st.Name == "" {
		respondError(w, http.StatusBadRequest, "Setup name is required")
		return
	}

	if err := s.service.SaveSetup(r.Context(), st.Name, &st); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Setup saved successfully",
		"setup_id": st.Name,
	})
}

func (s *Server) handleReloadSetups(w http.ResponseWriter, r *http.Request) {
	setups, err := s.service.ReloadSetups(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, setups)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
