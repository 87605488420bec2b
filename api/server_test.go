package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/yinsh/auth"
	"github.com/wricardo/yinsh/game/engine"
	"github.com/wricardo/yinsh/game/hex"
	"github.com/wricardo/yinsh/game/service"
	"github.com/wricardo/yinsh/game/session"
	"github.com/wricardo/yinsh/game/setup"
	"github.com/wricardo/yinsh/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	// Session Management
	CreateSessionFunc func(ctx context.Context, setupName string) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	// Game Operations
	SubmitMoveFunc func(ctx context.Context, sessionID string, move engine.Move) (*service.MoveResult, error)
	ConnectFunc    func(ctx context.Context, sessionID string, color engine.Color, n session.Notifier) error

	// Game State
	GetGameStateFunc   func(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetMoveHistoryFunc func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error)
	DescribeCellFunc   func(ctx context.Context, sessionID string, pos hex.Position) (*service.CellInfo, error)

	// Setups
	ListSetupsFunc func(ctx context.Context) ([]*setup.Info, error)
	LoadSetupFunc  func(ctx context.Context, setupName string) (*setup.Setup, error)
	SaveSetupFunc  func(ctx context.Context, setupName string, s *setup.Setup) error
	ReloadFunc     func(ctx context.Context) ([]*setup.Info, error)
}

// Session Management
func (m *MockGameService) CreateSession(ctx context.Context, setupName string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, setupName)
	}
	return &service.SessionInfo{
		ID:        "ab12",
		SetupName: setupName,
		CreatedAt: time.Now(),
	}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{
		ID:        sessionID,
		SetupName: setup.DefaultName,
		CreatedAt: time.Now(),
	}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

// Game Operations
func (m *MockGameService) SubmitMove(ctx context.Context, sessionID string, move engine.Move) (*service.MoveResult, error) {
	if m.SubmitMoveFunc != nil {
		return m.SubmitMoveFunc(ctx, sessionID, move)
	}
	return &service.MoveResult{Accepted: true, Move: move, GameState: engine.NewInitialState(), Ply: 1}, nil
}

func (m *MockGameService) Connect(ctx context.Context, sessionID string, color engine.Color, n session.Notifier) error {
	if m.ConnectFunc != nil {
		return m.ConnectFunc(ctx, sessionID, color, n)
	}
	n.NotifyState(engine.NewInitialState())
	return nil
}

func (m *MockGameService) Disconnect(ctx context.Context, sessionID string, color engine.Color, n session.Notifier) error {
	return nil
}

// Game State
func (m *MockGameService) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.GetGameStateFunc != nil {
		return m.GetGameStateFunc(ctx, sessionID)
	}
	return engine.NewInitialState(), nil
}

func (m *MockGameService) GetMoveHistory(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetMoveHistoryFunc != nil {
		return m.GetMoveHistoryFunc(ctx, sessionID, opts)
	}
	return &service.HistoryResponse{
		Moves:      []service.HistoryEntry{},
		Page:       opts.Page,
		PageSize:   opts.Limit,
		TotalPages: 1,
	}, nil
}

func (m *MockGameService) DescribeCell(ctx context.Context, sessionID string, pos hex.Position) (*service.CellInfo, error) {
	if m.DescribeCellFunc != nil {
		return m.DescribeCellFunc(ctx, sessionID, pos)
	}
	return &service.CellInfo{Position: pos, InBounds: hex.IsInBounds(pos)}, nil
}

// Setups
func (m *MockGameService) ListSetups(ctx context.Context) ([]*setup.Info, error) {
	if m.ListSetupsFunc != nil {
		return m.ListSetupsFunc(ctx)
	}
	return []*setup.Info{{SetupID: setup.DefaultName, Name: "Standard"}}, nil
}

func (m *MockGameService) LoadSetup(ctx context.Context, setupName string) (*setup.Setup, error) {
	if m.LoadSetupFunc != nil {
		return m.LoadSetupFunc(ctx, setupName)
	}
	return &setup.Setup{Name: setupName, Description: "Test setup", State: engine.NewInitialState()}, nil
}

func (m *MockGameService) SaveSetup(ctx context.Context, setupName string, s *setup.Setup) error {
	if m.SaveSetupFunc != nil {
		return m.SaveSetupFunc(ctx, setupName, s)
	}
	return nil
}

func (m *MockGameService) ReloadSetups(ctx context.Context) ([]*setup.Info, error) {
	if m.ReloadFunc != nil {
		return m.ReloadFunc(ctx)
	}
	return m.ListSetups(ctx)
}

// Test helpers
func testSeats(t *testing.T) *auth.SeatIssuer {
	t.Helper()
	seats, err := auth.NewSeatIssuer([]byte("test-secret"), time.Hour)
	if err != nil {
		t.Fatalf("NewSeatIssuer: %v", err)
	}
	return seats
}

func setupTestServer(t *testing.T, mockService *MockGameService) *Server {
	t.Helper()
	seats := testSeats(t)
	hub := websocket.NewHub(mockService, seats)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return NewServer(mockService, seats, hub)
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	switch b := body.(type) {
	case nil:
	case string:
		bodyBytes = []byte(b)
	default:
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response %q: %v", w.Body.String(), err)
	}
}

func notFound(id string) error {
	return fmt.Errorf("session %s: %w", id, session.ErrSessionNotFound)
}

// Session Management Tests

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*MockGameService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:        "Create session with default setup",
			requestBody: nil,
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, setupName string) (*service.SessionInfo, error) {
					if setupName != "" {
						t.Errorf("Expected empty setup name, got %s", setupName)
					}
					return &service.SessionInfo{ID: "ab12", SetupName: setup.DefaultName, CreatedAt: time.Now()}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "ab12" {
					t.Errorf("Expected session ID ab12, got %s", resp.ID)
				}
			},
		},
		{
			name:        "Create session with specific setup",
			requestBody: map[string]string{"setup": "rings-placed"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, setupName string) (*service.SessionInfo, error) {
					if setupName != "rings-placed" {
						t.Errorf("Expected setup 'rings-placed', got %s", setupName)
					}
					return &service.SessionInfo{ID: "cd34", SetupName: setupName}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.SetupName != "rings-placed" {
					t.Errorf("Expected setup 'rings-placed', got %s", resp.SetupName)
				}
			},
		},
		{
			name:        "Unknown setup",
			requestBody: map[string]string{"setup": "nope"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, setupName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("setup 'nope': %w", setup.ErrSetupNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Malformed body",
			requestBody:    `{"setup":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Handle service error",
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, setupName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["error"] != "service error" {
					t.Errorf("Expected error message 'service error', got %s", resp["error"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions", tt.requestBody))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d (%s)", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	now := time.Now()
	mockService := &MockGameService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
			return []*service.SessionInfo{
				{ID: "old1", CreatedAt: now.Add(-2 * time.Hour), LastAccessedAt: now.Add(-time.Minute)},
				{ID: "new1", CreatedAt: now.Add(-time.Hour), LastAccessedAt: now.Add(-time.Hour)},
				{ID: "mid1", CreatedAt: now.Add(-90 * time.Minute), LastAccessedAt: now},
			}, nil
		},
	}
	server := setupTestServer(t, mockService)

	tests := []struct {
		name     string
		query    string
		expected []string
		total    int
	}{
		{"default sorts by last access, newest first", "", []string{"mid1", "old1", "new1"}, 3},
		{"created ascending", "?sort=created&order=asc", []string{"old1", "mid1", "new1"}, 3},
		{"limit", "?sort=created&limit=1", []string{"new1"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions"+tt.query, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}

			var resp struct {
				Count    int                    `json:"count"`
				Total    int                    `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)

			if resp.Total != tt.total {
				t.Errorf("Expected total %d, got %d", tt.total, resp.Total)
			}
			if resp.Count != len(tt.expected) {
				t.Fatalf("Expected %d sessions, got %d", len(tt.expected), resp.Count)
			}
			for i, id := range tt.expected {
				if resp.Sessions[i].ID != id {
					t.Errorf("Position %d: expected %s, got %s", i, id, resp.Sessions[i].ID)
				}
			}
		})
	}
}

func TestGetAndDeleteSession(t *testing.T) {
	mockService := &MockGameService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			if sessionID != "ab12" {
				return nil, notFound(sessionID)
			}
			return &service.SessionInfo{ID: sessionID}, nil
		},
		DeleteSessionFunc: func(ctx context.Context, sessionID string) error {
			if sessionID != "ab12" {
				return fmt.Errorf("failed to delete session %s: %w", sessionID, session.ErrSessionNotFound)
			}
			return nil
		},
	}
	server := setupTestServer(t, mockService)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{"GET", "/api/sessions/ab12", http.StatusOK},
		{"GET", "/api/sessions/zz99", http.StatusNotFound},
		{"DELETE", "/api/sessions/ab12", http.StatusOK},
		{"DELETE", "/api/sessions/zz99", http.StatusNotFound},
		{"PUT", "/api/sessions/ab12", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest(tt.method, tt.path, nil))
			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, w.Code)
			}
		})
	}
}

func TestGetGameState(t *testing.T) {
	mockService := &MockGameService{
		GetGameStateFunc: func(ctx context.Context, sessionID string) (*engine.GameState, error) {
			if sessionID != "ab12" {
				return nil, notFound(sessionID)
			}
			return engine.NewInitialState(), nil
		},
	}
	server := setupTestServer(t, mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/ab12/state", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var state engine.GameState
	parseResponse(t, w, &state)
	if state.Phase != engine.InitialRingPlacement || state.CurrentPlayer != engine.White {
		t.Errorf("Unexpected state: %s, %s", state.Phase, state.CurrentPlayer)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/zz99/state", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

// Move Tests

func TestMove(t *testing.T) {
	seats := testSeats(t)
	whiteToken, _, _ := seats.Issue("ab12", engine.White)
	otherToken, _, _ := seats.Issue("zz99", engine.White)

	placeRing := engine.NewPlaceRing(engine.White, hex.Origin)

	tests := []struct {
		name           string
		sessionID      string
		requestBody    interface{}
		token          string
		setupMock      func(*MockGameService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:        "Accepted move",
			sessionID:   "ab12",
			requestBody: placeRing,
			setupMock: func(m *MockGameService) {
				m.SubmitMoveFunc = func(ctx context.Context, sessionID string, move engine.Move) (*service.MoveResult, error) {
					if move.Kind() != engine.KindPlaceRing || move.Player != engine.White {
						t.Errorf("Unexpected move %s", move)
					}
					return &service.MoveResult{Accepted: true, Move: move, GameState: engine.NewInitialState(), Ply: 1}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.MoveResult
				parseResponse(t, w, &resp)
				if !resp.Accepted || resp.Ply != 1 {
					t.Errorf("Expected accepted move at ply 1, got %+v", resp)
				}
			},
		},
		{
			name:        "Rejected move",
			sessionID:   "ab12",
			requestBody: placeRing,
			setupMock: func(m *MockGameService) {
				m.SubmitMoveFunc = func(ctx context.Context, sessionID string, move engine.Move) (*service.MoveResult, error) {
					return &service.MoveResult{
						Move:       move,
						GameState:  engine.NewInitialState(),
						Reason:     engine.ErrOccupied.Error(),
						ReasonCode: "occupied",
					}, nil
				}
			},
			expectedStatus: http.StatusUnprocessableEntity,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.MoveResult
				parseResponse(t, w, &resp)
				if resp.Accepted || resp.ReasonCode != "occupied" {
					t.Errorf("Expected occupied rejection, got %+v", resp)
				}
			},
		},
		{
			name:           "Malformed move",
			sessionID:      "ab12",
			requestBody:    `{"player":"WHITE","kind":"PLACE_RING"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Unknown kind",
			sessionID:      "ab12",
			requestBody:    `{"player":"WHITE","kind":"JUMP","data":{}}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "Unknown session",
			sessionID:   "zz99",
			requestBody: placeRing,
			setupMock: func(m *MockGameService) {
				m.SubmitMoveFunc = func(ctx context.Context, sessionID string, move engine.Move) (*service.MoveResult, error) {
					return nil, notFound(sessionID)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:        "Engine fault",
			sessionID:   "ab12",
			requestBody: placeRing,
			setupMock: func(m *MockGameService) {
				m.SubmitMoveFunc = func(ctx context.Context, sessionID string, move engine.Move) (*service.MoveResult, error) {
					return nil, fmt.Errorf("session %s: %w", sessionID, &engine.InvariantError{Detail: "two pieces on (0,0,0)"})
				}
			},
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:           "Matching seat token",
			sessionID:      "ab12",
			requestBody:    placeRing,
			token:          whiteToken,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Seat token for the other color",
			sessionID:      "ab12",
			requestBody:    engine.NewPlaceRing(engine.Black, hex.Origin),
			token:          whiteToken,
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "Seat token for another session",
			sessionID:      "ab12",
			requestBody:    placeRing,
			token:          otherToken,
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			hub := websocket.NewHub(mockService, seats)
			server := NewServer(mockService, seats, hub)
			w := httptest.NewRecorder()
			req := makeRequest("POST", "/api/sessions/"+tt.sessionID+"/moves", tt.requestBody)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}

			server.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d (%s)", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestGetHistory(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected service.HistoryOptions
	}{
		{"defaults", "", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
		{"explicit", "?page=2&limit=5&order=asc", service.HistoryOptions{Page: 2, Limit: 5, Order: "asc"}},
		{"garbage ignored", "?page=x&limit=-3&order=sideways", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got service.HistoryOptions
			mockService := &MockGameService{
				GetMoveHistoryFunc: func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
					got = opts
					return &service.HistoryResponse{Moves: []service.HistoryEntry{}, Page: opts.Page, PageSize: opts.Limit, TotalPages: 1}, nil
				},
			}

			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions/ab12/history"+tt.query, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			if got != tt.expected {
				t.Errorf("Expected options %+v, got %+v", tt.expected, got)
			}
		})
	}
}

func TestIssueSeat(t *testing.T) {
	mockService := &MockGameService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			if sessionID != "ab12" {
				return nil, notFound(sessionID)
			}
			return &service.SessionInfo{ID: sessionID}, nil
		},
	}
	seats := testSeats(t)
	server := NewServer(mockService, seats, nil)

	t.Run("issues a token for the seat", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/seats", map[string]string{"color": "BLACK"}))
		if w.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d (%s)", w.Code, w.Body.String())
		}

		var resp struct {
			Token     string    `json:"token"`
			ExpiresAt time.Time `json:"expires_at"`
		}
		parseResponse(t, w, &resp)

		seat, err := seats.ParseFor(resp.Token, "ab12")
		if err != nil {
			t.Fatalf("Issued token does not parse: %v", err)
		}
		if seat.Color != engine.Black {
			t.Errorf("Expected BLACK seat, got %s", seat.Color)
		}
		if resp.ExpiresAt.IsZero() {
			t.Error("Expected an expiry")
		}
	})

	t.Run("bad color", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/seats", map[string]string{"color": "GREEN"}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/sessions/zz99/seats", map[string]string{"color": "WHITE"}))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})
}

func TestDescribeCell(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		status   int
		expected hex.Position
	}{
		{"all three coordinates", "?q=1&r=-1&s=0", http.StatusOK, hex.New(1, -1, 0)},
		{"s derived", "?q=2&r=1", http.StatusOK, hex.New(2, 1, -3)},
		{"missing r", "?q=2", http.StatusBadRequest, hex.Position{}},
		{"non-numeric", "?q=a&r=0", http.StatusBadRequest, hex.Position{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got hex.Position
			mockService := &MockGameService{
				DescribeCellFunc: func(ctx context.Context, sessionID string, pos hex.Position) (*service.CellInfo, error) {
					got = pos
					return &service.CellInfo{Position: pos, InBounds: hex.IsInBounds(pos)}, nil
				},
			}

			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions/ab12/cell"+tt.query, nil))

			if w.Code != tt.status {
				t.Fatalf("Expected status %d, got %d", tt.status, w.Code)
			}
			if tt.status == http.StatusOK && got != tt.expected {
				t.Errorf("Expected position %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestBoard(t *testing.T) {
	server := setupTestServer(t, &MockGameService{})
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/board", nil))

	var resp struct {
		Radius int            `json:"radius"`
		Count  int            `json:"count"`
		Cells  []hex.Position `json:"cells"`
	}
	parseResponse(t, w, &resp)

	if resp.Radius != hex.Radius {
		t.Errorf("Expected radius %d, got %d", hex.Radius, resp.Radius)
	}
	if resp.Count != 85 || len(resp.Cells) != 85 {
		t.Errorf("Expected 85 cells, got %d (%d listed)", resp.Count, len(resp.Cells))
	}
}

// Setup Tests

func TestSetups(t *testing.T) {
	var saved *setup.Setup
	mockService := &MockGameService{
		LoadSetupFunc: func(ctx context.Context, setupName string) (*setup.Setup, error) {
			if setupName != "rings-placed" {
				return nil, fmt.Errorf("setup %q: %w", setupName, setup.ErrSetupNotFound)
			}
			return &setup.Setup{Name: setupName, State: engine.NewInitialState()}, nil
		},
		SaveSetupFunc: func(ctx context.Context, setupName string, s *setup.Setup) error {
			if err := setup.Validate(s); err != nil {
				return err
			}
			saved = s
			return nil
		},
	}
	server := setupTestServer(t, mockService)

	t.Run("list", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/setups", nil))
		var infos []*setup.Info
		parseResponse(t, w, &infos)
		if len(infos) != 1 || infos[0].SetupID != setup.DefaultName {
			t.Errorf("Unexpected setups: %+v", infos)
		}
	})

	t.Run("get", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/setups/rings-placed", nil))
		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}

		w = httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/setups/missing", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})

	t.Run("create", func(t *testing.T) {
		body := setup.Setup{Name: "mine", Description: "empty", State: engine.NewInitialState()}
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/setups", body))
		if w.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d (%s)", w.Code, w.Body.String())
		}
		if saved == nil || saved.Name != "mine" {
			t.Errorf("Expected setup to be saved, got %+v", saved)
		}
	})

	t.Run("create rejects", func(t *testing.T) {
		bad := engine.NewInitialState()
		bad.Pieces = bad.Pieces[:3]
		stuck := engine.NewInitialState()
		stuck.Phase = engine.RowRemoval

		tests := []struct {
			name string
			body interface{}
		}{
			{"no name", setup.Setup{State: engine.NewInitialState()}},
			{"bad json", `{"name":`},
			{"invalid state", setup.Setup{Name: "broken", State: bad}},
			{"unplayable phase", setup.Setup{Name: "stuck", State: stuck}},
		}
		for _, tt := range tests {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/setups", tt.body))
			if w.Code != http.StatusBadRequest {
				t.Errorf("%s: expected status 400, got %d", tt.name, w.Code)
			}
		}
	})
}

func TestReloadSetups(t *testing.T) {
	reloaded := 0
	server := setupTestServer(t, &MockGameService{
		ReloadFunc: func(ctx context.Context) ([]*setup.Info, error) {
			reloaded++
			return []*setup.Info{{SetupID: setup.DefaultName}, {SetupID: "rings-placed"}}, nil
		},
	})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/setups/reload", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d (%s)", w.Code, w.Body.String())
	}
	var infos []*setup.Info
	parseResponse(t, w, &infos)
	if len(infos) != 2 || reloaded != 1 {
		t.Errorf("Expected one reload listing 2 setups, got %d reloads and %+v", reloaded, infos)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/setups/reload", nil))
	if reloaded != 1 {
		t.Errorf("Expected GET to load a setup, not reload, got %d reloads", reloaded)
	}
}

func TestHealthAndNotFound(t *testing.T) {
	server := setupTestServer(t, &MockGameService{})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/healthz", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "healthy") {
		t.Errorf("Unexpected health response %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/nowhere", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	var resp map[string]string
	parseResponse(t, w, &resp)
	if resp["error"] == "" {
		t.Error("Expected a JSON error body")
	}
}

func TestWebSocket(t *testing.T) {
	seats := testSeats(t)
	token, _, _ := seats.Issue("ab12", engine.White)
	lost, _, _ := seats.Issue("zz99", engine.White)

	tests := []struct {
		name           string
		queryParams    string
		expectedStatus int
	}{
		{"Missing session parameter", "?token=" + token, http.StatusBadRequest},
		{"Missing token", "?session=ab12", http.StatusUnauthorized},
		{"Unknown session", "?session=zz99&token=" + lost, http.StatusNotFound},
	}

	mockService := &MockGameService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			if sessionID != "ab12" {
				return nil, notFound(sessionID)
			}
			return &service.SessionInfo{ID: sessionID}, nil
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := NewServer(mockService, seats, websocket.NewHub(mockService, seats))
			w := httptest.NewRecorder()
			server.ServeHTTP(w, httptest.NewRequest("GET", "/ws"+tt.queryParams, nil))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}
