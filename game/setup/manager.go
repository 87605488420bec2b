package setup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/yinsh/game/engine"
)

// DefaultName is the setup every game starts from unless told otherwise. It
// is always available, with or without a file on disk.
const DefaultName = "default"

var (
	ErrSetupNotFound = errors.New("setup not found")
	ErrInvalidSetup  = errors.New("invalid setup")
)

// Setup is a named starting position.
type Setup struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	State       *engine.GameState `json:"state"`
}

// Info describes a setup without its full state
type Info struct {
	SetupID       string       `json:"setup_id"` // identifier to use for session creation
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	Phase         engine.Phase `json:"phase"`
	CurrentPlayer engine.Color `json:"current_player"`
	RingsPlaced   int          `json:"rings_placed"`
	MarkersPlaced int          `json:"markers_placed"`
}

// Manager loads setups from a directory of JSON files and caches them
type Manager struct {
	setupDir string
	setups   map[string]*Setup
	mu       sync.RWMutex
}

// NewManager creates a setup manager reading from setupDir
func NewManager(setupDir string) (*Manager, error) {
	info, err := os.Stat(setupDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("setup directory does not exist: %s", setupDir)
	}

	return &Manager{
		setupDir: setupDir,
		setups:   make(map[string]*Setup),
	}, nil
}

// LoadSetup returns the named setup. The returned state is a fresh copy.
func (m *Manager) LoadSetup(name string) (*Setup, error) {
	name = normalizeName(name)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("%w: bad name %q", ErrInvalidSetup, name)
	}

	m.mu.RLock()
	cached, exists := m.setups[name]
	m.mu.RUnlock()
	if exists {
		return cached.copy(), nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if cached, exists := m.setups[name]; exists {
		return cached.copy(), nil
	}

	data, err := os.ReadFile(filepath.Join(m.setupDir, name+".json"))
	if errors.Is(err, os.ErrNotExist) {
		if name == DefaultName {
			return m.defaultSetup(), nil
		}
		return nil, ErrSetupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read setup file: %w", err)
	}

	var s Setup
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse setup: %w", err)
	}
	if err := Validate(&s); err != nil {
		return nil, err
	}

	m.setups[name] = &s
	return s.copy(), nil
}

// ListSetups returns information about every loadable setup, the default
// included, sorted by ID
func (m *Manager) ListSetups() ([]*Info, error) {
	entries, err := os.ReadDir(m.setupDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read setup directory: %w", err)
	}

	names := []string{DefaultName}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if name := strings.TrimSuffix(entry.Name(), ".json"); name != DefaultName {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var setups []*Info
	for _, name := range names {
		s, err := m.LoadSetup(name)
		if err != nil {
			// skip invalid setups
			continue
		}
		sum := s.State.Summarize()
		setups = append(setups, &Info{
			SetupID:       name,
			Name:          s.Name,
			Description:   s.Description,
			Phase:         sum.Phase,
			CurrentPlayer: sum.CurrentPlayer,
			RingsPlaced:   sum.RingsPlaced[engine.White] + sum.RingsPlaced[engine.Black],
			MarkersPlaced: sum.MarkersPlaced[engine.White] + sum.MarkersPlaced[engine.Black],
		})
	}

	return setups, nil
}

// GetDefault returns the default starting state
func (m *Manager) GetDefault() *engine.GameState {
	s, err := m.LoadSetup(DefaultName)
	if err != nil {
		return engine.NewInitialState()
	}
	return s.State
}

// SaveSetup validates s and writes it as name.json
func (m *Manager) SaveSetup(name string, s *Setup) error {
	name = normalizeName(name)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: bad name %q", ErrInvalidSetup, name)
	}
	if err := Validate(s); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal setup: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.setupDir, name+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write setup file: %w", err)
	}

	m.mu.Lock()
	m.setups[name] = s.copy()
	m.mu.Unlock()

	return nil
}

// RefreshCache drops every cached setup so the next load reads from disk
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setups = make(map[string]*Setup)
}

// Validate checks that s has a name and a state satisfying the board
// invariants, and that the state is consistent with its phase
func Validate(s *Setup) error {
	if s == nil {
		return fmt.Errorf("%w: nil setup", ErrInvalidSetup)
	}
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSetup)
	}
	if s.State == nil {
		return fmt.Errorf("%w: state is required", ErrInvalidSetup)
	}
	state, err := engine.FromSnapshot(*s.State)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSetup, err)
	}
	if problems := PhaseProblems(state); len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSetup, strings.Join(problems, "; "))
	}
	s.State = state
	return nil
}

func (m *Manager) defaultSetup() *Setup {
	return &Setup{
		Name:        "Standard",
		Description: "Empty board, white to place the first ring",
		State:       engine.NewInitialState(),
	}
}

func (s *Setup) copy() *Setup {
	c := *s
	c.State = s.State.Clone()
	return &c
}

func normalizeName(name string) string {
	return strings.TrimSuffix(strings.TrimSpace(name), ".json")
}
