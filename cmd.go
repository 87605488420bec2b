package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/yinsh/api"
	"github.com/wricardo/yinsh/auth"
	"github.com/wricardo/yinsh/game/engine"
	"github.com/wricardo/yinsh/game/service"
	"github.com/wricardo/yinsh/game/session"
	"github.com/wricardo/yinsh/game/setup"
	"github.com/wricardo/yinsh/transport/mcp"
	"github.com/wricardo/yinsh/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

const (
	cleanupInterval = time.Hour
	sessionMaxAge   = 24 * time.Hour
	syncInterval    = 5 * time.Second
)

// services holds everything a running server needs
type services struct {
	game        service.GameService
	sessions    *session.Manager
	setups      *setup.Manager
	persistence session.SessionPersistence
	seats       *auth.SeatIssuer
	closeStore  func() error
}

// initializeServices wires the setup library, the session store and the game
// service. Persisted sessions are loaded before it returns.
func initializeServices(cfg config) (*services, error) {
	setups, err := setup.NewManager(cfg.SetupDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create setup manager: %w", err)
	}

	persistence, closeStore, err := openPersistence(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	var sessions *session.Manager
	if persistence != nil {
		sessions = session.NewManagerWithPersistence(persistence)
		if err := sessions.LoadPersistedSessions(); err != nil {
			log.Warn().Err(err).Msg("failed to load persisted sessions")
		}
	} else {
		sessions = session.NewManager()
	}

	seats, err := newSeatIssuer(cfg)
	if err != nil {
		closeStore()
		return nil, err
	}

	return &services{
		game:        service.NewGameService(sessions, setups),
		sessions:    sessions,
		setups:      setups,
		persistence: persistence,
		seats:       seats,
		closeStore:  closeStore,
	}, nil
}

// openPersistence returns nil persistence for the memory store
func openPersistence(cfg config) (session.SessionPersistence, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Store {
	case storeMemory:
		return nil, noop, nil
	case storeFile, "":
		fp, err := session.NewFilePersistence(cfg.SessionsDir)
		if err != nil {
			return nil, noop, err
		}
		return fp, noop, nil
	case storeSQLite:
		sp, err := session.NewSQLitePersistence(cfg.DBPath)
		if err != nil {
			return nil, noop, err
		}
		return sp, sp.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown store %q (want %s, %s or %s)", cfg.Store, storeMemory, storeFile, storeSQLite)
	}
}

// newSeatIssuer uses the configured secret, or a random one that only lives
// as long as the process
func newSeatIssuer(cfg config) (*auth.SeatIssuer, error) {
	secret := []byte(cfg.SeatSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate seat secret: %w", err)
		}
		log.Warn().Msg("no seat secret configured, seat tokens will not survive a restart")
	}
	seats, err := auth.NewSeatIssuer(secret, cfg.SeatTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create seat issuer: %w", err)
	}
	return seats, nil
}

// startBackground launches the cleanup and store sync loops. They stop when
// ctx is done.
func (s *services) startBackground(ctx context.Context) {
	go sessionCleanupRoutine(ctx, s.sessions, cleanupInterval, sessionMaxAge)
	if s.persistence != nil {
		go storeSyncRoutine(ctx, s.sessions, s.persistence, syncInterval)
	}
}

// shutdown flushes every session to the store and releases it
func (s *services) shutdown() {
	if err := s.sessions.SaveAllSessions(); err != nil {
		log.Warn().Err(err).Msg("failed to save sessions on shutdown")
	}
	if err := s.closeStore(); err != nil {
		log.Warn().Err(err).Msg("failed to close session store")
	}
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within maxAge.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(maxAge); removed > 0 {
				log.Info().Int("removed", removed).Msg("cleaned up expired sessions")
			}
		}
	}
}

// storeSyncRoutine drops sessions from memory once they disappear from the
// store, e.g. when a session file is deleted by hand.
func storeSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruneOrphans(manager, persistence)
		}
	}
}

func pruneOrphans(manager *session.Manager, persistence session.SessionPersistence) int {
	pruned := 0
	for _, sess := range manager.List() {
		if persistence.Exists(sess.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(sess.ID); err == nil {
			pruned++
			log.Info().Str("session", sess.ID).Msg("pruned session from memory (removed from store)")
		}
	}
	return pruned
}

// newHandler combines the REST API, the websocket hub and the /mcp endpoint.
// The MCP tools call back into the API at baseURL.
func newHandler(svcs *services, hub http.Handler, baseURL string) http.Handler {
	apiServer := api.NewServer(svcs.game, svcs.seats, hub)
	apiServer.Mount("/mcp", mcpHTTPHandler(mcp.NewClient(baseURL).GetMCPServer()))
	return apiServer
}

// mcpHTTPHandler serves single JSON-RPC messages over POST
func mcpHTTPHandler(mcpServer *server.MCPServer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpServer.HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
}

func serverAction(ctx context.Context, cmd *cli.Command) error {
	cfg := configFromCommand(cmd)
	if err := setupLogging(cfg); err != nil {
		return err
	}
	log.Info().Str("version", Version).Msgf("starting %s", AppName)

	svcs, err := initializeServices(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svcs.shutdown()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runHTTPServer(ctx, cfg, svcs)
}

// runHTTPServer serves until ctx is done. If ngrok is enabled it also
// provisions a public tunnel serving the same handler.
func runHTTPServer(ctx context.Context, cfg config, svcs *services) error {
	svcs.startBackground(ctx)

	hub := websocket.NewHub(svcs.game, svcs.seats)
	go hub.Run(ctx)

	addr := net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port))
	handler := newHandler(svcs, hub, "http://"+addr)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		log.Info().Msgf("REST API: http://%s/api", addr)
		log.Info().Msgf("WebSocket: ws://%s/ws?session=<session_id>&token=<seat_token>", addr)
		log.Info().Msgf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if cfg.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, cfg, handler)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	wg.Wait()
	log.Info().Msg("server stopped")
	return runErr
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, cfg config, handler http.Handler) {
	if cfg.NgrokAuth == "" {
		log.Warn().Msg("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if cfg.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.NgrokDomain))
		log.Info().Str("domain", cfg.NgrokDomain).Msg("using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	log.Info().Msg("starting ngrok tunnel")
	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.NgrokAuth))
	if err != nil {
		log.Error().Err(err).Msg("failed to start ngrok tunnel")
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close ngrok tunnel")
		}
	}()

	url := tun.URL()
	log.Info().Str("url", url).Msg("ngrok tunnel established")
	log.Info().Msgf("  REST API (ngrok): %s/api", url)
	log.Info().Msgf("  MCP endpoint (ngrok): %s/mcp", url)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Error().Err(err).Msg("ngrok server error")
	}
	log.Info().Msg("ngrok tunnel closed")
}

// stdioMCPAction runs an MCP stdio server. It reuses an external API when
// one answers at --api-url; otherwise it starts an internal API on a random
// loopback port.
func stdioMCPAction(ctx context.Context, cmd *cli.Command) error {
	cfg := configFromCommand(cmd)
	if err := setupLogging(cfg); err != nil {
		return err
	}

	baseURL := cmd.String("api-url")
	if !apiReachable(baseURL) {
		log.Info().Str("url", baseURL).Msg("no external API server found, starting internal HTTP server")

		svcs, err := initializeServices(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer svcs.shutdown()

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		svcs.startBackground(ctx)

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = "http://" + listener.Addr().String()

		hub := websocket.NewHub(svcs.game, svcs.seats)
		go hub.Run(ctx)

		httpServer := &http.Server{Handler: api.NewServer(svcs.game, svcs.seats, hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("internal HTTP server error")
			}
		}()
		defer httpServer.Close()

		log.Info().Str("url", baseURL).Msg("MCP stdio server ready (using internal HTTP server)")
	} else {
		log.Info().Str("url", baseURL).Msg("MCP stdio server ready (using external HTTP server)")
	}

	if err := server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

func apiReachable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/healthz")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// output is where command results are printed
func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func boardAction(ctx context.Context, cmd *cli.Command) error {
	cfg := configFromCommand(cmd)
	if err := setupLogging(cfg); err != nil {
		return err
	}

	name := cmd.Args().First()
	if name == "" {
		fmt.Fprint(output(cmd), engine.NewInitialState().Render())
		return nil
	}

	setups, err := setup.NewManager(cfg.SetupDir)
	if err != nil {
		return err
	}
	s, err := setups.LoadSetup(name)
	if err != nil {
		return fmt.Errorf("setup %q: %w", name, err)
	}

	w := output(cmd)
	fmt.Fprintf(w, "%s\n", s.Name)
	if s.Description != "" {
		fmt.Fprintf(w, "%s\n", s.Description)
	}
	fmt.Fprintf(w, "\n%s", s.State.Render())
	return nil
}

func inspectAction(ctx context.Context, cmd *cli.Command) error {
	cfg := configFromCommand(cmd)
	if err := setupLogging(cfg); err != nil {
		return err
	}

	id := cmd.Args().First()
	if id == "" {
		return errors.New("inspect needs a session ID")
	}

	persistence, closeStore, err := openPersistence(cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	if persistence == nil {
		return fmt.Errorf("the %s store keeps nothing to inspect", cfg.Store)
	}

	sess, err := persistence.Load(id)
	if err != nil {
		return fmt.Errorf("session %s: %w", id, err)
	}

	state := sess.CurrentState()
	sum := state.Summarize()
	history := sess.History()

	w := output(cmd)
	fmt.Fprintf(w, "Session %s (setup %s)\n", sess.ID, sess.SetupName)
	fmt.Fprintf(w, "Created: %s, last accessed: %s\n",
		sess.CreatedAt.Format(time.RFC3339), sess.LastAccessedAt().Format(time.RFC3339))
	fmt.Fprintf(w, "Rings on board: WHITE %d, BLACK %d\n", sum.RingsPlaced[engine.White], sum.RingsPlaced[engine.Black])
	fmt.Fprintf(w, "Markers on board: WHITE %d, BLACK %d (pool %d)\n\n",
		sum.MarkersPlaced[engine.White], sum.MarkersPlaced[engine.Black], sum.MarkersInPool)
	fmt.Fprint(w, state.Render())
	fmt.Fprintf(w, "\n%d moves\n", len(history))
	for i, m := range history {
		fmt.Fprintf(w, "%3d. %s\n", i+1, m)
	}
	return nil
}

// replayFile is either a bare JSON array of moves or a stored session
type replayFile struct {
	setupName string
	moves     []engine.Move
	stored    *engine.GameState
	initial   *engine.GameState
}

func readReplayFile(path string) (*replayFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var moves []engine.Move
		if err := json.Unmarshal(trimmed, &moves); err != nil {
			return nil, fmt.Errorf("parsing moves: %w", err)
		}
		return &replayFile{moves: moves}, nil
	}

	var stored session.PersistedSessionData
	if err := json.Unmarshal(trimmed, &stored); err != nil {
		return nil, fmt.Errorf("parsing session: %w", err)
	}
	return &replayFile{
		setupName: stored.SetupName,
		moves:     stored.History,
		stored:    stored.GameState,
		initial:   stored.InitialState,
	}, nil
}

func replayAction(ctx context.Context, cmd *cli.Command) error {
	cfg := configFromCommand(cmd)
	if err := setupLogging(cfg); err != nil {
		return err
	}

	path := cmd.Args().First()
	if path == "" {
		return errors.New("replay needs a file")
	}
	rf, err := readReplayFile(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	start := engine.NewInitialState()
	setupName := cmd.String("setup")
	if setupName == "" {
		setupName = rf.setupName
	}
	switch {
	case rf.initial != nil && cmd.String("setup") == "":
		// the session recorded where it started
		if start, err = engine.FromSnapshot(*rf.initial); err != nil {
			return fmt.Errorf("%s: initial state: %w", path, err)
		}
	case setupName != "" && setupName != setup.DefaultName:
		setups, err := setup.NewManager(cfg.SetupDir)
		if err != nil {
			return err
		}
		s, err := setups.LoadSetup(setupName)
		if err != nil {
			return fmt.Errorf("setup %q: %w", setupName, err)
		}
		start = s.State
	}

	final, err := engine.ReplayFrom(start, rf.moves)
	if err != nil {
		return err
	}

	w := output(cmd)
	fmt.Fprintf(w, "Replayed %d moves\n\n", len(rf.moves))
	fmt.Fprint(w, final.Render())

	if rf.stored != nil {
		if !final.Equal(rf.stored) {
			return errors.New("replayed state differs from the stored state")
		}
		fmt.Fprintln(w, "\nReplayed state matches the stored state")
	}
	return nil
}

func setupsAction(ctx context.Context, cmd *cli.Command) error {
	cfg := configFromCommand(cmd)
	if err := setupLogging(cfg); err != nil {
		return err
	}

	setups, err := setup.NewManager(cfg.SetupDir)
	if err != nil {
		return err
	}
	infos, err := setups.ListSetups()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(output(cmd), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPHASE\tTO MOVE\tRINGS\tMARKERS")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			info.SetupID, info.Name, info.Phase, info.CurrentPlayer, info.RingsPlaced, info.MarkersPlaced)
	}
	return tw.Flush()
}
