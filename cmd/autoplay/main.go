// Command autoplay plays a Yinsh game against the REST API, moving for both
// colors with SystematicStrategy until no legal move is left or the move
// limit is reached. Each side claims its seat first and signs its moves with
// the seat token, so it exercises the same path a pair of remote players
// would.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/yinsh/game/engine"
	"github.com/wricardo/yinsh/game/service"
)

// Client talks to one session of the game server
type Client struct {
	baseURL   string
	sessionID string
	tokens    map[engine.Color]string
	client    *http.Client
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  make(map[engine.Color]string),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SessionID returns the session the client is playing
func (c *Client) SessionID() string {
	return c.sessionID
}

func (c *Client) do(ctx context.Context, method, path, token string, body, result interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusUnprocessableEntity {
		return resp.StatusCode, fmt.Errorf("%s %s failed: %s - %s", method, path, resp.Status, strings.TrimSpace(string(data)))
	}
	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return resp.StatusCode, fmt.Errorf("parse response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (c *Client) sessionPath(suffix string) string {
	return "/api/sessions/" + url.PathEscape(c.sessionID) + suffix
}

// CreateSession starts a new game from setupName (the default setup when
// empty) and claims both seats
func (c *Client) CreateSession(ctx context.Context, setupName string) (*engine.GameState, error) {
	body := map[string]string{}
	if setupName != "" {
		body["setup"] = setupName
	}

	var info service.SessionInfo
	if _, err := c.do(ctx, http.MethodPost, "/api/sessions", "", body, &info); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c.sessionID = info.ID
	return info.GameState, c.claimSeats(ctx)
}

// Resume attaches to an existing session and claims both seats
func (c *Client) Resume(ctx context.Context, sessionID string) (*engine.GameState, error) {
	c.sessionID = sessionID
	state, err := c.GetState(ctx)
	if err != nil {
		return nil, err
	}
	return state, c.claimSeats(ctx)
}

func (c *Client) claimSeats(ctx context.Context) error {
	for _, color := range []engine.Color{engine.White, engine.Black} {
		var seat struct {
			Token string `json:"token"`
		}
		if _, err := c.do(ctx, http.MethodPost, c.sessionPath("/seats"), "", map[string]engine.Color{"color": color}, &seat); err != nil {
			return fmt.Errorf("claim %s seat: %w", color, err)
		}
		c.tokens[color] = seat.Token
	}
	return nil
}

// GetState fetches the authoritative state
func (c *Client) GetState(ctx context.Context) (*engine.GameState, error) {
	var state engine.GameState
	if _, err := c.do(ctx, http.MethodGet, c.sessionPath("/state"), "", nil, &state); err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	return &state, nil
}

// Submit sends m signed with the mover's seat token. A rejection is returned
// as a result, not an error.
func (c *Client) Submit(ctx context.Context, m engine.Move) (*service.MoveResult, error) {
	var result service.MoveResult
	if _, err := c.do(ctx, http.MethodPost, c.sessionPath("/moves"), c.tokens[m.Player], m, &result); err != nil {
		return nil, fmt.Errorf("submit %s: %w", m, err)
	}
	return &result, nil
}

// PlayOptions bounds a Play run
type PlayOptions struct {
	MaxMoves int
	Delay    time.Duration
}

// Play moves for whoever is to move until the strategy finds nothing legal,
// MaxMoves is reached or ctx is done. It returns the number of accepted
// moves and the last known state.
func Play(ctx context.Context, c *Client, strategy *SystematicStrategy, state *engine.GameState, opts PlayOptions) (int, *engine.GameState, error) {
	played := 0
	for opts.MaxMoves <= 0 || played < opts.MaxMoves {
		if err := ctx.Err(); err != nil {
			return played, state, err
		}

		m, ok := strategy.NextMove(state)
		if !ok {
			log.Info().Int("played", played).Str("phase", state.Phase.String()).Msg("no legal move left")
			return played, state, nil
		}

		result, err := c.Submit(ctx, m)
		if err != nil {
			return played, state, err
		}
		if !result.Accepted {
			// the server disagrees with the local validator, e.g. another
			// player moved in between
			return played, result.GameState, fmt.Errorf("move %s rejected (%s): %s", m, result.ReasonCode, result.Reason)
		}

		played++
		state = result.GameState
		log.Debug().Int("ply", result.Ply).Str("move", m.String()).Int("evaluated", strategy.Evaluated).Msg("move accepted")
		strategy.Reset()

		if opts.Delay > 0 {
			select {
			case <-ctx.Done():
				return played, state, ctx.Err()
			case <-time.After(opts.Delay):
			}
		}
	}
	return played, state, nil
}

func main() {
	cmd := &cli.Command{
		Name:  "autoplay",
		Usage: "Play a Yinsh game against the server with a systematic strategy",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Game server URL", Sources: cli.EnvVars("YINSH_URL")},
			&cli.StringFlag{Name: "setup", Usage: "Setup to start from (default setup when empty)"},
			&cli.StringFlag{Name: "continue", Usage: "Resume playing an existing session by ID"},
			&cli.IntFlag{Name: "max-moves", Value: 200, Usage: "Maximum moves to play (0 = no limit)"},
			&cli.DurationFlag{Name: "delay", Usage: "Delay between moves"},
			&cli.BoolFlag{Name: "v", Usage: "Verbose output"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("autoplay failed")
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cmd.Bool("v") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	client := NewClient(cmd.String("url"))
	log.Info().Str("url", cmd.String("url")).Msg("connecting to game server")

	var state *engine.GameState
	var err error
	if id := cmd.String("continue"); id != "" {
		state, err = client.Resume(ctx, id)
	} else {
		state, err = client.CreateSession(ctx, cmd.String("setup"))
	}
	if err != nil {
		return err
	}
	log.Info().Str("session", client.SessionID()).Msg("playing")

	played, final, err := Play(ctx, client, NewSystematicStrategy(), state, PlayOptions{
		MaxMoves: int(cmd.Int("max-moves")),
		Delay:    cmd.Duration("delay"),
	})

	fmt.Printf("Session %s: %d moves played\n\n", client.SessionID(), played)
	if final != nil {
		fmt.Print(final.Render())
	}
	return err
}
