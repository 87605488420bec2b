// Command yinsh runs the Yinsh game server and a few offline tools.
//
// Commands:
//  1. "server" (default) runs the HTTP server exposing the REST API, the
//     WebSocket endpoint and an /mcp HTTP endpoint
//  2. "stdio-mcp" runs an MCP stdio server and spins up an internal HTTP API
//     if no external one answers
//  3. "board", "inspect", "replay" and "setups" print boards, stored
//     sessions, replayed move lists and the setup library
//
// Every flag can also be set from the environment, and a .env file in the
// working directory is loaded first.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Yinsh Game Server"
)

// config is the resolved set of flags shared by all commands
type config struct {
	Host        string
	Port        int
	SetupDir    string
	Store       string
	SessionsDir string
	DBPath      string
	SeatSecret  string
	SeatTTL     time.Duration
	LogLevel    string
	Debug       bool

	NgrokEnabled bool
	NgrokAuth    string
	NgrokDomain  string
}

// Store kinds accepted by --store
const (
	storeMemory = "memory"
	storeFile   = "file"
	storeSQLite = "sqlite"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("exiting")
	}
}

// newApp builds the command tree. Flags on the root are visible to every
// subcommand.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "yinsh",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "setup-dir", Value: "setups", Usage: "Directory containing setup files", Sources: cli.EnvVars("SETUP_DIR")},
			&cli.StringFlag{Name: "store", Value: storeFile, Usage: "Session store: memory, file or sqlite", Sources: cli.EnvVars("STORE")},
			&cli.StringFlag{Name: "sessions-dir", Value: "sessions", Usage: "Directory for the file store", Sources: cli.EnvVars("SESSIONS_DIR")},
			&cli.StringFlag{Name: "db-path", Value: "yinsh.db", Usage: "Database file for the sqlite store", Sources: cli.EnvVars("DB_PATH")},
			&cli.StringFlag{Name: "seat-secret", Usage: "HMAC secret for seat tokens (random when empty)", Sources: cli.EnvVars("SEAT_SECRET")},
			&cli.DurationFlag{Name: "seat-ttl", Value: 24 * time.Hour, Usage: "Lifetime of a seat token", Sources: cli.EnvVars("SEAT_TTL")},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "Log level (debug, info, warn, error)", Sources: cli.EnvVars("LOG_LEVEL")},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging with human-readable output", Sources: cli.EnvVars("DEBUG")},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Action: serverAction,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  serverAction,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server, starting an internal HTTP API if needed",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api-url", Value: "http://localhost:8080", Usage: "External API to reuse when reachable", Sources: cli.EnvVars("MCP_API_URL")},
				},
				Action: stdioMCPAction,
			},
			{
				Name:      "board",
				Usage:     "Print the board of the initial position or of a setup",
				ArgsUsage: "[setup]",
				Action:    boardAction,
			},
			{
				Name:      "inspect",
				Usage:     "Print a stored session",
				ArgsUsage: "<session-id>",
				Action:    inspectAction,
			},
			{
				Name:      "replay",
				Usage:     "Replay a move list or a stored session file and print the result",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "setup", Usage: "Setup to start from (defaults to the file's setup)"},
				},
				Action: replayAction,
			},
			{
				Name:   "setups",
				Usage:  "List available setups",
				Action: setupsAction,
			},
		},
	}
}

// configFromCommand reads the shared flags. Lookups walk up to the root, so
// this works from any subcommand.
func configFromCommand(cmd *cli.Command) config {
	return config{
		Host:         cmd.String("host"),
		Port:         int(cmd.Int("port")),
		SetupDir:     cmd.String("setup-dir"),
		Store:        cmd.String("store"),
		SessionsDir:  cmd.String("sessions-dir"),
		DBPath:       cmd.String("db-path"),
		SeatSecret:   cmd.String("seat-secret"),
		SeatTTL:      cmd.Duration("seat-ttl"),
		LogLevel:     cmd.String("log-level"),
		Debug:        cmd.Bool("debug"),
		NgrokEnabled: cmd.Bool("ngrok"),
		NgrokAuth:    cmd.String("ngrok-auth"),
		NgrokDomain:  cmd.String("ngrok-domain"),
	}
}

// setupLogging configures the global zerolog logger. Logs always go to
// stderr so stdout stays free for command output and the MCP stdio protocol.
func setupLogging(cfg config) error {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	if cfg.Debug {
		level = zerolog.DebugLevel
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	zerolog.SetGlobalLevel(level)
	return nil
}
