package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/driftworks/sqlbridge"
	"github.com/driftworks/sqlbridge/internal/keepalive"
	"github.com/driftworks/sqlbridge/internal/logging"
	"github.com/driftworks/sqlbridge/internal/pool"
	"github.com/driftworks/sqlbridge/internal/profiles"
	"github.com/driftworks/sqlbridge/internal/web"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// CLI flags
var (
	configPath string
	logFile    string
	verbosity  int
	timeout    time.Duration
	limit      int
	listen     string
)

const defaultConfigPath = "./sqlbridge.toml"

func main() {
	rootCmd := &cobra.Command{
		Use:   "sqlbridge",
		Short: "sqlbridge - database connectivity building blocks",
		Long:  `sqlbridge turns named connection profiles into ready-to-use database connectors, with ad-hoc query/execute commands and an optional HTTP serve mode.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Apply(verbosity, logFile)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Profiles file path (or set SQLBRIDGE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also log to a rotating file at this path")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v debug, -vv trace)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Timeout for database operations")

	queryCmd := &cobra.Command{
		Use:   "query <connection> <statement> [args...]",
		Short: "Run a statement and print rows as JSON",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runQuery,
	}
	queryCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of rows to fetch (0 = all)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the connection profiles over HTTP",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address (overrides the profiles file)")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "ping <connection>",
			Short: "Open a connection profile and verify it responds",
			Args:  cobra.ExactArgs(1),
			RunE:  runPing,
		},
		&cobra.Command{
			Use:   "exec <connection> <statement> [args...]",
			Short: "Run a statement that returns no rows",
			Args:  cobra.MinimumNArgs(2),
			RunE:  runExec,
		},
		queryCmd,
		serveCmd,
		&cobra.Command{
			Use:   "hash-token <token>",
			Short: "Print the bcrypt hash of an API token for the profiles file",
			Args:  cobra.ExactArgs(1),
			RunE:  runHashToken,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("sqlbridge %s (commit: %s, built: %s)\n", version, commit, date)
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadProfiles() (*profiles.File, error) {
	return profiles.Load(resolvedConfigPath())
}

func connect(name string) (*sqlbridge.Connector, error) {
	f, err := loadProfiles()
	if err != nil {
		return nil, err
	}
	profile, ok := f.Connections[name]
	if !ok {
		return nil, fmt.Errorf("unknown connection %q (have: %v)", name, f.Names())
	}
	cfg, err := profile.Config()
	if err != nil {
		return nil, err
	}
	return sqlbridge.NewConnector(cfg)
}

// statementArgs passes positional CLI strings through as statement args;
// drivers coerce them per column affinity.
func statementArgs(args []string) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}

func runPing(cmd *cobra.Command, args []string) error {
	conn, err := connect(args[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		return err
	}
	log.Info().Str("connection", args[0]).Str("dsn", conn.Redacted()).Msg("Connection ok")
	return nil
}

func runExec(cmd *cobra.Command, args []string) error {
	conn, err := connect(args[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	return conn.Execute(ctx, args[1], statementArgs(args[2:])...)
}

func runQuery(cmd *cobra.Command, args []string) error {
	conn, err := connect(args[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	var rows []sqlbridge.Row
	if limit > 0 {
		rows, err = conn.FetchMany(ctx, args[1], limit, statementArgs(args[2:])...)
	} else {
		rows, err = conn.FetchAll(ctx, args[1], statementArgs(args[2:])...)
	}
	if err != nil {
		return err
	}
	return printRows(os.Stdout, rows)
}

// printRows emits rows as indented JSON; an empty result prints as []
// rather than null.
func printRows(w io.Writer, rows []sqlbridge.Row) error {
	if rows == nil {
		rows = []sqlbridge.Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func runHashToken(cmd *cobra.Command, args []string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	fmt.Println(string(hash))
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	f, err := loadProfiles()
	if err != nil {
		return err
	}

	addr := listen
	if addr == "" {
		addr = f.Server.Listen
	}
	if addr == "" {
		return fmt.Errorf("no listen address: set --listen or [server].listen in the profiles file")
	}
	if f.Server.TokenHash == "" {
		log.Warn().Msg("No [server].token_hash configured; the API is unauthenticated. Generate one with 'sqlbridge hash-token'.")
	}

	log.Info().
		Str("version", version).
		Str("listen", addr).
		Int("connections", len(f.Connections)).
		Msg("Starting sqlbridge")

	mgr := pool.NewManager(f)
	defer mgr.Close()

	server := web.NewServer(mgr, addr, f.Server.TokenHash)

	watcher, err := profiles.NewWatcher(resolvedConfigPath(), mgr.Reload)
	if err != nil {
		return fmt.Errorf("failed to create profiles watcher: %w", err)
	}
	if err := watcher.Start(); err != nil {
		log.Error().Err(err).Msg("Failed to start profiles watcher; hot reload disabled")
	} else {
		defer watcher.Stop()
	}

	if interval, err := f.Server.Keepalive(); err == nil && interval > 0 {
		runner, err := keepalive.New(mgr, interval)
		if err != nil {
			return err
		}
		runner.Start()
		defer runner.Stop()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

func resolvedConfigPath() string {
	if configPath == defaultConfigPath {
		if env := os.Getenv("SQLBRIDGE_CONFIG"); env != "" {
			return env
		}
	}
	return configPath
}
