package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nickelm/tapestry/internal/server"
)

var serveAddr string
var serveDB string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "SQLite database path (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the collaboration server",
	Long: `Run the HTTP and WebSocket collaboration server.

The server exposes a REST API for rooms and snapshots, and a WebSocket
endpoint at /ws for realtime collaboration. The concept service requires
ANTHROPIC_API_KEY (or anthropic_api_key in the global config file).

Examples:
  # Serve on the default address
  tapestry serve

  # Serve on a specific address and database
  tapestry serve --addr :8080 --db /var/lib/tapestry/graph.sqlite3`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	if serveAddr != "" {
		cfg.ListenAddr = serveAddr
	}
	if serveDB != "" {
		cfg.DBPath = serveDB
	}
	if cfg.AnthropicAPIKey == "" && os.Getenv("ANTHROPIC_API_KEY") == "" {
		fmt.Fprintln(os.Stderr, "warning: no API key configured; concept features will fail")
	}

	db := mustOpenStore(cfg)
	defer db.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	srv := server.New(db, conceptClient(cfg), logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("serving", "addr", cfg.ListenAddr, "db", cfg.DBPath)
	if err := srv.ListenAndServe(ctx, cfg.ListenAddr); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
