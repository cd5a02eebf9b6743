package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shoplens/shoplens/api"
	"github.com/shoplens/shoplens/internal/app"
	"github.com/shoplens/shoplens/internal/config"
	"github.com/shoplens/shoplens/internal/log"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (chat UI and JSON API)",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

// runServe loads configuration, wires the application, and serves until
// SIGINT or SIGTERM.
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	logger := log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), JSON: cfg.LogJSON})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting shoplens", "version", AppVersion)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	addr := cfg.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	server := api.NewServer(a.Agent, logger)
	if err := server.Run(ctx, addr); err != nil {
		return fmt.Errorf("running server: %w", err)
	}
	return nil
}
