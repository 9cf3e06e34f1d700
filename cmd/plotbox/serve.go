package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/plotbox/internal/sandbox"
	"github.com/michaelbrown/plotbox/internal/server"
	"github.com/michaelbrown/plotbox/internal/storage"
	"github.com/michaelbrown/plotbox/internal/storage/sqlite"
)

var portFlag int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the plotbox web server",
	Long: `Start the plotbox HTTP server with REST API and WebSocket support.

API endpoints are under /api. Runs are persisted to the configured
SQLite database unless storage.history is disabled.

Examples:
  plotbox serve
  plotbox serve --port 9090`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	pol, cfg, err := loadPolicy()
	if err != nil {
		return err
	}

	// Open storage unless history is disabled
	var store storage.Store
	if cfg.Storage.History {
		s, err := sqlite.Open(cfg.Storage.DBPath)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer s.Close()
		store = s
	} else {
		log.Println("Run history disabled")
	}

	exec := sandbox.NewExecutor(pol)

	// Determine port
	port := cfg.Server.Port
	if portFlag > 0 {
		port = portFlag
	}

	srv := server.New(cfg, store, exec)

	// Graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		srv.Shutdown(context.Background())
	}()

	return srv.Start(port)
}
