package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/erfi/loadcompare/internal/app"
)

var (
	port     int
	jsonLogs bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve live results over HTTP and websockets",
	Long: `serve exposes aggregated results as NDJSON streams and pushes fresh
snapshots to websocket subscribers whenever result files change.

Endpoints:
  GET /api/scenarios
  GET /api/results
  GET /api/results/{scenario}
  GET /ws/results/{scenario}
  GET /healthz
  GET /metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&port, "port", "p", 3000, "Listen port")
	serveCmd.Flags().BoolVar(&jsonLogs, "log-json", false, "Log as JSON")
}

func runServe(cmd *cobra.Command, _ []string) error {
	application, logger, cfg, err := newApp(cmd, app.Options{}, jsonLogs)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := app.SetupSignalHandler(logger, cfg.Server.ShutdownTimeout+5*time.Second)
	defer cancel()

	return application.Serve(ctx)
}
