package main

import (
	"github.com/spf13/cobra"

	"github.com/erfi/loadcompare/internal/app"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Aggregate a single k6 event log",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func runParse(cmd *cobra.Command, args []string) error {
	application, logger, cfg, err := newApp(cmd, app.Options{}, false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := app.SetupSignalHandler(logger, cfg.Server.ShutdownTimeout)
	defer cancel()

	return application.Parse(ctx, args[0])
}
