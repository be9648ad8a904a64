package main

import (
	"github.com/spf13/cobra"

	"github.com/erfi/loadcompare/internal/app"
)

var (
	scenario        string
	failOnThreshold bool
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare the latest results of every target per scenario",
	Args:  cobra.NoArgs,
	RunE:  runCompare,
}

func init() {
	compareCmd.Flags().StringVarP(&scenario, "scenario", "s", app.AllScenarios, "Scenario to compare, or \"all\"")
	compareCmd.Flags().BoolVar(&failOnThreshold, "fail-on-threshold", false, "Exit with error if any threshold fails")
}

func runCompare(cmd *cobra.Command, _ []string) error {
	application, logger, cfg, err := newApp(cmd, app.Options{FailOnThreshold: failOnThreshold}, false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := app.SetupSignalHandler(logger, cfg.Server.ShutdownTimeout)
	defer cancel()

	return application.Compare(ctx, scenario)
}
