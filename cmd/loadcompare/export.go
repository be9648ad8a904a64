package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erfi/loadcompare/internal/app"
)

var (
	exportScenario string
	outDir         string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write <scenario>_summary.csv files",
	Long: `export writes one CSV summary per scenario with results. Targets without
results get an empty row. Files are written to the results directory unless
--out-dir is given.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportScenario, "scenario", "s", app.AllScenarios, "Scenario to export, or \"all\"")
	exportCmd.Flags().StringVar(&outDir, "out-dir", "", "Output directory (default: results directory)")
}

func runExport(cmd *cobra.Command, _ []string) error {
	application, logger, cfg, err := newApp(cmd, app.Options{}, false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := app.SetupSignalHandler(logger, cfg.Server.ShutdownTimeout)
	defer cancel()

	written, err := application.Export(ctx, exportScenario, outDir)
	if err != nil {
		return err
	}
	logger.Debug("export finished", zap.Strings("files", written))
	return nil
}
