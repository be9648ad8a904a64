package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erfi/loadcompare/internal/app"
	"github.com/erfi/loadcompare/internal/config"
	"github.com/erfi/loadcompare/internal/logging"
)

var (
	configFile   string
	resultsDir   string
	logLevel     string
	outputFormat string
	noColor      bool
	verbose      bool
	quiet        bool
)

var rootCmd = &cobra.Command{
	Use:   "loadcompare",
	Short: "Compare k6 load test results across targets",
	Long: `loadcompare aggregates k6 JSON event logs into latency, throughput and
error statistics and compares them across targets for each test scenario.

Result files are expected as <scenario>_<target>_<timestamp>.json in the
results directory. The newest file per scenario and target is used.`,
	Example: `  loadcompare compare
  loadcompare compare --scenario smoke -o json
  loadcompare export --out-dir reports
  loadcompare parse results/smoke_coordix_2024-01-02T00-00-00-000Z.json
  loadcompare serve --port 3000`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.GetEnvOrDefault("LOADCOMPARE_CONFIG", ""), "Config file (YAML)")
	rootCmd.PersistentFlags().StringVarP(&resultsDir, "results-dir", "r", "", "Directory containing k6 result files")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug|info|warn|error")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table|json|graph")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output with additional details")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Minimal output (errors only)")

	rootCmd.AddCommand(compareCmd, exportCmd, parseCmd, serveCmd)
}

// loadConfig reads the config file and environment, then applies flags
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("results-dir") {
		cfg.ResultsDir = resultsDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("port") {
		cfg.Server.Port = port
	}

	return cfg, cfg.Validate()
}

// newApp builds the application for a subcommand
func newApp(cmd *cobra.Command, opts app.Options, jsonLogs bool) (*app.App, *zap.Logger, config.Config, error) {
	if noColor {
		color.NoColor = true
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, cfg, err
	}

	var logger *zap.Logger
	if jsonLogs {
		logger, err = logging.NewJSON(cfg.LogLevel)
	} else {
		logger, err = logging.New(cfg.LogLevel, quiet)
	}
	if err != nil {
		return nil, nil, cfg, err
	}

	opts.OutputFormat = outputFormat
	opts.Verbose = verbose
	opts.Quiet = quiet
	opts.Stdout = cmd.OutOrStdout()
	opts.Stderr = cmd.ErrOrStderr()

	application, err := app.New(cfg, opts, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, cfg, err
	}
	return application, logger, cfg, nil
}

func Execute() error {
	return rootCmd.Execute()
}
