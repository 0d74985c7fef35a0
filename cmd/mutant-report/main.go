// Command mutant-report serves the mutant DNA detector and manages its
// outcome database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/banshee-data/mutant.report/internal/config"
	"github.com/banshee-data/mutant.report/internal/monitoring"
)

var (
	configPath string
	listen     string
	grpcListen string
	dbPath     string
	logLevel   string
	devMode    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mutant-report",
	Short: "Detect mutant DNA and report on evaluated samples",
	Long: `mutant-report decides whether a square DNA matrix over {A,T,C,G} holds
more than one run of four identical nucleotides, horizontally, vertically or
diagonally, and keeps a deduplicated record of every evaluated matrix.

Configuration is read from the optional JSON file given by --config, then
MUTANT_* environment variables, then the flags below.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg = loaded

		logger, err = monitoring.NewLogger(cfg.LogLevel, cfg.DevMode)
		if err != nil {
			return err
		}
		monitoring.SetLogger(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "path to a JSON config file")
	flags.StringVar(&listen, "listen", "", "HTTP listen address (overrides config)")
	flags.StringVar(&grpcListen, "grpc-listen", "", "gRPC health listen address (overrides config)")
	flags.StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	flags.BoolVar(&devMode, "dev", false, "development mode: console logs and /debug/ admin routes")

	rootCmd.AddCommand(serveCmd, migrateCmd, scanCmd, versionCmd)
}

// loadConfig resolves the config file and environment, then applies any
// flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	c, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("listen") {
		c.Listen = listen
	}
	if flags.Changed("grpc-listen") {
		c.GRPCListen = grpcListen
	}
	if flags.Changed("db") {
		c.DBPath = dbPath
	}
	if flags.Changed("log-level") {
		c.LogLevel = logLevel
	}
	if flags.Changed("dev") {
		c.DevMode = devMode
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
