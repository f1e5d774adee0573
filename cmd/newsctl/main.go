// newsctl inspects and operates the news pipeline's data directory.
//
// Usage:
//
//	newsctl status
//	newsctl counts --days 7
//	newsctl correlations -o json
//	newsctl run processor
//	newsctl prune
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"colnews/internal/config"
	"colnews/internal/logger"
)

var (
	configFile string
	envFile    string
	outputFmt  string
	logLevel   string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "newsctl",
		Short: "Inspect and operate the Colombian news pipeline",
		Long: `newsctl reads the pipeline's data directory and runs single stage cycles.

Configuration is read the same way as the stage binaries: the YAML file,
then DATA_DIR, GEMINI_API_KEY and the other environment overrides.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "Path to an optional .env file")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level for stage runs")

	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(countsCmd())
	rootCmd.AddCommand(correlationsCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(pruneCmd())

	return rootCmd
}

// loadConfig loads configuration for stage. An empty stage applies no interval override.
func loadConfig(stage config.Stage) (*config.Config, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}

	return config.Load(configFile, stage)
}

func newLogger(cfg *config.Config) *logger.Logger {
	return logger.New(logger.Options{Level: logLevel, Format: cfg.Logging.Format}).Component("newsctl")
}
