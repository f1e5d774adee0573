package stages

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"colnews/internal/config"
	"colnews/internal/logger"
	"colnews/internal/pipeline"
)

// Flags are the command-line options shared by every stage binary.
type Flags struct {
	ConfigFile string
	EnvFile    string
	Once       bool
}

// ParseFlags registers and parses the shared flags.
func ParseFlags(stage config.Stage) Flags {
	var f Flags

	flag.StringVar(&f.ConfigFile, "config", "", "Path to YAML configuration file (default "+config.DefaultConfigPath+" when present)")
	flag.StringVar(&f.EnvFile, "env", ".env", "Path to an optional .env file")

	if stage != config.StageDashboard {
		flag.BoolVar(&f.Once, "once", false, "Run a single cycle and exit")
	}

	flag.Parse()

	return f
}

// Main loads configuration for stage and runs it until SIGINT or SIGTERM.
// It returns the process exit code.
func Main(stage config.Stage, flags Flags) int {
	if err := config.LoadEnvFile(flags.EnvFile); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)

		return 1
	}

	cfg, err := config.Load(flags.ConfigFile, stage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load config: %v\n", err)

		return 1
	}

	log := logger.New(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}).Component(string(stage))
	log.Info("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if stage == config.StageDashboard {
		if err := Serve(ctx, cfg, log); err != nil {
			log.Error("dashboard failed", "error", err)

			return 1
		}

		return 0
	}

	cycle, err := Build(stage, cfg, log)
	if err != nil {
		log.Error("failed to initialise stage", "error", err)

		return 1
	}

	loop := &pipeline.Loop{
		Name:     string(stage),
		Interval: cfg.Interval(stage),
		Logger:   log,
		Run:      cycle,
	}

	if flags.Once {
		if err := loop.RunCycle(ctx); err != nil {
			log.Error("cycle failed", "error", err)

			return 1
		}

		return 0
	}

	loop.Start(ctx)

	return 0
}
