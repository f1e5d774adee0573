package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"colnews/internal/config"
	"colnews/internal/stages"
)

func runCmd() *cobra.Command {
	names := make([]string, 0, len(stages.Looping()))
	for _, s := range stages.Looping() {
		names = append(names, string(s))
	}

	return &cobra.Command{
		Use:   "run <stage>",
		Short: "Run a single cycle of a pipeline stage",
		Long: fmt.Sprintf(`Run one cycle of a stage and exit.

Stages: %s

Examples:
  newsctl run rss
  newsctl run correlator --log-level info`, strings.Join(names, ", ")),
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(config.Stage(args[0]))
		},
	}
}

func runStage(stage config.Stage) error {
	cfg, err := loadConfig(stage)
	if err != nil {
		return err
	}

	log := newLogger(cfg)

	cycle, err := stages.Build(stage, cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cycle(ctx)
}
