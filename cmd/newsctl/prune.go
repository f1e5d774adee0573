package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"colnews/internal/stages"
)

func pruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Apply the retention windows now",
		Long: `Delete raw and clean documents older than processor.retention_days and
timestamped correlation results older than correlator.retention_days.
correlations_latest.json is always kept.`,
		Args: cobra.NoArgs,
		RunE: runPrune,
	}
}

func runPrune(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig("")
	if err != nil {
		return err
	}

	log := newLogger(cfg)
	now := time.Now()

	p, err := stages.NewProcessor(cfg, log)
	if err != nil {
		return err
	}

	documents, err := p.Cleanup(now)
	if err != nil {
		return err
	}

	r, err := stages.NewCorrelator(cfg, log)
	if err != nil {
		return err
	}

	results, err := r.Cleanup(now)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "removed %d documents and %d results\n", documents, len(results))

	return nil
}
