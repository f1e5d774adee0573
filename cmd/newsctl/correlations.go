package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"colnews/internal/correlator"
	"colnews/internal/formatter"
	"colnews/internal/models"
	"colnews/internal/store"
)

func correlationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "correlations",
		Short: "Show the latest correlation result",
		Long: `Show the latest topic correlations against COLCAP changes and the
insights derived from them.

Examples:
  newsctl correlations
  newsctl correlations -o json`,
		Args: cobra.NoArgs,
		RunE: runCorrelations,
	}
}

func runCorrelations(cmd *cobra.Command, _ []string) error {
	asJSON, err := isJSON()
	if err != nil {
		return err
	}

	cfg, err := loadConfig("")
	if err != nil {
		return err
	}

	var result models.CorrelationResult
	if err := store.At(cfg.Data.ResultsDir()).ReadJSON(correlator.LatestFile, &result); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no correlation result yet, run the correlator first: %w", err)
		}

		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		return writeJSON(out, result)
	}

	fmt.Fprintf(out, "Período: %s → %s (%d días)\n\n", result.Period.Start, result.Period.End, result.Period.Days)
	fmt.Fprint(out, correlationTable(result.Correlations).String())

	if len(result.Insights) > 0 {
		fmt.Fprintln(out)

		for _, in := range result.Insights {
			fmt.Fprintf(out, "- [%s] %s\n", in.Topic, in.Text)
		}
	}

	return nil
}

func correlationTable(correlations map[string]float64) *formatter.Table {
	topics := make([]string, 0, len(correlations))
	for topic := range correlations {
		topics = append(topics, topic)
	}

	sort.Strings(topics)

	tbl := formatter.NewTable("tema", "correlación")
	for _, topic := range topics {
		tbl.Append(topic, fmt.Sprintf("%+.3f", correlations[topic]))
	}

	return tbl
}
