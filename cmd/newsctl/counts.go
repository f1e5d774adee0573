package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"colnews/internal/analyzer"
	"colnews/internal/formatter"
	"colnews/internal/models"
	"colnews/internal/store"
)

func countsCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "counts",
		Short: "Show daily article counts per topic",
		Long: `Show the analyzer's daily topic counts, most recent days last.

Examples:
  newsctl counts
  newsctl counts --days 30 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCounts(cmd, days)
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", 7, "Number of most recent days to show (0 for all)")

	return cmd
}

func runCounts(cmd *cobra.Command, days int) error {
	asJSON, err := isJSON()
	if err != nil {
		return err
	}

	cfg, err := loadConfig("")
	if err != nil {
		return err
	}

	var counts models.DailyTopicCounts
	if err := store.At(cfg.Data.AnalysisDir()).ReadJSON(analyzer.CountsFile, &counts); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no daily counts yet, run the analyzer first: %w", err)
		}

		return err
	}

	counts = lastDays(counts, days)

	out := cmd.OutOrStdout()
	if asJSON {
		return writeJSON(out, counts)
	}

	topics := analyzer.TopicNames(analyzer.TopicsFromConfig(cfg.Analyzer.Topics))
	fmt.Fprint(out, countsTable(counts, topics).String())

	return nil
}

// lastDays keeps the n most recent days. n <= 0 keeps everything.
func lastDays(counts models.DailyTopicCounts, n int) models.DailyTopicCounts {
	days := counts.Days()
	if n <= 0 || len(days) <= n {
		return counts
	}

	kept := models.DailyTopicCounts{}
	for _, day := range days[len(days)-n:] {
		kept[day] = counts[day]
	}

	return kept
}

func countsTable(counts models.DailyTopicCounts, topics []string) *formatter.Table {
	headers := append([]string{"día"}, topics...)
	tbl := formatter.NewTable(append(headers, "total")...)

	for _, day := range counts.Days() {
		row := []string{day}
		for _, topic := range topics {
			row = append(row, strconv.Itoa(counts.Count(day, topic)))
		}

		tbl.Append(append(row, strconv.Itoa(counts.Total(day)))...)
	}

	return tbl
}
