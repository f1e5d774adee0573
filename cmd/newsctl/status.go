package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"colnews/internal/analyzer"
	"colnews/internal/config"
	"colnews/internal/correlator"
	"colnews/internal/economic"
	"colnews/internal/formatter"
	"colnews/internal/store"
)

// DirStatus is the document count of one data directory.
type DirStatus struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Documents int    `json:"documents"`
}

// StatusResult is the output of the status command.
type StatusResult struct {
	Directories           []DirStatus `json:"directories"`
	CorrelationsAvailable bool        `json:"correlations_available"`
	NewsDataAvailable     bool        `json:"news_data_available"`
	COLCAPHistory         bool        `json:"colcap_history_available"`
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show document counts and output availability",
		Long: `Show how many documents each stage directory holds and whether the
correlation result, daily counts and COLCAP history exist.

Examples:
  newsctl status
  newsctl status -o json`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	asJSON, err := isJSON()
	if err != nil {
		return err
	}

	cfg, err := loadConfig("")
	if err != nil {
		return err
	}

	result, err := collectStatus(cfg.Data)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		return writeJSON(out, result)
	}

	tbl := formatter.NewTable("directory", "path", "documents")
	for _, d := range result.Directories {
		tbl.Append(d.Name, d.Path, strconv.Itoa(d.Documents))
	}

	fmt.Fprint(out, tbl.String())
	fmt.Fprintf(out, "\ncorrelations: %s  news counts: %s  COLCAP history: %s\n",
		yesNo(result.CorrelationsAvailable), yesNo(result.NewsDataAvailable), yesNo(result.COLCAPHistory))

	return nil
}

func collectStatus(data config.DataConfig) (*StatusResult, error) {
	dirs := []struct{ name, path string }{
		{"raw", data.RawDir()},
		{"clean", data.CleanDir()},
		{"analysis", data.AnalysisDir()},
		{"economic", data.EconomicDir()},
		{"results", data.ResultsDir()},
		{"commoncrawl", data.CommonCrawlDir()},
	}

	result := &StatusResult{}

	for _, d := range dirs {
		names, err := store.At(d.path).List("", ".json")
		if err != nil {
			return nil, err
		}

		result.Directories = append(result.Directories, DirStatus{Name: d.name, Path: d.path, Documents: len(names)})
	}

	result.CorrelationsAvailable = store.At(data.ResultsDir()).Exists(correlator.LatestFile)
	result.NewsDataAvailable = store.At(data.AnalysisDir()).Exists(analyzer.CountsFile)
	result.COLCAPHistory = store.At(data.EconomicDir()).Exists(economic.HistoricalFile)

	return result, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}

	return "no"
}
