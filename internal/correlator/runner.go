package correlator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"colnews/internal/analyzer"
	"colnews/internal/economic"
	"colnews/internal/logger"
	"colnews/internal/models"
	"colnews/internal/store"
)

// Result file names in the results directory.
const (
	LatestFile   = "correlations_latest.json"
	ResultPrefix = "correlations_"
	resultLayout = "20060102_150405"
)

// Runner loads the analyzer and economic outputs, correlates them and persists the result.
type Runner struct {
	analysis   *store.Dir
	economic   *store.Dir
	results    *store.Dir
	logger     *logger.Logger
	now        func() time.Time
	topics     []string
	thresholds Thresholds
	retention  time.Duration
}

// Options configures a Runner.
type Options struct {
	Topics        []string
	Thresholds    Thresholds
	RetentionDays int
}

// NewRunner creates a runner.
func NewRunner(analysis, economicDir, results *store.Dir, opts Options, log *logger.Logger) *Runner {
	return &Runner{
		analysis:   analysis,
		economic:   economicDir,
		results:    results,
		logger:     log,
		now:        time.Now,
		topics:     opts.Topics,
		thresholds: opts.Thresholds,
		retention:  time.Duration(opts.RetentionDays) * 24 * time.Hour,
	}
}

// RunOnce computes and stores one correlation result. It returns nil without writing
// when either input is missing or the inputs do not overlap enough.
func (r *Runner) RunOnce(ctx context.Context) (*models.CorrelationResult, error) {
	var counts models.DailyTopicCounts
	if err := r.analysis.ReadJSON(analyzer.CountsFile, &counts); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.logger.Warn("no news counts available yet")

			return nil, nil
		}

		return nil, err
	}

	var history models.History
	if err := r.economic.ReadJSON(economic.HistoricalFile, &history); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.logger.Warn("no COLCAP history available yet")

			return nil, nil
		}

		return nil, err
	}

	if len(counts) == 0 || len(history) == 0 {
		r.logger.Warn("waiting for enough data", "news_days", len(counts), "colcap_days", len(history))

		return nil, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := Correlate(counts, history.ByDate(), r.topics)
	if errors.Is(err, ErrInsufficientData) {
		r.logger.Warn("not enough overlapping data for correlation", "error", err)

		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	now := r.now()
	result := &models.CorrelationResult{
		RunID:        uuid.NewString(),
		Timestamp:    now,
		Correlations: out.Correlations,
		Insights:     Insights(r.topics, out.Correlations, counts, out.AlignedDates, r.thresholds),
		Period:       PeriodOf(out.CommonDates),
	}

	name := ResultPrefix + now.Format(resultLayout) + ".json"
	if err := r.results.WriteJSON(name, result); err != nil {
		return nil, err
	}

	if err := r.results.WriteJSON(LatestFile, result); err != nil {
		return nil, err
	}

	for _, topic := range r.topics {
		r.logger.Info("correlation", "topic", topic, "r", out.Correlations[topic])
	}

	r.logger.Info("correlation result stored", "file", name, "run_id", result.RunID, "days", result.Period.Days)

	if _, err := r.Cleanup(now); err != nil {
		r.logger.Error("results cleanup failed", "error", err)
	}

	return result, nil
}

// Cleanup deletes timestamped results older than the retention window. The latest
// result is never removed.
func (r *Runner) Cleanup(now time.Time) ([]string, error) {
	deleted, err := r.results.PruneOlderThan(now.Add(-r.retention), func(name string) bool {
		return name == LatestFile || !strings.HasPrefix(name, ResultPrefix)
	})

	for _, name := range deleted {
		r.logger.Info("old result removed", "file", name)
	}

	return deleted, err
}
