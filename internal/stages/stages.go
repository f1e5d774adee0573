// Package stages wires configuration, storage and logging into runnable pipeline stages.
package stages

import (
	"context"
	"fmt"
	"time"

	"colnews/internal/analyzer"
	"colnews/internal/config"
	"colnews/internal/correlator"
	"colnews/internal/dashboard"
	"colnews/internal/economic"
	"colnews/internal/fetcher"
	"colnews/internal/logger"
	"colnews/internal/processor"
	"colnews/internal/store"
)

// Cycle runs one pass of a stage.
type Cycle func(ctx context.Context) error

// Build returns the cycle of a looping stage. The dashboard has no cycle; use Serve.
func Build(stage config.Stage, cfg *config.Config, log *logger.Logger) (Cycle, error) {
	switch stage {
	case config.StageRSS:
		return buildRSS(cfg, log)
	case config.StageCommonCrawl:
		return buildCommonCrawl(cfg, log)
	case config.StageEconomic:
		return buildEconomic(cfg, log)
	case config.StageProcessor:
		return buildProcessor(cfg, log)
	case config.StageAnalyzer:
		return buildAnalyzer(cfg, log)
	case config.StageCorrelator:
		return buildCorrelator(cfg, log)
	case config.StageDashboard:
		return nil, fmt.Errorf("%w: %s does not run in cycles", config.ErrUnknownStage, stage)
	}

	return nil, fmt.Errorf("%w: %q", config.ErrUnknownStage, stage)
}

// Looping lists the stages Build accepts, in pipeline order.
func Looping() []config.Stage {
	return []config.Stage{
		config.StageRSS,
		config.StageCommonCrawl,
		config.StageEconomic,
		config.StageProcessor,
		config.StageAnalyzer,
		config.StageCorrelator,
	}
}

// Serve runs the dashboard until ctx is cancelled.
func Serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	results, err := store.Open(cfg.Data.ResultsDir())
	if err != nil {
		return err
	}

	analysis, err := store.Open(cfg.Data.AnalysisDir())
	if err != nil {
		return err
	}

	return dashboard.New(results, analysis, log).Start(ctx, cfg.Dashboard.Addr())
}

// NewProcessor builds the processor over the configured raw and clean directories.
func NewProcessor(cfg *config.Config, log *logger.Logger) (*processor.Processor, error) {
	raw, err := store.Open(cfg.Data.RawDir())
	if err != nil {
		return nil, err
	}

	clean, err := store.Open(cfg.Data.CleanDir())
	if err != nil {
		return nil, err
	}

	return processor.New(raw, clean, cfg.Processor, log), nil
}

// NewCorrelator builds the correlation runner over the configured directories.
func NewCorrelator(cfg *config.Config, log *logger.Logger) (*correlator.Runner, error) {
	dirs, err := openAll(cfg.Data.AnalysisDir(), cfg.Data.EconomicDir(), cfg.Data.ResultsDir())
	if err != nil {
		return nil, err
	}

	opts := correlator.Options{
		Topics: analyzer.TopicNames(analyzer.TopicsFromConfig(cfg.Analyzer.Topics)),
		Thresholds: correlator.Thresholds{
			Moderate: cfg.Correlator.ModerateThreshold,
			Strong:   cfg.Correlator.StrongThreshold,
		},
		RetentionDays: cfg.Correlator.RetentionDays,
	}

	return correlator.NewRunner(dirs[0], dirs[1], dirs[2], opts, log), nil
}

func buildRSS(cfg *config.Config, log *logger.Logger) (Cycle, error) {
	raw, err := store.Open(cfg.Data.RawDir())
	if err != nil {
		return nil, err
	}

	scraper := fetcher.NewScraperWithConfig(&cfg.Retry, "")
	f := fetcher.NewRSSFetcher(cfg.RSS.Feeds, scraper, raw, log)

	return func(ctx context.Context) error {
		f.FetchAll(ctx)

		return nil
	}, nil
}

func buildCommonCrawl(cfg *config.Config, log *logger.Logger) (Cycle, error) {
	dirs, err := openAll(cfg.Data.CommonCrawlDir(), cfg.Data.RawDir())
	if err != nil {
		return nil, err
	}

	scraper := fetcher.NewScraperWithConfig(&cfg.Retry, cfg.CommonCrawl.UserAgent).
		WithTimeout(time.Duration(cfg.CommonCrawl.TimeoutSec) * time.Second)
	cc := fetcher.NewCommonCrawl(cfg.CommonCrawl, scraper, dirs[0], dirs[1], log)

	return func(ctx context.Context) error {
		_, err := cc.FetchAll(ctx)

		return err
	}, nil
}

func buildEconomic(cfg *config.Config, log *logger.Logger) (Cycle, error) {
	dir, err := store.Open(cfg.Data.EconomicDir())
	if err != nil {
		return nil, err
	}

	gemini := economic.NewGeminiClient(cfg.Economic.Gemini)
	if !gemini.Configured() {
		log.Warn("GEMINI_API_KEY not set, fallback values will be stored")
	}

	f := economic.NewFetcher(gemini, dir, economic.Options{
		COLCAPFallback: cfg.Economic.COLCAPFallback,
		USDCOPFallback: cfg.Economic.USDCOPFallback,
		FetchUSDCOP:    cfg.Economic.FetchUSDCOP,
	}, log)

	return f.RunOnce, nil
}

func buildProcessor(cfg *config.Config, log *logger.Logger) (Cycle, error) {
	p, err := NewProcessor(cfg, log)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) error {
		_, err := p.RunOnce(ctx)

		return err
	}, nil
}

func buildAnalyzer(cfg *config.Config, log *logger.Logger) (Cycle, error) {
	dirs, err := openAll(cfg.Data.CleanDir(), cfg.Data.AnalysisDir())
	if err != nil {
		return nil, err
	}

	r := analyzer.NewRunner(dirs[0], dirs[1], analyzer.TopicsFromConfig(cfg.Analyzer.Topics), log)

	return func(ctx context.Context) error {
		_, err := r.RunOnce(ctx)

		return err
	}, nil
}

func buildCorrelator(cfg *config.Config, log *logger.Logger) (Cycle, error) {
	r, err := NewCorrelator(cfg, log)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) error {
		_, err := r.RunOnce(ctx)

		return err
	}, nil
}

func openAll(paths ...string) ([]*store.Dir, error) {
	dirs := make([]*store.Dir, len(paths))

	for i, p := range paths {
		d, err := store.Open(p)
		if err != nil {
			return nil, err
		}

		dirs[i] = d
	}

	return dirs, nil
}
