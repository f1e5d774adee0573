// Package processor turns raw fetched articles into clean plain-text documents.
package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"colnews/internal/config"
	"colnews/internal/logger"
	"colnews/internal/models"
	"colnews/internal/store"
)

// UnknownSource tags clean articles whose raw document has no source.
const UnknownSource = "unknown"

// errWrite aborts a cycle; per-document read and validation errors do not.
var errWrite = errors.New("clean write failed")

// Stats reports directory counts before a cycle.
type Stats struct {
	Raw     int `json:"raw_files"`
	Clean   int `json:"clean_files"`
	Pending int `json:"pending"`
}

// CycleResult summarises one processing cycle.
type CycleResult struct {
	Processed int
	Skipped   int
	Discarded int
	Failed    int
	Pruned    int
}

// Processor reads raw/*.json and writes clean/<same name>.
type Processor struct {
	validator    *Validator
	extractor    *Extractor
	raw          *store.Dir
	clean        *store.Dir
	logger       *logger.Logger
	now          func() time.Time
	retention    time.Duration
	cleanupEvery int
	cycles       int
}

// New creates a processor.
func New(raw, clean *store.Dir, cfg config.ProcessorConfig, log *logger.Logger) *Processor {
	return &Processor{
		validator:    NewValidator(cfg.MinContentChars),
		extractor:    NewExtractor(),
		raw:          raw,
		clean:        clean,
		logger:       log,
		now:          time.Now,
		retention:    time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		cleanupEvery: cfg.CleanupEvery,
	}
}

// Process cleans one raw article. It returns ErrTooShort for documents that should be discarded.
func (p *Processor) Process(raw *models.RawArticle) (*models.CleanArticle, error) {
	now := p.now()

	source := raw.Source
	if source == "" {
		source = UnknownSource
	}

	doc := &models.CleanArticle{
		Title:       p.extractor.CleanText(raw.Title),
		Text:        p.extractor.ArticleText(raw),
		PublishDate: NormalizeDate(raw.Published, now),
		Source:      source,
		Link:        raw.Link,
		ProcessedAt: now,
	}

	if err := p.validator.Validate(doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// RunOnce processes every raw document without a clean counterpart, then runs the
// retention sweep every cleanupEvery cycles.
func (p *Processor) RunOnce(ctx context.Context) (CycleResult, error) {
	var res CycleResult

	if st, err := p.Stats(); err == nil {
		p.logger.Info("processor state", "clean", st.Clean, "pending", st.Pending)
	}

	names, err := p.raw.List("", ".json")
	if err != nil {
		return res, err
	}

	for _, name := range names {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		if p.clean.Exists(name) {
			res.Skipped++

			continue
		}

		if err := p.processFile(name); err != nil {
			if errors.Is(err, ErrTooShort) {
				p.logger.Debug("article discarded", "file", name, "reason", err)

				res.Discarded++

				continue
			}

			if errors.Is(err, errWrite) {
				return res, err
			}

			p.logger.Warn("raw document skipped", "file", name, "error", err)

			res.Failed++

			continue
		}

		res.Processed++
	}

	p.logger.Info("processing cycle complete",
		"processed", res.Processed, "skipped", res.Skipped, "discarded", res.Discarded, "failed", res.Failed)

	p.cycles++
	if p.cleanupEvery > 0 && p.cycles%p.cleanupEvery == 0 {
		pruned, err := p.Cleanup(p.now())
		res.Pruned = pruned

		if err != nil {
			return res, err
		}
	}

	return res, nil
}

func (p *Processor) processFile(name string) error {
	var raw models.RawArticle
	if err := p.raw.ReadJSON(name, &raw); err != nil {
		return err
	}

	doc, err := p.Process(&raw)
	if err != nil {
		return err
	}

	if err := p.clean.WriteJSON(name, doc); err != nil {
		return fmt.Errorf("%w: %w", errWrite, err)
	}

	return nil
}

// Stats counts raw and clean documents.
func (p *Processor) Stats() (Stats, error) {
	raw, err := p.raw.List("", ".json")
	if err != nil {
		return Stats{}, err
	}

	clean, err := p.clean.List("", ".json")
	if err != nil {
		return Stats{}, err
	}

	return Stats{Raw: len(raw), Clean: len(clean), Pending: len(raw) - len(clean)}, nil
}

// Cleanup deletes raw and clean files older than the retention window.
func (p *Processor) Cleanup(now time.Time) (int, error) {
	cutoff := now.Add(-p.retention)
	total := 0

	for _, dir := range []*store.Dir{p.raw, p.clean} {
		deleted, err := dir.PruneOlderThan(cutoff, nil)
		total += len(deleted)

		if err != nil {
			return total, err
		}
	}

	if total > 0 {
		p.logger.Info("old documents removed", "count", total)
	}

	return total, nil
}
