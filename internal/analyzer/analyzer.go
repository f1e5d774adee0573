// Package analyzer counts clean articles per day and topic.
package analyzer

import (
	"context"
	"strings"
	"time"

	"colnews/internal/logger"
	"colnews/internal/models"
	"colnews/internal/store"
)

// CountsFile is the analyzer's output document in the analysis directory.
const CountsFile = "daily_counts.json"

// Analyze counts, per publish day, the articles matching each topic. A topic counts
// at most once per article. Days with articles but no matches are kept with no counts.
// Articles without a publish date are attributed to the current UTC day.
func Analyze(articles []models.CleanArticle, topics []Topic, now time.Time) models.DailyTopicCounts {
	counts := models.DailyTopicCounts{}

	for i := range articles {
		a := &articles[i]

		day := Day(a.PublishDate, now)
		if counts[day] == nil {
			counts[day] = map[string]int{}
		}

		text := strings.ToLower(a.Title + " " + a.Text)

		for _, t := range topics {
			if t.Matches(text) {
				counts[day][t.Name]++
			}
		}
	}

	return counts
}

// Day returns the calendar-day part of an ISO timestamp.
func Day(publishDate string, now time.Time) string {
	if publishDate == "" {
		publishDate = now.UTC().Format(time.RFC3339)
	}

	day, _, _ := strings.Cut(publishDate, "T")

	return day
}

// countedFields are the clean-document fields the analyzer reads. Other fields
// (processed_at in particular) may come in formats this package does not parse.
type countedFields struct {
	Title       string `json:"title"`
	Text        string `json:"text"`
	PublishDate string `json:"publish_date"`
}

// Result summarises one analyzer cycle.
type Result struct {
	Analyzed  int
	Malformed int
	Days      int
}

// Runner rebuilds the daily counts document from every clean article.
type Runner struct {
	clean    *store.Dir
	analysis *store.Dir
	logger   *logger.Logger
	now      func() time.Time
	topics   []Topic
}

// NewRunner creates a runner.
func NewRunner(clean, analysis *store.Dir, topics []Topic, log *logger.Logger) *Runner {
	return &Runner{
		clean:    clean,
		analysis: analysis,
		topics:   topics,
		logger:   log,
		now:      time.Now,
	}
}

// RunOnce reads clean/*.json, skipping unreadable documents, and rewrites the counts file.
func (r *Runner) RunOnce(ctx context.Context) (Result, error) {
	var res Result

	names, err := r.clean.List("", ".json")
	if err != nil {
		return res, err
	}

	articles := make([]models.CleanArticle, 0, len(names))

	for _, name := range names {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		var doc countedFields
		if err := r.clean.ReadJSON(name, &doc); err != nil {
			r.logger.Warn("clean document skipped", "file", name, "error", err)

			res.Malformed++

			continue
		}

		articles = append(articles, models.CleanArticle{
			Title:       doc.Title,
			Text:        doc.Text,
			PublishDate: doc.PublishDate,
		})
	}

	counts := Analyze(articles, r.topics, r.now())

	if err := r.analysis.WriteJSON(CountsFile, counts); err != nil {
		return res, err
	}

	res.Analyzed = len(articles)
	res.Days = len(counts)

	if res.Days == 0 {
		r.logger.Warn("no articles to analyze yet")
	} else {
		days := counts.Days()
		last := days[len(days)-1]
		r.logger.Info("analysis complete",
			"analyzed", res.Analyzed, "malformed", res.Malformed, "days", res.Days,
			"latest_day", last, "latest_counts", counts[last])
	}

	return res, nil
}
