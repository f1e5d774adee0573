// Package correlator relates daily topic counts to day-over-day COLCAP changes.
package correlator

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"colnews/internal/models"
)

// ErrInsufficientData is returned when fewer than two aligned days are available.
var ErrInsufficientData = errors.New("insufficient overlapping data for correlation")

// Thresholds classify correlation magnitudes for insights.
type Thresholds struct {
	Moderate float64
	Strong   float64
}

// DefaultThresholds reports |r| > 0.3 as moderate and |r| > 0.7 as strong.
var DefaultThresholds = Thresholds{Moderate: 0.3, Strong: 0.7}

// Outcome is the result of one correlation computation.
type Outcome struct {
	Correlations map[string]float64
	// CommonDates are the ascending dates present in both inputs.
	CommonDates []string
	// AlignedDates are the dates that carry an index change, aligned with Changes.
	AlignedDates []string
	Changes      []float64
}

// Correlate computes the Pearson correlation between each topic's daily count and
// the index's percent change from the previous common date. Changes whose prior
// value is not positive are skipped. Missing topic counts are zero; a series
// without variance correlates as 0.
func Correlate(counts models.DailyTopicCounts, index map[string]float64, topics []string) (*Outcome, error) {
	out := &Outcome{Correlations: map[string]float64{}}

	for day := range counts {
		if _, ok := index[day]; ok {
			out.CommonDates = append(out.CommonDates, day)
		}
	}

	sort.Strings(out.CommonDates)

	if len(out.CommonDates) < 2 {
		return out, fmt.Errorf("%w: %d common days", ErrInsufficientData, len(out.CommonDates))
	}

	for i := 1; i < len(out.CommonDates); i++ {
		prev := index[out.CommonDates[i-1]]
		curr := index[out.CommonDates[i]]

		if prev <= 0 {
			continue
		}

		out.Changes = append(out.Changes, (curr-prev)/prev*100)
		out.AlignedDates = append(out.AlignedDates, out.CommonDates[i])
	}

	if len(out.Changes) < 2 {
		return out, fmt.Errorf("%w: %d index changes", ErrInsufficientData, len(out.Changes))
	}

	for _, topic := range topics {
		series := make([]float64, len(out.AlignedDates))
		for i, day := range out.AlignedDates {
			series[i] = float64(counts.Count(day, topic))
		}

		out.Correlations[topic] = Pearson(series, out.Changes)
	}

	return out, nil
}

// Pearson returns the correlation coefficient of x and y in [-1, 1], or 0 when
// it is undefined.
func Pearson(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}

	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}

	return math.Max(-1, math.Min(1, r))
}

// Insights describes every correlation above the moderate threshold, in topic order,
// followed by the mean daily article count over dates.
func Insights(topics []string, correlations map[string]float64, counts models.DailyTopicCounts, dates []string, th Thresholds) []models.Insight {
	insights := []models.Insight{}

	for _, topic := range topics {
		r, ok := correlations[topic]
		if !ok || math.Abs(r) <= th.Moderate {
			continue
		}

		strength := "moderada"
		if math.Abs(r) > th.Strong {
			strength = "fuerte"
		}

		direction, verb := "positiva", "aumentan"
		if r <= 0 {
			direction, verb = "negativa", "disminuyen"
		}

		insights = append(insights, models.Insight{
			Topic:       topic,
			Correlation: &r,
			Text: fmt.Sprintf("Correlación %s %s (%.3f). Las noticias de %s %s cuando el COLCAP sube.",
				strength, direction, r, topic, verb),
		})
	}

	if len(dates) > 0 {
		total := 0
		for _, day := range dates {
			total += counts.Total(day)
		}

		avg := float64(total) / float64(len(dates))
		insights = append(insights, models.Insight{
			Topic: models.GeneralTopic,
			Text:  fmt.Sprintf("Promedio de %.1f noticias diarias en el período analizado.", avg),
		})
	}

	return insights
}

// PeriodOf describes ascending dates.
func PeriodOf(dates []string) models.Period {
	if len(dates) == 0 {
		return models.Period{}
	}

	return models.Period{Start: dates[0], End: dates[len(dates)-1], Days: len(dates)}
}
