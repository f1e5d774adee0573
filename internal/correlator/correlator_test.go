package correlator

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colnews/internal/analyzer"
	"colnews/internal/economic"
	"colnews/internal/logger"
	"colnews/internal/models"
	"colnews/internal/store"
)

var topics = []string{"economia", "seguridad", "politica", "salud"}

func TestCorrelate_PerfectPositive(t *testing.T) {
	counts := models.DailyTopicCounts{
		"2024-01-01": {"economia": 1},
		"2024-01-02": {"economia": 2, "salud": 3},
		"2024-01-03": {"economia": 4, "salud": 3},
		"2024-01-04": {"economia": 6, "salud": 3},
	}
	index := map[string]float64{
		"2024-01-01": 100,
		"2024-01-02": 101,
		"2024-01-03": 103.02,
		"2024-01-04": 106.1106,
	}

	out, err := Correlate(counts, index, topics)
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-01-02", "2024-01-03", "2024-01-04"}, out.AlignedDates)
	require.Len(t, out.Changes, 3)
	assert.InDelta(t, 1.0, out.Changes[0], 1e-9)
	assert.InDelta(t, 2.0, out.Changes[1], 1e-9)
	assert.InDelta(t, 3.0, out.Changes[2], 1e-9)

	assert.InDelta(t, 1.0, out.Correlations["economia"], 1e-9)
	// Constant series has no variance.
	assert.Equal(t, 0.0, out.Correlations["salud"])
	assert.Equal(t, 0.0, out.Correlations["seguridad"])
	assert.Len(t, out.Correlations, 4)
}

func TestCorrelate_SkipsNonPositivePrior(t *testing.T) {
	counts := models.DailyTopicCounts{
		"2024-01-01": {}, "2024-01-02": {}, "2024-01-03": {}, "2024-01-04": {},
	}
	index := map[string]float64{
		"2024-01-01": 0, "2024-01-02": 100, "2024-01-03": 110, "2024-01-04": 99,
	}

	out, err := Correlate(counts, index, topics)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-03", "2024-01-04"}, out.AlignedDates)
	assert.InDelta(t, 10.0, out.Changes[0], 1e-9)
	assert.InDelta(t, -10.0, out.Changes[1], 1e-9)
}

func TestCorrelate_InsufficientData(t *testing.T) {
	index := map[string]float64{"2024-01-01": 100, "2024-01-02": 110}

	_, err := Correlate(models.DailyTopicCounts{"2024-01-02": {"economia": 3}}, index, topics)
	assert.ErrorIs(t, err, ErrInsufficientData)

	// Two common days give a single change, which cannot be correlated.
	out, err := Correlate(models.DailyTopicCounts{
		"2024-01-01": {"economia": 1},
		"2024-01-02": {"economia": 3},
	}, index, topics)
	assert.ErrorIs(t, err, ErrInsufficientData)
	require.Len(t, out.Changes, 1)
	assert.InDelta(t, 10.0, out.Changes[0], 1e-9)
	assert.Empty(t, out.Correlations)
}

func TestPearson(t *testing.T) {
	assert.InDelta(t, -1.0, Pearson([]float64{1, 2, 3}, []float64{3, 2, 1}), 1e-12)
	assert.Equal(t, 0.0, Pearson([]float64{1}, []float64{1}))
	assert.Equal(t, 0.0, Pearson([]float64{1, 2}, []float64{1, 2, 3}))
	assert.Equal(t, 0.0, Pearson([]float64{2, 2, 2}, []float64{1, 2, 3}))
}

func TestInsights(t *testing.T) {
	counts := models.DailyTopicCounts{
		"2024-01-02": {"economia": 2, "salud": 1},
		"2024-01-03": {"economia": 4},
	}
	correlations := map[string]float64{
		"economia":  0.8123,
		"seguridad": -0.45,
		"politica":  0.3,
		"salud":     0.1,
	}

	insights := Insights(topics, correlations, counts, []string{"2024-01-02", "2024-01-03"}, DefaultThresholds)
	require.Len(t, insights, 3)

	assert.Equal(t, "economia", insights[0].Topic)
	assert.Equal(t, "Correlación fuerte positiva (0.812). Las noticias de economia aumentan cuando el COLCAP sube.", insights[0].Text)
	require.NotNil(t, insights[0].Correlation)
	assert.InDelta(t, 0.8123, *insights[0].Correlation, 1e-12)

	assert.Equal(t, "Correlación moderada negativa (-0.450). Las noticias de seguridad disminuyen cuando el COLCAP sube.", insights[1].Text)

	assert.Equal(t, models.GeneralTopic, insights[2].Topic)
	assert.Nil(t, insights[2].Correlation)
	assert.Equal(t, "Promedio de 3.5 noticias diarias en el período analizado.", insights[2].Text)
}

func newRunner(t *testing.T) (*Runner, *store.Dir, *store.Dir, *store.Dir) {
	t.Helper()

	base := t.TempDir()

	dirs := make([]*store.Dir, 3)
	for i, name := range []string{"analysis", "economic", "results"} {
		d, err := store.Open(base + "/" + name)
		require.NoError(t, err)

		dirs[i] = d
	}

	r := NewRunner(dirs[0], dirs[1], dirs[2], Options{
		Topics:        topics,
		Thresholds:    DefaultThresholds,
		RetentionDays: 30,
	}, logger.Nop())

	return r, dirs[0], dirs[1], dirs[2]
}

func TestRunner_RunOnce(t *testing.T) {
	r, analysis, econ, results := newRunner(t)
	r.now = func() time.Time { return time.Date(2024, 1, 5, 10, 11, 12, 0, time.UTC) }

	// Missing inputs: nothing written.
	res, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res)

	require.NoError(t, analysis.WriteJSON(analyzer.CountsFile, models.DailyTopicCounts{
		"2024-01-01": {"economia": 1},
		"2024-01-02": {"economia": 2},
		"2024-01-03": {"economia": 5, "politica": 1},
		"2024-01-10": {"economia": 9},
	}))
	require.NoError(t, econ.WriteJSON(economic.HistoricalFile, models.History{
		{Date: "2024-01-01", Value: 1400},
		{Date: "2024-01-02", Value: 1414},
		{Date: "2024-01-03", Value: 1456.42},
	}))

	res, err = r.RunOnce(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, models.Period{Start: "2024-01-01", End: "2024-01-03", Days: 3}, res.Period)
	assert.InDelta(t, 1.0, res.Correlations["economia"], 1e-9)

	var latest models.CorrelationResult
	require.NoError(t, results.ReadJSON(LatestFile, &latest))
	assert.Equal(t, res.RunID, latest.RunID)
	assert.True(t, results.Exists("correlations_20240105_101112.json"))
}

func TestRunner_InsufficientDataWritesNothing(t *testing.T) {
	r, analysis, econ, results := newRunner(t)

	require.NoError(t, analysis.WriteJSON(analyzer.CountsFile, models.DailyTopicCounts{"2024-01-02": {"economia": 1}}))
	require.NoError(t, econ.WriteJSON(economic.HistoricalFile, models.History{
		{Date: "2024-01-01", Value: 100},
		{Date: "2024-01-02", Value: 110},
	}))

	res, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res)

	names, err := results.List("", "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestRunner_Cleanup(t *testing.T) {
	r, _, _, results := newRunner(t)
	now := time.Now()
	old := now.Add(-31 * 24 * time.Hour)

	for _, name := range []string{"correlations_20230101_000000.json", LatestFile, "notes.json", "correlations_20240101_000000.json"} {
		require.NoError(t, results.WriteJSON(name, map[string]string{}))
	}

	for _, name := range []string{"correlations_20230101_000000.json", LatestFile, "notes.json"} {
		require.NoError(t, os.Chtimes(results.File(name), old, old))
	}

	deleted, err := r.Cleanup(now)
	require.NoError(t, err)
	assert.Equal(t, []string{"correlations_20230101_000000.json"}, deleted)
	assert.True(t, results.Exists(LatestFile))
	assert.True(t, results.Exists("notes.json"))
	assert.True(t, results.Exists("correlations_20240101_000000.json"))
}
