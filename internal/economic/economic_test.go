package economic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colnews/internal/config"
	"colnews/internal/logger"
	"colnews/internal/models"
	"colnews/internal/store"
)

// stubGenerator answers every prompt with a fixed reply or error.
type stubGenerator struct {
	replies map[int]string
	err     error
	calls   []int
}

func (s *stubGenerator) Generate(_ context.Context, _ string, maxTokens int) (string, error) {
	s.calls = append(s.calls, maxTokens)
	if s.err != nil {
		return "", s.err
	}

	return s.replies[maxTokens], nil
}

var fixedNow = time.Date(2024, 1, 3, 15, 4, 5, 0, time.UTC)

func newTestFetcher(t *testing.T, gen Generator) (*Fetcher, *store.Dir) {
	t.Helper()

	dir, err := store.Open(t.TempDir())
	require.NoError(t, err)

	f := NewFetcher(gen, dir, Options{COLCAPFallback: 1450, USDCOPFallback: 4150, FetchUSDCOP: true}, logger.Nop())
	f.now = func() time.Time { return fixedNow }

	return f, dir
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"plain", ` {"colcap": 1} `, `{"colcap": 1}`},
		{"fenced", "```\n{\"colcap\": 1}\n```", `{"colcap": 1}`},
		{"tagged fence", "```json\n{\"colcap\": 1}\n```", `{"colcap": 1}`},
		{"unterminated fence", "```json {\"colcap\": 1}", `{"colcap": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.reply))
		})
	}
}

func TestGeminiClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "k3y", r.URL.Query().Get("key"))

		body, _ := io.ReadAll(r.Body)

		var req generateRequest
		assert.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, 150, req.GenerationConfig.MaxOutputTokens)
		assert.InDelta(t, 0.1, req.GenerationConfig.Temperature, 1e-9)
		assert.Equal(t, "hola", req.Contents[0].Parts[0].Text)

		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"`+"```json\\n{\\\"colcap\\\": 1523.4}\\n```"+`"}]}}]}`)
	}))
	defer srv.Close()

	cfg := config.Default().Economic.Gemini
	cfg.Endpoint = srv.URL
	cfg.APIKey = "k3y"

	client := NewGeminiClient(cfg)

	var reply colcapReply
	require.NoError(t, client.Lookup(context.Background(), "hola", 150, &reply))
	require.NotNil(t, reply.COLCAP)
	assert.InDelta(t, 1523.4, *reply.COLCAP, 1e-9)
}

func TestGeminiClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") == "empty" {
			fmt.Fprint(w, `{"candidates":[]}`)
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	cfg := config.Default().Economic.Gemini
	cfg.Endpoint = srv.URL

	_, err := NewGeminiClient(cfg).Generate(context.Background(), "x", 0)
	assert.ErrorIs(t, err, ErrNoAPIKey)

	cfg.APIKey = "denied"
	_, err = NewGeminiClient(cfg).Generate(context.Background(), "x", 0)
	assert.ErrorContains(t, err, "403")

	cfg.APIKey = "empty"
	_, err = NewGeminiClient(cfg).Generate(context.Background(), "x", 0)
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestFetchCOLCAP_FromGemini(t *testing.T) {
	gen := &stubGenerator{replies: map[int]string{
		0: `{"colcap": 1523.4, "fecha": "2024-01-03", "fuente": "BVC"}`,
	}}

	f, dir := newTestFetcher(t, gen)

	point, err := f.FetchCOLCAP(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SourceGemini, point.Source)
	assert.InDelta(t, 1523.4, point.Value, 1e-9)

	var daily models.EconomicDataPoint
	require.NoError(t, dir.ReadJSON("colcap_2024-01-03.json", &daily))
	assert.Equal(t, "COLCAP", daily.Index)
	assert.Equal(t, "2024-01-03", daily.Date)

	history, err := f.LoadHistory()
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestFetchCOLCAP_NullValueUsesLastKnown(t *testing.T) {
	gen := &stubGenerator{replies: map[int]string{0: `{"colcap": null, "error": "timeout"}`}}

	f, dir := newTestFetcher(t, gen)

	require.NoError(t, dir.WriteJSON(HistoricalFile, models.History{
		{Date: "2024-01-01", Index: "COLCAP", Value: 1400, Source: "gemini"},
		{Date: "2024-01-02", Index: "COLCAP", Value: 1410.5, Source: "gemini"},
	}))

	point, err := f.FetchCOLCAP(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SourceFallback, point.Source)
	assert.InDelta(t, 1410.5, point.Value, 1e-9)

	history, err := f.LoadHistory()
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "2024-01-03", history[2].Date)
}

func TestFetchCOLCAP_CorruptHistoryLeftUntouched(t *testing.T) {
	gen := &stubGenerator{replies: map[int]string{0: `{"colcap": 1500}`}}

	f, dir := newTestFetcher(t, gen)

	corrupt := []byte(`[{"date": "2024-01-01", "index": "COLCAP", "value": 1400}, {"date": "2024-01-02", "index": "COLCAP", "value": 1410.5}]x`)
	require.NoError(t, dir.WriteFile(HistoricalFile, corrupt))

	_, err := f.FetchCOLCAP(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, store.ErrNotFound))

	after, err := dir.ReadFile(HistoricalFile)
	require.NoError(t, err)
	assert.Equal(t, corrupt, after)
	assert.False(t, dir.Exists("colcap_2024-01-03.json"))

	assert.Error(t, f.RunOnce(context.Background()))
	assert.False(t, dir.Exists("economic_2024-01-03.json"))
}

func TestFetchCOLCAP_DefaultFallback(t *testing.T) {
	f, _ := newTestFetcher(t, &stubGenerator{err: errors.New("connection refused")})

	point, err := f.FetchCOLCAP(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SourceFallback, point.Source)
	assert.InDelta(t, 1450.0, point.Value, 1e-9)
}

func TestFetchCOLCAP_MalformedReplyFallsBack(t *testing.T) {
	f, _ := newTestFetcher(t, &stubGenerator{replies: map[int]string{0: "no sé"}})

	point, err := f.FetchCOLCAP(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SourceFallback, point.Source)
}

func TestFetchCOLCAP_SameDayReplaced(t *testing.T) {
	gen := &stubGenerator{replies: map[int]string{0: `{"colcap": 1500}`}}

	f, _ := newTestFetcher(t, gen)

	_, err := f.FetchCOLCAP(context.Background())
	require.NoError(t, err)

	gen.replies[0] = `{"colcap": 1510}`
	_, err = f.FetchCOLCAP(context.Background())
	require.NoError(t, err)

	history, err := f.LoadHistory()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.InDelta(t, 1510.0, history[0].Value, 1e-9)
}

func TestRunOnce_WritesExchangeRate(t *testing.T) {
	gen := &stubGenerator{replies: map[int]string{
		0:               `{"colcap": 1500}`,
		usdCOPMaxTokens: "```json\n{\"usd_cop\": 3987.5, \"fecha\": \"2024-01-03\"}\n```",
	}}

	f, dir := newTestFetcher(t, gen)

	require.NoError(t, f.RunOnce(context.Background()))
	assert.Equal(t, []int{0, usdCOPMaxTokens}, gen.calls)

	var rate models.ExchangeRate
	require.NoError(t, dir.ReadJSON("economic_2024-01-03.json", &rate))
	assert.InDelta(t, 3987.5, rate.USDCOP, 1e-9)
	assert.Equal(t, models.SourceGemini, rate.Source)
}

func TestFetchExchangeRate_Fallback(t *testing.T) {
	f, _ := newTestFetcher(t, nil)

	rate, err := f.FetchExchangeRate(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 4150.0, rate.USDCOP, 1e-9)
	assert.Equal(t, models.SourceFallback, rate.Source)
}
