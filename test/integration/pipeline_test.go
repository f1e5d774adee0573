package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"colnews/internal/config"
	"colnews/internal/dashboard"
	"colnews/internal/economic"
	"colnews/internal/logger"
	"colnews/internal/models"
	"colnews/internal/stages"
	"colnews/internal/store"
)

const economyFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Portafolio</title>
  <item>
    <title>La inflación y el dólar, nota 1</title>
    <link>https://www.portafolio.co/economia/nota-1</link>
    <description>&lt;p&gt;El mercado colombiano reaccionó a los datos de la jornada.&lt;/p&gt;</description>
    <pubDate>Mon, 01 Jan 2024 12:00:00 +0000</pubDate>
  </item>
  <item>
    <title>La inflación y el dólar, nota 2</title>
    <link>https://www.portafolio.co/economia/nota-2</link>
    <description>&lt;p&gt;El mercado colombiano reaccionó a los datos de la jornada.&lt;/p&gt;</description>
    <pubDate>Tue, 02 Jan 2024 12:00:00 +0000</pubDate>
  </item>
  <item>
    <title>La inflación y el dólar, nota 3</title>
    <link>https://www.portafolio.co/economia/nota-3</link>
    <description>&lt;p&gt;El mercado colombiano reaccionó a los datos de la jornada.&lt;/p&gt;</description>
    <pubDate>Wed, 03 Jan 2024 12:00:00 +0000</pubDate>
  </item>
  <item>
    <title>La inflación y el dólar, nota 4</title>
    <link>https://www.portafolio.co/economia/nota-4</link>
    <description>&lt;p&gt;El mercado colombiano reaccionó a los datos de la jornada.&lt;/p&gt;</description>
    <pubDate>Wed, 03 Jan 2024 12:00:00 +0000</pubDate>
  </item>
  <item>
    <title>La inflación y el dólar, nota 5</title>
    <link>https://www.portafolio.co/economia/nota-5</link>
    <description>&lt;p&gt;El mercado colombiano reaccionó a los datos de la jornada.&lt;/p&gt;</description>
    <pubDate>Thu, 04 Jan 2024 12:00:00 +0000</pubDate>
  </item>
  <item>
    <title>La inflación y el dólar, nota 6</title>
    <link>https://www.portafolio.co/economia/nota-6</link>
    <description>&lt;p&gt;El mercado colombiano reaccionó a los datos de la jornada.&lt;/p&gt;</description>
    <pubDate>Thu, 04 Jan 2024 12:00:00 +0000</pubDate>
  </item>
  <item>
    <title>La inflación y el dólar, nota 7</title>
    <link>https://www.portafolio.co/economia/nota-7</link>
    <description>&lt;p&gt;El mercado colombiano reaccionó a los datos de la jornada.&lt;/p&gt;</description>
    <pubDate>Thu, 04 Jan 2024 12:00:00 +0000</pubDate>
  </item>
</channel>
</rss>
`

func runStage(t *testing.T, stage config.Stage, cfg *config.Config) {
	t.Helper()

	cycle, err := stages.Build(stage, cfg, logger.Nop())
	if err != nil {
		t.Fatalf("Build(%s) failed: %v", stage, err)
	}

	if err := cycle(context.Background()); err != nil {
		t.Fatalf("%s cycle failed: %v", stage, err)
	}
}

func TestPipeline_FeedToDashboard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, economyFeed)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Data.BaseDir = t.TempDir()
	cfg.RSS.Feeds = []string{srv.URL}

	runStage(t, config.StageRSS, cfg)

	raw := store.At(cfg.Data.RawDir())

	rawDocs, err := raw.List("rss_", ".json")
	if err != nil {
		t.Fatalf("List raw failed: %v", err)
	}

	if len(rawDocs) != 7 {
		t.Fatalf("Expected 7 raw documents, got %d", len(rawDocs))
	}

	runStage(t, config.StageProcessor, cfg)
	runStage(t, config.StageAnalyzer, cfg)

	var counts models.DailyTopicCounts
	if err := store.At(cfg.Data.AnalysisDir()).ReadJSON("daily_counts.json", &counts); err != nil {
		t.Fatalf("Read counts failed: %v", err)
	}

	if got := counts.Count("2024-01-04", "economia"); got != 3 {
		t.Errorf("Expected 3 economia articles on 2024-01-04, got %d", got)
	}

	econ, err := store.Open(cfg.Data.EconomicDir())
	if err != nil {
		t.Fatal(err)
	}

	history := models.History{
		{Date: "2024-01-01", Index: models.IndexCOLCAP, Value: 100},
		{Date: "2024-01-02", Index: models.IndexCOLCAP, Value: 101},
		{Date: "2024-01-03", Index: models.IndexCOLCAP, Value: 103.02},
		{Date: "2024-01-04", Index: models.IndexCOLCAP, Value: 106.1106},
	}
	if err := econ.WriteJSON(economic.HistoricalFile, history); err != nil {
		t.Fatal(err)
	}

	runStage(t, config.StageCorrelator, cfg)

	server := dashboard.New(store.At(cfg.Data.ResultsDir()), store.At(cfg.Data.AnalysisDir()), logger.Nop())

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/correlations", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from /api/correlations, got %d: %s", rec.Code, rec.Body.String())
	}

	var result models.CorrelationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Invalid correlation JSON: %v", err)
	}

	if result.Period.Days != 4 || result.Period.Start != "2024-01-01" || result.Period.End != "2024-01-04" {
		t.Errorf("Unexpected period %+v", result.Period)
	}

	if len(result.Correlations) != 4 {
		t.Errorf("Expected 4 topic correlations, got %d", len(result.Correlations))
	}

	if r := result.Correlations["economia"]; math.Abs(r-1) > 1e-9 {
		t.Errorf("Expected economia correlation 1, got %v", r)
	}

	if result.RunID == "" {
		t.Error("Expected a run id")
	}

	last := result.Insights[len(result.Insights)-1]
	if last.Topic != models.GeneralTopic || last.Text != "Promedio de 2.0 noticias diarias en el período analizado." {
		t.Errorf("Unexpected general insight %+v", last)
	}
}

func TestPipeline_ReprocessingIsIdempotent(t *testing.T) {
	cfg := config.Default()
	cfg.Data.BaseDir = t.TempDir()

	raw, err := store.Open(cfg.Data.RawDir())
	if err != nil {
		t.Fatal(err)
	}

	doc := models.RawArticle{
		Title:     "Capturado sicario en Medellín",
		Summary:   "<p>La policía reportó el homicidio y la captura.</p>",
		Published: "2024-02-10T08:00:00-05:00",
	}
	if err := raw.WriteJSON("rss_x.json", doc); err != nil {
		t.Fatal(err)
	}

	runStage(t, config.StageProcessor, cfg)
	runStage(t, config.StageAnalyzer, cfg)

	analysis := store.At(cfg.Data.AnalysisDir())

	first, err := analysis.ReadFile("daily_counts.json")
	if err != nil {
		t.Fatal(err)
	}

	runStage(t, config.StageProcessor, cfg)
	runStage(t, config.StageAnalyzer, cfg)

	second, err := analysis.ReadFile("daily_counts.json")
	if err != nil {
		t.Fatal(err)
	}

	if string(first) != string(second) {
		t.Errorf("Counts changed on rerun:\n%s\n%s", first, second)
	}

	var counts models.DailyTopicCounts
	if err := json.Unmarshal(first, &counts); err != nil {
		t.Fatal(err)
	}

	if counts.Count("2024-02-10", "seguridad") != 1 {
		t.Errorf("Expected one seguridad article, got %v", counts)
	}
}
