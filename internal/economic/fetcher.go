package economic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"colnews/internal/logger"
	"colnews/internal/models"
	"colnews/internal/store"
)

// HistoricalFile is the date-sorted COLCAP series read by the correlator.
const HistoricalFile = "colcap_historical.json"

const dateLayout = "2006-01-02"

const colcapPrompt = `Busca el valor actual del índice COLCAP de la Bolsa de Valores de Colombia.

Responde ÚNICAMENTE con un JSON en este formato exacto, sin explicaciones adicionales:
{"colcap": 1234.56, "fecha": "2025-12-17", "fuente": "nombre de la fuente"}

Si no puedes encontrar el valor exacto, responde:
{"colcap": null, "error": "razón"}`

const usdCOPPrompt = `Busca la tasa de cambio actual del dólar estadounidense a peso colombiano (USD/COP).

Responde ÚNICAMENTE con un JSON en este formato exacto:
{"usd_cop": 4150.25, "fecha": "2025-12-17"}

Si no puedes encontrar el valor, responde:
{"usd_cop": null, "error": "razón"}`

// usdCOPMaxTokens is the smaller output budget of the exchange-rate prompt.
const usdCOPMaxTokens = 150

type colcapReply struct {
	COLCAP *float64 `json:"colcap"`
	Date   string   `json:"fecha"`
	Source string   `json:"fuente"`
	Error  string   `json:"error"`
}

type usdCOPReply struct {
	USDCOP *float64 `json:"usd_cop"`
	Date   string   `json:"fecha"`
	Error  string   `json:"error"`
}

// Fetcher writes the daily COLCAP point, the historical series and the USD/COP rate.
type Fetcher struct {
	gen            Generator
	dir            *store.Dir
	logger         *logger.Logger
	now            func() time.Time
	colcapFallback float64
	usdFallback    float64
	fetchUSDCOP    bool
}

// Options configures a Fetcher.
type Options struct {
	COLCAPFallback float64
	USDCOPFallback float64
	FetchUSDCOP    bool
}

// NewFetcher creates a fetcher writing into dir. gen may be nil, in which case every lookup falls back.
func NewFetcher(gen Generator, dir *store.Dir, opts Options, log *logger.Logger) *Fetcher {
	return &Fetcher{
		gen:            gen,
		dir:            dir,
		logger:         log,
		now:            time.Now,
		colcapFallback: opts.COLCAPFallback,
		usdFallback:    opts.USDCOPFallback,
		fetchUSDCOP:    opts.FetchUSDCOP,
	}
}

// RunOnce fetches COLCAP and, when enabled, the exchange rate.
func (f *Fetcher) RunOnce(ctx context.Context) error {
	if _, err := f.FetchCOLCAP(ctx); err != nil {
		return err
	}

	if !f.fetchUSDCOP {
		return nil
	}

	_, err := f.FetchExchangeRate(ctx)

	return err
}

// FetchCOLCAP looks up today's COLCAP value, falling back to the last known value
// (or the configured default), then writes colcap_<date>.json and upserts the history.
// Lookup failures fall back. An unreadable history is returned as an error and left unchanged.
func (f *Fetcher) FetchCOLCAP(ctx context.Context) (models.EconomicDataPoint, error) {
	history, err := f.LoadHistory()
	if err != nil {
		return models.EconomicDataPoint{}, fmt.Errorf("failed to read historical series: %w", err)
	}

	value, source := f.lookupCOLCAP(ctx), models.SourceGemini
	if value == nil {
		source = models.SourceFallback
		fallback := f.colcapFallback

		if last, ok := history.Last(); ok {
			fallback = last.Value
		}

		value = &fallback
		f.logger.Info("using COLCAP fallback", "value", fallback)
	}

	now := f.now()
	point := models.EconomicDataPoint{
		Date:      now.Format(dateLayout),
		Index:     models.IndexCOLCAP,
		Value:     *value,
		Source:    source,
		Timestamp: now,
	}

	if err := f.dir.WriteJSON("colcap_"+point.Date+".json", point); err != nil {
		return point, fmt.Errorf("failed to write daily point: %w", err)
	}

	history = history.Upsert(point)
	if err := f.dir.WriteJSON(HistoricalFile, history); err != nil {
		return point, fmt.Errorf("failed to write historical series: %w", err)
	}

	f.logger.Info("COLCAP stored", "date", point.Date, "value", point.Value, "source", source, "history", len(history))

	return point, nil
}

// FetchExchangeRate looks up USD/COP and writes economic_<date>.json.
func (f *Fetcher) FetchExchangeRate(ctx context.Context) (models.ExchangeRate, error) {
	source := models.SourceGemini
	value := f.usdFallback

	var reply usdCOPReply
	if err := f.lookup(ctx, usdCOPPrompt, usdCOPMaxTokens, &reply); err != nil {
		f.logger.Warn("USD/COP lookup failed", "error", err)

		source = models.SourceFallback
	} else if reply.USDCOP == nil || *reply.USDCOP == 0 {
		f.logger.Warn("USD/COP not available", "reason", reply.Error)

		source = models.SourceFallback
	} else {
		value = *reply.USDCOP
	}

	now := f.now()
	rate := models.ExchangeRate{
		Date:      now.Format(dateLayout),
		USDCOP:    value,
		Source:    source,
		Timestamp: now,
	}

	if err := f.dir.WriteJSON("economic_"+rate.Date+".json", rate); err != nil {
		return rate, fmt.Errorf("failed to write exchange rate: %w", err)
	}

	f.logger.Info("USD/COP stored", "date", rate.Date, "value", value, "source", source)

	return rate, nil
}

// LoadHistory reads the historical series. A missing file yields an empty series.
func (f *Fetcher) LoadHistory() (models.History, error) {
	var history models.History

	err := f.dir.ReadJSON(HistoricalFile, &history)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}

	return history, err
}

// lookupCOLCAP returns nil when no usable value was obtained.
func (f *Fetcher) lookupCOLCAP(ctx context.Context) *float64 {
	var reply colcapReply
	if err := f.lookup(ctx, colcapPrompt, 0, &reply); err != nil {
		f.logger.Warn("COLCAP lookup failed", "error", err)

		return nil
	}

	if reply.COLCAP == nil || *reply.COLCAP == 0 {
		f.logger.Warn("COLCAP not available", "reason", reply.Error)

		return nil
	}

	f.logger.Info("COLCAP obtained", "value", *reply.COLCAP, "reported_source", reply.Source)

	return reply.COLCAP
}

func (f *Fetcher) lookup(ctx context.Context, prompt string, maxTokens int, v any) error {
	if f.gen == nil {
		return ErrNoAPIKey
	}

	return LookupJSON(ctx, f.gen, prompt, maxTokens, v)
}
