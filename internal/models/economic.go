package models

import (
	"sort"
	"time"
)

// Economic data sources.
const (
	SourceGemini   = "gemini"
	SourceFallback = "fallback"
	IndexCOLCAP    = "COLCAP"
)

// EconomicDataPoint is one daily value of an economic index.
type EconomicDataPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Date      string    `json:"date"`
	Index     string    `json:"index"`
	Source    string    `json:"source"`
	Value     float64   `json:"value"`
}

// ExchangeRate is one daily USD/COP observation.
type ExchangeRate struct {
	Timestamp time.Time `json:"timestamp"`
	Date      string    `json:"date"`
	Source    string    `json:"source"`
	USDCOP    float64   `json:"usd_cop"`
}

// History is a date-sorted series of index values.
type History []EconomicDataPoint

// Upsert replaces the point with the same date or appends it, keeping the series sorted.
func (h History) Upsert(p EconomicDataPoint) History {
	replaced := false

	for i := range h {
		if h[i].Date == p.Date {
			h[i] = p
			replaced = true

			break
		}
	}

	if !replaced {
		h = append(h, p)
	}

	sort.SliceStable(h, func(i, j int) bool { return h[i].Date < h[j].Date })

	return h
}

// Last returns the most recent point.
func (h History) Last() (EconomicDataPoint, bool) {
	if len(h) == 0 {
		return EconomicDataPoint{}, false
	}

	return h[len(h)-1], true
}

// ByDate indexes the series by date. Later duplicates win.
func (h History) ByDate() map[string]float64 {
	out := make(map[string]float64, len(h))
	for _, p := range h {
		out[p.Date] = p.Value
	}

	return out
}
