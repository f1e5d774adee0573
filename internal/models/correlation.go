package models

import "time"

// GeneralTopic tags the insight that is not tied to a single topic.
const GeneralTopic = "general"

// Insight is a human readable observation about one topic.
type Insight struct {
	Correlation *float64 `json:"correlation,omitempty"`
	Topic       string   `json:"topic"`
	Text        string   `json:"insight"`
}

// Period describes the dates a result was computed over.
type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Days  int    `json:"days"`
}

// CorrelationResult is one persisted correlator run.
type CorrelationResult struct {
	Timestamp    time.Time          `json:"timestamp"`
	Correlations map[string]float64 `json:"correlations"`
	RunID        string             `json:"run_id"`
	Insights     []Insight          `json:"insights"`
	Period       Period             `json:"period"`
}
