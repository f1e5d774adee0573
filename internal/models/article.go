// Package models defines the documents exchanged between pipeline stages.
package models

import (
	"encoding/json"
	"time"
)

// RawArticle is a fetched article as written by the RSS and Common Crawl fetchers.
type RawArticle struct {
	Title     string          `json:"title"`
	Link      string          `json:"link"`
	Summary   string          `json:"summary,omitempty"`
	HTML      string          `json:"html,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	Published string          `json:"published,omitempty"`
	Source    string          `json:"source,omitempty"`
}

// UnmarshalJSON accepts "url" as an alias of "link" for documents written by older fetchers.
func (a *RawArticle) UnmarshalJSON(data []byte) error {
	type plain RawArticle

	aux := struct {
		*plain
		URL string `json:"url"`
	}{plain: (*plain)(a)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if a.Link == "" {
		a.Link = aux.URL
	}

	return nil
}

// ContentString renders the raw content field as text. JSON strings are unquoted,
// anything else is returned verbatim.
func (a *RawArticle) ContentString() string {
	if len(a.Content) == 0 || string(a.Content) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(a.Content, &s); err == nil {
		return s
	}

	return string(a.Content)
}

// CleanArticle is the processor's plain-text rendition of a RawArticle.
type CleanArticle struct {
	ProcessedAt time.Time `json:"processed_at"`
	Title       string    `json:"title"`
	Text        string    `json:"text"`
	PublishDate string    `json:"publish_date"`
	Source      string    `json:"source"`
	Link        string    `json:"link"`
}

// CrawlRecord is an article staged by the Common Crawl fetcher before it is synced into raw.
type CrawlRecord struct {
	FetchedAt  time.Time `json:"fetched_at"`
	Title      string    `json:"title"`
	Text       string    `json:"text"`
	URL        string    `json:"url"`
	Domain     string    `json:"domain"`
	CrawlIndex string    `json:"crawl_index"`
	Timestamp  string    `json:"timestamp"`
	Source     string    `json:"source"`
}
