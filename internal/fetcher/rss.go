package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"colnews/internal/logger"
	"colnews/internal/models"
	"colnews/internal/store"
	"colnews/pkg/dedup"
)

// RSSPrefix prefixes raw documents written by the RSS fetcher.
const RSSPrefix = "rss"

// FeedStats summarises one feed fetch.
type FeedStats struct {
	Err     error
	URL     string
	Entries int
	Saved   int
	Skipped int
}

// RSSFetcher downloads configured feeds and stores unseen items in the raw directory.
type RSSFetcher struct {
	scraper *Scraper
	parser  *gofeed.Parser
	raw     *store.Dir
	logger  *logger.Logger
	now     func() time.Time
	feeds   []string
}

// NewRSSFetcher creates an RSS fetcher.
func NewRSSFetcher(feeds []string, scraper *Scraper, raw *store.Dir, log *logger.Logger) *RSSFetcher {
	return &RSSFetcher{
		feeds:   feeds,
		scraper: scraper,
		parser:  gofeed.NewParser(),
		raw:     raw,
		logger:  log,
		now:     time.Now,
	}
}

// FetchAll fetches every feed. A failing feed is logged and does not stop the others.
// It returns the number of new documents written.
func (f *RSSFetcher) FetchAll(ctx context.Context) (int, []FeedStats) {
	total := 0
	stats := make([]FeedStats, 0, len(f.feeds))

	for _, url := range f.feeds {
		if ctx.Err() != nil {
			break
		}

		st := f.FetchFeed(ctx, url)
		if st.Err != nil {
			f.logger.Error("feed fetch failed", "url", url, "error", st.Err)
		} else {
			f.logger.Info("feed fetched", "url", url, "entries", st.Entries, "saved", st.Saved, "skipped", st.Skipped)
		}

		total += st.Saved
		stats = append(stats, st)
	}

	f.logger.Info("rss cycle complete", "new_items", total, "feeds", len(f.feeds))

	return total, stats
}

// FetchFeed downloads and parses one feed.
func (f *RSSFetcher) FetchFeed(ctx context.Context, url string) FeedStats {
	st := FeedStats{URL: url}

	body, err := f.scraper.Fetch(ctx, url, nil)
	if err != nil {
		st.Err = fmt.Errorf("failed to download feed: %w", err)

		return st
	}

	feed, err := f.parser.Parse(bytes.NewReader(body))
	if err != nil {
		st.Err = fmt.Errorf("failed to parse feed: %w", err)

		return st
	}

	st.Entries = len(feed.Items)

	for _, item := range feed.Items {
		saved, err := f.saveItem(url, item)
		if err != nil {
			st.Err = err

			return st
		}

		if saved {
			st.Saved++
		} else {
			st.Skipped++
		}
	}

	return st
}

// saveItem writes one item unless its document already exists or it has no stable key.
func (f *RSSFetcher) saveItem(feedURL string, item *gofeed.Item) (bool, error) {
	key := item.Link
	if key == "" {
		key = item.GUID
	}

	if key == "" {
		f.logger.Debug("feed item without link or guid skipped", "feed", feedURL, "title", item.Title)

		return false, nil
	}

	name := dedup.FileName(RSSPrefix, key)
	if f.raw.Exists(name) {
		return false, nil
	}

	if err := f.raw.WriteJSON(name, ItemToRaw(feedURL, item, f.now())); err != nil {
		return false, err
	}

	return true, nil
}

// ItemToRaw maps a feed item onto a RawArticle.
func ItemToRaw(feedURL string, item *gofeed.Item, now time.Time) models.RawArticle {
	summary := item.Description
	if summary == "" {
		summary = item.Content
	}

	published := item.Published
	if published == "" {
		published = item.Updated
	}

	if published == "" {
		published = now.UTC().Format(time.RFC3339)
	}

	link := item.Link
	if link == "" {
		link = item.GUID
	}

	return models.RawArticle{
		Title:     item.Title,
		Link:      link,
		Summary:   summary,
		Published: published,
		Source:    feedURL,
	}
}
