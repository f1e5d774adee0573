package fetcher

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"colnews/internal/config"
	"colnews/internal/logger"
	"colnews/internal/models"
	"colnews/internal/store"
	"colnews/pkg/dedup"
	"colnews/pkg/utils"
)

// CrawlPrefix prefixes documents written by the Common Crawl fetcher.
const CrawlPrefix = "cc"

// CrawlSource is the source tag of Common Crawl records.
const CrawlSource = "common_crawl"

// cdxTimestampLayout is the 14-digit capture timestamp used by the CDX index.
const cdxTimestampLayout = "20060102150405"

// Common Crawl errors.
var (
	ErrMalformedRecord = errors.New("malformed WARC record")
	ErrInvalidRange    = errors.New("invalid record offset or length")
)

// skippedExtensions are URL suffixes that never hold article HTML.
var skippedExtensions = []string{
	".txt", ".jpg", ".png", ".gif", ".jpeg", ".pdf", ".css", ".js", ".svg",
	".mp4", ".webp", ".ico", ".xml", ".json",
}

// CrawlIndex is one entry of collinfo.json.
type CrawlIndex struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	CDXAPI string `json:"cdx-api"`
}

// CDXRecord is one line of a CDX index query.
type CDXRecord struct {
	URLKey    string `json:"urlkey"`
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
	MIME      string `json:"mime"`
	Status    string `json:"status"`
	Digest    string `json:"digest"`
	Length    string `json:"length"`
	Offset    string `json:"offset"`
	Filename  string `json:"filename"`
}

// WARCRecord is a downloaded response record split into its three sections.
type WARCRecord struct {
	WARCHeader string
	HTTPHeader string
	Body       string
}

// CrawlArticle is the text extracted from a crawled page.
type CrawlArticle struct {
	Title string
	Text  string
	URL   string
}

// CommonCrawl searches the Common Crawl index for target domains and stores extracted articles.
type CommonCrawl struct {
	scraper *Scraper
	limiter *rate.Limiter
	staging *store.Dir
	raw     *store.Dir
	logger  *logger.Logger
	now     func() time.Time
	cfg     config.CommonCrawlConfig
}

// NewCommonCrawl creates a Common Crawl fetcher. staging holds cc_*.json records, raw is the
// processor's input directory.
func NewCommonCrawl(cfg config.CommonCrawlConfig, scraper *Scraper, staging, raw *store.Dir, log *logger.Logger) *CommonCrawl {
	limit := rate.Inf
	if cfg.RequestDelayMs > 0 {
		limit = rate.Every(time.Duration(cfg.RequestDelayMs) * time.Millisecond)
	}

	return &CommonCrawl{
		cfg:     cfg,
		scraper: scraper,
		limiter: rate.NewLimiter(limit, 1),
		staging: staging,
		raw:     raw,
		logger:  log,
		now:     time.Now,
	}
}

// Indexes returns the newest MaxIndexes crawl indexes.
func (c *CommonCrawl) Indexes(ctx context.Context) ([]CrawlIndex, error) {
	body, err := c.scraper.Fetch(ctx, strings.TrimRight(c.cfg.IndexBaseURL, "/")+"/collinfo.json", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch collinfo: %w", err)
	}

	var indexes []CrawlIndex
	if err := json.Unmarshal(body, &indexes); err != nil {
		return nil, fmt.Errorf("failed to parse collinfo: %w", err)
	}

	if c.cfg.MaxIndexes > 0 && len(indexes) > c.cfg.MaxIndexes {
		indexes = indexes[:c.cfg.MaxIndexes]
	}

	return indexes, nil
}

// Search queries one index for pages under domain and keeps article-like HTML captures.
func (c *CommonCrawl) Search(ctx context.Context, index, domain string, limit int) ([]CDXRecord, error) {
	q := url.Values{}
	q.Set("url", domain+"/*")
	q.Set("output", "json")
	q.Set("limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s/%s-index?%s", strings.TrimRight(c.cfg.IndexBaseURL, "/"), index, q.Encode())

	body, err := c.scraper.Fetch(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s in %s: %w", domain, index, err)
	}

	return ParseCDX(body), nil
}

// ParseCDX decodes newline-delimited CDX JSON, dropping malformed lines and non-article captures.
func ParseCDX(body []byte) []CDXRecord {
	var records []CDXRecord

	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)

	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec CDXRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}

		if IsArticleCapture(rec) {
			records = append(records, rec)
		}
	}

	return records
}

// IsArticleCapture reports whether a capture looks like an HTML article page.
func IsArticleCapture(rec CDXRecord) bool {
	if rec.URL == "" || rec.Filename == "" {
		return false
	}

	if rec.Status != "" && rec.Status != "200" {
		return false
	}

	if rec.MIME != "" && !strings.Contains(rec.MIME, "html") {
		return false
	}

	u := strings.ToLower(rec.URL)
	if strings.Contains(u, "robots.txt") {
		return false
	}

	if parsed, err := url.Parse(u); err == nil {
		ext := path.Ext(parsed.Path)
		for _, skip := range skippedExtensions {
			if ext == skip {
				return false
			}
		}
	}

	return strings.Count(u, "/") >= 4
}

// DownloadRecord fetches one gzip member from the WARC file with a range request.
func (c *CommonCrawl) DownloadRecord(ctx context.Context, rec CDXRecord) (*WARCRecord, error) {
	offset, err := strconv.ParseInt(rec.Offset, 10, 64)
	if err != nil || offset < 0 {
		return nil, fmt.Errorf("%w: offset %q", ErrInvalidRange, rec.Offset)
	}

	length, err := strconv.ParseInt(rec.Length, 10, 64)
	if err != nil || length <= 0 {
		return nil, fmt.Errorf("%w: length %q", ErrInvalidRange, rec.Length)
	}

	endpoint := strings.TrimRight(c.cfg.DataBaseURL, "/") + "/" + strings.TrimLeft(rec.Filename, "/")
	headers := map[string]string{
		"Range": fmt.Sprintf("bytes=%d-%d", offset, offset+length-1),
	}

	body, err := c.scraper.Fetch(ctx, endpoint, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to download record: %w", err)
	}

	return DecodeWARC(body)
}

// DecodeWARC gunzips a single record and splits WARC headers, HTTP headers and payload.
func DecodeWARC(compressed []byte) (*WARCRecord, error) {
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip member: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress record: %w", err)
	}

	parts := strings.SplitN(strings.ToValidUTF8(string(raw), ""), "\r\n\r\n", 3)
	if len(parts) < 3 {
		return nil, ErrMalformedRecord
	}

	return &WARCRecord{
		WARCHeader: parts[0],
		HTTPHeader: parts[1],
		Body:       parts[2],
	}, nil
}

// ExtractArticle pulls the page title and paragraph text out of an HTML payload.
// It returns nil when the page carries less than minChars of paragraph text.
func ExtractArticle(html, pageURL string, minChars, maxChars int) *CrawlArticle {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	title := utils.NormalizeWhitespace(doc.Find("title").First().Text())

	var paragraphs []string

	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := utils.NormalizeWhitespace(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	text := strings.Join(paragraphs, " ")
	if utils.RuneLen(text) < minChars {
		return nil
	}

	if maxChars > 0 {
		text = utils.Truncate(text, maxChars)
	}

	return &CrawlArticle{Title: title, Text: text, URL: pageURL}
}

// FetchAll crawls IndexesPerRun indexes for every target domain, then syncs new records into raw.
// It returns the number of new crawl records.
func (c *CommonCrawl) FetchAll(ctx context.Context) (int, error) {
	indexes, err := c.Indexes(ctx)
	if err != nil {
		return 0, err
	}

	if len(indexes) == 0 {
		c.logger.Warn("no crawl indexes available")

		return 0, nil
	}

	if c.cfg.IndexesPerRun > 0 && len(indexes) > c.cfg.IndexesPerRun {
		indexes = indexes[:c.cfg.IndexesPerRun]
	}

	total := 0

	for _, idx := range indexes {
		log := c.logger.With("index", idx.ID)
		log.Info("processing crawl index")

		for _, domain := range c.cfg.Domains {
			if ctx.Err() != nil {
				return total, ctx.Err()
			}

			results, err := c.Search(ctx, idx.ID, domain, c.cfg.SearchLimit)
			if err != nil {
				log.Error("index search failed", "domain", domain, "error", err)

				continue
			}

			log.Info("index search complete", "domain", domain, "captures", len(results))

			if c.cfg.PerDomain > 0 && len(results) > c.cfg.PerDomain {
				results = results[:c.cfg.PerDomain]
			}

			for _, rec := range results {
				saved, err := c.fetchCapture(ctx, idx.ID, domain, rec)
				if err != nil {
					if ctx.Err() != nil {
						return total, ctx.Err()
					}

					log.Warn("capture skipped", "url", rec.URL, "error", err)

					continue
				}

				if saved {
					total++
				}
			}
		}
	}

	c.logger.Info("common crawl cycle complete", "new_records", total)

	synced, err := c.SyncToRaw()
	if err != nil {
		return total, err
	}

	if synced > 0 {
		c.logger.Info("crawl records synced to raw", "count", synced)
	}

	return total, nil
}

// fetchCapture downloads, extracts and stores one capture unless it is already staged.
func (c *CommonCrawl) fetchCapture(ctx context.Context, index, domain string, rec CDXRecord) (bool, error) {
	name := dedup.FileName(CrawlPrefix, rec.URL)
	if c.staging.Exists(name) {
		return false, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}

	warc, err := c.DownloadRecord(ctx, rec)
	if err != nil {
		return false, err
	}

	article := ExtractArticle(warc.Body, rec.URL, c.cfg.MinTextChars, c.cfg.MaxTextChars)
	if article == nil {
		c.logger.Debug("capture has too little text", "url", rec.URL)

		return false, nil
	}

	record := models.CrawlRecord{
		Title:      article.Title,
		Text:       article.Text,
		URL:        rec.URL,
		Domain:     domain,
		CrawlIndex: index,
		Timestamp:  rec.Timestamp,
		FetchedAt:  c.now(),
		Source:     CrawlSource,
	}

	if err := c.staging.WriteJSON(name, record); err != nil {
		return false, err
	}

	c.logger.Info("capture stored", "title", utils.TruncateEllipsis(article.Title, 50))

	return true, nil
}

// SyncToRaw copies staged crawl records into the raw directory in RawArticle form,
// skipping names already present there. Unreadable records are logged and skipped.
func (c *CommonCrawl) SyncToRaw() (int, error) {
	names, err := c.staging.List("", ".json")
	if err != nil {
		return 0, err
	}

	copied := 0

	for _, name := range names {
		if !dedup.HasPrefix(name, CrawlPrefix) || c.raw.Exists(name) {
			continue
		}

		var rec models.CrawlRecord
		if err := c.staging.ReadJSON(name, &rec); err != nil {
			c.logger.Warn("crawl record unreadable", "file", name, "error", err)

			continue
		}

		if err := c.raw.WriteJSON(name, CrawlToRaw(rec, c.cfg.SummaryChars, c.now())); err != nil {
			return copied, err
		}

		copied++
	}

	return copied, nil
}

// CrawlToRaw converts a staged crawl record into the raw article shape.
func CrawlToRaw(rec models.CrawlRecord, summaryChars int, now time.Time) models.RawArticle {
	published := CDXTimeToISO(rec.Timestamp)
	if published == "" {
		published = now.UTC().Format(time.RFC3339)
	}

	summary := rec.Text
	if summaryChars > 0 {
		summary = utils.Truncate(summary, summaryChars)
	}

	return models.RawArticle{
		Title:     rec.Title,
		Link:      rec.URL,
		Summary:   summary,
		Published: published,
		Source:    CrawlSource + ":" + rec.Domain,
	}
}

// CDXTimeToISO converts a 14-digit capture timestamp to RFC 3339 UTC. Other
// non-empty values are returned unchanged for the processor's date parser.
func CDXTimeToISO(ts string) string {
	if ts == "" {
		return ""
	}

	t, err := time.Parse(cdxTimestampLayout, ts)
	if err != nil {
		return ts
	}

	return t.UTC().Format(time.RFC3339)
}
