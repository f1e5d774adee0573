package processor

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// NormalizeDate parses a free-form publication date and renders it as RFC 3339,
// keeping the original offset. Empty or unparseable input yields now in UTC.
// Inputs without a zone are read as UTC.
func NormalizeDate(published string, now time.Time) string {
	published = strings.TrimSpace(published)
	if published == "" {
		return now.UTC().Format(time.RFC3339)
	}

	t, err := dateparse.ParseIn(published, time.UTC)
	if err != nil {
		return now.UTC().Format(time.RFC3339)
	}

	return t.Format(time.RFC3339)
}
