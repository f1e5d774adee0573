package utils

import "net/http"

// DefaultUserAgent identifies the pipeline to remote servers.
const DefaultUserAgent = "NewsAnalyzer/1.0 (Educational)"

// BuildHeaders creates HTTP headers with defaults. An empty userAgent uses DefaultUserAgent.
func BuildHeaders(userAgent string, customHeaders map[string]string) http.Header {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	headers := http.Header{}
	headers.Set("User-Agent", userAgent)
	headers.Set("Accept", "application/rss+xml, application/xml, application/json, text/html;q=0.9, */*;q=0.8")

	for key, value := range customHeaders {
		headers.Set(key, value)
	}

	return headers
}
