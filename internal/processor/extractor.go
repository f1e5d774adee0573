package processor

import (
	"html"
	"strings"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"colnews/internal/models"
	"colnews/pkg/utils"
)

// Extractor turns HTML fragments and pages into plain text.
type Extractor struct {
	strict *bluemonday.Policy
}

// NewExtractor creates an extractor with a strip-everything policy.
func NewExtractor() *Extractor {
	return &Extractor{strict: bluemonday.StrictPolicy()}
}

// CleanText strips every tag from s, decodes entities and collapses whitespace.
// Entities are decoded before stripping too so escaped markup is removed as markup.
func (e *Extractor) CleanText(s string) string {
	if s == "" {
		return ""
	}

	text := e.strict.Sanitize(html.UnescapeString(s))

	return utils.NormalizeWhitespace(html.UnescapeString(text))
}

// ExtractPage returns the main text of a full HTML page: readability first,
// then the page's paragraphs, then the whole page stripped.
func (e *Extractor) ExtractPage(page string) string {
	trimmed := strings.TrimSpace(page)
	if trimmed == "" {
		return ""
	}

	if !strings.Contains(trimmed, "<") {
		return e.CleanText(trimmed)
	}

	if article, err := readability.FromReader(strings.NewReader(trimmed), nil); err == nil {
		var buf strings.Builder
		if err := article.RenderText(&buf); err == nil {
			if text := utils.NormalizeWhitespace(buf.String()); text != "" {
				return text
			}
		}
	}

	if text := paragraphs(trimmed); text != "" {
		return text
	}

	return e.CleanText(trimmed)
}

// ArticleText picks the first populated HTML source of a raw article
// (summary, then html, then content) and renders it as text.
func (e *Extractor) ArticleText(a *models.RawArticle) string {
	switch {
	case strings.TrimSpace(a.Summary) != "":
		return e.CleanText(a.Summary)
	case strings.TrimSpace(a.HTML) != "":
		return e.ExtractPage(a.HTML)
	default:
		return e.CleanText(a.ContentString())
	}
}

func paragraphs(page string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return ""
	}

	var parts []string

	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := utils.NormalizeWhitespace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})

	return strings.Join(parts, " ")
}
