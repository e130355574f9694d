package fetcher

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// Article is the normalized result of extraction (spec §4.2).
type Article struct {
	Title         string
	Text          string
	PublishedTime *string
}

// Extract runs a readability-style main-content extractor over html and
// whitespace-normalizes the result (spec §4.2). Both title and text must
// be non-empty after normalization, or ErrNoArticleFound is returned.
func Extract(html []byte, pageURL *url.URL) (Article, error) {
	parsed, err := readability.FromReader(bytes.NewReader(html), pageURL)
	if err != nil {
		return Article{}, fmt.Errorf("%w: %v", ErrReadabilityFailed, err)
	}

	title := normalizeWhitespace(parsed.Title)
	text := normalizeWhitespace(parsed.TextContent)
	if text == "" {
		text = normalizeWhitespace(domCleanedText(parsed.Content))
	}

	if title == "" || text == "" {
		return Article{}, ErrNoArticleFound
	}

	article := Article{Title: title, Text: text}
	if !parsed.PublishedTime.IsZero() {
		formatted := parsed.PublishedTime.UTC().Format("2006-01-02T15:04:05Z")
		article.PublishedTime = &formatted
	}
	return article, nil
}

// domCleanedText is the fallback path when readability's own TextContent
// comes back empty but it still produced an HTML Content block. It parses
// that HTML with goquery, drops script/style/noscript nodes and
// presentation-only attributes readability leaves behind, and returns the
// remaining DOM's text.
func domCleanedText(htmlContent string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent
	}
	doc.Find("script, style, noscript").Remove()
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		s.RemoveAttr("style")
		s.RemoveAttr("class")
		s.RemoveAttr("id")
	})
	return doc.Text()
}

// normalizeWhitespace collapses runs of spaces/tabs, trims each line, and
// caps consecutive blank lines at two (spec §4.2).
func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blankRun := 0
	for _, line := range lines {
		line = strings.TrimSpace(strings.Join(strings.Fields(line), " "))
		if line == "" {
			blankRun++
			if blankRun > 2 {
				continue
			}
		} else {
			blankRun = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
