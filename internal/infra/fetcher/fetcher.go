package fetcher

import (
	"context"
	"net/url"
)

// Fetcher retrieves a URL's raw HTML. PlainFetcher and RenderFetcher both
// implement it; callers pick a strategy and feed the result into Extract.
type Fetcher interface {
	Fetch(ctx context.Context, urlStr string) ([]byte, error)
}

// FetchAndExtract runs a fetch strategy and extracts the article from its
// result (spec §4.3: "two strategies share the parser").
func FetchAndExtract(ctx context.Context, f Fetcher, urlStr string) (Article, error) {
	pageURL, err := url.Parse(urlStr)
	if err != nil {
		return Article{}, ErrInvalidURL
	}

	html, err := f.Fetch(ctx, urlStr)
	if err != nil {
		return Article{}, err
	}

	return Extract(html, pageURL)
}
