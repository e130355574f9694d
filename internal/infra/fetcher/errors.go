// Package fetcher retrieves article HTML via a plain HTTP GET or an
// external rendering service, and extracts clean article text from the
// result with a readability-style parser (spec §4.2, §4.3).
package fetcher

import "errors"

// Sentinel errors shared by both fetch strategies.
var (
	// ErrInvalidURL indicates the URL is malformed or uses an unsupported scheme.
	ErrInvalidURL = errors.New("fetcher: invalid URL or unsupported scheme")

	// ErrPrivateIP indicates the URL resolves to a private or loopback IP (SSRF prevention).
	ErrPrivateIP = errors.New("fetcher: url resolves to a private network")

	// ErrTooManyRedirects indicates the redirect chain exceeded the configured maximum.
	ErrTooManyRedirects = errors.New("fetcher: too many redirects")

	// ErrBodyTooLarge indicates the response body exceeded the size limit.
	ErrBodyTooLarge = errors.New("fetcher: response body too large")

	// ErrTimeout indicates the request exceeded its deadline.
	ErrTimeout = errors.New("fetcher: request timeout")

	// ErrFetchFailed is the general "FETCH_ERROR" kind from spec §4.3: the
	// HTTP call itself failed or returned a non-2xx status.
	ErrFetchFailed = errors.New("fetcher: fetch failed")

	// ErrValidationFailed is the "VALIDATION_ERROR" kind from spec §4.3: the
	// rendering service responded but its body was malformed.
	ErrValidationFailed = errors.New("fetcher: malformed service response")

	// ErrReadabilityFailed indicates the extractor found no article content,
	// or the document could not be parsed as HTML at all.
	ErrReadabilityFailed = errors.New("fetcher: content extraction failed")

	// ErrNoArticleFound is the "NO_ARTICLE_FOUND" kind from spec §4.2: the
	// extractor ran but title or text was empty after normalization.
	ErrNoArticleFound = errors.New("fetcher: no article content found")
)
