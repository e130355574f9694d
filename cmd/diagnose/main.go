// Command diagnose fetches and decodes a single feed URL through the
// production Feed Parser and prints what it found, so an operator can check
// a candidate source before adding it to the sources table. Grounded on the
// teacher's scripts/diagnose_feeds.go (same intent: validate a feed is
// scrapable before it goes live), adapted from that script's DB-driven
// crawl-every-known-source sweep down to a single-URL onboarding check, and
// routed through this module's own internal/infra/feed.Fetcher/Decode
// (gofeed-backed, spec §4.1's RSS/Atom/RDF tolerance) instead of the
// teacher's bespoke RSS/Atom-only encoding/xml structs.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"feedmill/internal/infra/feed"
)

const fetchTimeout = 30 * time.Second

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <feed-url>\n", os.Args[0])
		os.Exit(2)
	}
	url := os.Args[1]

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	fetcher := feed.NewFetcher(&http.Client{Timeout: fetchTimeout})

	start := time.Now()
	entries, err := fetcher.Fetch(ctx, url)
	elapsed := time.Since(start)

	if err != nil {
		fmt.Fprintf(os.Stderr, "FAILED (%v): %s\n", elapsed, classify(err))
		os.Exit(1)
	}

	fmt.Printf("OK (%v): %d entries\n\n", elapsed, len(entries))
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		fmt.Fprintf(os.Stderr, "failed to print entries: %v\n", err)
		os.Exit(1)
	}
}

func classify(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out fetching feed: " + err.Error()
	case errors.Is(err, feed.ErrParseError):
		return "not a parseable RSS/Atom/RDF document: " + err.Error()
	case errors.Is(err, feed.ErrValidationError):
		return "feed parsed but no entry survived validation: " + err.Error()
	default:
		return err.Error()
	}
}
