package feed

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Decode parses a feed document and returns its normalized, validated
// entries in feed order (spec §4.1). gofeed already tolerates RSS, Atom,
// and RDF and promotes a lone item to a one-element list; the remaining
// decoding rules (UNKNOWN defaults, whitespace normalization, tracking
// parameter stripping, per-entry validation) are applied here.
func Decode(data []byte) ([]Entry, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseError, err)
	}

	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		title := cleanString(item.Title)
		if title == "" {
			title = unknownPlaceholder
		}

		link := item.Link
		if link == "" {
			link = item.GUID
		}
		link = cleanURL(cleanString(link))
		if link == "" {
			link = unknownPlaceholder
		}

		var pubDate *time.Time
		if item.PublishedParsed != nil {
			pubDate = item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			pubDate = item.UpdatedParsed
		}

		entry := Entry{Title: title, Link: link, ID: item.GUID, PublishDate: pubDate}
		if !valid(entry) {
			continue
		}
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return nil, ErrValidationError
	}
	return entries, nil
}

func valid(e Entry) bool {
	if e.Title == "" {
		return false
	}
	if _, err := url.Parse(e.Link); err != nil {
		return false
	}
	return true
}

// cleanString collapses whitespace runs to single spaces and trims the
// result. Idempotent: cleanString(cleanString(x)) == cleanString(x).
func cleanString(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var trackingParamPrefixes = []string{"utm_"}
var trackingParamNames = map[string]bool{"fbclid": true, "gclid": true}

// cleanURL strips tracking query parameters. Idempotent: reapplying it to
// an already-cleaned URL removes nothing further.
func cleanURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	q := u.Query()
	for key := range q {
		lower := strings.ToLower(key)
		if trackingParamNames[lower] {
			q.Del(key)
			continue
		}
		for _, prefix := range trackingParamPrefixes {
			if strings.HasPrefix(lower, prefix) {
				q.Del(key)
				break
			}
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
