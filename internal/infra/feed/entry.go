// Package feed decodes RSS/Atom/RDF documents into normalized entries and
// fetches feed documents over HTTP with retry and circuit-breaker
// protection (spec §4.1).
package feed

import (
	"errors"
	"time"
)

// Entry is one normalized feed item: title, link, optional id, optional
// publish date (spec §4.1: "Produces an ordered sequence of entries with
// fields {title, link, id?, pubDate?}").
type Entry struct {
	Title       string
	Link        string
	ID          string
	PublishDate *time.Time
}

// ErrParseError indicates the document was not parseable feed XML at all.
var ErrParseError = errors.New("feed: document is not a parseable feed")

// ErrValidationError indicates the document parsed but no entry survived
// per-entry validation (spec §4.1: "Malformed entries are dropped, not
// raised... VALIDATION_ERROR (no entries survived)").
var ErrValidationError = errors.New("feed: no valid entries")

const unknownPlaceholder = "UNKNOWN"
