// Package analyzer implements enrichment step 2 (spec §4.6): calling a
// configured LLM to produce a structured Analysis for one article's text.
// Grounded on the teacher's internal/infra/summarizer package (Claude/OpenAI
// adapters with circuit breaker + retry), repurposed from free-text
// Japanese summarization to schema-constrained JSON extraction.
package analyzer

import (
	"context"
	"errors"

	"feedmill/internal/domain/entity"
)

// ErrEmptyResponse indicates the LLM returned no usable content.
var ErrEmptyResponse = errors.New("analyzer: empty response from model")

// ErrInvalidSchema indicates the LLM's response did not parse into the
// analysis schema (spec §4.6).
var ErrInvalidSchema = errors.New("analyzer: response did not match analysis schema")

// Analyzer produces a structured Analysis from article text.
type Analyzer interface {
	Analyze(ctx context.Context, articleText string) (entity.Analysis, error)
}
