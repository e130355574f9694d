// Package entity defines the core domain entities and validation logic for
// the ingestion pipeline: sources, the articles discovered from them, and
// the persisted control block backing each source's scheduler instance.
package entity

import "time"

// ArticleStatus is the lifecycle status of an article. PENDING_FETCH and
// CONTENT_FETCHED are non-terminal; every other value is terminal and an
// article in a terminal status is never reprocessed.
type ArticleStatus string

const (
	StatusPendingFetch       ArticleStatus = "PENDING_FETCH"
	StatusContentFetched     ArticleStatus = "CONTENT_FETCHED"
	StatusProcessed          ArticleStatus = "PROCESSED"
	StatusSkippedPDF         ArticleStatus = "SKIPPED_PDF"
	StatusFetchFailed        ArticleStatus = "FETCH_FAILED"
	StatusRenderFailed       ArticleStatus = "RENDER_FAILED"
	StatusAIAnalysisFailed   ArticleStatus = "AI_ANALYSIS_FAILED"
	StatusEmbeddingFailed    ArticleStatus = "EMBEDDING_FAILED"
	StatusBlobUploadFailed   ArticleStatus = "BLOB_UPLOAD_FAILED"
)

// Terminal reports whether the status is terminal (not PENDING_FETCH or
// CONTENT_FETCHED).
func (s ArticleStatus) Terminal() bool {
	return s != StatusPendingFetch && s != StatusContentFetched
}

// Completeness ∈ {COMPLETE, PARTIAL_USEFUL, PARTIAL_USELESS}.
type Completeness string

const (
	CompletenessComplete       Completeness = "COMPLETE"
	CompletenessPartialUseful  Completeness = "PARTIAL_USEFUL"
	CompletenessPartialUseless Completeness = "PARTIAL_USELESS"
)

// ContentQuality ∈ {OK, LOW_QUALITY, JUNK}.
type ContentQuality string

const (
	ContentQualityOK    ContentQuality = "OK"
	ContentQualityLow   ContentQuality = "LOW_QUALITY"
	ContentQualityJunk  ContentQuality = "JUNK"
)

// Analysis holds the structured output of enrichment step 2 (LLM analysis).
type Analysis struct {
	Language          string
	PrimaryLocation   string
	Completeness      Completeness
	ContentQuality    ContentQuality
	EventSummaryPoints []string
	ThematicKeywords   []string
	TopicTags          []string
	KeyEntities        []string
	ContentFocus       []string
}

// Article is one URL discovered from a source.
type Article struct {
	ID          int64
	SourceID    int64
	URL         string
	Title       string
	PublishDate *time.Time

	Status      ArticleStatus
	UsedBrowser bool

	Analysis

	// ExtractedText is the readability-extracted body text; held in memory
	// during enrichment, persisted to the blob store (not the row) in step 3b.
	ExtractedText string

	Embedding     []float32
	ContentBlobKey string

	FailReason  string
	ProcessedAt *time.Time
	CreatedAt   time.Time
}

// IsPDF reports whether the article URL is a PDF, case-insensitively, per
// spec §8 ("Article URL ending .PDF (uppercase) is treated as PDF").
func (a *Article) IsPDF() bool {
	return hasSuffixFold(a.URL, ".pdf")
}

func hasSuffixFold(s, suffix string) bool {
	if len(s) < len(suffix) {
		return false
	}
	tail := s[len(s)-len(suffix):]
	if len(tail) != len(suffix) {
		return false
	}
	for i := range tail {
		a, b := tail[i], suffix[i]
		if 'A' <= a && a <= 'Z' {
			a += 'a' - 'A'
		}
		if 'A' <= b && b <= 'Z' {
			b += 'a' - 'A'
		}
		if a != b {
			return false
		}
	}
	return true
}

// EligibleForEnrichment implements the step-0 select filter: processedAt is
// null, failReason is empty, and publishDate is within the last 48h (or
// absent — a missing publish date does not exclude the article).
func (a *Article) EligibleForEnrichment(now time.Time) bool {
	if a.ProcessedAt != nil {
		return false
	}
	if a.FailReason != "" {
		return false
	}
	if a.PublishDate != nil && a.PublishDate.Before(now.Add(-48*time.Hour)) {
		return false
	}
	return true
}
