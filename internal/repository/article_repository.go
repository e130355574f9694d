package repository

import (
	"context"
	"time"

	"feedmill/internal/domain/entity"
)

// ArticleRepository persists and queries the articles table.
type ArticleRepository interface {
	Get(ctx context.Context, id int64) (*entity.Article, error)
	GetBatch(ctx context.Context, ids []int64) ([]*entity.Article, error)

	// InsertNewReturningIDs inserts the given entries with
	// ON CONFLICT (url) DO NOTHING RETURNING id, returning only the ids of
	// rows that were actually inserted (spec §4.5 step 6).
	InsertNewReturningIDs(ctx context.Context, sourceID int64, entries []FeedEntryInsert) ([]int64, error)

	// MarkSkipped transitions an article straight to a terminal skip status
	// (e.g. SKIPPED_PDF) without touching analysis fields.
	MarkSkipped(ctx context.Context, id int64, status entity.ArticleStatus, failReason string, processedAt time.Time) error

	// MarkContentFetched records the outcome of enrichment step 1.
	MarkContentFetched(ctx context.Context, id int64, usedBrowser bool) error

	// MarkFailed transitions an article to a terminal failure status with a
	// human-readable reason. Idempotent: a second call against an already
	// terminal article is a no-op (status invariant enforced by callers
	// checking EligibleForEnrichment before acting, not by this method).
	MarkFailed(ctx context.Context, id int64, status entity.ArticleStatus, failReason string) error

	// CommitProcessed performs the single atomic step-4 update: analysis
	// fields, embedding key/blob key, status=PROCESSED, processedAt=now.
	CommitProcessed(ctx context.Context, article *entity.Article) error

	ExistsByURL(ctx context.Context, url string) (bool, error)
	ExistsByURLBatch(ctx context.Context, urls []string) (map[string]bool, error)
}

// FeedEntryInsert is one candidate row built from a parsed feed entry.
type FeedEntryInsert struct {
	URL         string
	Title       string
	PublishDate *string // RFC3339, nil if unparseable/absent
}
