package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"feedmill/internal/domain/entity"
	"feedmill/internal/repository"

	"github.com/lib/pq"
)

type ArticleRepo struct{ db DBTX }

func NewArticleRepo(db DBTX) repository.ArticleRepository {
	return &ArticleRepo{db: db}
}

func scanArticle(scanner interface {
	Scan(dest ...any) error
}) (*entity.Article, error) {
	var a entity.Article
	var status string
	if err := scanner.Scan(
		&a.ID, &a.SourceID, &a.URL, &a.Title, &a.PublishDate, &status, &a.UsedBrowser,
		&a.ExtractedText, &a.Language, &a.PrimaryLocation, &a.Completeness, &a.ContentQuality,
		pq.Array(&a.EventSummaryPoints), pq.Array(&a.ThematicKeywords), pq.Array(&a.TopicTags),
		pq.Array(&a.KeyEntities), pq.Array(&a.ContentFocus),
		&a.ContentBlobKey, &a.FailReason, &a.ProcessedAt, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	a.Status = entity.ArticleStatus(status)
	return &a, nil
}

const articleColumns = `
id, source_id, url, title, publish_date, status, used_browser,
extracted_text, language, primary_location, completeness, content_quality,
event_summary_points, thematic_keywords, topic_tags, key_entities, content_focus,
content_blob_key, fail_reason, processed_at, created_at`

func (repo *ArticleRepo) Get(ctx context.Context, id int64) (*entity.Article, error) {
	query := `SELECT` + articleColumns + ` FROM articles WHERE id = $1`
	a, err := scanArticle(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return a, nil
}

func (repo *ArticleRepo) GetBatch(ctx context.Context, ids []int64) ([]*entity.Article, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT` + articleColumns + ` FROM articles WHERE id = ANY($1)`
	rows, err := repo.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("GetBatch: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles := make([]*entity.Article, 0, len(ids))
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("GetBatch: Scan: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// InsertNewReturningIDs inserts candidate rows with ON CONFLICT (url) DO
// NOTHING RETURNING id, so only genuinely new articles are returned (spec
// §4.5 step 6: "insertion is the de-duplication point, not a pre-check").
func (repo *ArticleRepo) InsertNewReturningIDs(ctx context.Context, sourceID int64, entries []repository.FeedEntryInsert) ([]int64, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("InsertNewReturningIDs: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `
INSERT INTO articles (source_id, url, title, publish_date)
VALUES ($1, $2, $3, $4)
ON CONFLICT (url) DO NOTHING
RETURNING id`

	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		var id int64
		err := tx.QueryRowContext(ctx, query, sourceID, e.URL, e.Title, e.PublishDate).Scan(&id)
		if err == sql.ErrNoRows {
			continue // URL already existed, not a new article
		}
		if err != nil {
			return nil, fmt.Errorf("InsertNewReturningIDs: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("InsertNewReturningIDs: commit: %w", err)
	}
	return ids, nil
}

func (repo *ArticleRepo) MarkSkipped(ctx context.Context, id int64, status entity.ArticleStatus, failReason string, processedAt time.Time) error {
	const query = `UPDATE articles SET status = $1, fail_reason = $2, processed_at = $3 WHERE id = $4`
	_, err := repo.db.ExecContext(ctx, query, string(status), failReason, processedAt, id)
	if err != nil {
		return fmt.Errorf("MarkSkipped: %w", err)
	}
	return nil
}

func (repo *ArticleRepo) MarkContentFetched(ctx context.Context, id int64, usedBrowser bool) error {
	const query = `UPDATE articles SET status = $1, used_browser = $2 WHERE id = $3`
	_, err := repo.db.ExecContext(ctx, query, string(entity.StatusContentFetched), usedBrowser, id)
	if err != nil {
		return fmt.Errorf("MarkContentFetched: %w", err)
	}
	return nil
}

func (repo *ArticleRepo) MarkFailed(ctx context.Context, id int64, status entity.ArticleStatus, failReason string) error {
	const query = `UPDATE articles SET status = $1, fail_reason = $2 WHERE id = $3`
	_, err := repo.db.ExecContext(ctx, query, string(status), failReason, id)
	if err != nil {
		return fmt.Errorf("MarkFailed: %w", err)
	}
	return nil
}

// CommitProcessed performs the single atomic step-4 update described in
// spec §4.6: analysis fields, embedding blob key, status=PROCESSED,
// processedAt=now, in one statement so no partial write is observable.
func (repo *ArticleRepo) CommitProcessed(ctx context.Context, a *entity.Article) error {
	const query = `
UPDATE articles SET
       status               = $1,
       language             = $2,
       primary_location     = $3,
       completeness         = $4,
       content_quality      = $5,
       event_summary_points = $6,
       thematic_keywords    = $7,
       topic_tags           = $8,
       key_entities         = $9,
       content_focus        = $10,
       content_blob_key     = $11,
       processed_at         = $12
WHERE id = $13`
	_, err := repo.db.ExecContext(ctx, query,
		string(entity.StatusProcessed), a.Language, a.PrimaryLocation, a.Completeness, a.ContentQuality,
		pq.Array(a.EventSummaryPoints), pq.Array(a.ThematicKeywords), pq.Array(a.TopicTags),
		pq.Array(a.KeyEntities), pq.Array(a.ContentFocus),
		a.ContentBlobKey, a.ProcessedAt, a.ID,
	)
	if err != nil {
		return fmt.Errorf("CommitProcessed: %w", err)
	}
	return nil
}

func (repo *ArticleRepo) ExistsByURL(ctx context.Context, url string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM articles WHERE url = $1)`
	var exists bool
	err := repo.db.QueryRowContext(ctx, query, url).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ExistsByURL: %w", err)
	}
	return exists, nil
}

func (repo *ArticleRepo) ExistsByURLBatch(ctx context.Context, urls []string) (map[string]bool, error) {
	if len(urls) == 0 {
		return make(map[string]bool), nil
	}

	const query = `SELECT url FROM articles WHERE url = ANY($1)`
	rows, err := repo.db.QueryContext(ctx, query, pq.Array(urls))
	if err != nil {
		return nil, fmt.Errorf("ExistsByURLBatch: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]bool)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("ExistsByURLBatch: Scan: %w", err)
		}
		result[url] = true
	}
	return result, rows.Err()
}
