package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"feedmill/internal/domain/entity"
	"feedmill/internal/repository"

	"github.com/lib/pq"
)

// SourceStateRepo backs the per-source control block described in spec §6
// ("per-scraper key `state` -> SourceState blob"). The teacher has no
// equivalent: its sources table has no durable scheduler-state concept.
type SourceStateRepo struct{ db DBTX }

func NewSourceStateRepo(db DBTX) repository.SourceStateRepository {
	return &SourceStateRepo{db: db}
}

func (repo *SourceStateRepo) Get(ctx context.Context, sourceID int64) (*entity.SourceState, error) {
	const query = `
SELECT source_id, url, frequency_tier, last_checked_at
FROM source_states
WHERE source_id = $1`
	var s entity.SourceState
	var tier int
	err := repo.db.QueryRowContext(ctx, query, sourceID).
		Scan(&s.SourceID, &s.URL, &tier, &s.LastCheckedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	s.FrequencyTier = entity.FrequencyTier(tier)
	return &s, nil
}

func (repo *SourceStateRepo) Put(ctx context.Context, s *entity.SourceState) error {
	const query = `
INSERT INTO source_states (source_id, url, frequency_tier, last_checked_at, updated_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (source_id) DO UPDATE SET
    url             = EXCLUDED.url,
    frequency_tier  = EXCLUDED.frequency_tier,
    last_checked_at = EXCLUDED.last_checked_at,
    updated_at      = NOW()`
	_, err := repo.db.ExecContext(ctx, query, s.SourceID, s.URL, int(s.FrequencyTier), s.LastCheckedAt)
	if err != nil {
		return fmt.Errorf("Put: %w", err)
	}
	return nil
}

func (repo *SourceStateRepo) Delete(ctx context.Context, sourceID int64) error {
	const query = `DELETE FROM source_states WHERE source_id = $1`
	_, err := repo.db.ExecContext(ctx, query, sourceID)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

// DeadLetterRepo records bus messages the dispatcher gave up on (spec §4.8).
type DeadLetterRepo struct{ db DBTX }

func NewDeadLetterRepo(db DBTX) repository.DeadLetterRepository {
	return &DeadLetterRepo{db: db}
}

func (repo *DeadLetterRepo) Record(ctx context.Context, dl *entity.DeadLetter) error {
	const query = `
INSERT INTO dead_letters (id, article_ids, attempts, last_error, created_at)
VALUES ($1, $2, $3, $4, $5)`
	_, err := repo.db.ExecContext(ctx, query, dl.ID, pq.Array(dl.ArticleIDs), dl.Attempts, dl.LastError, dl.CreatedAt)
	if err != nil {
		return fmt.Errorf("Record: %w", err)
	}
	return nil
}

func (repo *DeadLetterRepo) List(ctx context.Context, limit int) ([]*entity.DeadLetter, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
SELECT id, article_ids, attempts, last_error, created_at
FROM dead_letters
ORDER BY created_at DESC
LIMIT $1`
	rows, err := repo.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]*entity.DeadLetter, 0, limit)
	for rows.Next() {
		var dl entity.DeadLetter
		if err := rows.Scan(&dl.ID, pq.Array(&dl.ArticleIDs), &dl.Attempts, &dl.LastError, &dl.CreatedAt); err != nil {
			return nil, fmt.Errorf("List: Scan: %w", err)
		}
		out = append(out, &dl)
	}
	return out, rows.Err()
}
