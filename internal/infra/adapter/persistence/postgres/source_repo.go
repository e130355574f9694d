package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"feedmill/internal/domain/entity"
	"feedmill/internal/repository"
)

type SourceRepo struct{ db DBTX }

func NewSourceRepo(db DBTX) repository.SourceRepository {
	return &SourceRepo{db: db}
}

func scanSource(scanner interface {
	Scan(dest ...any) error
}) (*entity.Source, error) {
	var source entity.Source
	var tier int
	if err := scanner.Scan(
		&source.ID, &source.URL, &source.Name, &source.Category, &source.Paywall,
		&tier, &source.LastCheckedAt, &source.DoInitializedAt, &source.CreatedAt,
	); err != nil {
		return nil, err
	}
	source.FrequencyTier = entity.FrequencyTier(tier)
	return &source, nil
}

func (repo *SourceRepo) Get(ctx context.Context, id int64) (*entity.Source, error) {
	const query = `
SELECT id, url, name, category, paywall, frequency_tier, last_checked_at, do_initialized_at, created_at
FROM sources
WHERE id = $1`
	source, err := scanSource(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return source, nil
}

func (repo *SourceRepo) List(ctx context.Context) ([]*entity.Source, error) {
	const query = `
SELECT id, url, name, category, paywall, frequency_tier, last_checked_at, do_initialized_at, created_at
FROM sources
ORDER BY id ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sources := make([]*entity.Source, 0, 50)
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

func (repo *SourceRepo) Create(ctx context.Context, source *entity.Source) error {
	const query = `
INSERT INTO sources (url, name, category, paywall, frequency_tier, last_checked_at, do_initialized_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`
	return repo.db.QueryRowContext(ctx, query,
		source.URL, source.Name, source.Category, source.Paywall,
		int(source.FrequencyTier), source.LastCheckedAt, source.DoInitializedAt, source.CreatedAt,
	).Scan(&source.ID)
}

func (repo *SourceRepo) Update(ctx context.Context, source *entity.Source) error {
	const query = `
UPDATE sources SET
       url            = $1,
       name           = $2,
       category       = $3,
       paywall        = $4,
       frequency_tier = $5
WHERE id = $6`
	res, err := repo.db.ExecContext(ctx, query,
		source.URL, source.Name, source.Category, source.Paywall,
		int(source.FrequencyTier), source.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrSourceNotFound
	}
	return nil
}

func (repo *SourceRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM sources WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrSourceNotFound
	}
	return nil
}

func (repo *SourceRepo) TouchLastChecked(ctx context.Context, id int64, t time.Time) error {
	const query = `UPDATE sources SET last_checked_at = $1 WHERE id = $2`
	_, err := repo.db.ExecContext(ctx, query, t, id)
	return err
}

func (repo *SourceRepo) SetInitialized(ctx context.Context, id int64, t time.Time) error {
	const query = `UPDATE sources SET do_initialized_at = $1 WHERE id = $2`
	_, err := repo.db.ExecContext(ctx, query, t, id)
	return err
}

func (repo *SourceRepo) ClearInitialized(ctx context.Context, id int64) error {
	const query = `UPDATE sources SET do_initialized_at = NULL WHERE id = $1`
	_, err := repo.db.ExecContext(ctx, query, id)
	return err
}
