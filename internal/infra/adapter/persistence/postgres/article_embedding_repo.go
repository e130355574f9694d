package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"feedmill/internal/repository"

	"github.com/pgvector/pgvector-go"
)

// DefaultSearchTimeout bounds similarity search queries so a slow index scan
// cannot stall the caller indefinitely.
const DefaultSearchTimeout = 5 * time.Second

// ArticleEmbeddingRepo stores one fixed-dimension embedding per article
// (spec §9: "the vector column is fixed-width"), unlike the teacher's
// multi-type/provider/model table.
type ArticleEmbeddingRepo struct{ db DBTX }

func NewArticleEmbeddingRepo(db DBTX) repository.ArticleEmbeddingRepository {
	return &ArticleEmbeddingRepo{db: db}
}

func (repo *ArticleEmbeddingRepo) Upsert(ctx context.Context, articleID int64, embedding []float32) error {
	vector := pgvector.NewVector(embedding)
	const query = `
INSERT INTO article_embeddings (article_id, embedding, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (article_id) DO UPDATE SET
    embedding  = EXCLUDED.embedding,
    updated_at = NOW()`
	if _, err := repo.db.ExecContext(ctx, query, articleID, vector); err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

func (repo *ArticleEmbeddingRepo) FindByArticleID(ctx context.Context, articleID int64) ([]float32, error) {
	const query = `SELECT embedding FROM article_embeddings WHERE article_id = $1`
	var vector pgvector.Vector
	err := repo.db.QueryRowContext(ctx, query, articleID).Scan(&vector)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindByArticleID: %w", err)
	}
	return vector.Slice(), nil
}

func (repo *ArticleEmbeddingRepo) DeleteByArticleID(ctx context.Context, articleID int64) error {
	const query = `DELETE FROM article_embeddings WHERE article_id = $1`
	if _, err := repo.db.ExecContext(ctx, query, articleID); err != nil {
		return fmt.Errorf("DeleteByArticleID: %w", err)
	}
	return nil
}

// SearchSimilar ranks articles by cosine distance (<=>), most similar first.
func (repo *ArticleEmbeddingRepo) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]repository.SimilarArticle, error) {
	searchCtx, cancel := context.WithTimeout(ctx, DefaultSearchTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	vector := pgvector.NewVector(embedding)
	const query = `
SELECT article_id, 1 - (embedding <=> $1) AS similarity
FROM article_embeddings
ORDER BY embedding <=> $1
LIMIT $2`

	rows, err := repo.db.QueryContext(searchCtx, query, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("SearchSimilar: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]repository.SimilarArticle, 0, limit)
	for rows.Next() {
		var r repository.SimilarArticle
		if err := rows.Scan(&r.ArticleID, &r.Similarity); err != nil {
			return nil, fmt.Errorf("SearchSimilar: Scan: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
