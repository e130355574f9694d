package repository

import "context"

// SimilarArticle is the result of a similarity search.
type SimilarArticle struct {
	ArticleID  int64
	Similarity float64
}

// ArticleEmbeddingRepository stores the single fixed-dimension embedding
// vector associated with an article (spec §3: "embedding vector (fixed
// dimension, e.g. 384)"; §9: "the vector column is fixed-width"). Unlike the
// teacher's multi-type/provider/model embedding table, the spec models one
// embedding per article, so the key is simply the article id.
type ArticleEmbeddingRepository interface {
	// Upsert stores or replaces the embedding for an article.
	Upsert(ctx context.Context, articleID int64, embedding []float32) error

	// FindByArticleID returns the embedding for an article, or nil if none
	// has been written yet.
	FindByArticleID(ctx context.Context, articleID int64) ([]float32, error)

	// SearchSimilar finds the articles whose embeddings are closest to the
	// given vector by cosine distance, most similar first.
	SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]SimilarArticle, error)

	DeleteByArticleID(ctx context.Context, articleID int64) error
}
