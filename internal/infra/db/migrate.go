package db

import "database/sql"

// MigrateUp creates the schema described in spec §3 and §6: sources,
// articles (with status/analysis columns), the per-source state blob,
// article embeddings (pgvector, fixed 384 dimensions per spec §9), and
// dispatcher dead letters.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS sources (
    id                 SERIAL PRIMARY KEY,
    url                TEXT NOT NULL UNIQUE,
    name               TEXT NOT NULL,
    category           TEXT NOT NULL DEFAULT '',
    paywall            BOOLEAN NOT NULL DEFAULT FALSE,
    frequency_tier     SMALLINT NOT NULL DEFAULT 2,
    last_checked_at    TIMESTAMPTZ,
    do_initialized_at  TIMESTAMPTZ,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS articles (
    id                      SERIAL PRIMARY KEY,
    source_id               INTEGER NOT NULL REFERENCES sources(id),
    url                     TEXT NOT NULL UNIQUE,
    title                   TEXT NOT NULL DEFAULT '',
    publish_date            TIMESTAMPTZ,
    status                  TEXT NOT NULL DEFAULT 'PENDING_FETCH',
    used_browser            BOOLEAN NOT NULL DEFAULT FALSE,
    extracted_text          TEXT,
    language                TEXT NOT NULL DEFAULT '',
    primary_location        TEXT NOT NULL DEFAULT '',
    completeness            TEXT NOT NULL DEFAULT '',
    content_quality         TEXT NOT NULL DEFAULT '',
    event_summary_points    TEXT[] NOT NULL DEFAULT '{}',
    thematic_keywords       TEXT[] NOT NULL DEFAULT '{}',
    topic_tags              TEXT[] NOT NULL DEFAULT '{}',
    key_entities            TEXT[] NOT NULL DEFAULT '{}',
    content_focus           TEXT[] NOT NULL DEFAULT '{}',
    content_blob_key        TEXT NOT NULL DEFAULT '',
    fail_reason             TEXT NOT NULL DEFAULT '',
    processed_at            TIMESTAMPTZ,
    created_at              TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_articles_source_id ON articles(source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_status ON articles(status)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_publish_date ON articles(publish_date DESC)`,
		// unprocessed-but-not-failed rows are what the enrichment worker scans (spec §4.6 step 0)
		`CREATE INDEX IF NOT EXISTS idx_articles_pending_enrichment ON articles(publish_date) WHERE processed_at IS NULL AND fail_reason = ''`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS source_states (
    source_id         INTEGER PRIMARY KEY REFERENCES sources(id) ON DELETE CASCADE,
    url               TEXT NOT NULL,
    frequency_tier    SMALLINT NOT NULL,
    last_checked_at   TIMESTAMPTZ,
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	// pgvector extension. Ignore the error: it requires superuser on some
	// managed Postgres instances, and a missing extension surfaces loudly
	// the first time an embedding write is attempted.
	_, _ = db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`)

	// Fixed 384 dimensions per spec §9 ("the vector column is fixed-width").
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS article_embeddings (
    article_id  INTEGER PRIMARY KEY REFERENCES articles(id) ON DELETE CASCADE,
    embedding   vector(384) NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	// IVFFlat index for cosine-distance search. Ignored when pgvector is
	// unavailable, same reasoning as the extension above.
	_, _ = db.Exec(`
CREATE INDEX IF NOT EXISTS idx_article_embeddings_vector
    ON article_embeddings USING ivfflat (embedding vector_cosine_ops)
    WITH (lists = 100)`)

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS dead_letters (
    id           TEXT PRIMARY KEY,
    article_ids  BIGINT[] NOT NULL,
    attempts     INTEGER NOT NULL,
    last_error   TEXT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	return nil
}

// MigrateDown drops everything MigrateUp creates, in dependency order.
// Destructive: intended for test fixtures and local resets only.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS dead_letters CASCADE`,
		`DROP TABLE IF EXISTS article_embeddings CASCADE`,
		`DROP TABLE IF EXISTS source_states CASCADE`,
		`DROP TABLE IF EXISTS articles CASCADE`,
		`DROP TABLE IF EXISTS sources CASCADE`,
	}
	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
