// Package postgres provides the PostgreSQL-backed [diag.Recorder]. The
// pgvector extension must be available in the target database; [Migrate]
// installs it automatically via CREATE EXTENSION IF NOT EXISTS.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlRuns = `
CREATE TABLE IF NOT EXISTS runs (
    id             BIGSERIAL    PRIMARY KEY,
    source         TEXT         NOT NULL,
    preset         TEXT         NOT NULL,
    duration_ns    BIGINT       NOT NULL,
    models         TEXT[]       NOT NULL DEFAULT '{}',
    started_at     TIMESTAMPTZ  NOT NULL DEFAULT now(),
    finished_at    TIMESTAMPTZ,
    error          TEXT         NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_runs_preset ON runs (preset);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs (started_at);
`

const ddlChunks = `
CREATE TABLE IF NOT EXISTS chunk_outcomes (
    run_id        BIGINT  NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
    chunk_index   INT     NOT NULL,
    start_ns      BIGINT  NOT NULL,
    end_ns        BIGINT  NOT NULL,
    model         TEXT    NOT NULL DEFAULT '',
    word_count    INT     NOT NULL DEFAULT 0,
    error         TEXT    NOT NULL DEFAULT '',
    PRIMARY KEY (run_id, chunk_index)
);

CREATE INDEX IF NOT EXISTS idx_chunk_outcomes_model
    ON chunk_outcomes (model);
`

// ddlVerdicts returns the verdict DDL with the embedding dimension
// substituted. The vector dimension is baked into the column type at schema
// creation time.
func ddlVerdicts(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS filter_verdicts (
    id         BIGSERIAL    PRIMARY KEY,
    run_id     BIGINT       NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
    kind       TEXT         NOT NULL,
    filter     TEXT         NOT NULL,
    reason     TEXT         NOT NULL,
    score      DOUBLE PRECISION NOT NULL,
    start_ns   BIGINT       NOT NULL,
    end_ns     BIGINT       NOT NULL,
    text       TEXT         NOT NULL,
    embedding  vector(%d)
);

CREATE INDEX IF NOT EXISTS idx_filter_verdicts_run_id
    ON filter_verdicts (run_id);

CREATE INDEX IF NOT EXISTS idx_filter_verdicts_filter
    ON filter_verdicts (filter);

CREATE INDEX IF NOT EXISTS idx_filter_verdicts_embedding
    ON filter_verdicts USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates or ensures all required tables and extensions exist. It is
// idempotent and safe to call on every start.
//
// embeddingDimensions must match the embedding model configured for verdict
// embeddings. Changing it after the first migration requires a manual schema
// update.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	statements := []string{
		ddlRuns,
		ddlChunks,
		ddlVerdicts(embeddingDimensions),
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("diag migrate: %w", err)
		}
	}
	return nil
}
