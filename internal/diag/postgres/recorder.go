package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/longscribe/longscribe/internal/diag"
	"github.com/longscribe/longscribe/internal/filter"
)

var _ diag.Recorder = (*Recorder)(nil)

// Recorder is the PostgreSQL-backed [diag.Recorder]. All operations are safe
// for concurrent use; the worker pool records chunk outcomes in parallel.
type Recorder struct {
	pool *pgxpool.Pool
}

// New connects to the database at dsn, registers pgvector types on every
// connection, and runs [Migrate].
func New(ctx context.Context, dsn string, embeddingDimensions int) (*Recorder, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("diag recorder: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("diag recorder: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("diag recorder: ping: %w", err)
	}
	if err := Migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("diag recorder: %w", err)
	}
	return &Recorder{pool: pool}, nil
}

// StartRun inserts a run row and returns its ID.
func (r *Recorder) StartRun(ctx context.Context, info diag.RunInfo) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO runs (source, preset, duration_ns, models)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		info.Source, info.Preset, int64(info.TrackDuration), info.Models,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("diag recorder: start run: %w", err)
	}
	return id, nil
}

// RecordChunk upserts one chunk outcome.
func (r *Recorder) RecordChunk(ctx context.Context, runID int64, o diag.ChunkOutcome) error {
	errText := ""
	if o.Err != nil {
		errText = o.Err.Error()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO chunk_outcomes (run_id, chunk_index, start_ns, end_ns, model, word_count, error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (run_id, chunk_index) DO UPDATE
		 SET model = EXCLUDED.model,
		     word_count = EXCLUDED.word_count,
		     error = EXCLUDED.error`,
		runID, o.Chunk.Index, int64(o.Chunk.Start), int64(o.Chunk.End),
		o.Model, o.WordCount, errText,
	)
	if err != nil {
		return fmt.Errorf("diag recorder: record chunk %d: %w", o.Chunk.Index, err)
	}
	return nil
}

// RecordVerdict inserts one filter verdict. The embedding may be nil.
func (r *Recorder) RecordVerdict(ctx context.Context, runID int64, v filter.Verdict, embedding []float32) error {
	var vec any
	if len(embedding) > 0 {
		vec = pgvector.NewVector(embedding)
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO filter_verdicts (run_id, kind, filter, reason, score, start_ns, end_ns, text, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		runID, v.Kind.String(), v.Filter, v.Reason, v.Score,
		int64(v.Start), int64(v.End), v.Text, vec,
	)
	if err != nil {
		return fmt.Errorf("diag recorder: record verdict: %w", err)
	}
	return nil
}

// FinishRun stamps the run row with its completion time and error, if any.
func (r *Recorder) FinishRun(ctx context.Context, runID int64, runErr error) error {
	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE runs SET finished_at = now(), error = $2 WHERE id = $1`,
		runID, errText,
	)
	if err != nil {
		return fmt.Errorf("diag recorder: finish run %d: %w", runID, err)
	}
	return nil
}

// Close releases the connection pool.
func (r *Recorder) Close() {
	r.pool.Close()
}
