// Package diag records per-run diagnostics: which model served each chunk,
// what the filters cut and why. The records exist for threshold calibration;
// nothing in the live pipeline reads them back.
//
// [Recorder] is the seam: the pipeline always talks to one, production wires
// the PostgreSQL implementation from the postgres sub-package, and everything
// else gets [Noop].
package diag

import (
	"context"
	"time"

	"github.com/longscribe/longscribe/internal/filter"
	"github.com/longscribe/longscribe/pkg/transcript"
)

// RunInfo describes one pipeline run.
type RunInfo struct {
	// Source labels the audio input, typically a file path.
	Source string

	// Preset is the preset name the run was resolved from.
	Preset string

	// TrackDuration is the total track length.
	TrackDuration time.Duration

	// Models is the fallback chain in preference order.
	Models []string
}

// ChunkOutcome records how one chunk fared.
type ChunkOutcome struct {
	Chunk transcript.Chunk

	// Model is the model that served the chunk, empty when the chain was
	// exhausted.
	Model string

	// WordCount is the number of words the chunk contributed before
	// filtering.
	WordCount int

	// Err is the chain-exhaustion error, nil on success.
	Err error
}

// Recorder persists diagnostics for one or more runs. Implementations must
// be safe for concurrent use; chunk outcomes arrive from the worker pool.
type Recorder interface {
	// StartRun opens a run record and returns its ID.
	StartRun(ctx context.Context, info RunInfo) (int64, error)

	// RecordChunk stores one chunk outcome.
	RecordChunk(ctx context.Context, runID int64, outcome ChunkOutcome) error

	// RecordVerdict stores one filter verdict, optionally with an embedding
	// of the affected text for later clustering.
	RecordVerdict(ctx context.Context, runID int64, v filter.Verdict, embedding []float32) error

	// FinishRun closes the run record. runErr is nil for a successful run.
	FinishRun(ctx context.Context, runID int64, runErr error) error

	// Close releases the recorder's resources.
	Close()
}

// Noop is a [Recorder] that discards everything.
type Noop struct{}

var _ Recorder = Noop{}

func (Noop) StartRun(context.Context, RunInfo) (int64, error) { return 0, nil }
func (Noop) RecordChunk(context.Context, int64, ChunkOutcome) error {
	return nil
}
func (Noop) RecordVerdict(context.Context, int64, filter.Verdict, []float32) error {
	return nil
}
func (Noop) FinishRun(context.Context, int64, error) error { return nil }
func (Noop) Close()                                        {}
