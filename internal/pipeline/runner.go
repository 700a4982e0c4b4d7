// Package pipeline wires the full transcription flow: preset resolution,
// speech detection, chunk planning, parallel recognition with model
// fallback, overlap merging and hallucination filtering.
//
// The [Runner] is built once and can serve many runs. A run fails only when
// nothing useful can be produced: every VAD strategy broke down, no
// recognizer is available for the model chain, or every single chunk
// exhausted its fallbacks. Everything else degrades: failed chunks become
// gaps, a broken filter stage leaves the transcript unfiltered, and each
// degradation is surfaced in the [Report].
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/longscribe/longscribe/internal/chunk"
	"github.com/longscribe/longscribe/internal/diag"
	"github.com/longscribe/longscribe/internal/filter"
	"github.com/longscribe/longscribe/internal/invoke"
	"github.com/longscribe/longscribe/internal/merge"
	"github.com/longscribe/longscribe/internal/observe"
	"github.com/longscribe/longscribe/internal/preset"
	"github.com/longscribe/longscribe/internal/vad"
	"github.com/longscribe/longscribe/pkg/audio"
	"github.com/longscribe/longscribe/pkg/embeddings"
	"github.com/longscribe/longscribe/pkg/transcript"
)

// ErrAllChunksFailed is returned when no chunk produced any result.
var ErrAllChunksFailed = errors.New("pipeline: every chunk failed")

// Runner executes transcription runs. Construct with [NewRunner]; the zero
// value is not usable.
type Runner struct {
	registry invoke.Registry
	detector *vad.Detector
	scorer   filter.Scorer
	recorder diag.Recorder
	embedder embeddings.Provider
	metrics  *observe.Metrics
	merger   merge.Merger
}

// Option configures a [Runner].
type Option func(*Runner)

// WithDetector installs the speech detector. Without one, runs treat the
// whole track as speech.
func WithDetector(d *vad.Detector) Option {
	return func(r *Runner) { r.detector = d }
}

// WithScorer overrides the semantic filter's similarity scorer.
func WithScorer(s filter.Scorer) Option {
	return func(r *Runner) { r.scorer = s }
}

// WithRecorder installs a diagnostics recorder. The default is [diag.Noop].
func WithRecorder(rec diag.Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithVerdictEmbeddings makes the runner attach embeddings of dropped
// segment texts to recorded verdicts, for later clustering.
func WithVerdictEmbeddings(p embeddings.Provider) Option {
	return func(r *Runner) { r.embedder = p }
}

// WithMetrics attaches metric instrumentation.
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// NewRunner builds a Runner over the given recognizer registry.
func NewRunner(reg invoke.Registry, opts ...Option) *Runner {
	r := &Runner{
		registry: reg,
		recorder: diag.Noop{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Request describes one transcription run.
type Request struct {
	// Track is the audio to transcribe.
	Track *audio.Track

	// Source labels the input in logs and diagnostics, typically the file
	// path.
	Source string

	// Preset names the parameter bundle. Required.
	Preset preset.Name

	// Overrides replaces individual preset values.
	Overrides *preset.Overrides

	// Language is the expected language hint, empty for auto-detect.
	Language string

	// InitialPrompt biases decoding of the first chunk.
	InitialPrompt string
}

// Report collects everything about a run beyond the transcript itself.
type Report struct {
	// Params is the effective parameter set after preset resolution.
	Params preset.Params

	// Regions are the detected speech regions.
	Regions []transcript.SpeechRegion

	// Chunks is the planned chunk sequence.
	Chunks []transcript.Chunk

	// ChunkModels maps a chunk index to the model that served it. Failed
	// chunks are absent.
	ChunkModels map[int]string

	// Verdicts lists every filter decision of the run.
	Verdicts []filter.Verdict

	// Warnings lists non-fatal degradations, in occurrence order.
	Warnings []string

	// FailedChunks counts chunks whose fallback chain was exhausted.
	FailedChunks int
}

// Run executes one transcription run. See the package comment for the
// failure policy.
func (r *Runner) Run(ctx context.Context, req Request) (transcript.Transcript, *Report, error) {
	if req.Track == nil {
		return transcript.Transcript{}, nil, errors.New("pipeline: nil track")
	}
	total := req.Track.Duration()

	params, err := preset.Lookup(req.Preset)
	if err != nil {
		return transcript.Transcript{}, nil, fmt.Errorf("pipeline: %w", err)
	}
	params = req.Overrides.Apply(params)
	eff := preset.Resolve(params, total)

	report := &Report{Params: eff, ChunkModels: make(map[int]string)}
	slog.Info("run starting",
		"source", req.Source,
		"preset", req.Preset,
		"duration", total,
		"chunking", eff.UseChunking(total))

	// Speech regions.
	regions, detected, err := r.detectSpeech(ctx, req.Track, eff)
	if err != nil {
		return transcript.Transcript{}, report, err
	}
	report.Regions = regions

	// Chunk plan.
	chunks := chunk.Plan(total, regions, eff)
	report.Chunks = chunks

	// With VAD off or silent, the regions only describe where chunks may be
	// cut. The invoker must not treat them as confirmed speech, or a silent
	// track would count every chunk's empty result as a failure.
	speech := regions
	if !detected {
		speech = nil
	}

	// Recognition.
	inv, err := invoke.New(r.registry, eff, total, speech, invoke.Config{
		Language:      req.Language,
		InitialPrompt: req.InitialPrompt,
		Chain:         req.Overrides.Chain(),
		Metrics:       r.metrics,
	})
	if err != nil {
		return transcript.Transcript{}, report, fmt.Errorf("pipeline: %w", err)
	}

	runID := r.startRun(ctx, req, total, inv.Models())
	var runErr error
	defer func() {
		if err := r.recorder.FinishRun(ctx, runID, runErr); err != nil {
			slog.Warn("diagnostics finish failed", "error", err)
		}
	}()

	results, failed := r.transcribeChunks(ctx, req.Track, chunks, inv, runID, report)
	if ctx.Err() != nil {
		runErr = ctx.Err()
		return transcript.Transcript{}, report, runErr
	}
	if failed == len(chunks) {
		runErr = ErrAllChunksFailed
		return transcript.Transcript{}, report, runErr
	}
	report.FailedChunks = failed

	// Merge.
	mergeStart := time.Now()
	merged := r.merger.Merge(results, total)
	if r.metrics != nil {
		r.metrics.MergeDuration.Record(ctx, time.Since(mergeStart).Seconds())
	}

	// Filters.
	fp := filter.NewPipeline(eff,
		filter.WithScorer(r.scorer),
		filter.WithMetrics(r.metrics))
	words, verdicts, err := fp.Apply(ctx, merged.Words)
	if err != nil {
		// An unfiltered transcript beats no transcript.
		slog.Warn("filter pipeline failed, returning unfiltered transcript", "error", err)
		report.Warnings = append(report.Warnings, fmt.Sprintf("filters skipped: %v", err))
		words = merged.Words
		verdicts = nil
	}
	report.Verdicts = verdicts
	r.recordVerdicts(ctx, runID, verdicts)

	out := transcript.Transcript{Words: words, TrackDuration: total}
	slog.Info("run finished",
		"source", req.Source,
		"words", len(out.Words),
		"chunks", len(chunks),
		"failed_chunks", failed,
		"dropped_segments", countDrops(verdicts))
	return out, report, nil
}

// detectSpeech runs VAD when the preset asks for it. Detector breakdown is
// fatal; everything downstream needs speech regions.
//
// The detected flag reports whether the regions come from an actual
// detection. With VAD disabled, no detector installed, or a silent track,
// the whole track is returned as one region so chunk planning still works,
// with detected false.
func (r *Runner) detectSpeech(ctx context.Context, track *audio.Track, eff preset.Params) ([]transcript.SpeechRegion, bool, error) {
	fullTrack := []transcript.SpeechRegion{{Start: 0, End: track.Duration()}}
	if !eff.EnableVAD || r.detector == nil {
		return fullTrack, false, nil
	}
	start := time.Now()
	regions, err := r.detector.Detect(ctx, track, vad.Config{
		Threshold:  eff.VADAggressiveness,
		MinSilence: eff.MinSilence,
		SpeechPad:  eff.SpeechPad,
		MinSpeech:  eff.MinSpeech,
	})
	if r.metrics != nil {
		r.metrics.VADDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		return nil, false, fmt.Errorf("pipeline: %w", err)
	}
	if len(regions) == 0 {
		return fullTrack, false, nil
	}
	return regions, true, nil
}

// transcribeChunks runs the worker pool and returns the successful results
// plus the failed chunk count. Chunk failures never cancel the pool; only
// context cancellation does.
func (r *Runner) transcribeChunks(ctx context.Context, track *audio.Track, chunks []transcript.Chunk, inv *invoke.Invoker, runID int64, report *Report) ([]transcript.ChunkResult, int) {
	concurrency := int64(report.Params.MaxConcurrency)
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := semaphore.NewWeighted(concurrency)
	g, gctx := errgroup.WithContext(ctx)

	slots := make([]transcript.ChunkResult, len(chunks))
	errs := make([]error, len(chunks))
	for i, ch := range chunks {
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			slots[i], errs[i] = inv.TranscribeChunk(gctx, track, ch)
			return nil
		})
	}
	// The only group error is context cancellation; chunk errors live in
	// errs.
	_ = g.Wait()

	results := make([]transcript.ChunkResult, 0, len(chunks))
	var failed int
	for i, res := range slots {
		outcome := diag.ChunkOutcome{
			Chunk:     chunks[i],
			Model:     res.Model,
			WordCount: len(res.Words),
			Err:       errs[i],
		}
		if err := r.recorder.RecordChunk(ctx, runID, outcome); err != nil {
			slog.Warn("diagnostics chunk record failed", "chunk", i, "error", err)
		}
		if errs[i] != nil {
			failed++
			slog.Warn("chunk failed, leaving gap",
				"chunk", i,
				"start", chunks[i].Start,
				"end", chunks[i].End,
				"error", errs[i])
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("chunk %d [%s, %s) failed: %v", i, chunks[i].Start, chunks[i].End, errs[i]))
			continue
		}
		report.ChunkModels[i] = res.Model
		results = append(results, res)
	}
	return results, failed
}

// startRun opens the diagnostics record. Recorder failure downgrades the
// run to no diagnostics instead of failing it.
func (r *Runner) startRun(ctx context.Context, req Request, total time.Duration, models []string) int64 {
	runID, err := r.recorder.StartRun(ctx, diag.RunInfo{
		Source:        req.Source,
		Preset:        string(req.Preset),
		TrackDuration: total,
		Models:        models,
	})
	if err != nil {
		slog.Warn("diagnostics start failed, continuing without", "error", err)
		return 0
	}
	return runID
}

// recordVerdicts stores filter verdicts, embedding dropped texts when an
// embeddings provider is available.
func (r *Runner) recordVerdicts(ctx context.Context, runID int64, verdicts []filter.Verdict) {
	for _, v := range verdicts {
		var vec []float32
		if r.embedder != nil && v.Kind == filter.Drop && v.Text != "" {
			emb, err := r.embedder.Embed(ctx, v.Text)
			if err != nil {
				slog.Warn("verdict embedding failed", "error", err)
			} else {
				vec = emb
			}
		}
		if err := r.recorder.RecordVerdict(ctx, runID, v, vec); err != nil {
			slog.Warn("diagnostics verdict record failed", "error", err)
		}
	}
}

func countDrops(verdicts []filter.Verdict) int {
	var n int
	for _, v := range verdicts {
		if v.Kind == filter.Drop {
			n++
		}
	}
	return n
}
