// Package invoke drives recognition of individual chunks against the model
// fallback chain.
//
// The [Invoker] owns the chain for one run: the preferred model and its
// fallbacks, each wrapped in a breaker, with decode thresholds resolved once
// from the preset and the track duration. A chunk that fails on one model is
// retried once there and then advanced down the chain; a chunk that exhausts
// the whole chain comes back as an empty result with the error attached, so
// the caller can leave a gap instead of aborting the run.
package invoke

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/longscribe/longscribe/internal/observe"
	"github.com/longscribe/longscribe/internal/preset"
	"github.com/longscribe/longscribe/internal/resilience"
	"github.com/longscribe/longscribe/pkg/asr"
	"github.com/longscribe/longscribe/pkg/audio"
	"github.com/longscribe/longscribe/pkg/transcript"
)

// Registry maps model IDs to the recognizer backing them. A run only uses
// the subset of the registry that appears in the preset's fallback chain.
type Registry map[string]asr.Recognizer

// Config holds the per-run knobs that are not part of the preset.
type Config struct {
	// Language is the expected language hint, empty for auto-detect.
	Language string

	// InitialPrompt biases decoding of the first chunk.
	InitialPrompt string

	// Chain pins an explicit model order, bypassing the preset's fallback
	// table.
	Chain []string

	// Metrics receives per-attempt instrumentation. Nil disables it.
	Metrics *observe.Metrics
}

// Invoker transcribes chunks of one track using a model fallback chain.
// It is safe for concurrent use; chunks are typically transcribed by a
// worker pool.
type Invoker struct {
	chain   *resilience.Chain[asr.Recognizer]
	speech  []transcript.SpeechRegion
	decode  asr.DecodeParams
	timeout time.Duration
	metrics *observe.Metrics
}

// New builds an [Invoker] for a track of the given total duration. The
// chain is assembled from the preset's fallback order, keeping only models
// the registry actually has; an error is returned when none of the chain's
// models are available.
func New(reg Registry, p preset.Params, total time.Duration, speech []transcript.SpeechRegion, cfg Config) (*Invoker, error) {
	order := cfg.Chain
	if len(order) == 0 {
		order = p.FallbackChain(total)
	}
	chain := resilience.NewChain[asr.Recognizer](resilience.ChainConfig{
		RetriesPerEntry: 1,
	})
	for _, model := range order {
		if r, ok := reg[model]; ok {
			chain.Append(model, r)
		}
	}
	if chain.Len() == 0 {
		return nil, fmt.Errorf("invoke: no recognizer available for chain %v", order)
	}
	slog.Debug("model chain assembled", "models", chain.Names())

	cr, lp, ns := p.DecodeThresholds(total)
	return &Invoker{
		chain:  chain,
		speech: speech,
		decode: asr.DecodeParams{
			Language:                  cfg.Language,
			Temperature:               0,
			CompressionRatioThreshold: cr,
			LogProbThreshold:          lp,
			NoSpeechThreshold:         ns,
			ConditionOnPreviousText:   false,
			InitialPrompt:             cfg.InitialPrompt,
		},
		timeout: p.ChunkTimeout,
		metrics: cfg.Metrics,
	}, nil
}

// Models returns the chain's model IDs in preference order.
func (inv *Invoker) Models() []string { return inv.chain.Names() }

// TranscribeChunk transcribes one chunk window of the track. Word timings in
// the result are on the track timeline, not the chunk's. On chain
// exhaustion the returned result carries the chunk and no words alongside
// the error, so callers can record the gap.
func (inv *Invoker) TranscribeChunk(ctx context.Context, track *audio.Track, ch transcript.Chunk) (transcript.ChunkResult, error) {
	slice, err := track.Slice(ch.Start, ch.End)
	if err != nil {
		return transcript.ChunkResult{Chunk: ch}, fmt.Errorf("invoke: slicing chunk %d: %w", ch.Index, err)
	}

	if inv.metrics != nil {
		inv.metrics.InFlightChunks.Add(ctx, 1)
		defer inv.metrics.InFlightChunks.Add(ctx, -1)
		start := time.Now()
		defer func() {
			inv.metrics.TranscribeDuration.Record(ctx, time.Since(start).Seconds())
		}()
	}

	expectsSpeech := inv.overlapsSpeech(ch)

	words, model, err := resilience.Run(ctx, inv.chain,
		func(ctx context.Context, r asr.Recognizer) ([]transcript.Word, error) {
			attemptCtx, cancel := context.WithTimeout(ctx, inv.timeout)
			defer cancel()

			words, err := r.Transcribe(attemptCtx, slice, inv.decode)
			switch {
			case errors.Is(err, asr.ErrNoSpeech) && !expectsSpeech:
				// Silence where silence was expected.
				inv.record(ctx, r.ModelID(), "empty")
				return nil, nil
			case errors.Is(err, asr.ErrNoSpeech):
				// The detector found speech here; an empty decode is a
				// model failure, not silence.
				inv.record(ctx, r.ModelID(), "no_speech")
				return nil, err
			case err != nil:
				inv.record(ctx, r.ModelID(), "error")
				return nil, err
			}
			inv.record(ctx, r.ModelID(), "ok")
			return words, nil
		})
	if err != nil {
		if inv.metrics != nil {
			inv.metrics.ChunkFailures.Add(ctx, 1)
		}
		return transcript.ChunkResult{Chunk: ch}, fmt.Errorf("invoke: chunk %d: %w", ch.Index, err)
	}

	for i := range words {
		// Some backends emit zero-length word intervals; give them a nominal
		// extent so downstream interval math stays sane.
		if words[i].End <= words[i].Start {
			words[i].End = words[i].Start + 10*time.Millisecond
		}
		words[i].Start += ch.Start
		words[i].End += ch.Start
	}
	return transcript.ChunkResult{Chunk: ch, Words: words, Model: model}, nil
}

func (inv *Invoker) record(ctx context.Context, model, status string) {
	if inv.metrics != nil {
		inv.metrics.RecordChunkAttempt(ctx, model, status)
	}
}

// overlapsSpeech reports whether any detected speech region intersects the
// chunk window.
func (inv *Invoker) overlapsSpeech(ch transcript.Chunk) bool {
	for _, r := range inv.speech {
		if r.Start < ch.End && r.End > ch.Start {
			return true
		}
	}
	return false
}
