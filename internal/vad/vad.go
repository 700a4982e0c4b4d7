// Package vad classifies audio into speech and non-speech intervals.
//
// Two interchangeable strategies sit behind one contract: a neural classifier
// (Silero VAD over ONNX Runtime) and a short-time-energy fallback. The
// [Detector] tries them in order and callers never learn which one ran; only
// the failure of every strategy is fatal, because nothing downstream can plan
// chunks without speech regions.
//
// Detection runs once per pipeline run, synchronously, before chunk planning.
package vad

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/longscribe/longscribe/pkg/audio"
	"github.com/longscribe/longscribe/pkg/transcript"
)

// ErrUnavailable is returned when every configured strategy failed. This is
// fatal for the pipeline run.
var ErrUnavailable = errors.New("vad: no voice activity strategy available")

// Config holds the region-forming parameters shared by every strategy.
type Config struct {
	// Threshold is the speech-probability cut-off in [0.0, 1.0]; frames at
	// or above it count as speech.
	Threshold float64

	// MinSilence is the silence run length that closes a region.
	MinSilence time.Duration

	// SpeechPad widens each region outward on both sides, clamped to the
	// track bounds, so word onsets and offsets are not clipped.
	SpeechPad time.Duration

	// MinSpeech drops regions shorter than this.
	MinSpeech time.Duration
}

// Strategy is one way of producing frame-level speech probabilities and
// turning them into regions.
type Strategy interface {
	// Detect returns the ordered, non-overlapping speech regions of the
	// track.
	Detect(ctx context.Context, track *audio.Track, cfg Config) ([]transcript.SpeechRegion, error)

	// Name identifies the strategy in logs ("silero", "energy").
	Name() string
}

// Detector runs an ordered list of strategies, falling through on failure.
type Detector struct {
	strategies []Strategy
}

// NewDetector builds a Detector that tries the given strategies in order.
func NewDetector(strategies ...Strategy) *Detector {
	return &Detector{strategies: strategies}
}

// Detect returns the track's speech regions from the first strategy that
// succeeds. A successful strategy that finds no speech at all yields an empty
// region list and no error; the caller decides what a silent track means.
//
// Returns [ErrUnavailable] (wrapping the last strategy error) when every
// strategy fails.
func (d *Detector) Detect(ctx context.Context, track *audio.Track, cfg Config) ([]transcript.SpeechRegion, error) {
	var lastErr error
	for _, s := range d.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		regions, err := s.Detect(ctx, track, cfg)
		if err != nil {
			slog.Warn("vad strategy failed, trying next", "strategy", s.Name(), "error", err)
			lastErr = err
			continue
		}
		if len(regions) == 0 {
			slog.Info("vad found no speech", "strategy", s.Name())
			return nil, nil
		}
		slog.Debug("vad detected speech regions", "strategy", s.Name(), "regions", len(regions))
		return regions, nil
	}
	if lastErr == nil {
		return nil, ErrUnavailable
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}
