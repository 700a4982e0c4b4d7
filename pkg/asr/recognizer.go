// Package asr defines the Recognizer interface for speech-recognition
// backends used by the chunked transcription pipeline.
//
// Unlike a streaming STT abstraction, a Recognizer is a pure, stateless
// function per call: it takes one bounded audio slice and decoding
// parameters and returns ordered, timestamped words. The pipeline composes
// several Recognizers into an ordered fallback chain, so implementations
// must not carry cross-call decoding state (no conditioning on a previous
// chunk's text).
//
// Implementations must be safe for concurrent use: the worker pool
// transcribes multiple chunks at once against the same Recognizer.
package asr

import (
	"context"
	"errors"

	"github.com/longscribe/longscribe/pkg/audio"
	"github.com/longscribe/longscribe/pkg/transcript"
)

// ErrNoSpeech is returned when the recogniser processed the slice but found
// nothing to transcribe. Callers decide whether that is acceptable (silent
// chunk) or a failure (chunk known to contain speech).
var ErrNoSpeech = errors.New("asr: no speech recognised")

// DecodeParams carries the per-call decoding knobs. The pipeline derives
// them from the active preset and total track duration; longer tracks get
// stricter values because they are statistically more prone to degenerate
// decoding loops.
type DecodeParams struct {
	// Language is the ISO 639-1 hint (e.g. "en", "pt"). Empty means
	// auto-detect where the backend supports it.
	Language string

	// Temperature controls sampling during decoding. The pipeline always
	// passes 0 for deterministic output.
	Temperature float64

	// CompressionRatioThreshold, LogProbThreshold and NoSpeechThreshold are
	// the decoder's own failure heuristics. Backends that cannot honour a
	// knob ignore it.
	CompressionRatioThreshold float64
	LogProbThreshold          float64
	NoSpeechThreshold         float64

	// ConditionOnPreviousText enables cross-window text conditioning inside
	// the backend. The pipeline always passes false: conditioning is the
	// main amplifier of repetition loops across chunk boundaries.
	ConditionOnPreviousText bool

	// InitialPrompt optionally seeds the decoder vocabulary.
	InitialPrompt string
}

// Recognizer is one entry in the model fallback chain.
type Recognizer interface {
	// Transcribe runs recognition over the slice and returns the ordered
	// words with slice-relative timestamps. Returns [ErrNoSpeech] (possibly
	// wrapped) when the slice decodes to nothing.
	Transcribe(ctx context.Context, slice audio.Slice, params DecodeParams) ([]transcript.Word, error)

	// ModelID identifies the backing model (e.g. "large-v2",
	// "whisper-1"). Recorded per chunk for diagnostics.
	ModelID() string
}
