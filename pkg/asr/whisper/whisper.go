// Package whisper implements [asr.Recognizer] using the whisper.cpp CGO
// bindings. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.
//
// The model is loaded once when the Recognizer is constructed and shared
// across all chunk invocations; each Transcribe call creates its own
// whisper context, so concurrent chunk workers do not interfere.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/longscribe/longscribe/pkg/asr"
	"github.com/longscribe/longscribe/pkg/audio"
	"github.com/longscribe/longscribe/pkg/transcript"
)

// SampleRate is the only sample rate whisper.cpp accepts.
const SampleRate = 16000

// Compile-time assertion that Recognizer satisfies asr.Recognizer.
var _ asr.Recognizer = (*Recognizer)(nil)

// Recognizer wraps one loaded whisper.cpp model.
type Recognizer struct {
	model   whisperlib.Model
	modelID string
}

// New loads the whisper.cpp model at modelPath. modelID is the logical model
// name recorded in diagnostics (e.g. "large-v2"); it should match the
// fallback-chain entry this Recognizer serves. The caller must Close the
// Recognizer when the process shuts down.
func New(modelPath, modelID string) (*Recognizer, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	if modelID == "" {
		return nil, errors.New("whisper: modelID must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}
	return &Recognizer{model: model, modelID: modelID}, nil
}

// ModelID implements asr.Recognizer.
func (r *Recognizer) ModelID() string { return r.modelID }

// Close releases the model. Must be called once the process is done with the
// Recognizer; in-flight Transcribe calls must have finished.
func (r *Recognizer) Close() error {
	if r.model != nil {
		return r.model.Close()
	}
	return nil
}

// Transcribe implements asr.Recognizer. Word timestamps come from token
// timestamps with word splitting enabled; word confidence is the mean token
// probability.
func (r *Recognizer) Transcribe(ctx context.Context, slice audio.Slice, params asr.DecodeParams) ([]transcript.Word, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisper: context already cancelled: %w", err)
	}
	if slice.SampleRate != SampleRate {
		return nil, fmt.Errorf("whisper: slice sample rate %d, need %d", slice.SampleRate, SampleRate)
	}
	if len(slice.Samples) == 0 {
		return nil, asr.ErrNoSpeech
	}

	// A fresh context per call: contexts are not thread-safe, the model is.
	wctx, err := r.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper: create context: %w", err)
	}

	if params.Language != "" {
		if err := wctx.SetLanguage(params.Language); err != nil {
			return nil, fmt.Errorf("whisper: set language %q: %w", params.Language, err)
		}
	}
	wctx.SetTranslate(false)
	wctx.SetTokenTimestamps(true)
	wctx.SetSplitOnWord(true)
	wctx.SetTemperature(float32(params.Temperature))
	if !params.ConditionOnPreviousText {
		// MaxContext 0 disables text conditioning across decode windows,
		// the main amplifier of repetition loops.
		wctx.SetMaxContext(0)
	}
	if params.CompressionRatioThreshold > 0 {
		// whisper.cpp expresses the repetition cut-off as an entropy
		// threshold over the decoded tokens.
		wctx.SetEntropyThold(float32(params.CompressionRatioThreshold))
	}
	if params.InitialPrompt != "" {
		wctx.SetInitialPrompt(params.InitialPrompt)
	}

	if err := wctx.Process(slice.Samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper: process audio: %w", err)
	}

	var words []transcript.Word
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("whisper: cancelled while reading segments: %w", err)
		}
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("whisper: read segment: %w", err)
		}
		words = append(words, segmentWords(segment)...)
	}

	if len(words) == 0 {
		return nil, asr.ErrNoSpeech
	}
	return words, nil
}

// segmentWords converts one whisper segment into words, skipping special
// tokens and repairing zero-length intervals.
func segmentWords(segment whisperlib.Segment) []transcript.Word {
	words := make([]transcript.Word, 0, len(segment.Tokens))
	for _, tok := range segment.Tokens {
		text := strings.TrimSpace(tok.Text)
		if text == "" || strings.HasPrefix(text, "[_") {
			continue
		}
		start, end := tok.Start, tok.End
		if end <= start {
			end = start + 10*time.Millisecond
		}
		words = append(words, transcript.Word{
			Text:       text,
			Start:      start,
			End:        end,
			Confidence: float64(tok.P),
		})
	}
	return words
}
