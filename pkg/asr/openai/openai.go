// Package openai implements [asr.Recognizer] against the OpenAI audio
// transcription API. It serves as the hosted tail of the model fallback
// chain: when every local whisper.cpp model has failed, a chunk can still be
// recovered over the network.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/longscribe/longscribe/pkg/asr"
	"github.com/longscribe/longscribe/pkg/audio"
	"github.com/longscribe/longscribe/pkg/transcript"
)

// DefaultModel is the hosted recognition model used when none is configured.
const DefaultModel = "whisper-1"

// Compile-time assertion that Recognizer satisfies asr.Recognizer.
var _ asr.Recognizer = (*Recognizer)(nil)

// Recognizer implements asr.Recognizer using the OpenAI API.
type Recognizer struct {
	client oai.Client
	model  string
}

// config holds optional configuration for the recogniser.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Recognizer.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// New constructs a hosted Recognizer. If model is empty, DefaultModel is
// used.
func New(apiKey, model string, opts ...Option) (*Recognizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai asr: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	return &Recognizer{client: oai.NewClient(reqOpts...), model: model}, nil
}

// ModelID implements asr.Recognizer.
func (r *Recognizer) ModelID() string { return r.model }

// verboseResponse mirrors the verbose_json response shape; the SDK's default
// response type carries only the flat text, so the body is decoded into this
// struct instead.
type verboseResponse struct {
	Text     string `json:"text"`
	Segments []struct {
		Start        float64 `json:"start"`
		End          float64 `json:"end"`
		Text         string  `json:"text"`
		AvgLogprob   float64 `json:"avg_logprob"`
		NoSpeechProb float64 `json:"no_speech_prob"`
	} `json:"segments"`
	Words []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
}

// Transcribe implements asr.Recognizer. The slice is shipped as an in-memory
// WAV file; word timestamps come from the word timestamp granularity and
// confidence is derived from the enclosing segment's average log
// probability.
func (r *Recognizer) Transcribe(ctx context.Context, slice audio.Slice, params asr.DecodeParams) ([]transcript.Word, error) {
	if len(slice.Samples) == 0 {
		return nil, asr.ErrNoSpeech
	}

	body := audio.EncodeWAV(slice)

	p := oai.AudioTranscriptionNewParams{
		Model:                  r.model,
		File:                   oai.File(bytes.NewReader(body), "chunk.wav", "audio/wav"),
		ResponseFormat:         oai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []string{"word", "segment"},
		Temperature:            param.NewOpt(params.Temperature),
	}
	if params.Language != "" {
		p.Language = param.NewOpt(params.Language)
	}
	if params.InitialPrompt != "" {
		p.Prompt = param.NewOpt(params.InitialPrompt)
	}

	var raw []byte
	if _, err := r.client.Audio.Transcriptions.New(ctx, p, option.WithResponseBodyInto(&raw)); err != nil {
		return nil, fmt.Errorf("openai asr: transcribe: %w", err)
	}

	var resp verboseResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("openai asr: decode verbose response: %w", err)
	}

	words := r.convert(resp, params)
	if len(words) == 0 {
		return nil, asr.ErrNoSpeech
	}
	return words, nil
}

// convert maps the verbose response to words, applying the decoder failure
// heuristics: a segment that is probably silence and decoded with low
// average log probability is discarded wholesale.
func (r *Recognizer) convert(resp verboseResponse, params asr.DecodeParams) []transcript.Word {
	type span struct {
		start, end time.Duration
		conf       float64
		keep       bool
	}
	spans := make([]span, len(resp.Segments))
	for i, seg := range resp.Segments {
		keep := true
		if params.NoSpeechThreshold > 0 && seg.NoSpeechProb > params.NoSpeechThreshold &&
			params.LogProbThreshold != 0 && seg.AvgLogprob < params.LogProbThreshold {
			keep = false
		}
		spans[i] = span{
			start: secs(seg.Start),
			end:   secs(seg.End),
			conf:  math.Exp(seg.AvgLogprob),
			keep:  keep,
		}
	}

	confidenceAt := func(at time.Duration) (float64, bool) {
		for _, s := range spans {
			if at >= s.start && at < s.end {
				return s.conf, s.keep
			}
		}
		return 0, true
	}

	var words []transcript.Word
	for _, w := range resp.Words {
		start, end := secs(w.Start), secs(w.End)
		if end <= start {
			end = start + 10*time.Millisecond
		}
		conf, keep := confidenceAt(start)
		if !keep || w.Word == "" {
			continue
		}
		words = append(words, transcript.Word{
			Text:       w.Word,
			Start:      start,
			End:        end,
			Confidence: conf,
		})
	}
	return words
}

func secs(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
