// Package preset holds the named parameter bundles that drive the
// transcription pipeline, plus the pure resolution step that turns a preset
// and a track duration into the effective parameters every stage consumes.
//
// Presets are data, not code branches: the table below maps each name to a
// full [Params] value, and [Resolve] applies duration-bucket overrides on top.
// A resolved Params is immutable for the remainder of the run.
package preset

import (
	"fmt"
	"time"
)

// Name identifies a tuned parameter bundle for a content-type/quality
// tradeoff.
type Name string

const (
	MaximumQuality Name = "maximum_quality"
	Balanced       Name = "balanced"
	FastProcessing Name = "fast_processing"
	Podcasts       Name = "podcasts"
	ShortVideos    Name = "short_videos"
)

// IsValid reports whether n is a recognised preset name.
func (n Name) IsValid() bool {
	switch n {
	case MaximumQuality, Balanced, FastProcessing, Podcasts, ShortVideos:
		return true
	}
	return false
}

// Names lists every recognised preset name.
func Names() []Name {
	return []Name{MaximumQuality, Balanced, FastProcessing, Podcasts, ShortVideos}
}

// Params is the full parameter bundle consumed by the pipeline stages.
// Durations are track-timeline durations; thresholds are unitless.
type Params struct {
	// --- Voice activity detection ---

	// EnableVAD gates speech-region detection before chunk planning. When
	// false the planner treats the whole track as one speech region.
	EnableVAD bool

	// VADAggressiveness is the speech-probability threshold in [0.0, 1.0].
	// Higher values classify less audio as speech.
	VADAggressiveness float64

	// MinSilence is the silence duration that ends a speech region.
	MinSilence time.Duration

	// SpeechPad widens each detected region on both sides to avoid clipping
	// word onsets and offsets.
	SpeechPad time.Duration

	// MinSpeech drops regions shorter than this.
	MinSpeech time.Duration

	// --- Chunk planning ---

	// ChunkLength is the base chunk window length.
	ChunkLength time.Duration

	// Overlap is how far each chunk reaches back into its predecessor.
	Overlap time.Duration

	// MinChunkDuration is the floor below which a chunk is merged into its
	// neighbour instead of being emitted.
	MinChunkDuration time.Duration

	// ChunkingThreshold is the total duration above which the track is split
	// into chunks at all.
	ChunkingThreshold time.Duration

	// SnapWindow bounds the search for a silence gap around an ideal cut.
	SnapWindow time.Duration

	// --- Recognition ---

	// Model is the preferred recognition model (e.g. "large-v3", "medium").
	Model string

	// AutoModelSelection swaps the preferred model for a more stable one on
	// long tracks (large-v3 → large-v2).
	AutoModelSelection bool

	// AdaptiveThresholds tightens decode thresholds with track duration.
	AdaptiveThresholds bool

	// CompressionRatioBase, LogProbBase and NoSpeechBase are the decode-time
	// threshold baselines handed to the recogniser; see [Params.DecodeThresholds].
	CompressionRatioBase float64
	LogProbBase          float64
	NoSpeechBase         float64

	// ChunkTimeout bounds the wall clock of a single chunk recognition
	// attempt.
	ChunkTimeout time.Duration

	// MaxConcurrency bounds the chunk worker pool.
	MaxConcurrency int

	// --- Hallucination filters ---

	EnableCompressionFilter bool
	EnableSemanticFilter    bool
	EnableLoopingFilter     bool
	EnableRepetitionFilter  bool

	// CompressionRatioThreshold drops segments whose raw/deduplicated
	// character ratio exceeds it.
	CompressionRatioThreshold float64

	// SemanticSimilarityThreshold drops a segment scoring above it against
	// the previous surviving segment.
	SemanticSimilarityThreshold float64

	// NaturalRepetitionGap exempts near-duplicate segments separated by at
	// least this much silence; speakers do legitimately repeat themselves
	// after a pause. Calibration knob, not a derived constant.
	NaturalRepetitionGap time.Duration

	// LoopingWindow is the number of trailing segments the looping filter
	// scans for a repeating cycle.
	LoopingWindow int

	// MaxLoopPeriod is the longest cycle period considered.
	MaxLoopPeriod int

	// LoopMinRepeats is the number of cycle recurrences (beyond the first
	// occurrence) that confirms a loop.
	LoopMinRepeats int

	// MaxConsecutiveRepetitions is how many immediately-adjacent identical
	// segments survive the generic repetition filter.
	MaxConsecutiveRepetitions int

	// SegmentGap is the inter-word silence that starts a new filter segment.
	SegmentGap time.Duration
}

// defaults shared by every preset unless overridden.
func base() Params {
	return Params{
		EnableVAD:         true,
		VADAggressiveness: 0.5,
		MinSilence:        500 * time.Millisecond,
		SpeechPad:         150 * time.Millisecond,
		MinSpeech:         250 * time.Millisecond,

		ChunkLength:       30 * time.Second,
		Overlap:           2 * time.Second,
		MinChunkDuration:  5 * time.Second,
		ChunkingThreshold: 90 * time.Second,
		SnapWindow:        2 * time.Second,

		Model:                "large-v3",
		AutoModelSelection:   true,
		AdaptiveThresholds:   true,
		CompressionRatioBase: 2.4,
		LogProbBase:          -1.0,
		NoSpeechBase:         0.6,
		ChunkTimeout:         2 * time.Minute,
		MaxConcurrency:       2,

		EnableCompressionFilter:     true,
		EnableSemanticFilter:        true,
		EnableLoopingFilter:         true,
		EnableRepetitionFilter:      true,
		CompressionRatioThreshold:   4.0,
		SemanticSimilarityThreshold: 0.8,
		NaturalRepetitionGap:        3 * time.Second,
		LoopingWindow:               16,
		MaxLoopPeriod:               5,
		LoopMinRepeats:              2,
		MaxConsecutiveRepetitions:   2,
		SegmentGap:                  500 * time.Millisecond,
	}
}

// table maps each preset name to its parameter bundle. Values follow the
// empirically tuned figures from the reference captioning system.
var table = map[Name]Params{
	Balanced: base(),

	MaximumQuality: func() Params {
		p := base()
		p.ChunkLength = 20 * time.Second
		p.Overlap = 3 * time.Second
		p.CompressionRatioBase = 2.0
		p.LogProbBase = -0.7
		p.NoSpeechBase = 0.75
		p.CompressionRatioThreshold = 3.0
		p.SemanticSimilarityThreshold = 0.75
		p.MaxConsecutiveRepetitions = 1
		return p
	}(),

	FastProcessing: func() Params {
		p := base()
		p.EnableVAD = false
		p.ChunkLength = 60 * time.Second
		p.Overlap = 1 * time.Second
		p.AdaptiveThresholds = false
		p.AutoModelSelection = false
		p.EnableSemanticFilter = false
		p.EnableLoopingFilter = false
		p.ChunkingThreshold = 5 * time.Minute
		return p
	}(),

	Podcasts: func() Params {
		p := base()
		p.ChunkLength = 45 * time.Second
		p.Overlap = 3 * time.Second
		p.CompressionRatioBase = 2.2
		p.LogProbBase = -0.8
		p.NoSpeechBase = 0.65
		p.ChunkingThreshold = 1 * time.Minute
		p.MaxConsecutiveRepetitions = 1
		return p
	}(),

	ShortVideos: func() Params {
		p := base()
		p.EnableVAD = false
		p.Overlap = 1 * time.Second
		p.AdaptiveThresholds = false
		p.AutoModelSelection = false
		p.EnableSemanticFilter = false
		p.EnableLoopingFilter = false
		p.ChunkingThreshold = 2 * time.Minute
		return p
	}(),
}

// Lookup returns the parameter bundle for a preset name.
func Lookup(name Name) (Params, error) {
	p, ok := table[name]
	if !ok {
		return Params{}, fmt.Errorf("preset: unknown preset %q", name)
	}
	return p, nil
}

// Resolve applies duration-bucket overrides to p and returns the effective
// parameters for a track of the given total duration. Longer audio gets
// shorter chunks, more overlap and stricter filter thresholds, because
// degenerate decoding loops become more likely with duration.
//
// Resolve is a pure function: it never mutates p.
func Resolve(p Params, total time.Duration) Params {
	if !p.AdaptiveThresholds {
		return p
	}
	switch {
	case total > 5*time.Minute:
		p.ChunkLength = min(p.ChunkLength, 25*time.Second)
		p.Overlap = max(p.Overlap, 3*time.Second)
		p.CompressionRatioThreshold = min(p.CompressionRatioThreshold, 3.5)
		p.SemanticSimilarityThreshold = min(p.SemanticSimilarityThreshold, 0.75)
		p.MaxConsecutiveRepetitions = 1
	case total > 2*time.Minute:
		p.CompressionRatioThreshold = min(p.CompressionRatioThreshold, 3.8)
	case total < time.Minute:
		// Short clips are not chunked and need little filtering headroom.
		p.MaxConsecutiveRepetitions = max(p.MaxConsecutiveRepetitions, 2)
	}
	return p
}

// DecodeThresholds returns the decode-time thresholds for a track of the
// given duration: compression ratio, log probability, and no-speech
// probability. With adaptive thresholds enabled the values tighten in two
// steps at the two- and five-minute marks.
func (p Params) DecodeThresholds(total time.Duration) (compressionRatio, logProb, noSpeech float64) {
	cr, lp, ns := p.CompressionRatioBase, p.LogProbBase, p.NoSpeechBase
	if !p.AdaptiveThresholds {
		return cr, lp, ns
	}
	switch {
	case total > 5*time.Minute:
		return cr - 0.3, lp + 0.2, ns + 0.1
	case total > 2*time.Minute:
		return cr - 0.2, lp + 0.1, ns + 0.05
	}
	return cr, lp, ns
}

// EffectiveModel returns the model the run should prefer for the given
// duration. Long tracks swap large-v3 for large-v2, which loops less.
func (p Params) EffectiveModel(total time.Duration) string {
	if !p.AutoModelSelection {
		return p.Model
	}
	if total > 2*time.Minute && p.Model == "large-v3" {
		return "large-v2"
	}
	if total > 5*time.Minute && p.Model == "large" {
		return "large-v2"
	}
	return p.Model
}

// fallbackChains maps a preferred model to its ordered fallback chain,
// preferred model first. Progressively smaller models are more stable on
// degenerate inputs.
var fallbackChains = map[string][]string{
	"large-v3": {"large-v3", "large-v2", "large", "medium"},
	"large-v2": {"large-v2", "large", "medium"},
	"large":    {"large", "large-v2", "medium"},
	"medium":   {"medium", "base"},
	"base":     {"base", "tiny"},
	"tiny":     {"tiny"},
}

// FallbackChain returns the ordered model chain for a track of the given
// duration, starting with the effective preferred model. Unknown model names
// fall back through "base" and "tiny".
func (p Params) FallbackChain(total time.Duration) []string {
	model := p.EffectiveModel(total)
	if chain, ok := fallbackChains[model]; ok {
		out := make([]string, len(chain))
		copy(out, chain)
		return out
	}
	return []string{model, "base", "tiny"}
}

// UseChunking reports whether a track of the given duration should be split
// into chunks at all.
func (p Params) UseChunking(total time.Duration) bool {
	return total > p.ChunkingThreshold
}
