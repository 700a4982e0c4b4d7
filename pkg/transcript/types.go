// Package transcript defines the data model shared by every stage of the
// long-form transcription pipeline: timestamped words, speech regions, chunk
// windows, per-chunk recognition results, and the merged transcript.
//
// All types in this package are plain values. They carry no behaviour beyond
// small accessors and are owned by whichever pipeline stage produced them;
// stages hand them onward and never mutate what they have handed off.
package transcript

import (
	"strings"
	"time"
)

// Word is a single recognised word with its time interval and confidence.
// Invariant: Start ≤ End.
type Word struct {
	// Text is the recognised word, trimmed of surrounding whitespace.
	Text string

	// Start and End bound the word on the track timeline.
	Start time.Duration
	End   time.Duration

	// Confidence is the recogniser's confidence in [0.0, 1.0]. Zero means the
	// backend does not report confidence.
	Confidence float64
}

// Duration returns the length of the word's time interval.
func (w Word) Duration() time.Duration { return w.End - w.Start }

// SpeechRegion is a half-open time interval classified as containing speech.
// Regions produced by a detector are ordered by Start and non-overlapping.
type SpeechRegion struct {
	Start time.Duration
	End   time.Duration
}

// Duration returns the length of the region.
func (r SpeechRegion) Duration() time.Duration { return r.End - r.Start }

// Chunk is one planned window of audio sent to the recogniser in a single
// call. Chunks are ordered by Start; consecutive chunks overlap by the
// planner's configured overlap and their union covers the whole track.
type Chunk struct {
	// Index is the chunk's position in the plan, starting at 0.
	Index int

	Start time.Duration
	End   time.Duration

	// OverlapPrev is how far this chunk reaches back into the previous chunk.
	// Zero for the first chunk.
	OverlapPrev time.Duration

	// OverlapNext is how far the next chunk reaches back into this one.
	// Zero for the last chunk.
	OverlapNext time.Duration
}

// Duration returns the length of the chunk window.
func (c Chunk) Duration() time.Duration { return c.End - c.Start }

// ChunkResult is the outcome of transcribing one chunk: the ordered words
// (track-absolute timestamps) plus the model that actually served the call
// after any fallback.
type ChunkResult struct {
	Chunk Chunk

	// Words is ordered by Start. Empty when the chunk contained no
	// recognisable speech or when every model in the chain failed.
	Words []Word

	// Model identifies the recogniser that produced Words (post-fallback).
	// Empty when the whole chain was exhausted.
	Model string
}

// Transcript is an ordered word sequence spanning a whole track. After
// merging, Start times are non-decreasing and no two words overlap by more
// than a small tolerance.
type Transcript struct {
	Words []Word

	// TrackDuration is the total duration of the source audio.
	TrackDuration time.Duration
}

// Text joins all word texts with single spaces.
func (t Transcript) Text() string {
	parts := make([]string, 0, len(t.Words))
	for _, w := range t.Words {
		if w.Text != "" {
			parts = append(parts, w.Text)
		}
	}
	return strings.Join(parts, " ")
}

// Start returns the start time of the first word, or zero when empty.
func (t Transcript) Start() time.Duration {
	if len(t.Words) == 0 {
		return 0
	}
	return t.Words[0].Start
}

// End returns the end time of the last word, or zero when empty.
func (t Transcript) End() time.Duration {
	if len(t.Words) == 0 {
		return 0
	}
	return t.Words[len(t.Words)-1].End
}
