// Package audio holds the in-memory audio model shared by every pipeline
// stage: an immutable mono [Track] loaded once per run, and cheap [Slice]
// views into it that recognizers consume.
package audio

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmptyTrack is returned when a track or slice would contain no samples.
var ErrEmptyTrack = errors.New("audio: empty track")

// Track is an immutable mono audio signal. The sample buffer is shared, not
// copied, by [Track.Slice]; nothing in this package mutates it after
// construction.
type Track struct {
	samples    []float32
	sampleRate int
}

// NewTrack wraps samples at the given rate. The caller must not modify the
// slice afterwards.
func NewTrack(samples []float32, sampleRate int) (*Track, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyTrack
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("audio: invalid sample rate %d", sampleRate)
	}
	return &Track{samples: samples, sampleRate: sampleRate}, nil
}

// Samples returns the underlying sample buffer. Callers must treat it as
// read-only.
func (t *Track) Samples() []float32 { return t.samples }

// SampleRate returns the track's sample rate in Hz.
func (t *Track) SampleRate() int { return t.sampleRate }

// Duration returns the track length on the track timeline.
func (t *Track) Duration() time.Duration {
	return time.Duration(int64(len(t.samples)) * int64(time.Second) / int64(t.sampleRate))
}

// Slice is a view of a contiguous span of a [Track]. Start is the span's
// position on the track timeline; word timings produced from a slice are
// relative to the slice and must be offset by Start to land on the track
// timeline.
type Slice struct {
	Samples    []float32
	SampleRate int
	Start      time.Duration
}

// Duration returns the slice length.
func (s Slice) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(int64(len(s.Samples)) * int64(time.Second) / int64(s.SampleRate))
}

// Slice returns a view of the track between start and end. The bounds are
// clamped to the track; a span that clamps to nothing is an error.
func (t *Track) Slice(start, end time.Duration) (Slice, error) {
	if start < 0 {
		start = 0
	}
	if end > t.Duration() {
		end = t.Duration()
	}
	if end <= start {
		return Slice{}, fmt.Errorf("%w: slice [%s, %s)", ErrEmptyTrack, start, end)
	}
	lo := int(int64(start) * int64(t.sampleRate) / int64(time.Second))
	hi := int(int64(end) * int64(t.sampleRate) / int64(time.Second))
	if hi > len(t.samples) {
		hi = len(t.samples)
	}
	if lo >= hi {
		return Slice{}, fmt.Errorf("%w: slice [%s, %s)", ErrEmptyTrack, start, end)
	}
	return Slice{
		Samples:    t.samples[lo:hi],
		SampleRate: t.sampleRate,
		Start:      start,
	}, nil
}
