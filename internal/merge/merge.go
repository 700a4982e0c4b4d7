// Package merge stitches per-chunk recognition results into one continuous
// word sequence.
//
// Adjacent chunks deliberately decode a shared overlap region, so the words
// inside it arrive twice. The merger matches those duplicates by normalised
// text and start-time proximity and keeps the higher-confidence instance; on
// a confidence tie the later chunk wins, because the earlier chunk decoded
// the word at its trailing edge where timestamps degrade. A final repair
// pass drops the lower-confidence word of any pair still overlapping by more
// than the match tolerance; smaller overlaps are ordinary timestamp jitter
// and both words survive.
package merge

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/longscribe/longscribe/pkg/transcript"
)

// defaultMatchTolerance is how far apart two starts may be for words to
// count as the same utterance.
const defaultMatchTolerance = 250 * time.Millisecond

// Merger merges chunk results. The zero value is usable.
type Merger struct {
	// MatchTolerance overrides the duplicate start-time window. Zero means
	// the default of 250ms.
	MatchTolerance time.Duration
}

// Merge combines the chunk results into a transcript covering the track.
// Results may arrive in any order; failed chunks (no words) simply
// contribute nothing. The output word sequence is ordered by start time and
// no word overlaps its predecessor by more than the match tolerance.
func (m Merger) Merge(results []transcript.ChunkResult, total time.Duration) transcript.Transcript {
	tolerance := m.MatchTolerance
	if tolerance <= 0 {
		tolerance = defaultMatchTolerance
	}

	ordered := make([]transcript.ChunkResult, len(results))
	copy(ordered, results)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Chunk.Index < ordered[j].Chunk.Index
	})

	var words []transcript.Word
	for _, res := range ordered {
		if len(res.Words) == 0 {
			continue
		}
		if len(words) == 0 || res.Chunk.OverlapPrev <= 0 {
			words = append(words, res.Words...)
			continue
		}
		windowEnd := res.Chunk.Start + res.Chunk.OverlapPrev
		words = mergeOverlap(words, res.Words, res.Chunk.Start, windowEnd, tolerance)
	}

	sort.SliceStable(words, func(i, j int) bool {
		return words[i].Start < words[j].Start
	})
	words = repairMonotonicity(words, tolerance)

	return transcript.Transcript{Words: words, TrackDuration: total}
}

// mergeOverlap folds the words of one chunk into the accumulated sequence.
// Words inside the overlap window are matched against the accumulated tail;
// words past the window are appended unconditionally.
func mergeOverlap(acc, incoming []transcript.Word, windowStart, windowEnd time.Duration, tolerance time.Duration) []transcript.Word {
	// Index of the first accumulated word that can participate in matching.
	tail := len(acc)
	for tail > 0 && acc[tail-1].Start >= windowStart-tolerance {
		tail--
	}

	for _, w := range incoming {
		if w.Start >= windowEnd {
			acc = append(acc, w)
			continue
		}

		matched := -1
		bestDelta := tolerance + 1
		for i := tail; i < len(acc); i++ {
			if normalize(acc[i].Text) != normalize(w.Text) {
				continue
			}
			delta := absDur(acc[i].Start - w.Start)
			if delta <= tolerance && delta < bestDelta {
				matched = i
				bestDelta = delta
			}
		}
		if matched < 0 {
			acc = append(acc, w)
			continue
		}
		// The later chunk wins ties; its copy sat safely inside the window
		// while the earlier chunk's copy was at the trailing edge.
		if w.Confidence >= acc[matched].Confidence {
			acc[matched] = w
		}
	}
	return acc
}

// repairMonotonicity drops the lower-confidence word of any pair whose time
// overlap still exceeds the tolerance after merging. Distinct adjacent words
// routinely overlap by a few tens of milliseconds and are kept as is.
func repairMonotonicity(words []transcript.Word, tolerance time.Duration) []transcript.Word {
	if len(words) < 2 {
		return words
	}
	out := words[:1]
	for _, w := range words[1:] {
		prev := &out[len(out)-1]
		if w.Start >= prev.End-tolerance {
			out = append(out, w)
			continue
		}
		if w.Confidence > prev.Confidence {
			*prev = w
		}
	}
	return out
}

// normalize lowercases a word and strips surrounding punctuation so that
// "Hello," and "hello" merge.
func normalize(s string) string {
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	return strings.ToLower(s)
}

func absDur(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
