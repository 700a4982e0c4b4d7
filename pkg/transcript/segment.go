package transcript

import (
	"strings"
	"time"
)

// Segment is a run of consecutive words treated as one unit by the
// hallucination filters. Segmentation is purely gap-based: words separated by
// less than the configured gap belong to the same segment.
type Segment struct {
	Words []Word
}

// Text joins the segment's word texts with single spaces.
func (s Segment) Text() string {
	parts := make([]string, 0, len(s.Words))
	for _, w := range s.Words {
		if w.Text != "" {
			parts = append(parts, w.Text)
		}
	}
	return strings.Join(parts, " ")
}

// Start returns the start time of the segment's first word.
func (s Segment) Start() time.Duration {
	if len(s.Words) == 0 {
		return 0
	}
	return s.Words[0].Start
}

// End returns the end time of the segment's last word.
func (s Segment) End() time.Duration {
	if len(s.Words) == 0 {
		return 0
	}
	return s.Words[len(s.Words)-1].End
}

// Segmentize groups an ordered word sequence into segments, breaking wherever
// the silence between two consecutive words is at least gap. A non-positive
// gap yields a single segment containing every word.
func Segmentize(words []Word, gap time.Duration) []Segment {
	if len(words) == 0 {
		return nil
	}
	var segs []Segment
	current := Segment{Words: []Word{words[0]}}
	for _, w := range words[1:] {
		last := current.Words[len(current.Words)-1]
		if gap > 0 && w.Start-last.End >= gap {
			segs = append(segs, current)
			current = Segment{}
		}
		current.Words = append(current.Words, w)
	}
	segs = append(segs, current)
	return segs
}

// Flatten concatenates the words of the surviving segments back into a single
// ordered word sequence.
func Flatten(segs []Segment) []Word {
	var n int
	for _, s := range segs {
		n += len(s.Words)
	}
	words := make([]Word, 0, n)
	for _, s := range segs {
		words = append(words, s.Words...)
	}
	return words
}
