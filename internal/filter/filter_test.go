package filter

import (
	"strings"
	"time"

	"github.com/longscribe/longscribe/pkg/transcript"
)

// seg builds a test segment from space-separated text, placing one word per
// 500ms starting at start.
func seg(text string, start time.Duration) transcript.Segment {
	var words []transcript.Word
	at := start
	for _, tok := range strings.Fields(text) {
		words = append(words, transcript.Word{
			Text:       tok,
			Start:      at,
			End:        at + 400*time.Millisecond,
			Confidence: 0.9,
		})
		at += 500 * time.Millisecond
	}
	return transcript.Segment{Words: words}
}

// segTexts extracts the segment texts for comparison.
func segTexts(segs []transcript.Segment) []string {
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = s.Text()
	}
	return out
}

func sameTexts(a []transcript.Segment, want []string) bool {
	if len(a) != len(want) {
		return false
	}
	for i := range want {
		if a[i].Text() != want[i] {
			return false
		}
	}
	return true
}
