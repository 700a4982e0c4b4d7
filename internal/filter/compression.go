package filter

import (
	"context"
	"fmt"
	"strings"

	"github.com/longscribe/longscribe/pkg/transcript"
)

// maxCollapseNGram bounds the phrase length the deduplicator looks for when
// collapsing immediate repeats.
const maxCollapseNGram = 8

// Compression drops segments whose text compresses too well: looped decoding
// emits the same token run over and over, so the ratio of raw length to
// deduplicated length explodes. Everyday speech stays comfortably below 2.
type Compression struct {
	// Threshold is the ratio above which a segment is dropped.
	Threshold float64

	// MinTokens is the segment length below which the filter abstains;
	// very short segments produce meaningless ratios. Zero means 4.
	MinTokens int
}

var _ Filter = (*Compression)(nil)

func (c *Compression) Name() string { return "compression_ratio" }

// Apply measures each segment independently.
func (c *Compression) Apply(_ context.Context, segs []transcript.Segment) ([]transcript.Segment, []Verdict, error) {
	minTokens := c.MinTokens
	if minTokens <= 0 {
		minTokens = 4
	}

	kept := make([]transcript.Segment, 0, len(segs))
	var verdicts []Verdict
	for _, s := range segs {
		toks := tokens(s.Text())
		if len(toks) < minTokens {
			kept = append(kept, s)
			continue
		}
		ratio := compressionRatio(toks)
		switch {
		case ratio > c.Threshold:
			verdicts = append(verdicts, dropVerdict(c.Name(),
				fmt.Sprintf("compression ratio %.2f exceeds %.2f", ratio, c.Threshold),
				ratio, s))
		case ratio > c.Threshold*0.8:
			verdicts = append(verdicts, suspectVerdict(c.Name(),
				fmt.Sprintf("compression ratio %.2f near threshold %.2f", ratio, c.Threshold),
				ratio, s))
			kept = append(kept, s)
		default:
			kept = append(kept, s)
		}
	}
	return kept, verdicts, nil
}

// compressionRatio returns raw length over deduplicated length, where
// deduplication collapses immediately repeated phrases of 1 to
// maxCollapseNGram tokens down to a single occurrence.
func compressionRatio(toks []string) float64 {
	raw := len(strings.Join(toks, " "))
	if raw == 0 {
		return 1
	}
	collapsed := collapseRepeats(toks)
	dedup := len(strings.Join(collapsed, " "))
	if dedup == 0 {
		return 1
	}
	return float64(raw) / float64(dedup)
}

// collapseRepeats removes immediate phrase repeats. Longer phrases are tried
// first so "a b a b a b" collapses to "a b" rather than partially.
func collapseRepeats(toks []string) []string {
	out := make([]string, len(toks))
	copy(out, toks)
	for n := maxCollapseNGram; n >= 1; n-- {
		out = collapseNGram(out, n)
	}
	return out
}

// collapseNGram removes immediate repeats of exactly n-token phrases.
func collapseNGram(toks []string, n int) []string {
	if len(toks) < 2*n {
		return toks
	}
	out := make([]string, 0, len(toks))
	i := 0
	for i < len(toks) {
		out = append(out, toks[i:min(i+n, len(toks))]...)
		j := i + n
		for j+n <= len(toks) && equalRun(toks[i:i+n], toks[j:j+n]) {
			j += n
		}
		i = j
	}
	return out
}

func equalRun(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
