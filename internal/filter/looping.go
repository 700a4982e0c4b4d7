package filter

import (
	"context"
	"fmt"

	"github.com/longscribe/longscribe/pkg/transcript"
)

// loopMemberMatch is the fraction of cycle members that must match for two
// cycles to count as repetitions of each other.
const loopMemberMatch = 0.8

// Looping detects short repeating cycles of whole segments, the classic
// stuck-decoder artefact ("A B A B A B ..."), and drops every cycle after
// the first. It complements [Compression], which only sees repeats inside a
// single segment.
type Looping struct {
	// MaxPeriod is the longest cycle length, in segments, considered.
	MaxPeriod int

	// MinRepeats is how many recurrences beyond the first occurrence
	// confirm a loop.
	MinRepeats int

	// Window bounds, in segments, how far past the scan position repeats
	// are searched for. Recurrences beyond the window do not count, so a
	// phrase that resurfaces much later in the track is never mistaken for
	// a stuck decoder.
	Window int
}

var _ Filter = (*Looping)(nil)

func (f *Looping) Name() string { return "looping_pattern" }

// Apply scans left to right. At each position the shortest period that
// yields enough repeats wins, and the scan resumes after the loop.
func (f *Looping) Apply(_ context.Context, segs []transcript.Segment) ([]transcript.Segment, []Verdict, error) {
	maxPeriod := f.MaxPeriod
	if maxPeriod <= 0 {
		maxPeriod = 5
	}
	minRepeats := f.MinRepeats
	if minRepeats <= 0 {
		minRepeats = 2
	}
	window := f.Window
	if window <= 0 {
		window = 16
	}

	texts := make([]string, len(segs))
	for i, s := range segs {
		texts[i] = normalizeText(s.Text())
	}

	kept := make([]transcript.Segment, 0, len(segs))
	var verdicts []Verdict
	i := 0
	for i < len(segs) {
		limit := min(len(segs), i+window)
		period, repeats := 0, 0
		for p := 1; p <= maxPeriod && i+2*p <= limit; p++ {
			r := countRepeats(texts, i, p, limit)
			if r >= minRepeats {
				period, repeats = p, r
				break
			}
		}
		if period == 0 {
			kept = append(kept, segs[i])
			i++
			continue
		}
		// Keep the first cycle, drop the recurrences.
		kept = append(kept, segs[i:i+period]...)
		for j := i + period; j < i+period*(repeats+1); j++ {
			verdicts = append(verdicts, dropVerdict(f.Name(),
				fmt.Sprintf("cycle of %d segment(s) repeated %d times", period, repeats),
				float64(repeats), segs[j]))
		}
		i += period * (repeats + 1)
	}
	return kept, verdicts, nil
}

// countRepeats returns how many times the cycle texts[start:start+period]
// immediately recurs after its first occurrence, looking no further than
// limit. Two cycles match when at least loopMemberMatch of their members are
// textually equal.
func countRepeats(texts []string, start, period, limit int) int {
	repeats := 0
	for next := start + period; next+period <= limit; next += period {
		matches := 0
		for k := 0; k < period; k++ {
			if texts[start+k] != "" && texts[start+k] == texts[next+k] {
				matches++
			}
		}
		if float64(matches) < loopMemberMatch*float64(period) {
			break
		}
		repeats++
	}
	return repeats
}
