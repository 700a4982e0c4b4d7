package filter

import (
	"context"
	"fmt"

	"github.com/longscribe/longscribe/pkg/transcript"
)

// Repetition is the safety net behind the smarter filters: it caps how many
// immediately adjacent, textually identical segments survive.
type Repetition struct {
	// MaxConsecutive is how many identical segments in a row are kept.
	// Zero means 2.
	MaxConsecutive int
}

var _ Filter = (*Repetition)(nil)

func (f *Repetition) Name() string { return "generic_repetition" }

func (f *Repetition) Apply(_ context.Context, segs []transcript.Segment) ([]transcript.Segment, []Verdict, error) {
	maxRun := f.MaxConsecutive
	if maxRun <= 0 {
		maxRun = 2
	}

	kept := make([]transcript.Segment, 0, len(segs))
	var verdicts []Verdict
	run := 0
	prev := ""
	for _, s := range segs {
		text := normalizeText(s.Text())
		if text != "" && text == prev {
			run++
		} else {
			run = 1
			prev = text
		}
		if run > maxRun {
			verdicts = append(verdicts, dropVerdict(f.Name(),
				fmt.Sprintf("more than %d consecutive identical segments", maxRun),
				float64(run), s))
			continue
		}
		kept = append(kept, s)
	}
	return kept, verdicts, nil
}
