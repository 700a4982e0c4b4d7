// Package filter implements the hallucination filter pipeline that runs over
// the merged transcript.
//
// Degenerate decoding produces recognisable artefacts: text that compresses
// suspiciously well, near-identical neighbouring segments, short repeating
// cycles, and plain adjacent duplicates. Each artefact gets its own filter,
// and [Pipeline] runs the enabled ones in a fixed order. Every removal is
// documented by a [Verdict] so callers can audit what was cut and why; a
// transcript that survives a pass unchanged survives any further pass
// unchanged too.
package filter

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/longscribe/longscribe/pkg/transcript"
)

// Kind classifies a [Verdict].
type Kind int

const (
	// Keep marks a segment that passed every check.
	Keep Kind = iota

	// Suspect marks a segment that came close to a threshold but was
	// retained.
	Suspect

	// Drop marks a removed segment.
	Drop
)

func (k Kind) String() string {
	switch k {
	case Keep:
		return "keep"
	case Suspect:
		return "suspect"
	case Drop:
		return "drop"
	}
	return "unknown"
}

// Verdict records one filter decision about one segment. Only Suspect and
// Drop decisions are emitted; untouched segments produce no verdict.
type Verdict struct {
	Kind   Kind
	Filter string
	Reason string

	// Score is the measured value that triggered the decision, in the
	// triggering filter's own unit.
	Score float64

	Start time.Duration
	End   time.Duration
	Text  string
}

// Filter inspects a segment sequence and returns the surviving segments plus
// verdicts for everything it cut or flagged. Implementations must not mutate
// the input slice and must be idempotent: applying a filter to its own
// output cuts nothing further.
type Filter interface {
	Name() string
	Apply(ctx context.Context, segs []transcript.Segment) ([]transcript.Segment, []Verdict, error)
}

// dropVerdict builds a Drop verdict for a segment.
func dropVerdict(filter, reason string, score float64, s transcript.Segment) Verdict {
	return Verdict{
		Kind:   Drop,
		Filter: filter,
		Reason: reason,
		Score:  score,
		Start:  s.Start(),
		End:    s.End(),
		Text:   s.Text(),
	}
}

// suspectVerdict builds a Suspect verdict for a segment.
func suspectVerdict(filter, reason string, score float64, s transcript.Segment) Verdict {
	v := dropVerdict(filter, reason, score, s)
	v.Kind = Suspect
	return v
}

// normalizeText lowercases s and strips punctuation, collapsing runs of
// whitespace, so that cosmetic differences don't defeat equality checks.
func normalizeText(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// tokens splits normalised text into fields.
func tokens(s string) []string {
	return strings.Fields(normalizeText(s))
}
