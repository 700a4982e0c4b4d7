package filter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/longscribe/longscribe/internal/observe"
	"github.com/longscribe/longscribe/internal/preset"
	"github.com/longscribe/longscribe/pkg/transcript"
)

// Pipeline runs the enabled filters in their fixed order: compression ratio
// first (cheap, catches the worst artefacts), then semantic similarity, then
// looping patterns, then the generic repetition cap.
type Pipeline struct {
	filters    []Filter
	segmentGap time.Duration
	metrics    *observe.Metrics
}

// Option configures a [Pipeline].
type Option func(*Pipeline)

// WithScorer overrides the semantic filter's similarity scorer. The default
// is [LexicalScorer].
func WithScorer(s Scorer) Option {
	return func(p *Pipeline) {
		for _, f := range p.filters {
			if sem, ok := f.(*Semantic); ok {
				sem.Scorer = s
			}
		}
	}
}

// WithMetrics attaches metric instrumentation.
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline assembles the filter pipeline for a resolved parameter set.
func NewPipeline(p preset.Params, opts ...Option) *Pipeline {
	pl := &Pipeline{segmentGap: p.SegmentGap}
	if p.EnableCompressionFilter {
		pl.filters = append(pl.filters, &Compression{
			Threshold: p.CompressionRatioThreshold,
		})
	}
	if p.EnableSemanticFilter {
		pl.filters = append(pl.filters, &Semantic{
			Scorer:     LexicalScorer{},
			Threshold:  p.SemanticSimilarityThreshold,
			NaturalGap: p.NaturalRepetitionGap,
		})
	}
	if p.EnableLoopingFilter {
		pl.filters = append(pl.filters, &Looping{
			MaxPeriod:  p.MaxLoopPeriod,
			MinRepeats: p.LoopMinRepeats,
			Window:     p.LoopingWindow,
		})
	}
	if p.EnableRepetitionFilter {
		pl.filters = append(pl.filters, &Repetition{
			MaxConsecutive: p.MaxConsecutiveRepetitions,
		})
	}
	for _, opt := range opts {
		opt(pl)
	}
	return pl
}

// Names returns the enabled filter names in execution order.
func (pl *Pipeline) Names() []string {
	names := make([]string, len(pl.filters))
	for i, f := range pl.filters {
		names[i] = f.Name()
	}
	return names
}

// Apply segments the word sequence, runs every enabled filter, and returns
// the surviving words plus the accumulated verdicts. An empty input passes
// through untouched.
//
// Verdicts describe this application only. Dropped content cannot recur, but
// a segment flagged Suspect survives unchanged and is flagged again on a
// re-application, so callers aggregating verdicts across applications must
// not sum Suspect counts.
func (pl *Pipeline) Apply(ctx context.Context, words []transcript.Word) ([]transcript.Word, []Verdict, error) {
	if len(words) == 0 || len(pl.filters) == 0 {
		return words, nil, nil
	}
	if pl.metrics != nil {
		start := time.Now()
		defer func() {
			pl.metrics.FilterDuration.Record(ctx, time.Since(start).Seconds())
		}()
	}

	segs := transcript.Segmentize(words, pl.segmentGap)
	var verdicts []Verdict
	for _, f := range pl.filters {
		kept, vs, err := f.Apply(ctx, segs)
		if err != nil {
			return nil, nil, fmt.Errorf("filter pipeline: %w", err)
		}
		for _, v := range vs {
			if v.Kind == Drop {
				slog.Debug("segment dropped",
					"filter", v.Filter, "reason", v.Reason,
					"start", v.Start, "text", v.Text)
				if pl.metrics != nil {
					pl.metrics.RecordFilterDrop(ctx, v.Filter)
				}
			}
		}
		verdicts = append(verdicts, vs...)
		segs = kept
	}
	return transcript.Flatten(segs), verdicts, nil
}
