package filter

import (
	"context"
	"fmt"
	"time"

	"github.com/antzucaro/matchr"

	"github.com/longscribe/longscribe/pkg/embeddings"
	"github.com/longscribe/longscribe/pkg/transcript"
)

// Scorer measures similarity between two segment texts in [0, 1].
type Scorer interface {
	Score(ctx context.Context, a, b string) (float64, error)
}

// LexicalScorer is the default [Scorer]: a blend of Jaro-Winkler string
// similarity and token-set Jaccard overlap. It needs no network and catches
// the near-verbatim repeats that decoding loops produce.
type LexicalScorer struct{}

var _ Scorer = LexicalScorer{}

// Score blends character-level and token-level similarity, weighting
// Jaro-Winkler at 0.6 because loops tend to repeat verbatim rather than
// paraphrase.
func (LexicalScorer) Score(_ context.Context, a, b string) (float64, error) {
	na, nb := normalizeText(a), normalizeText(b)
	if na == "" || nb == "" {
		return 0, nil
	}
	jw := matchr.JaroWinkler(na, nb, true)
	jac := jaccard(tokens(a), tokens(b))
	return 0.6*jw + 0.4*jac, nil
}

// jaccard returns token-set intersection over union.
func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	union := len(set)
	var inter int
	seen := make(map[string]struct{}, len(b))
	for _, t := range b {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := set[t]; ok {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}

// EmbeddingScorer scores similarity as the cosine of embedding vectors. It
// catches paraphrased repeats the lexical scorer misses, at the cost of a
// provider round trip per comparison.
type EmbeddingScorer struct {
	Provider embeddings.Provider
}

var _ Scorer = (*EmbeddingScorer)(nil)

func (e *EmbeddingScorer) Score(ctx context.Context, a, b string) (float64, error) {
	vecs, err := e.Provider.EmbedBatch(ctx, []string{a, b})
	if err != nil {
		return 0, fmt.Errorf("embedding score: %w", err)
	}
	if len(vecs) != 2 {
		return 0, fmt.Errorf("embedding score: got %d vectors, want 2", len(vecs))
	}
	// Cosine is in [-1, 1]; clamp the negative half to 0 since "opposite"
	// and "unrelated" are the same for this purpose.
	cos := embeddings.Cosine(vecs[0], vecs[1])
	if cos < 0 {
		cos = 0
	}
	return cos, nil
}

// Semantic drops a segment that is too similar to the previous surviving
// segment. Speakers do legitimately repeat themselves after a pause, so
// near-duplicates separated by at least NaturalGap are exempted and only
// flagged.
type Semantic struct {
	Scorer Scorer

	// Threshold is the similarity above which an adjacent repeat is
	// dropped.
	Threshold float64

	// NaturalGap is the silence between segments beyond which a repeat is
	// considered intentional.
	NaturalGap time.Duration
}

var _ Filter = (*Semantic)(nil)

func (f *Semantic) Name() string { return "semantic_similarity" }

// Apply walks the sequence comparing each segment to the last survivor.
func (f *Semantic) Apply(ctx context.Context, segs []transcript.Segment) ([]transcript.Segment, []Verdict, error) {
	if len(segs) < 2 {
		return segs, nil, nil
	}
	scorer := f.Scorer
	if scorer == nil {
		scorer = LexicalScorer{}
	}

	kept := make([]transcript.Segment, 0, len(segs))
	kept = append(kept, segs[0])
	var verdicts []Verdict
	for _, s := range segs[1:] {
		prev := kept[len(kept)-1]
		score, err := scorer.Score(ctx, prev.Text(), s.Text())
		if err != nil {
			return nil, nil, fmt.Errorf("filter %s: %w", f.Name(), err)
		}
		if score <= f.Threshold {
			kept = append(kept, s)
			continue
		}
		gap := s.Start() - prev.End()
		if gap > f.NaturalGap {
			verdicts = append(verdicts, suspectVerdict(f.Name(),
				fmt.Sprintf("similarity %.2f after %.1fs pause, kept as natural repetition", score, gap.Seconds()),
				score, s))
			kept = append(kept, s)
			continue
		}
		verdicts = append(verdicts, dropVerdict(f.Name(),
			fmt.Sprintf("similarity %.2f to previous segment exceeds %.2f", score, f.Threshold),
			score, s))
	}
	return kept, verdicts, nil
}
