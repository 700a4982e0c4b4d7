package filter

import (
	"context"
	"testing"
	"time"

	"github.com/longscribe/longscribe/pkg/transcript"
)

func TestLexicalScorer_IdenticalText(t *testing.T) {
	score, err := LexicalScorer{}.Score(context.Background(), "hello there friend", "hello there friend")
	if err != nil {
		t.Fatal(err)
	}
	if score < 0.99 {
		t.Fatalf("score = %v, want ~1.0 for identical text", score)
	}
}

func TestLexicalScorer_UnrelatedText(t *testing.T) {
	score, err := LexicalScorer{}.Score(context.Background(),
		"the weather is lovely today",
		"quarterly revenue exceeded projections")
	if err != nil {
		t.Fatal(err)
	}
	if score > 0.6 {
		t.Fatalf("score = %v, want well below threshold for unrelated text", score)
	}
}

func TestLexicalScorer_EmptyText(t *testing.T) {
	score, err := LexicalScorer{}.Score(context.Background(), "", "anything")
	if err != nil {
		t.Fatal(err)
	}
	if score != 0 {
		t.Fatalf("score = %v, want 0 for empty text", score)
	}
}

func TestSemantic_DropsAdjacentNearDuplicate(t *testing.T) {
	f := &Semantic{Threshold: 0.8, NaturalGap: 3 * time.Second}

	in := []transcript.Segment{
		seg("and that is how the system works", 0),
		// Immediately after, near-verbatim: a decoding echo.
		seg("and that is how the system works", 4500*time.Millisecond),
		seg("next we look at the failure modes", 9*time.Second),
	}

	kept, verdicts, err := f.Apply(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if len(kept) != 2 {
		t.Fatalf("kept = %v, want the echo dropped", segTexts(kept))
	}
	if len(verdicts) != 1 || verdicts[0].Kind != Drop {
		t.Fatalf("verdicts = %+v, want one Drop", verdicts)
	}
}

func TestSemantic_NaturalRepetitionAfterPauseKept(t *testing.T) {
	f := &Semantic{Threshold: 0.8, NaturalGap: 3 * time.Second}

	first := seg("ladies and gentlemen please welcome our guest", 0)
	// The same sentence again, but after a long pause: an intentional
	// repeat, not an artefact.
	second := seg("ladies and gentlemen please welcome our guest", first.End()+5*time.Second)

	kept, verdicts, err := f.Apply(context.Background(), []transcript.Segment{first, second})
	if err != nil {
		t.Fatal(err)
	}
	if len(kept) != 2 {
		t.Fatalf("kept = %v, want both (repeat after pause is natural)", segTexts(kept))
	}
	if len(verdicts) != 1 || verdicts[0].Kind != Suspect {
		t.Fatalf("verdicts = %+v, want one Suspect flag", verdicts)
	}
}

func TestSemantic_ComparesAgainstLastSurvivor(t *testing.T) {
	f := &Semantic{Threshold: 0.8, NaturalGap: 3 * time.Second}

	base := seg("we should focus on the main problem", 0)
	echo1 := seg("we should focus on the main problem", base.End()+500*time.Millisecond)
	echo2 := seg("we should focus on the main problem", base.End()+1500*time.Millisecond)

	kept, verdicts, err := f.Apply(context.Background(), []transcript.Segment{base, echo1, echo2})
	if err != nil {
		t.Fatal(err)
	}
	if len(kept) != 1 {
		t.Fatalf("kept = %v, want both echoes dropped against the survivor", segTexts(kept))
	}
	if len(verdicts) != 2 {
		t.Fatalf("got %d verdicts, want 2", len(verdicts))
	}
}

func TestSemantic_SingleSegmentPassthrough(t *testing.T) {
	f := &Semantic{Threshold: 0.8, NaturalGap: 3 * time.Second}

	in := []transcript.Segment{seg("just one segment here", 0)}
	kept, verdicts, err := f.Apply(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if len(kept) != 1 || len(verdicts) != 0 {
		t.Fatalf("kept = %v, verdicts = %v", segTexts(kept), verdicts)
	}
}
