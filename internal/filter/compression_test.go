package filter

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/longscribe/longscribe/pkg/transcript"
)

func TestCompression_DropsDegenerateRepetition(t *testing.T) {
	f := &Compression{Threshold: 2.4}

	in := []transcript.Segment{
		seg(strings.TrimSpace(strings.Repeat("the ", 12)), 0),
		seg("we walked down to the river in the morning", 10*time.Second),
	}

	kept, verdicts, err := f.Apply(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if !sameTexts(kept, []string{"we walked down to the river in the morning"}) {
		t.Fatalf("kept = %v, want only the natural sentence", segTexts(kept))
	}
	if len(verdicts) != 1 || verdicts[0].Kind != Drop {
		t.Fatalf("verdicts = %+v, want one Drop", verdicts)
	}
	if verdicts[0].Score <= 2.4 {
		t.Fatalf("Score = %v, want > threshold", verdicts[0].Score)
	}
}

func TestCompression_DropsRepeatedPhrase(t *testing.T) {
	f := &Compression{Threshold: 2.4}

	in := []transcript.Segment{
		seg("thanks for watching thanks for watching thanks for watching thanks for watching", 0),
	}

	kept, verdicts, err := f.Apply(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if len(kept) != 0 {
		t.Fatalf("kept = %v, want repeated phrase dropped", segTexts(kept))
	}
	if len(verdicts) != 1 || verdicts[0].Filter != "compression_ratio" {
		t.Fatalf("verdicts = %+v", verdicts)
	}
}

func TestCompression_KeepsNaturalSpeech(t *testing.T) {
	f := &Compression{Threshold: 2.4}

	in := []transcript.Segment{
		seg("so what we are going to do today is look at the data", 0),
		seg("and then we will talk about what it means", 10*time.Second),
	}

	kept, verdicts, err := f.Apply(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if len(kept) != 2 {
		t.Fatalf("kept %d segments, want 2", len(kept))
	}
	for _, v := range verdicts {
		if v.Kind == Drop {
			t.Fatalf("unexpected drop: %+v", v)
		}
	}
}

func TestCompression_AbstainsOnShortSegments(t *testing.T) {
	f := &Compression{Threshold: 2.4}

	// Three tokens, below the default minimum. "no no no" is legitimate
	// speech.
	in := []transcript.Segment{seg("no no no", 0)}

	kept, _, err := f.Apply(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if len(kept) != 1 {
		t.Fatal("short segments must pass through unmeasured")
	}
}

func TestCompression_Idempotent(t *testing.T) {
	f := &Compression{Threshold: 2.4}

	in := []transcript.Segment{
		seg(strings.TrimSpace(strings.Repeat("loop ", 10)), 0),
		seg("ordinary closing sentence with several words", 20*time.Second),
	}

	once, _, err := f.Apply(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	twice, verdicts, err := f.Apply(context.Background(), once)
	if err != nil {
		t.Fatal(err)
	}
	if !sameTexts(twice, segTexts(once)) {
		t.Fatalf("second pass changed output: %v -> %v", segTexts(once), segTexts(twice))
	}
	for _, v := range verdicts {
		if v.Kind == Drop {
			t.Fatalf("second pass dropped: %+v", v)
		}
	}
}

func TestCompression_SuspectIsPerApplication(t *testing.T) {
	f := &Compression{Threshold: 2.5}

	// Ratio about 2.2, inside the near-threshold band: kept but flagged.
	in := []transcript.Segment{
		seg("the meeting is at noon the meeting is at noon the meeting is at noon today okay then", 0),
	}

	once, verdicts, err := f.Apply(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if len(once) != 1 {
		t.Fatalf("kept %d segments, want the suspect segment kept", len(once))
	}
	if len(verdicts) != 1 || verdicts[0].Kind != Suspect {
		t.Fatalf("first pass verdicts = %+v, want one Suspect", verdicts)
	}

	// A surviving suspect is flagged again on every application. Callers
	// must treat the verdicts of each application independently rather
	// than summing them.
	_, verdicts, err = f.Apply(context.Background(), once)
	if err != nil {
		t.Fatal(err)
	}
	if len(verdicts) != 1 || verdicts[0].Kind != Suspect {
		t.Fatalf("second pass verdicts = %+v, want the same single Suspect", verdicts)
	}
}

func TestCompressionRatio_Values(t *testing.T) {
	tests := []struct {
		text string
		min  float64
		max  float64
	}{
		{"a b c d e f", 0.99, 1.01},
		{"go go go go go go go go", 11.4, 11.6},
	}
	for _, tc := range tests {
		got := compressionRatio(strings.Fields(tc.text))
		if got < tc.min || got > tc.max {
			t.Fatalf("compressionRatio(%q) = %v, want in [%v, %v]", tc.text, got, tc.min, tc.max)
		}
	}
}
