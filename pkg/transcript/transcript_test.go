package transcript

import (
	"strings"
	"testing"
	"time"
)

func word(text string, start time.Duration) Word {
	return Word{Text: text, Start: start, End: start + 400*time.Millisecond, Confidence: 0.9}
}

func TestTranscript_Text(t *testing.T) {
	tr := Transcript{Words: []Word{
		word("hello", 0),
		word("there", time.Second),
	}}
	if got, want := tr.Text(), "hello there"; got != want {
		t.Fatalf("Text() = %q, want %q", got, want)
	}
}

func TestTranscript_Bounds(t *testing.T) {
	tr := Transcript{Words: []Word{
		word("a", 2*time.Second),
		word("b", 5*time.Second),
	}}
	if got, want := tr.Start(), 2*time.Second; got != want {
		t.Fatalf("Start() = %v, want %v", got, want)
	}
	if got, want := tr.End(), 5*time.Second+400*time.Millisecond; got != want {
		t.Fatalf("End() = %v, want %v", got, want)
	}

	var empty Transcript
	if empty.Start() != 0 || empty.End() != 0 {
		t.Fatal("empty transcript should have zero bounds")
	}
}

func TestSegmentize_BreaksAtGaps(t *testing.T) {
	words := []Word{
		word("one", 0),
		word("two", 500*time.Millisecond),
		// 600ms of silence after "two" ends at 900ms.
		word("three", 1500*time.Millisecond),
	}
	segs := Segmentize(words, 500*time.Millisecond)
	if len(segs) != 2 {
		t.Fatalf("segments = %d, want 2", len(segs))
	}
	if got, want := segs[0].Text(), "one two"; got != want {
		t.Fatalf("segment 0 = %q, want %q", got, want)
	}
	if got, want := segs[1].Text(), "three"; got != want {
		t.Fatalf("segment 1 = %q, want %q", got, want)
	}
}

func TestSegmentize_NonPositiveGapKeepsOneSegment(t *testing.T) {
	words := []Word{word("a", 0), word("b", time.Minute)}
	segs := Segmentize(words, 0)
	if len(segs) != 1 || len(segs[0].Words) != 2 {
		t.Fatalf("segments = %+v, want one with both words", segs)
	}
}

func TestSegmentize_Empty(t *testing.T) {
	if segs := Segmentize(nil, time.Second); segs != nil {
		t.Fatalf("Segmentize(nil) = %v, want nil", segs)
	}
}

func TestFlatten_RoundTrip(t *testing.T) {
	words := []Word{
		word("a", 0),
		word("b", 2*time.Second),
		word("c", 4*time.Second),
	}
	got := Flatten(Segmentize(words, time.Second))
	if len(got) != len(words) {
		t.Fatalf("flattened words = %d, want %d", len(got), len(words))
	}
	for i := range words {
		if got[i] != words[i] {
			t.Fatalf("word %d = %+v, want %+v", i, got[i], words[i])
		}
	}
}

func TestWriteSRT_CueFormat(t *testing.T) {
	tr := Transcript{Words: []Word{
		word("hello", 1500*time.Millisecond),
		word("there", 2*time.Second),
		// Long gap starts a second cue.
		word("goodbye", 10*time.Second),
	}}
	var sb strings.Builder
	if err := tr.WriteSRT(&sb, 500*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "1\n00:00:01,500 --> 00:00:02,400\nhello there\n\n" +
		"2\n00:00:10,000 --> 00:00:10,400\ngoodbye\n\n"
	if got := sb.String(); got != want {
		t.Fatalf("srt output:\n%q\nwant:\n%q", got, want)
	}
}

func TestWriteSRT_SplitsLongCues(t *testing.T) {
	var words []Word
	for i := 0; i < 30; i++ {
		words = append(words, word("w", time.Duration(i)*500*time.Millisecond))
	}
	var sb strings.Builder
	if err := (Transcript{Words: words}).WriteSRT(&sb, time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 30 words with no qualifying gap split into cues of at most 12 words.
	if got := strings.Count(sb.String(), "-->"); got != 3 {
		t.Fatalf("cues = %d, want 3", got)
	}
}

func TestWriteSRT_EmptyTranscript(t *testing.T) {
	var sb strings.Builder
	if err := (Transcript{}).WriteSRT(&sb, time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sb.Len() != 0 {
		t.Fatalf("output = %q, want empty", sb.String())
	}
}

func TestSrtTimestamp(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00,000"},
		{1500 * time.Millisecond, "00:00:01,500"},
		{time.Hour + 2*time.Minute + 3*time.Second + 45*time.Millisecond, "01:02:03,045"},
		{-time.Second, "00:00:00,000"},
	}
	for _, tc := range cases {
		if got := srtTimestamp(tc.in); got != tc.want {
			t.Fatalf("srtTimestamp(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
