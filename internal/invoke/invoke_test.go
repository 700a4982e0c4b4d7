package invoke

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/longscribe/longscribe/internal/preset"
	"github.com/longscribe/longscribe/internal/resilience"
	"github.com/longscribe/longscribe/pkg/asr"
	"github.com/longscribe/longscribe/pkg/asr/mock"
	"github.com/longscribe/longscribe/pkg/audio"
	"github.com/longscribe/longscribe/pkg/transcript"
)

var errBackend = errors.New("backend failure")

func balancedParams(t *testing.T) preset.Params {
	t.Helper()
	p, err := preset.Lookup(preset.Balanced)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func invokerTrack(t *testing.T, d time.Duration) *audio.Track {
	t.Helper()
	track, err := audio.NewTrack(make([]float32, int(d.Seconds()*16000)), 16000)
	if err != nil {
		t.Fatal(err)
	}
	return track
}

func words(texts ...string) []transcript.Word {
	out := make([]transcript.Word, len(texts))
	for i, txt := range texts {
		out[i] = transcript.Word{
			Text:       txt,
			Start:      time.Duration(i) * time.Second,
			End:        time.Duration(i)*time.Second + 500*time.Millisecond,
			Confidence: 0.9,
		}
	}
	return out
}

func TestNew_ChainFilteredByRegistry(t *testing.T) {
	reg := Registry{
		"large-v2": &mock.Recognizer{Model: "large-v2"},
		"medium":   &mock.Recognizer{Model: "medium"},
	}
	inv, err := New(reg, balancedParams(t), 3*time.Minute, nil, Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := inv.Models()
	want := []string{"large-v2", "medium"}
	if len(got) != len(want) {
		t.Fatalf("Models() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Models()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNew_ExplicitChainPins(t *testing.T) {
	reg := Registry{
		"tiny":  &mock.Recognizer{Model: "tiny"},
		"large": &mock.Recognizer{Model: "large"},
	}
	inv, err := New(reg, balancedParams(t), time.Minute, nil, Config{Chain: []string{"tiny"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := inv.Models(); len(got) != 1 || got[0] != "tiny" {
		t.Fatalf("Models() = %v, want [tiny]", got)
	}
}

func TestNew_EmptyChainErrors(t *testing.T) {
	reg := Registry{"unrelated": &mock.Recognizer{Model: "unrelated"}}
	if _, err := New(reg, balancedParams(t), time.Minute, nil, Config{}); err == nil {
		t.Fatal("expected error when no chain model is registered")
	}
}

func TestTranscribeChunk_OffsetsToTrackTimeline(t *testing.T) {
	reg := Registry{"large-v2": &mock.Recognizer{Model: "large-v2", Words: words("hello", "world")}}
	inv, err := New(reg, balancedParams(t), 3*time.Minute, nil, Config{})
	if err != nil {
		t.Fatal(err)
	}

	ch := transcript.Chunk{Index: 1, Start: 30 * time.Second, End: 60 * time.Second}
	res, err := inv.TranscribeChunk(context.Background(), invokerTrack(t, time.Minute), ch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Model != "large-v2" {
		t.Fatalf("Model = %q, want large-v2", res.Model)
	}
	if got, want := res.Words[0].Start, 30*time.Second; got != want {
		t.Fatalf("first word Start = %v, want %v", got, want)
	}
	if got, want := res.Words[1].Start, 31*time.Second; got != want {
		t.Fatalf("second word Start = %v, want %v", got, want)
	}
}

func TestTranscribeChunk_RepairsZeroLengthWords(t *testing.T) {
	zero := []transcript.Word{{Text: "blip", Start: 2 * time.Second, End: 2 * time.Second, Confidence: 0.5}}
	reg := Registry{"large-v2": &mock.Recognizer{Model: "large-v2", Words: zero}}
	inv, err := New(reg, balancedParams(t), 3*time.Minute, nil, Config{})
	if err != nil {
		t.Fatal(err)
	}

	ch := transcript.Chunk{Start: 30 * time.Second, End: 60 * time.Second}
	res, err := inv.TranscribeChunk(context.Background(), invokerTrack(t, time.Minute), ch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w := res.Words[0]
	if got, want := w.Start, 32*time.Second; got != want {
		t.Fatalf("Start = %v, want %v", got, want)
	}
	if got, want := w.End, 32*time.Second+10*time.Millisecond; got != want {
		t.Fatalf("End = %v, want %v", got, want)
	}
}

func TestTranscribeChunk_FallsBackOnError(t *testing.T) {
	primary := &mock.Recognizer{Model: "large-v2", Err: errBackend}
	fallback := &mock.Recognizer{Model: "medium", Words: words("rescued")}
	reg := Registry{"large-v2": primary, "medium": fallback}

	inv, err := New(reg, balancedParams(t), 3*time.Minute, nil, Config{})
	if err != nil {
		t.Fatal(err)
	}

	ch := transcript.Chunk{Start: 0, End: 30 * time.Second}
	res, err := inv.TranscribeChunk(context.Background(), invokerTrack(t, time.Minute), ch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Model != "medium" {
		t.Fatalf("Model = %q, want medium", res.Model)
	}
	// One initial attempt plus one retry before advancing.
	if got := primary.CallCount(); got != 2 {
		t.Fatalf("primary calls = %d, want 2", got)
	}
}

func TestTranscribeChunk_NoSpeechInSilentWindowIsEmpty(t *testing.T) {
	primary := &mock.Recognizer{Model: "large-v2", Err: asr.ErrNoSpeech}
	fallback := &mock.Recognizer{Model: "medium", Words: words("noise")}
	reg := Registry{"large-v2": primary, "medium": fallback}

	speech := []transcript.SpeechRegion{{Start: 40 * time.Second, End: 50 * time.Second}}
	inv, err := New(reg, balancedParams(t), time.Minute, speech, Config{})
	if err != nil {
		t.Fatal(err)
	}

	// The chunk window lies entirely outside the detected speech.
	ch := transcript.Chunk{Start: 0, End: 30 * time.Second}
	res, err := inv.TranscribeChunk(context.Background(), invokerTrack(t, time.Minute), ch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Words) != 0 {
		t.Fatalf("Words = %v, want none", res.Words)
	}
	if got := fallback.CallCount(); got != 0 {
		t.Fatalf("fallback calls = %d, want 0", got)
	}
}

func TestTranscribeChunk_NoSpeechOverSpeechIsFailure(t *testing.T) {
	primary := &mock.Recognizer{Model: "large-v2", Err: asr.ErrNoSpeech}
	fallback := &mock.Recognizer{Model: "medium", Words: words("heard", "you")}
	reg := Registry{"large-v2": primary, "medium": fallback}

	speech := []transcript.SpeechRegion{{Start: 5 * time.Second, End: 25 * time.Second}}
	inv, err := New(reg, balancedParams(t), time.Minute, speech, Config{})
	if err != nil {
		t.Fatal(err)
	}

	ch := transcript.Chunk{Start: 0, End: 30 * time.Second}
	res, err := inv.TranscribeChunk(context.Background(), invokerTrack(t, time.Minute), ch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Model != "medium" {
		t.Fatalf("Model = %q, want medium", res.Model)
	}
	if len(res.Words) != 2 {
		t.Fatalf("Words = %v, want two", res.Words)
	}
}

func TestTranscribeChunk_ExhaustionLeavesGap(t *testing.T) {
	reg := Registry{
		"large-v2": &mock.Recognizer{Model: "large-v2", Err: errBackend},
		"medium":   &mock.Recognizer{Model: "medium", Err: errBackend},
	}
	inv, err := New(reg, balancedParams(t), 3*time.Minute, nil, Config{})
	if err != nil {
		t.Fatal(err)
	}

	ch := transcript.Chunk{Index: 3, Start: 0, End: 30 * time.Second}
	res, err := inv.TranscribeChunk(context.Background(), invokerTrack(t, time.Minute), ch)
	if !errors.Is(err, resilience.ErrChainExhausted) {
		t.Fatalf("err = %v, want ErrChainExhausted", err)
	}
	if res.Chunk.Index != 3 || len(res.Words) != 0 {
		t.Fatalf("result = %+v, want chunk 3 with no words", res)
	}
}
