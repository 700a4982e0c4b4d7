package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/longscribe/longscribe/internal/diag"
	"github.com/longscribe/longscribe/internal/filter"
	"github.com/longscribe/longscribe/internal/invoke"
	"github.com/longscribe/longscribe/internal/preset"
	"github.com/longscribe/longscribe/pkg/asr"
	"github.com/longscribe/longscribe/pkg/asr/mock"
	"github.com/longscribe/longscribe/pkg/audio"
	"github.com/longscribe/longscribe/pkg/transcript"
)

var errBackend = errors.New("backend failure")

func runnerTrack(t *testing.T, d time.Duration) *audio.Track {
	t.Helper()
	track, err := audio.NewTrack(make([]float32, int(d.Seconds()*16000)), 16000)
	if err != nil {
		t.Fatal(err)
	}
	return track
}

// sliceWord returns one distinct word per chunk window, timed relative to the
// slice so the invoker's offsetting is exercised.
func sliceWord(slice audio.Slice) []transcript.Word {
	return []transcript.Word{{
		Text:       fmt.Sprintf("w%d", int(slice.Start.Seconds())),
		Start:      time.Second,
		End:        time.Second + 400*time.Millisecond,
		Confidence: 0.9,
	}}
}

// captureRecorder is an in-memory diag.Recorder.
type captureRecorder struct {
	mu       sync.Mutex
	runID    int64
	info     diag.RunInfo
	chunks   []diag.ChunkOutcome
	verdicts []filter.Verdict
	finished bool
	runErr   error
}

func (c *captureRecorder) StartRun(ctx context.Context, info diag.RunInfo) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runID = 7
	c.info = info
	return c.runID, nil
}

func (c *captureRecorder) RecordChunk(ctx context.Context, runID int64, outcome diag.ChunkOutcome) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunks = append(c.chunks, outcome)
	return nil
}

func (c *captureRecorder) RecordVerdict(ctx context.Context, runID int64, v filter.Verdict, embedding []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verdicts = append(c.verdicts, v)
	return nil
}

func (c *captureRecorder) FinishRun(ctx context.Context, runID int64, runErr error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finished = true
	c.runErr = runErr
	return nil
}

func (c *captureRecorder) Close() {}

func TestRun_ShortTrackSingleChunk(t *testing.T) {
	rec := &mock.Recognizer{Model: "large-v3", Words: []transcript.Word{
		{Text: "hello", Start: time.Second, End: time.Second + 400*time.Millisecond, Confidence: 0.9},
		{Text: "there", Start: 2 * time.Second, End: 2*time.Second + 400*time.Millisecond, Confidence: 0.9},
	}}
	r := NewRunner(invoke.Registry{"large-v3": rec})

	out, report, err := r.Run(context.Background(), Request{
		Track:  runnerTrack(t, 45*time.Second),
		Source: "clip.wav",
		Preset: preset.ShortVideos,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(report.Chunks))
	}
	if got := report.ChunkModels[0]; got != "large-v3" {
		t.Fatalf("chunk model = %q, want large-v3", got)
	}
	if got, want := out.Text(), "hello there"; got != want {
		t.Fatalf("Text() = %q, want %q", got, want)
	}
	if report.FailedChunks != 0 || len(report.Warnings) != 0 {
		t.Fatalf("unexpected degradations: failed=%d warnings=%v",
			report.FailedChunks, report.Warnings)
	}
}

func TestRun_FailedChunkLeavesGap(t *testing.T) {
	rec := &mock.Recognizer{
		Model: "large-v2",
		TranscribeFunc: func(ctx context.Context, slice audio.Slice, params asr.DecodeParams) ([]transcript.Word, error) {
			if slice.Start == 28*time.Second {
				return nil, errBackend
			}
			return sliceWord(slice), nil
		},
	}
	r := NewRunner(invoke.Registry{"large-v2": rec})

	out, report, err := r.Run(context.Background(), Request{
		Track:  runnerTrack(t, 3*time.Minute),
		Preset: preset.Balanced,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.FailedChunks != 1 {
		t.Fatalf("FailedChunks = %d, want 1", report.FailedChunks)
	}
	if len(report.Warnings) != 1 {
		t.Fatalf("Warnings = %v, want one entry", report.Warnings)
	}
	if _, ok := report.ChunkModels[1]; ok {
		t.Fatal("failed chunk should have no model entry")
	}
	// One word per surviving chunk.
	if got, want := len(out.Words), len(report.Chunks)-1; got != want {
		t.Fatalf("words = %d, want %d", got, want)
	}
	for _, w := range out.Words {
		if w.Text == "w28" {
			t.Fatal("failed chunk contributed a word")
		}
	}
}

func TestRun_AllChunksFailedIsFatal(t *testing.T) {
	rec := &mock.Recognizer{Model: "large-v2", Err: errBackend}
	r := NewRunner(invoke.Registry{"large-v2": rec})

	_, _, err := r.Run(context.Background(), Request{
		Track:  runnerTrack(t, 3*time.Minute),
		Preset: preset.Balanced,
	})
	if !errors.Is(err, ErrAllChunksFailed) {
		t.Fatalf("err = %v, want ErrAllChunksFailed", err)
	}
}

func TestRun_SilentTrackWithoutVADIsEmptyTranscript(t *testing.T) {
	// With no detector the whole track is chunked, but the chunks are not
	// confirmed speech. A reachable model reporting silence everywhere must
	// produce an empty transcript, not a failed run.
	rec := &mock.Recognizer{Model: "large-v2", Err: asr.ErrNoSpeech}
	r := NewRunner(invoke.Registry{"large-v2": rec})

	out, report, err := r.Run(context.Background(), Request{
		Track:  runnerTrack(t, 3*time.Minute),
		Preset: preset.Balanced,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Words) != 0 {
		t.Fatalf("words = %v, want none", out.Words)
	}
	if report.FailedChunks != 0 || len(report.Warnings) != 0 {
		t.Fatalf("unexpected degradations: failed=%d warnings=%v",
			report.FailedChunks, report.Warnings)
	}
}

func TestRun_NilTrack(t *testing.T) {
	r := NewRunner(invoke.Registry{"base": &mock.Recognizer{Model: "base"}})
	if _, _, err := r.Run(context.Background(), Request{Preset: preset.Balanced}); err == nil {
		t.Fatal("expected error for nil track")
	}
}

func TestRun_UnknownPreset(t *testing.T) {
	r := NewRunner(invoke.Registry{"base": &mock.Recognizer{Model: "base"}})
	_, _, err := r.Run(context.Background(), Request{
		Track:  runnerTrack(t, 10*time.Second),
		Preset: preset.Name("bogus"),
	})
	if err == nil {
		t.Fatal("expected error for unknown preset")
	}
}

func TestRun_NoRecognizerForChain(t *testing.T) {
	r := NewRunner(invoke.Registry{"unrelated": &mock.Recognizer{Model: "unrelated"}})
	_, _, err := r.Run(context.Background(), Request{
		Track:  runnerTrack(t, 10*time.Second),
		Preset: preset.Balanced,
	})
	if err == nil {
		t.Fatal("expected error when no chain model is registered")
	}
}

func TestRun_DiagnosticsRecorded(t *testing.T) {
	capture := &captureRecorder{}
	rec := &mock.Recognizer{
		Model: "large-v2",
		TranscribeFunc: func(ctx context.Context, slice audio.Slice, params asr.DecodeParams) ([]transcript.Word, error) {
			return sliceWord(slice), nil
		},
	}
	r := NewRunner(invoke.Registry{"large-v2": rec}, WithRecorder(capture))

	_, report, err := r.Run(context.Background(), Request{
		Track:  runnerTrack(t, 3*time.Minute),
		Source: "talk.wav",
		Preset: preset.Balanced,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if capture.info.Source != "talk.wav" || capture.info.Preset != "balanced" {
		t.Fatalf("run info = %+v", capture.info)
	}
	if got, want := len(capture.chunks), len(report.Chunks); got != want {
		t.Fatalf("recorded chunks = %d, want %d", got, want)
	}
	if !capture.finished || capture.runErr != nil {
		t.Fatalf("finished = %v, runErr = %v; want finished with nil error",
			capture.finished, capture.runErr)
	}
}

func TestRun_ExplicitChainOverride(t *testing.T) {
	tiny := &mock.Recognizer{Model: "tiny", Words: []transcript.Word{
		{Text: "pinned", Start: time.Second, End: time.Second + 300*time.Millisecond, Confidence: 0.8},
	}}
	large := &mock.Recognizer{Model: "large-v3"}
	r := NewRunner(invoke.Registry{"tiny": tiny, "large-v3": large})

	_, report, err := r.Run(context.Background(), Request{
		Track:     runnerTrack(t, 45*time.Second),
		Preset:    preset.ShortVideos,
		Overrides: &preset.Overrides{ModelFallbackOrder: []string{"tiny"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := report.ChunkModels[0]; got != "tiny" {
		t.Fatalf("chunk model = %q, want tiny", got)
	}
	if large.CallCount() != 0 {
		t.Fatal("pinned chain should never reach large-v3")
	}
}
