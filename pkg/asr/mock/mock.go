// Package mock provides a scriptable [asr.Recognizer] for tests.
package mock

import (
	"context"
	"sync"

	"github.com/longscribe/longscribe/pkg/asr"
	"github.com/longscribe/longscribe/pkg/audio"
	"github.com/longscribe/longscribe/pkg/transcript"
)

// Compile-time assertion that Recognizer satisfies asr.Recognizer.
var _ asr.Recognizer = (*Recognizer)(nil)

// Call records one Transcribe invocation.
type Call struct {
	Slice  audio.Slice
	Params asr.DecodeParams
}

// Recognizer is a scriptable recogniser. Set TranscribeFunc to control
// behaviour per call; when nil, Words and Err are returned for every call.
//
// Safe for concurrent use.
type Recognizer struct {
	// Model is returned by ModelID. Defaults to "mock".
	Model string

	// TranscribeFunc, when set, handles every Transcribe call.
	TranscribeFunc func(ctx context.Context, slice audio.Slice, params asr.DecodeParams) ([]transcript.Word, error)

	// Words and Err are the fixed response used when TranscribeFunc is nil.
	Words []transcript.Word
	Err   error

	mu    sync.Mutex
	calls []Call
}

// ModelID implements asr.Recognizer.
func (r *Recognizer) ModelID() string {
	if r.Model == "" {
		return "mock"
	}
	return r.Model
}

// Transcribe implements asr.Recognizer.
func (r *Recognizer) Transcribe(ctx context.Context, slice audio.Slice, params asr.DecodeParams) ([]transcript.Word, error) {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Slice: slice, Params: params})
	r.mu.Unlock()

	if r.TranscribeFunc != nil {
		return r.TranscribeFunc(ctx, slice, params)
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Words, nil
}

// Calls returns a copy of every recorded invocation.
func (r *Recognizer) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// CallCount returns the number of Transcribe invocations so far.
func (r *Recognizer) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}
