package vad

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/longscribe/longscribe/pkg/audio"
	"github.com/longscribe/longscribe/pkg/transcript"
)

// Silero VAD model constants: the model consumes fixed windows of 512
// samples at 16 kHz (32 ms) with 64 samples of context from the previous
// window, and threads an LSTM state of shape [2, 1, 128] between windows.
const (
	sileroSampleRate  = 16000
	sileroWindowSize  = 512
	sileroContextSize = 64
	sileroStateSize   = 2 * 1 * 128
)

var (
	onnxInitMu      sync.Mutex
	onnxInitialized bool
)

// initONNXRuntime initialises the ONNX Runtime environment once per process.
// The shared library location can be overridden via
// ONNXRUNTIME_SHARED_LIBRARY_PATH.
func initONNXRuntime() error {
	onnxInitMu.Lock()
	defer onnxInitMu.Unlock()

	if onnxInitialized {
		return nil
	}
	if libPath := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"); libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialise onnx runtime: %w", err)
	}
	onnxInitialized = true
	return nil
}

// Compile-time assertion that Silero satisfies Strategy.
var _ Strategy = (*Silero)(nil)

// Silero is the neural VAD strategy. The ONNX session is created once and
// reused across runs; Detect serialises inference because the LSTM state is
// per-call.
type Silero struct {
	session *ort.DynamicAdvancedSession
	mu      sync.Mutex
}

// NewSilero loads the Silero VAD ONNX model at modelPath. Construction fails
// when the model file is missing or ONNX Runtime cannot be initialised; the
// caller is expected to fall back to the energy strategy in that case.
func NewSilero(modelPath string) (*Silero, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("silero: model file: %w", err)
	}
	if err := initONNXRuntime(); err != nil {
		return nil, fmt.Errorf("silero: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("silero: session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{"input", "state", "sr"},
		[]string{"output", "stateN"},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("silero: create session: %w", err)
	}
	return &Silero{session: session}, nil
}

// Name implements Strategy.
func (s *Silero) Name() string { return "silero" }

// Close releases the ONNX session.
func (s *Silero) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
	return nil
}

// Detect implements Strategy. The track must be sampled at 16 kHz; other
// rates are rejected so the energy fallback takes over rather than silently
// misclassifying.
func (s *Silero) Detect(ctx context.Context, track *audio.Track, cfg Config) ([]transcript.SpeechRegion, error) {
	if track.SampleRate() != sileroSampleRate {
		return nil, fmt.Errorf("silero: track sample rate %d, need %d", track.SampleRate(), sileroSampleRate)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, fmt.Errorf("silero: session closed")
	}

	samples := track.Samples()
	state := make([]float32, sileroStateSize)
	contextTail := make([]float32, sileroContextSize)
	window := make([]float32, sileroWindowSize)

	frame := time.Duration(sileroWindowSize) * time.Second / sileroSampleRate
	probs := make([]float64, 0, len(samples)/sileroWindowSize+1)

	for off := 0; off < len(samples); off += sileroWindowSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range window {
			window[i] = 0
		}
		copy(window, samples[off:min(off+sileroWindowSize, len(samples))])

		prob, err := s.inferWindow(window, state, contextTail)
		if err != nil {
			return nil, err
		}
		probs = append(probs, float64(prob))
	}

	return formRegions(probs, frame, track.Duration(), cfg), nil
}

// inferWindow runs one 512-sample window through the model, updating the
// LSTM state and the 64-sample context tail in place.
func (s *Silero) inferWindow(window, state, contextTail []float32) (float32, error) {
	input := make([]float32, sileroContextSize+len(window))
	copy(input[:sileroContextSize], contextTail)
	copy(input[sileroContextSize:], window)
	copy(contextTail, window[len(window)-sileroContextSize:])

	inputTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(input))), input)
	if err != nil {
		return 0, fmt.Errorf("silero: input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	stateTensor, err := ort.NewTensor(ort.NewShape(2, 1, 128), state)
	if err != nil {
		return 0, fmt.Errorf("silero: state tensor: %w", err)
	}
	defer stateTensor.Destroy()

	srTensor, err := ort.NewTensor(ort.NewShape(1), []int64{sileroSampleRate})
	if err != nil {
		return 0, fmt.Errorf("silero: sr tensor: %w", err)
	}
	defer srTensor.Destroy()

	outputs := []ort.Value{nil, nil}
	if err := s.session.Run([]ort.Value{inputTensor, stateTensor, srTensor}, outputs); err != nil {
		return 0, fmt.Errorf("silero: inference: %w", err)
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	probData := outputs[0].(*ort.Tensor[float32]).GetData()
	copy(state, outputs[1].(*ort.Tensor[float32]).GetData())

	if len(probData) == 0 {
		return 0, fmt.Errorf("silero: empty model output")
	}
	return probData[0], nil
}
