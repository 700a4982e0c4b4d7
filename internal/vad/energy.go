package vad

import (
	"context"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/longscribe/longscribe/pkg/audio"
	"github.com/longscribe/longscribe/pkg/transcript"
)

// energyFrame is the short-time window over which energy is accumulated.
const energyFrame = 100 * time.Millisecond

// Compile-time assertion that Energy satisfies Strategy.
var _ Strategy = (*Energy)(nil)

// Energy is the fallback VAD strategy: short-time energy per 100 ms window,
// mapped to a pseudo-probability against an adaptive threshold taken at the
// 30th percentile of the track's energy distribution. It needs no model
// assets and no network, so it cannot fail except on cancellation, which is
// what a last-resort strategy needs.
type Energy struct{}

// NewEnergy returns the energy-based strategy.
func NewEnergy() *Energy { return &Energy{} }

// Name implements Strategy.
func (e *Energy) Name() string { return "energy" }

// Detect implements Strategy.
func (e *Energy) Detect(ctx context.Context, track *audio.Track, cfg Config) ([]transcript.SpeechRegion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	samples := track.Samples()
	hop := int(int64(track.SampleRate()) * int64(energyFrame) / int64(time.Second))
	if hop <= 0 {
		hop = 1
	}

	energies := make([]float64, 0, len(samples)/hop+1)
	for off := 0; off < len(samples); off += hop {
		end := off + hop
		if end > len(samples) {
			end = len(samples)
		}
		var sum float64
		for _, v := range samples[off:end] {
			sum += float64(v) * float64(v)
		}
		energies = append(energies, sum)
	}
	if len(energies) == 0 {
		return nil, nil
	}

	// Adaptive floor: the 30th percentile separates background noise from
	// speech well enough for a fallback path.
	sorted := append([]float64(nil), energies...)
	sort.Float64s(sorted)
	floor := stat.Quantile(0.30, stat.Empirical, sorted, nil)

	// Map each window's energy to a probability proxy so the shared
	// region-forming pass can threshold it like the neural output.
	probs := make([]float64, len(energies))
	for i, en := range energies {
		if en > floor {
			probs[i] = 1.0
		}
	}

	// The proxy is binary, so any aggressiveness threshold in (0, 1] works
	// with the same semantics as the neural path.
	effCfg := cfg
	if effCfg.Threshold <= 0 || effCfg.Threshold > 1 {
		effCfg.Threshold = 0.5
	}
	// 100 ms windows are far coarser than the neural path's frames; widen the
	// region-forming floors so single-window flicker does not fragment speech.
	effCfg.MinSilence = max(effCfg.MinSilence, time.Second)
	effCfg.MinSpeech = max(effCfg.MinSpeech, 300*time.Millisecond)

	return formRegions(probs, energyFrame, track.Duration(), effCfg), nil
}
