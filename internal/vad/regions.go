package vad

import (
	"time"

	"github.com/longscribe/longscribe/pkg/transcript"
)

// formRegions turns per-frame speech probabilities into speech regions. The
// same post-pass serves both strategies: threshold each frame, close a
// region only after cfg.MinSilence of consecutive non-speech, pad region
// boundaries outward by cfg.SpeechPad clamped to [0, total], then drop
// regions shorter than cfg.MinSpeech. Adjacent regions whose padded
// boundaries touch are merged.
func formRegions(probs []float64, frame time.Duration, total time.Duration, cfg Config) []transcript.SpeechRegion {
	if len(probs) == 0 {
		return nil
	}

	minSilenceFrames := int(cfg.MinSilence / frame)
	if minSilenceFrames < 1 {
		minSilenceFrames = 1
	}

	var raw []transcript.SpeechRegion
	var inSpeech bool
	var start time.Duration
	silenceRun := 0

	for i, p := range probs {
		at := time.Duration(i) * frame
		if p >= cfg.Threshold {
			if !inSpeech {
				inSpeech = true
				start = at
			}
			silenceRun = 0
			continue
		}
		if !inSpeech {
			continue
		}
		silenceRun++
		if silenceRun >= minSilenceFrames {
			end := at - time.Duration(silenceRun-1)*frame
			raw = append(raw, transcript.SpeechRegion{Start: start, End: end})
			inSpeech = false
			silenceRun = 0
		}
	}
	if inSpeech {
		raw = append(raw, transcript.SpeechRegion{Start: start, End: total})
	}

	// Pad, clamp, merge, and apply the minimum-duration floor.
	var out []transcript.SpeechRegion
	for _, r := range raw {
		r.Start -= cfg.SpeechPad
		r.End += cfg.SpeechPad
		if r.Start < 0 {
			r.Start = 0
		}
		if r.End > total {
			r.End = total
		}
		if len(out) > 0 && r.Start <= out[len(out)-1].End {
			out[len(out)-1].End = r.End
			continue
		}
		out = append(out, r)
	}

	filtered := out[:0]
	for _, r := range out {
		if r.Duration() >= cfg.MinSpeech {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
