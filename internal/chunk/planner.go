// Package chunk turns a track duration, the detected speech regions and the
// resolved preset into an ordered sequence of overlapping chunk windows.
//
// The planner guarantees two invariants regardless of input: the union of
// the planned windows covers [0, total] with no gaps, and no emitted chunk is
// shorter than the preset's minimum floor (too-short tails are merged into
// their predecessor instead). Cut points prefer mid-silence over mid-word:
// each ideal cut is snapped to the nearest silence gap within the snap
// window, and left untouched when no silence is nearby.
package chunk

import (
	"time"

	"github.com/longscribe/longscribe/internal/preset"
	"github.com/longscribe/longscribe/pkg/transcript"
)

// Plan computes the chunk windows for a track. Short tracks (at or below the
// preset's chunking threshold) yield exactly one chunk spanning the whole
// track with no overlap handling at all.
func Plan(total time.Duration, regions []transcript.SpeechRegion, p preset.Params) []transcript.Chunk {
	if total <= 0 {
		return nil
	}
	if !p.UseChunking(total) || total <= p.ChunkLength {
		return []transcript.Chunk{{Index: 0, Start: 0, End: total}}
	}

	gaps := silenceGaps(regions, total)

	length := p.ChunkLength
	overlap := p.Overlap
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= length {
		// Degenerate configuration; fall back to a sane stride.
		overlap = length / 4
	}

	var chunks []transcript.Chunk
	start := time.Duration(0)
	for start < total {
		end := start + length
		if end >= total {
			end = total
		} else {
			end = snapToSilence(end, gaps, p.SnapWindow, start+p.MinChunkDuration, total)
		}

		// A remaining tail shorter than the floor is absorbed into this
		// chunk rather than emitted on its own.
		if total-end < p.MinChunkDuration {
			end = total
		}

		chunks = append(chunks, transcript.Chunk{
			Index: len(chunks),
			Start: start,
			End:   end,
		})
		if end >= total {
			break
		}
		// Stepping back by the overlap must still make forward progress. A
		// large overlap combined with a snap that moved the cut backwards can
		// otherwise put the next start at or before the current one.
		next := end - overlap
		if next <= start {
			next = min(start+p.MinChunkDuration, end)
		}
		if next <= start {
			next = end
		}
		start = next
	}

	annotateOverlaps(chunks)
	return chunks
}

// annotateOverlaps fills in the OverlapPrev/OverlapNext bookkeeping the
// merger relies on.
func annotateOverlaps(chunks []transcript.Chunk) {
	for i := range chunks {
		if i > 0 {
			chunks[i].OverlapPrev = chunks[i-1].End - chunks[i].Start
			if chunks[i].OverlapPrev < 0 {
				chunks[i].OverlapPrev = 0
			}
		}
		if i < len(chunks)-1 {
			chunks[i].OverlapNext = chunks[i].End - chunks[i+1].Start
			if chunks[i].OverlapNext < 0 {
				chunks[i].OverlapNext = 0
			}
		}
	}
}

// silenceGaps returns the complement of the speech regions within
// [0, total]: the intervals where cutting is safe.
func silenceGaps(regions []transcript.SpeechRegion, total time.Duration) []transcript.SpeechRegion {
	var gaps []transcript.SpeechRegion
	cursor := time.Duration(0)
	for _, r := range regions {
		if r.Start > cursor {
			gaps = append(gaps, transcript.SpeechRegion{Start: cursor, End: r.Start})
		}
		if r.End > cursor {
			cursor = r.End
		}
	}
	if cursor < total {
		gaps = append(gaps, transcript.SpeechRegion{Start: cursor, End: total})
	}
	return gaps
}

// snapToSilence moves an ideal cut point into the nearest silence gap within
// ±window. A gap that fits the window entirely is cut at its midpoint; a
// wide gap is cut at the point nearest the ideal, which keeps an ideal that
// already sits in silence untouched. The result is kept inside (floor,
// total) so a snap can neither produce an under-floor chunk nor run off the
// track. When no gap intersects the window, the ideal point is returned
// unmodified.
func snapToSilence(ideal time.Duration, gaps []transcript.SpeechRegion, window, floor, total time.Duration) time.Duration {
	if window <= 0 {
		return ideal
	}
	lo, hi := ideal-window, ideal+window

	best := ideal
	bestDist := window + 1
	for _, g := range gaps {
		if g.End < lo {
			continue
		}
		if g.Start > hi {
			break
		}
		candidate := g.Start + (g.End-g.Start)/2
		if candidate < lo || candidate > hi {
			candidate = clamp(clamp(ideal, g.Start, g.End), lo, hi)
		}
		// Keep the candidate inside the gap after clamping; otherwise the
		// cut would land on speech anyway.
		if candidate < g.Start || candidate > g.End {
			continue
		}
		dist := absDur(candidate - ideal)
		if dist < bestDist {
			best = candidate
			bestDist = dist
		}
	}

	if best <= floor {
		return ideal
	}
	if best > total {
		return total
	}
	return best
}

func clamp(v, lo, hi time.Duration) time.Duration {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absDur(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
