package transcript

import (
	"fmt"
	"io"
	"time"
)

// maxCueWords caps how many words one subtitle cue may hold before it is
// split, regardless of gaps.
const maxCueWords = 12

// WriteSRT writes the transcript as SubRip subtitles. Cues break at word
// gaps of at least gap and additionally whenever a cue grows past a readable
// length. An empty transcript writes nothing.
func (t Transcript) WriteSRT(w io.Writer, gap time.Duration) error {
	segs := Segmentize(t.Words, gap)
	cue := 1
	for _, s := range segs {
		for i := 0; i < len(s.Words); i += maxCueWords {
			part := Segment{Words: s.Words[i:min(i+maxCueWords, len(s.Words))]}
			_, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n",
				cue,
				srtTimestamp(part.Start()),
				srtTimestamp(part.End()),
				part.Text())
			if err != nil {
				return fmt.Errorf("transcript: write srt cue %d: %w", cue, err)
			}
			cue++
		}
	}
	return nil
}

// srtTimestamp formats a duration as the SubRip "HH:MM:SS,mmm" form.
func srtTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	ms := (d - s*time.Second) / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
