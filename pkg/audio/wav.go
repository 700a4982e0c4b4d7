package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// LoadWAV reads a PCM WAV file and returns it as a mono Track. Supported
// encodings: 16-bit signed integer PCM (format 1) and 32-bit IEEE float
// (format 3), any channel count (downmixed to mono). Chunks other than "fmt "
// and "data" are skipped.
func LoadWAV(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open wav %q: %w", path, err)
	}
	defer f.Close()
	return ReadWAV(f)
}

// ReadWAV decodes a WAV stream. See [LoadWAV] for supported encodings.
func ReadWAV(r io.Reader) (*Track, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("audio: read riff header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, fmt.Errorf("audio: not a RIFF/WAVE stream")
	}

	var (
		format     uint16
		channels   uint16
		sampleRate uint32
		bitDepth   uint16
		data       []byte
	)

	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, fmt.Errorf("audio: read chunk header: %w", err)
		}
		id := string(hdr[0:4])
		size := binary.LittleEndian.Uint32(hdr[4:8])

		switch id {
		case "fmt ":
			buf := make([]byte, size)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, fmt.Errorf("audio: read fmt chunk: %w", err)
			}
			if len(buf) < 16 {
				return nil, fmt.Errorf("audio: fmt chunk too short (%d bytes)", len(buf))
			}
			format = binary.LittleEndian.Uint16(buf[0:2])
			channels = binary.LittleEndian.Uint16(buf[2:4])
			sampleRate = binary.LittleEndian.Uint32(buf[4:8])
			bitDepth = binary.LittleEndian.Uint16(buf[14:16])
		case "data":
			data = make([]byte, size)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, fmt.Errorf("audio: read data chunk: %w", err)
			}
		default:
			// Skip unknown chunks (LIST, fact, ...). Chunk data is padded to
			// an even byte count.
			skip := int64(size)
			if size%2 == 1 {
				skip++
			}
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return nil, fmt.Errorf("audio: skip %q chunk: %w", id, err)
			}
		}
		if data != nil && format != 0 {
			break
		}
	}

	if format == 0 {
		return nil, fmt.Errorf("audio: wav stream has no fmt chunk")
	}
	if data == nil {
		return nil, fmt.Errorf("audio: wav stream has no data chunk")
	}

	var samples []float32
	switch {
	case format == 1 && bitDepth == 16:
		samples = PCM16ToFloat32Mono(data, int(channels))
	case format == 3 && bitDepth == 32:
		samples = float32LEToMono(data, int(channels))
	default:
		return nil, fmt.Errorf("audio: unsupported wav encoding (format=%d, bits=%d)", format, bitDepth)
	}

	return NewTrack(samples, int(sampleRate))
}

// float32LEToMono reinterprets little-endian IEEE float samples, downmixing
// multi-channel frames by averaging.
func float32LEToMono(data []byte, channels int) []float32 {
	if channels <= 0 {
		channels = 1
	}
	totalSamples := len(data) / 4
	frames := totalSamples / channels
	out := make([]float32, frames)
	for f := 0; f < frames; f++ {
		var sum float32
		for c := 0; c < channels; c++ {
			i := (f*channels + c) * 4
			bits := binary.LittleEndian.Uint32(data[i : i+4])
			sum += math.Float32frombits(bits)
		}
		out[f] = sum / float32(channels)
	}
	return out
}
