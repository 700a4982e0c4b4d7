package audio

import (
	"bytes"
	"encoding/binary"
)

// EncodeWAV serialises a slice as a canonical 16-bit mono PCM WAV file.
// Used when shipping a chunk to an HTTP recognition backend.
func EncodeWAV(s Slice) []byte {
	pcm := Float32ToPCM16(s.Samples)

	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))

	byteRate := s.SampleRate * 2 // mono, 16-bit

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(s.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(2))  // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16)) // bits per sample

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}
