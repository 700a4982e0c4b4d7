package audio

// PCM16ToFloat32Mono converts little-endian int16 PCM to normalised float32
// mono samples in [-1.0, 1.0]. Multi-channel input is downmixed by averaging
// the channels of each frame. A trailing odd byte is ignored.
func PCM16ToFloat32Mono(pcm []byte, channels int) []float32 {
	if channels <= 0 {
		channels = 1
	}
	totalSamples := len(pcm) / 2
	frames := totalSamples / channels
	out := make([]float32, frames)
	for f := 0; f < frames; f++ {
		var sum float32
		for c := 0; c < channels; c++ {
			i := (f*channels + c) * 2
			s := int16(pcm[i]) | int16(pcm[i+1])<<8
			sum += float32(s) / 32768.0
		}
		out[f] = sum / float32(channels)
	}
	return out
}

// Float32ToPCM16 converts normalised float32 mono samples back to
// little-endian int16 PCM, clamping out-of-range values.
func Float32ToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, v := range samples {
		if v > 1.0 {
			v = 1.0
		} else if v < -1.0 {
			v = -1.0
		}
		s := int16(v * 32767.0)
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}
