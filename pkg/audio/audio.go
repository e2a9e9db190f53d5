// Package audio provides the PCM primitives used by the enrichment
// pipeline: decoding captured recordings (WAV, MP3) into mono float64
// samples, stereo downmixing, and linear-interpolation resampling.
//
// All functions are pure and allocation-bounded; none retain references to
// their inputs. Samples are normalized to [-1, 1].
package audio

// Clip is a decoded mono audio signal at a known sample rate. It is the
// unit every feature-extraction stage operates on.
type Clip struct {
	// Samples are mono amplitude values in [-1, 1].
	Samples []float64

	// SampleRate in Hz.
	SampleRate int
}

// Duration returns the clip length in seconds. Zero when the sample rate is
// not set.
func (c Clip) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// Empty reports whether the clip contains no samples.
func (c Clip) Empty() bool { return len(c.Samples) == 0 }

// Resample converts samples from srcRate to dstRate using linear
// interpolation. Sufficient for voice analysis where only the F0 band
// matters. If the rates match (or either is invalid) the input is returned
// unchanged.
func Resample(samples []float64, srcRate, dstRate int) []float64 {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(samples) < 2 {
		return samples
	}
	dstLen := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	if dstLen == 0 {
		return nil
	}

	out := make([]float64, dstLen)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range out {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := samples[srcIdx]
		s1 := s0
		if srcIdx+1 < len(samples) {
			s1 = samples[srcIdx+1]
		}
		out[i] = s0*(1-frac) + s1*frac
	}
	return out
}

// DownmixInt16 converts interleaved little-endian int16 PCM to mono float64
// samples in [-1, 1]. Multi-channel input is averaged across channels.
// Trailing bytes that do not form a complete sample group are ignored.
func DownmixInt16(pcm []byte, channels int) []float64 {
	if channels <= 0 {
		channels = 1
	}
	groupBytes := channels * 2
	n := len(pcm) / groupBytes
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			off := i*groupBytes + ch*2
			s := int16(pcm[off]) | int16(pcm[off+1])<<8
			sum += float64(s)
		}
		out[i] = sum / float64(channels) / 32768.0
	}
	return out
}
