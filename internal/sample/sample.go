// Package sample bounds the amount of raw media the enrichment pipeline
// processes. Long recordings are reduced to a representative subset before
// feature extraction so that CPU cost and external-provider payload size
// stay within fixed limits.
//
// Both capping operations are pure and total: identical input yields
// identical output, the configured maxima are never exceeded, and non-empty
// input never produces an empty result.
package sample

import "github.com/sondera-ai/sondera/pkg/audio"

const (
	// DefaultMaxAudioSeconds is the largest audio span handed to the voice
	// feature extractor.
	DefaultMaxAudioSeconds = 30.0

	// DefaultChunkSeconds is the length of each audio chunk collected when
	// a recording exceeds the audio cap.
	DefaultChunkSeconds = 2.0

	// DefaultMaxFrames is the largest number of video frames forwarded to
	// the facial-attribute provider in one enrichment call.
	DefaultMaxFrames = 25
)

// Config holds the sampling limits. Zero values select the defaults.
type Config struct {
	// MaxAudioSeconds caps the total audio duration passed downstream.
	MaxAudioSeconds float64 `yaml:"max_audio_seconds"`

	// ChunkSeconds is the chunk length used when striding across a long
	// recording.
	ChunkSeconds float64 `yaml:"chunk_seconds"`

	// MaxFrames caps the number of video frames passed downstream.
	MaxFrames int `yaml:"max_frames"`
}

// withDefaults returns cfg with zero fields replaced by the defaults.
func (c Config) withDefaults() Config {
	if c.MaxAudioSeconds <= 0 {
		c.MaxAudioSeconds = DefaultMaxAudioSeconds
	}
	if c.ChunkSeconds <= 0 {
		c.ChunkSeconds = DefaultChunkSeconds
	}
	if c.MaxFrames <= 0 {
		c.MaxFrames = DefaultMaxFrames
	}
	return c
}

// Sampler caps audio and video media. It holds only static configuration and
// is safe for concurrent use.
type Sampler struct {
	cfg Config
}

// New creates a Sampler. Zero-valued config fields fall back to the package
// defaults.
func New(cfg Config) *Sampler {
	return &Sampler{cfg: cfg.withDefaults()}
}

// CapAudio bounds clip to at most MaxAudioSeconds of samples. Recordings at
// or under the cap pass through unchanged. Longer recordings are reduced to
// evenly strided fixed-length chunks covering the whole timeline, with the
// first and last chunk always included for onset and closing context. The
// collected chunks are concatenated into one contiguous buffer and trimmed
// to the cap, so the result never exceeds MaxAudioSeconds even when the
// chunk length does not divide it.
func (s *Sampler) CapAudio(clip audio.Clip) audio.Clip {
	if clip.Empty() || clip.SampleRate <= 0 {
		return clip
	}
	if clip.Duration() <= s.cfg.MaxAudioSeconds {
		return clip
	}

	chunkLen := int(s.cfg.ChunkSeconds * float64(clip.SampleRate))
	if chunkLen <= 0 {
		return clip
	}
	maxSamples := int(s.cfg.MaxAudioSeconds * float64(clip.SampleRate))
	numChunks := (len(clip.Samples) + chunkLen - 1) / chunkLen
	target := int(s.cfg.MaxAudioSeconds / s.cfg.ChunkSeconds)
	if target < 2 {
		// The stride below needs both endpoints; the trim at the end keeps
		// the cap authoritative when two chunks exceed it.
		target = 2
	}
	if numChunks <= target {
		return audio.Clip{Samples: clip.Samples[:maxSamples], SampleRate: clip.SampleRate}
	}

	// First and last chunks are fixed; the remaining slots stride evenly
	// across the interior of the recording.
	indices := make([]int, 0, target)
	indices = append(indices, 0)
	stride := float64(numChunks) / float64(target)
	for i := 1; i < target-1; i++ {
		idx := int(float64(i) * stride)
		if idx <= indices[len(indices)-1] {
			continue
		}
		if idx >= numChunks-1 {
			break
		}
		indices = append(indices, idx)
	}
	if indices[len(indices)-1] != numChunks-1 {
		indices = append(indices, numChunks-1)
	}

	out := make([]float64, 0, target*chunkLen)
	for _, idx := range indices {
		start := idx * chunkLen
		end := start + chunkLen
		if end > len(clip.Samples) {
			end = len(clip.Samples)
		}
		out = append(out, clip.Samples[start:end]...)
	}
	if len(out) > maxSamples {
		out = out[:maxSamples]
	}
	return audio.Clip{Samples: out, SampleRate: clip.SampleRate}
}

// CapFrames bounds frames to at most MaxFrames entries. Short sequences pass
// through unchanged. Longer sequences always keep frame 0, plus the last
// frame whenever more than one slot is available; the remaining slots are
// filled at even fractional steps across the
// full sequence, skipping duplicates, until the cap is reached. Order is
// preserved.
func (s *Sampler) CapFrames(frames [][]byte) [][]byte {
	n := len(frames)
	if n <= s.cfg.MaxFrames {
		return frames
	}

	max := s.cfg.MaxFrames
	if max == 1 {
		// A single slot goes to the opening frame.
		return frames[:1]
	}
	selected := make(map[int]struct{}, max)
	selected[0] = struct{}{}
	selected[n-1] = struct{}{}

	step := float64(n) / float64(max)
	for i := 1; len(selected) < max && i < n; i++ {
		idx := int(float64(i) * step)
		if idx >= n {
			idx = n - 1
		}
		selected[idx] = struct{}{}
	}

	out := make([][]byte, 0, max)
	for i := 0; i < n; i++ {
		if _, ok := selected[i]; ok {
			out = append(out, frames[i])
		}
	}
	return out
}
