package sample_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sondera-ai/sondera/internal/sample"
	"github.com/sondera-ai/sondera/pkg/audio"
)

func makeClip(seconds float64, rate int) audio.Clip {
	n := int(seconds * float64(rate))
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = float64(i%100) / 100
	}
	return audio.Clip{Samples: samples, SampleRate: rate}
}

func TestCapAudio_ShortClipUnchanged(t *testing.T) {
	s := sample.New(sample.Config{})
	clip := makeClip(12, 16000)

	got := s.CapAudio(clip)
	if len(got.Samples) != len(clip.Samples) {
		t.Errorf("short clip modified: got %d samples, want %d", len(got.Samples), len(clip.Samples))
	}
}

func TestCapAudio_LongClipBounded(t *testing.T) {
	s := sample.New(sample.Config{})
	for _, seconds := range []float64{31, 60, 120, 600} {
		clip := makeClip(seconds, 16000)
		got := s.CapAudio(clip)

		maxSamples := int(sample.DefaultMaxAudioSeconds * 16000)
		if len(got.Samples) > maxSamples {
			t.Errorf("%vs clip: got %d samples, cap is %d", seconds, len(got.Samples), maxSamples)
		}
		if len(got.Samples) == 0 {
			t.Errorf("%vs clip: empty output for non-empty input", seconds)
		}
	}
}

func TestCapAudio_IncludesFirstAndLastChunk(t *testing.T) {
	s := sample.New(sample.Config{})
	rate := 8000
	clip := makeClip(120, rate)
	// Mark the opening and closing samples so they are identifiable after
	// concatenation.
	clip.Samples[0] = 0.777
	clip.Samples[len(clip.Samples)-1] = -0.777

	got := s.CapAudio(clip)
	if got.Samples[0] != 0.777 {
		t.Error("first chunk missing from sampled output")
	}
	if got.Samples[len(got.Samples)-1] != -0.777 {
		t.Error("last chunk missing from sampled output")
	}
}

func TestCapAudio_Deterministic(t *testing.T) {
	s := sample.New(sample.Config{})
	clip := makeClip(95, 16000)

	a := s.CapAudio(clip)
	b := s.CapAudio(clip)
	if len(a.Samples) != len(b.Samples) {
		t.Fatalf("non-deterministic length: %d vs %d", len(a.Samples), len(b.Samples))
	}
	for i := range a.Samples {
		if a.Samples[i] != b.Samples[i] {
			t.Fatalf("non-deterministic sample at %d", i)
		}
	}
}

func TestCapAudio_ChunkLengthEqualsCap(t *testing.T) {
	rate := 16000
	s := sample.New(sample.Config{MaxAudioSeconds: 2, ChunkSeconds: 2})
	maxSamples := 2 * rate

	for _, seconds := range []float64{2.5, 3.9, 10, 60} {
		got := s.CapAudio(makeClip(seconds, rate))
		if len(got.Samples) > maxSamples {
			t.Errorf("%vs clip: got %d samples, cap is %d", seconds, len(got.Samples), maxSamples)
		}
		if len(got.Samples) == 0 {
			t.Errorf("%vs clip: empty output for non-empty input", seconds)
		}
	}
}

func TestCapAudio_Empty(t *testing.T) {
	s := sample.New(sample.Config{})
	got := s.CapAudio(audio.Clip{})
	if !got.Empty() {
		t.Error("empty input should yield empty output")
	}
}

func makeFrames(n int) [][]byte {
	frames := make([][]byte, n)
	for i := range frames {
		frames[i] = fmt.Appendf(nil, "frame-%d", i)
	}
	return frames
}

func TestCapFrames_FewFramesUnchanged(t *testing.T) {
	s := sample.New(sample.Config{})
	frames := makeFrames(10)

	got := s.CapFrames(frames)
	if len(got) != 10 {
		t.Errorf("got %d frames, want 10", len(got))
	}
}

func TestCapFrames_ExactlyAtCap(t *testing.T) {
	s := sample.New(sample.Config{})
	got := s.CapFrames(makeFrames(sample.DefaultMaxFrames))
	if len(got) != sample.DefaultMaxFrames {
		t.Errorf("got %d frames, want %d", len(got), sample.DefaultMaxFrames)
	}
}

func TestCapFrames_ManyFramesCapped(t *testing.T) {
	s := sample.New(sample.Config{})
	for _, n := range []int{26, 50, 100, 1000} {
		frames := makeFrames(n)
		got := s.CapFrames(frames)

		if len(got) != sample.DefaultMaxFrames {
			t.Errorf("%d frames: got %d sampled, want exactly %d", n, len(got), sample.DefaultMaxFrames)
		}
		if !bytes.Equal(got[0], frames[0]) {
			t.Errorf("%d frames: first frame not included", n)
		}
		if !bytes.Equal(got[len(got)-1], frames[n-1]) {
			t.Errorf("%d frames: last frame not included", n)
		}
	}
}

func TestCapFrames_PreservesOrder(t *testing.T) {
	s := sample.New(sample.Config{})
	frames := makeFrames(80)
	got := s.CapFrames(frames)

	prev := -1
	for _, f := range got {
		var idx int
		if _, err := fmt.Sscanf(string(f), "frame-%d", &idx); err != nil {
			t.Fatalf("unexpected frame payload %q", f)
		}
		if idx <= prev {
			t.Fatalf("frame order not preserved: %d after %d", idx, prev)
		}
		prev = idx
	}
}

func TestCapFrames_CustomMax(t *testing.T) {
	s := sample.New(sample.Config{MaxFrames: 5})
	got := s.CapFrames(makeFrames(40))
	if len(got) != 5 {
		t.Errorf("got %d frames, want 5", len(got))
	}
}

func TestCapFrames_SingleSlotCap(t *testing.T) {
	s := sample.New(sample.Config{MaxFrames: 1})
	frames := makeFrames(40)

	got := s.CapFrames(frames)
	if len(got) != 1 {
		t.Fatalf("got %d frames, want 1", len(got))
	}
	if !bytes.Equal(got[0], frames[0]) {
		t.Errorf("single slot holds %q, want the opening frame", got[0])
	}
}
