package app

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8)), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestValidFrame(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"png", encodePNG(t), true},
		{"jpeg", encodeJPEG(t), true},
		{"empty", nil, false},
		{"garbage", []byte("definitely not an image"), false},
		{"truncated png header", encodePNG(t)[:4], false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validFrame(tt.data); got != tt.want {
				t.Errorf("validFrame(%s) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestValidFrames_CountsDropped(t *testing.T) {
	frames := [][]byte{encodePNG(t), []byte("junk"), encodeJPEG(t), nil}
	kept, dropped := validFrames(frames)
	if len(kept) != 2 {
		t.Errorf("kept = %d, want 2", len(kept))
	}
	if dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
}

func TestValidFrames_AllValid(t *testing.T) {
	frames := [][]byte{encodePNG(t), encodePNG(t)}
	kept, dropped := validFrames(frames)
	if len(kept) != 2 || dropped != 0 {
		t.Errorf("kept = %d, dropped = %d, want 2 and 0", len(kept), dropped)
	}
}
