package app

import (
	"bytes"
	"image"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// maxFramePixels rejects frames whose decoded size would be unreasonable for
// a capture still. Guards against decompression bombs in untrusted uploads.
const maxFramePixels = 64 << 20

// validFrames filters out frames that do not parse as JPEG, PNG, or WebP.
// DecodeConfig reads only the header, so the check is cheap even for large
// frames. Returns the kept frames and the number dropped.
func validFrames(frames [][]byte) ([][]byte, int) {
	kept := frames[:0:0]
	dropped := 0
	for _, f := range frames {
		if validFrame(f) {
			kept = append(kept, f)
		} else {
			dropped++
		}
	}
	return kept, dropped
}

func validFrame(data []byte) bool {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return false
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return false
	}
	return int64(cfg.Width)*int64(cfg.Height) <= maxFramePixels
}
