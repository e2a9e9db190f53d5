package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// ErrUnknownContainer is returned when the payload matches neither a RIFF
// WAV header nor an MP3 frame sync / ID3 tag.
var ErrUnknownContainer = errors.New("audio: unknown container format")

// Decode sniffs the container format of data and decodes it into a mono
// [Clip]. WAV (PCM16) and MP3 are supported — the formats the capture
// collaborator produces.
func Decode(data []byte) (Clip, error) {
	switch {
	case isWAV(data):
		return DecodeWAV(data)
	case isMP3(data):
		return DecodeMP3(data)
	default:
		return Clip{}, ErrUnknownContainer
	}
}

func isWAV(data []byte) bool {
	return len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE"))
}

func isMP3(data []byte) bool {
	if len(data) >= 3 && bytes.Equal(data[:3], []byte("ID3")) {
		return true
	}
	// MPEG frame sync: 11 set bits.
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

// DecodeMP3 decodes an MP3 payload into a mono [Clip]. The decoder always
// yields interleaved stereo int16 at the stream's sample rate; the two
// channels are averaged.
func DecodeMP3(data []byte) (Clip, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return Clip{}, fmt.Errorf("audio: mp3 decode: %w", err)
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return Clip{}, fmt.Errorf("audio: mp3 read: %w", err)
	}
	return Clip{
		Samples:    DownmixInt16(pcm, 2),
		SampleRate: dec.SampleRate(),
	}, nil
}

// DecodeWAV parses a RIFF/WAVE container with 16-bit PCM data and returns a
// mono [Clip]. Multi-channel recordings are downmixed by averaging. Chunks
// other than "fmt " and "data" are skipped.
func DecodeWAV(data []byte) (Clip, error) {
	if !isWAV(data) {
		return Clip{}, errors.New("audio: not a RIFF/WAVE payload")
	}

	var (
		sampleRate    int
		channels      int
		bitsPerSample int
		audioFormat   int
		pcm           []byte
	)

	// Walk the chunk list after the 12-byte RIFF header.
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if size < 0 || body+size > len(data) {
			return Clip{}, fmt.Errorf("audio: wav chunk %q overruns payload", id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return Clip{}, errors.New("audio: wav fmt chunk too short")
			}
			audioFormat = int(binary.LittleEndian.Uint16(data[body : body+2]))
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			pcm = data[body : body+size]
		}

		// Chunks are word-aligned.
		pos = body + size
		if size%2 == 1 {
			pos++
		}
	}

	if sampleRate == 0 || channels == 0 {
		return Clip{}, errors.New("audio: wav missing fmt chunk")
	}
	if audioFormat != 1 || bitsPerSample != 16 {
		return Clip{}, fmt.Errorf("audio: unsupported wav encoding (format %d, %d bit)", audioFormat, bitsPerSample)
	}
	if pcm == nil {
		return Clip{}, errors.New("audio: wav missing data chunk")
	}

	return Clip{
		Samples:    DownmixInt16(pcm, channels),
		SampleRate: sampleRate,
	}, nil
}
