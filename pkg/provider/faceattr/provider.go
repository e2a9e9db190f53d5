// Package faceattr defines the Analyzer interface for facial-attribute
// analysis backends.
//
// An analyzer receives a bounded, ordered batch of still images and returns
// one attribute record per requested frame, aligned by index. A nil record
// means the backend found no usable face in that frame — modelling absence
// explicitly avoids index-alignment bugs between requested and returned
// frames when the backend omits undetected frames from its response.
//
// Implementations must be safe for concurrent use; the enrichment pipeline
// may issue analyses for independent sessions simultaneously.
package faceattr

import "context"

// Emotion labels reported by facial-attribute backends, normalized to lower
// case. The visual feature derivation consumes exactly this set; unknown
// labels are carried through but ignored.
const (
	EmotionHappy     = "happy"
	EmotionCalm      = "calm"
	EmotionSad       = "sad"
	EmotionAngry     = "angry"
	EmotionConfused  = "confused"
	EmotionDisgusted = "disgusted"
	EmotionSurprised = "surprised"
	EmotionFear      = "fear"
)

// Emotion is a single label/confidence pair. Confidence is in [0,1].
type Emotion struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Emotions is the per-frame emotion classification result.
type Emotions []Emotion

// Confidence returns the confidence for label, or 0 when the label was not
// reported.
func (e Emotions) Confidence(label string) float64 {
	for _, em := range e {
		if em.Label == label {
			return em.Confidence
		}
	}
	return 0
}

// BoolAttribute is a boolean facial attribute with its own confidence.
type BoolAttribute struct {
	Value      bool    `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Pose is the head orientation in degrees.
type Pose struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// FrameAttributes is the attribute record for the first/best face detected
// in one frame. All confidences and image-quality values are in [0,1].
type FrameAttributes struct {
	// Confidence is the face detection confidence.
	Confidence float64 `json:"confidence"`

	// Emotions are the label/confidence pairs for this face.
	Emotions Emotions `json:"emotions"`

	// Smile and EyesOpen carry their own confidences.
	Smile    BoolAttribute `json:"smile"`
	EyesOpen BoolAttribute `json:"eyes_open"`

	// MouthOpen has no confidence on any known backend.
	MouthOpen bool `json:"mouth_open"`

	// Pose is the head orientation.
	Pose Pose `json:"pose"`

	// Brightness and Sharpness describe image quality at the face region.
	Brightness float64 `json:"brightness"`
	Sharpness  float64 `json:"sharpness"`
}

// Analyzer is the boundary to the external facial-attribute service.
type Analyzer interface {
	// AnalyzeFrames submits the encoded still images and returns one record
	// per requested frame, in request order. Entries are nil where the
	// backend detected no usable face. The returned slice always has
	// len(frames) entries.
	//
	// The call must honor ctx cancellation; the enrichment pipeline applies
	// its timeout through ctx and never retries a failed call.
	AnalyzeFrames(ctx context.Context, frames [][]byte) ([]*FrameAttributes, error)
}

// Pinger is implemented by analyzers that support a lightweight reachability
// probe, used by the readiness endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}
