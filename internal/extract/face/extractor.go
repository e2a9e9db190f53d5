// Package face derives visual descriptors from a capped sequence of video
// frames by way of a facial-attribute analyzer: smile statistics, gaze and
// blink proxies, head movement, and a signed affect composite.
//
// Several descriptors are proxies built from emotion-classifier outputs
// rather than facial landmarks (eyebrow position from "surprised", facial
// tension from mouth state plus negative emotions). The downstream fusion
// constants are tuned against exactly these proxies, so they must not be
// replaced with landmark-based measures without re-deriving those constants.
package face

import (
	"context"
	"errors"
	"math"

	"github.com/sondera-ai/sondera/pkg/provider/faceattr"
	"github.com/sondera-ai/sondera/pkg/types"
)

const (
	// maxFrontalYawDeg and maxFrontalPitchDeg bound the near-frontal head
	// pose counted as eye contact.
	maxFrontalYawDeg   = 15.0
	maxFrontalPitchDeg = 10.0

	// Facial-tension weights: closed mouth, anger, confusion.
	tensionMouthClosed = 0.3
	tensionAngry       = 0.4
	tensionConfused    = 0.3

	// poseVarianceNorm converts raw pose variance (degrees²) into the
	// [0,1] head-movement score.
	poseVarianceNorm = 100.0
)

// Affect weights per emotion label. Positive valence raises the composite,
// negative valence lowers it; "surprised" and "confused" carry no valence.
var affectWeights = map[string]float64{
	faceattr.EmotionHappy:     1.0,
	faceattr.EmotionCalm:      0.5,
	faceattr.EmotionSad:       -1.0,
	faceattr.EmotionAngry:     -0.8,
	faceattr.EmotionDisgusted: -0.7,
	faceattr.EmotionFear:      -0.9,
}

// ErrNoFrames is returned when the extractor is invoked without frames.
var ErrNoFrames = errors.New("face: no video frames supplied")

// ErrNoFaces is returned when the analyzer found no usable face in any
// sampled frame.
var ErrNoFaces = errors.New("face: no usable face detected in any frame")

// Extractor derives [types.VisualFeatures] from sampled frames via a
// facial-attribute analyzer. It is safe for concurrent use.
type Extractor struct {
	analyzer faceattr.Analyzer
}

// New creates a visual feature extractor backed by the given analyzer.
func New(analyzer faceattr.Analyzer) *Extractor {
	return &Extractor{analyzer: analyzer}
}

// Extract submits the (already capped) frames to the analyzer and derives
// the ten visual descriptors. duration is the recording length in seconds
// and scales the blink rate.
//
// Returns INSUFFICIENT_DATA when no frames are supplied or when the
// analyzer detects no usable face anywhere, and FEATURE_EXTRACTION_FAILED
// (retryable) on transport or decode errors from the analyzer.
func (e *Extractor) Extract(ctx context.Context, frames [][]byte, duration float64) (types.VisualFeatures, error) {
	if len(frames) == 0 {
		return types.VisualFeatures{}, types.NewFailure(types.FailureInsufficientData, ErrNoFrames)
	}

	records, err := e.analyzer.AnalyzeFrames(ctx, frames)
	if err != nil {
		return types.VisualFeatures{}, types.NewFailure(types.FailureExtraction, err)
	}

	faces := make([]*faceattr.FrameAttributes, 0, len(records))
	for _, r := range records {
		if r != nil {
			faces = append(faces, r)
		}
	}
	if len(faces) == 0 {
		return types.VisualFeatures{}, types.NewFailure(types.FailureInsufficientData, ErrNoFaces)
	}

	return derive(faces, len(records), duration), nil
}

// derive computes the descriptor set from the usable face records. sampled
// is the number of frames actually submitted; it is the denominator for
// face-presence quality only.
func derive(faces []*faceattr.FrameAttributes, sampled int, duration float64) types.VisualFeatures {
	n := float64(len(faces))

	var smiling, eyeContact int
	var smileConfSum, surpriseSum, tensionSum, affectSum float64
	var confSum, brightSum, sharpSum float64
	var yaws, pitches, rolls []float64

	for _, f := range faces {
		if f.Smile.Value {
			smiling++
			smileConfSum += f.Smile.Confidence
		}
		if f.EyesOpen.Value &&
			math.Abs(f.Pose.Yaw) < maxFrontalYawDeg &&
			math.Abs(f.Pose.Pitch) < maxFrontalPitchDeg {
			eyeContact++
		}

		surpriseSum += f.Emotions.Confidence(faceattr.EmotionSurprised)

		tension := 0.0
		if !f.MouthOpen {
			tension += tensionMouthClosed
		}
		tension += tensionAngry * f.Emotions.Confidence(faceattr.EmotionAngry)
		tension += tensionConfused * f.Emotions.Confidence(faceattr.EmotionConfused)
		if tension > 1 {
			tension = 1
		}
		tensionSum += tension

		for label, weight := range affectWeights {
			affectSum += weight * f.Emotions.Confidence(label)
		}

		confSum += f.Confidence
		brightSum += f.Brightness
		sharpSum += f.Sharpness
		yaws = append(yaws, f.Pose.Yaw)
		pitches = append(pitches, f.Pose.Pitch)
		rolls = append(rolls, f.Pose.Roll)
	}

	smileIntensity := 0.0
	if smiling > 0 {
		smileIntensity = smileConfSum / float64(smiling)
	}

	poseVariance := (variance(yaws) + variance(pitches) + variance(rolls)) / 3

	return types.VisualFeatures{
		SmileFrequency:      float64(smiling) / n,
		SmileIntensity:      smileIntensity,
		EyeContact:          float64(eyeContact) / n,
		EyebrowPosition:     surpriseSum / n,
		FacialTension:       tensionSum / n,
		BlinkRate:           blinkRate(faces, duration),
		HeadMovement:        clamp01(poseVariance / poseVarianceNorm),
		Affect:              clampSigned(affectSum / n),
		FacePresenceQuality: n / float64(sampled),
		OverallQuality:      0.5*(confSum/n) + 0.25*(brightSum/n) + 0.25*(sharpSum/n),
	}
}

// blinkRate counts eyes-open→eyes-closed transitions across consecutive
// usable frames and scales them to transitions per minute over the
// recording duration.
func blinkRate(faces []*faceattr.FrameAttributes, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	transitions := 0
	for i := 1; i < len(faces); i++ {
		if faces[i-1].EyesOpen.Value && !faces[i].EyesOpen.Value {
			transitions++
		}
	}
	return float64(transitions) / (duration / 60)
}

func variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(values))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampSigned(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
