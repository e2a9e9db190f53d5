package face_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/sondera-ai/sondera/internal/extract/face"
	"github.com/sondera-ai/sondera/pkg/provider/faceattr"
	"github.com/sondera-ai/sondera/pkg/provider/faceattr/mock"
	"github.com/sondera-ai/sondera/pkg/types"
)

// frontalFace returns a neutral, well-lit, camera-facing record.
func frontalFace() *faceattr.FrameAttributes {
	return &faceattr.FrameAttributes{
		Confidence: 0.95,
		Smile:      faceattr.BoolAttribute{Value: false, Confidence: 0.9},
		EyesOpen:   faceattr.BoolAttribute{Value: true, Confidence: 0.95},
		MouthOpen:  true,
		Pose:       faceattr.Pose{Yaw: 2, Pitch: 1, Roll: 0},
		Brightness: 0.8,
		Sharpness:  0.7,
	}
}

func frames(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = []byte{byte(i)}
	}
	return out
}

func failureCode(t *testing.T, err error) types.FailureCode {
	t.Helper()
	var fe *types.FailureError
	if !errors.As(err, &fe) {
		t.Fatalf("error %v is not a FailureError", err)
	}
	return fe.Code
}

func TestExtract_NoFrames(t *testing.T) {
	e := face.New(&mock.Analyzer{})
	_, err := e.Extract(context.Background(), nil, 10)
	if code := failureCode(t, err); code != types.FailureInsufficientData {
		t.Errorf("got %v, want INSUFFICIENT_DATA", code)
	}
}

func TestExtract_NoFacesDetected(t *testing.T) {
	// All-nil records: the analyzer answered but never found a face.
	e := face.New(&mock.Analyzer{Records: []*faceattr.FrameAttributes{nil, nil, nil}})
	_, err := e.Extract(context.Background(), frames(3), 10)
	if code := failureCode(t, err); code != types.FailureInsufficientData {
		t.Errorf("got %v, want INSUFFICIENT_DATA", code)
	}
}

func TestExtract_AnalyzerTransportError(t *testing.T) {
	e := face.New(&mock.Analyzer{Err: errors.New("connection refused")})
	_, err := e.Extract(context.Background(), frames(2), 10)
	code := failureCode(t, err)
	if code != types.FailureExtraction {
		t.Errorf("got %v, want FEATURE_EXTRACTION_FAILED", code)
	}
	if !code.Retryable() {
		t.Error("transport failures must be retryable")
	}
}

func TestExtract_SmileStatistics(t *testing.T) {
	smiler := frontalFace()
	smiler.Smile = faceattr.BoolAttribute{Value: true, Confidence: 0.8}
	records := []*faceattr.FrameAttributes{smiler, frontalFace(), smiler, frontalFace()}

	e := face.New(&mock.Analyzer{Records: records})
	feat, err := e.Extract(context.Background(), frames(4), 60)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if feat.SmileFrequency != 0.5 {
		t.Errorf("smile frequency: got %v, want 0.5", feat.SmileFrequency)
	}
	if feat.SmileIntensity != 0.8 {
		t.Errorf("smile intensity: got %v, want 0.8", feat.SmileIntensity)
	}
}

func TestExtract_EyeContactRequiresFrontalPose(t *testing.T) {
	frontal := frontalFace()
	turned := frontalFace()
	turned.Pose.Yaw = 40 // looking away
	closed := frontalFace()
	closed.EyesOpen.Value = false

	e := face.New(&mock.Analyzer{Records: []*faceattr.FrameAttributes{frontal, turned, closed}})
	feat, err := e.Extract(context.Background(), frames(3), 60)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if math.Abs(feat.EyeContact-1.0/3) > 1e-9 {
		t.Errorf("eye contact: got %v, want 1/3", feat.EyeContact)
	}
}

func TestExtract_FacialTension(t *testing.T) {
	tense := frontalFace()
	tense.MouthOpen = false // +0.3
	tense.Emotions = faceattr.Emotions{
		{Label: faceattr.EmotionAngry, Confidence: 1.0},    // +0.4
		{Label: faceattr.EmotionConfused, Confidence: 1.0}, // +0.3
	}

	e := face.New(&mock.Analyzer{Records: []*faceattr.FrameAttributes{tense}})
	feat, err := e.Extract(context.Background(), frames(1), 60)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	// 0.3 + 0.4 + 0.3 caps at exactly 1.0 per frame.
	if feat.FacialTension != 1 {
		t.Errorf("facial tension: got %v, want capped 1.0", feat.FacialTension)
	}
}

func TestExtract_AffectComposite(t *testing.T) {
	happy := frontalFace()
	happy.Emotions = faceattr.Emotions{{Label: faceattr.EmotionHappy, Confidence: 1.0}}
	sad := frontalFace()
	sad.Emotions = faceattr.Emotions{{Label: faceattr.EmotionSad, Confidence: 1.0}}

	e := face.New(&mock.Analyzer{Records: []*faceattr.FrameAttributes{happy, sad}})
	feat, err := e.Extract(context.Background(), frames(2), 60)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	// (+1.0 - 1.0) / 2 = 0.
	if feat.Affect != 0 {
		t.Errorf("affect: got %v, want 0", feat.Affect)
	}

	e = face.New(&mock.Analyzer{Records: []*faceattr.FrameAttributes{happy, happy}})
	feat, err = e.Extract(context.Background(), frames(2), 60)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if feat.Affect != 1 {
		t.Errorf("affect: got %v, want 1", feat.Affect)
	}
}

func TestExtract_BlinkRate(t *testing.T) {
	open := frontalFace()
	shut := frontalFace()
	shut.EyesOpen.Value = false

	// Two open→closed transitions over a 60 s recording → 2 blinks/min.
	records := []*faceattr.FrameAttributes{open, shut, open, shut, open}
	e := face.New(&mock.Analyzer{Records: records})
	feat, err := e.Extract(context.Background(), frames(5), 60)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if feat.BlinkRate != 2 {
		t.Errorf("blink rate: got %v, want 2", feat.BlinkRate)
	}
}

func TestExtract_FacePresenceUsesSampledDenominator(t *testing.T) {
	// 4 frames sampled, faces found in 3 of them.
	records := []*faceattr.FrameAttributes{frontalFace(), nil, frontalFace(), frontalFace()}
	e := face.New(&mock.Analyzer{Records: records})
	feat, err := e.Extract(context.Background(), frames(4), 60)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if feat.FacePresenceQuality != 0.75 {
		t.Errorf("face presence: got %v, want 0.75", feat.FacePresenceQuality)
	}
}

func TestExtract_OverallQuality(t *testing.T) {
	f := frontalFace() // confidence 0.95, brightness 0.8, sharpness 0.7
	e := face.New(&mock.Analyzer{Records: []*faceattr.FrameAttributes{f}})
	feat, err := e.Extract(context.Background(), frames(1), 60)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := 0.5*0.95 + 0.25*0.8 + 0.25*0.7
	if math.Abs(feat.OverallQuality-want) > 1e-9 {
		t.Errorf("overall quality: got %v, want %v", feat.OverallQuality, want)
	}
}

func TestExtract_HeadMovement(t *testing.T) {
	still := frontalFace()
	e := face.New(&mock.Analyzer{Records: []*faceattr.FrameAttributes{still, still, still}})
	feat, err := e.Extract(context.Background(), frames(3), 60)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if feat.HeadMovement != 0 {
		t.Errorf("static head movement: got %v, want 0", feat.HeadMovement)
	}

	wild := []*faceattr.FrameAttributes{frontalFace(), frontalFace(), frontalFace()}
	wild[0].Pose = faceattr.Pose{Yaw: -60, Pitch: -40, Roll: -30}
	wild[1].Pose = faceattr.Pose{Yaw: 0, Pitch: 0, Roll: 0}
	wild[2].Pose = faceattr.Pose{Yaw: 60, Pitch: 40, Roll: 30}

	e = face.New(&mock.Analyzer{Records: wild})
	feat, err = e.Extract(context.Background(), frames(3), 60)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	// Large pose swings saturate the normalized score.
	if feat.HeadMovement != 1 {
		t.Errorf("wild head movement: got %v, want saturated 1", feat.HeadMovement)
	}
}

func TestExtract_FramesForwardedToAnalyzer(t *testing.T) {
	an := &mock.Analyzer{Records: []*faceattr.FrameAttributes{frontalFace(), frontalFace()}}
	e := face.New(an)
	in := frames(2)

	if _, err := e.Extract(context.Background(), in, 60); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(an.Calls) != 1 {
		t.Fatalf("got %d analyzer calls, want 1", len(an.Calls))
	}
	if len(an.Calls[0].Frames) != 2 {
		t.Errorf("analyzer received %d frames, want 2", len(an.Calls[0].Frames))
	}
}
