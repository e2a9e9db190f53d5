// Package scoring fuses the clinical assessment score with the audio and
// visual subscores under a dynamic weighting policy.
//
// Each modality's descriptors are normalized to a 0–100 "goodness" score
// against empirically chosen optima, scaled by the modality's self-assessed
// quality, and blended with the clinical score according to which modalities
// are available. The engine is a pure function of its inputs and never
// fails: numerically degenerate results degrade to the clinical-only
// fallback with a warning instead of an error.
package scoring

import (
	"log/slog"
	"math"

	"github.com/sondera-ai/sondera/pkg/types"
)

// Mode identifies which modalities contribute to the fused score. Each mode
// carries its own weight constants so the clinical + multimodal == 1.0
// invariant holds structurally.
type Mode int

const (
	// ModeClinicalOnly is the fallback when no signal modality is usable.
	ModeClinicalOnly Mode = iota

	// ModeClinicalPlusAudio blends the clinical score with audio only.
	ModeClinicalPlusAudio

	// ModeClinicalPlusVisual blends the clinical score with visual only.
	ModeClinicalPlusVisual

	// ModeClinicalPlusBoth blends the clinical score with both modalities.
	ModeClinicalPlusBoth
)

// ClinicalWeight returns the clinical share of the final score.
func (m Mode) ClinicalWeight() float64 {
	switch m {
	case ModeClinicalPlusAudio, ModeClinicalPlusVisual:
		return 0.85
	case ModeClinicalPlusBoth:
		return 0.70
	default:
		return 1.0
	}
}

// MultimodalWeight returns the signal-derived share of the final score.
func (m Mode) MultimodalWeight() float64 {
	return 1.0 - m.ClinicalWeight()
}

// PerModalityWeight returns the share of the final score taken by each
// available signal modality individually. In the both-modalities mode the
// multimodal weight splits evenly.
func (m Mode) PerModalityWeight() float64 {
	switch m {
	case ModeClinicalPlusAudio, ModeClinicalPlusVisual, ModeClinicalPlusBoth:
		return 0.15
	default:
		return 0
	}
}

// String returns the human-readable mode name.
func (m Mode) String() string {
	switch m {
	case ModeClinicalOnly:
		return "clinical-only"
	case ModeClinicalPlusAudio:
		return "clinical+audio"
	case ModeClinicalPlusVisual:
		return "clinical+visual"
	case ModeClinicalPlusBoth:
		return "clinical+audio+visual"
	default:
		return "unknown"
	}
}

// fallbackConfidence is reported when no signal modality is usable; a fixed
// value, independent of the clinical score.
const fallbackConfidence = 0.5

// Normalization optima and penalty scales for the audio descriptors.
const (
	optPitchHz      = 165.0
	pitchPenalty    = 0.5 // half a point per Hz of deviation
	pitchVarPenalty = 2.0
	optSpeakingRate = 150.0
	ratePenalty     = 0.5
	optPausePerMin  = 5.0
	pausePenalty    = 10.0
	optPauseSec     = 0.5
	pauseSecPenalty = 100.0
)

// Normalization optima and penalty scales for the visual descriptors.
const (
	optEyebrow      = 0.4
	eyebrowPenalty  = 100.0
	optBlinkPerMin  = 17.0
	blinkPenalty    = 3.0
	optHeadMovement = 0.5
	headMovePenalty = 100.0
)

// Engine computes fused scores. It is stateless and safe for concurrent use.
type Engine struct{}

// New creates a fusion scoring engine.
func New() *Engine { return &Engine{} }

// Compute fuses the clinical score with whichever modalities are available.
// audioFailed/visualFailed report upstream extraction failures; a nil
// feature set counts as unavailable regardless of the flag. Compute never
// panics and always returns a usable breakdown.
func (e *Engine) Compute(clinical int, af *types.AudioFeatures, vf *types.VisualFeatures, audioFailed, visualFailed bool) types.ScoringBreakdown {
	var audioScore, visualScore *float64

	if !audioFailed && af != nil {
		if s := audioSubscore(*af); isFinite(s) {
			audioScore = &s
		}
	}
	if !visualFailed && vf != nil {
		if s := visualSubscore(*vf); isFinite(s) {
			visualScore = &s
		}
	}

	mode := ModeFor(audioScore != nil, visualScore != nil)

	var multimodal *float64
	final := float64(clinical)
	switch mode {
	case ModeClinicalPlusAudio:
		multimodal = audioScore
		final = float64(clinical)*mode.ClinicalWeight() + *audioScore*mode.PerModalityWeight()
	case ModeClinicalPlusVisual:
		multimodal = visualScore
		final = float64(clinical)*mode.ClinicalWeight() + *visualScore*mode.PerModalityWeight()
	case ModeClinicalPlusBoth:
		m := (*audioScore + *visualScore) / 2
		multimodal = &m
		final = float64(clinical)*mode.ClinicalWeight() +
			*audioScore*mode.PerModalityWeight() +
			*visualScore*mode.PerModalityWeight()
	}

	// Degenerate arithmetic must never escape the engine: fall back to the
	// clinical-only score rather than propagating NaN or Inf.
	if !isFinite(final) {
		slog.Warn("fusion produced a non-finite score, falling back to clinical-only",
			"clinical", clinical, "mode", mode.String())
		return types.ScoringBreakdown{
			ClinicalScore:    clinical,
			ClinicalWeight:   ModeClinicalOnly.ClinicalWeight(),
			MultimodalWeight: ModeClinicalOnly.MultimodalWeight(),
			FinalScore:       clinical,
			Confidence:       fallbackConfidence,
		}
	}

	return types.ScoringBreakdown{
		ClinicalScore:    clinical,
		ClinicalWeight:   mode.ClinicalWeight(),
		AudioScore:       audioScore,
		VisualScore:      visualScore,
		MultimodalScore:  multimodal,
		MultimodalWeight: mode.MultimodalWeight(),
		FinalScore:       int(math.Round(final)),
		Confidence:       confidence(mode, clinical, af, vf),
	}
}

// ModeFor selects the weighting mode from modality availability.
func ModeFor(audio, visual bool) Mode {
	switch {
	case audio && visual:
		return ModeClinicalPlusBoth
	case audio:
		return ModeClinicalPlusAudio
	case visual:
		return ModeClinicalPlusVisual
	default:
		return ModeClinicalOnly
	}
}

// audioSubscore normalizes the nine non-quality audio descriptors to 0–100
// goodness scores, averages them, and scales by the extractor's quality.
func audioSubscore(af types.AudioFeatures) float64 {
	scores := []float64{
		deviationScore(af.MeanPitch, optPitchHz, pitchPenalty),
		deviationScore(af.PitchVariability, 0, pitchVarPenalty),
		deviationScore(af.SpeakingRate, optSpeakingRate, ratePenalty),
		deviationScore(af.PauseFrequency, optPausePerMin, pausePenalty),
		deviationScore(af.MeanPauseDuration, optPauseSec, pauseSecPenalty),
		clampScore(af.VoiceEnergy * 100),
		clampScore((1 - af.Jitter) * 100),
		clampScore((1 - af.Shimmer) * 100),
		clampScore(af.HarmonicRatio * 100),
	}
	return meanOf(scores) * af.Quality
}

// visualSubscore normalizes the visual descriptors to 0–100 goodness
// scores, averages them, and scales by the overall visual quality.
func visualSubscore(vf types.VisualFeatures) float64 {
	scores := []float64{
		clampScore(vf.SmileFrequency * 100),
		clampScore(vf.SmileIntensity * 100),
		clampScore(vf.EyeContact * 100),
		deviationScore(vf.EyebrowPosition, optEyebrow, eyebrowPenalty),
		clampScore((1 - vf.FacialTension) * 100),
		deviationScore(vf.BlinkRate, optBlinkPerMin, blinkPenalty),
		deviationScore(vf.HeadMovement, optHeadMovement, headMovePenalty),
		clampScore((vf.Affect + 1) * 50),
	}
	return meanOf(scores) * vf.OverallQuality
}

// confidence estimates result trustworthiness separately from the weights:
// each present modality contributes its own quality, and extreme clinical
// answers (rushed or inattentive self-reports) apply a flat discount.
func confidence(mode Mode, clinical int, af *types.AudioFeatures, vf *types.VisualFeatures) float64 {
	if mode == ModeClinicalOnly {
		return fallbackConfidence
	}
	c := 1.0
	if mode == ModeClinicalPlusAudio || mode == ModeClinicalPlusBoth {
		c *= af.Quality
	}
	if mode == ModeClinicalPlusVisual || mode == ModeClinicalPlusBoth {
		c *= vf.OverallQuality * vf.FacePresenceQuality
	}
	if clinical < 20 || clinical > 95 {
		c *= 0.9
	}
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// deviationScore maps a descriptor to 100 minus the scaled absolute
// deviation from its optimum, clamped to [0,100].
func deviationScore(value, optimum, penaltyPerUnit float64) float64 {
	return clampScore(100 - math.Abs(value-optimum)*penaltyPerUnit)
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func meanOf(scores []float64) float64 {
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
