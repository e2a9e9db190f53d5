// Package types defines the shared types used across all Sondera packages.
//
// These types form the lingua franca between the media sampler, the feature
// extractors, the fusion scoring engine, and the enrichment orchestrator.
// They are intentionally minimal — each package defines its own internal
// types, but cross-cutting data structures live here to avoid circular imports.
package types

import "time"

// CapturedMedia is the raw output of a recording session as handed over by
// the media-capture collaborator. Either Audio or Frames (or both) may be
// empty when the corresponding capture channel was unavailable.
//
// CapturedMedia is consumed exactly once by the enrichment orchestrator and
// is not retained after scoring.
type CapturedMedia struct {
	// Audio is the encoded audio recording (WAV or MP3 container). Nil when
	// no audio was captured.
	Audio []byte

	// Frames are independently decodable still images (JPEG, PNG, or WebP)
	// ordered by capture time. Nil when no video was captured.
	Frames [][]byte

	// Duration is the length of the recording session in seconds.
	// Must be > 0 whenever Audio or Frames are present.
	Duration float64

	// StartTime and EndTime bound the recording session. Zero values are
	// allowed; they are informational only.
	StartTime time.Time
	EndTime   time.Time
}

// HasAudio reports whether any audio bytes were captured.
func (m CapturedMedia) HasAudio() bool { return len(m.Audio) > 0 }

// HasFrames reports whether any video frames were captured.
func (m CapturedMedia) HasFrames() bool { return len(m.Frames) > 0 }

// AudioFeatures holds the ten acoustic descriptors derived from one audio
// sample. Values are deterministic for a given sample and immutable once
// produced.
type AudioFeatures struct {
	// MeanPitch is the average fundamental frequency in Hz.
	MeanPitch float64 `json:"mean_pitch"`

	// PitchVariability is the standard deviation of per-frame pitch in Hz.
	PitchVariability float64 `json:"pitch_variability"`

	// SpeakingRate is the estimated speaking rate in words per minute.
	SpeakingRate float64 `json:"speaking_rate"`

	// PauseFrequency is the number of detected pauses per minute.
	PauseFrequency float64 `json:"pause_frequency"`

	// MeanPauseDuration is the average pause length in seconds.
	MeanPauseDuration float64 `json:"mean_pause_duration"`

	// VoiceEnergy is the mean squared amplitude scaled to [0,1].
	VoiceEnergy float64 `json:"voice_energy"`

	// Jitter is a voice stability proxy in [0,1]; higher means less stable.
	Jitter float64 `json:"jitter"`

	// Shimmer is an amplitude stability proxy in [0,1].
	Shimmer float64 `json:"shimmer"`

	// HarmonicRatio is the energy-weighted periodicity strength in [0,1].
	HarmonicRatio float64 `json:"harmonic_ratio"`

	// Quality is the extractor's self-assessed confidence in [0,1].
	Quality float64 `json:"quality"`
}

// VisualFeatures holds the ten visual descriptors derived from the sampled
// video frames via the facial-attribute provider.
type VisualFeatures struct {
	// SmileFrequency is the fraction of frames with a detected smile, [0,1].
	SmileFrequency float64 `json:"smile_frequency"`

	// SmileIntensity is the mean smile confidence over smiling frames, [0,1].
	SmileIntensity float64 `json:"smile_intensity"`

	// EyeContact is the fraction of frames with open eyes and near-frontal
	// head pose, [0,1].
	EyeContact float64 `json:"eye_contact"`

	// EyebrowPosition is a brow-raise proxy built from the "surprised"
	// emotion confidence, [0,1].
	EyebrowPosition float64 `json:"eyebrow_position"`

	// FacialTension is a tension proxy built from mouth state and negative
	// emotion confidences, [0,1].
	FacialTension float64 `json:"facial_tension"`

	// BlinkRate is the eyes-open→eyes-closed transition rate per minute.
	BlinkRate float64 `json:"blink_rate"`

	// HeadMovement is the normalized pose variance, [0,1].
	HeadMovement float64 `json:"head_movement"`

	// Affect is the signed emotional valence composite in [-1,+1].
	Affect float64 `json:"affect"`

	// FacePresenceQuality is the fraction of sampled frames with a usable
	// face detection, [0,1].
	FacePresenceQuality float64 `json:"face_presence_quality"`

	// OverallQuality combines detection confidence, brightness and
	// sharpness into a single [0,1] score.
	OverallQuality float64 `json:"overall_quality"`
}

// ScoringBreakdown explains how the final score was assembled. It is created
// fresh per scoring call and never mutated after construction.
//
// Invariant: ClinicalWeight + MultimodalWeight == 1.0 for every breakdown
// the fusion engine can produce.
type ScoringBreakdown struct {
	// ClinicalScore is the externally supplied assessment score, 0–100.
	ClinicalScore int `json:"clinical_score"`

	// ClinicalWeight is the share of the final score taken by the clinical
	// component.
	ClinicalWeight float64 `json:"clinical_weight"`

	// AudioScore is the normalized audio subscore (0–100). Nil when the
	// audio modality was unavailable.
	AudioScore *float64 `json:"audio_score,omitempty"`

	// VisualScore is the normalized visual subscore (0–100). Nil when the
	// visual modality was unavailable.
	VisualScore *float64 `json:"visual_score,omitempty"`

	// MultimodalScore is the combined signal-derived subscore (0–100).
	// Nil when both modalities were unavailable.
	MultimodalScore *float64 `json:"multimodal_score,omitempty"`

	// MultimodalWeight is the share of the final score taken by the
	// signal-derived component.
	MultimodalWeight float64 `json:"multimodal_weight"`

	// FinalScore is the fused score rounded to an integer, 0–100.
	FinalScore int `json:"final_score"`

	// Confidence estimates how trustworthy FinalScore is, [0,1].
	Confidence float64 `json:"confidence"`
}

// EnrichmentResult is the unit returned to the caller and the only
// externally visible artifact of the enrichment core.
type EnrichmentResult struct {
	// RequestID uniquely identifies this enrichment call for correlation
	// with server logs.
	RequestID string `json:"request_id,omitempty"`

	// OriginalScore is the clinical-only score before fusion.
	OriginalScore int `json:"original_score"`

	// FinalScore is the fused score, 0–100.
	FinalScore int `json:"final_score"`

	// Breakdown explains the weighting that produced FinalScore.
	Breakdown ScoringBreakdown `json:"breakdown"`

	// AudioFeatures are the extracted acoustic descriptors. Nil when audio
	// extraction failed or no audio was supplied.
	AudioFeatures *AudioFeatures `json:"audio_features,omitempty"`

	// VisualFeatures are the extracted facial descriptors. Nil when visual
	// extraction failed or no frames were supplied.
	VisualFeatures *VisualFeatures `json:"visual_features,omitempty"`

	// Success is true when at least one signal modality contributed to the
	// final score.
	Success bool `json:"success"`

	// ProcessingTime is the elapsed wall-clock time of the enrichment call.
	ProcessingTime time.Duration `json:"processing_time"`

	// Warnings lists human-readable degradation notices (e.g. "no audio
	// data available"). Empty on a fully successful run.
	Warnings []string `json:"warnings,omitempty"`
}
