// Package voice extracts acoustic descriptors from a decoded, capped audio
// clip: pitch statistics via time-domain autocorrelation, speaking rate and
// pause structure via energy thresholding, and stability proxies (jitter,
// shimmer, harmonic ratio).
//
// The extractor holds only static configuration; all methods are pure over
// their inputs, so a single Extractor may be shared across goroutines.
package voice

import (
	"errors"
	"math"
	"sort"

	"github.com/sondera-ai/sondera/pkg/audio"
	"github.com/sondera-ai/sondera/pkg/types"
)

const (
	// pitchRate is the analysis rate for F0 tracking. 8 kHz is sufficient
	// for the voiced F0 band.
	pitchRate = 8000

	// pitchWindowSec and pitchOverlap define the pitch analysis framing:
	// 40 ms windows at 75% overlap.
	pitchWindowSec = 0.040
	pitchOverlap   = 0.75

	// pitchFrameStride processes every Nth frame for cost control.
	pitchFrameStride = 3

	// minPitchHz and maxPitchHz bound the plausible speaking F0 range.
	minPitchHz = 85.0
	maxPitchHz = 300.0

	// defaultMeanPitch is reported when no frame yields a valid estimate.
	defaultMeanPitch = 150.0

	// energyWindowSec and energyHopSec define the voice-activity framing:
	// 20 ms windows at 50% hop.
	energyWindowSec = 0.020
	energyHopSec    = 0.010

	// energyPercentile is the per-frame energy percentile used as the
	// voice-activity threshold.
	energyPercentile = 0.25

	// wordsPerVoicedSecond converts voiced time to an estimated word count.
	wordsPerVoicedSecond = 2.5

	// minSpeakingRate and maxSpeakingRate clamp the words/min estimate.
	minSpeakingRate = 80.0
	maxSpeakingRate = 200.0

	// minPauseSec is the minimum continuous sub-threshold span counted as
	// a pause.
	minPauseSec = 0.200

	// defaultPauseSec is reported when no pause was found.
	defaultPauseSec = 0.5

	// shimmerFrameLen and harmonicFrameLen are the fixed frame sizes for
	// the amplitude-stability and periodicity analyses.
	shimmerFrameLen  = 1024
	harmonicFrameLen = 2048

	// jitterNormHz normalizes pitch variability into the [0,1] jitter proxy.
	jitterNormHz = 50.0

	// clippingAmplitude and clippingFraction define the clipping quality
	// penalty: more than 1% of samples above |0.95| marks a clipped take.
	clippingAmplitude = 0.95
	clippingFraction  = 0.01
)

// ErrNoAudio is returned when the extractor is invoked without samples.
var ErrNoAudio = errors.New("voice: no audio samples supplied")

// Extractor derives [types.AudioFeatures] from a mono clip. The zero value
// is ready to use.
type Extractor struct{}

// New creates a voice feature extractor.
func New() *Extractor { return &Extractor{} }

// Extract computes the ten acoustic descriptors for clip. totalDuration is
// the full recording length in seconds (before sampling) and only affects
// the quality estimate.
//
// Returns INSUFFICIENT_DATA when the clip is empty. Every per-feature
// helper tolerates clips shorter than one analysis frame by reporting its
// documented default, so short input never fails.
func (e *Extractor) Extract(clip audio.Clip, totalDuration float64) (feat types.AudioFeatures, err error) {
	if clip.Empty() {
		return types.AudioFeatures{}, types.NewFailure(types.FailureInsufficientData, ErrNoAudio)
	}
	// Numeric extraction over arbitrary caller media must not take the
	// process down; a panic surfaces as a retryable extraction failure.
	defer func() {
		if r := recover(); r != nil {
			err = types.Failuref(types.FailureExtraction, "voice: extraction panic: %v", r)
		}
	}()

	meanPitch, pitchVar := estimatePitch(clip)
	threshold, energies := energyFrames(clip)
	meanSq := meanSquared(clip.Samples)

	feat = types.AudioFeatures{
		MeanPitch:        meanPitch,
		PitchVariability: pitchVar,
		SpeakingRate:     speakingRate(energies, threshold, clip.Duration()),
		VoiceEnergy:      clamp01(meanSq * 10),
		Jitter:           clamp01(pitchVar / jitterNormHz),
		Shimmer:          shimmer(clip.Samples),
		HarmonicRatio:    harmonicRatio(clip),
		Quality:          quality(clip.Samples, meanSq, totalDuration),
	}
	feat.PauseFrequency, feat.MeanPauseDuration = pauses(energies, threshold, clip.Duration())
	return feat, nil
}

// estimatePitch tracks F0 with time-domain autocorrelation on 40 ms frames
// at 75% overlap, processing every third frame. Estimates outside the
// plausible voice band are discarded. Returns the default pitch with zero
// variability when no frame survives.
func estimatePitch(clip audio.Clip) (mean, stddev float64) {
	samples := audio.Resample(clip.Samples, clip.SampleRate, pitchRate)

	win := int(pitchWindowSec * pitchRate)
	hop := int(float64(win) * (1 - pitchOverlap))
	pitchRateF := float64(pitchRate)
	minLag := int(pitchRateF / maxPitchHz)
	maxLag := int(pitchRateF / minPitchHz)

	var estimates []float64
	frame := 0
	for start := 0; start+win <= len(samples); start += hop {
		frame++
		if (frame-1)%pitchFrameStride != 0 {
			continue
		}
		w := samples[start : start+win]

		bestLag, bestCorr := 0, 0.0
		for lag := minLag; lag <= maxLag && lag < len(w); lag++ {
			var corr float64
			for i := 0; i+lag < len(w); i++ {
				corr += w[i] * w[i+lag]
			}
			if corr > bestCorr {
				bestCorr = corr
				bestLag = lag
			}
		}
		if bestLag == 0 {
			continue
		}
		freq := float64(pitchRate) / float64(bestLag)
		if freq >= minPitchHz && freq <= maxPitchHz {
			estimates = append(estimates, freq)
		}
	}

	if len(estimates) == 0 {
		return defaultMeanPitch, 0
	}
	mean = meanOf(estimates)
	if len(estimates) < 2 {
		return mean, 0
	}
	return mean, stddevOf(estimates, mean)
}

// energyFrames computes the short-term energy of 20 ms frames at a 10 ms
// hop and the voice-activity threshold (25th percentile of those energies).
func energyFrames(clip audio.Clip) (threshold float64, energies []float64) {
	win := int(energyWindowSec * float64(clip.SampleRate))
	hop := int(energyHopSec * float64(clip.SampleRate))
	if win <= 0 || hop <= 0 {
		return 0, nil
	}

	for start := 0; start+win <= len(clip.Samples); start += hop {
		energies = append(energies, meanSquared(clip.Samples[start:start+win]))
	}
	if len(energies) == 0 {
		return 0, nil
	}

	sorted := make([]float64, len(energies))
	copy(sorted, energies)
	sort.Float64s(sorted)
	idx := int(energyPercentile * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx], energies
}

// speakingRate estimates words/min from the voiced fraction of the clip:
// frames above the energy threshold accumulate voiced time, which converts
// to words at an average speaking tempo. The result is clamped to the
// plausible conversational range.
func speakingRate(energies []float64, threshold, clipSeconds float64) float64 {
	var voiced int
	for _, e := range energies {
		if e > threshold {
			voiced++
		}
	}
	voicedSeconds := float64(voiced) * energyHopSec
	words := voicedSeconds * wordsPerVoicedSecond

	rate := 0.0
	if clipSeconds > 0 {
		rate = words / (clipSeconds / 60)
	}
	if rate < minSpeakingRate {
		return minSpeakingRate
	}
	if rate > maxSpeakingRate {
		return maxSpeakingRate
	}
	return rate
}

// pauses detects continuous sub-threshold spans of at least minPauseSec.
// Returns the pause onset rate per minute and the mean pause duration
// (defaultPauseSec when none were found).
func pauses(energies []float64, threshold, clipSeconds float64) (perMinute, meanDuration float64) {
	var durations []float64
	run := 0
	flush := func() {
		d := float64(run) * energyHopSec
		if d >= minPauseSec {
			durations = append(durations, d)
		}
		run = 0
	}
	for _, e := range energies {
		if e <= threshold {
			run++
		} else {
			flush()
		}
	}
	flush()

	if clipSeconds > 0 {
		perMinute = float64(len(durations)) / (clipSeconds / 60)
	}
	if len(durations) == 0 {
		return perMinute, defaultPauseSec
	}
	return perMinute, meanOf(durations)
}

// shimmer measures amplitude instability: the standard deviation of
// per-frame RMS amplitude over 1024-sample frames, scaled into [0,1].
func shimmer(samples []float64) float64 {
	var rms []float64
	for start := 0; start+shimmerFrameLen <= len(samples); start += shimmerFrameLen {
		rms = append(rms, math.Sqrt(meanSquared(samples[start:start+shimmerFrameLen])))
	}
	if len(rms) < 2 {
		return 0
	}
	return clamp01(stddevOf(rms, meanOf(rms)) * 10)
}

// harmonicRatio measures periodicity strength: per 2048-sample frame, the
// maximum autocorrelation normalized by the frame energy, combined across
// frames with energy weighting so silent frames do not dilute the ratio.
func harmonicRatio(clip audio.Clip) float64 {
	minLag := clip.SampleRate / int(maxPitchHz)
	if minLag < 1 {
		minLag = 1
	}

	var weighted, total float64
	for start := 0; start+harmonicFrameLen <= len(clip.Samples); start += harmonicFrameLen {
		w := clip.Samples[start : start+harmonicFrameLen]
		energy := 0.0
		for _, s := range w {
			energy += s * s
		}
		if energy == 0 {
			continue
		}

		best := 0.0
		for lag := minLag; lag <= len(w)/2; lag++ {
			var corr float64
			for i := 0; i+lag < len(w); i++ {
				corr += w[i] * w[i+lag]
			}
			if norm := corr / energy; norm > best {
				best = norm
			}
		}
		weighted += energy * clamp01(best)
		total += energy
	}
	if total == 0 {
		return 0
	}
	return clamp01(weighted / total)
}

// quality is the extractor's self-assessment: penalties for short takes,
// very low level, and clipping, multiplied together.
func quality(samples []float64, meanSq, totalDuration float64) float64 {
	q := 1.0
	if totalDuration < 30 {
		q *= 0.7
	}
	if totalDuration < 15 {
		q *= 0.5
	}
	if meanSq < 0.01 {
		q *= 0.6
	}

	clipped := 0
	for _, s := range samples {
		if math.Abs(s) > clippingAmplitude {
			clipped++
		}
	}
	if len(samples) > 0 && float64(clipped)/float64(len(samples)) > clippingFraction {
		q *= 0.8
	}
	return clamp01(q)
}

// ─── numeric helpers ─────────────────────────────────────────────────────────

func meanSquared(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return sum / float64(len(samples))
}

func meanOf(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddevOf(values []float64, mean float64) float64 {
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
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
