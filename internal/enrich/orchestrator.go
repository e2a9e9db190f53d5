// Package enrich coordinates the enrichment pipeline: decode and cap the
// captured media, run the audio and visual extractors concurrently, and fuse
// their output with the clinical score.
//
// The orchestrator never returns an error. Any modality that cannot
// contribute is dropped with a warning and the scoring engine reweights
// around it, so the caller always receives at least the clinical score
// unchanged.
package enrich

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sondera-ai/sondera/internal/extract/face"
	"github.com/sondera-ai/sondera/internal/extract/voice"
	"github.com/sondera-ai/sondera/internal/observe"
	"github.com/sondera-ai/sondera/internal/sample"
	"github.com/sondera-ai/sondera/internal/scoring"
	"github.com/sondera-ai/sondera/pkg/audio"
	"github.com/sondera-ai/sondera/pkg/provider/faceattr"
	"github.com/sondera-ai/sondera/pkg/types"
	"go.opentelemetry.io/otel/metric"
)

// Orchestrator runs the full enrichment pipeline for one request at a time
// per call. It holds no per-request state and is safe for concurrent use.
type Orchestrator struct {
	sampler *sample.Sampler
	voice   *voice.Extractor
	face    *face.Extractor
	engine  *scoring.Engine
	metrics *observe.Metrics
}

// Option configures an [Orchestrator].
type Option func(*Orchestrator)

// WithMetrics wires metric instruments into the pipeline. Without it no
// metrics are recorded, which keeps tests free of global meter state.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New creates an orchestrator. analyzer may be nil, in which case every
// request with video frames degrades to the remaining modalities.
func New(analyzer faceattr.Analyzer, samplerCfg sample.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sampler: sample.New(samplerCfg),
		voice:   voice.New(),
		engine:  scoring.New(),
	}
	if analyzer != nil {
		o.face = face.New(analyzer)
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Enrich runs the pipeline for one captured recording and returns the fused
// result. It never returns an error: every failure downgrades the result
// and is reported through the Warnings list.
func (o *Orchestrator) Enrich(ctx context.Context, clinicalScore int, media types.CapturedMedia) types.EnrichmentResult {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "enrich")
	defer span.End()

	if o.metrics != nil {
		o.metrics.ActiveEnrichments.Add(ctx, 1)
		defer o.metrics.ActiveEnrichments.Add(ctx, -1)
	}

	result := types.EnrichmentResult{
		RequestID:     uuid.NewString(),
		OriginalScore: clinicalScore,
	}

	if media.Duration <= 0 && (media.HasAudio() || media.HasFrames()) {
		result.Warnings = append(result.Warnings, "media duration not reported; quality estimates degraded")
	}

	var (
		af                        *types.AudioFeatures
		vf                        *types.VisualFeatures
		audioWarns, visualWarns   []string
		audioFailed, visualFailed bool
	)

	var g errgroup.Group
	g.Go(func() error {
		af, audioFailed, audioWarns = o.extractAudio(ctx, media)
		return nil
	})
	g.Go(func() error {
		vf, visualFailed, visualWarns = o.extractVisual(ctx, media)
		return nil
	})
	// Goroutines report through their own variables and never error.
	_ = g.Wait()

	result.Warnings = append(result.Warnings, audioWarns...)
	result.Warnings = append(result.Warnings, visualWarns...)
	result.AudioFeatures = af
	result.VisualFeatures = vf

	breakdown := o.engine.Compute(clinicalScore, af, vf, audioFailed, visualFailed)
	result.Breakdown = breakdown
	result.FinalScore = breakdown.FinalScore
	result.Success = breakdown.AudioScore != nil || breakdown.VisualScore != nil
	result.ProcessingTime = time.Since(start)

	mode := scoring.ModeFor(breakdown.AudioScore != nil, breakdown.VisualScore != nil)
	status := "ok"
	if !result.Success {
		status = "degraded"
	}
	if o.metrics != nil {
		o.metrics.EnrichmentDuration.Record(ctx, result.ProcessingTime.Seconds())
		o.metrics.RecordEnrichment(ctx, mode.String(), status)
	}

	observe.Logger(ctx).Info("enrichment complete",
		"request_id", result.RequestID,
		"mode", mode.String(),
		"original_score", result.OriginalScore,
		"final_score", result.FinalScore,
		"confidence", breakdown.Confidence,
		"warnings", len(result.Warnings),
		"duration", result.ProcessingTime,
	)
	return result
}

// extractAudio decodes, caps, and analyses the audio track. The bool result
// reports whether the modality is unusable.
func (o *Orchestrator) extractAudio(ctx context.Context, media types.CapturedMedia) (*types.AudioFeatures, bool, []string) {
	if !media.HasAudio() {
		return nil, true, []string{"no audio data available"}
	}
	ctx, span := observe.StartSpan(ctx, "extract.audio")
	defer span.End()
	start := time.Now()

	clip, err := audio.Decode(media.Audio)
	if o.metrics != nil {
		o.metrics.DecodeDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		o.reportFailure(ctx, "audio", types.NewFailure(types.FailureExtraction, err))
		return nil, true, []string{"audio decode failed: " + err.Error()}
	}

	clip = o.sampler.CapAudio(clip)
	feat, err := o.voice.Extract(clip, media.Duration)
	if err != nil {
		o.reportFailure(ctx, "audio", err)
		return nil, true, []string{"audio feature extraction failed: " + err.Error()}
	}
	o.recordExtraction(ctx, "audio", time.Since(start))
	return &feat, false, nil
}

// extractVisual caps the frame set and analyses it through the configured
// face attribute provider.
func (o *Orchestrator) extractVisual(ctx context.Context, media types.CapturedMedia) (*types.VisualFeatures, bool, []string) {
	if !media.HasFrames() {
		return nil, true, []string{"no video frames available"}
	}
	if o.face == nil {
		return nil, true, []string{"no face analysis provider configured"}
	}
	ctx, span := observe.StartSpan(ctx, "extract.visual")
	defer span.End()
	start := time.Now()

	frames := o.sampler.CapFrames(media.Frames)
	feat, err := o.face.Extract(ctx, frames, media.Duration)
	if err != nil {
		o.reportFailure(ctx, "visual", err)
		return nil, true, []string{"visual feature extraction failed: " + err.Error()}
	}
	o.recordExtraction(ctx, "visual", time.Since(start))
	return &feat, false, nil
}

func (o *Orchestrator) reportFailure(ctx context.Context, modality string, err error) {
	code := types.CodeOf(err)
	observe.Logger(ctx).Warn("modality degraded",
		"modality", modality,
		"code", string(code),
		"retryable", code.Retryable(),
		"error", err,
	)
	if o.metrics != nil {
		o.metrics.RecordModalityFailure(ctx, modality, string(code))
	}
}

func (o *Orchestrator) recordExtraction(ctx context.Context, modality string, elapsed time.Duration) {
	if o.metrics == nil {
		return
	}
	o.metrics.ExtractionDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(observe.Attr("modality", modality)),
	)
}
