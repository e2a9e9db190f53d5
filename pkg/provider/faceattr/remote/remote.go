// Package remote provides an HTTP-backed facial-attribute analyzer. It
// implements the faceattr.Analyzer interface against a batch detection API:
// base64-encoded stills out, per-face attribute records back.
//
// The wire format follows the common detection-service shape (confidences
// and quality values on a 0–100 scale, upper-case emotion labels); the
// provider normalizes everything into the [0,1] domain types.
package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sondera-ai/sondera/pkg/provider/faceattr"
)

const (
	defaultTimeout = 15 * time.Second

	// analyzePath and healthPath are appended to the configured base URL.
	analyzePath = "/v1/faces/analyze"
	healthPath  = "/v1/health"
)

// Option is a functional option for configuring the remote Provider.
type Option func(*Provider)

// WithHTTPClient overrides the HTTP client. Useful in tests with
// httptest servers or custom transports.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// WithTimeout sets the per-request timeout applied on top of the caller's
// context. Default is 15 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.timeout = d }
}

// Provider implements faceattr.Analyzer against a remote detection service.
type Provider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
}

// Compile-time assertions that Provider satisfies the faceattr interfaces.
var (
	_ faceattr.Analyzer = (*Provider)(nil)
	_ faceattr.Pinger   = (*Provider)(nil)
)

// New creates a remote Provider. baseURL must be non-empty; apiKey may be
// empty for unauthenticated deployments.
func New(baseURL, apiKey string, opts ...Option) (*Provider, error) {
	if baseURL == "" {
		return nil, errors.New("remote: baseURL must not be empty")
	}
	p := &Provider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
		timeout:    defaultTimeout,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// ---- wire types ----

// analyzeRequest is the JSON payload sent to the detection service.
type analyzeRequest struct {
	Images []string `json:"images"` // base64-encoded stills, request order
}

// analyzeResponse is the JSON body returned by the detection service. Faces
// may be fewer than the requested images: frames without a detection are
// omitted and identified by FrameIndex.
type analyzeResponse struct {
	Faces []wireFace `json:"faces"`
}

type wireFace struct {
	FrameIndex int           `json:"frame_index"`
	Confidence float64       `json:"confidence"` // 0–100
	Emotions   []wireEmotion `json:"emotions"`
	Smile      wireBool      `json:"smile"`
	EyesOpen   wireBool      `json:"eyes_open"`
	MouthOpen  wireBool      `json:"mouth_open"`
	Pose       faceattr.Pose `json:"pose"`
	Quality    wireQuality   `json:"quality"`
}

type wireEmotion struct {
	Type       string  `json:"type"`       // upper-case label
	Confidence float64 `json:"confidence"` // 0–100
}

type wireBool struct {
	Value      bool    `json:"value"`
	Confidence float64 `json:"confidence"` // 0–100
}

type wireQuality struct {
	Brightness float64 `json:"brightness"` // 0–100
	Sharpness  float64 `json:"sharpness"`  // 0–100
}

// AnalyzeFrames posts the frames as one batch and returns the per-frame
// records aligned to the request. Transport and decode failures are
// returned as-is; the caller classifies them as retryable extraction
// failures.
func (p *Provider) AnalyzeFrames(ctx context.Context, frames [][]byte) ([]*faceattr.FrameAttributes, error) {
	if len(frames) == 0 {
		return nil, errors.New("remote: no frames supplied")
	}

	reqBody := analyzeRequest{Images: make([]string, len(frames))}
	for i, f := range frames {
		reqBody.Images[i] = base64.StdEncoding.EncodeToString(f)
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("remote: encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+analyzePath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: analyze: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("remote: analyze: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("remote: decode response: %w", err)
	}

	// Align the (possibly shorter) face list to the requested frames. When
	// the service reports several faces for one frame, the most confident
	// detection wins.
	out := make([]*faceattr.FrameAttributes, len(frames))
	for _, face := range decoded.Faces {
		if face.FrameIndex < 0 || face.FrameIndex >= len(frames) {
			continue
		}
		if prev := out[face.FrameIndex]; prev != nil && prev.Confidence >= pct(face.Confidence) {
			continue
		}
		out[face.FrameIndex] = normalize(face)
	}
	return out, nil
}

// Ping probes the service health endpoint.
func (p *Provider) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("remote: build ping: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote: ping: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remote: ping: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// normalize converts a wire record (0–100 scales, upper-case labels) into
// the [0,1] domain representation.
func normalize(face wireFace) *faceattr.FrameAttributes {
	attrs := &faceattr.FrameAttributes{
		Confidence: pct(face.Confidence),
		Smile: faceattr.BoolAttribute{
			Value:      face.Smile.Value,
			Confidence: pct(face.Smile.Confidence),
		},
		EyesOpen: faceattr.BoolAttribute{
			Value:      face.EyesOpen.Value,
			Confidence: pct(face.EyesOpen.Confidence),
		},
		MouthOpen:  face.MouthOpen.Value,
		Pose:       face.Pose,
		Brightness: pct(face.Quality.Brightness),
		Sharpness:  pct(face.Quality.Sharpness),
	}
	for _, em := range face.Emotions {
		attrs.Emotions = append(attrs.Emotions, faceattr.Emotion{
			Label:      strings.ToLower(em.Type),
			Confidence: pct(em.Confidence),
		})
	}
	return attrs
}

// pct maps a 0–100 wire value into [0,1], clamping out-of-range input.
func pct(v float64) float64 {
	v /= 100
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
