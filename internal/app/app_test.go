package app_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/sondera-ai/sondera/internal/app"
	"github.com/sondera-ai/sondera/internal/config"
	"github.com/sondera-ai/sondera/internal/observe"
	"github.com/sondera-ai/sondera/pkg/provider/faceattr"
	"github.com/sondera-ai/sondera/pkg/provider/faceattr/mock"
	"github.com/sondera-ai/sondera/pkg/types"
)

func newTestApp(t *testing.T, cfg *config.Config, analyzer faceattr.Analyzer) (*app.App, *httptest.Server) {
	t.Helper()
	m, err := observe.NewMetrics(sdkmetric.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	a, err := app.New(cfg, app.Providers{FaceAttr: analyzer}, app.WithMetrics(m))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return a, srv
}

// toneWAV returns a mono 16 kHz PCM WAV holding a sine tone.
func toneWAV(freq float64, seconds float64) []byte {
	const rate = 16000
	n := int(seconds * rate)
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := 0.4 * math.Sin(2*math.Pi*freq*float64(i)/rate)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(v*32767)))
	}

	buf := make([]byte, 0, 44+len(pcm))
	u32 := func(v uint32) []byte {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, v)
		return b
	}
	u16 := func(v uint16) []byte {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, v)
		return b
	}
	buf = append(buf, []byte("RIFF")...)
	buf = append(buf, u32(uint32(36+len(pcm)))...)
	buf = append(buf, []byte("WAVE")...)
	buf = append(buf, []byte("fmt ")...)
	buf = append(buf, u32(16)...)
	buf = append(buf, u16(1)...)
	buf = append(buf, u16(1)...)
	buf = append(buf, u32(16000)...)
	buf = append(buf, u32(32000)...)
	buf = append(buf, u16(2)...)
	buf = append(buf, u16(16)...)
	buf = append(buf, []byte("data")...)
	buf = append(buf, u32(uint32(len(pcm)))...)
	buf = append(buf, pcm...)
	return buf
}

func pngFrame(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func frontalFaces(n int) []*faceattr.FrameAttributes {
	out := make([]*faceattr.FrameAttributes, n)
	for i := range out {
		out[i] = &faceattr.FrameAttributes{
			Confidence: 0.95,
			Smile:      faceattr.BoolAttribute{Value: false, Confidence: 0.9},
			EyesOpen:   faceattr.BoolAttribute{Value: true, Confidence: 0.95},
			Pose:       faceattr.Pose{Yaw: 2, Pitch: 1},
			Brightness: 0.8,
			Sharpness:  0.7,
		}
	}
	return out
}

func postEnrich(t *testing.T, srv *httptest.Server, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(srv.URL+"/v1/enrich", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST /v1/enrich: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeResult(t *testing.T, resp *http.Response) types.EnrichmentResult {
	t.Helper()
	var result types.EnrichmentResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	return result
}

func hasWarning(result types.EnrichmentResult, substr string) bool {
	for _, w := range result.Warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestEnrich_ClinicalOnlyWithoutMedia(t *testing.T) {
	_, srv := newTestApp(t, &config.Config{}, &mock.Analyzer{})

	resp := postEnrich(t, srv, map[string]any{"clinical_score": 70, "duration": 0})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	result := decodeResult(t, resp)

	if result.FinalScore != 70 {
		t.Errorf("FinalScore = %d, want 70", result.FinalScore)
	}
	if result.Success {
		t.Error("Success = true for media-free request")
	}
	if result.RequestID == "" {
		t.Error("RequestID is empty")
	}
	if !hasWarning(result, "no audio data available") || !hasWarning(result, "no video frames available") {
		t.Errorf("Warnings = %v, want both modality warnings", result.Warnings)
	}
}

func TestEnrich_AudioContributes(t *testing.T) {
	_, srv := newTestApp(t, &config.Config{}, &mock.Analyzer{})

	resp := postEnrich(t, srv, map[string]any{
		"clinical_score": 60,
		"audio":          toneWAV(165, 2),
		"duration":       35.0,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	result := decodeResult(t, resp)

	if result.AudioFeatures == nil {
		t.Fatal("AudioFeatures is nil")
	}
	if !result.Success {
		t.Error("Success = false with decodable audio")
	}
	if got := result.Breakdown.ClinicalWeight; math.Abs(got-0.85) > 1e-9 {
		t.Errorf("ClinicalWeight = %v, want 0.85", got)
	}
}

func TestEnrich_VisualContributes(t *testing.T) {
	an := &mock.Analyzer{Records: frontalFaces(3)}
	_, srv := newTestApp(t, &config.Config{}, an)

	frame := pngFrame(t)
	resp := postEnrich(t, srv, map[string]any{
		"clinical_score": 50,
		"frames":         [][]byte{frame, frame, frame},
		"duration":       30.0,
	})
	result := decodeResult(t, resp)

	if result.VisualFeatures == nil {
		t.Fatal("VisualFeatures is nil")
	}
	if result.Breakdown.VisualScore == nil {
		t.Fatal("Breakdown.VisualScore is nil")
	}
}

func TestEnrich_RejectsBadJSON(t *testing.T) {
	_, srv := newTestApp(t, &config.Config{}, &mock.Analyzer{})

	resp, err := http.Post(srv.URL+"/v1/enrich", "application/json", strings.NewReader("{nope"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestEnrich_RejectsScoreOutOfRange(t *testing.T) {
	_, srv := newTestApp(t, &config.Config{}, &mock.Analyzer{})

	for _, score := range []int{-1, 101} {
		resp := postEnrich(t, srv, map[string]any{"clinical_score": score})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("score %d: status = %d, want 400", score, resp.StatusCode)
		}
	}
}

func TestEnrich_RejectsOversizedBody(t *testing.T) {
	cfg := &config.Config{}
	cfg.Enrich.MaxBodyBytes = 1024
	_, srv := newTestApp(t, cfg, &mock.Analyzer{})

	resp := postEnrich(t, srv, map[string]any{
		"clinical_score": 50,
		"audio":          make([]byte, 4096),
	})
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", resp.StatusCode)
	}
}

func TestEnrich_DropsUndecodableFrames(t *testing.T) {
	an := &mock.Analyzer{Records: frontalFaces(1)}
	cfg := &config.Config{}
	cfg.Enrich.ValidateFrames = true
	_, srv := newTestApp(t, cfg, an)

	resp := postEnrich(t, srv, map[string]any{
		"clinical_score": 50,
		"frames":         [][]byte{pngFrame(t), []byte("not an image"), {0x00, 0x01}},
		"duration":       20.0,
	})
	result := decodeResult(t, resp)

	if !hasWarning(result, "dropped 2 undecodable video frames") {
		t.Errorf("Warnings = %v, want dropped-frames notice", result.Warnings)
	}
	if len(an.Calls) != 1 || len(an.Calls[0].Frames) != 1 {
		t.Fatalf("analyzer calls = %d, want one call with one frame", len(an.Calls))
	}
}

func TestEnrich_MethodNotAllowed(t *testing.T) {
	_, srv := newTestApp(t, &config.Config{}, &mock.Analyzer{})

	resp, err := http.Get(srv.URL + "/v1/enrich")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestHealthRoutes(t *testing.T) {
	an := &mock.Analyzer{}
	_, srv := newTestApp(t, &config.Config{}, an)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/healthz status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/readyz status = %d, want 200", resp.StatusCode)
	}

	an.PingErr = errors.New("provider down")
	resp, err = http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("/readyz status with failing ping = %d, want 503", resp.StatusCode)
	}
}

func TestMetricsRoute(t *testing.T) {
	_, srv := newTestApp(t, &config.Config{}, &mock.Analyzer{})

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	a, _ := newTestApp(t, &config.Config{}, &mock.Analyzer{})

	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("first Shutdown: %v", err)
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}
