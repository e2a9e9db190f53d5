package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sondera-ai/sondera/internal/observe"
	"github.com/sondera-ai/sondera/pkg/types"
)

// enrichRequest is the body of POST /v1/enrich. Audio and Frames carry raw
// media bytes, base64-encoded on the wire by the standard JSON codec.
type enrichRequest struct {
	ClinicalScore int       `json:"clinical_score"`
	Audio         []byte    `json:"audio,omitempty"`
	Frames        [][]byte  `json:"frames,omitempty"`
	Duration      float64   `json:"duration"`
	StartTime     time.Time `json:"start_time,omitzero"`
	EndTime       time.Time `json:"end_time,omitzero"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *App) handleEnrich(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.cfg.Enrich.BodyLimit())

	var req enrichRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Error: fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	if req.ClinicalScore < 0 || req.ClinicalScore > 100 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "clinical_score must be between 0 and 100"})
		return
	}

	media := types.CapturedMedia{
		Audio:     req.Audio,
		Frames:    req.Frames,
		Duration:  req.Duration,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}

	var frameWarnings []string
	if a.cfg.Enrich.ValidateFrames {
		media.Frames, frameWarnings = a.checkFrames(r.Context(), media.Frames)
	}

	result := a.orch.Enrich(r.Context(), req.ClinicalScore, media)
	result.Warnings = append(result.Warnings, frameWarnings...)

	writeJSON(w, http.StatusOK, result)
}

// checkFrames drops frames that do not decode as a supported still image.
func (a *App) checkFrames(ctx context.Context, frames [][]byte) ([][]byte, []string) {
	kept, dropped := validFrames(frames)
	if dropped == 0 {
		return kept, nil
	}
	observe.Logger(ctx).Warn("dropped undecodable frames", "dropped", dropped, "kept", len(kept))
	return kept, []string{fmt.Sprintf("dropped %d undecodable video frames", dropped)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
