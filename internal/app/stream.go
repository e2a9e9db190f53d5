package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/coder/websocket"

	"github.com/sondera-ai/sondera/internal/observe"
	"github.com/sondera-ai/sondera/pkg/types"
)

// maxStreamMessage caps a single websocket message. Audio should arrive in
// chunks and frames one per message, so anything larger is a client bug.
const maxStreamMessage = 8 << 20

// streamMessage is the wire format for /v1/enrich/stream. The capture client
// sends any number of "audio" and "frame" messages followed by one "commit";
// the server replies with the enrichment result and closes.
type streamMessage struct {
	Type          string  `json:"type"`
	Data          []byte  `json:"data,omitempty"`
	ClinicalScore int     `json:"clinical_score,omitempty"`
	Duration      float64 `json:"duration,omitempty"`
}

func (a *App) handleStream(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		observe.Logger(r.Context()).Warn("websocket accept failed", "error", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "stream aborted")

	ctx := r.Context()
	c.SetReadLimit(maxStreamMessage)

	a.metrics.ActiveStreams.Add(ctx, 1)
	defer a.metrics.ActiveStreams.Add(ctx, -1)

	var (
		media types.CapturedMedia
		total int64
	)
	limit := a.cfg.Enrich.BodyLimit()

	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			c.Close(websocket.StatusUnsupportedData, "expected text messages")
			return
		}

		var msg streamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.Close(websocket.StatusInvalidFramePayloadData, "invalid message: "+err.Error())
			return
		}

		total += int64(len(msg.Data))
		if total > limit {
			c.Close(websocket.StatusMessageTooBig, fmt.Sprintf("stream exceeds %d bytes", limit))
			return
		}

		switch msg.Type {
		case "audio":
			media.Audio = append(media.Audio, msg.Data...)
		case "frame":
			media.Frames = append(media.Frames, msg.Data)
		case "commit":
			a.commitStream(ctx, c, msg, media)
			return
		default:
			c.Close(websocket.StatusPolicyViolation, "unknown message type "+strconv.Quote(msg.Type))
			return
		}
	}
}

func (a *App) commitStream(ctx context.Context, c *websocket.Conn, msg streamMessage, media types.CapturedMedia) {
	if msg.ClinicalScore < 0 || msg.ClinicalScore > 100 {
		c.Close(websocket.StatusPolicyViolation, "clinical_score must be between 0 and 100")
		return
	}
	media.Duration = msg.Duration

	var frameWarnings []string
	if a.cfg.Enrich.ValidateFrames {
		media.Frames, frameWarnings = a.checkFrames(ctx, media.Frames)
	}

	result := a.orch.Enrich(ctx, msg.ClinicalScore, media)
	result.Warnings = append(result.Warnings, frameWarnings...)

	payload, err := json.Marshal(result)
	if err != nil {
		c.Close(websocket.StatusInternalError, "encode result")
		return
	}
	if err := c.Write(ctx, websocket.MessageText, payload); err != nil {
		return
	}
	c.Close(websocket.StatusNormalClosure, "enrichment complete")
}
