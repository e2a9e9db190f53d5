// Package mock provides a test double for the faceattr.Analyzer interface.
//
// Configure Records/Err to control the response and inspect Calls to verify
// what was submitted:
//
//	an := &mock.Analyzer{Records: []*faceattr.FrameAttributes{{Confidence: 0.9}}}
//	records, _ := an.AnalyzeFrames(ctx, frames)
package mock

import (
	"context"
	"sync"

	"github.com/sondera-ai/sondera/pkg/provider/faceattr"
)

// AnalyzeCall records a single invocation of Analyzer.AnalyzeFrames.
type AnalyzeCall struct {
	// Frames are the encoded stills passed to AnalyzeFrames.
	Frames [][]byte
}

// Analyzer is a mock implementation of faceattr.Analyzer.
type Analyzer struct {
	mu sync.Mutex

	// Records is returned from AnalyzeFrames. When its length differs from
	// the request, the result is padded with nils or truncated to stay
	// aligned, matching the interface contract.
	Records []*faceattr.FrameAttributes

	// Err, if non-nil, is returned as the error from AnalyzeFrames.
	Err error

	// PingErr, if non-nil, is returned from Ping.
	PingErr error

	// Calls records every AnalyzeFrames invocation in order.
	Calls []AnalyzeCall
}

var (
	_ faceattr.Analyzer = (*Analyzer)(nil)
	_ faceattr.Pinger   = (*Analyzer)(nil)
)

// AnalyzeFrames records the call and returns Records aligned to the request
// length, or Err.
func (a *Analyzer) AnalyzeFrames(_ context.Context, frames [][]byte) ([]*faceattr.FrameAttributes, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Calls = append(a.Calls, AnalyzeCall{Frames: frames})
	if a.Err != nil {
		return nil, a.Err
	}
	out := make([]*faceattr.FrameAttributes, len(frames))
	copy(out, a.Records)
	return out, nil
}

// Ping returns PingErr.
func (a *Analyzer) Ping(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.PingErr
}

// Reset clears all recorded calls. Thread-safe.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Calls = nil
}
