package types

import (
	"errors"
	"fmt"
)

// FailureCode classifies why an enrichment stage could not produce its
// output. Codes are stable strings suitable for logs and API responses.
type FailureCode string

const (
	// FailurePermissionDenied is reported by the capture layer when the
	// user denied microphone/camera access. Never produced by this core;
	// listed so the taxonomy is complete at the API boundary.
	FailurePermissionDenied FailureCode = "PERMISSION_DENIED"

	// FailureMediaCapture indicates the capture collaborator delivered a
	// broken recording.
	FailureMediaCapture FailureCode = "MEDIA_CAPTURE_FAILED"

	// FailureExtraction indicates decoding or numeric extraction failed.
	// Retryable: a fresh attempt on the same media may succeed (e.g. after
	// a transient provider outage).
	FailureExtraction FailureCode = "FEATURE_EXTRACTION_FAILED"

	// FailureInsufficientData indicates there was nothing to extract from.
	// Not retryable without new media.
	FailureInsufficientData FailureCode = "INSUFFICIENT_DATA"

	// FailureQualityTooLow is reserved for stricter quality gating.
	FailureQualityTooLow FailureCode = "QUALITY_TOO_LOW"
)

// Retryable reports whether a retry with the same input could succeed.
func (c FailureCode) Retryable() bool {
	return c == FailureExtraction || c == FailureMediaCapture
}

// FailureError is an error carrying a [FailureCode]. Extractors report
// failure through this type so the orchestrator can classify degradation
// without string matching.
type FailureError struct {
	Code FailureCode
	Err  error
}

// Error implements the error interface.
func (e *FailureError) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

// Unwrap returns the wrapped cause.
func (e *FailureError) Unwrap() error { return e.Err }

// NewFailure wraps err with the given code. A nil err is allowed when the
// code itself is the whole story (e.g. INSUFFICIENT_DATA).
func NewFailure(code FailureCode, err error) *FailureError {
	return &FailureError{Code: code, Err: err}
}

// Failuref wraps a formatted message with the given code.
func Failuref(code FailureCode, format string, args ...any) *FailureError {
	return &FailureError{Code: code, Err: fmt.Errorf(format, args...)}
}

// CodeOf extracts the [FailureCode] from err. Returns FailureExtraction for
// non-nil errors without a code, and "" for nil.
func CodeOf(err error) FailureCode {
	if err == nil {
		return ""
	}
	var fe *FailureError
	if errors.As(err, &fe) {
		return fe.Code
	}
	return FailureExtraction
}
