package session

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrRecorderUnavailable indicates no capture backend is wired.
	ErrRecorderUnavailable = errors.New("audio recorder not configured")
	// ErrEmptyTranscript indicates the backend returned no usable speech.
	ErrEmptyTranscript = errors.New("no speech recognized; check microphone input or mute state")
)

// Kind classifies a user notice.
type Kind string

const (
	KindRecordingUnavailable Kind = "recording-unavailable"
	KindTooShort             Kind = "too-short"
	KindNoSpeech             Kind = "no-speech"
	KindNoNetwork            Kind = "no-network"
	KindCredentialMissing    Kind = "credential-missing"
	KindTranscriptionFailed  Kind = "transcription-failed"
	KindPolishFailed         Kind = "polish-failed"
	KindTimeout              Kind = "timeout"
	KindPasteFailed          Kind = "paste-failed"
)

// Reason is the structured cause carried by backend failures.
type Reason string

const (
	ReasonNetwork          Reason = "network"
	ReasonInvalidResponse  Reason = "invalid-response"
	ReasonAPIRejected      Reason = "api-rejected"
	ReasonModelUnavailable Reason = "model-unavailable"
	ReasonCancelled        Reason = "cancelled"
	ReasonUnknown          Reason = "unknown"
)

// Notice is a user-facing event. It carries no rendered text.
type Notice struct {
	Kind   Kind
	Reason Reason
	Err    error
}

// BackendError is returned by transcription and polish backends.
type BackendError struct {
	Reason Reason
	// Status is the upstream status code when one exists (HTTP or gRPC).
	Status int
	Err    error
}

// NewBackendError wraps err with a failure reason.
func NewBackendError(reason Reason, err error) *BackendError {
	return &BackendError{Reason: reason, Err: err}
}

func (e *BackendError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d): %v", e.Reason, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// ReasonOf classifies err. Context cancellation wins over any wrapped reason.
func ReasonOf(err error) Reason {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return ReasonCancelled
	}

	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return backendErr.Reason
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonNetwork
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ReasonNetwork
	}
	return ReasonUnknown
}

// IsRetryable reports whether a polish failure earns its single retry.
func IsRetryable(err error) bool {
	switch ReasonOf(err) {
	case ReasonNetwork, ReasonInvalidResponse:
		return true
	default:
		return false
	}
}

// IsCancelled reports whether err stems from an external cancellation.
func IsCancelled(err error) bool {
	return ReasonOf(err) == ReasonCancelled
}
