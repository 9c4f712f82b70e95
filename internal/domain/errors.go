package domain

import (
	"errors"
	"strings"
)

// Domain errors.
var (
	// ErrInvalidInput is returned when a message carries no recognizable post link.
	ErrInvalidInput = errors.New("no recognizable post link")

	// ErrTranscriptionFailed is returned when the remote transcription job ends in a failed state.
	ErrTranscriptionFailed = errors.New("transcription failed")

	// ErrTranscriptionTimeout is returned when the transcription job never leaves processing.
	ErrTranscriptionTimeout = errors.New("transcription timed out")

	// ErrImageGenerationFailed is returned when the image model answers without an image.
	ErrImageGenerationFailed = errors.New("image generation failed")

	// ErrNoVideo is returned when a post has no downloadable video.
	ErrNoVideo = errors.New("video file not found in post")
)

// Reason classifies why a video could not be acquired.
type Reason string

const (
	ReasonInvalidURL    Reason = "invalid_url"
	ReasonPrivate       Reason = "private"
	ReasonNotFound      Reason = "not_found"
	ReasonLoginRequired Reason = "login_required"
	ReasonRateLimited   Reason = "rate_limited"
	ReasonUnavailable   Reason = "unavailable"
	ReasonUnknown       Reason = "unknown"
)

// AcquisitionError wraps a download failure with its classified reason.
type AcquisitionError struct {
	Reason Reason
	Op     string
	Err    error
}

func (e *AcquisitionError) Error() string {
	msg := string(e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Op != "" {
		return e.Op + " [" + msg + "]"
	}
	return msg
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// NewAcquisitionError creates a new AcquisitionError.
func NewAcquisitionError(reason Reason, op string, err error) *AcquisitionError {
	return &AcquisitionError{Reason: reason, Op: op, Err: err}
}

// TransportError wraps a failure to deliver something to the chat.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return "transport " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Classify returns the acquisition reason carried by err. Typed errors win;
// anything else is matched on its text, see ClassifyMessage.
func Classify(err error) Reason {
	if err == nil {
		return ""
	}
	var ae *AcquisitionError
	if errors.As(err, &ae) {
		return ae.Reason
	}
	return ClassifyMessage(err.Error())
}

// ClassifyMessage maps unstructured third-party error text to a Reason.
// Order matters: private beats auth and rate-limit signals, which beat not-found.
func ClassifyMessage(msg string) Reason {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "private"):
		return ReasonPrivate
	case strings.Contains(m, "login"), strings.Contains(m, "log in"),
		strings.Contains(m, "unauthorized"),
		strings.Contains(m, "checkpoint"):
		return ReasonLoginRequired
	case strings.Contains(m, "rate limit"), strings.Contains(m, "rate-limit"),
		strings.Contains(m, "too many requests"):
		return ReasonRateLimited
	case strings.Contains(m, "not available"), strings.Contains(m, "unavailable"):
		return ReasonUnavailable
	case strings.Contains(m, "not found"):
		return ReasonNotFound
	}
	return ReasonUnknown
}

// IsAuthFailure reports whether err asks for a fresh login.
func IsAuthFailure(err error) bool {
	return Classify(err) == ReasonLoginRequired
}
