package pipeline

import (
	"errors"

	"github.com/you/reelscribe/internal/domain"
)

// User-facing error texts.
const (
	errorPrefix = "❌ An error occurred.\n\n"

	MsgPrivate  = errorPrefix + "This video is private and cannot be accessed."
	MsgGuidance = errorPrefix + "Instagram did not let us fetch this video. Possible reasons:\n" +
		"• the post requires a logged-in account\n" +
		"• too many requests were made recently (rate limit)\n" +
		"• the post is not available in this region or was removed\n\n" +
		"Please try again later."
	MsgNotFound = errorPrefix + "Video not found."
	MsgGeneric  = errorPrefix + "Please try again."
)

// ErrNoBaseImage is returned for thumbnail requests when no base image is loaded.
var ErrNoBaseImage = errors.New("thumbnail base image not loaded")

// UserMessage maps a pipeline failure to the text shown to the user.
// Only acquisition failures get a specific text; internal details never
// reach the chat.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrTranscriptionFailed),
		errors.Is(err, domain.ErrTranscriptionTimeout),
		errors.Is(err, domain.ErrImageGenerationFailed),
		errors.Is(err, ErrNoBaseImage):
		return MsgGeneric
	}
	var ae *domain.AcquisitionError
	if !errors.As(err, &ae) {
		return MsgGeneric
	}
	switch ae.Reason {
	case domain.ReasonPrivate:
		return MsgPrivate
	case domain.ReasonLoginRequired, domain.ReasonRateLimited, domain.ReasonUnavailable:
		return MsgGuidance
	case domain.ReasonNotFound:
		return MsgNotFound
	}
	return MsgGeneric
}

// outcome is the metrics label for a finished request.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrTranscriptionFailed), errors.Is(err, domain.ErrTranscriptionTimeout):
		return "transcription_failed"
	case errors.Is(err, domain.ErrImageGenerationFailed):
		return "image_failed"
	}
	var te *domain.TransportError
	if errors.As(err, &te) {
		return "transport_failed"
	}
	var ae *domain.AcquisitionError
	if errors.As(err, &ae) {
		return string(ae.Reason)
	}
	return "error"
}
