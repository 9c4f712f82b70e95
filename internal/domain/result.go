package domain

// NoSpeech is what transcription returns when the video has no spoken content.
const NoSpeech = "No speech detected in this video."

// Translation targets of the transcript pipeline, in the order they are requested.
const (
	LanguageTurkish = "Turkish"
	LanguageEnglish = "English"
)

// Thumbnail fallbacks used when the video has no speech.
const (
	DefaultHook  = "WATCH THIS"
	DefaultTopic = "General content"
)

// ThumbnailAspectRatio is the vertical format requested from the image model.
const ThumbnailAspectRatio = "9:16"

// TranscriptResult holds the original transcript and its two translations.
type TranscriptResult struct {
	Original string
	Turkish  string
	English  string
}

// HasSpeech is false when the transcript is the no-speech sentinel.
func (r TranscriptResult) HasSpeech() bool {
	return r.Original != NoSpeech
}

// NoSpeechTranscript is the result used when nothing was said.
func NoSpeechTranscript() TranscriptResult {
	return TranscriptResult{Original: NoSpeech, Turkish: NoSpeech, English: NoSpeech}
}

// ThumbnailResult is a generated PNG with the hook used as its caption and
// the topic it was composed from.
type ThumbnailResult struct {
	Image []byte
	Hook  string
	Topic string
}
