package gemini

import (
	"fmt"
	"strings"

	"github.com/you/reelscribe/internal/domain"
)

// Style selects what Summarize produces.
type Style string

const (
	StyleHook  Style = "hook"  // 2-5 uppercase words for a thumbnail
	StyleTopic Style = "topic" // 1-2 sentences
)

var transcribePrompt = `Transcribe the speech in this video exactly.
Write only the spoken words, add nothing else.
If nobody speaks in the video, write "` + domain.NoSpeech + `"`

func translatePrompt(text, language string) string {
	return fmt.Sprintf(`Translate the following text into %[1]s.
Write only the translation, add nothing else.
If the text is already in %[1]s, repeat it unchanged.

Text:
%[2]s`, language, text)
}

func summarizePrompt(text string, style Style) string {
	if style == StyleHook {
		return fmt.Sprintf(`Write an attention-grabbing hook of 2 to 5 words for the thumbnail of a short video with this transcript.
Use UPPERCASE letters, no quotes, no emojis, no hashtags. Write only the hook.

Transcript:
%s`, text)
	}
	return fmt.Sprintf(`Describe in one or two sentences what a short video with this transcript is about.
Write only the description.

Transcript:
%s`, text)
}

// ThumbnailPrompt is the image-composition instruction for a hook and topic.
func ThumbnailPrompt(hook, topic string) string {
	return fmt.Sprintf(`Use the attached image as the base and turn it into a vertical %s thumbnail for a short video.
Keep the main subject of the base image recognisable.
Add the headline text "%s" in large, bold, high-contrast letters that are easy to read on a phone.
Adapt the background, colours and small visual elements to the topic of the video: %s
Do not add any other text.`, domain.ThumbnailAspectRatio, hook, topic)
}

// NormalizeTranscript maps empty answers and answers that only say there is
// no speech to the NoSpeech sentinel.
func NormalizeTranscript(text string) string {
	t := strings.TrimSpace(text)
	if t == "" {
		return domain.NoSpeech
	}
	bare := strings.ToLower(strings.Trim(t, " \t\n\"'.`*"))
	if bare == strings.ToLower(strings.TrimSuffix(domain.NoSpeech, ".")) {
		return domain.NoSpeech
	}
	if len(bare) <= 60 && (strings.Contains(bare, "no speech") || strings.Contains(bare, "no spoken")) {
		return domain.NoSpeech
	}
	return t
}

// CleanHook tidies a model-written hook: one line, no quotes, uppercase.
func CleanHook(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(s, " \"'`*.")
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return domain.DefaultHook
	}
	return strings.ToUpper(s)
}
