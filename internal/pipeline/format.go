package pipeline

import (
	"strings"
	"unicode/utf8"

	"github.com/you/reelscribe/internal/domain"
)

// MaxMessageRunes is the longest text sent as one chat message.
const MaxMessageRunes = 4000

// Status texts shown in the edited status message.
const (
	StatusDownloading    = "⏳ Downloading video..."
	StatusTranscript     = "🎯 Extracting transcript and preparing translations..."
	StatusThumbnail      = "🎨 Generating thumbnail, this may take a while..."
	StatusDone           = "✅ Done!"
	StatusThumbnailReady = "✅ Thumbnail ready!"
	StatusNoSpeech       = "❌ No speech was found in this video."
)

// Sections returns the three labelled parts of a transcript reply.
func Sections(r domain.TranscriptResult) []string {
	return []string{
		"📝 Original transcript:\n" + r.Original,
		"🇹🇷 Turkish:\n" + r.Turkish,
		"🇬🇧 English:\n" + r.English,
	}
}

// FormatTranscript renders the single combined reply.
func FormatTranscript(r domain.TranscriptResult) string {
	return StatusDone + "\n\n" + strings.Join(Sections(r), "\n\n")
}

// Caption is the photo caption for a thumbnail hook.
func Caption(hook string) string {
	return "🎬 " + hook
}

// SplitRunes cuts s into chunks of at most n runes, preferring to cut after
// a newline or space in the second half of a chunk.
func SplitRunes(s string, n int) []string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return []string{s}
	}
	var out []string
	runes := []rune(s)
	for len(runes) > n {
		cut := n
		for i := n - 1; i >= n/2; i-- {
			if runes[i] == '\n' || runes[i] == ' ' {
				cut = i + 1
				break
			}
		}
		out = append(out, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}
