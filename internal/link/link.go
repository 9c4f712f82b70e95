// Package link finds Instagram post links in chat text.
package link

import (
	"fmt"
	"regexp"
)

// Accepted path shapes, in priority order.
var shapes = []string{"p", "reel", "reels", "tv"}

var (
	extractPatterns = compile(`https?://(www\.)?instagram\.com/%s/[\w-]+/?(\?[^\s]*)?`)
	anchoredPattern = regexp.MustCompile(`^https?://(www\.)?instagram\.com/(p|reel|reels|tv)/[\w-]+`)
	shortcodeRe     = regexp.MustCompile(`/(p|reel|reels|tv)/([\w-]+)`)
)

func compile(tmpl string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(shapes))
	for _, s := range shapes {
		out = append(out, regexp.MustCompile(fmt.Sprintf(tmpl, s)))
	}
	return out
}

// Extract returns the first post link in text. Patterns are tried in priority
// order and the leftmost match of the first matching pattern wins.
func Extract(text string) (string, bool) {
	for _, re := range extractPatterns {
		if m := re.FindString(text); m != "" {
			return m, true
		}
	}
	return "", false
}

// IsPostURL reports whether s itself starts with a post link.
func IsPostURL(s string) bool {
	return anchoredPattern.MatchString(s)
}

// Shortcode returns the post id from a link, e.g. "ABC123" for /reel/ABC123/.
func Shortcode(url string) (string, bool) {
	m := shortcodeRe.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[2], true
}
