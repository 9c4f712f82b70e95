package acquire

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/you/reelscribe/internal/domain"
	"github.com/you/reelscribe/internal/instagram"
	"github.com/you/reelscribe/internal/logx"
)

// YtDlp fetches videos with the yt-dlp binary.
type YtDlp struct {
	Bin       string
	UserAgent string
	Session   *instagram.Session
}

// YtDlpFactory returns a ClientFactory for the yt-dlp backend.
func YtDlpFactory(bin, userAgent string) ClientFactory {
	if bin == "" {
		bin = "yt-dlp"
	}
	return func(sess *instagram.Session) (Fetcher, error) {
		return &YtDlp{Bin: bin, UserAgent: userAgent, Session: sess}, nil
	}
}

func (y *YtDlp) Fetch(ctx context.Context, postURL, dir string) (string, error) {
	args := []string{
		"-f", "b",
		"--no-warnings",
		"--no-playlist",
		"--no-progress",
		"-o", filepath.Join(dir, "%(id)s.%(ext)s"),
	}
	if y.Session.Valid() {
		// cookies live in the work area so they go away with it
		cookies := filepath.Join(dir, "cookies.txt")
		if err := instagram.WriteNetscapeCookies(cookies, y.Session); err != nil {
			return "", fmt.Errorf("write cookies: %w", err)
		}
		args = append(args, "--cookies", cookies)
	}
	if y.UserAgent != "" {
		args = append(args, "--user-agent", y.UserAgent)
	}
	args = append(args, postURL)

	cmd := exec.CommandContext(ctx, y.Bin, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", err
	}
	lw := logx.NewLineWriter(map[string]string{"component": "yt-dlp"}, zerolog.DebugLevel)

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start yt-dlp: %w", err)
	}
	lw.Pipe(stderr)
	if err := cmd.Wait(); err != nil {
		tail := lw.Tail()
		return "", domain.NewAcquisitionError(domain.ClassifyMessage(tail), "yt-dlp",
			fmt.Errorf("%w: %s", err, lastLine(tail)))
	}
	return FindVideo(dir)
}

// FindVideo returns the first .mp4 file in dir, by name.
func FindVideo(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".mp4") {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", domain.ErrNoVideo
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
