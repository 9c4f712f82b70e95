package logx

import (
	"bufio"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LineWriter turns stream output (e.g. yt-dlp stderr) into per-line zerolog events
// and keeps a short tail of the text for error classification.
type LineWriter struct {
	logger zerolog.Logger
	level  zerolog.Level

	mu      sync.Mutex
	tail    []string
	maxTail int
}

func NewLineWriter(fields map[string]string, level zerolog.Level) *LineWriter {
	w := log.Logger.With()
	for k, v := range fields {
		w = w.Str(k, v)
	}
	return &LineWriter{logger: w.Logger(), level: level, maxTail: 20}
}

// Pipe logs every line read from r until EOF.
func (lw *LineWriter) Pipe(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		lw.remember(line)
		switch lw.level {
		case zerolog.DebugLevel:
			lw.logger.Debug().Msg(line)
		case zerolog.WarnLevel:
			lw.logger.Warn().Msg(line)
		case zerolog.ErrorLevel:
			lw.logger.Error().Msg(line)
		default:
			lw.logger.Info().Msg(line)
		}
	}
}

func (lw *LineWriter) remember(line string) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lw.tail = append(lw.tail, line)
	if len(lw.tail) > lw.maxTail {
		lw.tail = lw.tail[len(lw.tail)-lw.maxTail:]
	}
}

// Tail returns the last lines seen, joined by newlines.
func (lw *LineWriter) Tail() string {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return strings.Join(lw.tail, "\n")
}
