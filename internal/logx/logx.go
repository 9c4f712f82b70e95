package logx

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey string

const (
	CtxKeyRequestID ctxKey = "rid"
	CtxKeyUserID    ctxKey = "uid"
)

// Config describes the process logger. Every field except Service comes
// from a LOG_* variable.
type Config struct {
	Service    string `ignored:"true"`
	Level      string `envconfig:"LOG_LEVEL" default:"info"`
	Format     string `envconfig:"LOG_FORMAT" default:"json"` // json|console
	File       string `envconfig:"LOG_FILE"`                  // "" = stdout only
	MaxSizeMB  int    `envconfig:"LOG_FILE_MAX_SIZE" default:"50"`
	MaxBackups int    `envconfig:"LOG_FILE_MAX_BACKUPS" default:"3"`
	MaxAgeDays int    `envconfig:"LOG_FILE_MAX_AGE" default:"7"`
	Compress   bool   `envconfig:"LOG_FILE_COMPRESS" default:"true"`
	SampleN    uint32 `envconfig:"LOG_SAMPLE_EVERY"` // keep 1 of N events, 0 = all
}

// FromEnv reads the logging config for service.
func FromEnv(service string) (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{Service: service, Level: "info", Format: "json"}, fmt.Errorf("log env: %w", err)
	}
	c.Service = service
	return c, nil
}

// Setup installs the global zerolog logger and returns it.
func Setup(c Config) zerolog.Logger {
	return setup(c, os.Stdout)
}

func setup(c Config, stdout io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(c.Level)
	if err != nil || c.Level == "" {
		lvl = zerolog.InfoLevel
	}

	logger := zerolog.New(output(c, stdout)).Level(lvl).With().
		Timestamp().
		Str("svc", c.Service).
		Logger()
	if c.SampleN > 0 {
		logger = logger.Sample(&zerolog.BasicSampler{N: c.SampleN})
	}

	log.Logger = logger
	return logger
}

func output(c Config, stdout io.Writer) io.Writer {
	var w io.Writer = stdout
	if c.Format == "console" {
		w = zerolog.ConsoleWriter{Out: stdout, TimeFormat: time.RFC3339}
	}
	if c.File == "" {
		return w
	}
	return io.MultiWriter(w, &lumberjack.Logger{
		Filename:   c.File,
		MaxSize:    c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAgeDays,
		Compress:   c.Compress,
	})
}

// WithRequest stores the request id and Telegram user id for FromCtx.
func WithRequest(ctx context.Context, requestID string, userID int64) context.Context {
	ctx = context.WithValue(ctx, CtxKeyRequestID, requestID)
	return context.WithValue(ctx, CtxKeyUserID, userID)
}

// FromCtx returns the global logger with rid and uid attached when ctx has them.
func FromCtx(ctx context.Context) zerolog.Logger {
	l := log.Logger
	if ctx == nil {
		return l
	}
	if v, ok := ctx.Value(CtxKeyRequestID).(string); ok && v != "" {
		l = l.With().Str("rid", v).Logger()
	}
	if v, ok := ctx.Value(CtxKeyUserID).(int64); ok && v != 0 {
		l = l.With().Int64("uid", v).Logger()
	}
	return l
}
