package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/you/reelscribe/internal/acquire"
	"github.com/you/reelscribe/internal/config"
	"github.com/you/reelscribe/internal/gemini"
	"github.com/you/reelscribe/internal/instagram"
	"github.com/you/reelscribe/internal/jobs"
	"github.com/you/reelscribe/internal/logx"
	"github.com/you/reelscribe/internal/metrics"
	"github.com/you/reelscribe/internal/pipeline"
	"github.com/you/reelscribe/internal/telegram"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	_ = godotenv.Load()
	lc, err := logx.FromEnv("worker")
	logx.Setup(lc)
	if err != nil {
		log.Warn().Err(err).Msg("bad LOG_* value, using defaults")
	}
	log.Info().Msg("worker starting")

	c, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := c.ValidateWorker(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	if err := os.MkdirAll(c.Storage.TempDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", c.Storage.TempDir).Msg("temp dir")
	}

	health := metrics.StartServer(c.Metrics.Addr, "worker")

	api, err := telegram.Connect(c.Telegram.Token, "", c.Telegram.Debug)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram")
	}

	acq, err := newAcquirer(c)
	if err != nil {
		log.Fatal().Err(err).Msg("acquire")
	}

	ai, err := gemini.New(context.Background(), gemini.Config{
		APIKey:       c.Gemini.APIKey,
		BaseURL:      c.Gemini.BaseURL,
		TextModel:    c.Gemini.TextModel,
		ImageModel:   c.Gemini.ImageModel,
		PollInterval: c.Gemini.PollInterval,
		PollTimeout:  c.Gemini.PollTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("gemini")
	}

	base, err := os.ReadFile(c.Thumbnail.BaseImage)
	if err != nil {
		// transcripts still work without it
		log.Warn().Err(err).Str("path", c.Thumbnail.BaseImage).Msg("thumbnail base image not loaded")
	}

	orch := pipeline.New(acq, ai, telegram.NewTransport(api), base)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: c.Redis.Addr, Password: c.Redis.Password, DB: c.Redis.DB},
		asynq.Config{
			Concurrency: c.Worker.Concurrency,
			Queues:      map[string]int{c.Worker.Queue: 1},
			Logger:      asynqLogger{},
		},
	)

	mux := asynq.NewServeMux()
	handle := func(ctx context.Context, t *asynq.Task) error {
		req, err := jobs.ParseRequest(t)
		if err != nil {
			log.Error().Err(err).Str("type", t.Type()).Msg("bad task payload")
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		if err := orch.Handle(ctx, req); err != nil {
			// the user has been told; keep the task in the archive for inspection
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return nil
	}
	mux.HandleFunc(jobs.TaskTranscript, handle)
	mux.HandleFunc(jobs.TaskThumbnail, handle)

	log.Info().
		Int("concurrency", c.Worker.Concurrency).
		Str("backend", c.Instagram.Backend).
		Msg("worker ready")
	if err := srv.Run(mux); err != nil {
		log.Error().Err(err).Msg("asynq server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = health.Shutdown(ctx)
}

func newAcquirer(c *config.Config) (*acquire.Service, error) {
	ic := instagram.Config{
		BaseURL:   c.Instagram.BaseURL,
		UserAgent: c.Instagram.UserAgent,
		Timeout:   c.Instagram.Timeout,
	}

	var factory acquire.ClientFactory
	switch c.Instagram.Backend {
	case "ytdlp":
		factory = acquire.YtDlpFactory(c.Instagram.YtDlpPath, c.Instagram.UserAgent)
	case "native":
		factory = acquire.NativeFactory(ic)
	default:
		return nil, errors.New("unknown acquire backend " + c.Instagram.Backend)
	}

	var auth acquire.Authenticator
	if c.Instagram.HasCredentials() {
		auth = acquire.PasswordAuth{Username: c.Instagram.Username, Password: c.Instagram.Password, Client: ic}
	} else {
		log.Warn().Msg("no instagram credentials; login-only posts will fail")
	}

	return acquire.New(acquire.Options{
		TempDir: c.Storage.TempDir,
		Factory: factory,
		Auth:    auth,
		Cache:   acquire.NewSessionCache(c.Instagram.SessionFile, c.Instagram.SessionData),
	})
}

// asynqLogger sends asynq's own logs through zerolog.
type asynqLogger struct{}

func (asynqLogger) Debug(args ...interface{}) { log.Debug().Str("component", "asynq").Msg(fmt.Sprint(args...)) }
func (asynqLogger) Info(args ...interface{})  { log.Info().Str("component", "asynq").Msg(fmt.Sprint(args...)) }
func (asynqLogger) Warn(args ...interface{})  { log.Warn().Str("component", "asynq").Msg(fmt.Sprint(args...)) }
func (asynqLogger) Error(args ...interface{}) { log.Error().Str("component", "asynq").Msg(fmt.Sprint(args...)) }
func (asynqLogger) Fatal(args ...interface{}) { log.Fatal().Str("component", "asynq").Msg(fmt.Sprint(args...)) }
