package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/you/reelscribe/internal/bot"
	"github.com/you/reelscribe/internal/config"
	"github.com/you/reelscribe/internal/logx"
	"github.com/you/reelscribe/internal/metrics"
	"github.com/you/reelscribe/internal/session"
	"github.com/you/reelscribe/internal/telegram"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	_ = godotenv.Load()
	lc, err := logx.FromEnv("bot")
	logx.Setup(lc)
	if err != nil {
		log.Warn().Err(err).Msg("bad LOG_* value, using defaults")
	}
	log.Info().Msg("bot starting")

	c, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := c.ValidateBot(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := metrics.StartServer(c.Metrics.Addr, "bot")

	api, err := telegram.Connect(c.Telegram.Token, "", c.Telegram.Debug)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram")
	}
	log.Info().Str("username", api.Self.UserName).Msg("bot authorized")

	redisOpt := asynq.RedisClientOpt{Addr: c.Redis.Addr, Password: c.Redis.Password, DB: c.Redis.DB}
	queue := asynq.NewClient(redisOpt)
	defer queue.Close()

	var store session.Store
	switch c.Session.Store {
	case "memory":
		store = session.NewMemoryStore(c.Session.TTL)
	default:
		rdb := redis.NewClient(&redis.Options{Addr: c.Redis.Addr, Password: c.Redis.Password, DB: c.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", c.Redis.Addr).Msg("redis")
		}
		store = session.NewRedisStore(rdb, c.Session.TTL)
	}

	h := bot.New(api, store, queue, bot.Options{
		Queue:   c.Worker.Queue,
		Timeout: c.Worker.PipelineTimeout,
	})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = c.Telegram.PollTimeout
	updates := api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()

	h.Run(ctx, updates)
	log.Info().Msg("bot stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = health.Shutdown(shutdownCtx)
}
