package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Redis     RedisConfig     `yaml:"redis"`
	Session   SessionConfig   `yaml:"session"`
	Worker    WorkerConfig    `yaml:"worker"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Instagram InstagramConfig `yaml:"instagram"`
	Storage   StorageConfig   `yaml:"storage"`
	Thumbnail ThumbnailConfig `yaml:"thumbnail"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// TelegramConfig holds bot API settings.
type TelegramConfig struct {
	Token       string `yaml:"token" envconfig:"BOT_TOKEN"`
	Debug       bool   `yaml:"debug" envconfig:"BOT_DEBUG"`
	PollTimeout int    `yaml:"poll_timeout" envconfig:"BOT_POLL_TIMEOUT"`
}

// RedisConfig is shared by the asynq queue and the Redis session store.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
}

// SessionConfig selects where the per-user last link is kept.
type SessionConfig struct {
	Store string        `yaml:"store" envconfig:"SESSION_STORE"` // redis|memory
	TTL   time.Duration `yaml:"ttl" envconfig:"SESSION_TTL"`
}

// WorkerConfig holds asynq server settings.
type WorkerConfig struct {
	Concurrency     int           `yaml:"concurrency" envconfig:"WORKER_CONCURRENCY"`
	PipelineTimeout time.Duration `yaml:"pipeline_timeout" envconfig:"PIPELINE_TIMEOUT"`
	Queue           string        `yaml:"queue" envconfig:"WORKER_QUEUE"`
}

// GeminiConfig holds generative AI settings.
type GeminiConfig struct {
	APIKey       string        `yaml:"api_key" envconfig:"GEMINI_API_KEY"`
	TextModel    string        `yaml:"text_model" envconfig:"GEMINI_TEXT_MODEL"`
	ImageModel   string        `yaml:"image_model" envconfig:"GEMINI_IMAGE_MODEL"`
	PollInterval time.Duration `yaml:"poll_interval" envconfig:"GEMINI_POLL_INTERVAL"`
	PollTimeout  time.Duration `yaml:"poll_timeout" envconfig:"GEMINI_POLL_TIMEOUT"`
	BaseURL      string        `yaml:"base_url" envconfig:"GEMINI_BASE_URL"`
}

// InstagramConfig holds video acquisition settings.
type InstagramConfig struct {
	Username    string        `yaml:"username" envconfig:"INSTAGRAM_USERNAME"`
	Password    string        `yaml:"password" envconfig:"INSTAGRAM_PASSWORD"`
	SessionFile string        `yaml:"session_file" envconfig:"INSTAGRAM_SESSION_FILE"`
	SessionData string        `yaml:"session_data" envconfig:"INSTAGRAM_SESSION_DATA"` // base64 seed
	Backend     string        `yaml:"backend" envconfig:"ACQUIRE_BACKEND"` // native|ytdlp
	YtDlpPath   string        `yaml:"ytdlp_path" envconfig:"YTDLP_PATH"`
	BaseURL     string        `yaml:"base_url" envconfig:"INSTAGRAM_BASE_URL"`
	UserAgent   string        `yaml:"user_agent" envconfig:"INSTAGRAM_USER_AGENT"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"INSTAGRAM_TIMEOUT"`
}

// HasCredentials reports whether a login can be attempted.
func (c InstagramConfig) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}

// StorageConfig holds filesystem settings.
type StorageConfig struct {
	TempDir string `yaml:"temp_dir" envconfig:"TEMP_DIR"`
}

// ThumbnailConfig points at the deployment-provided base image.
type ThumbnailConfig struct {
	BaseImage string `yaml:"base_image" envconfig:"THUMBNAIL_BASE_IMAGE"`
}

// MetricsConfig holds the health/metrics listener.
type MetricsConfig struct {
	Addr string `yaml:"addr" envconfig:"METRICS_ADDR"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{PollTimeout: 30},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Session:  SessionConfig{Store: "redis", TTL: 24 * time.Hour},
		Worker: WorkerConfig{
			Concurrency:     2,
			PipelineTimeout: 15 * time.Minute,
			Queue:           "default",
		},
		Gemini: GeminiConfig{
			TextModel:    "gemini-2.5-flash",
			ImageModel:   "gemini-2.5-flash-image",
			PollInterval: 2 * time.Second,
			PollTimeout:  5 * time.Minute,
		},
		Instagram: InstagramConfig{
			SessionFile: "instagram_session.json",
			Backend:     "native",
			YtDlpPath:   "yt-dlp",
			BaseURL:     "https://www.instagram.com",
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
			Timeout:     2 * time.Minute,
		},
		Storage:   StorageConfig{TempDir: "/tmp/reelscribe"},
		Thumbnail: ThumbnailConfig{BaseImage: "assets/base.png"},
		Metrics:   MetricsConfig{Addr: ":8080"},
	}
}

// Load reads configuration from built-in defaults, an optional YAML file and
// the environment, in increasing precedence. Only settings shared by both
// processes are validated; see ValidateBot and ValidateWorker.
func Load(configPath string) (*Config, error) {
	cfg := Default()
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings both processes need.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return errors.New("BOT_TOKEN is required")
	}
	return nil
}

// ValidateBot checks the settings of the update-handling process.
func (c *Config) ValidateBot() error {
	if err := c.Validate(); err != nil {
		return err
	}
	switch c.Session.Store {
	case "redis", "memory":
	default:
		return fmt.Errorf("SESSION_STORE must be redis or memory, got %q", c.Session.Store)
	}
	return nil
}

// ValidateWorker checks the settings of the pipeline process.
func (c *Config) ValidateWorker() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Gemini.APIKey == "" {
		return errors.New("GEMINI_API_KEY is required")
	}
	switch c.Instagram.Backend {
	case "native", "ytdlp":
	default:
		return fmt.Errorf("ACQUIRE_BACKEND must be native or ytdlp, got %q", c.Instagram.Backend)
	}
	if c.Worker.Concurrency < 1 {
		return errors.New("WORKER_CONCURRENCY must be at least 1")
	}
	if c.Gemini.PollInterval <= 0 || c.Gemini.PollTimeout < c.Gemini.PollInterval {
		return errors.New("GEMINI_POLL_TIMEOUT must be at least GEMINI_POLL_INTERVAL")
	}
	return nil
}
