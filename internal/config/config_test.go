package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("GEMINI_API_KEY", "gem-key")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, "gem-key", cfg.Gemini.APIKey)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "redis", cfg.Session.Store)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 2, cfg.Worker.Concurrency)
	assert.Equal(t, 2*time.Second, cfg.Gemini.PollInterval)
	assert.Equal(t, 5*time.Minute, cfg.Gemini.PollTimeout)
	assert.Equal(t, "native", cfg.Instagram.Backend)
	assert.Equal(t, "https://www.instagram.com", cfg.Instagram.BaseURL)
	assert.False(t, cfg.Instagram.HasCredentials())
}

func TestLoadYAMLThenEnvOverride(t *testing.T) {
	setRequired(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
redis:
  addr: redis.internal:6379
worker:
  concurrency: 4
instagram:
  backend: ytdlp
  username: alice
  password: secret
gemini:
  poll_interval: 1s
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("WORKER_CONCURRENCY", "8")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, 8, cfg.Worker.Concurrency, "env beats yaml")
	assert.Equal(t, "ytdlp", cfg.Instagram.Backend)
	assert.True(t, cfg.Instagram.HasCredentials())
	assert.Equal(t, time.Second, cfg.Gemini.PollInterval)
	assert.Equal(t, 5*time.Minute, cfg.Gemini.PollTimeout, "untouched default survives yaml")
}

func TestLoadMissingFile(t *testing.T) {
	setRequired(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadWithoutGeminiKey(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := Load("")
	require.NoError(t, err, "the bot process has no use for the gemini key")
	assert.NoError(t, cfg.ValidateBot())
	assert.ErrorContains(t, cfg.ValidateWorker(), "GEMINI_API_KEY")
}

func TestLoadWithoutToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	_, err := Load("")
	assert.ErrorContains(t, err, "BOT_TOKEN")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.Telegram.Token = "t"
		c.Gemini.APIKey = "k"
		return c
	}
	require.NoError(t, valid().ValidateBot())
	require.NoError(t, valid().ValidateWorker())

	tests := []struct {
		name      string
		mutate    func(*Config)
		botErr    bool
		workerErr bool
	}{
		{"missing token", func(c *Config) { c.Telegram.Token = "" }, true, true},
		{"missing gemini key", func(c *Config) { c.Gemini.APIKey = "" }, false, true},
		{"bad session store", func(c *Config) { c.Session.Store = "etcd" }, true, false},
		{"bad backend", func(c *Config) { c.Instagram.Backend = "instaloader" }, false, true},
		{"zero concurrency", func(c *Config) { c.Worker.Concurrency = 0 }, false, true},
		{"poll timeout below interval", func(c *Config) { c.Gemini.PollTimeout = time.Second; c.Gemini.PollInterval = 2 * time.Second }, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			if tt.botErr {
				assert.Error(t, c.ValidateBot())
			} else {
				assert.NoError(t, c.ValidateBot())
			}
			if tt.workerErr {
				assert.Error(t, c.ValidateWorker())
			} else {
				assert.NoError(t, c.ValidateWorker())
			}
		})
	}
}
