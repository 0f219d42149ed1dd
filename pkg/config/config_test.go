package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "localhost:8787", cfg.HTTPAddr())
	assert.Equal(t, "localhost:8788", cfg.GRPCAddr())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FNPLOT_PORT", "9000")
	t.Setenv("FNPLOT_CACHE_SIZE", "0")
	t.Setenv("FNPLOT_HISTORY", "sqlite")
	t.Setenv("FNPLOT_RATE_LIMIT", "2.5")

	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 0, cfg.CacheSize)
	assert.Equal(t, "sqlite", cfg.History)
	assert.Equal(t, 2.5, cfg.RateLimit)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("points: 1000\nhistory-limit: 5\nlog-level: debug\n"), 0o644))

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Points)
	assert.Equal(t, 5, cfg.HistoryLimit)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"too few points", func(c *Config) { c.Points = 1 }, "points"},
		{"too many points", func(c *Config) { c.Points = 10001 }, "points"},
		{"bad port", func(c *Config) { c.Port = 70000 }, "port"},
		{"negative cache", func(c *Config) { c.CacheSize = -1 }, "cache-size"},
		{"unknown history", func(c *Config) { c.History = "redis" }, "history"},
		{"sqlite without path", func(c *Config) { c.History = "sqlite"; c.HistoryPath = "" }, "history-path"},
		{"zero history limit", func(c *Config) { c.HistoryLimit = 0 }, "history-limit"},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }, "rate-limit"},
		{"rate without burst", func(c *Config) { c.RateLimit = 1; c.RateBurst = 0 }, "rate-burst"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
