// Package config loads fnplot's service configuration.
//
// Values come from, in increasing precedence: built-in defaults, a YAML
// config file, FNPLOT_* environment variables (a .env file is loaded into
// the environment first) and command-line flags bound to the same keys.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/lemonberrylabs/fnplot/pkg/sampler"
)

// EnvPrefix prefixes every environment variable, e.g. FNPLOT_PORT.
const EnvPrefix = "FNPLOT"

// Config is the resolved configuration.
type Config struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	GRPCPort int    `mapstructure:"grpc-port"`

	Points    int `mapstructure:"points"`
	CacheSize int `mapstructure:"cache-size"`

	History      string `mapstructure:"history"`
	HistoryPath  string `mapstructure:"history-path"`
	HistoryLimit int    `mapstructure:"history-limit"`

	// RateLimit is the sustained plot requests per second; 0 disables
	// throttling.
	RateLimit float64 `mapstructure:"rate-limit"`
	RateBurst int     `mapstructure:"rate-burst"`

	Metrics  bool   `mapstructure:"metrics"`
	LogLevel string `mapstructure:"log-level"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Host:         "localhost",
		Port:         8787,
		GRPCPort:     8788,
		Points:       sampler.DefaultPoints,
		CacheSize:    256,
		History:      "memory",
		HistoryPath:  "fnplot.db",
		HistoryLimit: 50,
		RateLimit:    0,
		RateBurst:    20,
		Metrics:      true,
		LogLevel:     "info",
	}
}

// SetDefaults registers Default() on v and enables FNPLOT_* environment
// lookups.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("host", d.Host)
	v.SetDefault("port", d.Port)
	v.SetDefault("grpc-port", d.GRPCPort)
	v.SetDefault("points", d.Points)
	v.SetDefault("cache-size", d.CacheSize)
	v.SetDefault("history", d.History)
	v.SetDefault("history-path", d.HistoryPath)
	v.SetDefault("history-limit", d.HistoryLimit)
	v.SetDefault("rate-limit", d.RateLimit)
	v.SetDefault("rate-burst", d.RateBurst)
	v.SetDefault("metrics", d.Metrics)
	v.SetDefault("log-level", d.LogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// Load resolves the configuration from v and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		return fmt.Errorf("grpc-port %d out of range", c.GRPCPort)
	}
	if err := sampler.ValidatePoints(c.Points); err != nil {
		return fmt.Errorf("points: %w", err)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache-size must not be negative, got %d", c.CacheSize)
	}
	switch c.History {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("history must be memory or sqlite, got %q", c.History)
	}
	if c.History == "sqlite" && c.HistoryPath == "" {
		return fmt.Errorf("history-path is required for the sqlite history")
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("history-limit must be positive, got %d", c.HistoryLimit)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate-limit must not be negative, got %v", c.RateLimit)
	}
	if c.RateLimit > 0 && c.RateBurst <= 0 {
		return fmt.Errorf("rate-burst must be positive when rate-limit is set, got %d", c.RateBurst)
	}
	return nil
}

// HTTPAddr is the listen address of the HTTP server.
func (c Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GRPCAddr is the listen address of the gRPC server.
func (c Config) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GRPCPort)
}
