// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AIConfig struct {
	OpenAIKey       string `yaml:"openai_key"`
	OpenAIBaseURL   string `yaml:"openai_base_url"`
	GeminiKey       string `yaml:"gemini_key"`
	GeminiURL       string `yaml:"gemini_url"`
	DefaultModel    string `yaml:"default_model"`
	ConcurrentLimit int    `yaml:"concurrent_limit"` // max concurrent AI calls
}

type GenerationConfig struct {
	MaxRetries          int           `yaml:"max_retries"`      // retries after a 429
	AuthMaxRetries      int           `yaml:"auth_max_retries"` // first, auth-sensitive call
	BackoffBase         time.Duration `yaml:"backoff_base"`
	PacingFloor         time.Duration `yaml:"pacing_floor"` // minimum wait between item calls
	MaxCountPerCategory int           `yaml:"max_count_per_category"`
	LaunchesPerHour     int           `yaml:"launches_per_hour"` // per-operator batch launches
}

type Config struct {
	Log        LogConfig        `yaml:"log"`
	Admin      AdminConfig      `yaml:"admin"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	AI         AIConfig         `yaml:"ai"`
	Generation GenerationConfig `yaml:"generation"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Admin.Port == 0 {
		cfg.Admin.Port = 8081
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 4
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gpt-4o-mini"
	}
	if cfg.AI.OpenAIBaseURL == "" {
		cfg.AI.OpenAIBaseURL = "https://api.openai.com/v1"
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	cfg.Generation = normalizeGeneration(cfg.Generation)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}

func normalizeGeneration(g GenerationConfig) GenerationConfig {
	if g.MaxRetries <= 0 {
		g.MaxRetries = 3
	}
	if g.AuthMaxRetries <= 0 {
		g.AuthMaxRetries = 5
	}
	if g.BackoffBase <= 0 {
		g.BackoffBase = time.Second
	}
	if g.PacingFloor <= 0 {
		g.PacingFloor = 2 * time.Second
	}
	if g.MaxCountPerCategory <= 0 || g.MaxCountPerCategory > 50 {
		g.MaxCountPerCategory = 50
	}
	if g.LaunchesPerHour <= 0 {
		g.LaunchesPerHour = 10
	}
	return g
}
