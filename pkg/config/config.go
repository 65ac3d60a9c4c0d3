package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pario-ai/scoregate/pkg/models"
)

// Config holds all scoregate configuration.
type Config struct {
	Listen        string             `yaml:"listen"`
	LogLevel      string             `yaml:"log_level"`
	EncryptionKey string             `yaml:"encryption_key"`
	Providers     []ProviderConfig   `yaml:"providers"`
	Queue         QueueConfig        `yaml:"queue"`
	Cache         CacheConfig        `yaml:"cache"`
	Quota         QuotaConfig        `yaml:"quota"`
	Extract       ExtractConfig      `yaml:"extract"`
	Audit         models.AuditConfig `yaml:"audit"`
}

// ProviderConfig defines a remote scoring backend bound to a tier.
// Type is "gemini" or "groq". A provider without an API key is disabled.
type ProviderConfig struct {
	Tier       models.Provider `yaml:"tier"`
	Type       string          `yaml:"type"`
	Model      string          `yaml:"model"`
	URL        string          `yaml:"url"`
	APIKey     string          `yaml:"api_key"`
	DailyLimit int64           `yaml:"daily_limit"`
	Timeout    time.Duration   `yaml:"timeout"`
}

// Enabled reports whether the provider can be dispatched to.
func (p ProviderConfig) Enabled() bool {
	return p.APIKey != "" && p.DailyLimit > 0
}

// QueueConfig controls the admission queue.
type QueueConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent"`
	DispatchDelay time.Duration `yaml:"dispatch_delay"`
}

// CacheConfig controls the result cache.
type CacheConfig struct {
	TTL      time.Duration `yaml:"ttl"`
	Capacity int           `yaml:"capacity"`
}

// QuotaConfig controls provider quota windows.
type QuotaConfig struct {
	Window time.Duration `yaml:"window"`
}

// ExtractConfig controls document text extraction.
type ExtractConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
	MinChars int   `yaml:"min_chars"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen:   ":8080",
		LogLevel: "info",
		Providers: []ProviderConfig{
			{
				Tier:       models.ProviderTierA,
				Type:       "gemini",
				Model:      "gemini-1.5-flash",
				DailyLimit: 1500,
				Timeout:    30 * time.Second,
			},
			{
				Tier:       models.ProviderTierB,
				Type:       "groq",
				Model:      "llama-3.3-70b-versatile",
				URL:        "https://api.groq.com/openai/v1",
				DailyLimit: 14000,
				Timeout:    30 * time.Second,
			},
		},
		Queue: QueueConfig{
			MaxConcurrent: 3,
			DispatchDelay: 100 * time.Millisecond,
		},
		Cache: CacheConfig{
			TTL:      time.Hour,
			Capacity: 1000,
		},
		Quota: QuotaConfig{
			Window: 24 * time.Hour,
		},
		Extract: ExtractConfig{
			MaxBytes: 5 * 1024 * 1024,
			MinChars: 100,
		},
		Audit: models.AuditConfig{
			Enabled:   true,
			DBPath:    ":memory:",
			Retention: 24 * time.Hour,
			MaxInput:  512,
		},
	}
}

// LoadEnv loads variables from a dotenv file into the process environment.
// A missing file is not an error; existing variables are not overwritten.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path when set, otherwise returns defaults with
// provider keys taken from the environment.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	cfg := Default()
	cfg.EncryptionKey = os.Getenv("ENCRYPTION_KEY")
	for i := range cfg.Providers {
		switch cfg.Providers[i].Type {
		case "gemini":
			cfg.Providers[i].APIKey = os.Getenv("GEMINI_API_KEY")
		case "groq":
			cfg.Providers[i].APIKey = os.Getenv("GROQ_API_KEY")
		}
	}
	return cfg, nil
}

// Validate checks structural constraints that defaults cannot repair.
func (c *Config) Validate() error {
	seen := make(map[models.Provider]bool, len(c.Providers))
	for _, p := range c.Providers {
		switch p.Tier {
		case models.ProviderTierA, models.ProviderTierB:
		default:
			return fmt.Errorf("provider %q: unknown tier %q", p.Type, p.Tier)
		}
		if seen[p.Tier] {
			return fmt.Errorf("tier %s configured twice", p.Tier)
		}
		seen[p.Tier] = true
		switch p.Type {
		case "gemini", "groq":
		default:
			return fmt.Errorf("tier %s: unknown provider type %q", p.Tier, p.Type)
		}
	}
	if c.Queue.MaxConcurrent < 1 {
		return fmt.Errorf("queue.max_concurrent must be at least 1")
	}
	if c.Cache.Capacity < 1 {
		return fmt.Errorf("cache.capacity must be at least 1")
	}
	return nil
}
