// Package config handles application configuration from environment variables
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Port     string `env:"PORT" envDefault:"3000"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	OpenLibrary OpenLibraryConfig
	Cache       CacheConfig
	Home        HomeConfig

	// RateLimitPerMinute is the per-client request budget; 0 disables it.
	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`
}

// OpenLibraryConfig holds upstream API settings
type OpenLibraryConfig struct {
	BaseURL   string        `env:"OPENLIBRARY_BASE_URL" envDefault:"https://openlibrary.org"`
	UserAgent string        `env:"OPENLIBRARY_USER_AGENT" envDefault:"shelfscout/0.1"`
	Timeout   time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"10s"`
}

// CacheConfig holds the TTL of each cache family
type CacheConfig struct {
	SearchTTL  time.Duration `env:"SEARCH_CACHE_TTL" envDefault:"2m"`
	SubjectTTL time.Duration `env:"SUBJECT_CACHE_TTL" envDefault:"5m"`
	SuggestTTL time.Duration `env:"SUGGEST_CACHE_TTL" envDefault:"60s"`
}

// HomeConfig controls the home page carousels
type HomeConfig struct {
	Subjects   []string `env:"HOME_SUBJECTS" envDefault:"fiction,psychology,Nonfiction,religious" envSeparator:","`
	SampleSize int      `env:"HOME_SAMPLE_SIZE" envDefault:"4"`
}

// Load reads configuration from the environment, after loading .env.local
// when it exists.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the service cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if c.OpenLibrary.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("UPSTREAM_TIMEOUT must be positive, got %s", c.OpenLibrary.Timeout))
	}
	for name, ttl := range map[string]time.Duration{
		"SEARCH_CACHE_TTL":  c.Cache.SearchTTL,
		"SUBJECT_CACHE_TTL": c.Cache.SubjectTTL,
		"SUGGEST_CACHE_TTL": c.Cache.SuggestTTL,
	} {
		if ttl <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, ttl))
		}
	}
	if len(c.Home.Subjects) == 0 {
		errs = append(errs, errors.New("HOME_SUBJECTS must list at least one subject"))
	}
	if c.Home.SampleSize <= 0 {
		errs = append(errs, fmt.Errorf("HOME_SAMPLE_SIZE must be positive, got %d", c.Home.SampleSize))
	}
	if c.RateLimitPerMinute < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative, got %d", c.RateLimitPerMinute))
	}
	return errors.Join(errs...)
}
