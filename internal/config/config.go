// Package config defines the application configuration and its validation.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Genre sources.
const (
	GenreSourceSpotify = "spotify"
	GenreSourceLastfm  = "lastfm"
)

// Cache and session backends.
const (
	BackendNone     = "none"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config contains process configuration.
type Config struct {
	// Addr is the HTTP listen address of the web server.
	Addr string `koanf:"addr"`

	// RedirectURL must match the Spotify app configuration.
	RedirectURL string `koanf:"redirect_url"`

	SpotifyID     string `koanf:"spotify_id"`
	SpotifySecret string `koanf:"spotify_secret"`

	// LogMode is "development" or "production".
	LogMode string `koanf:"log_mode"`

	// Aggregation tuning.
	PageSize         int           `koanf:"page_size"`
	GenreConcurrency int           `koanf:"genre_concurrency"`
	MaxAttempts      int           `koanf:"max_attempts"`
	RetryBackoff     time.Duration `koanf:"retry_backoff"`
	AggregateTimeout time.Duration `koanf:"aggregate_timeout"`

	// GenreSource is "spotify" (artist genres) or "lastfm" (artist top tags).
	GenreSource  string `koanf:"genre_source"`
	LastfmAPIKey string `koanf:"lastfm_api_key"`

	// CacheBackend stores genre lookups: none, memory, postgres or redis.
	CacheBackend string        `koanf:"cache_backend"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`

	DatabaseURL string `koanf:"database_url"`
	RedisAddr   string `koanf:"redis_addr"`

	// SessionStore keeps web sessions: memory or postgres.
	SessionStore string `koanf:"session_store"`

	MetricsEnabled bool `koanf:"metrics_enabled"`

	// TokenPath is where the CLI caches its OAuth token. Empty uses the user config dir.
	TokenPath string `koanf:"token_path"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Addr:             "127.0.0.1:8080",
		RedirectURL:      "http://127.0.0.1:8080/callback",
		LogMode:          "development",
		PageSize:         50,
		GenreConcurrency: 5,
		MaxAttempts:      3,
		RetryBackoff:     500 * time.Millisecond,
		AggregateTimeout: 2 * time.Minute,
		GenreSource:      GenreSourceSpotify,
		CacheBackend:     BackendMemory,
		CacheTTL:         30 * 24 * time.Hour,
		SessionStore:     BackendMemory,
		MetricsEnabled:   true,
	}
}

// Validate checks the configuration. Every error wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	var problems []string

	if c.Addr == "" {
		problems = append(problems, "addr must not be empty")
	}
	if c.SpotifyID == "" || c.SpotifySecret == "" {
		problems = append(problems, "spotify_id and spotify_secret are required")
	}
	if u, err := url.Parse(c.RedirectURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("redirect_url %q is not an absolute URL", c.RedirectURL))
	}
	if c.PageSize <= 0 || c.PageSize > 50 {
		problems = append(problems, "page_size must be between 1 and 50")
	}
	if c.GenreConcurrency <= 0 {
		problems = append(problems, "genre_concurrency must be positive")
	}
	if c.MaxAttempts <= 0 {
		problems = append(problems, "max_attempts must be positive")
	}
	if c.RetryBackoff <= 0 {
		problems = append(problems, "retry_backoff must be positive")
	}
	if c.AggregateTimeout < 0 {
		problems = append(problems, "aggregate_timeout must not be negative")
	}

	switch c.GenreSource {
	case GenreSourceSpotify:
	case GenreSourceLastfm:
		if c.LastfmAPIKey == "" {
			problems = append(problems, "lastfm_api_key is required when genre_source is lastfm")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown genre_source %q", c.GenreSource))
	}

	switch c.CacheBackend {
	case BackendNone, BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, "database_url is required for the postgres cache")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			problems = append(problems, "redis_addr is required for the redis cache")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown cache_backend %q", c.CacheBackend))
	}
	if c.CacheBackend != BackendNone && c.CacheTTL <= 0 {
		problems = append(problems, "cache_ttl must be positive")
	}

	switch c.SessionStore {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, "database_url is required for postgres sessions")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown session_store %q", c.SessionStore))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// NeedsDatabase reports whether any component is backed by Postgres.
func (c *Config) NeedsDatabase() bool {
	return c.CacheBackend == BackendPostgres || c.SessionStore == BackendPostgres
}
