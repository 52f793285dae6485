// Package config loads daemon configuration with precedence ENV > file > defaults.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the effective daemon configuration.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`
	LogService string `yaml:"log_service"`
	Version    string `yaml:"-"`

	// StreamHost is the canonical adaptive-streaming host; every playback
	// reference normalizes to https://<StreamHost>/<id>.m3u8.
	StreamHost string `yaml:"stream_host"`

	// TeaserRef is the playback reference of the fixed intro clip shown
	// before a lesson. TeaserFallback bounds how long the sequencer waits
	// for the teaser to begin before skipping it.
	TeaserRef      string        `yaml:"teaser_ref"`
	TeaserFallback time.Duration `yaml:"teaser_fallback"`

	ViewerLoadTimeout time.Duration `yaml:"viewer_load_timeout"`
	SessionIdleTTL    time.Duration `yaml:"session_idle_ttl"`
	SweepInterval     time.Duration `yaml:"sweep_interval"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`

	JournalPath    string        `yaml:"journal_path"`
	CourseCacheTTL time.Duration `yaml:"course_cache_ttl"`

	DataStore DataStoreConfig `yaml:"datastore"`
	Redis     RedisConfig     `yaml:"redis"`
	Playback  PlaybackConfig  `yaml:"playback"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// DataStoreConfig points at the hosted course/purchase store.
type DataStoreConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	// Outbound request throttle, requests per second with burst.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// RedisConfig holds the optional read-cache connection. An empty Addr
// falls back to the in-memory cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// PlaybackConfig declares the playback target's engine capabilities.
type PlaybackConfig struct {
	NativeSupported   bool `yaml:"native_supported"`
	SoftwareSupported bool `yaml:"software_supported"`
}

// RateLimitConfig configures per-IP API rate limiting.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled"`
	RPS     int  `yaml:"rps"`
	Burst   int  `yaml:"burst"`
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Endpoint     string  `yaml:"endpoint"`
	Environment  string  `yaml:"environment"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// Defaults returns the built-in configuration baseline.
func Defaults() Config {
	return Config{
		ListenAddr: ":8080",
		LogLevel:   "info",
		LogService: "coursecast",

		StreamHost:     "stream.oakfit.io",
		TeaserRef:      "course-teaser",
		TeaserFallback: 4 * time.Second,

		ViewerLoadTimeout: 10 * time.Second,
		SessionIdleTTL:    30 * time.Minute,
		SweepInterval:     time.Minute,
		ReconcileInterval: 5 * time.Minute,

		JournalPath:    "coursecast.db",
		CourseCacheTTL: 5 * time.Minute,

		DataStore: DataStoreConfig{
			Timeout:   8 * time.Second,
			RateLimit: 20,
			RateBurst: 40,
		},
		Playback: PlaybackConfig{
			NativeSupported:   false,
			SoftwareSupported: true,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     10,
			Burst:   20,
		},
		Telemetry: TelemetryConfig{
			Environment:  "production",
			SamplingRate: 0.1,
		},
	}
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	if c.StreamHost == "" {
		return fmt.Errorf("stream_host must be set")
	}
	if c.DataStore.BaseURL == "" {
		return fmt.Errorf("datastore.base_url must be set")
	}
	if _, err := url.Parse(c.DataStore.BaseURL); err != nil {
		return fmt.Errorf("datastore.base_url invalid: %w", err)
	}
	if c.ViewerLoadTimeout <= 0 {
		return fmt.Errorf("viewer_load_timeout must be > 0, got %v", c.ViewerLoadTimeout)
	}
	if c.TeaserFallback <= 0 {
		return fmt.Errorf("teaser_fallback must be > 0, got %v", c.TeaserFallback)
	}
	if c.ReconcileInterval <= 0 {
		return fmt.Errorf("reconcile_interval must be > 0, got %v", c.ReconcileInterval)
	}
	return nil
}
