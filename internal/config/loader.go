package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence ENV > file > defaults.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a new configuration loader. configPath may be empty.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Load resolves the effective configuration and validates it.
func (l *Loader) Load() (Config, error) {
	cfg := Defaults()
	cfg.Version = l.version

	if l.configPath != "" {
		raw, err := os.ReadFile(l.configPath)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", l.configPath, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", l.configPath, err)
		}
	}

	l.applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (l *Loader) applyEnv(cfg *Config) {
	cfg.ListenAddr = ParseString("COURSECAST_LISTEN", cfg.ListenAddr)
	cfg.LogLevel = ParseString("COURSECAST_LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = ParseString("COURSECAST_LOG_SERVICE", cfg.LogService)

	cfg.StreamHost = ParseString("COURSECAST_STREAM_HOST", cfg.StreamHost)
	cfg.TeaserRef = ParseString("COURSECAST_TEASER_REF", cfg.TeaserRef)
	cfg.TeaserFallback = ParseDuration("COURSECAST_TEASER_FALLBACK", cfg.TeaserFallback)

	cfg.ViewerLoadTimeout = ParseDuration("COURSECAST_VIEWER_LOAD_TIMEOUT", cfg.ViewerLoadTimeout)
	cfg.SessionIdleTTL = ParseDuration("COURSECAST_SESSION_IDLE_TTL", cfg.SessionIdleTTL)
	cfg.SweepInterval = ParseDuration("COURSECAST_SWEEP_INTERVAL", cfg.SweepInterval)
	cfg.ReconcileInterval = ParseDuration("COURSECAST_RECONCILE_INTERVAL", cfg.ReconcileInterval)

	cfg.JournalPath = ParseString("COURSECAST_JOURNAL_PATH", cfg.JournalPath)
	cfg.CourseCacheTTL = ParseDuration("COURSECAST_COURSE_CACHE_TTL", cfg.CourseCacheTTL)

	cfg.DataStore.BaseURL = ParseString("COURSECAST_DATASTORE_URL", cfg.DataStore.BaseURL)
	cfg.DataStore.Timeout = ParseDuration("COURSECAST_DATASTORE_TIMEOUT", cfg.DataStore.Timeout)
	cfg.DataStore.RateLimit = ParseFloat("COURSECAST_DATASTORE_RATE", cfg.DataStore.RateLimit)
	cfg.DataStore.RateBurst = ParseInt("COURSECAST_DATASTORE_BURST", cfg.DataStore.RateBurst)

	cfg.Redis.Addr = ParseString("COURSECAST_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = ParseString("COURSECAST_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = ParseInt("COURSECAST_REDIS_DB", cfg.Redis.DB)

	cfg.Playback.NativeSupported = ParseBool("COURSECAST_PLAYBACK_NATIVE", cfg.Playback.NativeSupported)
	cfg.Playback.SoftwareSupported = ParseBool("COURSECAST_PLAYBACK_SOFTWARE", cfg.Playback.SoftwareSupported)

	cfg.RateLimit.Enabled = ParseBool("COURSECAST_RATELIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.RPS = ParseInt("COURSECAST_RATELIMIT_RPS", cfg.RateLimit.RPS)
	cfg.RateLimit.Burst = ParseInt("COURSECAST_RATELIMIT_BURST", cfg.RateLimit.Burst)

	cfg.Telemetry.Enabled = ParseBool("COURSECAST_OTEL_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Endpoint = ParseString("COURSECAST_OTEL_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.Environment = ParseString("COURSECAST_OTEL_ENV", cfg.Telemetry.Environment)
	cfg.Telemetry.SamplingRate = ParseFloat("COURSECAST_OTEL_SAMPLING", cfg.Telemetry.SamplingRate)
}
