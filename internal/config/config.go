package config

import "time"

// Config represents the complete application configuration. Values are
// layered: built-in defaults, then the user config file, then environment
// variables and flags (viper handles precedence).
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Store      StoreConfig      `mapstructure:"store"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Translator TranslatorConfig `mapstructure:"translator"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Broadcast  BroadcastConfig  `mapstructure:"broadcast"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Health     HealthConfig     `mapstructure:"health"`
	Debug      DebugConfig      `mapstructure:"debug"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// CacheConfig contains translation cache TTL configuration.
type CacheConfig struct {
	TranslationTTL time.Duration `mapstructure:"translation_ttl"`
}

// TranslatorConfig contains the default translation backend settings. Callers
// may override endpoint, key, and target language per request.
type TranslatorConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	APIKey         string        `mapstructure:"api_key"`
	TargetLanguage string        `mapstructure:"target_language"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
}

// RateLimitConfig shapes the shared outbound request window.
type RateLimitConfig struct {
	Capacity       int           `mapstructure:"capacity"`
	WindowDuration time.Duration `mapstructure:"window_duration"`

	// PersistWindow controls whether the window snapshot is saved to the
	// store on shutdown and restored on startup.
	PersistWindow bool `mapstructure:"persist_window"`
}

// BroadcastConfig controls the quota status push loop.
type BroadcastConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// LoggingConfig contains logging configuration.
// Valid levels: trace, debug, info, warn, error.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig contains debug and profiling configuration
type DebugConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
