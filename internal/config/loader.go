// Package config provides centralized configuration management for TransLens.
// Configuration is layered: built-in defaults registered with viper, the user
// config file discovered via XDG paths, then environment variables and flags.
package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/translens/translens/internal/appid"
)

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// Load decodes the merged viper settings into a typed Config. Duration fields
// accept Go duration strings ("30s", "1m"). Safe to call multiple times, e.g.
// on config reload.
func Load(ctx context.Context) (*Config, error) {
	_ = ctx

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(viper.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setConfig(cfg)

	return cfg, nil
}

// Validate checks config values that would otherwise fail deep inside the
// engine or server with a less helpful error.
func (c *Config) Validate() error {
	if c.RateLimit.Capacity < 1 {
		return fmt.Errorf("rate_limit.capacity must be at least 1, got %d", c.RateLimit.Capacity)
	}
	if c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("rate_limit.window_duration must be positive, got %s", c.RateLimit.WindowDuration)
	}
	if c.Broadcast.Interval <= 0 {
		return fmt.Errorf("broadcast.interval must be positive, got %s", c.Broadcast.Interval)
	}
	if c.Translator.MaxRetries < 0 {
		return fmt.Errorf("translator.max_retries must not be negative, got %d", c.Translator.MaxRetries)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(appid.ConfigName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	return gfconfig.GetAppDataDir(appid.ConfigName)
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	dataDir := gfconfig.GetAppDataDir(appid.ConfigName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + appid.BinaryName + ".db"
	}
	return filepath.Join(dataDir, appid.BinaryName+".db")
}
