package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/translens/translens/internal/appid"
	"github.com/translens/translens/internal/config"
	"github.com/translens/translens/internal/core/engine"
	"github.com/translens/translens/internal/core/translator"
	errwrap "github.com/translens/translens/internal/errors"
	"github.com/translens/translens/internal/observability"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Run diagnostic checks on the system and suggest fixes for common issues.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		observability.CLILogger.Info("=== " + appid.BinaryName + " doctor ===")
		observability.CLILogger.Info("")
		observability.CLILogger.Info("Running diagnostic checks...")
		observability.CLILogger.Info("")

		allChecks := true
		totalChecks := 8

		// Check 1: Go version
		goVersion := runtime.Version()
		if goVersion >= "go1.23" {
			observability.CLILogger.Info(fmt.Sprintf("[1/%d] Checking Go version... ✅ %s", totalChecks, goVersion), zap.String("go_version", goVersion))
		} else {
			observability.CLILogger.Warn(fmt.Sprintf("[1/%d] Checking Go version... ⚠️  %s (recommended: go1.23+)", totalChecks, goVersion), zap.String("go_version", goVersion))
			allChecks = false
		}

		// Check 2: Crucible access
		version := crucible.GetVersion()
		if version.Crucible != "" {
			observability.CLILogger.Info(fmt.Sprintf("[2/%d] Checking Crucible access... ✅ v%s", totalChecks, version.Crucible), zap.String("crucible_version", version.Crucible))
		} else {
			observability.CLILogger.Error(fmt.Sprintf("[2/%d] Checking Crucible access... ❌ Cannot access Crucible", totalChecks))
			ExitWithCode(observability.CLILogger, foundry.ExitExternalServiceUnavailable, "Cannot access Crucible", errwrap.NewExternalServiceError("Crucible service unavailable"))
			allChecks = false
		}

		// Check 3: Gofulmen access
		if version.Gofulmen != "" {
			observability.CLILogger.Info(fmt.Sprintf("[3/%d] Checking Gofulmen access... ✅ v%s", totalChecks, version.Gofulmen), zap.String("gofulmen_version", version.Gofulmen))
		} else {
			observability.CLILogger.Error(fmt.Sprintf("[3/%d] Checking Gofulmen access... ❌ Cannot access Gofulmen", totalChecks))
			allChecks = false
		}

		// Check 4: Config directory
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			observability.CLILogger.Error(fmt.Sprintf("[4/%d] Checking config directory... ❌ Cannot resolve config directory", totalChecks))
			ExitWithCode(observability.CLILogger, foundry.ExitFileNotFound, "Cannot resolve config directory", errwrap.NewInternalError("config directory not resolved"))
			allChecks = false
		} else {
			configDir := filepath.Dir(configPath)
			observability.CLILogger.Info(fmt.Sprintf("[4/%d] Checking config directory... ✅ %s", totalChecks, configDir), zap.String("config_dir", configDir))
		}

		// Check 5: Environment
		observability.CLILogger.Info(fmt.Sprintf("[5/%d] Checking environment... ✅ %s/%s", totalChecks, runtime.GOOS, runtime.GOARCH),
			zap.String("os", runtime.GOOS),
			zap.String("arch", runtime.GOARCH))

		// Check 6: Database
		cfg, cfgErr := config.Load(ctx)
		if cfgErr != nil {
			observability.CLILogger.Warn(fmt.Sprintf("[6/%d] Checking database... ⚠️  config not loaded", totalChecks), zap.Error(cfgErr))
			allChecks = false
		} else if cfg.Store.URL != "" {
			observability.CLILogger.Info(fmt.Sprintf("[6/%d] Checking database... ✅ %s (remote)", totalChecks, cfg.Store.URL),
				zap.String("db_url", cfg.Store.URL))
		} else {
			dbPath := cfg.Store.Path
			if dbPath == "" {
				dbPath = config.DefaultStorePath()
			}
			// Resolve to absolute path for clarity
			absPath, _ := filepath.Abs(dbPath)
			if info, statErr := os.Stat(absPath); statErr == nil {
				sizeStr := formatFileSize(info.Size())
				observability.CLILogger.Info(fmt.Sprintf("[6/%d] Checking database... ✅ %s (%s)", totalChecks, absPath, sizeStr),
					zap.String("db_path", absPath),
					zap.Int64("db_size", info.Size()))
			} else if os.IsNotExist(statErr) {
				observability.CLILogger.Warn(fmt.Sprintf("[6/%d] Checking database... ⚠️  %s (not created yet)", totalChecks, absPath),
					zap.String("db_path", absPath))
			} else {
				observability.CLILogger.Warn(fmt.Sprintf("[6/%d] Checking database... ⚠️  %s (error: %v)", totalChecks, absPath, statErr),
					zap.String("db_path", absPath),
					zap.Error(statErr))
				allChecks = false
			}
		}

		// Check 7: Translation cache and persisted window
		if cfgErr == nil {
			db, _, storeErr := openStore(ctx)
			if storeErr != nil {
				observability.CLILogger.Warn(fmt.Sprintf("[7/%d] Checking translation cache... ⚠️  cannot open store", totalChecks), zap.Error(storeErr))
				allChecks = false
			} else {
				defer db.Close() //nolint:errcheck
				count, countErr := db.CountCacheEntries(ctx)
				if countErr != nil {
					observability.CLILogger.Warn(fmt.Sprintf("[7/%d] Checking translation cache... ⚠️  cannot read cache", totalChecks), zap.Error(countErr))
					allChecks = false
				} else {
					stamps, _ := db.LoadWindow(ctx)
					lastRequest := "no requests yet"
					if len(stamps) > 0 {
						lastRequest = "last request " + formatTimeAgo(stamps[len(stamps)-1])
					}
					observability.CLILogger.Info(fmt.Sprintf("[7/%d] Checking translation cache... ✅ %d cached translation(s), %d window stamp(s), %s", totalChecks, count, len(stamps), lastRequest),
						zap.Int("cache_entries", count),
						zap.Int("window_stamps", len(stamps)))
				}
			}
		} else {
			observability.CLILogger.Warn(fmt.Sprintf("[7/%d] Checking translation cache... ⚠️  skipped (config not loaded)", totalChecks))
		}

		// Check 8: Translation backend
		if cfgErr == nil {
			if strings.TrimSpace(cfg.Translator.Endpoint) != "" {
				observability.CLILogger.Info(fmt.Sprintf("[8/%d] Checking translation backend... ✅ %s", totalChecks, cfg.Translator.Endpoint),
					zap.String("endpoint", cfg.Translator.Endpoint))
			} else {
				observability.CLILogger.Warn(fmt.Sprintf("[8/%d] Checking translation backend... ⚠️  not configured (set translator.endpoint or run '%s doctor init')", totalChecks, appid.BinaryName))
				observability.CLILogger.Info("       Translation requires a LibreTranslate-compatible backend endpoint.")
			}
		} else {
			observability.CLILogger.Warn(fmt.Sprintf("[8/%d] Checking translation backend... ⚠️  skipped (config not loaded)", totalChecks))
		}

		observability.CLILogger.Info("")
		if allChecks {
			observability.CLILogger.Info(fmt.Sprintf("✅ All checks passed! Your %s installation is healthy.", appid.BinaryName))
		} else {
			observability.CLILogger.Warn("⚠️  Some checks failed. Review the output above for details.")
		}
		observability.CLILogger.Info("")
		observability.CLILogger.Info("=== End Diagnostics ===")
	},
}

var (
	doctorInitForce    bool
	doctorInitEndpoint string
	doctorInitAPIKey   string
	doctorResetConfig  bool
	doctorResetData    bool
	doctorResetAll     bool

	doctorConnectionEndpoint string
	doctorConnectionAPIKey   string
)

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}

		if _, err := os.Stat(configPath); err == nil && !doctorInitForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
		}

		endpoint := strings.TrimSpace(doctorInitEndpoint)
		if strings.EqualFold(endpoint, "prompt") {
			value, err := promptForValue("Enter translation backend endpoint (leave blank to skip): ")
			if err != nil {
				return err
			}
			endpoint = value
		}
		apiKey := strings.TrimSpace(doctorInitAPIKey)
		if strings.EqualFold(apiKey, "prompt") {
			value, err := promptForValue("Enter backend API key (leave blank to skip): ")
			if err != nil {
				return err
			}
			apiKey = value
		}

		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}

		mode := os.FileMode(0644)
		if apiKey != "" {
			mode = 0600
		}

		if err := os.WriteFile(configPath, []byte(buildInitConfig(endpoint, apiKey)), mode); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}

		observability.CLILogger.Info("Config initialized", zap.String("path", configPath))
		return nil
	},
}

var doctorConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration status and paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		configExists := fileExists(configPath)

		dataDir := config.DefaultDataDir()

		observability.CLILogger.Info("Configuration:")
		observability.CLILogger.Info(fmt.Sprintf("  Config file:   %s (%s)", configPath, existenceStatus(configExists)))
		if dataDir != "" {
			observability.CLILogger.Info(fmt.Sprintf("  Data directory: %s (%s)", dataDir, existenceStatus(fileExists(dataDir))))
		} else {
			observability.CLILogger.Info("  Data directory: (not resolved)")
		}

		cfg, err := config.Load(cmd.Context())
		if err != nil {
			observability.CLILogger.Warn("Config load failed", zap.Error(err))
			return nil
		}

		if cfg.Store.URL != "" {
			observability.CLILogger.Info(fmt.Sprintf("  Database:      %s (remote)", cfg.Store.URL))
		} else {
			dbPath := cfg.Store.Path
			if dbPath == "" {
				dbPath = config.DefaultStorePath()
			}
			absPath, _ := filepath.Abs(dbPath)
			if info, statErr := os.Stat(absPath); statErr == nil {
				observability.CLILogger.Info(fmt.Sprintf("  Database:      %s (%s)", absPath, formatFileSize(info.Size())))
			} else if os.IsNotExist(statErr) {
				observability.CLILogger.Info(fmt.Sprintf("  Database:      %s (not created yet)", absPath))
			} else {
				observability.CLILogger.Warn("Database status error", zap.String("db_path", absPath), zap.Error(statErr))
			}
		}

		observability.CLILogger.Info("")
		observability.CLILogger.Info("Environment:")
		observability.CLILogger.Info("  " + appid.EnvPrefix + "_TRANSLATOR_API_KEY: " + envStatus(appid.EnvPrefix+"_TRANSLATOR_API_KEY"))
		observability.CLILogger.Info("  " + appid.EnvPrefix + "_TRANSLATOR_ENDPOINT: " + envStatus(appid.EnvPrefix+"_TRANSLATOR_ENDPOINT"))

		observability.CLILogger.Info("")
		observability.CLILogger.Info("Effective Settings:")
		observability.CLILogger.Info(fmt.Sprintf("  translator.endpoint: %s", cfg.Translator.Endpoint))
		observability.CLILogger.Info(fmt.Sprintf("  translator.target_language: %s", cfg.Translator.TargetLanguage))
		observability.CLILogger.Info(fmt.Sprintf("  rate_limit.capacity: %d", cfg.RateLimit.Capacity))
		observability.CLILogger.Info(fmt.Sprintf("  rate_limit.window_duration: %s", cfg.RateLimit.WindowDuration))
		observability.CLILogger.Info(fmt.Sprintf("  cache.translation_ttl: %s", cfg.Cache.TranslationTTL))

		return nil
	},
}

var doctorResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset user configuration and/or data",
	RunE: func(cmd *cobra.Command, args []string) error {
		if doctorResetAll {
			doctorResetConfig = true
			doctorResetData = true
		}

		if !doctorResetConfig && !doctorResetData {
			return fmt.Errorf("specify --config, --data, or --all")
		}

		if doctorResetConfig {
			configPath := config.DefaultConfigPath()
			if configPath == "" {
				observability.CLILogger.Warn("Config path not resolved; skipping config reset")
			} else if err := os.Remove(configPath); err == nil {
				observability.CLILogger.Info("Config removed", zap.String("path", configPath))
			} else if os.IsNotExist(err) {
				observability.CLILogger.Info("Config already removed", zap.String("path", configPath))
			} else {
				return fmt.Errorf("remove config file: %w", err)
			}
		}

		if doctorResetData {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Store.URL != "" {
				return fmt.Errorf("remote store configured; database reset is not supported")
			}

			dbPath := cfg.Store.Path
			if dbPath == "" {
				dbPath = config.DefaultStorePath()
			}
			absPath, _ := filepath.Abs(dbPath)
			if err := os.Remove(absPath); err == nil {
				observability.CLILogger.Info("Database removed", zap.String("path", absPath))
			} else if os.IsNotExist(err) {
				observability.CLILogger.Info("Database already removed", zap.String("path", absPath))
			} else {
				return fmt.Errorf("remove database: %w", err)
			}
		}

		return nil
	},
}

var doctorValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the current config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", configPath)
		}

		if _, err := config.Load(cmd.Context()); err != nil {
			return err
		}

		observability.CLILogger.Info("Config is valid", zap.String("path", configPath))
		return nil
	},
}

var doctorConnectionCmd = &cobra.Command{
	Use:   "connection",
	Short: "Probe the configured translation backend",
	Long: `Probe the configured translation backend with a fixed test payload.

The probe passes through the same admission gate as translation and
consumes one request from the shared window.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, cfg, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close() //nolint:errcheck

		endpoint := strings.TrimSpace(doctorConnectionEndpoint)
		if endpoint == "" {
			endpoint = strings.TrimSpace(cfg.Translator.Endpoint)
		}
		if endpoint == "" {
			return fmt.Errorf("no translation endpoint configured (set translator.endpoint or pass --endpoint)")
		}
		apiKey := doctorConnectionAPIKey
		if apiKey == "" {
			apiKey = cfg.Translator.APIKey
		}

		limiter := engine.NewLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.WindowDuration)
		if cfg.RateLimit.PersistWindow {
			stamps, err := db.LoadWindow(ctx)
			if err != nil {
				observability.CLILogger.Warn("Failed to restore rate limit window", zap.Error(err))
			} else {
				limiter.Restore(stamps)
			}
		}

		provider := translator.NewClient()
		provider.Timeout = cfg.Translator.Timeout
		provider.MaxRetries = cfg.Translator.MaxRetries

		governor := &engine.Governor{
			Limiter:  limiter,
			Provider: provider,
			Logger:   observability.CLILogger,
		}

		result := governor.HandleTestConnection(ctx, endpoint, apiKey)

		if cfg.RateLimit.PersistWindow {
			if err := db.SaveWindow(ctx, limiter.Snapshot()); err != nil {
				observability.CLILogger.Warn("Failed to persist rate limit window", zap.Error(err))
			}
		}

		if result.Success {
			observability.CLILogger.Info("✅ " + result.Message)
			return nil
		}
		observability.CLILogger.Warn("❌ " + result.Message)
		return fmt.Errorf("connection probe failed")
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorInitCmd)
	doctorCmd.AddCommand(doctorConfigCmd)
	doctorCmd.AddCommand(doctorResetCmd)
	doctorCmd.AddCommand(doctorValidateCmd)
	doctorCmd.AddCommand(doctorConnectionCmd)

	doctorInitCmd.Flags().BoolVar(&doctorInitForce, "force", false, "overwrite existing config file")
	doctorInitCmd.Flags().StringVar(&doctorInitEndpoint, "endpoint", "", "set backend endpoint or use 'prompt' to enter")
	doctorInitCmd.Flags().StringVar(&doctorInitAPIKey, "api-key", "", "set backend api key or use 'prompt' to enter")

	doctorResetCmd.Flags().BoolVar(&doctorResetConfig, "config", false, "remove user config file")
	doctorResetCmd.Flags().BoolVar(&doctorResetData, "data", false, "remove local database")
	doctorResetCmd.Flags().BoolVar(&doctorResetAll, "all", false, "remove config and data")

	doctorConnectionCmd.Flags().StringVar(&doctorConnectionEndpoint, "endpoint", "", "probe this endpoint instead of the configured one")
	doctorConnectionCmd.Flags().StringVar(&doctorConnectionAPIKey, "api-key", "", "probe with this api key instead of the configured one")
}

// formatFileSize returns a human-readable file size
func formatFileSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}

func buildInitConfig(endpoint, apiKey string) string {
	lines := []string{
		fmt.Sprintf("# %s config - created by '%s doctor init'", appid.ConfigName, appid.BinaryName),
		"translator:",
	}

	if strings.TrimSpace(endpoint) != "" {
		lines = append(lines, fmt.Sprintf("  endpoint: %q", endpoint))
	} else {
		lines = append(lines, fmt.Sprintf("  # endpoint: \"\"  # Set via %s_TRANSLATOR_ENDPOINT or uncomment", appid.EnvPrefix))
	}
	if strings.TrimSpace(apiKey) != "" {
		lines = append(lines, fmt.Sprintf("  api_key: %q", apiKey))
	} else {
		lines = append(lines, fmt.Sprintf("  # api_key: \"\"  # Set via %s_TRANSLATOR_API_KEY or uncomment", appid.EnvPrefix))
	}

	lines = append(lines,
		"  target_language: es",
		"rate_limit:",
		"  capacity: 8",
		"  window_duration: 60s",
		"  persist_window: true",
		"broadcast:",
		"  interval: 1s",
	)

	return strings.Join(lines, "\n") + "\n"
}

func promptForValue(prompt string) (string, error) {
	if _, err := fmt.Fprint(os.Stdout, prompt); err != nil {
		return "", err
	}
	reader := bufio.NewReader(os.Stdin)
	value, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func existenceStatus(exists bool) string {
	if exists {
		return "exists"
	}
	return "missing"
}

func envStatus(name string) string {
	if strings.TrimSpace(os.Getenv(name)) != "" {
		return "(set)"
	}
	return "(not set)"
}

// formatTimeAgo returns a human-readable relative time
func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 min ago"
		}
		return fmt.Sprintf("%d mins ago", mins)
	case d < 24*time.Hour:
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}
