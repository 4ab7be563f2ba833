package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/translens/translens/internal/core/engine"
	"github.com/translens/translens/internal/core/store"
	"github.com/translens/translens/internal/core/translator"
	"github.com/translens/translens/internal/observability"
	"github.com/translens/translens/internal/output"
)

var translateCmd = &cobra.Command{
	Use:   "translate <text>",
	Short: "Translate a string through the configured backend",
	Long: `Translate a single string through the configured backend.

The request shares the same rate limit window as the server: it consumes
quota, persists the updated window, and refuses to call the backend when
the window is exhausted.`,
	Args: cobra.ExactArgs(1),
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().String("target", "", "Target language code (defaults to translator.target_language)")
	translateCmd.Flags().String("endpoint", "", "Backend endpoint override (defaults to translator.endpoint)")
	translateCmd.Flags().String("api-key", "", "Backend API key override")
	translateCmd.Flags().Bool("no-cache", false, "Skip cache lookup")
	translateCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table, json, markdown")
	translateCmd.Flags().String("out", "", "Write output to a file (default stdout)")
	translateCmd.Flags().String("out-dir", "", "Write output to a directory")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	text := args[0]
	if strings.TrimSpace(text) == "" {
		return errors.New("text must not be empty")
	}

	target, err := cmd.Flags().GetString("target")
	if err != nil {
		return err
	}
	endpoint, err := cmd.Flags().GetString("endpoint")
	if err != nil {
		return err
	}
	apiKey, err := cmd.Flags().GetString("api-key")
	if err != nil {
		return err
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return err
	}
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	outPath, outDir, err := resolveOutputTargets(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	db, cfg, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	if endpoint == "" {
		endpoint = cfg.Translator.Endpoint
	}
	if endpoint == "" {
		return errors.New("no translation endpoint configured (set translator.endpoint or pass --endpoint)")
	}
	if apiKey == "" {
		apiKey = cfg.Translator.APIKey
	}
	if target == "" {
		target = cfg.Translator.TargetLanguage
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
	if !noCache {
		governor.Cache = &store.TranslationCache{Store: db, TTL: cfg.Cache.TranslationTTL}
	}

	result, translateErr := governor.HandleTranslate(ctx, translator.Request{
		Text:           text,
		TargetLanguage: target,
		Endpoint:       endpoint,
		APIKey:         apiKey,
	})

	// Persist the window even on failure: a denied request spends nothing,
	// but a request that reached the backend did.
	if cfg.RateLimit.PersistWindow {
		if err := db.SaveWindow(ctx, limiter.Snapshot()); err != nil {
			observability.CLILogger.Warn("Failed to persist rate limit window", zap.Error(err))
		}
	}
	if translateErr != nil {
		return translateErr
	}

	ext := outputExtension(format)
	if outDir != "" {
		outDir, err = ensureOutDir(outDir)
		if err != nil {
			return err
		}
		outPath = filepath.Join(outDir, fmt.Sprintf("translate.%s.%s", sanitizeFilename(target), ext))
	}
	sink, err := openSink(outPath)
	if err != nil {
		return err
	}
	defer func() { _ = sink.close() }()

	formatter := output.NewFormatter(format)
	rendered, err := formatter.FormatTranslation(result)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(sink.writer, rendered)
	return err
}
