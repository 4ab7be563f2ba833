package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/translens/translens/internal/core/engine"
	"github.com/translens/translens/internal/observability"
	"github.com/translens/translens/internal/output"
)

var (
	quotaOutput string
	quotaOut    string
	quotaOutDir string

	quotaResetYes    bool
	quotaResetDryRun bool
	quotaResetOutput string
	quotaResetOut    string
	quotaResetOutDir string
)

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Inspect the shared rate limit window",
	Long: `Inspect the shared rate limit window.

Without a subcommand, prints remaining quota and the wait time (if any)
computed from the persisted window. Reading quota never consumes it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(quotaOutput)
		if err != nil {
			return err
		}

		db, cfg, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() //nolint:errcheck

		limiter := engine.NewLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.WindowDuration)
		if cfg.RateLimit.PersistWindow {
			stamps, err := db.LoadWindow(cmd.Context())
			if err != nil {
				observability.CLILogger.Warn("Failed to restore rate limit window", zap.Error(err))
			} else {
				limiter.Restore(stamps)
			}
		}

		sink, err := quotaSink(quotaOut, quotaOutDir, "quota", format)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		formatter := output.NewFormatter(format)
		rendered, err := formatter.FormatQuota(limiter.Status())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(sink.writer, rendered)
		return err
	},
}

var quotaWindowCmd = &cobra.Command{
	Use:   "window",
	Short: "Show the persisted request timestamps",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(quotaOutput)
		if err != nil {
			return err
		}
		if format != output.FormatJSON && format != output.FormatTable {
			return fmt.Errorf("unsupported output format: %s", format)
		}

		db, cfg, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() //nolint:errcheck

		stamps, err := db.LoadWindow(cmd.Context())
		if err != nil {
			return err
		}

		sink, err := quotaSink(quotaOut, quotaOutDir, "quota.window", format)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		if format == output.FormatJSON {
			payload, err := json.MarshalIndent(map[string]any{
				"capacity":        cfg.RateLimit.Capacity,
				"window_duration": cfg.RateLimit.WindowDuration.String(),
				"stamps":          stamps,
			}, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(sink.writer, string(payload))
			return err
		}

		lines := []string{"Rate Limit Window", ""}
		lines = append(lines, fmt.Sprintf("capacity=%d window=%s", cfg.RateLimit.Capacity, cfg.RateLimit.WindowDuration))
		if len(stamps) == 0 {
			lines = append(lines, "(no persisted request timestamps)")
		}
		for i, stamp := range stamps {
			lines = append(lines, fmt.Sprintf("%d: %s", i+1, stamp.UTC().Format(time.RFC3339)))
		}

		_, _ = fmt.Fprint(sink.writer, ascii.DrawBox(strings.Join(lines, "\n"), 0))
		return nil
	},
}

var quotaResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the persisted rate limit window",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(quotaResetOutput)
		if err != nil {
			return err
		}
		if format != output.FormatJSON && format != output.FormatTable {
			return fmt.Errorf("unsupported output format: %s", format)
		}

		if !quotaResetYes && !quotaResetDryRun {
			return errors.New("reset requires --yes (or use --dry-run)")
		}

		db, _, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() //nolint:errcheck

		stamps, err := db.LoadWindow(cmd.Context())
		if err != nil {
			return err
		}
		matched := len(stamps)

		sink, err := quotaSink(quotaResetOut, quotaResetOutDir, "quota.reset", format)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		if quotaResetDryRun {
			return writeQuotaResetResult(format, sink.writer, matched, true)
		}

		if err := db.ClearWindow(cmd.Context()); err != nil {
			return err
		}

		return writeQuotaResetResult(format, sink.writer, matched, false)
	},
}

func quotaSink(outPath, outDir, basename string, format output.Format) (*outputSink, error) {
	outPath = strings.TrimSpace(outPath)
	outDir = strings.TrimSpace(outDir)
	if outPath != "" && outDir != "" {
		return nil, fmt.Errorf("--out and --out-dir are mutually exclusive")
	}
	if outDir != "" {
		resolved, err := ensureOutDir(outDir)
		if err != nil {
			return nil, err
		}
		outPath = filepath.Join(resolved, fmt.Sprintf("%s.%s", basename, outputExtension(format)))
	}
	return openSink(outPath)
}

func writeQuotaResetResult(format output.Format, w io.Writer, matched int, dryRun bool) error {
	result := map[string]any{
		"matched": matched,
		"dry_run": dryRun,
	}

	if format == output.FormatJSON {
		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(payload))
		return err
	}

	if dryRun {
		_, err := fmt.Fprintf(w, "Would clear %d persisted request timestamp(s)\n", matched)
		return err
	}
	_, err := fmt.Fprintf(w, "Cleared %d persisted request timestamp(s)\n", matched)
	return err
}

func init() {
	quotaCmd.PersistentFlags().StringVar(&quotaOutput, "output-format", string(output.FormatTable), "Output format: table|json")
	quotaCmd.PersistentFlags().StringVar(&quotaOut, "out", "", "Write output to a file (default stdout)")
	quotaCmd.PersistentFlags().StringVar(&quotaOutDir, "out-dir", "", "Write output to a directory")

	quotaResetCmd.Flags().BoolVar(&quotaResetYes, "yes", false, "Confirm destructive reset")
	quotaResetCmd.Flags().BoolVar(&quotaResetDryRun, "dry-run", false, "Show what would be cleared")
	quotaResetCmd.Flags().StringVar(&quotaResetOutput, "output-format", string(output.FormatTable), "Output format: table|json")
	quotaResetCmd.Flags().StringVar(&quotaResetOut, "out", "", "Write output to a file (default stdout)")
	quotaResetCmd.Flags().StringVar(&quotaResetOutDir, "out-dir", "", "Write output to a directory")

	quotaCmd.AddCommand(quotaWindowCmd)
	quotaCmd.AddCommand(quotaResetCmd)
	rootCmd.AddCommand(quotaCmd)
}
