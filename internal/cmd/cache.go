package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/translens/translens/internal/output"
)

var (
	cachePruneOutput string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the translation cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired translation cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(cachePruneOutput)
		if err != nil {
			return err
		}
		if format != output.FormatJSON && format != output.FormatTable {
			return fmt.Errorf("unsupported output format: %s", format)
		}

		db, _, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() //nolint:errcheck

		removed, err := db.PruneCache(cmd.Context())
		if err != nil {
			return err
		}

		return writeCachePruneResult(format, cmd.OutOrStdout(), removed)
	},
}

func writeCachePruneResult(format output.Format, w io.Writer, removed int64) error {
	if format == output.FormatJSON {
		payload, err := json.MarshalIndent(map[string]any{"removed": removed}, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(payload))
		return err
	}

	_, err := fmt.Fprintf(w, "Removed %d expired cache entr(ies)\n", removed)
	return err
}

func init() {
	cachePruneCmd.Flags().StringVar(&cachePruneOutput, "output-format", string(output.FormatTable), "Output format: table|json")

	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}
