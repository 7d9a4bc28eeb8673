package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "editalscan",
		Short: "Analyze Brazilian procurement documents from the command line",
		Long: `editalscan runs the edital analysis pipeline against a single PDF
without the daemon: text extraction, OCR fallback, AI analysis, risk and
opportunity scoring, and quality validation. Results are written as JSON
and can be exported to XLSX.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.AddCommand(newProcessCmd())
	cmd.AddCommand(newExportCmd())
	return cmd
}
