package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/licitalab/editalscan/internal/entity"
	"github.com/licitalab/editalscan/internal/export"
)

func newExportCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export <resultado.json>",
		Short: "Export a stored result to an XLSX workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var result entity.FinalResult
			if err := json.Unmarshal(data, &result); err != nil {
				return fmt.Errorf("parse result json: %w", err)
			}

			book, err := export.NewService(slog.Default()).BuildResultXLSX(&result)
			if err != nil {
				return err
			}

			if outputPath == "" {
				outputPath = strings.TrimSuffix(args[0], ".json") + ".xlsx"
			}
			if err := os.WriteFile(outputPath, book, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s\n", outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output .xlsx path (default: alongside the input)")
	return cmd
}
