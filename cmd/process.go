package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fapiao/internal/config"
	"fapiao/internal/export"
	"fapiao/internal/linelog"
	"fapiao/internal/logger"
	"fapiao/internal/pipeline"
	"fapiao/internal/sheets"
)

var processCmd = &cobra.Command{
	Use:   "process [line-log.csv]",
	Short: "Run the two-pass extraction over a line log and write the results",
	Long: `Run the batch extraction engine over a line log CSV produced by
"fapiao ocr".

The first pass streams every line and accumulates invoice fields per
document. Documents that end up without a usable invoice number or
total get a second, recovery pass over their full line history with
more permissive matching and a tax-consistency check on the amounts.

Accepted records are deduplicated by invoice number. The results land
in an XLSX workbook with separate sheets for unique records, duplicate
groups and permanently failed documents, plus a plain-text list of the
failed source files.`,
	Example: `  # Process lines.csv into result.xlsx and failed.txt
  fapiao process lines.csv

  # Custom output paths
  fapiao process batch_lines.csv -o report.xlsx --failed unreadable.txt

  # Also publish unique records to the configured Google Sheet
  fapiao process lines.csv --publish`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringP("output", "o", "result.xlsx", "XLSX report output path")
	processCmd.Flags().String("failed", "failed.txt", "Failed source list output path")
	processCmd.Flags().Bool("publish", false, "Append unique records to the Google Sheet from GOOGLE_SHEET_URL")
	processCmd.Flags().String("sheet-url", "", "Google Sheets URL (overrides GOOGLE_SHEET_URL)")
}

func runProcess(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("process")

	outputPath, _ := cmd.Flags().GetString("output")
	failedPath, _ := cmd.Flags().GetString("failed")
	publish, _ := cmd.Flags().GetBool("publish")
	sheetURL, _ := cmd.Flags().GetString("sheet-url")

	linesPath := args[0]

	log.Info().
		Str("lines", linesPath).
		Str("output", outputPath).
		Bool("publish", publish).
		Msg("Starting batch processing")

	lines, err := linelog.Load(linesPath)
	if err != nil {
		log.Error().Err(err).Str("lines", linesPath).Msg("Failed to load line log")
		return fmt.Errorf("failed to load line log: %w", err)
	}
	if lines.Len() == 0 {
		return fmt.Errorf("line log %s contains no lines", linesPath)
	}

	result := pipeline.NewProcessor().Run(lines)

	writer := export.NewWriter()
	if err := writer.WriteWorkbook(outputPath, result); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := writer.WriteFailedList(failedPath, result.Failed); err != nil {
		return fmt.Errorf("failed to write failed list: %w", err)
	}

	if publish {
		cfg := config.Load()
		if sheetURL == "" {
			sheetURL = cfg.GoogleSheetURL
		}
		if sheetURL == "" {
			return fmt.Errorf("no Google Sheets URL: pass --sheet-url or set GOOGLE_SHEET_URL")
		}

		ctx, cancel := contextWithSignals(context.Background(), log)
		defer cancel()

		svc, err := sheets.NewSheetsService(ctx, sheetURL)
		if err != nil {
			return fmt.Errorf("failed to create sheets service: %w", err)
		}
		if err := svc.PublishRecords(ctx, result.Unique, cfg.GoogleSheetWorksheet); err != nil {
			return fmt.Errorf("failed to publish records: %w", err)
		}
	}

	fmt.Printf("Processed %d documents: %d unique, %d duplicate groups, %d recovered, %d failed\n",
		len(lines.Sources()), len(result.Unique), len(result.Duplicates),
		len(result.Recovered), len(result.Failed))
	fmt.Printf("Report: %s\nFailed list: %s\n", outputPath, failedPath)
	return nil
}
