package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fapiao/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "fapiao",
	Short: "Fapiao CLI - extract structured data from scanned Chinese VAT invoices",
	Long: `Fapiao CLI turns folders of scanned 增值税发票 PDFs into structured,
deduplicated invoice data.

The usual workflow has two steps: "fapiao ocr" runs Google Cloud Vision
over the PDFs and writes a line log CSV, then "fapiao process" runs the
two-pass extraction engine over that log and writes an XLSX report.
"fapiao extract" handles a single document end to end and can switch to
an OpenAI or Document AI extraction engine.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("Fapiao CLI executed")

		fmt.Println("Welcome to Fapiao CLI!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
