package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"fapiao/internal/ai"
	"fapiao/internal/config"
	"fapiao/internal/docai"
	"fapiao/internal/linelog"
	"fapiao/internal/logger"
	"fapiao/internal/pipeline"
	"fapiao/pkg/models"
)

var extractCmd = &cobra.Command{
	Use:   "extract [pdf-file]",
	Short: "Extract the fields of a single invoice PDF as JSON",
	Long: `Extract structured invoice data from one PDF and print it as JSON.

Three engines are available:
  pattern - OCR the document and run the deterministic two-pass engine
            (default, no AI involved)
  openai  - OCR the document and ask an OpenAI chat model for the fields
            (requires OPENAI_API_KEY)
  docai   - send the PDF to a Google Document AI invoice processor
            (requires GOOGLE_CLOUD_PROJECT and DOCUMENT_AI_PROCESSOR_ID)`,
	Example: `  # Deterministic extraction
  fapiao extract invoice.pdf

  # Ask gpt-4o-mini instead
  fapiao extract invoice.pdf --engine openai

  # Use a Document AI invoice processor
  fapiao extract invoice.pdf --engine docai -o invoice.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().String("engine", "pattern", "Extraction engine: pattern, openai or docai")
	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	engine, _ := cmd.Flags().GetString("engine")
	outputPath, _ := cmd.Flags().GetString("output")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	pdfPath := args[0]
	sourceID := filepath.Base(pdfPath)

	log.Info().
		Str("file", pdfPath).
		Str("engine", engine).
		Msg("Starting single-document extraction")

	ctx, cancel := contextWithSignals(context.Background(), log)
	defer cancel()

	var rec *models.InvoiceRecord
	var err error

	switch engine {
	case "pattern":
		rec, err = extractWithPatterns(ctx, pdfPath, sourceID, timeoutSecs)
	case "openai":
		rec, err = extractWithOpenAI(ctx, pdfPath, sourceID, timeoutSecs)
	case "docai":
		rec, err = extractWithDocumentAI(ctx, pdfPath, sourceID)
	default:
		return fmt.Errorf("unknown engine %q: expected pattern, openai or docai", engine)
	}
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		log.Info().Str("output", outputPath).Msg("Record written")
		return nil
	}

	fmt.Println(string(data))
	return nil
}

// extractWithPatterns OCRs the document and runs it through the same
// two-pass engine the batch pipeline uses, as a batch of one.
func extractWithPatterns(ctx context.Context, pdfPath, sourceID string, timeoutSecs int) (*models.InvoiceRecord, error) {
	log := logger.WithSource("extract", sourceID)

	ocrService, err := createOCRService(ctx, log)
	if err != nil {
		return nil, err
	}

	lines, err := ocrFile(ctx, ocrService, pdfPath, timeoutSecs, log)
	if err != nil {
		return nil, err
	}

	result := pipeline.NewProcessor().Run(linelog.New(lines))
	if len(result.Unique) == 0 {
		return nil, fmt.Errorf("could not extract an acceptable record from %s", sourceID)
	}
	return &result.Unique[0], nil
}

// extractWithOpenAI OCRs the document and delegates field extraction
// to an OpenAI chat model.
func extractWithOpenAI(ctx context.Context, pdfPath, sourceID string, timeoutSecs int) (*models.InvoiceRecord, error) {
	log := logger.WithSource("extract", sourceID)

	cfg := config.Load()
	extractor, err := ai.NewExtractor(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	if err != nil {
		return nil, err
	}

	ocrService, err := createOCRService(ctx, log)
	if err != nil {
		return nil, err
	}

	lines, err := ocrFile(ctx, ocrService, pdfPath, timeoutSecs, log)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(lines))
	for _, line := range lines {
		texts = append(texts, line.Text)
	}

	return extractor.Extract(ctx, sourceID, texts)
}

// extractWithDocumentAI sends the raw PDF to a Document AI invoice
// processor, no separate OCR step needed.
func extractWithDocumentAI(ctx context.Context, pdfPath, sourceID string) (*models.InvoiceRecord, error) {
	cfg := config.Load()

	extractor, err := docai.NewExtractor(ctx, docai.Config{
		ProjectID:   cfg.GoogleCloudProject,
		Location:    cfg.GoogleCloudLocation,
		ProcessorID: cfg.DocumentAIProcessorID,
	})
	if err != nil {
		return nil, err
	}
	defer extractor.Close()

	pdfFile, err := os.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer pdfFile.Close()

	return extractor.Extract(ctx, sourceID, pdfFile)
}
