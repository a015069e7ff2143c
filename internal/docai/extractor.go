// Package docai extracts invoice fields with a Google Document AI
// invoice processor. Like the ai package it is an alternative engine
// for single documents; the batch pipeline stays on the pattern engine.
package docai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/api/option"

	"fapiao/internal/logger"
	"fapiao/pkg/models"
)

// MaxDocumentSizeBytes is the maximum document size for processing (20MB)
const MaxDocumentSizeBytes = 20 * 1024 * 1024

// Common Document AI processing errors
var (
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")
	ErrInvalidConfig      = errors.New("invalid Document AI configuration")
	ErrInvalidPDF         = errors.New("invalid or corrupted PDF document")
	ErrDocumentTooLarge   = errors.New("document exceeds the maximum size limit (20MB)")
	ErrProcessingFailed   = errors.New("Document AI processing failed")
	ErrProcessorNotFound  = errors.New("Document AI processor not found")
	ErrQuotaExceeded      = errors.New("Document AI API quota exceeded")
)

// Config holds the Document AI processor settings.
type Config struct {
	ProjectID   string
	Location    string
	ProcessorID string
	Timeout     time.Duration
}

// Extractor extracts invoice records via a Document AI invoice processor.
type Extractor struct {
	client *documentai.DocumentProcessorClient
	config Config
	log    zerolog.Logger
}

// NewExtractor creates an extractor with credentials from the
// environment. Requires GOOGLE_CLOUD_PROJECT and
// DOCUMENT_AI_PROCESSOR_ID; GOOGLE_CLOUD_LOCATION defaults to "us".
func NewExtractor(ctx context.Context, cfg Config) (*Extractor, error) {
	const op = "NewExtractor"

	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("%s: %w: GOOGLE_CLOUD_PROJECT is required", op, ErrInvalidConfig)
	}
	if cfg.ProcessorID == "" {
		return nil, fmt.Errorf("%s: %w: DOCUMENT_AI_PROCESSOR_ID is required", op, ErrInvalidConfig)
	}
	if cfg.Location == "" {
		cfg.Location = "us"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	var clientOptions []option.ClientOption

	// Regional endpoint for non-US processors
	if cfg.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(credFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if len(clientOptions) == 0 {
			return nil, fmt.Errorf("%s: %w", op, ErrMissingCredentials)
		}
		return nil, fmt.Errorf("%s: failed to create Document AI client for location %s: %w", op, cfg.Location, err)
	}

	return &Extractor{
		client: client,
		config: cfg,
		log:    logger.WithComponent("docai"),
	}, nil
}

// NewExtractorWithClient creates an extractor with an explicit client (for testing).
func NewExtractorWithClient(cfg Config, client *documentai.DocumentProcessorClient) *Extractor {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Extractor{
		client: client,
		config: cfg,
		log:    logger.WithComponent("docai"),
	}
}

// Extract sends one PDF through the invoice processor and maps the
// returned entities onto a record tagged with sourceID.
func (e *Extractor) Extract(ctx context.Context, sourceID string, pdfData io.Reader) (*models.InvoiceRecord, error) {
	const op = "Extract"

	pdfBytes, err := io.ReadAll(pdfData)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read PDF data: %w", op, err)
	}

	if len(pdfBytes) > MaxDocumentSizeBytes {
		return nil, fmt.Errorf("%s: %w: file size %d bytes", op, ErrDocumentTooLarge, len(pdfBytes))
	}
	if len(pdfBytes) < 4 || string(pdfBytes[:4]) != "%PDF" {
		return nil, fmt.Errorf("%s: %w: missing PDF header", op, ErrInvalidPDF)
	}

	processCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: e.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  pdfBytes,
				MimeType: "application/pdf",
			},
		},
	}

	resp, err := e.client.ProcessDocument(processCtx, req)
	if err != nil {
		return nil, e.wrapProcessingError(op, err)
	}

	if resp.Document == nil {
		return nil, fmt.Errorf("%s: %w: no document in response", op, ErrProcessingFailed)
	}

	rec := e.entitiesToRecord(sourceID, resp.Document)

	e.log.Info().
		Str("source", sourceID).
		Str("invoice_number", rec.InvoiceNumber).
		Msg("Document AI extraction completed")

	return rec, nil
}

func (e *Extractor) processorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		e.config.ProjectID, e.config.Location, e.config.ProcessorID)
}

// wrapProcessingError converts Document AI errors to sentinel errors.
func (e *Extractor) wrapProcessingError(op string, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "NOT_FOUND"):
		return fmt.Errorf("%s: %w: %s", op, ErrProcessorNotFound, e.config.ProcessorID)
	case strings.Contains(errStr, "QUOTA_EXCEEDED"):
		return fmt.Errorf("%s: %w", op, ErrQuotaExceeded)
	case strings.Contains(errStr, "INVALID_ARGUMENT"):
		return fmt.Errorf("%s: %w: document format not supported", op, ErrInvalidPDF)
	default:
		return fmt.Errorf("%s: %w: %v", op, ErrProcessingFailed, err)
	}
}

// entitiesToRecord maps Document AI invoice entities onto a record.
func (e *Extractor) entitiesToRecord(sourceID string, doc *documentaipb.Document) *models.InvoiceRecord {
	rec := &models.InvoiceRecord{SourceID: sourceID}

	for _, entity := range doc.Entities {
		value := strings.TrimSpace(entity.MentionText)

		e.log.Debug().
			Str("entity_type", entity.Type).
			Str("value", value).
			Float32("confidence", entity.Confidence).
			Msg("Processing Document AI entity")

		switch entity.Type {
		case "invoice_id", "invoice_number":
			rec.InvoiceNumber = value
		case "supplier_name", "vendor_name":
			rec.SellerName = value
		case "supplier_tax_id":
			rec.SellerTaxID = value
		case "receiver_name", "buyer_name", "customer_name":
			rec.BuyerName = value
		case "receiver_tax_id", "buyer_tax_id":
			rec.BuyerTaxID = value
		case "invoice_date":
			if date, ok := e.extractDate(entity); ok {
				rec.IssueDate = date
			}
		case "net_amount", "subtotal_amount":
			if amount, ok := e.extractMoneyValue(entity); ok {
				rec.SubtotalAmount = amount
			}
		case "total_amount", "gross_amount":
			if amount, ok := e.extractMoneyValue(entity); ok {
				rec.TotalAmount = amount
			}
		case "total_tax_amount", "vat_tax_rate":
			if rate, ok := parseRate(value); ok {
				rec.TaxRate = rate
			}
		}
	}

	return rec
}

// extractDate returns the entity date as YYYY-MM-DD.
func (e *Extractor) extractDate(entity *documentaipb.Document_Entity) (string, bool) {
	if entity.NormalizedValue != nil {
		if dateValue := entity.NormalizedValue.GetDateValue(); dateValue != nil {
			return fmt.Sprintf("%04d-%02d-%02d", dateValue.Year, dateValue.Month, dateValue.Day), true
		}
	}

	dateStr := strings.TrimSpace(entity.MentionText)
	if dateStr == "" {
		return "", false
	}
	for _, format := range []string{"2006-01-02", "2006/01/02", "2006年1月2日"} {
		if date, err := time.Parse(format, dateStr); err == nil {
			return date.Format("2006-01-02"), true
		}
	}
	return "", false
}

// extractMoneyValue converts a Document AI money entity to a decimal.
func (e *Extractor) extractMoneyValue(entity *documentaipb.Document_Entity) (decimal.Decimal, bool) {
	if entity.NormalizedValue != nil {
		if moneyValue := entity.NormalizedValue.GetMoneyValue(); moneyValue != nil {
			units := decimal.NewFromInt(moneyValue.Units)
			nanos := decimal.New(int64(moneyValue.Nanos), -9)
			return units.Add(nanos).Round(2), true
		}
	}

	cleaned := strings.NewReplacer("￥", "", "¥", "", ",", "", " ", "").
		Replace(strings.TrimSpace(entity.MentionText))
	if cleaned == "" {
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		e.log.Warn().
			Str("raw_value", entity.MentionText).
			Msg("Failed to parse money value")
		return decimal.Zero, false
	}
	return amount, true
}

// parseRate parses "6%" or "0.06" into a decimal fraction.
func parseRate(value string) (decimal.Decimal, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, false
	}
	percent := strings.HasSuffix(value, "%")
	value = strings.TrimSuffix(value, "%")
	rate, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, false
	}
	if percent || rate.GreaterThan(decimal.NewFromInt(1)) {
		rate = rate.Div(decimal.NewFromInt(100))
	}
	return rate, true
}

// Close closes the underlying Document AI client.
func (e *Extractor) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}
