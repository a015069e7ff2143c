// Package ocr extracts text lines from scanned invoice PDFs using the
// Google Cloud Vision API.
//
// The extraction engine downstream is line-oriented: every OCR line is
// one record in the batch line log, tagged with the source document it
// came from. This package therefore returns the recognized text split
// into trimmed, non-empty lines in reading order rather than one text
// blob.
//
// Required Environment Variables:
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
//
// Cloud Vision API Limitations:
//   - Maximum file size: 20MB for synchronous processing
//   - Maximum pages: 5 pages for synchronous processing
//   - Supported formats: PDF, TIFF
package ocr

import (
	"context"
	"io"
	"time"
)

// Service defines the interface for OCR line extraction.
type Service interface {
	// ProcessPDF extracts the text lines of a PDF document in reading
	// order. Blank lines are dropped and every line is trimmed.
	ProcessPDF(ctx context.Context, pdfData io.Reader) ([]string, error)

	// ProcessPDFWithMetadata extracts text lines along with confidence
	// and processing metadata.
	ProcessPDFWithMetadata(ctx context.Context, pdfData io.Reader) (*Result, error)
}

// Result contains the recognized lines of one document with metadata.
type Result struct {
	// Lines holds the trimmed, non-empty text lines in reading order,
	// pages concatenated.
	Lines []string `json:"lines"`

	// PageCount is the number of pages that were processed.
	PageCount int `json:"page_count"`

	// Confidence is the average confidence score across all detected
	// text (0.0 to 1.0).
	Confidence float32 `json:"confidence"`

	// ProcessedAt is the timestamp when the OCR processing completed.
	ProcessedAt time.Time `json:"processed_at"`

	// ProcessingDuration is how long the OCR processing took.
	ProcessingDuration time.Duration `json:"processing_duration"`
}
