// Package ai extracts invoice fields from OCR text with an OpenAI chat
// model. It is an alternative extraction engine for documents the
// pattern engine cannot recover, trading determinism for flexibility.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"

	"fapiao/internal/logger"
	"fapiao/pkg/models"
)

// ErrMissingAPIKey is returned when no OpenAI API key is configured.
var ErrMissingAPIKey = errors.New("missing OpenAI API key: set OPENAI_API_KEY environment variable")

const extractionPrompt = `You are an expert at reading Chinese VAT invoices (增值税发票).
Extract the following fields from the OCR text below and answer with a single JSON object, no other text:

{
  "invoice_number": "",   // 发票号码, digits only
  "check_code": "",       // 校验码, digits only
  "issue_date": "",       // 开票日期 as YYYY-MM-DD
  "buyer_name": "",       // 购买方名称
  "buyer_tax_id": "",     // 购买方纳税人识别号
  "seller_name": "",      // 销售方名称
  "seller_tax_id": "",    // 销售方纳税人识别号
  "subtotal_amount": "",  // 金额 (不含税), decimal string like "100.00"
  "tax_rate": "",         // 税率 as decimal fraction like "0.06"
  "total_amount": ""      // 价税合计 (小写), decimal string like "106.00"
}

Use an empty string for any field that is not present in the text.

OCR text:
%s`

// invoicePayload is the JSON shape the model is asked to produce.
type invoicePayload struct {
	InvoiceNumber  string `json:"invoice_number"`
	CheckCode      string `json:"check_code"`
	IssueDate      string `json:"issue_date"`
	BuyerName      string `json:"buyer_name"`
	BuyerTaxID     string `json:"buyer_tax_id"`
	SellerName     string `json:"seller_name"`
	SellerTaxID    string `json:"seller_tax_id"`
	SubtotalAmount string `json:"subtotal_amount"`
	TaxRate        string `json:"tax_rate"`
	TotalAmount    string `json:"total_amount"`
}

// Extractor extracts invoice records via the OpenAI chat API.
type Extractor struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

// NewExtractor creates an extractor for the given API key and model.
// An empty model selects gpt-4o-mini.
func NewExtractor(apiKey, model string) (*Extractor, error) {
	const op = "NewExtractor"

	if apiKey == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingAPIKey)
	}
	if model == "" {
		model = openai.GPT4oMini
	}

	return &Extractor{
		client: openai.NewClient(apiKey),
		model:  model,
		log:    logger.WithComponent("ai"),
	}, nil
}

// Extract asks the model for the invoice fields of one document and
// maps the answer onto a record tagged with sourceID.
func (e *Extractor) Extract(ctx context.Context, sourceID string, lines []string) (*models.InvoiceRecord, error) {
	const op = "Extract"

	text := strings.Join(lines, "\n")

	e.log.Debug().
		Str("source", sourceID).
		Str("model", e.model).
		Int("lines", len(lines)).
		Msg("Requesting invoice extraction")

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(extractionPrompt, text),
			},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: chat completion failed: %w", op, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s: no response choices returned", op)
	}

	content := cleanJSONResponse(resp.Choices[0].Message.Content)

	var payload invoicePayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("%s: failed to parse model response: %w", op, err)
	}

	rec, err := payload.toRecord(sourceID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	e.log.Info().
		Str("source", sourceID).
		Str("invoice_number", rec.InvoiceNumber).
		Msg("Invoice fields extracted")

	return rec, nil
}

// cleanJSONResponse strips markdown code fences the model sometimes
// wraps around its JSON answer.
func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

func (p *invoicePayload) toRecord(sourceID string) (*models.InvoiceRecord, error) {
	rec := &models.InvoiceRecord{
		SourceID:      sourceID,
		InvoiceNumber: strings.TrimSpace(p.InvoiceNumber),
		CheckCode:     strings.TrimSpace(p.CheckCode),
		IssueDate:     strings.TrimSpace(p.IssueDate),
		BuyerName:     strings.TrimSpace(p.BuyerName),
		BuyerTaxID:    strings.TrimSpace(p.BuyerTaxID),
		SellerName:    strings.TrimSpace(p.SellerName),
		SellerTaxID:   strings.TrimSpace(p.SellerTaxID),
	}

	var err error
	if rec.SubtotalAmount, err = parseAmount(p.SubtotalAmount); err != nil {
		return nil, fmt.Errorf("invalid subtotal_amount %q: %w", p.SubtotalAmount, err)
	}
	if rec.TaxRate, err = parseAmount(p.TaxRate); err != nil {
		return nil, fmt.Errorf("invalid tax_rate %q: %w", p.TaxRate, err)
	}
	if rec.TotalAmount, err = parseAmount(p.TotalAmount); err != nil {
		return nil, fmt.Errorf("invalid total_amount %q: %w", p.TotalAmount, err)
	}

	return rec, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
