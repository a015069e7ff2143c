package ai

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExtractorRequiresAPIKey(t *testing.T) {
	_, err := NewExtractor("", "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestCleanJSONResponse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain json", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  {\"a\":1}\n", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSONResponse(tt.input))
		})
	}
}

func TestPayloadToRecord(t *testing.T) {
	p := invoicePayload{
		InvoiceNumber:  " 12345678 ",
		IssueDate:      "2024-01-05",
		BuyerName:      "ABC公司",
		SellerName:     "XYZ公司",
		SubtotalAmount: "100.00",
		TaxRate:        "0.13",
		TotalAmount:    "113.00",
	}

	rec, err := p.toRecord("doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "doc.pdf", rec.SourceID)
	assert.Equal(t, "12345678", rec.InvoiceNumber)
	assert.Equal(t, "2024-01-05", rec.IssueDate)
	assert.True(t, rec.TotalAmount.Equal(decimal.RequireFromString("113.00")))
	assert.True(t, rec.TaxRate.Equal(decimal.RequireFromString("0.13")))
	assert.True(t, rec.Acceptable())
}

func TestPayloadToRecordEmptyAmounts(t *testing.T) {
	p := invoicePayload{InvoiceNumber: "12345678"}

	rec, err := p.toRecord("doc.pdf")
	require.NoError(t, err)
	assert.True(t, rec.SubtotalAmount.IsZero())
	assert.True(t, rec.TotalAmount.IsZero())
	assert.False(t, rec.Acceptable())
}

func TestPayloadToRecordBadAmount(t *testing.T) {
	p := invoicePayload{TotalAmount: "not-a-number"}
	_, err := p.toRecord("doc.pdf")
	assert.Error(t, err)
}
