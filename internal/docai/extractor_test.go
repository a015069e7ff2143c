package docai

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExtractorValidatesConfig(t *testing.T) {
	_, err := NewExtractor(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewExtractor(context.Background(), Config{ProjectID: "proj"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestExtractRejectsBadInput(t *testing.T) {
	// Input validation happens before the Document AI request, so a nil
	// client is never touched.
	e := NewExtractorWithClient(Config{ProjectID: "proj", Location: "us", ProcessorID: "proc"}, nil)
	t.Cleanup(func() { assert.NoError(t, e.Close()) })

	t.Run("missing PDF header", func(t *testing.T) {
		_, err := e.Extract(context.Background(), "doc.pdf", strings.NewReader("not a pdf"))
		assert.ErrorIs(t, err, ErrInvalidPDF)
	})

	t.Run("oversized document", func(t *testing.T) {
		big := bytes.Repeat([]byte("a"), MaxDocumentSizeBytes+1)
		_, err := e.Extract(context.Background(), "doc.pdf", bytes.NewReader(big))
		assert.ErrorIs(t, err, ErrDocumentTooLarge)
	})
}

func TestParseRate(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"6%", "0.06", true},
		{"13%", "0.13", true},
		{"0.06", "0.06", true},
		{"6", "0.06", true},
		{"", "", false},
		{"abc", "", false},
	}

	for _, tt := range tests {
		got, ok := parseRate(tt.input)
		require.Equal(t, tt.ok, ok, "parseRate(%q)", tt.input)
		if ok {
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "parseRate(%q) = %s", tt.input, got)
		}
	}
}
