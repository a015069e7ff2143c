package ocr

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOCRError(t *testing.T) {
	t.Run("message carries op and details", func(t *testing.T) {
		err := NewOCRError("ProcessPDF", ErrInvalidPDF, "missing PDF header")
		assert.Contains(t, err.Error(), "ProcessPDF")
		assert.Contains(t, err.Error(), "missing PDF header")
		assert.ErrorIs(t, err, ErrInvalidPDF)
		assert.Equal(t, ErrInvalidPDF, err.Unwrap())
	})

	t.Run("details are optional", func(t *testing.T) {
		err := NewOCRError("Close", ErrOCRFailed, "")
		assert.Contains(t, err.Error(), "Close")
		assert.ErrorIs(t, err, ErrOCRFailed)
	})

	t.Run("wrap never double-wraps", func(t *testing.T) {
		inner := NewOCRError("ProcessPDF", ErrInvalidPDF, "missing PDF header")
		wrapped := WrapOCRError("Outer", inner, "again")
		assert.Same(t, inner, wrapped)
	})

	t.Run("wrapping nil stays nil", func(t *testing.T) {
		assert.Nil(t, WrapOCRError("ProcessPDF", nil, ""))
	})
}

func TestProcessPDFRejectsBadInput(t *testing.T) {
	// Input validation happens before any API call, so a nil client is
	// never touched.
	svc := NewGoogleVisionServiceWithClient(nil)

	t.Run("missing PDF header", func(t *testing.T) {
		_, err := svc.ProcessPDF(context.Background(), strings.NewReader("hello"))
		assert.ErrorIs(t, err, ErrInvalidPDF)
	})

	t.Run("oversized file", func(t *testing.T) {
		big := bytes.Repeat([]byte("a"), MaxFileSizeBytes+1)
		_, err := svc.ProcessPDF(context.Background(), bytes.NewReader(big))
		assert.ErrorIs(t, err, ErrPDFTooLarge)
	})
}

func TestCloseWithoutClient(t *testing.T) {
	svc, ok := NewGoogleVisionServiceWithClient(nil).(*GoogleVisionService)
	require.True(t, ok)
	assert.NoError(t, svc.Close())
}
