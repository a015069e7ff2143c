package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitLines(t *testing.T) {
	t.Run("trims and drops blanks", func(t *testing.T) {
		got := SplitLines("发票号码：12345678\n\n  价税合计 ￥113.00  \n\n")
		assert.Equal(t, []string{"发票号码：12345678", "价税合计 ￥113.00"}, got)
	})

	t.Run("empty text", func(t *testing.T) {
		assert.Nil(t, SplitLines(""))
		assert.Nil(t, SplitLines("\n \n"))
	})
}
