package extract

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverInvoiceNumber(t *testing.T) {
	t.Run("labeled form", func(t *testing.T) {
		got := recoverInvoiceNumber([]string{"发票号码 12345678"})
		assert.Equal(t, "12345678", got)
	})

	t.Run("bare 20-digit line", func(t *testing.T) {
		got := recoverInvoiceNumber([]string{"12345678901234567890"})
		assert.Equal(t, "12345678901234567890", got)
	})

	t.Run("labeled beats bare regardless of line order", func(t *testing.T) {
		got := recoverInvoiceNumber([]string{
			"12345678901234567890",
			"发票号码：88888888",
		})
		assert.Equal(t, "88888888", got)
	})

	t.Run("short digit runs are skipped", func(t *testing.T) {
		got := recoverInvoiceNumber([]string{"发票号码：1234567"})
		assert.Empty(t, got)
	})

	t.Run("digits embedded in longer line are not bare numbers", func(t *testing.T) {
		got := recoverInvoiceNumber([]string{"共 12345678901234567890 元"})
		assert.Empty(t, got)
	})
}

func TestRecoverSolvesAmountsFromTaxRelation(t *testing.T) {
	lines := []string{
		"发票号码：12345678",
		"税率 6%",
		"90.00",
		"95.40",
		"100.00",
	}

	rec, ok := Recover("doc.pdf", lines)
	require.True(t, ok)
	assert.True(t, rec.SubtotalAmount.Equal(decimal.RequireFromString("90.00")), "subtotal %s", rec.SubtotalAmount)
	assert.True(t, rec.TotalAmount.Equal(decimal.RequireFromString("95.40")), "total %s", rec.TotalAmount)
	assert.True(t, rec.TaxRate.Equal(decimal.RequireFromString("0.06")))
}

func TestRecoverSolverSetsBothOrNeither(t *testing.T) {
	t.Run("no matching pair leaves both unset", func(t *testing.T) {
		lines := []string{
			"发票号码：12345678",
			"税率 6%",
			"90.00",
			"97.00", // not 90 * 1.06
		}
		rec, ok := Recover("doc.pdf", lines)
		assert.False(t, ok)
		assert.Nil(t, rec)
	})

	t.Run("no rate means no solving", func(t *testing.T) {
		lines := []string{
			"发票号码：12345678",
			"90.00",
			"95.40",
		}
		_, ok := Recover("doc.pdf", lines)
		assert.False(t, ok)
	})
}

func TestRecoverFirstAscendingPairWins(t *testing.T) {
	// Two valid pairs under 10%: (50, 55) and (200, 220). The smaller
	// subtotal is found first.
	lines := []string{
		"发票号码：12345678",
		"税率 10%",
		"200.00", "220.00", "55.00", "50.00",
	}

	rec, ok := Recover("doc.pdf", lines)
	require.True(t, ok)
	assert.True(t, rec.SubtotalAmount.Equal(decimal.RequireFromString("50.00")))
	assert.True(t, rec.TotalAmount.Equal(decimal.RequireFromString("55.00")))
}

func TestRecoverIsIdempotent(t *testing.T) {
	lines := []string{
		"发票号码：12345678",
		"开票日期 2024年3月15日",
		"购买方名称：甲公司",
		"销售方名称：乙公司",
		"税率 13%",
		"100.00",
		"113.00",
	}

	first, ok := Recover("doc.pdf", lines)
	require.True(t, ok)
	second, ok := Recover("doc.pdf", lines)
	require.True(t, ok)

	assert.Equal(t, first.InvoiceNumber, second.InvoiceNumber)
	assert.Equal(t, first.IssueDate, second.IssueDate)
	assert.Equal(t, first.BuyerName, second.BuyerName)
	assert.Equal(t, first.SellerName, second.SellerName)
	assert.True(t, first.SubtotalAmount.Equal(second.SubtotalAmount))
	assert.True(t, first.TotalAmount.Equal(second.TotalAmount))
}

func TestRecoverFields(t *testing.T) {
	lines := []string{
		"12345678901234567890",
		"开票日期 2024年3月15日",
		"购买方名称：甲公司",
		"名称：乙市政服务中心", // no 购/销 role indicator, matched by no cascade
		"税率 13%",
		"100.00",
		"113.00",
	}

	rec, ok := Recover("doc.pdf", lines)
	require.True(t, ok)
	assert.Equal(t, "12345678901234567890", rec.InvoiceNumber)
	assert.Equal(t, "2024-03-15", rec.IssueDate)
	assert.Equal(t, "甲公司", rec.BuyerName)
	assert.Empty(t, rec.SellerName)
}

func TestRecoverSellerNeverFilledFromBuyerLine(t *testing.T) {
	// A document whose only 名称 line belongs to the buyer: the seller
	// cascade must not fall back to it.
	lines := []string{
		"发票号码：12345678",
		"购买方名称：甲公司",
		"税率 13%",
		"100.00",
		"113.00",
	}

	rec, ok := Recover("doc.pdf", lines)
	require.True(t, ok)
	assert.Equal(t, "甲公司", rec.BuyerName)
	assert.Empty(t, rec.SellerName)
}

func TestRecoverRejectsWhenStillIncomplete(t *testing.T) {
	rec, ok := Recover("doc.pdf", []string{"一些无关紧要的文本"})
	assert.False(t, ok)
	assert.Nil(t, rec)
}

func TestRecoverDateInvalidCalendar(t *testing.T) {
	got := recoverDate([]string{"开票日期 2024年2月30日", "2024年2月28日"})
	// The first pattern hit fails calendar validation; the next line wins.
	assert.Equal(t, "2024-02-28", got)
}
