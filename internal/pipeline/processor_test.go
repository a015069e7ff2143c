package pipeline

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fapiao/internal/linelog"
	"fapiao/pkg/models"
)

func line(text, source string) models.SourceLine {
	return models.SourceLine{Text: text, Source: source}
}

func TestRunFullBatch(t *testing.T) {
	lines := linelog.New([]models.SourceLine{
		// b.pdf: clean document, first in the stream.
		line("购买方名称：ABC公司", "b.pdf"),
		line("发票号码：12345678", "b.pdf"),
		line("价税合计（小写）￥113.00", "b.pdf"),

		// a.pdf: duplicate scan of the same invoice.
		line("发票号码：12345678", "a.pdf"),
		line("￥113.00", "a.pdf"),

		// c.pdf: fails the first pass, rescued by the tax relation.
		line("12345678901234567890", "c.pdf"),
		line("税率 6%", "c.pdf"),
		line("90.00", "c.pdf"),
		line("95.40", "c.pdf"),

		// d.pdf: nothing usable.
		line("一张模糊的扫描件", "d.pdf"),
	})

	result := NewProcessor().Run(lines)

	require.Len(t, result.Unique, 2)
	// The duplicate group 12345678 resolves to a.pdf (natural order),
	// even though b.pdf entered the stream first.
	assert.Equal(t, "a.pdf", result.Unique[0].SourceID)
	assert.Equal(t, "12345678", result.Unique[0].InvoiceNumber)
	assert.Equal(t, "c.pdf", result.Unique[1].SourceID)
	assert.True(t, result.Unique[1].TotalAmount.Equal(decimal.RequireFromString("95.40")))

	require.Len(t, result.Duplicates, 1)
	assert.Equal(t, "12345678", result.Duplicates[0].InvoiceNumber)
	assert.Len(t, result.Duplicates[0].Records, 2)

	assert.Equal(t, []string{"c.pdf"}, result.Recovered)
	assert.Equal(t, []string{"d.pdf"}, result.Failed)
}

func TestRunEmptyLog(t *testing.T) {
	result := NewProcessor().Run(linelog.New(nil))
	assert.Empty(t, result.Unique)
	assert.Empty(t, result.Duplicates)
	assert.Empty(t, result.Recovered)
	assert.Empty(t, result.Failed)
}

func TestRunRecoveredRecordKeepsFields(t *testing.T) {
	lines := linelog.New([]models.SourceLine{
		line("发票号码 88888888", "x.pdf"),
		line("开票日期 2024年5月1日", "x.pdf"),
		line("购买方名称：甲公司", "x.pdf"),
		line("销售方名称：乙公司", "x.pdf"),
		line("税率 13%", "x.pdf"),
		line("200.00", "x.pdf"),
		line("226.00", "x.pdf"),
	})

	result := NewProcessor().Run(lines)

	require.Len(t, result.Unique, 1)
	rec := result.Unique[0]
	assert.Equal(t, "88888888", rec.InvoiceNumber)
	assert.Equal(t, "2024-05-01", rec.IssueDate)
	assert.Equal(t, "甲公司", rec.BuyerName)
	assert.Equal(t, "乙公司", rec.SellerName)
	assert.True(t, rec.SubtotalAmount.Equal(decimal.RequireFromString("200.00")))
	assert.Equal(t, []string{"x.pdf"}, result.Recovered)
}
