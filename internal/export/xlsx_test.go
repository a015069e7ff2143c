package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"fapiao/pkg/models"
)

func sampleResult() *models.BatchResult {
	canonical := models.InvoiceRecord{
		SourceID:       "a.pdf",
		InvoiceNumber:  "12345678",
		BuyerName:      "ABC公司",
		SubtotalAmount: decimal.RequireFromString("100.00"),
		TaxRate:        decimal.RequireFromString("0.13"),
		TotalAmount:    decimal.RequireFromString("113.00"),
	}
	dup := canonical
	dup.SourceID = "b.pdf"

	return &models.BatchResult{
		Unique: []models.InvoiceRecord{canonical},
		Duplicates: []models.DuplicateGroup{
			{InvoiceNumber: "12345678", Records: []models.InvoiceRecord{canonical, dup}},
		},
		Recovered: []string{"c.pdf"},
		Failed:    []string{"d.pdf"},
	}
}

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.xlsx")

	require.NoError(t, NewWriter().WriteWorkbook(path, sampleResult()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"发票", "重复发票", "处理失败"}, f.GetSheetList())

	number, err := f.GetCellValue("发票", "B2")
	require.NoError(t, err)
	assert.Equal(t, "12345678", number)

	total, err := f.GetCellValue("发票", "K2")
	require.NoError(t, err)
	assert.Equal(t, "113", total)

	// Duplicate sheet carries the group column plus both members.
	group, err := f.GetCellValue("重复发票", "A2")
	require.NoError(t, err)
	assert.Equal(t, "12345678", group)
	second, err := f.GetCellValue("重复发票", "B3")
	require.NoError(t, err)
	assert.Equal(t, "b.pdf", second)

	failed, err := f.GetCellValue("处理失败", "A2")
	require.NoError(t, err)
	assert.Equal(t, "d.pdf", failed)
}

func TestWriteFailedList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failed.txt")

	require.NoError(t, NewWriter().WriteFailedList(path, []string{"d.pdf", "e.pdf"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "d.pdf\ne.pdf\n", string(data))
}

func TestWriteFailedListEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failed.txt")

	require.NoError(t, NewWriter().WriteFailedList(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestNumericCell(t *testing.T) {
	assert.Equal(t, "", numericCell(decimal.Zero))
	assert.Equal(t, 113.0, numericCell(decimal.RequireFromString("113.00")))
}
