// Package export produces the batch output artifacts: an XLSX workbook
// with the unique, duplicate and failed result sets, and a plain-text
// failed list for quick re-runs.
package export

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"fapiao/internal/logger"
	"fapiao/pkg/models"
)

const (
	sheetInvoices   = "发票"
	sheetDuplicates = "重复发票"
	sheetFailed     = "处理失败"
)

var invoiceHeaders = []string{
	"文件",
	"发票号码",
	"校验码",
	"开票日期",
	"购买方",
	"购买方纳税人识别号",
	"销售方",
	"销售方纳税人识别号",
	"金额",
	"税率",
	"价税合计",
}

// Writer builds XLSX workbooks from batch results.
type Writer struct {
	log zerolog.Logger
}

// NewWriter returns an export writer.
func NewWriter() *Writer {
	return &Writer{log: logger.WithComponent("export")}
}

// WriteWorkbook writes the full batch result to an XLSX file: one sheet
// of unique records, one sheet listing every member of each duplicate
// group, and one sheet of permanently failed sources.
func (w *Writer) WriteWorkbook(path string, result *models.BatchResult) error {
	const op = "WriteWorkbook"

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			w.log.Warn().Err(err).Msg("Failed to close workbook")
		}
	}()

	if err := w.writeInvoiceSheet(f, sheetInvoices, result.Unique, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var duplicateRows []models.InvoiceRecord
	var groupOf []string
	for _, group := range result.Duplicates {
		for _, rec := range group.Records {
			duplicateRows = append(duplicateRows, rec)
			groupOf = append(groupOf, group.InvoiceNumber)
		}
	}
	if err := w.writeInvoiceSheet(f, sheetDuplicates, duplicateRows, groupOf); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := w.writeFailedSheet(f, result.Failed); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	// The workbook starts with a default "Sheet1" we never use.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("%s: failed to drop default sheet: %w", op, err)
	}
	index, err := f.GetSheetIndex(sheetInvoices)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	f.SetActiveSheet(index)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("%s: failed to save workbook: %w", op, err)
	}

	w.log.Info().
		Str("path", path).
		Int("unique", len(result.Unique)).
		Int("duplicates", len(duplicateRows)).
		Int("failed", len(result.Failed)).
		Msg("Workbook written")
	return nil
}

// writeInvoiceSheet writes records to a sheet. When groupOf is non-nil
// it must be parallel to records and adds a duplicate-group column.
func (w *Writer) writeInvoiceSheet(f *excelize.File, sheet string, records []models.InvoiceRecord, groupOf []string) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := invoiceHeaders
	if groupOf != nil {
		headers = append([]string{"重复组"}, invoiceHeaders...)
	}
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for i, rec := range records {
		values := []any{
			rec.SourceID,
			rec.InvoiceNumber,
			rec.CheckCode,
			rec.IssueDate,
			rec.BuyerName,
			rec.BuyerTaxID,
			rec.SellerName,
			rec.SellerTaxID,
			numericCell(rec.SubtotalAmount),
			numericCell(rec.TaxRate),
			numericCell(rec.TotalAmount),
		}
		if groupOf != nil {
			values = append([]any{groupOf[i]}, values...)
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Writer) writeFailedSheet(f *excelize.File, failed []string) error {
	if _, err := f.NewSheet(sheetFailed); err != nil {
		return err
	}
	if err := f.SetCellValue(sheetFailed, "A1", "文件"); err != nil {
		return err
	}
	for i, sourceID := range failed {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetFailed, cell, sourceID); err != nil {
			return err
		}
	}
	return nil
}

// numericCell renders an optional decimal as a spreadsheet number,
// empty cell when unset.
func numericCell(v decimal.Decimal) any {
	if v.IsZero() {
		return ""
	}
	f, _ := v.Float64()
	return f
}
