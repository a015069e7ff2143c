package extract

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fapiao/pkg/models"
)

func applyAll(t *testing.T, lines ...string) *models.InvoiceRecord {
	t.Helper()
	rec := &models.InvoiceRecord{SourceID: "test.pdf"}
	for _, line := range lines {
		ApplyLine(rec, line)
	}
	return rec
}

func TestApplyLineInvoiceNumber(t *testing.T) {
	t.Run("extracts digits after colon", func(t *testing.T) {
		rec := applyAll(t, "发票号码：12345678")
		assert.Equal(t, "12345678", rec.InvoiceNumber)
	})

	t.Run("accepts half-width colon", func(t *testing.T) {
		rec := applyAll(t, "发票号码: 87654321")
		assert.Equal(t, "87654321", rec.InvoiceNumber)
	})

	t.Run("last match wins", func(t *testing.T) {
		rec := applyAll(t,
			"发票号码：11111111",
			"发票号码：22222222",
		)
		assert.Equal(t, "22222222", rec.InvoiceNumber)
	})

	t.Run("ignores line without label", func(t *testing.T) {
		rec := applyAll(t, "号码：12345678")
		assert.Empty(t, rec.InvoiceNumber)
	})
}

func TestApplyLineCheckCode(t *testing.T) {
	rec := applyAll(t, "校验码：12345 67890 12345 67890")
	assert.Equal(t, "12345678901234567890", rec.CheckCode)
}

func TestApplyLineParties(t *testing.T) {
	t.Run("buyer name", func(t *testing.T) {
		rec := applyAll(t, "购买方名称：ABC贸易有限公司")
		assert.Equal(t, "ABC贸易有限公司", rec.BuyerName)
		assert.Empty(t, rec.SellerName)
	})

	t.Run("seller name", func(t *testing.T) {
		rec := applyAll(t, "销售方名称：XYZ科技有限公司")
		assert.Equal(t, "XYZ科技有限公司", rec.SellerName)
		assert.Empty(t, rec.BuyerName)
	})

	t.Run("tax IDs fill by arrival order", func(t *testing.T) {
		rec := applyAll(t,
			"纳税人识别号：91110000123456789X",
			"统一社会信用代码：91440300ABCDEFGH12",
		)
		assert.Equal(t, "91110000123456789X", rec.BuyerTaxID)
		assert.Equal(t, "91440300ABCDEFGH12", rec.SellerTaxID)
	})
}

func TestApplyLineDate(t *testing.T) {
	t.Run("canonical form", func(t *testing.T) {
		rec := applyAll(t, "开票日期：2024年1月5日")
		assert.Equal(t, "2024-01-05", rec.IssueDate)
	})

	t.Run("rejects impossible calendar date", func(t *testing.T) {
		rec := applyAll(t, "开票日期：2024年2月30日")
		assert.Empty(t, rec.IssueDate)
	})

	t.Run("leap day accepted", func(t *testing.T) {
		rec := applyAll(t, "开票日期：2024年2月29日")
		assert.Equal(t, "2024-02-29", rec.IssueDate)
	})
}

func TestApplyLineTotalMonotonicMax(t *testing.T) {
	t.Run("keeps the larger value regardless of order", func(t *testing.T) {
		ascending := applyAll(t, "￥100.00", "￥113.00")
		descending := applyAll(t, "￥113.00", "￥100.00")

		want := decimal.RequireFromString("113.00")
		assert.True(t, ascending.TotalAmount.Equal(want))
		assert.True(t, descending.TotalAmount.Equal(want))
	})

	t.Run("label variants trigger extraction", func(t *testing.T) {
		for _, line := range []string{
			"价税合计（大写）壹佰壹拾叁圆整（小写）￥113.00",
			"¥113.00",
			"*113.00",
		} {
			rec := applyAll(t, line)
			require.True(t, rec.HasTotal(), "line %q", line)
			assert.True(t, rec.TotalAmount.Equal(decimal.RequireFromString("113.00")))
		}
	})

	t.Run("amount without two decimals is ignored", func(t *testing.T) {
		rec := applyAll(t, "￥113")
		assert.False(t, rec.HasTotal())
	})
}

func TestApplyLineSubtotalAndRate(t *testing.T) {
	t.Run("subtotal needs both column labels", func(t *testing.T) {
		rec := applyAll(t, "金额 100.00 税率 13%")
		assert.True(t, rec.SubtotalAmount.Equal(decimal.RequireFromString("100.00")))
		assert.True(t, rec.TaxRate.Equal(decimal.RequireFromString("0.13")))
	})

	t.Run("subtotal last match wins", func(t *testing.T) {
		rec := applyAll(t,
			"金额 100.00 税率 13%",
			"金额 200.00 税率 13%",
		)
		assert.True(t, rec.SubtotalAmount.Equal(decimal.RequireFromString("200.00")))
	})

	t.Run("zero percent is not a rate", func(t *testing.T) {
		rec := applyAll(t, "折扣 0%")
		assert.True(t, rec.TaxRate.IsZero())
	})
}

func TestCanonicalDate(t *testing.T) {
	assert.Equal(t, "2023-12-31", canonicalDate("2023", "12", "31"))
	assert.Empty(t, canonicalDate("2023", "13", "01"))
	assert.Empty(t, canonicalDate("2023", "04", "31"))
	assert.Empty(t, canonicalDate("2023", "02", "29"))
}
