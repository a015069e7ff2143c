package extract

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fapiao/pkg/models"
)

// ApplyLine applies the first-pass extraction rules for one text line to
// the current accumulator. Every field rule is evaluated independently,
// so a single line may update several fields. A line that matches
// nothing leaves the record untouched.
//
// All rules are line-local; the only cross-line policy is the
// monotonic-max rule for the total amount, which keeps the largest value
// seen so far for the document and never decreases it.
func ApplyLine(rec *models.InvoiceRecord, text string) {
	// 发票号码: digits after the nearest colon, last match wins.
	if strings.Contains(text, "发票号码") {
		if m := reColonDigits.FindStringSubmatch(text); m != nil {
			rec.InvoiceNumber = m[1]
		}
	}

	// 校验码: digit/space run after the colon, internal spaces dropped.
	if strings.Contains(text, "校验码") {
		if m := reColonCode.FindStringSubmatch(text); m != nil {
			rec.CheckCode = strings.ReplaceAll(m[1], " ", "")
		}
	}

	// 购买方/销售方名称: a line must carry both the party indicator and
	// the 名称 label. Both rules can fire on the same line when the OCR
	// garbles the role column.
	if strings.Contains(text, "购") && strings.Contains(text, "名称") {
		if m := reColonText.FindStringSubmatch(text); m != nil {
			rec.BuyerName = strings.TrimSpace(m[1])
		}
	}
	if strings.Contains(text, "销") && strings.Contains(text, "名称") {
		if m := reColonText.FindStringSubmatch(text); m != nil {
			rec.SellerName = strings.TrimSpace(m[1])
		}
	}

	// 纳税人识别号/统一社会信用代码: the role keyword is usually printed in
	// a separate column the OCR loses, so slots fill by arrival order —
	// first such line is the buyer, the next one the seller.
	if strings.Contains(text, "纳税人识别号") || strings.Contains(text, "统一社会信用代码") {
		if m := reColonTaxID.FindStringSubmatch(text); m != nil {
			if rec.BuyerTaxID == "" {
				rec.BuyerTaxID = m[1]
			} else {
				rec.SellerTaxID = m[1]
			}
		}
	}

	// 开票日期: calendar-validated, left unset on nonsense dates.
	if strings.Contains(text, "开票日期") {
		if d := extractDate(text); d != "" {
			rec.IssueDate = d
		}
	}

	// 价税合计: monotonic-max update.
	if containsAny(text, totalKeywords) {
		if amount, ok := extractAmount(text); ok {
			if !rec.HasTotal() || amount.GreaterThan(rec.TotalAmount) {
				rec.TotalAmount = amount
			}
		}
	}

	// 金额 (pre-tax subtotal): the row that carries both the amount and
	// tax-rate column labels; last match wins.
	if strings.Contains(text, "金额") && strings.Contains(text, "税率") {
		if amount, ok := extractAmount(text); ok {
			rec.SubtotalAmount = amount
		}
	}

	// 税率: any percentage on the line, stored as a fraction.
	if strings.Contains(text, "%") {
		if rate, ok := extractTaxRate(text); ok {
			rec.TaxRate = rate
		}
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// extractDate parses the CJK date form (2024年1月5日) and returns the
// canonical YYYY-MM-DD string, or "" when the digits do not form a real
// calendar date.
func extractDate(text string) string {
	m := reDateCJK.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return canonicalDate(m[1], m[2], m[3])
}

// canonicalDate validates year/month/day strings against the calendar.
// time.Date normalizes out-of-range components (month 13 becomes January
// of the next year), so the result is compared back against the input.
func canonicalDate(year, month, day string) string {
	y, _ := strconv.Atoi(year)
	mo, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
		return ""
	}
	return t.Format("2006-01-02")
}

// extractAmount strips every non-digit, non-dot character and then
// requires a two-decimal-place number, the form amounts are printed in
// on every template. Returns ok=false when no such number remains.
func extractAmount(text string) (decimal.Decimal, bool) {
	cleaned := reNonAmount.ReplaceAllString(text, "")
	m := reAmount2d.FindStringSubmatch(cleaned)
	if m == nil {
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(m[1])
	if err != nil {
		return decimal.Zero, false
	}
	return amount, true
}

var oneHundred = decimal.NewFromInt(100)

// extractTaxRate finds an integer percentage and returns it as a
// fraction. A zero rate is treated as no match.
func extractTaxRate(text string) (decimal.Decimal, bool) {
	m := rePercent.FindStringSubmatch(text)
	if m == nil {
		return decimal.Zero, false
	}
	n, err := decimal.NewFromString(m[1])
	if err != nil || n.IsZero() {
		return decimal.Zero, false
	}
	return n.Div(oneHundred), true
}
