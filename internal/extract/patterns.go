// Package extract implements the two-pass field extraction and
// reconciliation engine for Chinese VAT invoices (增值税发票).
//
// The first pass consumes a stream of OCR text lines grouped by source
// document and fills an InvoiceRecord accumulator per document using
// surface patterns. Documents that fail validation get a second, more
// permissive pass (see Recover) that re-reads the full line history and
// exploits the numeric relationship between 金额, 税率 and 价税合计.
//
// All extraction is pattern based. The engine does not attempt any real
// understanding of invoice semantics; a line that matches no pattern is
// simply a no-op.
package extract

import "regexp"

// First-pass extractors. Labels on printed invoices may be followed by a
// half-width or full-width colon depending on the template, so every
// colon pattern accepts both.
var (
	reColonDigits = regexp.MustCompile(`[:：]\s*(\d+)`)
	reColonCode   = regexp.MustCompile(`[:：]\s*([0-9\s]+)`)
	reColonText   = regexp.MustCompile(`[:：]\s*(.+)`)
	reColonTaxID  = regexp.MustCompile(`[:：]\s*([0-9A-Z]+)`)

	reDateCJK  = regexp.MustCompile(`(\d{4})年(\d{1,2})月(\d{1,2})日?`)
	rePercent  = regexp.MustCompile(`(\d+)%`)
	reAmount2d = regexp.MustCompile(`(\d+\.\d{2})`)
	reNumber   = regexp.MustCompile(`(\d+\.?\d*)`)

	// reNonAmount strips everything but digits and dots before amount
	// matching, so "￥113.00元" and "*113.00" both reduce to "113.00".
	reNonAmount = regexp.MustCompile(`[^0-9.]`)
)

// totalKeywords trigger total-amount extraction on a line: the 价税合计
// label, the small-in-words label, currency glyphs, and the leading
// asterisk marker some templates print before the amount.
var totalKeywords = []string{"价税合计", "小写", "￥", "¥", "*"}

// Recovery cascades, ordered from most to least specific. During
// recovery every line is tested against a pattern before the next
// pattern is tried, so a specific hit anywhere in the document beats a
// permissive one.
var (
	// invoiceNumberCascade accepts the standard labeled form, or a bare
	// line of exactly 20 digits — the raw QR/barcode payload that some
	// OCR runs emit as its own line.
	invoiceNumberCascade = []*regexp.Regexp{
		regexp.MustCompile(`发票号码[:：]?\s*(\d+)`),
		regexp.MustCompile(`^\d{20}$`),
	}

	dateCascade = []*regexp.Regexp{
		reDateCJK,
		regexp.MustCompile(`开票日期[:：]?\s*(\d{4})年(\d{1,2})月(\d{1,2})`),
	}

	// The party cascades keep the role indicator (购/销) mandatory even
	// in recovery: a bare 名称 line cannot tell buyer from seller, so a
	// role-blind fallback would fill the seller slot from the buyer's
	// line.
	buyerCascade = []*regexp.Regexp{
		regexp.MustCompile(`购.*名称[:：]?\s*(.+)`),
	}

	sellerCascade = []*regexp.Regexp{
		regexp.MustCompile(`销.*名称[:：]?\s*(.+)`),
	}
)

// findCascade applies an ordered pattern cascade to the full line set,
// cascade-first: all lines against pattern one, then all lines against
// pattern two. Returns the first capture group of the first hit, or the
// whole match for group-less patterns.
func findCascade(cascade []*regexp.Regexp, lines []string) string {
	for _, pattern := range cascade {
		for _, line := range lines {
			m := pattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			if len(m) > 1 {
				return m[1]
			}
			return m[0]
		}
	}
	return ""
}
