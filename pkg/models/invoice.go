package models

import "github.com/shopspring/decimal"

// MaxAmount is the exclusive upper bound for a plausible invoice amount.
// Values of exactly zero or one million and above are rejected.
var MaxAmount = decimal.NewFromInt(1_000_000)

// InvoiceRecord holds the fields extracted from one scanned invoice document.
//
// During the first pass it is a mutable accumulator owned by the stream;
// after finalization it is treated as immutable. Optional string fields use
// "" for absent, optional decimals use the zero value (zero is outside the
// valid amount and rate domains, so no separate presence flag is needed).
type InvoiceRecord struct {
	// SourceID identifies the originating document (path or filename).
	SourceID string `json:"source_id"`

	// Parties
	BuyerName   string `json:"buyer_name,omitempty"`    // 购买方名称
	BuyerTaxID  string `json:"buyer_tax_id,omitempty"`  // 购买方纳税人识别号
	SellerName  string `json:"seller_name,omitempty"`   // 销售方名称
	SellerTaxID string `json:"seller_tax_id,omitempty"` // 销售方纳税人识别号

	// Identifiers
	InvoiceNumber string `json:"invoice_number,omitempty"` // 发票号码; required for acceptance
	CheckCode     string `json:"check_code,omitempty"`     // 校验码, internal whitespace stripped

	// IssueDate is the 开票日期 in canonical YYYY-MM-DD form.
	IssueDate string `json:"issue_date,omitempty"`

	// Amounts, domain (0, 1_000_000)
	SubtotalAmount decimal.Decimal `json:"subtotal_amount"` // 金额 (pre-tax)
	TotalAmount    decimal.Decimal `json:"total_amount"`    // 价税合计

	// TaxRate is a fraction in (0, 1), e.g. 0.13 for 13%.
	TaxRate decimal.Decimal `json:"tax_rate"`
}

// HasTotal reports whether a total amount has been extracted.
func (r *InvoiceRecord) HasTotal() bool {
	return !r.TotalAmount.IsZero()
}

// HasSubtotal reports whether a pre-tax amount has been extracted.
func (r *InvoiceRecord) HasSubtotal() bool {
	return !r.SubtotalAmount.IsZero()
}

// AmountInRange reports whether v lies in the open interval (0, 1_000_000).
func AmountInRange(v decimal.Decimal) bool {
	return v.IsPositive() && v.LessThan(MaxAmount)
}

// Acceptable is the acceptance predicate shared by finalization and
// recovery: invoice number present, total present and within range.
func (r *InvoiceRecord) Acceptable() bool {
	return r.InvoiceNumber != "" && r.HasTotal() && AmountInRange(r.TotalAmount)
}

// SourceLine is one recognized text line together with the document it came
// from. The OCR stage produces these; the extraction core consumes them.
type SourceLine struct {
	Text   string `csv:"text" json:"text"`
	Source string `csv:"source" json:"source"`
}

// DuplicateGroup reports all accepted records sharing one invoice number.
// The first record is the canonical one (naturally smallest source).
type DuplicateGroup struct {
	InvoiceNumber string
	Records       []InvoiceRecord
}

// BatchResult is the outcome of a full two-pass batch run.
type BatchResult struct {
	// Unique holds one canonical record per invoice number.
	Unique []InvoiceRecord

	// Duplicates lists every invoice number that appeared on more than
	// one accepted document, with all members.
	Duplicates []DuplicateGroup

	// Recovered lists the source IDs rescued by the second pass.
	Recovered []string

	// Failed lists the source IDs that remain unprocessable after
	// recovery, in natural order.
	Failed []string
}
