package extract

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fapiao/internal/logger"
	"fapiao/pkg/models"
)

// minInvoiceNumberLen rejects short digit runs that are almost always
// OCR fragments rather than real invoice numbers.
const minInvoiceNumberLen = 8

var one = decimal.NewFromInt(1)

// recoverState holds the caches for one recovery attempt: the detected
// tax rate and the deduplicated, ascending amount-candidate set. The
// state is scoped to a single Recover call and never shared across
// documents or repeated attempts, so recovery stays safe to run in
// parallel across documents and is idempotent for the same input.
type recoverState struct {
	rate      decimal.Decimal
	rateFound bool

	candidates []decimal.Decimal
	candidate  map[string]struct{}
}

// Recover is the second, more permissive extraction pass. It re-reads
// the complete line history of a rejected document (order no longer
// matters), builds a fresh accumulator, and tries per-field pattern
// cascades plus a numeric tax/amount solver. It returns ok=false when
// the rebuilt record still fails the acceptance predicate.
func Recover(sourceID string, lines []string) (*models.InvoiceRecord, bool) {
	log := logger.WithComponent("recovery")

	rec := &models.InvoiceRecord{SourceID: sourceID}
	st := &recoverState{candidate: make(map[string]struct{})}

	rec.InvoiceNumber = recoverInvoiceNumber(lines)

	st.findTaxRate(lines, log)
	if st.rateFound {
		rec.TaxRate = st.rate
	}

	st.collectAmounts(lines)
	if subtotal, total, ok := st.solveAmounts(log); ok {
		// The solver sets both amounts or neither; a lone subtotal or
		// total from this mechanism would be unverifiable.
		rec.SubtotalAmount = subtotal
		rec.TotalAmount = total
	}

	rec.IssueDate = recoverDate(lines)
	rec.BuyerName = strings.TrimSpace(findCascade(buyerCascade, lines))
	rec.SellerName = strings.TrimSpace(findCascade(sellerCascade, lines))

	if !rec.Acceptable() {
		log.Warn().
			Str("source", sourceID).
			Bool("has_number", rec.InvoiceNumber != "").
			Bool("has_total", rec.HasTotal()).
			Msg("Recovery exhausted")
		return nil, false
	}

	log.Info().
		Str("source", sourceID).
		Str("invoice_number", rec.InvoiceNumber).
		Str("total", rec.TotalAmount.StringFixed(2)).
		Msg("Recovery succeeded")
	return rec, true
}

// recoverInvoiceNumber runs the invoice-number cascade and enforces the
// minimum plausible length. Short matches are skipped, not accepted.
func recoverInvoiceNumber(lines []string) string {
	for _, pattern := range invoiceNumberCascade {
		for _, line := range lines {
			m := pattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			number := m[0]
			if len(m) > 1 {
				number = m[1]
			}
			if len(number) >= minInvoiceNumberLen {
				return number
			}
		}
	}
	return ""
}

// findTaxRate caches the first percentage in the open interval (0, 100)
// found anywhere in the document.
func (st *recoverState) findTaxRate(lines []string, log zerolog.Logger) {
	for _, line := range lines {
		m := rePercent.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n, err := decimal.NewFromString(m[1])
		if err != nil {
			continue
		}
		if n.IsPositive() && n.LessThan(oneHundred) {
			st.rate = n.Div(oneHundred)
			st.rateFound = true
			log.Debug().Str("rate", st.rate.String()).Msg("Tax rate candidate found")
			return
		}
	}
}

// collectAmounts gathers every numeric substring in the document as an
// amount candidate, keeps values in (0, 1_000_000), deduplicates, and
// sorts ascending. Cached once per recovery attempt.
func (st *recoverState) collectAmounts(lines []string) {
	for _, line := range lines {
		for _, numStr := range reNumber.FindAllString(line, -1) {
			// "123." parses in most OCR output but not in decimal.
			numStr = strings.TrimSuffix(numStr, ".")
			amount, err := decimal.NewFromString(numStr)
			if err != nil {
				continue
			}
			if !models.AmountInRange(amount) {
				continue
			}
			key := amount.String()
			if _, seen := st.candidate[key]; seen {
				continue
			}
			st.candidate[key] = struct{}{}
			st.candidates = append(st.candidates, amount)
		}
	}
	sort.Slice(st.candidates, func(i, j int) bool {
		return st.candidates[i].LessThan(st.candidates[j])
	})
}

// solveAmounts searches the candidate set for a (subtotal, total) pair
// satisfying total == round(subtotal * (1 + rate), 2). Candidates are
// scanned in ascending order and the first hit wins — a deliberate,
// simple tie-break rather than any notion of best match.
func (st *recoverState) solveAmounts(log zerolog.Logger) (subtotal, total decimal.Decimal, ok bool) {
	if !st.rateFound {
		return decimal.Zero, decimal.Zero, false
	}
	factor := one.Add(st.rate)
	for _, candidate := range st.candidates {
		expected := candidate.Mul(factor).Round(2)
		if _, present := st.candidate[expected.String()]; present {
			log.Debug().
				Str("subtotal", candidate.String()).
				Str("total", expected.String()).
				Str("rate", st.rate.String()).
				Msg("Amount pair satisfies tax relation")
			return candidate, expected, true
		}
	}
	return decimal.Zero, decimal.Zero, false
}

// recoverDate runs the date cascade; both patterns capture year, month
// and day, which are validated against the calendar.
func recoverDate(lines []string) string {
	for _, pattern := range dateCascade {
		for _, line := range lines {
			m := pattern.FindStringSubmatch(line)
			if m == nil || len(m) < 4 {
				continue
			}
			if d := canonicalDate(m[1], m[2], m[3]); d != "" {
				return d
			}
		}
	}
	return ""
}
