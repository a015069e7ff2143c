package extract

import (
	"sort"

	"fapiao/pkg/models"
)

// Dedupe groups accepted records by invoice number. For each group the
// record with the naturally smallest source ID is kept as the canonical
// unique record; groups with more than one member are additionally
// reported in full so duplicate scans can be audited.
func Dedupe(accepted []models.InvoiceRecord) (unique []models.InvoiceRecord, duplicates []models.DuplicateGroup) {
	groups := make(map[string][]models.InvoiceRecord)
	var order []string
	for _, rec := range accepted {
		if _, seen := groups[rec.InvoiceNumber]; !seen {
			order = append(order, rec.InvoiceNumber)
		}
		groups[rec.InvoiceNumber] = append(groups[rec.InvoiceNumber], rec)
	}

	for _, number := range order {
		members := groups[number]
		sort.SliceStable(members, func(i, j int) bool {
			return NaturalLess(members[i].SourceID, members[j].SourceID)
		})
		unique = append(unique, members[0])
		if len(members) > 1 {
			duplicates = append(duplicates, models.DuplicateGroup{
				InvoiceNumber: number,
				Records:       members,
			})
		}
	}
	return unique, duplicates
}

// SortNatural sorts source IDs in place in natural order.
func SortNatural(sourceIDs []string) {
	sort.SliceStable(sourceIDs, func(i, j int) bool {
		return NaturalLess(sourceIDs[i], sourceIDs[j])
	})
}

// NaturalLess compares two strings in natural sort order: runs of
// digits compare numerically ("inv2.pdf" < "inv10.pdf"), everything
// else compares bytewise.
func NaturalLess(a, b string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if isDigit(a[i]) && isDigit(b[j]) {
			ia, ib := i, j
			for i < len(a) && isDigit(a[i]) {
				i++
			}
			for j < len(b) && isDigit(b[j]) {
				j++
			}
			na := trimLeadingZeros(a[ia:i])
			nb := trimLeadingZeros(b[ib:j])
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			if na != nb {
				return na < nb
			}
			continue
		}
		if a[i] != b[j] {
			return a[i] < b[j]
		}
		i++
		j++
	}
	return len(a)-i < len(b)-j
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func trimLeadingZeros(s string) string {
	for len(s) > 1 && s[0] == '0' {
		s = s[1:]
	}
	return s
}
