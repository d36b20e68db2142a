// Package format implements the locale-aware textual conventions of
// Finvoice documents: amounts with a comma decimal separator and
// unhyphenated CCYYMMDD dates.
package format

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rezonia/finvoice-processor/internal/model"
)

// ParseAmount parses a Finnish-locale amount string such as "1 234,56"
// into a decimal. Whitespace is stripped, the comma becomes the decimal
// point, and any remaining non-numeric characters are dropped.
//
// A value containing both '.' and ',' is rejected: the decimal separator
// cannot be disambiguated from a thousands separator. An empty input
// yields zero, not an error; callers must treat zero as "absent or
// genuinely zero".
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}

	if strings.Contains(s, ".") && strings.Contains(s, ",") {
		return decimal.Zero, model.NewAmbiguousNumberError(s)
	}

	s = strings.ReplaceAll(s, ",", ".")

	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	s = b.String()
	if s == "" {
		return decimal.Zero, nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, model.NewParseError("amount", "invalid number", err)
	}
	return d, nil
}

// FormatAmount is the inverse of ParseAmount: fixed-point notation with
// a comma as the decimal separator and no thousands separators.
func FormatAmount(d decimal.Decimal, places int32) string {
	return strings.ReplaceAll(d.StringFixed(places), ".", ",")
}
