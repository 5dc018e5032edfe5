package normalize

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Amount strips currency symbols, grouping commas and whitespace from raw and
// parses what is left. Empty, unparseable and negative input all yield zero,
// which downstream code treats as "no amount in this column".
func Amount(raw string) decimal.Decimal {
	clean := strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) || unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, raw)
	if clean == "" {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(clean)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}
