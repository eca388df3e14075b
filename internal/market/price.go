package market

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var priceRe = regexp.MustCompile(`-?\d[\d\s  .,]*`)

// ParsePrice extracts a decimal amount and currency from marketplace price
// text. It handles both French formats ("1 234,56 €", "120€") and dotted
// formats ("€1,234.56", "$99.99"). The currency defaults to EUR when no
// symbol is present, since all supported marketplaces list in euros.
func ParsePrice(text string) (decimal.Decimal, string, error) {
	currency := "EUR"
	switch {
	case strings.ContainsAny(text, "$"):
		currency = "USD"
	case strings.ContainsAny(text, "£"):
		currency = "GBP"
	}

	m := priceRe.FindString(text)
	if m == "" {
		return decimal.Zero, currency, fmt.Errorf("no numeric amount in %q", text)
	}

	// Strip grouping spaces (incl. NBSP and narrow NBSP used by leboncoin)
	m = strings.Map(func(r rune) rune {
		switch r {
		case ' ', ' ', ' ':
			return -1
		}
		return r
	}, m)
	m = strings.Trim(m, ".,")

	// Decide which of '.' and ',' is the decimal separator: the last one wins,
	// the other is a thousands separator.
	lastDot := strings.LastIndex(m, ".")
	lastComma := strings.LastIndex(m, ",")
	switch {
	case lastDot == -1 && lastComma == -1:
		// integer amount
	case lastComma > lastDot:
		m = strings.ReplaceAll(m, ".", "")
		m = strings.Replace(m, ",", ".", 1)
		// multiple commas means they were grouping, not decimals
		if strings.Contains(m, ",") {
			m = strings.ReplaceAll(m, ",", "")
			m = strings.ReplaceAll(m, ".", "")
		}
	default:
		m = strings.ReplaceAll(m, ",", "")
		if strings.Count(m, ".") > 1 {
			m = strings.ReplaceAll(m, ".", "")
		}
	}

	d, err := decimal.NewFromString(m)
	if err != nil {
		return decimal.Zero, currency, fmt.Errorf("unparseable amount %q: %w", m, err)
	}
	if d.IsNegative() {
		return decimal.Zero, currency, fmt.Errorf("negative amount %q", m)
	}
	return d, currency, nil
}
