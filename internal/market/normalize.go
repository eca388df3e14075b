package market

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Normalize maps a source-native record into the canonical Listing schema.
// It never fails outright: a malformed price yields a Listing with price 0 and
// PriceKnown=false plus a non-nil diagnostic error, so the record still
// participates in dedup and display but is excluded from price filtering.
func Normalize(rec RawRecord, src Source, fetchedAt time.Time) (Listing, error) {
	l := Listing{
		Source:    src,
		Name:      strings.TrimSpace(rec.Title),
		Currency:  "EUR",
		RawText:   buildRawText(rec),
		URL:       rec.URL,
		FetchedAt: fetchedAt,
	}

	var diag error
	price, currency, err := ParsePrice(rec.PriceText)
	if err != nil {
		diag = fmt.Errorf("%s: price %q: %w", src, rec.PriceText, err)
		l.Price = decimal.Zero
	} else {
		l.Price = price
		l.Currency = currency
		l.PriceKnown = true
	}

	// Prefer the source's own category label, fall back to text inference.
	if t, ok := ParseComponentType(rec.Category); ok {
		l.ComponentType = t
	} else {
		l.ComponentType = InferComponentType(l.Name + " " + l.RawText)
	}

	return l, diag
}

// buildRawText preserves the original scrape snippet for audit and as AI
// context, joining whatever fields the source provided.
func buildRawText(rec RawRecord) string {
	parts := make([]string, 0, 4)
	for _, s := range []string{rec.Title, rec.Description, rec.Location, rec.PriceText} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " | ")
}
