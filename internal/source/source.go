// Package source contains one fetch adapter per supported marketplace. Every
// adapter exposes the same capability: given keywords and price bounds, return
// raw listing records in source-native shape. Normalization into the canonical
// schema happens elsewhere.
package source

import (
	"context"

	"github.com/NaNostyle/pc-component-mixer-ai/internal/market"
	"github.com/shopspring/decimal"
)

// Query is the per-source fetch request. Adapters translate it to whatever
// the marketplace API expects; unsupported parts are ignored.
type Query struct {
	Keywords []string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// Adapter is the uniform capability every marketplace integration provides.
// Fetch must not fail for "no results": an empty slice is a valid response.
type Adapter interface {
	Name() market.Source
	Covers(t market.ComponentType) bool
	Fetch(ctx context.Context, q Query) ([]market.RawRecord, error)
}

// DefaultAdapters returns all built-in adapters in a fixed declaration order.
// The order is part of the aggregation contract: dedup keeps the first-seen
// record, so it must be stable across runs.
func DefaultAdapters() []Adapter {
	return []Adapter{
		NewLeBonCoin(LeBonCoinOpts{}),
		NewPCPartPicker(PCPartPickerOpts{}),
		NewVinted(VintedOpts{}),
	}
}

// coverage is a helper for adapters with a closed component set.
type coverage map[market.ComponentType]bool

func coverageOf(types ...market.ComponentType) coverage {
	c := make(coverage, len(types))
	for _, t := range types {
		c[t] = true
	}
	return c
}
