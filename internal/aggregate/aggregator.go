// Package aggregate merges normalized listings from all active sources into
// one deduplicated, filtered, deterministically ordered result set.
package aggregate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/NaNostyle/pc-component-mixer-ai/internal/market"
	"github.com/NaNostyle/pc-component-mixer-ai/internal/source"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultFetchTimeout bounds a single source fetch. A slow marketplace must
// not stall the whole run.
const DefaultFetchTimeout = 30 * time.Second

// SourceFailure records one adapter's failed fetch.
type SourceFailure struct {
	Source market.Source
	Err    error
}

// Diagnostics collects the non-fatal problems of one aggregation run. They
// are reported alongside results, never raised.
type Diagnostics struct {
	SourceFailures     []SourceFailure
	PriceParseFailures int
	DroppedRecords     int
}

// Result is the outcome of one aggregation run.
type Result struct {
	Listings    []market.Listing
	Diagnostics Diagnostics
}

// Aggregator owns the working result set for the duration of one invocation.
type Aggregator struct {
	adapters     []source.Adapter
	fetchTimeout time.Duration
}

// New creates an Aggregator over the given adapters. Adapter order is
// significant: it decides which record wins dedup collisions.
func New(adapters []source.Adapter) *Aggregator {
	return &Aggregator{adapters: adapters, fetchTimeout: DefaultFetchTimeout}
}

// SetFetchTimeout overrides the per-source fetch timeout.
func (a *Aggregator) SetFetchTimeout(d time.Duration) {
	a.fetchTimeout = d
}

// Aggregate fetches from every active source concurrently, normalizes,
// deduplicates, filters and orders the combined set. One source failing
// contributes zero listings and a diagnostic; it never aborts the others.
// Given fixed source responses the output is a deterministic function of the
// spec.
func (a *Aggregator) Aggregate(ctx context.Context, spec market.QuerySpec) Result {
	active := a.activeAdapters(spec)
	fetchedAt := time.Now().UTC()

	q := source.Query{
		Keywords: spec.Keywords,
		MinPrice: spec.MinPrice,
		MaxPrice: spec.MaxPrice,
	}

	// Fetch concurrently, collecting per-adapter results into fixed slots so
	// downstream processing keeps the stable declaration order. Fetch
	// goroutines never return an error: a failure lands in its slot as a
	// diagnostic so one bad source cannot cancel the siblings.
	raws := make([][]market.RawRecord, len(active))
	fetchErrs := make([]error, len(active))

	g, gctx := errgroup.WithContext(ctx)
	for i, adapter := range active {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, a.fetchTimeout)
			defer cancel()

			records, err := adapter.Fetch(fctx, q)
			if err != nil {
				fetchErrs[i] = err
				log.Warn().Err(err).Str("source", string(adapter.Name())).Msg("source fetch failed")
				return nil
			}
			raws[i] = records
			log.Debug().Str("source", string(adapter.Name())).Int("records", len(records)).Msg("source fetch completed")
			return nil
		})
	}
	_ = g.Wait()

	var diags Diagnostics
	for i, err := range fetchErrs {
		if err != nil {
			diags.SourceFailures = append(diags.SourceFailures, SourceFailure{Source: active[i].Name(), Err: err})
		}
	}

	// Normalize and deduplicate in declaration order; the first-seen record
	// wins a collision.
	seen := make(map[string]bool)
	var listings []market.Listing
	for i, records := range raws {
		src := active[i].Name()
		for _, rec := range records {
			listing, diag := market.Normalize(rec, src, fetchedAt)
			if diag != nil {
				diags.PriceParseFailures++
				log.Debug().Err(diag).Msg("price not parseable, keeping listing without price")
			}
			if err := listing.Validate(); err != nil {
				diags.DroppedRecords++
				log.Debug().Err(err).Str("source", string(src)).Msg("dropping invalid record")
				continue
			}
			key := listing.IdentityKey()
			if seen[key] {
				continue
			}
			seen[key] = true
			listings = append(listings, listing)
		}
	}

	filtered := listings[:0]
	for _, l := range listings {
		if passesFilters(l, spec) {
			filtered = append(filtered, l)
		}
	}
	listings = filtered

	sortListings(listings)

	log.Info().
		Int("listings", len(listings)).
		Int("sources", len(active)).
		Int("sourceFailures", len(diags.SourceFailures)).
		Int("priceParseFailures", diags.PriceParseFailures).
		Msg("aggregation completed")

	return Result{Listings: listings, Diagnostics: diags}
}

// activeAdapters returns the adapters whose coverage intersects the spec's
// component filter. An empty filter activates everything.
func (a *Aggregator) activeAdapters(spec market.QuerySpec) []source.Adapter {
	if len(spec.Components) == 0 {
		return a.adapters
	}
	var active []source.Adapter
	for _, adapter := range a.adapters {
		for _, c := range spec.Components {
			if adapter.Covers(c) {
				active = append(active, adapter)
				break
			}
		}
	}
	return active
}

func passesFilters(l market.Listing, spec market.QuerySpec) bool {
	// Price bounds apply only when the price actually parsed.
	if l.PriceKnown {
		if spec.MinPrice != nil && l.Price.LessThan(*spec.MinPrice) {
			return false
		}
		if spec.MaxPrice != nil && l.Price.GreaterThan(*spec.MaxPrice) {
			return false
		}
	}
	if !spec.WantsComponent(l.ComponentType) {
		return false
	}
	return matchesKeywords(l, spec.Keywords)
}

// matchesKeywords reports whether any keyword occurs (case-insensitive) in
// the listing name or raw text. No keywords matches everything.
func matchesKeywords(l market.Listing, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	name := strings.ToLower(l.Name)
	raw := strings.ToLower(l.RawText)
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(name, kw) || strings.Contains(raw, kw) {
			return true
		}
	}
	return false
}

// sortListings orders by ascending price. Listings whose price failed to
// parse sort last regardless of their literal zero price, so they never look
// like the cheapest offer.
func sortListings(listings []market.Listing) {
	sort.SliceStable(listings, func(i, j int) bool {
		a, b := listings[i], listings[j]
		if a.PriceKnown != b.PriceKnown {
			return a.PriceKnown
		}
		if !a.PriceKnown {
			return false
		}
		return a.Price.LessThan(b.Price)
	})
}

// DescribeFailures renders the source failures for user-facing diagnostics.
func (d Diagnostics) DescribeFailures() []string {
	out := make([]string, 0, len(d.SourceFailures))
	for _, f := range d.SourceFailures {
		out = append(out, fmt.Sprintf("%s: %v", f.Source, f.Err))
	}
	return out
}
