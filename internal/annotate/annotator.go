// Package annotate runs AI deal analysis over a listing set under a hard
// attempt budget.
package annotate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NaNostyle/pc-component-mixer-ai/internal/llm"
	"github.com/NaNostyle/pc-component-mixer-ai/internal/market"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxAnalyze caps how many listings one run may send to the model.
	DefaultMaxAnalyze = 50

	// DefaultWorkers bounds concurrent analysis calls.
	DefaultWorkers = 4

	// DefaultAnalyzeTimeout bounds a single analysis call.
	DefaultAnalyzeTimeout = 30 * time.Second
)

// Budget is a concurrency-safe attempt counter. Every dispatched analysis
// consumes one unit whether it succeeds or fails, so a run can never exceed
// its cap by retrying.
type Budget struct {
	limit int64
	used  atomic.Int64
}

// NewBudget creates a budget of n attempts.
func NewBudget(n int) *Budget {
	return &Budget{limit: int64(n)}
}

// TryConsume claims one attempt. It reports false once the budget is spent.
func (b *Budget) TryConsume() bool {
	for {
		used := b.used.Load()
		if used >= b.limit {
			return false
		}
		if b.used.CompareAndSwap(used, used+1) {
			return true
		}
	}
}

// Consumed returns how many attempts have been claimed.
func (b *Budget) Consumed() int {
	return int(b.used.Load())
}

// Stats summarizes one annotation pass.
type Stats struct {
	Attempted int
	Annotated int
	Failed    int
	Usage     llm.Usage
}

// Annotator attaches deal analyses to listings.
type Annotator struct {
	analyzer llm.DealAnalyzer
	workers  int
	timeout  time.Duration
}

// New creates an Annotator over the given analyzer.
func New(analyzer llm.DealAnalyzer) *Annotator {
	return &Annotator{
		analyzer: analyzer,
		workers:  DefaultWorkers,
		timeout:  DefaultAnalyzeTimeout,
	}
}

// SetWorkers overrides the analysis concurrency.
func (a *Annotator) SetWorkers(n int) {
	if n > 0 {
		a.workers = n
	}
}

// SetAnalyzeTimeout overrides the per-listing analysis timeout.
func (a *Annotator) SetAnalyzeTimeout(d time.Duration) {
	a.timeout = d
}

// Annotate analyzes listings in slice order until the budget runs out,
// attaching each successful analysis in place. A failed or invalid analysis
// leaves its listing unannotated and still burns budget. Failures never stop
// the pass.
func (a *Annotator) Annotate(ctx context.Context, listings []market.Listing, budget *Budget) Stats {
	var (
		mu    sync.Mutex
		stats Stats
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for i := range listings {
		// A cancelled run stops issuing new calls; budget already claimed by
		// in-flight calls stays consumed.
		if gctx.Err() != nil {
			break
		}
		// Claim budget at dispatch, in listing order, so exactly the first
		// affordable prefix of the ordered set gets analyzed.
		if !budget.TryConsume() {
			break
		}
		mu.Lock()
		stats.Attempted++
		mu.Unlock()

		g.Go(func() error {
			actx, cancel := context.WithTimeout(gctx, a.timeout)
			defer cancel()

			result, err := a.analyzer.AnalyzeDeal(actx, listings[i])
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Failed++
				log.Warn().Err(err).Str("listing", listings[i].Name).Msg("deal analysis failed")
				return nil
			}
			// Reject, never clamp, an out-of-range analysis.
			if result.Analysis == nil || result.Analysis.Validate() != nil {
				stats.Failed++
				stats.Usage.Add(result.Usage)
				log.Warn().Str("listing", listings[i].Name).Msg("deal analysis invalid, discarded")
				return nil
			}
			listings[i].Analysis = result.Analysis
			stats.Annotated++
			stats.Usage.Add(result.Usage)
			return nil
		})
	}
	_ = g.Wait()

	log.Info().
		Int("attempted", stats.Attempted).
		Int("annotated", stats.Annotated).
		Int("failed", stats.Failed).
		Float64("costUSD", stats.Usage.CostUSD).
		Msg("annotation pass completed")
	return stats
}
