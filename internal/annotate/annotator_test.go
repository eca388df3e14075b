package annotate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/NaNostyle/pc-component-mixer-ai/internal/llm"
	"github.com/NaNostyle/pc-component-mixer-ai/internal/market"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalyzer struct {
	mu      sync.Mutex
	calls   int
	failFor map[string]bool
}

func (f *fakeAnalyzer) AnalyzeDeal(ctx context.Context, listing market.Listing) (*llm.AnalysisResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.failFor[listing.Name] {
		return nil, errors.New("model refused")
	}
	return &llm.AnalysisResult{
		Analysis: &market.DealAnalysis{IsGoodDeal: true, Confidence: 0.8, Reasoning: "cheap", Recommendation: "buy", DealScore: 8},
		Usage:    llm.Usage{InputTokens: 100, OutputTokens: 50, TotalTokens: 150, CostUSD: 0.001},
	}, nil
}

func makeListings(n int) []market.Listing {
	listings := make([]market.Listing, n)
	for i := range listings {
		listings[i] = market.Listing{
			Source:     market.SourceLeBonCoin,
			Name:       fmt.Sprintf("listing %d", i),
			Price:      decimal.NewFromInt(int64(100 + i)),
			Currency:   "EUR",
			PriceKnown: true,
		}
	}
	return listings
}

func TestAnnotateRespectsBudget(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	listings := makeListings(10)
	budget := NewBudget(3)

	stats := New(analyzer).Annotate(context.Background(), listings, budget)

	assert.Equal(t, 3, stats.Attempted)
	assert.Equal(t, 3, stats.Annotated)
	assert.Equal(t, 3, budget.Consumed())
	assert.Equal(t, 3, analyzer.calls)

	// The first three listings in order got the analyses.
	for i, l := range listings {
		if i < 3 {
			require.NotNil(t, l.Analysis, "listing %d", i)
		} else {
			assert.Nil(t, l.Analysis, "listing %d", i)
		}
	}
}

func TestAnnotateFailureBurnsBudget(t *testing.T) {
	analyzer := &fakeAnalyzer{failFor: map[string]bool{"listing 1": true}}
	listings := makeListings(5)
	budget := NewBudget(5)

	stats := New(analyzer).Annotate(context.Background(), listings, budget)

	assert.Equal(t, 5, stats.Attempted)
	assert.Equal(t, 4, stats.Annotated)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 5, budget.Consumed())
	assert.Nil(t, listings[1].Analysis)
	assert.NotNil(t, listings[0].Analysis)
}

type invalidAnalyzer struct{}

func (invalidAnalyzer) AnalyzeDeal(ctx context.Context, listing market.Listing) (*llm.AnalysisResult, error) {
	return &llm.AnalysisResult{
		Analysis: &market.DealAnalysis{IsGoodDeal: true, Confidence: 0.9, DealScore: 15},
		Usage:    llm.Usage{CostUSD: 0.001},
	}, nil
}

func TestAnnotateRejectsInvalidAnalysis(t *testing.T) {
	listings := makeListings(2)
	budget := NewBudget(2)

	stats := New(invalidAnalyzer{}).Annotate(context.Background(), listings, budget)

	assert.Equal(t, 2, stats.Attempted)
	assert.Zero(t, stats.Annotated)
	assert.Equal(t, 2, stats.Failed)
	// The attempts still burned budget and incurred cost.
	assert.Equal(t, 2, budget.Consumed())
	assert.InDelta(t, 0.002, stats.Usage.CostUSD, 1e-9)
	assert.Nil(t, listings[0].Analysis)
}

func TestAnnotateAccumulatesUsage(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	listings := makeListings(4)

	stats := New(analyzer).Annotate(context.Background(), listings, NewBudget(4))

	assert.Equal(t, int64(400), stats.Usage.InputTokens)
	assert.Equal(t, int64(600), stats.Usage.TotalTokens)
	assert.InDelta(t, 0.004, stats.Usage.CostUSD, 1e-9)
}

func TestAnnotateCancelledContextStopsDispatch(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	listings := makeListings(10)
	budget := NewBudget(10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats := New(analyzer).Annotate(ctx, listings, budget)

	// An aborted run issues no new calls and claims no budget.
	assert.Zero(t, stats.Attempted)
	assert.Zero(t, budget.Consumed())
	assert.Zero(t, analyzer.calls)
	for _, l := range listings {
		assert.Nil(t, l.Analysis)
	}
}

func TestAnnotateEmptySetDoesNothing(t *testing.T) {
	analyzer := &fakeAnalyzer{}

	stats := New(analyzer).Annotate(context.Background(), nil, NewBudget(10))

	assert.Zero(t, stats.Attempted)
	assert.Zero(t, analyzer.calls)
}

func TestBudgetConcurrentConsume(t *testing.T) {
	budget := NewBudget(100)
	var wg sync.WaitGroup
	counter := 0
	var mu sync.Mutex

	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				if budget.TryConsume() {
					mu.Lock()
					counter++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
	assert.Equal(t, 100, budget.Consumed())
	assert.False(t, budget.TryConsume())
}
