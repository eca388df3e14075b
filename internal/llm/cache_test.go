package llm

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/NaNostyle/pc-component-mixer-ai/internal/market"
	"github.com/NaNostyle/pc-component-mixer-ai/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingAnalyzer struct {
	calls  int
	result *AnalysisResult
	err    error
}

func (c *countingAnalyzer) AnalyzeDeal(ctx context.Context, listing market.Listing) (*AnalysisResult, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.result, nil
}

func testListing(name string) market.Listing {
	return market.Listing{
		Source:     market.SourceLeBonCoin,
		Name:       name,
		Price:      decimal.NewFromInt(280),
		Currency:   "EUR",
		PriceKnown: true,
	}
}

func TestCachedAnalyzerSecondCallHitsCache(t *testing.T) {
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer store.Close()

	inner := &countingAnalyzer{result: &AnalysisResult{
		Analysis: &market.DealAnalysis{IsGoodDeal: true, Confidence: 0.8, Reasoning: "cheap", Recommendation: "buy", DealScore: 8},
		Usage:    Usage{InputTokens: 100, CostUSD: 0.001},
	}}
	cached := NewCachedAnalyzer(inner, store)

	first, err := cached.AnalyzeDeal(context.Background(), testListing("RTX 3070"))
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 0.001, first.Usage.CostUSD)

	second, err := cached.AnalyzeDeal(context.Background(), testListing("RTX 3070"))
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, first.Analysis, second.Analysis)
	// Cached results cost nothing.
	assert.Zero(t, second.Usage.CostUSD)
	assert.Zero(t, second.Usage.TotalTokens)
}

func TestCachedAnalyzerDistinctListingsDistinctEntries(t *testing.T) {
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer store.Close()

	inner := &countingAnalyzer{result: &AnalysisResult{
		Analysis: &market.DealAnalysis{IsGoodDeal: false, Confidence: 0.5, Reasoning: "fair", Recommendation: "skip", DealScore: 5},
	}}
	cached := NewCachedAnalyzer(inner, store)

	_, err = cached.AnalyzeDeal(context.Background(), testListing("RTX 3070"))
	require.NoError(t, err)
	_, err = cached.AnalyzeDeal(context.Background(), testListing("RTX 3060"))
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedAnalyzerPropagatesError(t *testing.T) {
	inner := &countingAnalyzer{err: errors.New("rate limited")}
	cached := NewCachedAnalyzer(inner, nil)

	_, err := cached.AnalyzeDeal(context.Background(), testListing("RTX 3070"))
	assert.Error(t, err)
}

func TestCachedAnalyzerNilStorePassesThrough(t *testing.T) {
	inner := &countingAnalyzer{result: &AnalysisResult{
		Analysis: &market.DealAnalysis{IsGoodDeal: true, Confidence: 0.7, Reasoning: "ok", Recommendation: "buy", DealScore: 7},
	}}
	cached := NewCachedAnalyzer(inner, nil)

	_, err := cached.AnalyzeDeal(context.Background(), testListing("RTX 3070"))
	require.NoError(t, err)
	_, err = cached.AnalyzeDeal(context.Background(), testListing("RTX 3070"))
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}
