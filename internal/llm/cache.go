package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/NaNostyle/pc-component-mixer-ai/internal/market"
	"github.com/NaNostyle/pc-component-mixer-ai/internal/storage"
	"github.com/rs/zerolog/log"
)

// CachedAnalyzer wraps a DealAnalyzer with SQLite caching keyed by listing
// identity. A cached hit costs nothing.
type CachedAnalyzer struct {
	inner DealAnalyzer
	store storage.Store
}

// NewCachedAnalyzer creates a cached analyzer.
func NewCachedAnalyzer(inner DealAnalyzer, store storage.Store) *CachedAnalyzer {
	return &CachedAnalyzer{inner: inner, store: store}
}

// hashListing derives the cache key from the listing identity.
func hashListing(l market.Listing) string {
	sum := sha256.Sum256([]byte(l.IdentityKey()))
	return hex.EncodeToString(sum[:])
}

// AnalyzeDeal implements DealAnalyzer with caching. Cache errors degrade to a
// direct call, never to a failure.
func (c *CachedAnalyzer) AnalyzeDeal(ctx context.Context, listing market.Listing) (*AnalysisResult, error) {
	hash := hashListing(listing)

	if c.store != nil {
		cached, err := c.store.GetAnalysis(hash)
		if err != nil {
			log.Warn().Err(err).Msg("failed to check analysis cache")
		} else if cached != nil {
			log.Debug().Str("hash", hash[:16]).Str("listing", listing.Name).Msg("analysis cache hit")
			return &AnalysisResult{Analysis: cached, Usage: Usage{}}, nil
		}
	}

	result, err := c.inner.AnalyzeDeal(ctx, listing)
	if err != nil {
		return nil, err
	}

	if c.store != nil && result.Analysis != nil {
		if err := c.store.SetAnalysis(hash, result.Analysis); err != nil {
			log.Warn().Err(err).Msg("failed to cache analysis")
		} else {
			log.Debug().Str("hash", hash[:16]).Msg("cached analysis")
		}
	}

	return result, nil
}
