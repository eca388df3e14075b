// Package llm provides AI-backed deal analysis and query generation via
// Google's Gemini API.
package llm

import (
	"context"

	"github.com/NaNostyle/pc-component-mixer-ai/internal/market"
)

// Usage tracks token usage and cost for an LLM call.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// Add accumulates another call's usage into this one.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
	u.CostUSD += other.CostUSD
}

// AnalysisResult is a deal analysis together with the usage it cost.
type AnalysisResult struct {
	Analysis *market.DealAnalysis
	Usage    Usage
}

// DealAnalyzer judges whether a single listing is a good deal.
type DealAnalyzer interface {
	AnalyzeDeal(ctx context.Context, listing market.Listing) (*AnalysisResult, error)
}

// QueryDraft is the raw, unvalidated query the model proposes from a free-form
// buying intent. Unknown component names and inconsistent bounds are possible
// here; validation happens in the planner.
type QueryDraft struct {
	Keywords   []string    `json:"keywords"`
	Components []string    `json:"components"`
	PriceRange *PriceRange `json:"price_range"`
	Reasoning  string      `json:"reasoning"`
}

// PriceRange is the model's proposed price bounds in euros.
type PriceRange struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// QueryResult is a query draft together with the usage it cost.
type QueryResult struct {
	Draft *QueryDraft
	Usage Usage
}

// QueryGenerator turns a free-form buying intent into a query draft.
type QueryGenerator interface {
	GenerateQuery(ctx context.Context, intent string) (*QueryResult, error)
}
