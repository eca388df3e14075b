package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/NaNostyle/pc-component-mixer-ai/internal/market"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const (
	geminiModel     = "gemini-3-flash-preview"
	geminiLiteModel = "gemini-2.5-flash-lite"
)

// Gemini pricing (per million tokens)
const (
	geminiInputPricePerMillion      = 0.50
	geminiOutputPricePerMillion     = 3.00
	geminiLiteInputPricePerMillion  = 0.075
	geminiLiteOutputPricePerMillion = 0.30
)

const dealAnalysisPrompt = `You are an expert in the French secondhand PC hardware market. Analyze this listing and decide whether it is a good deal.

Listing:
- Name: %s
- Price: %s
- Source: %s
- Component type: %s
- Details: %s

Consider current secondhand market prices in France, the component's age and generation, and any condition hints in the details.

Respond in JSON format with these fields:
- is_good_deal: boolean, true if the asking price is clearly below typical market value
- confidence: number between 0.0 and 1.0, how certain you are
- reasoning: 1-2 sentences explaining the judgement
- recommendation: short actionable advice ("buy", "negotiate", "skip", ...)
- market_value_estimate: your estimate of the typical secondhand price, as text (e.g. "450-500€")
- deal_score: integer from 1 (terrible) to 10 (exceptional)

Example response:
{"is_good_deal": true, "confidence": 0.85, "reasoning": "RTX 3070 cards typically sell for 350-400€ secondhand; 280€ is well below that.", "recommendation": "buy", "market_value_estimate": "350-400€", "deal_score": 8}

Respond ONLY with the JSON object, no markdown or other text.`

const queryGenerationPrompt = `You are helping a buyer search French secondhand marketplaces for PC components. Turn their buying intent into a structured search query.

Buying intent: "%s"

Known component types (use ONLY these identifiers):
%s

Respond in JSON format with these fields:
- keywords: 1-5 search terms that would match relevant listings (product names, model numbers; French terms welcome)
- components: component type identifiers from the list above that the buyer wants (empty list if the intent is not component-specific)
- price_range: object with "min" and "max" in euros, either may be null if the intent does not imply a bound
- reasoning: one sentence explaining your choices

Example response:
{"keywords": ["rtx 3070", "rtx 3060 ti"], "components": ["graphic_card"], "price_range": {"min": null, "max": 400}, "reasoning": "Buyer wants a mid-range GPU under 400 euros."}

Respond ONLY with the JSON object, no markdown or other text.`

// GeminiClient implements DealAnalyzer and QueryGenerator against the Gemini
// API.
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient creates a Gemini-backed client. It uses the GEMINI_API_KEY
// environment variable for authentication.
func NewGeminiClient(ctx context.Context) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

// AnalyzeDeal asks the model to judge one listing. An analysis that fails
// validation is rejected, never clamped into range.
func (g *GeminiClient) AnalyzeDeal(ctx context.Context, listing market.Listing) (*AnalysisResult, error) {
	priceText := "unknown"
	if listing.PriceKnown {
		priceText = listing.Price.String() + " " + listing.Currency
	}
	componentType := string(listing.ComponentType)
	if componentType == "" {
		componentType = "unknown"
	}

	prompt := fmt.Sprintf(dealAnalysisPrompt,
		listing.Name, priceText, listing.Source, componentType, listing.RawText)

	result, err := g.client.Models.GenerateContent(ctx, geminiModel, []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini deal analysis failed: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from gemini")
	}

	analysis, err := parseDealAnalysis(result.Text())
	if err != nil {
		return nil, err
	}

	usage := Usage{}
	if result.UsageMetadata != nil {
		usage.InputTokens = int64(result.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int64(result.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int64(result.UsageMetadata.TotalTokenCount)
		usage.CostUSD = calculateGeminiCost(usage.InputTokens, usage.OutputTokens, geminiInputPricePerMillion, geminiOutputPricePerMillion)
	}

	log.Info().
		Str("model", geminiModel).
		Str("listing", listing.Name).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Msg("deal analysis llm call")

	return &AnalysisResult{Analysis: analysis, Usage: usage}, nil
}

// GenerateQuery asks the lite model to turn a buying intent into a query
// draft. The draft is returned unvalidated.
func (g *GeminiClient) GenerateQuery(ctx context.Context, intent string) (*QueryResult, error) {
	var vocab []string
	for _, t := range market.AllComponentTypes() {
		vocab = append(vocab, "- "+string(t))
	}
	prompt := fmt.Sprintf(queryGenerationPrompt, intent, strings.Join(vocab, "\n"))

	result, err := g.client.Models.GenerateContent(ctx, geminiLiteModel, []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini query generation failed: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from gemini")
	}

	draft, err := parseQueryDraft(result.Text())
	if err != nil {
		return nil, err
	}

	usage := Usage{}
	if result.UsageMetadata != nil {
		usage.InputTokens = int64(result.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int64(result.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int64(result.UsageMetadata.TotalTokenCount)
		usage.CostUSD = calculateGeminiCost(usage.InputTokens, usage.OutputTokens, geminiLiteInputPricePerMillion, geminiLiteOutputPricePerMillion)
	}

	log.Info().
		Str("model", geminiLiteModel).
		Str("intent", intent).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Msg("query generation llm call")

	return &QueryResult{Draft: draft, Usage: usage}, nil
}

func calculateGeminiCost(inputTokens, outputTokens int64, inputPrice, outputPrice float64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * inputPrice
	outputCost := float64(outputTokens) / 1_000_000 * outputPrice
	return inputCost + outputCost
}

// extractJSONObject pulls the first {...} span out of a possibly chatty
// response (handles markdown blocks and surrounding prose).
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response: %s", text)
	}
	return text[start : end+1], nil
}

func parseDealAnalysis(text string) (*market.DealAnalysis, error) {
	payload, err := extractJSONObject(text)
	if err != nil {
		return nil, err
	}

	// Pointer fields distinguish a missing field from a zero value.
	var raw struct {
		IsGoodDeal          *bool    `json:"is_good_deal"`
		Confidence          *float64 `json:"confidence"`
		Reasoning           string   `json:"reasoning"`
		Recommendation      string   `json:"recommendation"`
		MarketValueEstimate string   `json:"market_value_estimate"`
		DealScore           *int     `json:"deal_score"`
	}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse analysis JSON: %w (response: %s)", err, payload)
	}
	if raw.IsGoodDeal == nil || raw.Confidence == nil || raw.DealScore == nil {
		return nil, fmt.Errorf("analysis response missing required fields: %s", payload)
	}

	analysis := &market.DealAnalysis{
		IsGoodDeal:          *raw.IsGoodDeal,
		Confidence:          *raw.Confidence,
		Reasoning:           raw.Reasoning,
		Recommendation:      raw.Recommendation,
		MarketValueEstimate: raw.MarketValueEstimate,
		DealScore:           *raw.DealScore,
	}
	if err := analysis.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis: %w (response: %s)", err, payload)
	}
	return analysis, nil
}

func parseQueryDraft(text string) (*QueryDraft, error) {
	payload, err := extractJSONObject(text)
	if err != nil {
		return nil, err
	}

	var draft QueryDraft
	if err := json.Unmarshal([]byte(payload), &draft); err != nil {
		return nil, fmt.Errorf("failed to parse query JSON: %w (response: %s)", err, payload)
	}
	return &draft, nil
}
