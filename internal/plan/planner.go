// Package plan turns a free-form buying intent into a validated query spec,
// with a deterministic keyword fallback when the model fails.
package plan

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/NaNostyle/pc-component-mixer-ai/internal/llm"
	"github.com/NaNostyle/pc-component-mixer-ai/internal/market"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// DefaultPlanTimeout bounds the query generation call.
const DefaultPlanTimeout = 20 * time.Second

// Plan is the outcome of query planning. Fallback reports that the model's
// draft was unusable and the spec was derived from the intent text alone.
type Plan struct {
	Spec      market.QuerySpec
	Reasoning string
	Fallback  bool
	Usage     llm.Usage
}

// Planner validates model-proposed queries into specs the aggregator accepts.
type Planner struct {
	generator llm.QueryGenerator
	timeout   time.Duration
}

// NewPlanner creates a planner over the given query generator.
func NewPlanner(generator llm.QueryGenerator) *Planner {
	return &Planner{generator: generator, timeout: DefaultPlanTimeout}
}

// SetTimeout overrides the planning call timeout.
func (p *Planner) SetTimeout(d time.Duration) {
	p.timeout = d
}

// Plan asks the model for a query draft and validates it. Any failure, from
// the API call to an unknown component identifier or inconsistent price
// bounds, degrades to the keyword fallback instead of erroring out.
func (p *Planner) Plan(ctx context.Context, intent string) Plan {
	pctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result, err := p.generator.GenerateQuery(pctx, intent)
	if err != nil {
		log.Warn().Err(err).Msg("query generation failed, using keyword fallback")
		return p.fallback(intent, llm.Usage{})
	}

	spec, err := validateDraft(result.Draft)
	if err != nil {
		log.Warn().Err(err).Msg("query draft invalid, using keyword fallback")
		return p.fallback(intent, result.Usage)
	}

	log.Info().
		Strs("keywords", spec.Keywords).
		Str("reasoning", result.Draft.Reasoning).
		Msg("query planned")
	return Plan{Spec: spec, Reasoning: result.Draft.Reasoning, Usage: result.Usage}
}

// validateDraft converts a raw draft into a query spec, rejecting rather than
// repairing anything out of vocabulary or out of order.
func validateDraft(draft *llm.QueryDraft) (market.QuerySpec, error) {
	var spec market.QuerySpec

	for _, kw := range draft.Keywords {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			spec.Keywords = append(spec.Keywords, kw)
		}
	}
	// Keywords are required by policy, not by the QuerySpec invariants: the
	// marketplace adapters search by text, so a keyword-less spec would fetch
	// nothing useful. A components-only draft falls back instead.
	if len(spec.Keywords) == 0 {
		return market.QuerySpec{}, fmt.Errorf("draft has no usable keywords")
	}

	for _, name := range draft.Components {
		t, ok := market.ParseComponentType(name)
		if !ok {
			return market.QuerySpec{}, fmt.Errorf("unknown component %q in draft", name)
		}
		spec.Components = append(spec.Components, t)
	}

	if draft.PriceRange != nil {
		if draft.PriceRange.Min != nil {
			d := decimal.NewFromFloat(*draft.PriceRange.Min)
			spec.MinPrice = &d
		}
		if draft.PriceRange.Max != nil {
			d := decimal.NewFromFloat(*draft.PriceRange.Max)
			spec.MaxPrice = &d
		}
	}

	if err := spec.Validate(); err != nil {
		return market.QuerySpec{}, err
	}
	return spec, nil
}

// fallback derives keywords from the intent text itself: lowercase tokens
// minus filler words. No component or price filter is applied, so the run
// casts a wide net.
func (p *Planner) fallback(intent string, usage llm.Usage) Plan {
	keywords := tokenizeIntent(intent)
	if len(keywords) == 0 {
		keywords = []string{strings.TrimSpace(strings.ToLower(intent))}
	}
	return Plan{
		Spec:      market.QuerySpec{Keywords: keywords},
		Reasoning: "keyword fallback from intent text",
		Fallback:  true,
		Usage:     usage,
	}
}

// stopwords covers English and French filler common in buying intents.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "the": true, "for": true, "with": true,
	"under": true, "over": true, "around": true, "about": true, "cheap": true,
	"good": true, "best": true, "want": true, "need": true, "looking": true,
	"buy": true, "i": true, "my": true, "to": true, "of": true, "in": true,
	"or": true, "euro": true, "euros": true,
	"un": true, "une": true, "le": true, "la": true, "les": true, "des": true,
	"de": true, "du": true, "et": true, "ou": true, "pour": true, "avec": true,
	"sous": true, "moins": true, "cher": true, "pas": true, "je": true,
	"cherche": true, "veux": true, "bon": true, "bonne": true,
}

func tokenizeIntent(intent string) []string {
	fields := strings.FieldsFunc(strings.ToLower(intent), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var keywords []string
	for _, f := range fields {
		if len(f) < 2 || stopwords[f] {
			continue
		}
		keywords = append(keywords, f)
	}
	return keywords
}
