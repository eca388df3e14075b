package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/NaNostyle/pc-component-mixer-ai/internal/market"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	vintedBaseURL = "https://www.vinted.fr"

	vintedPerPage = 50
)

// VintedOpts configures the Vinted adapter.
type VintedOpts struct {
	BaseURL string // overridable for tests
}

// Vinted fetches listings from the vinted.fr catalog API. Vinted's electronics
// section only carries a subset of component types (no cases, coolers or
// motherboards to speak of), which Covers reflects.
type Vinted struct {
	httpClient *resty.Client
	covered    coverage
}

func NewVinted(opts VintedOpts) *Vinted {
	baseURL := vintedBaseURL
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeaders(map[string]string{
			"Accept":     "application/json",
			"User-Agent": "vinted-ios Vinted/24.10.0",
		})
	return &Vinted{
		httpClient: client,
		covered: coverageOf(
			market.ComponentCPU,
			market.ComponentGraphicCard,
			market.ComponentMemory,
			market.ComponentHardDrive,
		),
	}
}

func (v *Vinted) Name() market.Source { return market.SourceVinted }

func (v *Vinted) Covers(t market.ComponentType) bool { return v.covered[t] }

type vintedCatalogResponse struct {
	Items []vintedItem `json:"items"`
}

type vintedItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Price       struct {
		Amount       string `json:"amount"`
		CurrencyCode string `json:"currency_code"`
	} `json:"price"`
	City string `json:"city"`
}

func (v *Vinted) Fetch(ctx context.Context, q Query) ([]market.RawRecord, error) {
	req := v.httpClient.NewRequest().
		SetContext(ctx).
		SetQueryParam("search_text", strings.Join(q.Keywords, " ")).
		SetQueryParam("per_page", fmt.Sprintf("%d", vintedPerPage)).
		SetQueryParam("order", "newest_first")
	if q.MinPrice != nil {
		req.SetQueryParam("price_from", q.MinPrice.String())
	}
	if q.MaxPrice != nil {
		req.SetQueryParam("price_to", q.MaxPrice.String())
	}

	result := &vintedCatalogResponse{}
	res, err := req.SetResult(result).Get("/api/v2/catalog/items")
	if err != nil {
		return nil, fmt.Errorf("vinted catalog: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("vinted catalog failed with status %d", res.StatusCode())
	}

	records := make([]market.RawRecord, 0, len(result.Items))
	for _, item := range result.Items {
		priceText := item.Price.Amount
		if priceText != "" && item.Price.CurrencyCode != "" {
			priceText += " " + item.Price.CurrencyCode
		}
		records = append(records, market.RawRecord{
			Title:       item.Title,
			PriceText:   priceText,
			Description: item.Description,
			Location:    item.City,
			URL:         item.URL,
		})
	}

	log.Debug().Int("returned", len(records)).Msg("vinted catalog search completed")
	return records, nil
}
