package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/NaNostyle/pc-component-mixer-ai/internal/market"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const pcPartPickerBaseURL = "https://fr.pcpartpicker.com"

// PCPartPickerOpts configures the PCPartPicker adapter.
type PCPartPickerOpts struct {
	BaseURL string // overridable for tests
}

// PCPartPicker fetches listings from the French PCPartPicker search endpoint.
// Unlike the secondhand marketplaces this source lists new retail prices,
// which makes it useful as the market baseline in deal analysis.
type PCPartPicker struct {
	httpClient *resty.Client
	baseURL    string
}

func NewPCPartPicker(opts PCPartPickerOpts) *PCPartPicker {
	baseURL := pcPartPickerBaseURL
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeaders(map[string]string{
			"Accept":           "application/json",
			"User-Agent":       "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
			"X-Requested-With": "XMLHttpRequest",
		})
	return &PCPartPicker{httpClient: client, baseURL: baseURL}
}

func (p *PCPartPicker) Name() market.Source { return market.SourcePCPartPicker }

// Covers reports true for every type: pcpartpicker has a product category for
// each component we know about.
func (p *PCPartPicker) Covers(t market.ComponentType) bool { return true }

type pcPartPickerSearchResponse struct {
	Result struct {
		Data []pcPartPickerProduct `json:"data"`
	} `json:"result"`
}

type pcPartPickerProduct struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	URL      string `json:"url"`
	Category string `json:"category"`
	Specs    string `json:"specs"`
}

// Fetch runs a keyword search. PCPartPicker has no server-side price filter,
// so bounds are left to the aggregator's own filtering.
func (p *PCPartPicker) Fetch(ctx context.Context, q Query) ([]market.RawRecord, error) {
	result := &pcPartPickerSearchResponse{}
	res, err := p.httpClient.NewRequest().
		SetContext(ctx).
		SetQueryParam("q", strings.Join(q.Keywords, " ")).
		SetResult(result).
		Get("/search/")
	if err != nil {
		return nil, fmt.Errorf("pcpartpicker search: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("pcpartpicker search failed with status %d", res.StatusCode())
	}

	records := make([]market.RawRecord, 0, len(result.Result.Data))
	for _, prod := range result.Result.Data {
		url := prod.URL
		if url != "" && strings.HasPrefix(url, "/") {
			url = p.baseURL + url
		}
		records = append(records, market.RawRecord{
			Title:       prod.Name,
			PriceText:   prod.Price,
			Description: prod.Specs,
			URL:         url,
			Category:    prod.Category,
		})
	}

	log.Debug().Int("returned", len(records)).Msg("pcpartpicker search completed")
	return records, nil
}
