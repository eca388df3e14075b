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
	leBonCoinBaseURL = "https://api.leboncoin.fr"

	// Category 15 is "Informatique" on leboncoin.
	leBonCoinCategoryID = "15"

	leBonCoinPageSize = 100
)

// LeBonCoinOpts configures the LeBonCoin adapter.
type LeBonCoinOpts struct {
	BaseURL string // overridable for tests
}

// LeBonCoin fetches listings from the leboncoin.fr finder API.
type LeBonCoin struct {
	httpClient *resty.Client
}

func NewLeBonCoin(opts LeBonCoinOpts) *LeBonCoin {
	baseURL := leBonCoinBaseURL
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeaders(map[string]string{
			"Accept":       "application/json",
			"Content-Type": "application/json",
			"User-Agent":   "LBC;Android;10;sdk_gphone_x86;phone;616a1ca77ca70c1b;wifi;4.30.4.0;43040;0",
		})
	return &LeBonCoin{httpClient: client}
}

func (l *LeBonCoin) Name() market.Source { return market.SourceLeBonCoin }

// Covers reports true for every type: leboncoin's Informatique category
// carries all PC components.
func (l *LeBonCoin) Covers(t market.ComponentType) bool { return true }

type leBonCoinSearchRequest struct {
	Filters leBonCoinFilters `json:"filters"`
	Limit   int              `json:"limit"`
	SortBy  string           `json:"sort_by"`
	SortOrd string           `json:"sort_order"`
}

type leBonCoinFilters struct {
	Category map[string]string            `json:"category"`
	Keywords map[string]string            `json:"keywords,omitempty"`
	Ranges   map[string]map[string]string `json:"ranges,omitempty"`
}

type leBonCoinSearchResponse struct {
	Total int           `json:"total"`
	Ads   []leBonCoinAd `json:"ads"`
}

type leBonCoinAd struct {
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Price    []int  `json:"price"`
	URL      string `json:"url"`
	Location struct {
		City    string `json:"city"`
		Zipcode string `json:"zipcode"`
	} `json:"location"`
}

// Fetch searches the finder API sorted by time, newest first.
func (l *LeBonCoin) Fetch(ctx context.Context, q Query) ([]market.RawRecord, error) {
	body := leBonCoinSearchRequest{
		Filters: leBonCoinFilters{
			Category: map[string]string{"id": leBonCoinCategoryID},
		},
		Limit:   leBonCoinPageSize,
		SortBy:  "time",
		SortOrd: "desc",
	}
	if len(q.Keywords) > 0 {
		body.Filters.Keywords = map[string]string{"text": strings.Join(q.Keywords, " ")}
	}
	if q.MinPrice != nil || q.MaxPrice != nil {
		price := map[string]string{}
		if q.MinPrice != nil {
			price["min"] = q.MinPrice.String()
		}
		if q.MaxPrice != nil {
			price["max"] = q.MaxPrice.String()
		}
		body.Filters.Ranges = map[string]map[string]string{"price": price}
	}

	result := &leBonCoinSearchResponse{}
	res, err := l.httpClient.NewRequest().
		SetContext(ctx).
		SetBody(body).
		SetResult(result).
		Post("/finder/search")
	if err != nil {
		return nil, fmt.Errorf("leboncoin search: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("leboncoin search failed with status %d", res.StatusCode())
	}

	records := make([]market.RawRecord, 0, len(result.Ads))
	for _, ad := range result.Ads {
		priceText := ""
		if len(ad.Price) > 0 {
			priceText = fmt.Sprintf("%d €", ad.Price[0])
		}
		records = append(records, market.RawRecord{
			Title:       ad.Subject,
			PriceText:   priceText,
			Description: ad.Body,
			Location:    strings.TrimSpace(ad.Location.City + " " + ad.Location.Zipcode),
			URL:         ad.URL,
		})
	}

	log.Debug().Int("total", result.Total).Int("returned", len(records)).Msg("leboncoin search completed")
	return records, nil
}
