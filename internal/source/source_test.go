package source

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NaNostyle/pc-component-mixer-ai/internal/market"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeBonCoinFetch(t *testing.T) {
	var gotBody leBonCoinSearchRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/finder/search", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"total": 2,
			"ads": [
				{"subject": "RTX 3070", "body": "Très bon état", "price": [450], "url": "https://www.leboncoin.fr/ad/1", "location": {"city": "Lyon", "zipcode": "69003"}},
				{"subject": "Ryzen 5 5600 à débattre", "body": "", "price": [], "url": "https://www.leboncoin.fr/ad/2", "location": {}}
			]
		}`)
	}))
	defer ts.Close()

	min := decimal.NewFromInt(100)
	max := decimal.NewFromInt(600)
	adapter := NewLeBonCoin(LeBonCoinOpts{BaseURL: ts.URL})
	records, err := adapter.Fetch(context.Background(), Query{
		Keywords: []string{"rtx", "3070"},
		MinPrice: &min,
		MaxPrice: &max,
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "RTX 3070", records[0].Title)
	assert.Equal(t, "450 €", records[0].PriceText)
	assert.Equal(t, "Lyon 69003", records[0].Location)
	// A priceless ad still comes through with empty price text.
	assert.Equal(t, "", records[1].PriceText)

	// Query parameters reached the API in the finder shape.
	assert.Equal(t, "rtx 3070", gotBody.Filters.Keywords["text"])
	assert.Equal(t, "100", gotBody.Filters.Ranges["price"]["min"])
	assert.Equal(t, "600", gotBody.Filters.Ranges["price"]["max"])
}

func TestLeBonCoinFetchServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	adapter := NewLeBonCoin(LeBonCoinOpts{BaseURL: ts.URL})
	_, err := adapter.Fetch(context.Background(), Query{Keywords: []string{"gpu"}})
	assert.Error(t, err)
}

func TestVintedFetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v2/catalog/items", r.URL.Path)
		assert.Equal(t, "rtx 3070", r.URL.Query().Get("search_text"))
		assert.Equal(t, "600", r.URL.Query().Get("price_to"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"items": [
				{"title": "Carte graphique RTX 3070", "description": "Fonctionne parfaitement", "url": "https://www.vinted.fr/items/1", "price": {"amount": "430.0", "currency_code": "EUR"}, "city": "Paris"}
			]
		}`)
	}))
	defer ts.Close()

	max := decimal.NewFromInt(600)
	adapter := NewVinted(VintedOpts{BaseURL: ts.URL})
	records, err := adapter.Fetch(context.Background(), Query{
		Keywords: []string{"rtx", "3070"},
		MaxPrice: &max,
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Carte graphique RTX 3070", records[0].Title)
	assert.Equal(t, "430.0 EUR", records[0].PriceText)
}

func TestVintedFetchEmptyResultIsNotAnError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"items": []}`)
	}))
	defer ts.Close()

	adapter := NewVinted(VintedOpts{BaseURL: ts.URL})
	records, err := adapter.Fetch(context.Background(), Query{Keywords: []string{"nonexistent"}})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPCPartPickerFetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search/", r.URL.Path)
		assert.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"result": {"data": [
				{"name": "AMD Ryzen 5 5600", "price": "€129.90", "url": "/product/abc/amd-ryzen-5-5600", "category": "cpu", "specs": "6 cores, 12 threads"}
			]}
		}`)
	}))
	defer ts.Close()

	adapter := NewPCPartPicker(PCPartPickerOpts{BaseURL: ts.URL})
	records, err := adapter.Fetch(context.Background(), Query{Keywords: []string{"ryzen"}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "AMD Ryzen 5 5600", records[0].Title)
	assert.Equal(t, "€129.90", records[0].PriceText)
	assert.Equal(t, ts.URL+"/product/abc/amd-ryzen-5-5600", records[0].URL)
	assert.Equal(t, "cpu", records[0].Category)
}

func TestDefaultAdaptersOrderIsStable(t *testing.T) {
	adapters := DefaultAdapters()
	require.Len(t, adapters, 3)
	assert.Equal(t, market.SourceLeBonCoin, adapters[0].Name())
	assert.Equal(t, market.SourcePCPartPicker, adapters[1].Name())
	assert.Equal(t, market.SourceVinted, adapters[2].Name())
}

func TestVintedCoverage(t *testing.T) {
	v := NewVinted(VintedOpts{})
	assert.True(t, v.Covers(market.ComponentGraphicCard))
	assert.False(t, v.Covers(market.ComponentMotherboard))
	assert.False(t, v.Covers(market.ComponentCase))
}
