// fetch-test runs a single source adapter against the live site and dumps the
// raw records it returns. Useful for checking that a marketplace's API shape
// has not drifted.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/NaNostyle/pc-component-mixer-ai/internal/market"
	"github.com/NaNostyle/pc-component-mixer-ai/internal/source"
	"github.com/shopspring/decimal"
)

func main() {
	sourceName := flag.String("source", "leboncoin", "source to query (leboncoin, pcpartpicker, vinted)")
	keywords := flag.String("keywords", "rtx 3070", "space-separated search keywords")
	maxPrice := flag.String("max-price", "", "maximum price in euros")
	flag.Parse()

	var adapter source.Adapter
	for _, a := range source.DefaultAdapters() {
		if string(a.Name()) == *sourceName {
			adapter = a
			break
		}
	}
	if adapter == nil {
		fmt.Printf("Unknown source %q\n", *sourceName)
		os.Exit(1)
	}

	q := source.Query{Keywords: strings.Fields(*keywords)}
	if *maxPrice != "" {
		d, err := decimal.NewFromString(*maxPrice)
		if err != nil {
			fmt.Printf("Invalid max price: %v\n", err)
			os.Exit(1)
		}
		q.MaxPrice = &d
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Printf("=== %s search: %q ===\n\n", adapter.Name(), *keywords)
	records, err := adapter.Fetch(ctx, q)
	if err != nil {
		fmt.Printf("Fetch failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Got %d records\n\n", len(records))
	for i, rec := range records {
		fmt.Printf("--- record %d ---\n", i+1)
		data, _ := json.MarshalIndent(rec, "", "  ")
		fmt.Println(string(data))

		listing, diag := market.Normalize(rec, adapter.Name(), time.Now().UTC())
		if diag != nil {
			fmt.Printf("price parse: %v\n", diag)
		}
		fmt.Printf("normalized: %s | %s %s | type=%s\n\n",
			listing.Name, listing.Price, listing.Currency, listing.ComponentType)
	}
}
