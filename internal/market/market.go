package market

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Source identifies the marketplace a listing was scraped from.
type Source string

const (
	SourceLeBonCoin    Source = "leboncoin"
	SourcePCPartPicker Source = "pcpartpicker"
	SourceVinted       Source = "vinted"
)

// ComponentType is a PC component category.
type ComponentType string

const (
	ComponentCase        ComponentType = "case"
	ComponentCPUCooler   ComponentType = "cpu_cooler"
	ComponentCPU         ComponentType = "cpu"
	ComponentHardDrive   ComponentType = "hard_drive"
	ComponentMemory      ComponentType = "memory"
	ComponentMotherboard ComponentType = "motherboard"
	ComponentGraphicCard ComponentType = "graphic_card"
	ComponentPowerSupply ComponentType = "power_supply"
)

// AllComponentTypes returns every known component type in a fixed order.
func AllComponentTypes() []ComponentType {
	return []ComponentType{
		ComponentCase,
		ComponentCPUCooler,
		ComponentCPU,
		ComponentHardDrive,
		ComponentMemory,
		ComponentMotherboard,
		ComponentGraphicCard,
		ComponentPowerSupply,
	}
}

// componentAliases maps alternative spellings to canonical component types.
var componentAliases = map[string]ComponentType{
	"case":           ComponentCase,
	"cpu_cooler":     ComponentCPUCooler,
	"cpu-cooler":     ComponentCPUCooler,
	"cooler":         ComponentCPUCooler,
	"cpu":            ComponentCPU,
	"processor":      ComponentCPU,
	"hard_drive":     ComponentHardDrive,
	"hard-drive":     ComponentHardDrive,
	"storage":        ComponentHardDrive,
	"ssd":            ComponentHardDrive,
	"memory":         ComponentMemory,
	"ram":            ComponentMemory,
	"motherboard":    ComponentMotherboard,
	"graphic_card":   ComponentGraphicCard,
	"graphics_card":  ComponentGraphicCard,
	"video-card":     ComponentGraphicCard,
	"video_card":     ComponentGraphicCard,
	"gpu":            ComponentGraphicCard,
	"power_supply":   ComponentPowerSupply,
	"power-supply":   ComponentPowerSupply,
	"psu":            ComponentPowerSupply,
}

// ParseComponentType resolves a user or AI provided component name to a
// canonical type. Returns false for names outside the known set.
func ParseComponentType(s string) (ComponentType, bool) {
	t, ok := componentAliases[strings.ToLower(strings.TrimSpace(s))]
	return t, ok
}

// Listing is the canonical cross-source record of a for-sale component.
type Listing struct {
	Source        Source          `json:"source"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	PriceKnown    bool            `json:"price_known"`
	RawText       string          `json:"raw_text"`
	URL           string          `json:"url,omitempty"`
	ComponentType ComponentType   `json:"component_type,omitempty"`
	FetchedAt     time.Time       `json:"fetched_at"`
	Analysis      *DealAnalysis   `json:"ai_analysis,omitempty"`
}

// Validate checks the Listing invariants: non-empty name, non-negative price.
func (l Listing) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("listing name is empty")
	}
	if l.Price.IsNegative() {
		return fmt.Errorf("listing price is negative: %s", l.Price)
	}
	return nil
}

// IdentityKey returns the dedup identity: normalized name + price + source.
// Identical name and price from different sources stay distinct since they
// represent different sellers.
func (l Listing) IdentityKey() string {
	return normalizeName(l.Name) + "|" + l.Price.String() + "|" + string(l.Source)
}

func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// DealAnalysis is an AI-produced assessment attached to a Listing. It is
// created once by the annotator and never mutated afterwards.
type DealAnalysis struct {
	IsGoodDeal          bool    `json:"is_good_deal"`
	Confidence          float64 `json:"confidence"`
	Reasoning           string  `json:"reasoning"`
	Recommendation      string  `json:"recommendation"`
	MarketValueEstimate string  `json:"market_value_estimate"`
	DealScore           int     `json:"deal_score"`
}

// Validate checks the DealAnalysis invariants. Out-of-range values are
// rejected, not clamped, so callers can tell "no analysis" from "bad analysis".
func (a DealAnalysis) Validate() error {
	if a.Confidence < 0 || a.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", a.Confidence)
	}
	if a.DealScore < 1 || a.DealScore > 10 {
		return fmt.Errorf("deal_score %d outside [1,10]", a.DealScore)
	}
	return nil
}

// QuerySpec holds structured search parameters. Empty Components means every
// known type is in scope.
type QuerySpec struct {
	Components []ComponentType  `json:"components,omitempty"`
	Keywords   []string         `json:"keywords,omitempty"`
	MinPrice   *decimal.Decimal `json:"min_price,omitempty"`
	MaxPrice   *decimal.Decimal `json:"max_price,omitempty"`
}

// Validate checks the QuerySpec invariants: ordered price bounds and known
// component types.
func (s QuerySpec) Validate() error {
	if s.MinPrice != nil && s.MinPrice.IsNegative() {
		return fmt.Errorf("min_price %s is negative", s.MinPrice)
	}
	if s.MaxPrice != nil && s.MaxPrice.IsNegative() {
		return fmt.Errorf("max_price %s is negative", s.MaxPrice)
	}
	if s.MinPrice != nil && s.MaxPrice != nil && s.MinPrice.GreaterThan(*s.MaxPrice) {
		return fmt.Errorf("min_price %s exceeds max_price %s", s.MinPrice, s.MaxPrice)
	}
	known := make(map[ComponentType]bool)
	for _, t := range AllComponentTypes() {
		known[t] = true
	}
	for _, c := range s.Components {
		if !known[c] {
			return fmt.Errorf("unknown component type %q", c)
		}
	}
	return nil
}

// WantsComponent reports whether the spec's component filter admits t.
// An empty filter admits everything, as does an unknown (empty) type.
func (s QuerySpec) WantsComponent(t ComponentType) bool {
	if len(s.Components) == 0 || t == "" {
		return true
	}
	for _, c := range s.Components {
		if c == t {
			return true
		}
	}
	return false
}

// RawRecord is a source-native scrape result before normalization. Adapters
// fill whichever fields the marketplace exposes; everything else stays empty.
type RawRecord struct {
	Title       string
	PriceText   string
	Description string
	Location    string
	URL         string
	Category    string
}
