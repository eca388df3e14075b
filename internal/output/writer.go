// Package output renders a run's result set to a timestamped JSON report.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/NaNostyle/pc-component-mixer-ai/internal/market"
)

// Report is the JSON document one run produces.
type Report struct {
	GeneratedAt    time.Time        `json:"generated_at"`
	Intent         string           `json:"intent,omitempty"`
	Query          market.QuerySpec `json:"query"`
	PlanReasoning  string           `json:"plan_reasoning,omitempty"`
	PlanFallback   bool             `json:"plan_fallback,omitempty"`
	ListingCount   int              `json:"listing_count"`
	AnnotatedCount int              `json:"annotated_count"`
	SourceFailures []string         `json:"source_failures,omitempty"`
	Listings       []market.Listing `json:"listings"`
}

// Filename builds a descriptive report filename from the query: component
// selection (or "all"), keywords, price range, an "ai" marker when analyses
// are attached, and a timestamp.
func Filename(spec market.QuerySpec, aiEnhanced bool, now time.Time) string {
	parts := []string{"pc_mix"}

	if len(spec.Components) == 0 {
		parts = append(parts, "all")
	} else {
		for _, c := range spec.Components {
			parts = append(parts, string(c))
		}
	}

	for i, kw := range spec.Keywords {
		if i >= 3 {
			break
		}
		if s := sanitize(kw); s != "" {
			parts = append(parts, s)
		}
	}

	switch {
	case spec.MinPrice != nil && spec.MaxPrice != nil:
		parts = append(parts, spec.MinPrice.String()+"-"+spec.MaxPrice.String())
	case spec.MaxPrice != nil:
		parts = append(parts, "under"+spec.MaxPrice.String())
	case spec.MinPrice != nil:
		parts = append(parts, "over"+spec.MinPrice.String())
	}

	if aiEnhanced {
		parts = append(parts, "ai")
	}
	parts = append(parts, now.Format("20060102_150405"))
	return strings.Join(parts, "_") + ".json"
}

// sanitize makes a keyword filename-safe: lowercase, spaces collapsed to
// dashes, everything else alphanumeric.
func sanitize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// WriteReport writes the report as indented JSON to path.
func WriteReport(path string, report Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
