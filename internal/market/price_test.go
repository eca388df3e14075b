package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		want     string
		currency string
	}{
		{"plain euro suffix", "120€", "120", "EUR"},
		{"french decimal comma", "1 234,56 €", "1234.56", "EUR"},
		{"nbsp grouping", "1 200 €", "1200", "EUR"},
		{"dollar prefix", "$99.99", "99.99", "USD"},
		{"dotted thousands with comma decimal", "1.234,56", "1234.56", "EUR"},
		{"comma thousands with dot decimal", "€1,234.56", "1234.56", "EUR"},
		{"bare integer", "45", "45", "EUR"},
		{"amount embedded in text", "Prix : 89,90 € à débattre", "89.9", "EUR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, currency, err := ParsePrice(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
			assert.Equal(t, tt.currency, currency)
		})
	}
}

func TestParsePriceFailures(t *testing.T) {
	for _, text := range []string{"", "Gratuit", "prix sur demande", "N/A"} {
		_, _, err := ParsePrice(text)
		assert.Error(t, err, "expected failure for %q", text)
	}
}

func TestParsePriceRejectsNegative(t *testing.T) {
	_, _, err := ParsePrice("-50€")
	assert.Error(t, err)
}
