package pricing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// CityPriceEstimate is a localized retail estimate per gram in INR.
type CityPriceEstimate struct {
	City              string          `json:"city"`
	BasePerGramINR    decimal.Decimal `json:"base_price_per_gram_inr"`
	PremiumPerGramINR decimal.Decimal `json:"premium_per_gram_inr"`
	FinalPerGramINR   decimal.Decimal `json:"final_price_per_gram_inr"`
	PremiumKnown      bool            `json:"premium_known"`
}

// PremiumTable is the static per-city premium lookup.
type PremiumTable struct {
	premiums map[string]decimal.Decimal
	names    map[string]string
}

// NewPremiumTable builds a table from INR-per-gram premiums keyed by city.
func NewPremiumTable(premiums map[string]float64) (PremiumTable, error) {
	t := PremiumTable{
		premiums: make(map[string]decimal.Decimal, len(premiums)),
		names:    make(map[string]string, len(premiums)),
	}
	for city, premium := range premiums {
		name := strings.TrimSpace(city)
		if name == "" {
			return PremiumTable{}, fmt.Errorf("premium table: empty city name")
		}
		if premium < 0 {
			return PremiumTable{}, fmt.Errorf("premium table: negative premium for %s", name)
		}
		key := strings.ToLower(name)
		t.premiums[key] = decimal.NewFromFloat(premium)
		t.names[key] = name
	}
	return t, nil
}

// Cities lists the known cities in alphabetical order.
func (t PremiumTable) Cities() []string {
	out := make([]string, 0, len(t.names))
	for _, name := range t.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Adjust adds the city premium to base. An unknown city yields a
// zero-premium estimate together with ErrUnknownCity so callers can
// degrade instead of failing.
func (t PremiumTable) Adjust(base decimal.Decimal, city string) (CityPriceEstimate, error) {
	key := strings.ToLower(strings.TrimSpace(city))
	premium, ok := t.premiums[key]
	if !ok {
		return CityPriceEstimate{
			City:              strings.TrimSpace(city),
			BasePerGramINR:    base,
			PremiumPerGramINR: decimal.Zero,
			FinalPerGramINR:   base,
		}, fmt.Errorf("%w: %q", ErrUnknownCity, city)
	}
	return CityPriceEstimate{
		City:              t.names[key],
		BasePerGramINR:    base,
		PremiumPerGramINR: premium,
		FinalPerGramINR:   base.Add(premium),
		PremiumKnown:      true,
	}, nil
}
