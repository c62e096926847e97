package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TroyOunceGrams is the mass of one troy ounce in grams.
var TroyOunceGrams = decimal.RequireFromString("31.1035")

var (
	ratioSilverFavored = decimal.NewFromInt(80)
	ratioGoldStrong    = decimal.NewFromInt(60)
	fullKarat          = decimal.NewFromInt(24)
)

// Karat is gold purity out of 24 parts.
type Karat int32

const (
	Karat24 Karat = 24
	Karat22 Karat = 22
	Karat18 Karat = 18
)

// Insight is the discrete reading of the gold/silver ratio.
type Insight string

const (
	InsightSilverFavored Insight = "SILVER_FAVORED"
	InsightGoldStrong    Insight = "GOLD_STRONG"
	InsightNeutral       Insight = "NEUTRAL"
)

// Advice returns the fixed explanation shown next to the insight.
func (i Insight) Advice() string {
	switch i {
	case InsightSilverFavored:
		return "The Gold/Silver ratio is high (>80). Silver is historically cheap compared to Gold. This favors Silver accumulation."
	case InsightGoldStrong:
		return "The Gold/Silver ratio is low (<60). Gold is currently showing more relative strength than Silver."
	default:
		return "The ratio is in a neutral zone. Follow individual price targets."
	}
}

// PurityPrices holds gold prices per gram for the standard karats.
type PurityPrices struct {
	K24 decimal.Decimal `json:"24k"`
	K22 decimal.Decimal `json:"22k"`
	K18 decimal.Decimal `json:"18k"`
}

func (p PurityPrices) scale(rate decimal.Decimal) PurityPrices {
	return PurityPrices{K24: p.K24.Mul(rate), K22: p.K22.Mul(rate), K18: p.K18.Mul(rate)}
}

// DerivedMetrics is computed once per fetch cycle from a gold and a silver price.
type DerivedMetrics struct {
	GoldSilverRatio decimal.Decimal `json:"gold_silver_ratio"`
	Insight         Insight         `json:"insight"`

	GoldPerGramUSD   PurityPrices    `json:"gold_per_gram_usd"`
	GoldPerGramINR   PurityPrices    `json:"gold_per_gram_inr"`
	SilverPerGramUSD decimal.Decimal `json:"silver_per_gram_usd"`
	SilverPerGramINR decimal.Decimal `json:"silver_per_gram_inr"`

	ExchangeRate           decimal.Decimal `json:"usd_inr_rate"`
	BudgetINR              decimal.Decimal `json:"budget_inr"`
	BudgetUSD              decimal.Decimal `json:"budget_usd"`
	SilverGramsPurchasable decimal.Decimal `json:"silver_grams_purchasable"`
	GoldGramsPurchasable   decimal.Decimal `json:"gold_grams_purchasable"`
}

// Derive computes ratio, purity, currency and purchasing-power figures.
// exchangeRate is home-currency units per USD.
func Derive(gold, silver CanonicalPrice, budgetHome, exchangeRate decimal.Decimal) (DerivedMetrics, error) {
	if gold.Metal != Gold || silver.Metal != Silver {
		return DerivedMetrics{}, fmt.Errorf("derive: expected gold and silver prices, got %s and %s", gold.Metal, silver.Metal)
	}
	if !silver.USDPerTroyOunce.IsPositive() {
		return DerivedMetrics{}, fmt.Errorf("%w: silver spot %s", ErrInvalidPrice, silver.USDPerTroyOunce)
	}
	if !gold.USDPerTroyOunce.IsPositive() {
		return DerivedMetrics{}, fmt.Errorf("%w: gold spot %s", ErrInvalidPrice, gold.USDPerTroyOunce)
	}
	if !exchangeRate.IsPositive() {
		return DerivedMetrics{}, fmt.Errorf("%w: exchange rate %s", ErrInvalidPrice, exchangeRate)
	}
	if budgetHome.IsNegative() {
		return DerivedMetrics{}, fmt.Errorf("%w: %s", ErrInvalidBudget, budgetHome)
	}

	ratio := gold.USDPerTroyOunce.Div(silver.USDPerTroyOunce)
	budgetUSD := budgetHome.Div(exchangeRate)

	goldUSD := PurityPrices{
		K24: PricePerGram(gold.USDPerTroyOunce, Karat24),
		K22: PricePerGram(gold.USDPerTroyOunce, Karat22),
		K18: PricePerGram(gold.USDPerTroyOunce, Karat18),
	}
	silverUSD := silver.USDPerTroyOunce.Div(TroyOunceGrams)

	return DerivedMetrics{
		GoldSilverRatio:        ratio,
		Insight:                ClassifyRatio(ratio),
		GoldPerGramUSD:         goldUSD,
		GoldPerGramINR:         goldUSD.scale(exchangeRate),
		SilverPerGramUSD:       silverUSD,
		SilverPerGramINR:       silverUSD.Mul(exchangeRate),
		ExchangeRate:           exchangeRate,
		BudgetINR:              budgetHome,
		BudgetUSD:              budgetUSD,
		SilverGramsPurchasable: GramsPurchasable(budgetUSD, silver.USDPerTroyOunce),
		GoldGramsPurchasable:   GramsPurchasable(budgetUSD, gold.USDPerTroyOunce),
	}, nil
}

// PricePerGram returns the per-gram price of gold at the given karat.
func PricePerGram(goldSpot decimal.Decimal, karat Karat) decimal.Decimal {
	perGram := goldSpot.Div(TroyOunceGrams)
	if karat == Karat24 {
		return perGram
	}
	return perGram.Mul(decimal.NewFromInt32(int32(karat))).Div(fullKarat)
}

// GramsPurchasable returns how many grams amountUSD buys at spot USD/oz.
// The multiplication happens first so exact inputs stay exact.
func GramsPurchasable(amountUSD, spot decimal.Decimal) decimal.Decimal {
	if !spot.IsPositive() {
		return decimal.Zero
	}
	return amountUSD.Mul(TroyOunceGrams).Div(spot)
}

// ClassifyRatio maps the gold/silver ratio onto an insight. 60 and 80 are neutral.
func ClassifyRatio(ratio decimal.Decimal) Insight {
	switch {
	case ratio.GreaterThan(ratioSilverFavored):
		return InsightSilverFavored
	case ratio.LessThan(ratioGoldStrong):
		return InsightGoldStrong
	default:
		return InsightNeutral
	}
}
