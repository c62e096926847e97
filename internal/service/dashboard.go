package service

import (
	"time"

	"github.com/shopspring/decimal"

	"metals-dashboard/internal/fetcher"
	"metals-dashboard/internal/pricing"
)

// Dashboard is one fully computed render of the main page.
type Dashboard struct {
	FetchedAt time.Time              `json:"fetched_at"`
	Gold      pricing.CanonicalPrice `json:"gold"`
	Silver    pricing.CanonicalPrice `json:"silver"`
	// Latest ETF share prices and their recent highs, absent when the ETF
	// series could not be fetched.
	GoldETF    decimal.NullDecimal    `json:"gld_share_usd"`
	SilverETF  decimal.NullDecimal    `json:"slv_share_usd"`
	GoldHigh   decimal.NullDecimal    `json:"gld_recent_high_usd"`
	SilverHigh decimal.NullDecimal    `json:"slv_recent_high_usd"`
	Metrics    pricing.DerivedMetrics `json:"metrics"`
	Advice     string                 `json:"advice"`
	Trend      []TrendPoint           `json:"trend"`
	Warnings   []string               `json:"warnings,omitempty"`
}

// TrendPoint pairs the silver and gold ETF closes of one trading day.
type TrendPoint struct {
	Date   time.Time       `json:"date"`
	Silver decimal.Decimal `json:"silver"`
	Gold   decimal.Decimal `json:"gold"`
}

// SeriesPoint is one close of a single-symbol trend.
type SeriesPoint struct {
	Date  time.Time       `json:"date"`
	Close decimal.Decimal `json:"close"`
}

// CityQuote is a localized price plus any degradation notice.
type CityQuote struct {
	pricing.CityPriceEstimate
	Warning string `json:"warning,omitempty"`
}

func lastQuote(symbol string, bars []fetcher.Bar) *pricing.Quote {
	if len(bars) == 0 {
		return nil
	}
	b := bars[len(bars)-1]
	return &pricing.Quote{Symbol: symbol, Close: b.Close, High: b.High, Timestamp: b.Date}
}

func lastClose(bars []fetcher.Bar) decimal.NullDecimal {
	if len(bars) == 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(bars[len(bars)-1].Close)
}

// maxHigh is the highest High over the last n bars.
func maxHigh(bars []fetcher.Bar, n int) decimal.NullDecimal {
	if len(bars) == 0 || n <= 0 {
		return decimal.NullDecimal{}
	}
	if len(bars) > n {
		bars = bars[len(bars)-n:]
	}
	high := bars[0].High
	for _, b := range bars[1:] {
		if b.High.GreaterThan(high) {
			high = b.High
		}
	}
	return decimal.NewNullDecimal(high)
}

// alignCloses joins the two series on trading date, keeping only days
// present in both.
func alignCloses(silver, gold []fetcher.Bar) []TrendPoint {
	byDay := make(map[string]decimal.Decimal, len(gold))
	for _, b := range gold {
		byDay[dayKey(b.Date)] = b.Close
	}

	points := make([]TrendPoint, 0, len(silver))
	for _, b := range silver {
		g, ok := byDay[dayKey(b.Date)]
		if !ok {
			continue
		}
		points = append(points, TrendPoint{Date: b.Date, Silver: b.Close, Gold: g})
	}
	return points
}

func dayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
