package fetcher

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Static serves flat synthetic series from fixed closing prices. It backs
// the simulate command and tests that must not touch the network.
type Static struct {
	Prices map[string]decimal.Decimal
	Now    func() time.Time
}

// NewStatic constructs a static fetcher for the given symbol prices.
func NewStatic(prices map[string]decimal.Decimal) *Static {
	return &Static{Prices: prices}
}

// FetchSeries returns one bar per day of window, ending today, each
// closing at the configured price. Unknown symbols yield an empty series.
func (s *Static) FetchSeries(ctx context.Context, symbol, window string) ([]Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	px, ok := s.Prices[symbol]
	if !ok {
		return nil, nil
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	today := now().UTC().Truncate(24 * time.Hour)

	days := windowDays(window)
	bars := make([]Bar, 0, days)
	for i := days - 1; i >= 0; i-- {
		bars = append(bars, Bar{
			Date:  today.AddDate(0, 0, -i),
			Open:  px,
			High:  px,
			Low:   px,
			Close: px,
		})
	}
	return bars, nil
}

// windowDays converts range notation ("5d", "1mo", "1y") to a day count.
func windowDays(window string) int {
	window = strings.TrimSpace(strings.ToLower(window))
	units := []struct {
		suffix string
		days   int
	}{
		{"mo", 30},
		{"d", 1},
		{"wk", 7},
		{"y", 365},
	}
	for _, u := range units {
		if !strings.HasSuffix(window, u.suffix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(window, u.suffix))
		if err != nil || n <= 0 {
			break
		}
		return n * u.days
	}
	return 1
}

var _ MarketDataFetcher = (*Static)(nil)
