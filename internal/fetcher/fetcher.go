package fetcher

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one daily row of a market-data time series.
type Bar struct {
	Date   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// MarketDataFetcher retrieves an ordered (oldest first) series for a ticker
// over a lookback window such as "5d", "30d" or "1y". An unknown or
// currently unquoted ticker yields an empty series, not an error.
type MarketDataFetcher interface {
	FetchSeries(ctx context.Context, symbol, window string) ([]Bar, error)
}
