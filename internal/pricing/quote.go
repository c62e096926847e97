package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Metal identifies a precious metal tracked by the dashboard.
type Metal int

const (
	Gold Metal = iota + 1
	Silver
)

func (m Metal) String() string {
	switch m {
	case Gold:
		return "GOLD"
	case Silver:
		return "SILVER"
	default:
		return "UNKNOWN"
	}
}

// Source records which quote produced a canonical price.
type Source int

const (
	SourceFutures Source = iota + 1
	SourceETFFallback
)

func (s Source) String() string {
	switch s {
	case SourceFutures:
		return "FUTURES"
	case SourceETFFallback:
		return "ETF_FALLBACK"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the source for JSON payloads.
func (s Source) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// MarshalText renders the metal for JSON payloads.
func (m Metal) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// Quote is a single provider observation. Only Close and High are consumed.
type Quote struct {
	Symbol    string
	Close     decimal.Decimal
	High      decimal.Decimal
	Timestamp time.Time
}

// QuoteBatch holds at most one futures and one ETF quote for one metal.
type QuoteBatch struct {
	Metal   Metal
	Futures *Quote
	ETF     *Quote
}

// CanonicalPrice is the normalized spot price of a metal in USD per troy ounce.
type CanonicalPrice struct {
	Metal           Metal           `json:"metal"`
	USDPerTroyOunce decimal.Decimal `json:"usd_per_troy_ounce"`
	Source          Source          `json:"source"`
}

// contract describes how a provider quote maps to one troy ounce.
type contract struct {
	futuresDivisor decimal.Decimal
	etfMultiplier  decimal.Decimal
}

// Gold futures are quoted per 100 oz and GLD holds 0.1 oz per share.
// Silver futures are quoted per 5000 oz and SLV holds 1 oz per share.
var contracts = map[Metal]contract{
	Gold:   {futuresDivisor: decimal.NewFromInt(100), etfMultiplier: decimal.NewFromInt(10)},
	Silver: {futuresDivisor: decimal.NewFromInt(5000), etfMultiplier: decimal.NewFromInt(1)},
}

// Normalize converts a quote batch into a canonical per-ounce price,
// preferring futures and falling back to the ETF proxy.
func Normalize(batch QuoteBatch) (CanonicalPrice, error) {
	c, ok := contracts[batch.Metal]
	if !ok {
		return CanonicalPrice{}, fmt.Errorf("normalize: unsupported metal %d", int(batch.Metal))
	}

	if usable(batch.Futures) {
		return CanonicalPrice{
			Metal:           batch.Metal,
			USDPerTroyOunce: batch.Futures.Close.Div(c.futuresDivisor),
			Source:          SourceFutures,
		}, nil
	}

	if usable(batch.ETF) {
		return CanonicalPrice{
			Metal:           batch.Metal,
			USDPerTroyOunce: batch.ETF.Close.Mul(c.etfMultiplier),
			Source:          SourceETFFallback,
		}, nil
	}

	return CanonicalPrice{}, fmt.Errorf("%w for %s", ErrNoPriceData, batch.Metal)
}

func usable(q *Quote) bool {
	return q != nil && q.Close.IsPositive()
}
