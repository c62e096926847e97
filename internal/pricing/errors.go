package pricing

import "errors"

var (
	// ErrNoPriceData indicates neither a futures nor an ETF quote was usable for a metal.
	ErrNoPriceData = errors.New("pricing: no price data")
	// ErrInvalidPrice indicates a non-positive spot price or rate reached a derivation.
	ErrInvalidPrice = errors.New("pricing: invalid price")
	// ErrUnknownCity indicates the city is not in the premium table.
	ErrUnknownCity = errors.New("pricing: unknown city")
	// ErrInvalidBudget indicates a negative investment amount.
	ErrInvalidBudget = errors.New("pricing: invalid budget")
)
