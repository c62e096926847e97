package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// GramsForBudget is the plain calculator: budget divided by a per-gram price.
func GramsForBudget(budget, pricePerGram decimal.Decimal) (decimal.Decimal, error) {
	if budget.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidBudget, budget)
	}
	if !pricePerGram.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: price per gram %s", ErrInvalidPrice, pricePerGram)
	}
	return budget.Div(pricePerGram), nil
}
