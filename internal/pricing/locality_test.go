package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable(t *testing.T) PremiumTable {
	t.Helper()
	table, err := NewPremiumTable(map[string]float64{"Mumbai": 20, "Delhi": 15, "Pune": 9})
	require.NoError(t, err)
	return table
}

func TestAdjustKnownCity(t *testing.T) {
	est, err := testTable(t).Adjust(decimal.RequireFromString("100.00"), "Mumbai")
	require.NoError(t, err)
	assert.True(t, est.FinalPerGramINR.Equal(decimal.RequireFromString("120.00")), "got %s", est.FinalPerGramINR)
	assert.True(t, est.PremiumKnown)
	assert.Equal(t, "Mumbai", est.City)
}

func TestAdjustIsCaseInsensitive(t *testing.T) {
	est, err := testTable(t).Adjust(decimal.NewFromInt(50), "  delhi ")
	require.NoError(t, err)
	assert.Equal(t, "Delhi", est.City)
	assert.True(t, est.FinalPerGramINR.Equal(decimal.NewFromInt(65)))
}

func TestAdjustUnknownCityDegradesToZeroPremium(t *testing.T) {
	est, err := testTable(t).Adjust(decimal.NewFromInt(100), "Atlantis")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownCity))
	assert.False(t, est.PremiumKnown)
	assert.True(t, est.PremiumPerGramINR.IsZero())
	assert.True(t, est.FinalPerGramINR.Equal(decimal.NewFromInt(100)))
}

func TestPremiumTableValidation(t *testing.T) {
	_, err := NewPremiumTable(map[string]float64{"Mumbai": -1})
	assert.Error(t, err)
	_, err = NewPremiumTable(map[string]float64{" ": 1})
	assert.Error(t, err)
}

func TestCitiesSorted(t *testing.T) {
	assert.Equal(t, []string{"Delhi", "Mumbai", "Pune"}, testTable(t).Cities())
}

func TestGramsForBudget(t *testing.T) {
	grams, err := GramsForBudget(decimal.NewFromInt(100000), decimal.RequireFromString("92.5"))
	require.NoError(t, err)
	assert.InDelta(t, 1081.081081, grams.InexactFloat64(), 1e-6)

	_, err = GramsForBudget(decimal.NewFromInt(1), decimal.Zero)
	assert.True(t, errors.Is(err, ErrInvalidPrice))
	_, err = GramsForBudget(decimal.NewFromInt(-1), decimal.NewFromInt(1))
	assert.True(t, errors.Is(err, ErrInvalidBudget))
}
