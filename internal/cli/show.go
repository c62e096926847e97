package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"metals-dashboard/internal/app"
)

var (
	showAmount float64
	cityName   string
	cityAmount float64
	calcPrice  float64
	calcBudget float64
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print current prices, derived metrics and purchasing power",
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := amountFlag(cmd, "amount", showAmount)
		if err != nil {
			return err
		}
		return getApp().Show(cmd.Context(), app.ShowOptions{Amount: amount})
	},
}

var cityCmd = &cobra.Command{
	Use:   "city",
	Short: "Print localized silver prices per city",
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := amountFlag(cmd, "amount", cityAmount)
		if err != nil {
			return err
		}
		return getApp().City(cmd.Context(), app.CityOptions{City: cityName, Amount: amount})
	},
}

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Compute grams of silver a budget buys at a given price",
	RunE: func(cmd *cobra.Command, args []string) error {
		if calcPrice <= 0 {
			return errors.New("--price-per-gram must be greater than zero")
		}
		return getApp().Calc(app.CalcOptions{
			PricePerGram: decimal.NewFromFloat(calcPrice),
			Budget:       decimal.NewFromFloat(calcBudget),
		})
	},
}

// amountFlag leaves the amount unset unless the flag was given.
func amountFlag(cmd *cobra.Command, name string, v float64) (decimal.NullDecimal, error) {
	if !cmd.Flags().Changed(name) {
		return decimal.NullDecimal{}, nil
	}
	if v < 0 {
		return decimal.NullDecimal{}, errors.New("--amount cannot be negative")
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(v)), nil
}

func init() {
	showCmd.Flags().Float64Var(&showAmount, "amount", 0, "Investment amount in INR (defaults to config)")

	cityCmd.Flags().StringVar(&cityName, "city", "", "City to price (all cities when empty)")
	cityCmd.Flags().Float64Var(&cityAmount, "amount", 0, "Investment amount in INR (defaults to config)")

	calcCmd.Flags().Float64Var(&calcPrice, "price-per-gram", 92.5, "Silver price per gram in INR")
	calcCmd.Flags().Float64Var(&calcBudget, "budget", 100000, "Budget in INR")
}
