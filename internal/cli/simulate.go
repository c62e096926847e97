package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"metals-dashboard/internal/app"
)

var (
	simulateGold     float64
	simulateSilver   float64
	simulateAmount   float64
	simulateForecast bool
	simulateNotify   bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "用给定的现货价格离线计算看板 (可选预测与推送)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateGold <= 0 || simulateSilver <= 0 {
			return errors.New("--gold 与 --silver 必须大于 0")
		}
		amount, err := amountFlag(cmd, "amount", simulateAmount)
		if err != nil {
			return err
		}

		return getApp().Simulate(cmd.Context(), app.SimulateOptions{
			GoldUSD:   decimal.NewFromFloat(simulateGold),
			SilverUSD: decimal.NewFromFloat(simulateSilver),
			Amount:    amount,
			Forecast:  simulateForecast,
			Notify:    simulateNotify,
		})
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateGold, "gold", 0, "黄金现货 USD/oz")
	simulateCmd.Flags().Float64Var(&simulateSilver, "silver", 0, "白银现货 USD/oz")
	simulateCmd.Flags().Float64Var(&simulateAmount, "amount", 0, "Investment amount in INR (defaults to config)")
	simulateCmd.Flags().BoolVar(&simulateForecast, "forecast", false, "Also run the silver model")
	simulateCmd.Flags().BoolVar(&simulateNotify, "notify", false, "Publish the forecast through Telegram")
}
