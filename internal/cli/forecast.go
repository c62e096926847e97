package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"metals-dashboard/internal/app"
)

var forecastNotify bool

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Run the silver price model once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Forecast(cmd.Context(), app.ForecastOptions{Notify: forecastNotify})
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the investment advisor bot a single question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Ask(cmd.Context(), strings.Join(args, " "))
	},
}

func init() {
	forecastCmd.Flags().BoolVar(&forecastNotify, "notify", false, "Publish the forecast through Telegram")
}
