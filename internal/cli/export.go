package cli

import (
	"github.com/spf13/cobra"

	"metals-dashboard/internal/app"
)

var (
	exportSymbol     string
	exportWindow     string
	exportComparison bool
	exportPNGPath    string
	exportCSVPath    string
	exportMaxPoints  int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a price trend as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			Symbol:     exportSymbol,
			Window:     exportWindow,
			Comparison: exportComparison,
			PNGPath:    exportPNGPath,
			CSVPath:    exportCSVPath,
			MaxPoints:  exportMaxPoints,
		}
		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportSymbol, "symbol", "", "Symbol to export (defaults to the silver ETF)")
	exportCmd.Flags().StringVar(&exportWindow, "window", "", "Lookback window such as 1mo or 1y (defaults to config)")
	exportCmd.Flags().BoolVar(&exportComparison, "comparison", false, "Export the silver/gold ETF comparison instead")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum data points to export (defaults to config)")
}
