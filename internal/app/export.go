package app

import (
	"context"
	"errors"
	"io"

	"metals-dashboard/internal/export"
)

// ExportOptions hold parameters for exporting a price trend.
type ExportOptions struct {
	// Symbol and Window select a single-symbol trend. Comparison instead
	// exports the dashboard's silver/gold ETF comparison.
	Symbol     string
	Window     string
	Comparison bool
	PNGPath    string
	CSVPath    string
	MaxPoints  int
}

// Export renders a price trend as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	maxPoints := a.Config.ResolveMaxPoints(opts.MaxPoints)

	svc, err := a.newService(a.newMarket(), nil)
	if err != nil {
		return err
	}

	var (
		series []export.Series
		title  string
	)
	if opts.Comparison {
		dash, err := svc.Snapshot(ctx, svc.DefaultBudget())
		if err != nil {
			return err
		}
		series, title = export.FromTrend(dash.Trend), "30-Day Trend Comparison"
	} else {
		symbol := opts.Symbol
		if symbol == "" {
			symbol = a.Config.Market.Symbols.SilverETF
		}
		points, err := svc.Trend(ctx, symbol, opts.Window)
		if err != nil {
			return err
		}
		series, title = []export.Series{export.FromSeries(symbol, points)}, "Market Trends: "+symbol
	}

	total := 0
	if len(series) > 0 {
		total = len(series[0].Points)
	}
	series = export.DownsampleAll(series, maxPoints)
	a.Logger.Info().Int("total", total).Int("exported", len(series[0].Points)).Msg("exporting trend")

	if opts.CSVPath != "" {
		if err := export.WriteFile(opts.CSVPath, func(w io.Writer) error {
			return export.WriteCSV(w, series)
		}); err != nil {
			return err
		}
	}
	if opts.PNGPath != "" {
		if err := export.WriteFile(opts.PNGPath, func(w io.Writer) error {
			return export.WritePNG(w, title, series)
		}); err != nil {
			return err
		}
	}
	return nil
}
