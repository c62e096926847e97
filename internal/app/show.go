package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"metals-dashboard/internal/pricing"
	"metals-dashboard/internal/service"
)

// ShowOptions configure the show command.
type ShowOptions struct {
	// Amount is the investment in INR. When not Valid the configured default applies.
	Amount decimal.NullDecimal
}

// CityOptions configure the city command. An empty City lists every city.
type CityOptions struct {
	City   string
	Amount decimal.NullDecimal
}

// CalcOptions configure the plain grams calculator.
type CalcOptions struct {
	PricePerGram decimal.Decimal
	Budget       decimal.Decimal
}

// Show prints one dashboard snapshot.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	svc, err := a.newService(a.newMarket(), nil)
	if err != nil {
		return err
	}
	dash, err := svc.Snapshot(ctx, budgetOr(opts.Amount, svc.DefaultBudget()))
	if err != nil {
		return err
	}
	return writeDashboard(a.Out, dash)
}

// City prints localized silver prices.
func (a *App) City(ctx context.Context, opts CityOptions) error {
	svc, err := a.newService(a.newMarket(), nil)
	if err != nil {
		return err
	}
	dash, err := svc.Snapshot(ctx, budgetOr(opts.Amount, svc.DefaultBudget()))
	if err != nil {
		return err
	}

	cities := svc.Cities()
	if opts.City != "" {
		cities = []string{opts.City}
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "City\tBase INR/g\tPremium INR/g\tFinal INR/g\tNote")
	for _, city := range cities {
		q := svc.CityPrice(dash, city)
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
			q.City,
			q.BasePerGramINR.StringFixed(2),
			q.PremiumPerGramINR.StringFixed(2),
			q.FinalPerGramINR.StringFixed(2),
			sanitizeInline(q.Warning),
		)
	}
	return writer.Flush()
}

// Calc prints how many grams a budget buys at a fixed price.
func (a *App) Calc(opts CalcOptions) error {
	grams, err := pricing.GramsForBudget(opts.Budget, opts.PricePerGram)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.Out, "With %s INR, you can buy approximately %s grams of silver\n",
		opts.Budget.String(), grams.StringFixed(2))
	return err
}

func writeDashboard(out io.Writer, dash *service.Dashboard) error {
	m := dash.Metrics

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Fetched (UTC)\t%s\n", dash.FetchedAt.Format(time.RFC3339))
	fmt.Fprintln(writer, "Metal\tUSD/oz\tSource\tUSD/g\tINR/g\tETF share\tRecent high")
	fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		dash.Gold.Metal,
		dash.Gold.USDPerTroyOunce.StringFixed(2),
		dash.Gold.Source,
		m.GoldPerGramUSD.K24.StringFixed(2),
		m.GoldPerGramINR.K24.StringFixed(2),
		nullFixed(dash.GoldETF, 2),
		nullFixed(dash.GoldHigh, 2),
	)
	fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		dash.Silver.Metal,
		dash.Silver.USDPerTroyOunce.StringFixed(2),
		dash.Silver.Source,
		m.SilverPerGramUSD.StringFixed(2),
		m.SilverPerGramINR.StringFixed(2),
		nullFixed(dash.SilverETF, 2),
		nullFixed(dash.SilverHigh, 2),
	)
	if err := writer.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Gold by purity (INR/g): 24K %s  22K %s  18K %s\n",
		m.GoldPerGramINR.K24.StringFixed(2), m.GoldPerGramINR.K22.StringFixed(2), m.GoldPerGramINR.K18.StringFixed(2))
	fmt.Fprintf(out, "Gold/Silver ratio: %s (%s)\n", m.GoldSilverRatio.StringFixed(1), m.Insight)
	fmt.Fprintf(out, "Insight: %s\n", dash.Advice)
	if m.BudgetINR.IsPositive() {
		fmt.Fprintf(out, "Budget: %s INR = %s USD at %s\n", m.BudgetINR.StringFixed(0), m.BudgetUSD.StringFixed(2), m.ExchangeRate.String())
		fmt.Fprintf(out, "You can buy: %s g silver, %s g gold\n",
			m.SilverGramsPurchasable.StringFixed(2), m.GoldGramsPurchasable.StringFixed(2))
	}
	for _, w := range dash.Warnings {
		fmt.Fprintf(out, "warning: %s\n", sanitizeInline(w))
	}
	return nil
}

func budgetOr(amount decimal.NullDecimal, fallback decimal.Decimal) decimal.Decimal {
	if amount.Valid {
		return amount.Decimal
	}
	return fallback
}

func nullFixed(d decimal.NullDecimal, places int32) string {
	if !d.Valid {
		return "n/a"
	}
	return d.Decimal.StringFixed(places)
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
