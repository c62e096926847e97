package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"metals-dashboard/internal/fetcher"
)

// SimulateOptions 以给定的现货价格离线生成一次看板。
type SimulateOptions struct {
	GoldUSD   decimal.Decimal
	SilverUSD decimal.Decimal
	Amount    decimal.NullDecimal
	// Forecast 同时运行白银预测; Notify 把结果推送到告警通道。
	Forecast bool
	Notify   bool
}

// Simulate 用静态行情代替真实数据源, 走完整的归一化与指标计算流程。
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) error {
	if !opts.GoldUSD.IsPositive() || !opts.SilverUSD.IsPositive() {
		return errors.New("gold and silver prices must be greater than zero")
	}
	if opts.Notify && a.newNotifier() == nil {
		return errors.New("alerting.telegram 未启用")
	}

	svc, err := a.newService(a.staticMarket(opts.GoldUSD, opts.SilverUSD), nil)
	if err != nil {
		return err
	}

	dash, err := svc.Snapshot(ctx, budgetOr(opts.Amount, svc.DefaultBudget()))
	if err != nil {
		return err
	}
	if err := writeDashboard(a.Out, dash); err != nil {
		return err
	}
	if !opts.Forecast && !opts.Notify {
		return nil
	}

	f, err := svc.Forecast(ctx, dash)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "%s\n%s\n", f.Headline(), f.TargetLine())
	if opts.Notify {
		return svc.PublishForecast(ctx, dash, f)
	}
	return nil
}

// staticMarket quotes each configured symbol so that normalization maps
// back to the requested spot prices.
func (a *App) staticMarket(gold, silver decimal.Decimal) *fetcher.Static {
	s := a.Config.Market.Symbols
	return fetcher.NewStatic(map[string]decimal.Decimal{
		s.GoldFutures:   gold.Mul(decimal.NewFromInt(100)),
		s.SilverFutures: silver.Mul(decimal.NewFromInt(5000)),
		s.GoldETF:       gold.Div(decimal.NewFromInt(10)),
		s.SilverETF:     silver,
	})
}
