package app

import (
	"context"
	"errors"
	"fmt"

	"metals-dashboard/internal/chat"
	"metals-dashboard/internal/session"
)

// ForecastOptions configure the forecast command.
type ForecastOptions struct {
	Notify bool
}

// Forecast runs the silver model once and optionally publishes the result.
func (a *App) Forecast(ctx context.Context, opts ForecastOptions) error {
	svc, err := a.newService(a.newMarket(), nil)
	if err != nil {
		return err
	}

	if opts.Notify {
		if a.newNotifier() == nil {
			return errors.New("alerting.telegram is not enabled")
		}
		f, err := a.publishForecast(ctx, svc)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "%s\n%s\n", f.Headline(), f.TargetLine())
		return nil
	}

	dash, err := svc.Snapshot(ctx, svc.DefaultBudget())
	if err != nil {
		return err
	}
	f, err := svc.Forecast(ctx, dash)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Current silver: $%s/oz\n%s\n%s\n", f.Current.StringFixed(2), f.Headline(), f.TargetLine())
	return nil
}

// Ask sends one question to the advisor bot and prints what a dashboard
// user would see. Failures print the fixed apology rather than erroring.
func (a *App) Ask(ctx context.Context, question string) error {
	svc, err := a.newService(a.newMarket(), nil)
	if err != nil {
		return err
	}
	res := svc.Converse(ctx, session.New(""), question)
	if res.Failed() && !errors.Is(res.Err, chat.ErrNotConfigured) {
		a.Logger.Warn().Err(res.Err).Msg("advisor reply failed")
	}
	_, err = fmt.Fprintln(a.Out, res.Text())
	return err
}
