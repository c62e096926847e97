package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"metals-dashboard/internal/alerting"
	"metals-dashboard/internal/chat"
	"metals-dashboard/internal/config"
	"metals-dashboard/internal/fetcher"
	"metals-dashboard/internal/logging"
	"metals-dashboard/internal/prediction"
	"metals-dashboard/internal/pricing"
	"metals-dashboard/internal/session"
)

// Recorder receives operational measurements. *metrics.Recorder satisfies it.
type Recorder interface {
	ObserveFetch(symbol string, took time.Duration, err error)
	RecordSpot(metal, source string, usd float64)
	RecordRatio(ratio float64)
	RecordOutcome(adapter, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveFetch(string, time.Duration, error) {}
func (nopRecorder) RecordSpot(string, string, float64) {}
func (nopRecorder) RecordRatio(float64) {}
func (nopRecorder) RecordOutcome(string, string) {}

// Service orchestrates fetching, normalization, derivation and the adapters.
type Service struct {
	market     fetcher.MarketDataFetcher
	premiums   pricing.PremiumTable
	forecaster *prediction.Adapter
	bot        *chat.Bot
	notifier   alerting.Notifier
	recorder   Recorder
	logger     zerolog.Logger

	symbols       config.SymbolsConfig
	windows       config.WindowsConfig
	highLookback  int
	exchangeRate  decimal.Decimal
	defaultBudget decimal.Decimal
	now           func() time.Time
}

// New constructs the dashboard service. forecaster, bot, notifier and
// recorder may be nil.
func New(cfg *config.Config, market fetcher.MarketDataFetcher, premiums pricing.PremiumTable, forecaster *prediction.Adapter, bot *chat.Bot, notifier alerting.Notifier, recorder Recorder, logger zerolog.Logger) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	lookback := cfg.Market.HighLookback
	if lookback <= 0 {
		lookback = 10
	}

	return &Service{
		market:        market,
		premiums:      premiums,
		forecaster:    forecaster,
		bot:           bot,
		notifier:      notifier,
		recorder:      recorder,
		logger:        logging.Component(logger, "service"),
		symbols:       cfg.Market.Symbols,
		windows:       cfg.Market.Windows,
		highLookback:  lookback,
		exchangeRate:  decimal.NewFromFloat(cfg.Pricing.USDINRRate),
		defaultBudget: decimal.NewFromFloat(cfg.Pricing.DefaultBudgetINR),
		now:           time.Now,
	}
}

// DefaultBudget is the investment amount used when the caller gives none.
func (s *Service) DefaultBudget() decimal.Decimal {
	return s.defaultBudget
}

// Cities lists the cities with a known premium.
func (s *Service) Cities() []string {
	return s.premiums.Cities()
}

// Snapshot fetches fresh quotes and computes the full dashboard. Missing
// futures degrade to the ETF proxy; a metal with no usable quote at all is a
// hard stop.
func (s *Service) Snapshot(ctx context.Context, budgetHome decimal.Decimal) (*Dashboard, error) {
	var warnings []string

	silverETF := s.fetchOptional(ctx, s.symbols.SilverETF, s.windows.ETF)
	goldETF := s.fetchOptional(ctx, s.symbols.GoldETF, s.windows.ETF)
	goldFut := s.fetchOptional(ctx, s.symbols.GoldFutures, s.windows.Futures)
	silverFut := s.fetchOptional(ctx, s.symbols.SilverFutures, s.windows.Futures)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gold, err := pricing.Normalize(pricing.QuoteBatch{
		Metal:   pricing.Gold,
		Futures: lastQuote(s.symbols.GoldFutures, goldFut),
		ETF:     lastQuote(s.symbols.GoldETF, goldETF),
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("gold price unavailable")
		return nil, err
	}
	silver, err := pricing.Normalize(pricing.QuoteBatch{
		Metal:   pricing.Silver,
		Futures: lastQuote(s.symbols.SilverFutures, silverFut),
		ETF:     lastQuote(s.symbols.SilverETF, silverETF),
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("silver price unavailable")
		return nil, err
	}

	for _, p := range []pricing.CanonicalPrice{gold, silver} {
		if p.Source == pricing.SourceETFFallback {
			warnings = append(warnings, fmt.Sprintf("%s futures unavailable; spot derived from ETF price", p.Metal))
		}
	}

	derived, err := pricing.Derive(gold, silver, budgetHome, s.exchangeRate)
	if err != nil {
		s.logger.Error().Err(err).Msg("derive metrics")
		return nil, err
	}

	s.recorder.RecordSpot(gold.Metal.String(), gold.Source.String(), gold.USDPerTroyOunce.InexactFloat64())
	s.recorder.RecordSpot(silver.Metal.String(), silver.Source.String(), silver.USDPerTroyOunce.InexactFloat64())
	s.recorder.RecordRatio(derived.GoldSilverRatio.InexactFloat64())

	dash := &Dashboard{
		FetchedAt:  s.now().UTC(),
		Gold:       gold,
		Silver:     silver,
		GoldETF:    lastClose(goldETF),
		SilverETF:  lastClose(silverETF),
		GoldHigh:   maxHigh(goldETF, s.highLookback),
		SilverHigh: maxHigh(silverETF, s.highLookback),
		Metrics:    derived,
		Advice:     derived.Insight.Advice(),
		Trend:      alignCloses(silverETF, goldETF),
		Warnings:   warnings,
	}

	s.logger.Info().
		Str("gold_usd", gold.USDPerTroyOunce.StringFixed(2)).
		Stringer("gold_source", gold.Source).
		Str("silver_usd", silver.USDPerTroyOunce.StringFixed(2)).
		Stringer("silver_source", silver.Source).
		Str("ratio", derived.GoldSilverRatio.StringFixed(2)).
		Msg("snapshot computed")

	return dash, nil
}

// CityPrice localizes the silver per-gram INR price. Unknown cities get a
// zero-premium estimate with a warning.
func (s *Service) CityPrice(dash *Dashboard, city string) CityQuote {
	est, err := s.premiums.Adjust(dash.Metrics.SilverPerGramINR, city)
	if err != nil {
		s.logger.Warn().Err(err).Str("city", city).Msg("no premium for city")
		return CityQuote{
			CityPriceEstimate: est,
			Warning:           fmt.Sprintf("No local premium known for %q; showing the base price.", est.City),
		}
	}
	return CityQuote{CityPriceEstimate: est}
}

// Trend returns the closing prices of symbol over window, oldest first.
func (s *Service) Trend(ctx context.Context, symbol, window string) ([]SeriesPoint, error) {
	if symbol == "" {
		symbol = s.symbols.SilverETF
	}
	if window == "" {
		window = s.windows.Trend
	}

	bars, err := s.fetch(ctx, symbol, window)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w for %s", pricing.ErrNoPriceData, symbol)
	}

	points := make([]SeriesPoint, 0, len(bars))
	for _, b := range bars {
		points = append(points, SeriesPoint{Date: b.Date, Close: b.Close})
	}
	return points, nil
}

// Forecast runs the silver model against the dashboard's silver spot.
func (s *Service) Forecast(ctx context.Context, dash *Dashboard) (prediction.Forecast, error) {
	if s.forecaster == nil {
		s.recorder.RecordOutcome("prediction", "unavailable")
		return prediction.Forecast{}, prediction.ErrModelUnavailable
	}

	f, err := s.forecaster.Forecast(ctx, dash.Silver.USDPerTroyOunce)
	switch {
	case err == nil:
		s.recorder.RecordOutcome("prediction", "ok")
	case errors.Is(err, prediction.ErrCoercion):
		s.recorder.RecordOutcome("prediction", "invalid_output")
	default:
		s.recorder.RecordOutcome("prediction", "unavailable")
	}
	return f, err
}

// PublishForecast delivers a forecast through the configured notifier.
func (s *Service) PublishForecast(ctx context.Context, dash *Dashboard, f prediction.Forecast) error {
	if s.notifier == nil {
		return errors.New("no notifier configured")
	}
	note := alerting.Notification{
		At:             dash.FetchedAt,
		CurrentUSD:     f.Current,
		TargetUSD:      f.Target,
		Recommendation: f.Recommendation.String(),
		PriceSource:    dash.Silver.Source.String(),
		GoldSilver:     dash.Metrics.GoldSilverRatio,
		Insight:        string(dash.Metrics.Insight),
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Msg("failed to dispatch forecast")
		return err
	}
	return nil
}

// Converse runs one conversation turn and records it on the session.
func (s *Service) Converse(ctx context.Context, sess *session.Session, question string) chat.Result {
	var res chat.Result
	if s.bot == nil {
		res = chat.Result{History: sess.Conversation, Err: chat.ErrNotConfigured}
	} else {
		res = s.bot.Reply(ctx, sess.Conversation, question)
	}

	switch {
	case res.Err == nil:
		s.recorder.RecordOutcome("chat", "ok")
	case errors.Is(res.Err, chat.ErrNotConfigured):
		s.recorder.RecordOutcome("chat", "not_configured")
	default:
		s.recorder.RecordOutcome("chat", "error")
	}

	sess.Record(question, res)
	return res
}

func (s *Service) fetch(ctx context.Context, symbol, window string) ([]fetcher.Bar, error) {
	started := time.Now()
	bars, err := s.market.FetchSeries(ctx, symbol, window)
	s.recorder.ObserveFetch(symbol, time.Since(started), err)
	return bars, err
}

// fetchOptional treats a failed fetch as an absent series.
func (s *Service) fetchOptional(ctx context.Context, symbol, window string) []fetcher.Bar {
	bars, err := s.fetch(ctx, symbol, window)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("series unavailable")
		return nil
	}
	if len(bars) == 0 {
		s.logger.Warn().Str("symbol", symbol).Msg("series empty")
	}
	return bars
}
