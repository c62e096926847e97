package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"metals-dashboard/internal/alerting"
	"metals-dashboard/internal/chat"
	"metals-dashboard/internal/config"
	"metals-dashboard/internal/fetcher"
	"metals-dashboard/internal/logging"
	"metals-dashboard/internal/metrics"
	"metals-dashboard/internal/prediction"
	"metals-dashboard/internal/pricing"
	"metals-dashboard/internal/scheduler"
	"metals-dashboard/internal/server"
	"metals-dashboard/internal/service"
	"metals-dashboard/internal/session"
	"metals-dashboard/internal/version"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer

	// market overrides the provider; nil means the configured Yahoo endpoint.
	market fetcher.MarketDataFetcher
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{
		Config: cfg,
		Logger: logging.Component(logger, "app"),
		Out:    os.Stdout,
	}
}

func (a *App) newMarket() fetcher.MarketDataFetcher {
	if a.market != nil {
		return a.market
	}
	ua := a.Config.Market.UserAgent
	if ua == "" {
		ua = version.UserAgent()
	}
	return fetcher.NewYahoo(fetcher.YahooOptions{
		BaseURL:   a.Config.Market.BaseURL,
		Interval:  a.Config.Market.Interval,
		Timeout:   a.Config.Market.RequestTimeout,
		UserAgent: ua,
	}, a.Logger)
}

// newForecaster loads the model once. A missing model is not fatal: the
// dashboard keeps working and forecast requests report it.
func (a *App) newForecaster() *prediction.Adapter {
	model, err := prediction.Open(a.Config.Prediction, a.Logger)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("prediction model unavailable; forecasts disabled")
		return prediction.NewAdapter(nil, a.Logger)
	}
	return prediction.NewAdapter(model, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) newSessionStore(ctx context.Context) (session.Store, func(), error) {
	cfg := a.Config.Session
	if cfg.Backend != config.SessionBackendRedis {
		return session.NewMemoryStore(cfg.TTL), func() {}, nil
	}

	client := session.NewRedisClient(cfg.Redis)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
	}
	closer := func() {
		if err := client.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("close redis client")
		}
	}
	return session.NewRedisStore(client, cfg.Redis.Prefix, cfg.TTL), closer, nil
}

func (a *App) newService(market fetcher.MarketDataFetcher, recorder service.Recorder) (*service.Service, error) {
	premiums, err := pricing.NewPremiumTable(a.Config.CityPremiums())
	if err != nil {
		return nil, err
	}
	bot := chat.NewBot(a.Config.Chat, a.Logger)
	if !bot.Configured() {
		a.Logger.Warn().Msg("chat.api_key not configured; advisor bot disabled")
	}
	return service.New(a.Config, market, premiums, a.newForecaster(), bot, a.newNotifier(), recorder, a.Logger), nil
}

// Serve runs the web dashboard until interrupted.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sessions, closeSessions, err := a.newSessionStore(ctx)
	if err != nil {
		return err
	}
	defer closeSessions()

	recorder := metrics.New()
	svc, err := a.newService(a.newMarket(), recorder)
	if err != nil {
		return err
	}

	handler := server.NewHandler(a.Config, svc, sessions, a.Logger)
	srv := server.New(a.Config.Server, handler, recorder, a.Logger)

	a.Logger.Info().Str("commit", version.Get().Commit).Str("session_backend", a.Config.Session.Backend).Msg("starting dashboard")
	if err := srv.Run(ctx); err != nil {
		a.Logger.Error().Err(err).Msg("dashboard terminated with error")
		return err
	}
	a.Logger.Info().Msg("dashboard stopped")
	return nil
}

// Watch publishes a silver forecast on every configured interval until
// interrupted.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if a.newNotifier() == nil {
		return errors.New("alerting.telegram is not enabled; nothing to publish to")
	}

	sched, err := scheduler.New(scheduler.OptionsFrom(a.Config.Watch), a.Logger)
	if err != nil {
		return err
	}
	svc, err := a.newService(a.newMarket(), nil)
	if err != nil {
		return err
	}

	a.Logger.Info().Dur("interval", a.Config.Watch.Interval).Msg("starting forecast watch")
	err = sched.Run(ctx, func(ctx context.Context, at time.Time) error {
		_, err := a.publishForecast(ctx, svc)
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.Logger.Info().Msg("forecast watch stopped")
	return nil
}

func (a *App) publishForecast(ctx context.Context, svc *service.Service) (prediction.Forecast, error) {
	dash, err := svc.Snapshot(ctx, svc.DefaultBudget())
	if err != nil {
		return prediction.Forecast{}, err
	}
	f, err := svc.Forecast(ctx, dash)
	if err != nil {
		return prediction.Forecast{}, err
	}
	return f, svc.PublishForecast(ctx, dash, f)
}
