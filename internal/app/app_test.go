package app

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metals-dashboard/internal/config"
	"metals-dashboard/internal/pricing"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	modelPath := filepath.Join(t.TempDir(), "silver_model.json")
	require.NoError(t, os.WriteFile(modelPath, []byte(`{"kind":"linear","feature":"silver_usd","coefficients":[1.1],"intercept":0}`), 0o600))

	return &config.Config{
		Market: config.MarketConfig{
			HighLookback: 10,
			Symbols:      config.SymbolsConfig{GoldFutures: "GC=F", SilverFutures: "SI=F", GoldETF: "GLD", SilverETF: "SLV"},
			Windows:      config.WindowsConfig{ETF: "30d", Futures: "5d", Trend: "1y"},
		},
		Pricing:    config.PricingConfig{USDINRRate: 91.09, DefaultBudgetINR: 100000, Cities: config.DefaultCities()},
		Prediction: config.PredictionConfig{ModelPath: modelPath},
		Chat:       config.ChatConfig{HistoryLimit: 20},
		Session:    config.SessionConfig{Backend: config.SessionBackendMemory, TTL: time.Hour},
		Watch:      config.WatchConfig{Interval: time.Hour},
		Export:     config.ExportConfig{MaxDataPoints: 50},
	}
}

func newTestApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	a := NewApp(testConfig(t), zerolog.Nop())
	a.Out = out
	a.market = a.staticMarket(decimal.NewFromInt(2000), decimal.NewFromInt(28))
	return a, out
}

func TestShowPrintsSnapshot(t *testing.T) {
	a, out := newTestApp(t)
	require.NoError(t, a.Show(context.Background(), ShowOptions{}))

	text := out.String()
	assert.Contains(t, text, "2000.00")
	assert.Contains(t, text, "28.00")
	assert.Contains(t, text, "FUTURES")
	assert.Contains(t, text, "Gold/Silver ratio: 71.4")
	assert.Contains(t, text, "Budget: 100000 INR")
}

func TestShowWithZeroAmountHidesBudget(t *testing.T) {
	a, out := newTestApp(t)
	require.NoError(t, a.Show(context.Background(), ShowOptions{Amount: decimal.NewNullDecimal(decimal.Zero)}))
	assert.NotContains(t, out.String(), "You can buy")
}

func TestCityListsEveryCity(t *testing.T) {
	a, out := newTestApp(t)
	require.NoError(t, a.City(context.Background(), CityOptions{}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 1+len(config.DefaultCities()))
	assert.Contains(t, out.String(), "Mumbai")
}

func TestCityUnknownCarriesNote(t *testing.T) {
	a, out := newTestApp(t)
	require.NoError(t, a.City(context.Background(), CityOptions{City: "Atlantis"}))
	assert.Contains(t, out.String(), "No local premium known")
}

func TestCalc(t *testing.T) {
	a, out := newTestApp(t)
	require.NoError(t, a.Calc(CalcOptions{PricePerGram: decimal.RequireFromString("92.5"), Budget: decimal.NewFromInt(100000)}))
	assert.Equal(t, "With 100000 INR, you can buy approximately 1081.08 grams of silver\n", out.String())

	err := a.Calc(CalcOptions{PricePerGram: decimal.Zero, Budget: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, pricing.ErrInvalidPrice)
}

func TestForecastUsesArtifact(t *testing.T) {
	a, out := newTestApp(t)
	require.NoError(t, a.Forecast(context.Background(), ForecastOptions{}))
	assert.Contains(t, out.String(), "BUY SILVER")
	assert.Contains(t, out.String(), "AI Target Price: $30.80")
}

func TestForecastWithoutModelFails(t *testing.T) {
	a, _ := newTestApp(t)
	a.Config.Prediction.ModelPath = filepath.Join(t.TempDir(), "missing.json")
	assert.Error(t, a.Forecast(context.Background(), ForecastOptions{}))
}

func TestForecastNotifyNeedsTelegram(t *testing.T) {
	a, _ := newTestApp(t)
	assert.Error(t, a.Forecast(context.Background(), ForecastOptions{Notify: true}))
}

func TestAskWithoutKeyPrintsNotice(t *testing.T) {
	a, out := newTestApp(t)
	require.NoError(t, a.Ask(context.Background(), "Is silver a good buy?"))
	assert.NotEmpty(t, strings.TrimSpace(out.String()))
}

func TestSimulateNotifies(t *testing.T) {
	var hits atomic.Int32
	tg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "/bottoken/sendMessage", r.URL.Path)
		assert.Contains(t, string(body), "BUY")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer tg.Close()

	a, out := newTestApp(t)
	a.Config.Alerting.Telegram = config.TelegramConfig{Enabled: true, BotToken: "token", ChatID: "42", APIBase: tg.URL}

	err := a.Simulate(context.Background(), SimulateOptions{
		GoldUSD:   decimal.NewFromInt(2400),
		SilverUSD: decimal.NewFromInt(30),
		Notify:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
	assert.Contains(t, out.String(), "2400.00")
	assert.Contains(t, out.String(), "AI Target Price: $33.00")
}

func TestSimulateRejectsNonPositive(t *testing.T) {
	a, _ := newTestApp(t)
	assert.Error(t, a.Simulate(context.Background(), SimulateOptions{GoldUSD: decimal.NewFromInt(1)}))
}

func TestExportWritesFiles(t *testing.T) {
	a, _ := newTestApp(t)
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "out", "slv.csv")
	pngPath := filepath.Join(dir, "out", "slv.png")

	require.NoError(t, a.Export(context.Background(), ExportOptions{CSVPath: csvPath, PNGPath: pngPath, MaxPoints: 20}))

	raw, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.Len(t, lines, 21)
	assert.Equal(t, "date,SLV", lines[0])

	png, err := os.ReadFile(pngPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestExportComparison(t *testing.T) {
	a, _ := newTestApp(t)
	csvPath := filepath.Join(t.TempDir(), "trend.csv")

	require.NoError(t, a.Export(context.Background(), ExportOptions{CSVPath: csvPath, Comparison: true}))
	raw, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "date,Silver Price,Gold Price"))
}

func TestExportNeedsOutput(t *testing.T) {
	a, _ := newTestApp(t)
	assert.Error(t, a.Export(context.Background(), ExportOptions{}))
}

func TestPublishForecastThroughWatchJob(t *testing.T) {
	var hits atomic.Int32
	tg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer tg.Close()

	a, _ := newTestApp(t)
	a.Config.Alerting.Telegram = config.TelegramConfig{Enabled: true, BotToken: "t", ChatID: "1", APIBase: tg.URL}

	svc, err := a.newService(a.newMarket(), nil)
	require.NoError(t, err)
	f, err := a.publishForecast(context.Background(), svc)
	require.NoError(t, err)
	assert.Equal(t, "30.80", f.Target.StringFixed(2))
	assert.Equal(t, int32(1), hits.Load())
}
