package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metals-dashboard/internal/alerting"
	"metals-dashboard/internal/chat"
	"metals-dashboard/internal/config"
	"metals-dashboard/internal/fetcher"
	"metals-dashboard/internal/prediction"
	"metals-dashboard/internal/pricing"
	"metals-dashboard/internal/session"
)

type fakeFetcher struct {
	mu     sync.Mutex
	series map[string][]fetcher.Bar
	errs   map[string]error
	calls  []string
}

func (f *fakeFetcher) FetchSeries(ctx context.Context, symbol, window string) ([]fetcher.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, symbol+"/"+window)
	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	return f.series[symbol], nil
}

type fakeRecorder struct {
	fetches  int
	outcomes map[string]int
	ratio    float64
}

func (r *fakeRecorder) ObserveFetch(string, time.Duration, error) { r.fetches++ }
func (r *fakeRecorder) RecordSpot(string, string, float64) {}
func (r *fakeRecorder) RecordRatio(v float64) { r.ratio = v }
func (r *fakeRecorder) RecordOutcome(adapter, outcome string) {
	if r.outcomes == nil {
		r.outcomes = map[string]int{}
	}
	r.outcomes[adapter+"/"+outcome]++
}

type stubModel struct{ out prediction.Output }

func (s stubModel) Predict(context.Context, []float64) (prediction.Output, error) {
	return s.out, nil
}

type captureNotifier struct{ notes []alerting.Notification }

func (c *captureNotifier) Notify(_ context.Context, n alerting.Notification) error {
	c.notes = append(c.notes, n)
	return nil
}

var day0 = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func flat(days int, start time.Time, close, high string) []fetcher.Bar {
	bars := make([]fetcher.Bar, 0, days)
	for i := 0; i < days; i++ {
		bars = append(bars, fetcher.Bar{
			Date:  start.AddDate(0, 0, i),
			Close: decimal.RequireFromString(close),
			High:  decimal.RequireFromString(high),
		})
	}
	return bars
}

func testConfig() *config.Config {
	return &config.Config{
		Market: config.MarketConfig{
			HighLookback: 10,
			Symbols: config.SymbolsConfig{
				GoldFutures:   "GC=F",
				SilverFutures: "SI=F",
				GoldETF:       "GLD",
				SilverETF:     "SLV",
			},
			Windows: config.WindowsConfig{ETF: "30d", Futures: "5d", Trend: "1y"},
		},
		Pricing: config.PricingConfig{USDINRRate: 91.09, DefaultBudgetINR: 100000},
	}
}

func fullMarket() *fakeFetcher {
	return &fakeFetcher{series: map[string][]fetcher.Bar{
		"GC=F": flat(5, day0, "200000", "201000"),
		"SI=F": flat(5, day0, "120000", "121000"),
		"GLD":  flat(30, day0, "185", "186"),
		"SLV":  flat(30, day0, "22", "23"),
	}}
}

func newService(t *testing.T, market fetcher.MarketDataFetcher, forecaster *prediction.Adapter, rec Recorder) *Service {
	t.Helper()
	table, err := pricing.NewPremiumTable(map[string]float64{"Mumbai": 20, "Delhi": 15})
	require.NoError(t, err)
	return New(testConfig(), market, table, forecaster, nil, nil, rec, zerolog.Nop())
}

func TestSnapshotPrefersFutures(t *testing.T) {
	market := fullMarket()
	rec := &fakeRecorder{}
	svc := newService(t, market, nil, rec)

	dash, err := svc.Snapshot(context.Background(), decimal.NewFromInt(100000))
	require.NoError(t, err)

	assert.Equal(t, pricing.SourceFutures, dash.Gold.Source)
	assert.True(t, dash.Gold.USDPerTroyOunce.Equal(decimal.NewFromInt(2000)))
	assert.True(t, dash.Silver.USDPerTroyOunce.Equal(decimal.NewFromInt(24)))
	assert.Equal(t, pricing.InsightSilverFavored, dash.Metrics.Insight)
	assert.Equal(t, pricing.InsightSilverFavored.Advice(), dash.Advice)
	assert.Empty(t, dash.Warnings)
	assert.Equal(t, 4, rec.fetches)
	assert.InDelta(t, 83.333, rec.ratio, 0.001)

	assert.Contains(t, market.calls, "SLV/30d")
	assert.Contains(t, market.calls, "GC=F/5d")

	require.True(t, dash.SilverHigh.Valid)
	assert.True(t, dash.SilverHigh.Decimal.Equal(decimal.NewFromInt(23)))
	require.True(t, dash.GoldETF.Valid)
	assert.True(t, dash.GoldETF.Decimal.Equal(decimal.NewFromInt(185)))
	assert.Len(t, dash.Trend, 30)
}

func TestSnapshotFallsBackToETF(t *testing.T) {
	market := fullMarket()
	market.errs = map[string]error{"GC=F": errors.New("timeout")}
	market.series["SI=F"] = nil

	svc := newService(t, market, nil, nil)
	dash, err := svc.Snapshot(context.Background(), decimal.Zero)
	require.NoError(t, err)

	assert.Equal(t, pricing.SourceETFFallback, dash.Gold.Source)
	assert.True(t, dash.Gold.USDPerTroyOunce.Equal(decimal.NewFromInt(1850)))
	assert.Equal(t, pricing.SourceETFFallback, dash.Silver.Source)
	assert.True(t, dash.Silver.USDPerTroyOunce.Equal(decimal.NewFromInt(22)))
	assert.Len(t, dash.Warnings, 2)
}

func TestSnapshotNoDataIsHardStop(t *testing.T) {
	market := fullMarket()
	market.series["SI=F"] = nil
	market.series["SLV"] = nil

	svc := newService(t, market, nil, nil)
	_, err := svc.Snapshot(context.Background(), decimal.Zero)
	require.ErrorIs(t, err, pricing.ErrNoPriceData)
}

func TestSnapshotWithoutETFHasNoHighs(t *testing.T) {
	market := fullMarket()
	market.errs = map[string]error{"GLD": errors.New("boom"), "SLV": errors.New("boom")}

	svc := newService(t, market, nil, nil)
	dash, err := svc.Snapshot(context.Background(), decimal.Zero)
	require.NoError(t, err)
	assert.False(t, dash.GoldHigh.Valid)
	assert.False(t, dash.SilverETF.Valid)
	assert.Empty(t, dash.Trend)
}

func TestMaxHighUsesLookback(t *testing.T) {
	bars := flat(15, day0, "20", "21")
	bars[2].High = decimal.NewFromInt(99)
	bars[12].High = decimal.NewFromInt(25)

	got := maxHigh(bars, 10)
	require.True(t, got.Valid)
	assert.True(t, got.Decimal.Equal(decimal.NewFromInt(25)), "bar outside the lookback ignored")
	assert.False(t, maxHigh(nil, 10).Valid)
}

func TestAlignClosesByDate(t *testing.T) {
	silver := flat(5, day0, "22", "22")
	gold := flat(3, day0.AddDate(0, 0, 1), "185", "185")

	points := alignCloses(silver, gold)
	require.Len(t, points, 3)
	assert.Equal(t, day0.AddDate(0, 0, 1), points[0].Date)
	assert.True(t, points[0].Gold.Equal(decimal.NewFromInt(185)))
	assert.True(t, points[2].Silver.Equal(decimal.NewFromInt(22)))
}

func TestCityPrice(t *testing.T) {
	svc := newService(t, fullMarket(), nil, nil)
	dash := &Dashboard{Metrics: pricing.DerivedMetrics{SilverPerGramINR: decimal.NewFromInt(100)}}

	q := svc.CityPrice(dash, "mumbai")
	assert.True(t, q.PremiumKnown)
	assert.True(t, q.FinalPerGramINR.Equal(decimal.NewFromInt(120)))
	assert.Empty(t, q.Warning)

	q = svc.CityPrice(dash, "Atlantis")
	assert.False(t, q.PremiumKnown)
	assert.True(t, q.FinalPerGramINR.Equal(decimal.NewFromInt(100)))
	assert.NotEmpty(t, q.Warning)

	assert.Equal(t, []string{"Delhi", "Mumbai"}, svc.Cities())
}

func TestTrend(t *testing.T) {
	market := fullMarket()
	svc := newService(t, market, nil, nil)

	points, err := svc.Trend(context.Background(), "", "")
	require.NoError(t, err)
	assert.Len(t, points, 30)
	assert.Contains(t, market.calls, "SLV/1y")

	_, err = svc.Trend(context.Background(), "XAU", "1y")
	assert.ErrorIs(t, err, pricing.ErrNoPriceData)
}

func TestForecastAndPublish(t *testing.T) {
	rec := &fakeRecorder{}
	adapter := prediction.NewAdapter(stubModel{out: prediction.Floats(25)}, zerolog.Nop())
	notifier := &captureNotifier{}

	table, err := pricing.NewPremiumTable(map[string]float64{"Mumbai": 20})
	require.NoError(t, err)
	svc := New(testConfig(), fullMarket(), table, adapter, nil, notifier, rec, zerolog.Nop())

	dash, err := svc.Snapshot(context.Background(), decimal.Zero)
	require.NoError(t, err)

	f, err := svc.Forecast(context.Background(), dash)
	require.NoError(t, err)
	assert.Equal(t, prediction.Buy, f.Recommendation)
	assert.Equal(t, 1, rec.outcomes["prediction/ok"])

	require.NoError(t, svc.PublishForecast(context.Background(), dash, f))
	require.Len(t, notifier.notes, 1)
	assert.Equal(t, "BUY", notifier.notes[0].Recommendation)
	assert.Equal(t, "FUTURES", notifier.notes[0].PriceSource)
}

func TestForecastWithoutModel(t *testing.T) {
	rec := &fakeRecorder{}
	svc := newService(t, fullMarket(), nil, rec)
	_, err := svc.Forecast(context.Background(), &Dashboard{})
	assert.ErrorIs(t, err, prediction.ErrModelUnavailable)
	assert.Equal(t, 1, rec.outcomes["prediction/unavailable"])

	assert.Error(t, svc.PublishForecast(context.Background(), &Dashboard{}, prediction.Forecast{}))
}

func TestConverseWithoutBot(t *testing.T) {
	rec := &fakeRecorder{}
	svc := newService(t, fullMarket(), nil, rec)
	sess := session.New("")

	res := svc.Converse(context.Background(), sess, "What is silver?")
	assert.ErrorIs(t, res.Err, chat.ErrNotConfigured)
	assert.Empty(t, sess.Conversation)
	require.Len(t, sess.Transcript, 2)
	assert.Equal(t, res.Text(), sess.Transcript[1].Content)
	assert.Equal(t, 1, rec.outcomes["chat/not_configured"])
}

func TestConverseWithUnconfiguredBot(t *testing.T) {
	table, err := pricing.NewPremiumTable(map[string]float64{"Mumbai": 20})
	require.NoError(t, err)
	bot := chat.NewBot(config.ChatConfig{HistoryLimit: 20}, zerolog.Nop())
	svc := New(testConfig(), fullMarket(), table, nil, bot, nil, nil, zerolog.Nop())

	sess := session.New("")
	res := svc.Converse(context.Background(), sess, "hi")
	assert.ErrorIs(t, res.Err, chat.ErrNotConfigured)
	assert.Len(t, sess.Transcript, 2)
}
