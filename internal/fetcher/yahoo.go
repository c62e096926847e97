package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"metals-dashboard/internal/logging"
)

const (
	yahooChartPath   = "/v8/finance/chart/"
	defaultYahooBase = "https://query1.finance.yahoo.com"
)

// YahooOptions parameterise the chart API fetcher.
type YahooOptions struct {
	BaseURL   string
	Interval  string
	Timeout   time.Duration
	UserAgent string
}

// Yahoo fetches daily series from the Yahoo Finance chart endpoint.
type Yahoo struct {
	opts    YahooOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewYahoo constructs a market-data fetcher.
func NewYahoo(opts YahooOptions, logger zerolog.Logger) *Yahoo {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if opts.Interval == "" {
		opts.Interval = "1d"
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultYahooBase
	}

	return &Yahoo{
		opts:    opts,
		logger:  logging.Component(logger, "market_fetcher"),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchSeries retrieves the series for symbol over window.
func (y *Yahoo) FetchSeries(ctx context.Context, symbol, window string) ([]Bar, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, errors.New("symbol required")
	}
	if window == "" {
		return nil, errors.New("window required")
	}

	query := url.Values{}
	query.Set("range", window)
	query.Set("interval", y.opts.Interval)
	endpoint := y.baseURL + yahooChartPath + url.PathEscape(symbol) + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(y.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "metalsdash/1.0")
	}

	started := time.Now()
	resp, err := y.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		y.logger.Warn().Str("symbol", symbol).Msg("symbol not found; returning empty series")
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseHTTPError(resp.StatusCode, payload)
	}

	var chart chartResponse
	if err := json.Unmarshal(payload, &chart); err != nil {
		return nil, fmt.Errorf("decode chart response: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("chart api error: %s", chart.Chart.Error.message())
	}

	bars := chart.bars()
	y.logger.Debug().
		Str("symbol", symbol).
		Str("window", window).
		Int("rows", len(bars)).
		Dur("took", time.Since(started)).
		Msg("series fetched")
	return bars, nil
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol   string `json:"symbol"`
		Currency string `json:"currency"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []chartQuote `json:"quote"`
	} `json:"indicators"`
}

type chartQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *chartError) message() string {
	switch {
	case e.Description != "":
		return e.Description
	case e.Code != "":
		return e.Code
	default:
		return "unknown error"
	}
}

// bars flattens the columnar payload; rows without a close are dropped.
func (c chartResponse) bars() []Bar {
	if len(c.Chart.Result) == 0 {
		return nil
	}
	res := c.Chart.Result[0]
	if len(res.Indicators.Quote) == 0 {
		return nil
	}
	q := res.Indicators.Quote[0]

	bars := make([]Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		closePx := at(q.Close, i)
		if closePx == nil {
			continue
		}
		bar := Bar{
			Date:  time.Unix(ts, 0).UTC(),
			Close: decimal.NewFromFloat(*closePx),
		}
		if v := at(q.Open, i); v != nil {
			bar.Open = decimal.NewFromFloat(*v)
		}
		if v := at(q.High, i); v != nil {
			bar.High = decimal.NewFromFloat(*v)
		}
		if v := at(q.Low, i); v != nil {
			bar.Low = decimal.NewFromFloat(*v)
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			bar.Volume = *q.Volume[i]
		}
		bars = append(bars, bar)
	}
	return bars
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr chartResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.Chart.Error != nil {
		return fmt.Errorf("market api error (%d): %s", status, apiErr.Chart.Error.message())
	}
	if len(payload) > 0 {
		return fmt.Errorf("market api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("market api error (%d)", status)
}

var _ MarketDataFetcher = (*Yahoo)(nil)
