package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "metalsdash"

// Recorder exposes dashboard metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	fetchesTotal  *prometheus.CounterVec
	fetchLatency  *prometheus.HistogramVec
	spotPrice     *prometheus.GaugeVec
	ratio         prometheus.Gauge
	outcomesTotal *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge
}

// New creates a recorder with process and Go runtime collectors attached.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		fetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "market_fetches_total",
				Help:      "Market-data fetches by symbol and result",
			},
			[]string{"symbol", "result"},
		),
		fetchLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "market_fetch_duration_seconds",
				Help:      "Duration of market-data fetches in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"symbol"},
		),
		spotPrice: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "spot_price_usd_per_ounce",
				Help:      "Last canonical spot price per metal",
			},
			[]string{"metal", "source"},
		),
		ratio: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gold_silver_ratio",
			Help:      "Last computed gold/silver ratio",
		}),
		outcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "adapter_calls_total",
				Help:      "Prediction and conversation calls by outcome",
			},
			[]string{"adapter", "outcome"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method", "class"},
		),
		httpInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "Current number of in-flight HTTP requests",
		}),
	}
}

// ObserveFetch records one market-data fetch.
func (r *Recorder) ObserveFetch(symbol string, took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.fetchesTotal.WithLabelValues(symbol, result).Inc()
	r.fetchLatency.WithLabelValues(symbol).Observe(took.Seconds())
}

// RecordSpot records the canonical price of a metal.
func (r *Recorder) RecordSpot(metal, source string, usd float64) {
	r.spotPrice.WithLabelValues(metal, source).Set(usd)
}

// RecordRatio records the gold/silver ratio.
func (r *Recorder) RecordRatio(ratio float64) {
	r.ratio.Set(ratio)
}

// RecordOutcome counts an adapter call, e.g. ("chat", "not_configured").
func (r *Recorder) RecordOutcome(adapter, outcome string) {
	r.outcomesTotal.WithLabelValues(adapter, outcome).Inc()
}

// HTTPStarted marks a request in flight and returns its completion hook.
func (r *Recorder) HTTPStarted() func(route, method string, status int) {
	r.httpInFlight.Inc()
	start := time.Now()
	return func(route, method string, status int) {
		r.httpInFlight.Dec()
		r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
		r.httpDuration.WithLabelValues(route, method, statusClass(status)).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func statusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
