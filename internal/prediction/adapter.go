package prediction

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"metals-dashboard/internal/logging"
)

// Recommendation is the trading call derived from a forecast.
type Recommendation int

const (
	Buy Recommendation = iota + 1
	HoldSell
)

func (r Recommendation) String() string {
	switch r {
	case Buy:
		return "BUY"
	case HoldSell:
		return "HOLD/SELL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Recommendation) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Forecast is a single silver price forecast.
type Forecast struct {
	Current        decimal.Decimal `json:"current_usd"`
	Target         decimal.Decimal `json:"target_usd"`
	Recommendation Recommendation  `json:"recommendation"`
}

// Headline renders the recommendation line shown to users.
func (f Forecast) Headline() string {
	if f.Recommendation == Buy {
		return "✅ RECOMMENDATION: BUY SILVER"
	}
	return "❌ RECOMMENDATION: HOLD/SELL"
}

// TargetLine renders the target price line shown to users.
func (f Forecast) TargetLine() string {
	return fmt.Sprintf("AI Target Price: $%s", f.Target.StringFixed(2))
}

// Adapter feeds the current silver spot to a model and interprets the result.
type Adapter struct {
	model  Model
	logger zerolog.Logger
}

// NewAdapter wraps model. A nil model makes every forecast fail with
// ErrModelUnavailable.
func NewAdapter(model Model, logger zerolog.Logger) *Adapter {
	return &Adapter{
		model:  model,
		logger: logging.Component(logger, "prediction"),
	}
}

// Available reports whether a model is loaded.
func (a *Adapter) Available() bool {
	return a != nil && a.model != nil
}

// Forecast predicts the next silver price from the current spot (USD/oz).
func (a *Adapter) Forecast(ctx context.Context, current decimal.Decimal) (Forecast, error) {
	if !a.Available() {
		return Forecast{}, ErrModelUnavailable
	}

	raw, err := a.model.Predict(ctx, []float64{current.InexactFloat64()})
	if err != nil {
		a.logger.Warn().Err(err).Msg("model prediction failed")
		return Forecast{}, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}

	target, err := Coerce(raw)
	if err != nil {
		a.logger.Warn().Err(err).Msg("model output rejected")
		return Forecast{}, err
	}

	rec := HoldSell
	if target.GreaterThan(current) {
		rec = Buy
	}

	a.logger.Debug().
		Str("current", current.String()).
		Str("target", target.String()).
		Stringer("recommendation", rec).
		Msg("forecast computed")

	return Forecast{Current: current, Target: target, Recommendation: rec}, nil
}
