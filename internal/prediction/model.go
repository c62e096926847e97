package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"metals-dashboard/internal/config"
)

// Model maps a feature row to a raw output.
type Model interface {
	Predict(ctx context.Context, features []float64) (Output, error)
}

const linearKind = "linear"

// Artifact is the on-disk description of a trained linear regressor.
type Artifact struct {
	Kind         string    `json:"kind"`
	Feature      string    `json:"feature"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
	TrainedAt    time.Time `json:"trained_at,omitempty"`
}

// LinearModel evaluates intercept + Σ coef·x. Its output is a one-element
// sequence, the shape batch regressors return for a single row.
type LinearModel struct {
	artifact Artifact
}

// NewLinearModel validates an artifact and wraps it.
func NewLinearModel(a Artifact) (*LinearModel, error) {
	if a.Kind != "" && a.Kind != linearKind {
		return nil, fmt.Errorf("unsupported model kind %q", a.Kind)
	}
	if len(a.Coefficients) == 0 {
		return nil, errors.New("model artifact has no coefficients")
	}
	return &LinearModel{artifact: a}, nil
}

// LoadArtifact reads a JSON model artifact from disk.
func LoadArtifact(path string) (*LinearModel, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("decode model artifact %s: %w", path, err)
	}
	return NewLinearModel(a)
}

// Feature names the input the model was trained on.
func (m *LinearModel) Feature() string {
	return m.artifact.Feature
}

// Predict implements Model.
func (m *LinearModel) Predict(ctx context.Context, features []float64) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	if len(features) != len(m.artifact.Coefficients) {
		return Output{}, fmt.Errorf("expected %d features, got %d", len(m.artifact.Coefficients), len(features))
	}
	y := m.artifact.Intercept
	for i, x := range features {
		y += m.artifact.Coefficients[i] * x
	}
	return Floats(y), nil
}

// Open selects the configured model: the remote service when a URL is set,
// otherwise the local artifact. Called once per process.
func Open(cfg config.PredictionConfig, logger zerolog.Logger) (Model, error) {
	if cfg.ServiceURL != "" {
		return NewRemoteModel(cfg.ServiceURL, cfg.RequestTimeout, logger), nil
	}
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("%w: no model path configured", ErrModelUnavailable)
	}
	model, err := LoadArtifact(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	return model, nil
}

var _ Model = (*LinearModel)(nil)
