package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"metals-dashboard/internal/logging"
)

const predictPath = "/predict"

// RemoteModel calls a model-serving endpoint over HTTP.
type RemoteModel struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

type predictRequest struct {
	Features [][]float64 `json:"features"`
}

type predictResponse struct {
	Prediction Output `json:"prediction"`
}

// NewRemoteModel builds a client for baseURL.
func NewRemoteModel(baseURL string, timeout time.Duration, logger zerolog.Logger) *RemoteModel {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RemoteModel{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logging.Component(logger, "prediction"),
	}
}

// Predict implements Model.
func (r *RemoteModel) Predict(ctx context.Context, features []float64) (Output, error) {
	var resp predictResponse
	if err := r.postJSON(ctx, predictPath, predictRequest{Features: [][]float64{features}}, &resp); err != nil {
		return Output{}, err
	}
	return resp.Prediction, nil
}

func (r *RemoteModel) postJSON(ctx context.Context, path string, payload, dest any) error {
	if r.baseURL == "" {
		return fmt.Errorf("model service url not configured")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		r.logger.Warn().Int("status", resp.StatusCode).Msg("model service returned error")
		return fmt.Errorf("post %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

var _ Model = (*RemoteModel)(nil)
