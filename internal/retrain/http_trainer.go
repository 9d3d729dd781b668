package retrain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/churnwatch/churnwatch/internal/logger"
)

// HTTPTrainer delegates training to an external service, typically the
// Python side that owns the model code.
type HTTPTrainer struct {
	client   *http.Client
	endpoint string
}

type HTTPTrainerConfig struct {
	Endpoint string
	Timeout  time.Duration
}

func NewHTTPTrainer(cfg HTTPTrainerConfig) *HTTPTrainer {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Minute
	}

	return &HTTPTrainer{
		client: &http.Client{
			Timeout: timeout,
		},
		endpoint: cfg.Endpoint,
	}
}

func (t *HTTPTrainer) Train(ctx context.Context, req TrainRequest) (*TrainResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode request: %v", ErrTrainingFailed, err)
	}

	url := t.endpoint + "/train"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrTrainingFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	logger.WithRun(req.RunID).Debugf("Submitting training job to %s", url)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		// A cancelled or expired context surfaces as a transport error;
		// report the context cause so callers can tell them apart.
		switch ctx.Err() {
		case context.DeadlineExceeded:
			return nil, ErrTimeout
		case context.Canceled:
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrTrainingFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrTrainingFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrTrainingFailed, err)
	}

	var result TrainResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if result.Version == "" || result.Reference == nil {
		return nil, fmt.Errorf("%w: missing version or reference", ErrInvalidResponse)
	}

	logger.WithRun(req.RunID).Debugf("Training job produced candidate %s", result.Version)

	return &result, nil
}

func (t *HTTPTrainer) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

func (t *HTTPTrainer) Close() error {
	t.client.CloseIdleConnections()
	return nil
}
