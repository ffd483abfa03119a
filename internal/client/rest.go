// Package client is a small REST client for the crop prediction service.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"crop-advisor/internal/features"
	"crop-advisor/internal/ml"

	"github.com/go-resty/resty/v2"
)

// APIError is returned when the service answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("predictor: %d %s", e.StatusCode, e.Message)
}

type Client struct {
	base string
	rest *resty.Client
}

func New(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second) // default fallback
	}
	r.SetHeader("Content-Type", "application/json")
	return &Client{base: strings.TrimRight(base, "/"), rest: r}
}

// Predict asks the service for the crop recommended for reading.
func (c *Client) Predict(ctx context.Context, reading features.Reading) (*ml.PredictionResponse, error) {
	return c.PredictPayload(ctx, reading.Payload())
}

// PredictPayload posts an arbitrary feature object, which lets callers send
// partial or loosely typed requests.
func (c *Client) PredictPayload(ctx context.Context, payload map[string]any) (*ml.PredictionResponse, error) {
	result := &ml.PredictionResponse{}
	failure := &ml.ErrorResponse{}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(result).
		SetError(failure).
		Post(c.base + "/predict")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.IsError() {
		return nil, apiError(resp, failure)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d, body: %s", resp.StatusCode(), resp.String())
	}
	if result.RecommendedCrop == "" {
		return nil, errors.New("response has no recommended crop")
	}
	return result, nil
}

// Health reports whether the service has a model loaded. A 503 is a valid
// answer, not an error.
func (c *Client) Health(ctx context.Context) (bool, error) {
	health := &ml.HealthResponse{}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(health).
		SetError(health).
		Get(c.base + "/health")
	if err != nil {
		return false, fmt.Errorf("request failed: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK, http.StatusServiceUnavailable:
		return health.ModelLoaded, nil
	default:
		return false, &APIError{StatusCode: resp.StatusCode(), Message: resp.String()}
	}
}

func apiError(resp *resty.Response, failure *ml.ErrorResponse) error {
	msg := failure.Error
	if msg == "" {
		msg = resp.String()
	}
	return &APIError{StatusCode: resp.StatusCode(), Message: msg}
}
