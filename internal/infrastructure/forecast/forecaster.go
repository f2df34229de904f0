package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Point is one dated quantity in a consumption series
type Point struct {
	Date     time.Time       `json:"date"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Forecaster projects future demand from a consumption history.
// The forecast process runs separately; callers must treat failures as
// non-blocking and fall back to an empty projection.
type Forecaster interface {
	Forecast(ctx context.Context, history []Point) ([]Point, error)
}

// HTTPForecaster calls the external forecast service over HTTP
type HTTPForecaster struct {
	baseURL string
	client  *http.Client
}

// NewHTTPForecaster creates a forecaster client for the given base URL
func NewHTTPForecaster(baseURL string, timeout time.Duration) *HTTPForecaster {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPForecaster{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type forecastRequest struct {
	History []Point `json:"history"`
}

type forecastResponse struct {
	Points []Point `json:"points"`
}

// Forecast posts the history to the forecast service and returns the
// projected points
func (f *HTTPForecaster) Forecast(ctx context.Context, history []Point) ([]Point, error) {
	body, err := json.Marshal(forecastRequest{History: history})
	if err != nil {
		return nil, fmt.Errorf("failed to encode forecast request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/forecast", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build forecast request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("forecast service returned status %d", resp.StatusCode)
	}

	var out forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode forecast response: %w", err)
	}
	return out.Points, nil
}

// Ensure HTTPForecaster implements Forecaster
var _ Forecaster = (*HTTPForecaster)(nil)
