package forecast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPForecaster_Forecast(t *testing.T) {
	t.Run("posts history and returns projected points", func(t *testing.T) {
		var gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path

			var req forecastRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Len(t, req.History, 2)

			resp := forecastResponse{Points: []Point{
				{Date: time.Now().Add(24 * time.Hour), Quantity: decimal.NewFromInt(3)},
			}}
			w.Header().Set("Content-Type", "application/json")
			require.NoError(t, json.NewEncoder(w).Encode(resp))
		}))
		defer server.Close()

		f := NewHTTPForecaster(server.URL, time.Second)
		points, err := f.Forecast(context.Background(), []Point{
			{Date: time.Now().Add(-48 * time.Hour), Quantity: decimal.NewFromInt(2)},
			{Date: time.Now().Add(-24 * time.Hour), Quantity: decimal.NewFromInt(4)},
		})

		require.NoError(t, err)
		assert.Equal(t, "/forecast", gotPath)
		require.Len(t, points, 1)
		assert.True(t, points[0].Quantity.Equal(decimal.NewFromInt(3)))
	})

	t.Run("non-200 status is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		f := NewHTTPForecaster(server.URL, time.Second)
		_, err := f.Forecast(context.Background(), nil)

		assert.ErrorContains(t, err, "status 503")
	})

	t.Run("unreachable service is an error", func(t *testing.T) {
		f := NewHTTPForecaster("http://127.0.0.1:1", 100*time.Millisecond)
		_, err := f.Forecast(context.Background(), nil)

		assert.ErrorContains(t, err, "unreachable")
	})
}
