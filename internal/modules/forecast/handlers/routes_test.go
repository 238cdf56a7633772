package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stavrou/ballast/internal/clients/mlapi"
	"github.com/stavrou/ballast/internal/modules/forecast"
	testingpkg "github.com/stavrou/ballast/internal/testing"
)

// stubML answers every symbol with a fixed +10% prediction.
type stubML struct{}

func (stubML) PredictBatch(stocks []mlapi.StockHistory, maxWorkers int) (map[string]mlapi.Prediction, mlapi.BatchSummary, error) {
	out := make(map[string]mlapi.Prediction)
	for _, s := range stocks {
		last := s.Closes[len(s.Closes)-1]
		predicted := last * 1.1
		out[s.Symbol] = mlapi.Prediction{Symbol: s.Symbol, PredictedPrice: &predicted, CurrentPrice: &last}
	}
	return out, mlapi.BatchSummary{Total: len(stocks), Successful: len(stocks)}, nil
}

func (stubML) VolatilityBatch(stocks []mlapi.StockHistory, maxWorkers int) (map[string]mlapi.Volatility, mlapi.BatchSummary, error) {
	out := make(map[string]mlapi.Volatility)
	for _, s := range stocks {
		vol := 0.2
		out[s.Symbol] = mlapi.Volatility{Symbol: s.Symbol, Annualized: &vol}
	}
	return out, mlapi.BatchSummary{Total: len(stocks), Successful: len(stocks)}, nil
}

func setupTestRouter(t *testing.T) (*chi.Mux, func()) {
	t.Helper()

	db, cleanup := testingpkg.NewTestDB(t, "cache")
	repo := forecast.NewRepository(db.Conn(), zerolog.Nop())
	service := forecast.NewService(stubML{}, repo, nil, forecast.ServiceConfig{TTL: time.Hour}, zerolog.Nop())

	router := chi.NewRouter()
	handler := NewHandler(service, zerolog.Nop())
	router.Route("/api", handler.RegisterRoutes)

	return router, cleanup
}

func refreshSymbols(t *testing.T, router *chi.Mux) {
	t.Helper()

	payload, err := json.Marshal(map[string]interface{}{
		"symbols": []string{"AAPL"},
		"closes":  map[string][]float64{"AAPL": {95, 98, 100}},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/forecasts/refresh", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRefreshEndpoint(t *testing.T) {
	router, cleanup := setupTestRouter(t)
	defer cleanup()

	payload, err := json.Marshal(map[string]interface{}{
		"symbols": []string{"AAPL"},
		"closes":  map[string][]float64{"AAPL": {95, 98, 100}},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/forecasts/refresh", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data forecast.RefreshResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Forecasts, 1)
	assert.InDelta(t, 0.1, resp.Data.Forecasts[0].ExpectedReturn, 1e-9)
	assert.Equal(t, 1, resp.Data.Summary.Successful)
}

func TestRefreshEndpointRequiresSymbols(t *testing.T) {
	router, cleanup := setupTestRouter(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodPost, "/api/forecasts/refresh", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListForecastsEndpoint(t *testing.T) {
	router, cleanup := setupTestRouter(t)
	defer cleanup()

	refreshSymbols(t, router)

	req := httptest.NewRequest(http.MethodGet, "/api/forecasts/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Count int `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.Count)
}

func TestGetForecastEndpoint(t *testing.T) {
	router, cleanup := setupTestRouter(t)
	defer cleanup()

	refreshSymbols(t, router)

	req := httptest.NewRequest(http.MethodGet, "/api/forecasts/AAPL", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data forecast.Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "AAPL", resp.Data.Forecast.Symbol)

	req = httptest.NewRequest(http.MethodGet, "/api/forecasts/UNKNOWN", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
