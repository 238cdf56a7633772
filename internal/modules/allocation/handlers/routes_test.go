package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stavrou/ballast/internal/events"
	"github.com/stavrou/ballast/internal/modules/allocation"
	testingpkg "github.com/stavrou/ballast/internal/testing"
)

func setupTestRouter(t *testing.T) (*chi.Mux, *events.Bus, func()) {
	t.Helper()

	db, cleanup := testingpkg.NewTestDB(t, "config")
	repo := allocation.NewRepository(db.Conn(), zerolog.Nop())
	bus := events.NewBus(zerolog.Nop())

	router := chi.NewRouter()
	handler := NewHandler(repo, bus, zerolog.Nop())
	router.Route("/api", handler.RegisterRoutes)

	return router, bus, cleanup
}

func doJSON(t *testing.T, router *chi.Mux, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPutAndGetSet(t *testing.T) {
	router, bus, cleanup := setupTestRouter(t)
	defer cleanup()

	var changed *events.Event
	bus.Subscribe(events.AllocationTargetsChanged, func(e *events.Event) { changed = e })

	rec := doJSON(t, router, http.MethodPut, "/api/allocation/targets/core", map[string]interface{}{
		"weights": map[string]float64{"AAPL": 0.5, "MSFT": 0.5},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, changed)

	getRec := doJSON(t, router, http.MethodGet, "/api/allocation/targets/core", nil)
	require.Equal(t, http.StatusOK, getRec.Code)

	var resp struct {
		Data struct {
			Name    string              `json:"name"`
			Targets []allocation.Target `json:"targets"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &resp))
	assert.Equal(t, "core", resp.Data.Name)
	require.Len(t, resp.Data.Targets, 2)
	assert.Equal(t, "AAPL", resp.Data.Targets[0].Symbol)
}

func TestPutSetRejectsImbalancedWeights(t *testing.T) {
	router, _, cleanup := setupTestRouter(t)
	defer cleanup()

	rec := doJSON(t, router, http.MethodPut, "/api/allocation/targets/bad", map[string]interface{}{
		"weights": map[string]float64{"AAPL": 0.5, "MSFT": 0.6},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetSetNotFound(t *testing.T) {
	router, _, cleanup := setupTestRouter(t)
	defer cleanup()

	rec := doJSON(t, router, http.MethodGet, "/api/allocation/targets/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListSets(t *testing.T) {
	router, _, cleanup := setupTestRouter(t)
	defer cleanup()

	require.Equal(t, http.StatusOK, doJSON(t, router, http.MethodPut, "/api/allocation/targets/core", map[string]interface{}{
		"weights": map[string]float64{"AAPL": 1},
	}).Code)

	rec := doJSON(t, router, http.MethodGet, "/api/allocation/targets/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Count int `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.Count)
}

func TestDeleteSet(t *testing.T) {
	router, _, cleanup := setupTestRouter(t)
	defer cleanup()

	require.Equal(t, http.StatusOK, doJSON(t, router, http.MethodPut, "/api/allocation/targets/core", map[string]interface{}{
		"weights": map[string]float64{"AAPL": 1},
	}).Code)

	rec := doJSON(t, router, http.MethodDelete, "/api/allocation/targets/core", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/allocation/targets/core", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
