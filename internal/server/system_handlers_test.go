package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stavrou/ballast/internal/database"
	"github.com/stavrou/ballast/internal/scheduler"
	testingpkg "github.com/stavrou/ballast/internal/testing"
)

type noopJob struct {
	name string
	err  error
	runs int
}

func (j *noopJob) Name() string { return j.name }
func (j *noopJob) Run() error {
	j.runs++
	return j.err
}

func setupTestServer(t *testing.T, sched *scheduler.Scheduler) (*Server, func()) {
	t.Helper()

	portfolioDB, cleanupPortfolio := testingpkg.NewTestDB(t, "portfolio")
	configDB, cleanupConfig := testingpkg.NewTestDB(t, "config")

	srv := New(Config{
		Port:      8080,
		DevMode:   true,
		Databases: []*database.DB{portfolioDB, configDB},
		Scheduler: sched,
		Log:       zerolog.Nop(),
	})

	return srv, func() {
		cleanupPortfolio()
		cleanupConfig()
	}
}

func TestHandleHealth(t *testing.T) {
	srv, cleanup := setupTestServer(t, nil)
	defer cleanup()

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Status    string            `json:"status"`
		Databases map[string]string `json:"databases"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, "ok", response.Databases["portfolio"])
	assert.Equal(t, "ok", response.Databases["config"])
}

func TestHandleStatus(t *testing.T) {
	srv, cleanup := setupTestServer(t, nil)
	defer cleanup()

	req := httptest.NewRequest("GET", "/api/system/status", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "running", response["status"])
	assert.Contains(t, response, "goroutines")
	assert.Contains(t, response, "memory_percent")
}

func TestHandleDatabaseStats(t *testing.T) {
	srv, cleanup := setupTestServer(t, nil)
	defer cleanup()

	req := httptest.NewRequest("GET", "/api/system/stats", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Databases []struct {
			Name   string  `json:"name"`
			SizeMB float64 `json:"size_mb"`
			Pages  int64   `json:"pages"`
		} `json:"databases"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Databases, 2)
	assert.Equal(t, "portfolio", response.Databases[0].Name)
	assert.Greater(t, response.Databases[0].Pages, int64(0))
}

func TestHandleJobs(t *testing.T) {
	sched := scheduler.New(nil, nil, zerolog.Nop())
	require.NoError(t, sched.AddJob("@hourly", &noopJob{name: "cleanup"}))

	srv, cleanup := setupTestServer(t, sched)
	defer cleanup()

	req := httptest.NewRequest("GET", "/api/system/jobs", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		TotalJobs int `json:"total_jobs"`
		Jobs      []struct {
			Name     string `json:"name"`
			Schedule string `json:"schedule"`
		} `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, 1, response.TotalJobs)
	assert.Equal(t, "cleanup", response.Jobs[0].Name)
}

func TestHandleJobs_NoScheduler(t *testing.T) {
	srv, cleanup := setupTestServer(t, nil)
	defer cleanup()

	req := httptest.NewRequest("GET", "/api/system/jobs", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleTriggerJob(t *testing.T) {
	sched := scheduler.New(nil, nil, zerolog.Nop())
	job := &noopJob{name: "cleanup"}
	require.NoError(t, sched.AddJob("@hourly", job))

	srv, cleanup := setupTestServer(t, sched)
	defer cleanup()

	req := httptest.NewRequest("POST", "/api/system/jobs/cleanup/trigger", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, job.runs)
}

func TestHandleTriggerJob_Failures(t *testing.T) {
	sched := scheduler.New(nil, nil, zerolog.Nop())
	require.NoError(t, sched.AddJob("@hourly", &noopJob{name: "bad", err: errors.New("boom")}))

	srv, cleanup := setupTestServer(t, sched)
	defer cleanup()

	// unknown job
	req := httptest.NewRequest("POST", "/api/system/jobs/nope/trigger", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// failing job
	req = httptest.NewRequest("POST", "/api/system/jobs/bad/trigger", nil)
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
