package server

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/stavrou/ballast/internal/database"
	"github.com/stavrou/ballast/internal/scheduler"
)

// SystemHandlers serves health, resource and job monitoring endpoints.
type SystemHandlers struct {
	databases []*database.DB
	scheduler *scheduler.Scheduler
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(databases []*database.DB, sched *scheduler.Scheduler, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		databases: databases,
		scheduler: sched,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handlers").Logger(),
	}
}

// RegisterRoutes registers all system routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/system", func(r chi.Router) {
		r.Get("/status", h.HandleStatus)
		r.Get("/stats", h.HandleDatabaseStats)
		r.Get("/jobs", h.HandleJobs)
		r.Post("/jobs/{name}/trigger", h.HandleTriggerJob)
	})
}

// HandleHealth handles GET /health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	checks := make(map[string]string, len(h.databases))

	for _, db := range h.databases {
		if err := db.HealthCheck(ctx); err != nil {
			h.log.Error().Err(err).Str("database", db.Name()).Msg("Health check failed")
			checks[db.Name()] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
		} else {
			checks[db.Name()] = "ok"
		}
	}

	h.writeJSON(w, code, map[string]interface{}{
		"status":    status,
		"service":   "ballast",
		"databases": checks,
	})
}

// HandleStatus handles GET /api/system/status
func (h *SystemHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	cpuPercent, memPercent := h.systemStats()

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "running",
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
		"cpu_percent":    cpuPercent,
		"memory_percent": memPercent,
		"goroutines":     runtime.NumGoroutine(),
		"heap": map[string]interface{}{
			"alloc_mb": m.Alloc / 1024 / 1024,
			"sys_mb":   m.Sys / 1024 / 1024,
			"num_gc":   m.NumGC,
		},
	})
}

// HandleDatabaseStats handles GET /api/system/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	type dbInfo struct {
		Name     string  `json:"name"`
		SizeMB   float64 `json:"size_mb"`
		WALMB    float64 `json:"wal_mb"`
		Pages    int64   `json:"pages"`
		Freelist int64   `json:"freelist"`
	}

	infos := make([]dbInfo, 0, len(h.databases))
	for _, db := range h.databases {
		stats, err := db.GetStats()
		if err != nil {
			h.log.Error().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
			http.Error(w, "Failed to collect database stats", http.StatusInternalServerError)
			return
		}
		infos = append(infos, dbInfo{
			Name:     db.Name(),
			SizeMB:   float64(stats.SizeBytes) / 1024 / 1024,
			WALMB:    float64(stats.WALSizeBytes) / 1024 / 1024,
			Pages:    stats.PageCount,
			Freelist: stats.FreelistCount,
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"databases": infos,
	})
}

// HandleJobs handles GET /api/system/jobs
func (h *SystemHandlers) HandleJobs(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		http.Error(w, "Scheduler not running", http.StatusServiceUnavailable)
		return
	}

	jobs := h.scheduler.Jobs()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_jobs": len(jobs),
		"jobs":       jobs,
	})
}

// HandleTriggerJob handles POST /api/system/jobs/{name}/trigger
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		http.Error(w, "Scheduler not running", http.StatusServiceUnavailable)
		return
	}

	name := chi.URLParam(r, "name")
	h.log.Info().Str("job", name).Msg("Manual job trigger")

	if err := h.scheduler.RunNow(name); err != nil {
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status": "completed",
		"job":    name,
	})
}

// systemStats returns CPU and RAM usage percentages. The 100ms sampling
// window keeps the status call responsive.
func (h *SystemHandlers) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
