package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers serves health and host statistics
type SystemHandlers struct {
	store   Store
	started time.Time
	log     zerolog.Logger
}

// SystemStatsResponse is the body of GET /api/system/stats
type SystemStatsResponse struct {
	CPUPercent    float64 `json:"cpu_percent"`
	RAMPercent    float64 `json:"ram_percent"`
	Goroutines    int     `json:"goroutines"`
	UptimeSeconds int64   `json:"uptime_seconds"`
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(store Store, started time.Time, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		store:   store,
		started: started,
		log:     log.With().Str("handler", "system").Logger(),
	}
}

// RegisterRoutes registers the routes under /api
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/system/stats", h.HandleSystemStats)
}

// HandleHealth reports liveness and the active backend
// GET /api/health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(h.log, w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"backend": h.store.Name(),
	})
}

// HandleSystemStats returns CPU and RAM usage
// GET /api/system/stats
func (h *SystemHandlers) HandleSystemStats(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := h.getSystemStats()
	writeJSON(h.log, w, http.StatusOK, SystemStatsResponse{
		CPUPercent:    cpuPercent,
		RAMPercent:    ramPercent,
		Goroutines:    runtime.NumGoroutine(),
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	})
}

func (h *SystemHandlers) getSystemStats() (float64, float64) {
	// 100ms sample keeps the call responsive
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
