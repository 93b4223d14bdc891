package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/fluxlab/internal/database"
	"github.com/aristath/fluxlab/internal/scheduler"
)

// SystemHandlers serves process and storage diagnostics.
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	resultsDB *database.DB
	sched     *scheduler.Scheduler
	startedAt time.Time
}

// NewSystemHandlers creates system handlers.
func NewSystemHandlers(log zerolog.Logger, dataDir string, resultsDB *database.DB, sched *scheduler.Scheduler) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		dataDir:   dataDir,
		resultsDB: resultsDB,
		sched:     sched,
		startedAt: time.Now(),
	}
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
			"cpu_percent":    cpuPercent,
			"memory_percent": memPercent,
			"goroutines":     runtime.NumGoroutine(),
			"go_version":     runtime.Version(),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleDatabaseStats handles GET /api/system/database
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"name": h.resultsDB.Name(),
		"path": h.resultsDB.Path(),
	}
	if info, err := os.Stat(h.resultsDB.Path()); err == nil {
		stats["size_mb"] = float64(info.Size()) / (1024 * 1024)
	}
	if wal, err := os.Stat(h.resultsDB.Path() + "-wal"); err == nil {
		stats["wal_size_mb"] = float64(wal.Size()) / (1024 * 1024)
	}
	stats["data_dir_mb"] = h.getDirSize(h.dataDir)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": stats,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleJobsStatus handles GET /api/system/jobs
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": h.sched.Jobs(),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleRunJob handles POST /api/system/jobs/{name}/run
func (h *SystemHandlers) HandleRunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.sched.RunNow(name); err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"job":    name,
			"status": "completed",
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// getSystemStats returns CPU and memory usage percentages.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	var cpuUsage, memUsage float64

	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err == nil && len(cpuPercent) > 0 {
		cpuUsage = cpuPercent[0]
	}

	memStat, err := mem.VirtualMemory()
	if err == nil {
		memUsage = memStat.UsedPercent
	}

	return cpuUsage, memUsage
}

func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var total int64
	_ = filepath.Walk(dirPath, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return float64(total) / (1024 * 1024)
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
