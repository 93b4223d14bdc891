// Package handlers provides HTTP handlers for circuit simulation operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/fluxlab/internal/circuit"
	"github.com/aristath/fluxlab/internal/modules/simulation"
	"github.com/aristath/fluxlab/internal/spectrum"
)

// Handler handles simulation HTTP requests
type Handler struct {
	service *simulation.Service
	log     zerolog.Logger
}

// NewHandler creates a new simulation handler
func NewHandler(service *simulation.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "simulation").Logger(),
	}
}

// DiagonalizeRequest represents a request to diagonalize a gate Hamiltonian
type DiagonalizeRequest struct {
	circuit.GateSpec
	LevelCount int `json:"level_count"`
}

// SweepRequest represents a request to run a flux sweep
type SweepRequest struct {
	circuit.GateSpec
	Sweep spectrum.Request `json:"sweep"`
	Async bool             `json:"async,omitempty"`
}

// MetricsRequest represents a request to compute gate metrics from energies
type MetricsRequest struct {
	Energies []float64 `json:"energies"`
}

// AntiCrossingRequest represents a request to locate a minimum gap
type AntiCrossingRequest struct {
	SweepID string `json:"sweep_id"`
	LevelA  int    `json:"level_a"`
	LevelB  int    `json:"level_b"`
}

// HandleDiagonalize handles POST /api/simulation/diagonalize
func (h *Handler) HandleDiagonalize(w http.ResponseWriter, r *http.Request) {
	var req DiagonalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.LevelCount == 0 {
		req.LevelCount = 3
	}

	result, err := h.service.Diagonalize(req.GateSpec, req.LevelCount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleSweep handles POST /api/simulation/sweep
func (h *Handler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	var req SweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Async {
		jobID, err := h.service.StartSweep(req.GateSpec, req.Sweep)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"data": map[string]interface{}{
				"job_id": jobID,
				"state":  simulation.JobRunning,
			},
			"metadata": map[string]interface{}{
				"timestamp": time.Now().Format(time.RFC3339),
			},
		})
		return
	}

	record, err := h.service.Sweep(r.Context(), req.GateSpec, req.Sweep)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": record,
		"metadata": map[string]interface{}{
			"timestamp":     time.Now().Format(time.RFC3339),
			"failed_points": record.Result.FailedPoints(),
		},
	})
}

// HandleJobStatus handles GET /api/simulation/jobs/{id}
func (h *Handler) HandleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	ev, ok := h.service.JobStatus(jobID)
	if !ok {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": ev,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleMetrics handles POST /api/simulation/metrics
func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	var req MetricsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Metrics(req.Energies)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleAntiCrossing handles POST /api/simulation/anticrossing
func (h *Handler) HandleAntiCrossing(w http.ResponseWriter, r *http.Request) {
	var req AntiCrossingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	gap, err := h.service.AntiCrossing(req.SweepID, req.LevelA, req.LevelB)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"sweep_id": req.SweepID,
			"level_a":  req.LevelA,
			"level_b":  req.LevelB,
			"min_gap":  gap,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleListSweeps handles GET /api/simulation/sweeps
func (h *Handler) HandleListSweeps(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	summaries, err := h.service.ListSweeps(limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": summaries,
		"metadata": map[string]interface{}{
			"count":     len(summaries),
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetSweep handles GET /api/simulation/sweeps/{id}
func (h *Handler) HandleGetSweep(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.service.GetSweep(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if record == nil {
		http.Error(w, "Sweep not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": record,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleDeleteSweep handles DELETE /api/simulation/sweeps/{id}
func (h *Handler) HandleDeleteSweep(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deleted, err := h.service.DeleteSweep(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !deleted {
		http.Error(w, "Sweep not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"id":      id,
			"deleted": true,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeError maps domain errors to HTTP status codes. Validation and
// configuration problems are client errors; diagonalization failures that
// escape the sweep recovery are server errors.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var (
		validationErr    *spectrum.ValidationError
		configurationErr *spectrum.ConfigurationError
	)
	switch {
	case errors.As(err, &validationErr):
		http.Error(w, validationErr.Error(), http.StatusBadRequest)
	case errors.As(err, &configurationErr):
		http.Error(w, configurationErr.Error(), http.StatusUnprocessableEntity)
	default:
		h.log.Error().Err(err).Msg("Simulation request failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
