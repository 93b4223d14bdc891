package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fluxlab/internal/config"
	"github.com/aristath/fluxlab/internal/database"
	"github.com/aristath/fluxlab/internal/modules/simulation"
	"github.com/aristath/fluxlab/internal/scheduler"
)

func setupTestServer(t *testing.T) *Server {
	t.Helper()

	log := zerolog.New(nil).Level(zerolog.Disabled)
	dataDir := t.TempDir()

	db, err := database.New(database.Config{
		Path:    filepath.Join(dataDir, "results.db"),
		Name:    "results",
		Profile: database.ProfileStandard,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := simulation.NewRepository(db.Conn(), log)
	require.NoError(t, err)

	cfg := &config.Config{
		DataDir:  dataDir,
		Port:     8010,
		LogLevel: "disabled",
		Simulator: config.SimulatorConfig{
			DefaultTruncation: 21,
			MaxTruncation:     200,
			MaxSweepPoints:    1000,
			MaxLevels:         50,
			SweepWorkers:      1,
		},
	}

	return New(Config{
		Log:       log,
		Cfg:       cfg,
		ResultsDB: db,
		Service:   simulation.NewService(repo, cfg.Simulator, log),
		Scheduler: scheduler.New(log),
	})
}

func TestHealthEndpoint(t *testing.T) {
	srv := setupTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSystemStatusEndpoint(t *testing.T) {
	srv := setupTestServer(t)

	req := httptest.NewRequest("GET", "/api/system/status", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	data := response["data"].(map[string]interface{})
	assert.Contains(t, data, "uptime_seconds")
	assert.Contains(t, data, "cpu_percent")
	assert.Contains(t, data, "memory_percent")
	assert.Contains(t, data, "goroutines")
}

func TestSystemDatabaseEndpoint(t *testing.T) {
	srv := setupTestServer(t)

	req := httptest.NewRequest("GET", "/api/system/database", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "results", data["name"])
}

func TestSystemJobsEndpoint(t *testing.T) {
	srv := setupTestServer(t)

	req := httptest.NewRequest("GET", "/api/system/jobs", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSimulationRoutesMounted(t *testing.T) {
	srv := setupTestServer(t)

	req := httptest.NewRequest("GET", "/api/simulation/sweeps", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
