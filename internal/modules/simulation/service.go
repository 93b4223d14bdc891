package simulation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/fluxlab/internal/circuit"
	"github.com/aristath/fluxlab/internal/config"
	"github.com/aristath/fluxlab/internal/spectrum"
)

// JobState is the lifecycle state of an asynchronous sweep job.
type JobState string

const (
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// ProgressEvent is a single progress update emitted while a sweep job runs.
type ProgressEvent struct {
	JobID   string   `json:"job_id"`
	State   JobState `json:"state"`
	Current int      `json:"current"`
	Total   int      `json:"total"`
	Message string   `json:"message"`
	SweepID string   `json:"sweep_id,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// job tracks one asynchronous sweep from start to completion.
type job struct {
	mu          sync.Mutex
	last        ProgressEvent
	subscribers map[int]chan ProgressEvent
	nextSub     int
}

func (j *job) publish(ev ProgressEvent) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.last = ev
	for _, ch := range j.subscribers {
		select {
		case ch <- ev:
		default:
			// Slow subscriber; drop the update rather than stall the sweep.
		}
	}
	if ev.State != JobRunning {
		for id, ch := range j.subscribers {
			close(ch)
			delete(j.subscribers, id)
		}
	}
}

func (j *job) subscribe() (<-chan ProgressEvent, func()) {
	j.mu.Lock()
	defer j.mu.Unlock()
	ch := make(chan ProgressEvent, 16)
	id := j.nextSub
	j.nextSub++
	j.subscribers[id] = ch
	ch <- j.last
	if j.last.State != JobRunning {
		close(ch)
		delete(j.subscribers, id)
		return ch, func() {}
	}
	return ch, func() {
		j.mu.Lock()
		defer j.mu.Unlock()
		if c, ok := j.subscribers[id]; ok {
			close(c)
			delete(j.subscribers, id)
		}
	}
}

// Service wires gate construction, the sweep engines and the repository into
// the operations the HTTP layer exposes.
type Service struct {
	repo     *Repository
	cfg      config.SimulatorConfig
	diag     *spectrum.Diagonalizer
	engine   *spectrum.Engine
	parallel *spectrum.ParallelEngine
	log      zerolog.Logger

	jobsMu sync.RWMutex
	jobs   map[string]*job
}

// NewService creates the simulation service.
func NewService(repo *Repository, cfg config.SimulatorConfig, log zerolog.Logger) *Service {
	diag := spectrum.NewDiagonalizer(log)
	return &Service{
		repo:     repo,
		cfg:      cfg,
		diag:     diag,
		engine:   spectrum.NewEngine(diag, log),
		parallel: spectrum.NewParallelEngine(diag, cfg.SweepWorkers, log),
		log:      log.With().Str("service", "simulation").Logger(),
		jobs:     make(map[string]*job),
	}
}

// DiagonalizeResult is the response payload of a single diagonalization.
type DiagonalizeResult struct {
	Gate     string    `json:"gate"`
	Energies []float64 `json:"energies"`
}

// Diagonalize builds the requested gate at its configured fluxes and returns
// its lowest levelCount eigenvalues in ascending order.
func (s *Service) Diagonalize(spec circuit.GateSpec, levelCount int) (*DiagonalizeResult, error) {
	if levelCount < 1 {
		return nil, spectrum.NewValidationError("level_count", "must be at least 1, got %d", levelCount)
	}
	if levelCount > s.cfg.MaxLevels {
		return nil, spectrum.NewValidationError("level_count", "must not exceed %d, got %d", s.cfg.MaxLevels, levelCount)
	}

	c, err := s.buildGate(spec)
	if err != nil {
		return nil, err
	}
	h, err := c.Hamiltonian()
	if err != nil {
		return nil, err
	}
	energies, _, err := s.diag.Diagonalize(h, levelCount)
	if err != nil {
		return nil, err
	}
	return &DiagonalizeResult{Gate: spec.Gate, Energies: energies}, nil
}

// Sweep runs a flux sweep synchronously and persists the result. When the
// request spans enough points the parallel engine is used, with one circuit
// per worker built from the same gate spec; both paths produce identical
// level tables, including the copy-forward recovery of failed points.
func (s *Service) Sweep(ctx context.Context, spec circuit.GateSpec, req spectrum.Request) (*StoredSweep, error) {
	if err := s.checkLimits(req); err != nil {
		return nil, err
	}

	var (
		result *spectrum.SweepResult
		err    error
	)
	if s.cfg.SweepWorkers > 1 && req.NPoints >= 4*s.cfg.SweepWorkers {
		factory := func() (spectrum.Control, error) { return s.buildGate(spec) }
		result, err = s.parallel.Sweep(ctx, factory, req)
	} else {
		c, buildErr := s.buildGate(spec)
		if buildErr != nil {
			return nil, buildErr
		}
		result, err = s.engine.Sweep(ctx, c, req)
	}
	if err != nil {
		return nil, err
	}

	record := &StoredSweep{
		ID:        uuid.New().String(),
		Gate:      spec.Gate,
		Request:   req,
		Result:    result,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Save(record); err != nil {
		return nil, err
	}
	return record, nil
}

// StartSweep launches a sweep in the background and returns a job ID that can
// be polled or streamed over the progress websocket.
func (s *Service) StartSweep(spec circuit.GateSpec, req spectrum.Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if err := s.checkLimits(req); err != nil {
		return "", err
	}

	jobID := uuid.New().String()
	j := &job{subscribers: make(map[int]chan ProgressEvent)}
	j.last = ProgressEvent{JobID: jobID, State: JobRunning, Total: req.NPoints}

	s.jobsMu.Lock()
	s.jobs[jobID] = j
	s.jobsMu.Unlock()

	go s.runJob(jobID, j, spec, req)
	return jobID, nil
}

func (s *Service) runJob(jobID string, j *job, spec circuit.GateSpec, req spectrum.Request) {
	engine := spectrum.NewEngine(s.diag, s.log)
	engine.SetProgressCallback(func(current, total int, message string) {
		j.publish(ProgressEvent{
			JobID:   jobID,
			State:   JobRunning,
			Current: current,
			Total:   total,
			Message: message,
		})
	})

	c, err := s.buildGate(spec)
	if err == nil {
		var result *spectrum.SweepResult
		result, err = engine.Sweep(context.Background(), c, req)
		if err == nil {
			record := &StoredSweep{
				ID:        uuid.New().String(),
				Gate:      spec.Gate,
				Request:   req,
				Result:    result,
				CreatedAt: time.Now().UTC(),
			}
			if err = s.repo.Save(record); err == nil {
				j.publish(ProgressEvent{
					JobID:   jobID,
					State:   JobCompleted,
					Current: req.NPoints,
					Total:   req.NPoints,
					SweepID: record.ID,
				})
				return
			}
		}
	}

	s.log.Error().Err(err).Str("job_id", jobID).Msg("Background sweep failed")
	j.publish(ProgressEvent{JobID: jobID, State: JobFailed, Total: req.NPoints, Error: err.Error()})
}

// JobStatus returns the last known progress event for a job, or false when
// the job is unknown.
func (s *Service) JobStatus(jobID string) (ProgressEvent, bool) {
	s.jobsMu.RLock()
	j, ok := s.jobs[jobID]
	s.jobsMu.RUnlock()
	if !ok {
		return ProgressEvent{}, false
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last, true
}

// SubscribeJob attaches a subscriber to a running job's progress stream. The
// returned channel receives the latest event immediately and is closed when
// the job finishes or the cancel function is called.
func (s *Service) SubscribeJob(jobID string) (<-chan ProgressEvent, func(), bool) {
	s.jobsMu.RLock()
	j, ok := s.jobs[jobID]
	s.jobsMu.RUnlock()
	if !ok {
		return nil, nil, false
	}
	ch, cancel := j.subscribe()
	return ch, cancel, true
}

// MetricsResult pairs gate metrics with the transition spectrum relative to
// the ground state.
type MetricsResult struct {
	Metrics     spectrum.GateMetrics `json:"metrics"`
	Transitions []float64            `json:"transitions"`
}

// Metrics computes gate metrics from a flat list of ascending energies.
func (s *Service) Metrics(energies []float64) (*MetricsResult, error) {
	m, err := spectrum.Metrics(energies)
	if err != nil {
		return nil, err
	}
	t, err := spectrum.TransitionFrequencies(energies)
	if err != nil {
		return nil, err
	}
	return &MetricsResult{Metrics: m, Transitions: t}, nil
}

// AntiCrossing locates the minimum gap between two levels of a stored sweep.
func (s *Service) AntiCrossing(sweepID string, levelA, levelB int) (*spectrum.MinGap, error) {
	record, err := s.repo.Get(sweepID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("sweep %s not found", sweepID)
	}
	gap, err := spectrum.FindMinGap(record.Result, levelA, levelB)
	if err != nil {
		return nil, err
	}
	return &gap, nil
}

// GetSweep retrieves a stored sweep by ID. Returns nil when not found.
func (s *Service) GetSweep(id string) (*StoredSweep, error) {
	return s.repo.Get(id)
}

// ListSweeps returns summaries of stored sweeps, newest first.
func (s *Service) ListSweeps(limit int) ([]SweepSummary, error) {
	return s.repo.List(limit)
}

// DeleteSweep removes a stored sweep.
func (s *Service) DeleteSweep(id string) (bool, error) {
	return s.repo.Delete(id)
}

func (s *Service) buildGate(spec circuit.GateSpec) (*circuit.Circuit, error) {
	if spec.Truncation > s.cfg.MaxTruncation {
		return nil, spectrum.NewValidationError("truncation", "must not exceed %d, got %d", s.cfg.MaxTruncation, spec.Truncation)
	}
	return spec.Build(s.cfg.DefaultTruncation, s.log)
}

func (s *Service) checkLimits(req spectrum.Request) error {
	if req.NPoints > s.cfg.MaxSweepPoints {
		return spectrum.NewValidationError("n_points", "must not exceed %d, got %d", s.cfg.MaxSweepPoints, req.NPoints)
	}
	if req.LevelCount > s.cfg.MaxLevels {
		return spectrum.NewValidationError("level_count", "must not exceed %d, got %d", s.cfg.MaxLevels, req.LevelCount)
	}
	return nil
}
