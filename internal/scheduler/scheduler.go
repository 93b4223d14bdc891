// Package scheduler manages recurring background jobs.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// JobStatus reports a registered job's schedule and last outcome.
type JobStatus struct {
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

type registeredJob struct {
	job      Job
	schedule string

	mu        sync.Mutex
	lastRun   time.Time
	lastError string
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger

	mu   sync.RWMutex
	jobs map[string]*registeredJob
}

// New creates a new scheduler
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "scheduler").Logger(),
		jobs: make(map[string]*registeredJob),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "@hourly"            - Every hour
//   - "@every 30s"         - Every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	s.mu.Lock()
	if _, exists := s.jobs[job.Name()]; exists {
		s.mu.Unlock()
		return fmt.Errorf("job %q already registered", job.Name())
	}
	reg := &registeredJob{job: job, schedule: schedule}
	s.jobs[job.Name()] = reg
	s.mu.Unlock()

	_, err := s.cron.AddFunc(schedule, func() {
		s.runJob(reg)
	})
	if err != nil {
		s.mu.Lock()
		delete(s.jobs, job.Name())
		s.mu.Unlock()
		return err
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

func (s *Scheduler) runJob(reg *registeredJob) {
	s.log.Debug().Str("job", reg.job.Name()).Msg("Running job")

	err := reg.job.Run()

	reg.mu.Lock()
	reg.lastRun = time.Now().UTC()
	if err != nil {
		reg.lastError = err.Error()
	} else {
		reg.lastError = ""
	}
	reg.mu.Unlock()

	if err != nil {
		s.log.Error().Err(err).Str("job", reg.job.Name()).Msg("Job failed")
	} else {
		s.log.Debug().Str("job", reg.job.Name()).Msg("Job completed")
	}
}

// RunNow executes a registered job immediately, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	reg, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}

	s.log.Info().Str("job", name).Msg("Running job immediately")
	s.runJob(reg)

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.lastError != "" {
		return fmt.Errorf("job %q failed: %s", name, reg.lastError)
	}
	return nil
}

// Jobs returns the status of all registered jobs.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]JobStatus, 0, len(s.jobs))
	for _, reg := range s.jobs {
		reg.mu.Lock()
		status := JobStatus{
			Name:      reg.job.Name(),
			Schedule:  reg.schedule,
			LastError: reg.lastError,
		}
		if !reg.lastRun.IsZero() {
			t := reg.lastRun
			status.LastRun = &t
		}
		reg.mu.Unlock()
		statuses = append(statuses, status)
	}
	return statuses
}
