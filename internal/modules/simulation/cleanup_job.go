package simulation

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fluxlab/internal/database"
)

// CleanupJob prunes sweep results older than the retention window and
// checkpoints the WAL afterwards so the main database file shrinks.
type CleanupJob struct {
	repo          *Repository
	db            *database.DB
	retentionDays int
	log           zerolog.Logger
}

// NewCleanupJob creates a new retention cleanup job
func NewCleanupJob(repo *Repository, db *database.DB, retentionDays int, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo:          repo,
		db:            db,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "sweep_cleanup").Logger(),
	}
}

// Name returns the job name
func (j *CleanupJob) Name() string {
	return "sweep_cleanup"
}

// Run executes the cleanup job
func (j *CleanupJob) Run() error {
	if j.retentionDays <= 0 {
		j.log.Debug().Msg("Retention disabled, skipping cleanup")
		return nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -j.retentionDays)
	deleted, err := j.repo.DeleteOlderThan(cutoff)
	if err != nil {
		return fmt.Errorf("sweep cleanup failed: %w", err)
	}

	if deleted == 0 {
		j.log.Debug().Msg("No expired sweep results")
		return nil
	}

	j.log.Info().
		Int64("deleted", deleted).
		Time("cutoff", cutoff).
		Msg("Pruned expired sweep results")

	if err := j.db.CheckpointWAL(); err != nil {
		j.log.Warn().Err(err).Msg("WAL checkpoint after cleanup failed")
	}
	return nil
}
