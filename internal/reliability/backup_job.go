package reliability

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// BackupJob runs a full backup cycle: snapshot, upload, rotate.
type BackupJob struct {
	service    *BackupService
	maxBackups int
	log        zerolog.Logger
}

// NewBackupJob creates a new backup job
func NewBackupJob(service *BackupService, maxBackups int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:    service,
		maxBackups: maxBackups,
		log:        log.With().Str("job", "backup").Logger(),
	}
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "backup"
}

// Run executes the backup job
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := j.service.CreateAndUploadBackup(ctx); err != nil {
		return err
	}
	if err := j.service.RotateOldBackups(ctx, j.maxBackups); err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}
	return nil
}
