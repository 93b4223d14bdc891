package simulation

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fluxlab/internal/database"
)

func TestCleanupJobPrunesExpiredSweeps(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "results.db"),
		Name:    "results",
		Profile: database.ProfileStandard,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := NewRepository(db.Conn(), log)
	require.NoError(t, err)

	expired := testSweep(3)
	expired.CreatedAt = time.Now().UTC().AddDate(0, 0, -60)
	fresh := testSweep(3)

	require.NoError(t, repo.Save(expired))
	require.NoError(t, repo.Save(fresh))

	job := NewCleanupJob(repo, db, 30, log)
	assert.Equal(t, "sweep_cleanup", job.Name())
	require.NoError(t, job.Run())

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	kept, err := repo.Get(fresh.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestCleanupJobRetentionDisabled(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "results.db"),
		Name:    "results",
		Profile: database.ProfileStandard,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := NewRepository(db.Conn(), log)
	require.NoError(t, err)

	ancient := testSweep(3)
	ancient.CreatedAt = time.Now().UTC().AddDate(-1, 0, 0)
	require.NoError(t, repo.Save(ancient))

	job := NewCleanupJob(repo, db, 0, log)
	require.NoError(t, job.Run())

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
