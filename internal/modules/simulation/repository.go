// Package simulation orchestrates circuit construction, flux sweeps and
// metric extraction, and persists sweep results for later analysis.
package simulation

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/fluxlab/internal/spectrum"
)

// StoredSweep is a persisted sweep result: the request that produced it, the
// energy table and bookkeeping metadata. Eigenvectors are transient and are
// not stored.
type StoredSweep struct {
	ID        string           `json:"id"`
	Gate      string           `json:"gate"`
	Request   spectrum.Request `json:"request"`
	Result    *spectrum.SweepResult `json:"result,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// SweepSummary is the listing view of a stored sweep, without the energy
// table.
type SweepSummary struct {
	ID        string    `json:"id"`
	Gate      string    `json:"gate"`
	LoopID    string    `json:"loop_id"`
	FluxMin   float64   `json:"flux_min"`
	FluxMax   float64   `json:"flux_max"`
	NPoints   int       `json:"n_points"`
	LevelCount int      `json:"level_count"`
	CreatedAt time.Time `json:"created_at"`
}

// levelTable is the msgpack blob layout for the persisted energy table.
type levelTable struct {
	Fluxes    []float64   `msgpack:"fluxes"`
	Energies  [][]float64 `msgpack:"energies"`
	Recovered []bool      `msgpack:"recovered"`
}

// Repository stores sweep results in results.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a sweep result repository and ensures its schema.
func NewRepository(db *sql.DB, log zerolog.Logger) (*Repository, error) {
	r := &Repository{
		db:  db,
		log: log.With().Str("repository", "sweeps").Logger(),
	}
	if err := r.ensureSchema(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repository) ensureSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS sweep_results (
			id          TEXT PRIMARY KEY,
			gate        TEXT NOT NULL,
			loop_id     TEXT NOT NULL,
			flux_min    REAL NOT NULL,
			flux_max    REAL NOT NULL,
			n_points    INTEGER NOT NULL,
			level_count INTEGER NOT NULL,
			levels      BLOB NOT NULL,
			created_at  INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sweep_results_created_at
			ON sweep_results(created_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to create sweep_results schema: %w", err)
	}
	return nil
}

// Save persists a sweep result. The energy table is packed into a single
// msgpack blob; floats round-trip exactly, so stored energies match computed
// ones bit for bit.
func (r *Repository) Save(record *StoredSweep) error {
	if record.Result == nil {
		return fmt.Errorf("cannot save sweep %s without a result", record.ID)
	}

	table := levelTable{
		Fluxes:    record.Result.Fluxes(),
		Energies:  make([][]float64, len(record.Result.Points)),
		Recovered: make([]bool, len(record.Result.Points)),
	}
	for i, p := range record.Result.Points {
		table.Energies[i] = p.Energies
		table.Recovered[i] = p.Recovered
	}

	blob, err := msgpack.Marshal(table)
	if err != nil {
		return fmt.Errorf("failed to encode level table: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO sweep_results
			(id, gate, loop_id, flux_min, flux_max, n_points, level_count, levels, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.Gate,
		record.Request.LoopID,
		record.Request.FluxMin,
		record.Request.FluxMax,
		record.Request.NPoints,
		record.Request.LevelCount,
		blob,
		record.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save sweep %s: %w", record.ID, err)
	}

	r.log.Debug().Str("id", record.ID).Str("gate", record.Gate).Msg("Sweep result saved")
	return nil
}

// Get retrieves a stored sweep by ID. Returns nil when not found (not an
// error).
func (r *Repository) Get(id string) (*StoredSweep, error) {
	var (
		record    StoredSweep
		blob      []byte
		createdAt int64
	)
	err := r.db.QueryRow(`
		SELECT id, gate, loop_id, flux_min, flux_max, n_points, level_count, levels, created_at
		FROM sweep_results WHERE id = ?
	`, id).Scan(
		&record.ID,
		&record.Gate,
		&record.Request.LoopID,
		&record.Request.FluxMin,
		&record.Request.FluxMax,
		&record.Request.NPoints,
		&record.Request.LevelCount,
		&blob,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sweep %s: %w", id, err)
	}
	record.CreatedAt = time.Unix(createdAt, 0).UTC()

	var table levelTable
	if err := msgpack.Unmarshal(blob, &table); err != nil {
		return nil, fmt.Errorf("failed to decode level table for sweep %s: %w", id, err)
	}

	result := &spectrum.SweepResult{
		LoopID:     record.Request.LoopID,
		LevelCount: record.Request.LevelCount,
		Points:     make([]spectrum.SpectrumPoint, len(table.Fluxes)),
	}
	for i := range table.Fluxes {
		result.Points[i] = spectrum.SpectrumPoint{
			Flux:     table.Fluxes[i],
			Energies: table.Energies[i],
		}
		if i < len(table.Recovered) {
			result.Points[i].Recovered = table.Recovered[i]
		}
	}
	record.Result = result

	return &record, nil
}

// List returns summaries of stored sweeps, newest first.
func (r *Repository) List(limit int) ([]SweepSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(`
		SELECT id, gate, loop_id, flux_min, flux_max, n_points, level_count, created_at
		FROM sweep_results
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sweeps: %w", err)
	}
	defer rows.Close()

	var summaries []SweepSummary
	for rows.Next() {
		var (
			s         SweepSummary
			createdAt int64
		)
		if err := rows.Scan(&s.ID, &s.Gate, &s.LoopID, &s.FluxMin, &s.FluxMax, &s.NPoints, &s.LevelCount, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan sweep summary: %w", err)
		}
		s.CreatedAt = time.Unix(createdAt, 0).UTC()
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Delete removes a stored sweep. Returns true when a row was deleted.
func (r *Repository) Delete(id string) (bool, error) {
	res, err := r.db.Exec("DELETE FROM sweep_results WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete sweep %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteOlderThan removes sweeps created before the cutoff and returns the
// number of deleted rows. Used by the retention job.
func (r *Repository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec("DELETE FROM sweep_results WHERE created_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune sweep results: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of stored sweeps.
func (r *Repository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM sweep_results").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sweeps: %w", err)
	}
	return n, nil
}
