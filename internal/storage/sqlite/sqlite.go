// Package sqlite stores batch results in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/chrissnell/quenchfinder/internal/batch"
	"github.com/chrissnell/quenchfinder/internal/galaxy"
	"github.com/chrissnell/quenchfinder/internal/storage"
	"github.com/chrissnell/quenchfinder/pkg/migrate"
	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrations returns the schema migrations of the result database
func Migrations() *migrate.FSProvider {
	return migrate.NewFSProvider(migrationsFS, "migrations", "schema_migrations", "sqlite")
}

// Store is a storage.ResultStore backed by SQLite
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.SugaredLogger
}

var _ storage.ResultStore = (*Store)(nil)

// New opens the database at path, creating and migrating it as needed
func New(path string, logger *zap.SugaredLogger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// one writer keeps SQLite from returning SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := migrate.NewMigrator(db, Migrations(), logger).MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate results database: %w", err)
	}

	logger.Infof("opened SQLite result store at %s", path)
	return &Store{db: db, path: path, logger: logger}, nil
}

// SaveRun stores a run and its galaxy records in one transaction
func (s *Store) SaveRun(ctx context.Context, summary *batch.Summary, galaxies []*galaxy.Galaxy) error {
	failures, err := storage.EncodeJSON(summary.Failures)
	if err != nil {
		return fmt.Errorf("failed to encode failures: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, policy, mass_limit, interpolation, started_at, elapsed_ns,
		                  total, quenched, failed, skipped, episodes, rejuvenations, failures)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID.String(), summary.Policy, summary.MassLimit, summary.Interpolation,
		summary.StartedAt.UnixNano(), int64(summary.Elapsed),
		summary.Total, summary.Quenched, summary.Failed, summary.Skipped,
		summary.Episodes, summary.Rejuvenations, failures)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", summary.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO galaxy_results (run_id, galaxy_id, outcome, quench_episodes, rejuvenations, interpolated)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare galaxy insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range storage.Records(summary, galaxies) {
		episodes, err := storage.EncodeJSON(rec.QuenchEpisodes)
		if err != nil {
			return fmt.Errorf("galaxy %d: %w", rec.GalaxyID, err)
		}
		rejuvenations, err := storage.EncodeJSON(rec.Rejuvenations)
		if err != nil {
			return fmt.Errorf("galaxy %d: %w", rec.GalaxyID, err)
		}
		blob, err := storage.EncodeSeries(rec.Interpolated)
		if err != nil {
			return fmt.Errorf("galaxy %d: %w", rec.GalaxyID, err)
		}

		if _, err := stmt.ExecContext(ctx, rec.RunID.String(), rec.GalaxyID, string(rec.Outcome), episodes, rejuvenations, blob); err != nil {
			return fmt.Errorf("failed to insert galaxy %d: %w", rec.GalaxyID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", summary.RunID, err)
	}
	s.logger.Debugf("stored run %s with %d galaxies", summary.RunID, len(galaxies))
	return nil
}

const selectRun = `
	SELECT run_id, policy, mass_limit, interpolation, started_at, elapsed_ns,
	       total, quenched, failed, skipped, episodes, rejuvenations, failures
	FROM runs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*batch.Summary, error) {
	var (
		sum       batch.Summary
		runID     string
		startedAt int64
		elapsed   int64
		failures  string
	)
	err := row.Scan(&runID, &sum.Policy, &sum.MassLimit, &sum.Interpolation, &startedAt, &elapsed,
		&sum.Total, &sum.Quenched, &sum.Failed, &sum.Skipped, &sum.Episodes, &sum.Rejuvenations, &failures)
	if err != nil {
		return nil, err
	}

	if sum.RunID, err = uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("bad run id %q: %w", runID, err)
	}
	sum.StartedAt = time.Unix(0, startedAt)
	sum.Elapsed = time.Duration(elapsed)
	if err := storage.DecodeJSON(failures, &sum.Failures); err != nil {
		return nil, fmt.Errorf("run %s: bad failures: %w", runID, err)
	}
	return &sum, nil
}

// ListRuns returns every stored run, newest first. Outcomes are not loaded.
func (s *Store) ListRuns(ctx context.Context) ([]batch.Summary, error) {
	rows, err := s.db.QueryContext(ctx, selectRun+` ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []batch.Summary
	for rows.Next() {
		sum, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, *sum)
	}
	return runs, rows.Err()
}

// GetRun returns a stored run with its per-galaxy outcomes
func (s *Store) GetRun(ctx context.Context, runID uuid.UUID) (*batch.Summary, error) {
	sum, err := scanRun(s.db.QueryRowContext(ctx, selectRun+` WHERE run_id = ?`, runID.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT outcome FROM galaxy_results WHERE run_id = ? ORDER BY rowid`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var outcome string
		if err := rows.Scan(&outcome); err != nil {
			return nil, err
		}
		sum.Outcomes = append(sum.Outcomes, batch.Outcome(outcome))
	}
	return sum, rows.Err()
}

const selectGalaxy = `
	SELECT run_id, galaxy_id, outcome, quench_episodes, rejuvenations, interpolated
	FROM galaxy_results`

func scanGalaxy(row rowScanner) (*storage.GalaxyRecord, error) {
	var (
		rec           storage.GalaxyRecord
		runID         string
		outcome       string
		episodes      string
		rejuvenations string
		blob          []byte
	)
	if err := row.Scan(&runID, &rec.GalaxyID, &outcome, &episodes, &rejuvenations, &blob); err != nil {
		return nil, err
	}

	var err error
	if rec.RunID, err = uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("bad run id %q: %w", runID, err)
	}
	rec.Outcome = batch.Outcome(outcome)
	if err := storage.DecodeJSON(episodes, &rec.QuenchEpisodes); err != nil {
		return nil, fmt.Errorf("galaxy %d: bad episodes: %w", rec.GalaxyID, err)
	}
	if err := storage.DecodeJSON(rejuvenations, &rec.Rejuvenations); err != nil {
		return nil, fmt.Errorf("galaxy %d: bad rejuvenations: %w", rec.GalaxyID, err)
	}
	if rec.Interpolated, err = storage.DecodeSeries(blob); err != nil {
		return nil, fmt.Errorf("galaxy %d: bad interpolated series: %w", rec.GalaxyID, err)
	}
	return &rec, nil
}

// ListGalaxies returns the galaxy records of a run in input order
func (s *Store) ListGalaxies(ctx context.Context, runID uuid.UUID) ([]storage.GalaxyRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectGalaxy+` WHERE run_id = ? ORDER BY rowid`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query galaxies: %w", err)
	}
	defer rows.Close()

	var out []storage.GalaxyRecord
	for rows.Next() {
		rec, err := scanGalaxy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if out == nil {
		if _, err := s.GetRun(ctx, runID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GetGalaxy returns one galaxy record of a run
func (s *Store) GetGalaxy(ctx context.Context, runID uuid.UUID, galaxyID int) (*storage.GalaxyRecord, error) {
	rec, err := scanGalaxy(s.db.QueryRowContext(ctx, selectGalaxy+` WHERE run_id = ? AND galaxy_id = ?`, runID.String(), galaxyID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("galaxy %d of run %s: %w", galaxyID, runID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load galaxy %d: %w", galaxyID, err)
	}
	return rec, nil
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
