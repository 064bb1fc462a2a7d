// Package timescaledb stores batch results in PostgreSQL/TimescaleDB through gorm.
package timescaledb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chrissnell/quenchfinder/internal/batch"
	"github.com/chrissnell/quenchfinder/internal/database"
	"github.com/chrissnell/quenchfinder/internal/galaxy"
	"github.com/chrissnell/quenchfinder/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// We declare the Tabler interface for purposes of customizing the table name in the DB
type Tabler interface {
	TableName() string
}

// RunModel is a row of quench_runs
type RunModel struct {
	RunID         uuid.UUID `gorm:"column:run_id;type:uuid;primaryKey"`
	StartedAt     time.Time `gorm:"column:started_at;primaryKey"`
	Policy        string    `gorm:"column:policy"`
	MassLimit     float64   `gorm:"column:mass_limit"`
	Interpolation bool      `gorm:"column:interpolation"`
	ElapsedNS     int64     `gorm:"column:elapsed_ns"`
	Total         int       `gorm:"column:total"`
	Quenched      int       `gorm:"column:quenched"`
	Failed        int       `gorm:"column:failed"`
	Skipped       int       `gorm:"column:skipped"`
	Episodes      int       `gorm:"column:episodes"`
	Rejuvenations int       `gorm:"column:rejuvenations"`
	Failures      *string   `gorm:"column:failures;type:jsonb"`
}

// TableName implements Tabler
func (RunModel) TableName() string {
	return "quench_runs"
}

// GalaxyResultModel is a row of quench_galaxy_results
type GalaxyResultModel struct {
	ID             int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RunID          uuid.UUID `gorm:"column:run_id;type:uuid"`
	GalaxyID       int       `gorm:"column:galaxy_id"`
	Outcome        string    `gorm:"column:outcome"`
	QuenchEpisodes *string   `gorm:"column:quench_episodes;type:jsonb"`
	Rejuvenations  *string   `gorm:"column:rejuvenations;type:jsonb"`
	Interpolated   []byte    `gorm:"column:interpolated"`
}

// TableName implements Tabler
func (GalaxyResultModel) TableName() string {
	return "quench_galaxy_results"
}

// Store is a storage.ResultStore backed by TimescaleDB
type Store struct {
	TimescaleDBConn *gorm.DB
	logger          *zap.SugaredLogger
}

var _ storage.ResultStore = (*Store)(nil)

// New connects to TimescaleDB and creates the result tables
func New(ctx context.Context, connectionString string, zapLogger *zap.Logger) (*Store, error) {
	db, err := database.CreateConnection(connectionString, zapLogger)
	if err != nil {
		return nil, err
	}
	t := &Store{TimescaleDBConn: db, logger: zapLogger.Sugar()}

	steps := []struct {
		name     string
		stmt     string
		optional bool
	}{
		{name: "TimescaleDB extension", stmt: createExtensionSQL, optional: true},
		{name: "runs table", stmt: createRunsTableSQL},
		{name: "runs hypertable", stmt: createHypertableSQL, optional: true},
		{name: "galaxy results table", stmt: createGalaxyResultsTableSQL},
		{name: "galaxy results index", stmt: createGalaxyResultsIndexSQL},
	}
	for _, step := range steps {
		t.logger.Infof("creating %s...", step.name)
		if err := db.WithContext(ctx).Exec(step.stmt).Error; err != nil {
			if step.optional {
				// plain PostgreSQL works without the extension
				t.logger.Warnf("could not create %s, continuing without it: %v", step.name, err)
				continue
			}
			return nil, fmt.Errorf("could not create %s: %w", step.name, err)
		}
	}

	return t, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toRunModel(s *batch.Summary) (*RunModel, error) {
	failures, err := storage.EncodeJSON(s.Failures)
	if err != nil {
		return nil, err
	}
	return &RunModel{
		RunID:         s.RunID,
		StartedAt:     s.StartedAt,
		Policy:        s.Policy,
		MassLimit:     s.MassLimit,
		Interpolation: s.Interpolation,
		ElapsedNS:     int64(s.Elapsed),
		Total:         s.Total,
		Quenched:      s.Quenched,
		Failed:        s.Failed,
		Skipped:       s.Skipped,
		Episodes:      s.Episodes,
		Rejuvenations: s.Rejuvenations,
		Failures:      nullable(failures),
	}, nil
}

func fromRunModel(m *RunModel) (*batch.Summary, error) {
	s := &batch.Summary{
		RunID:         m.RunID,
		StartedAt:     m.StartedAt,
		Policy:        m.Policy,
		MassLimit:     m.MassLimit,
		Interpolation: m.Interpolation,
		Elapsed:       time.Duration(m.ElapsedNS),
		Total:         m.Total,
		Quenched:      m.Quenched,
		Failed:        m.Failed,
		Skipped:       m.Skipped,
		Episodes:      m.Episodes,
		Rejuvenations: m.Rejuvenations,
	}
	if err := storage.DecodeJSON(deref(m.Failures), &s.Failures); err != nil {
		return nil, fmt.Errorf("run %s: bad failures: %w", m.RunID, err)
	}
	return s, nil
}

func toGalaxyModel(rec *storage.GalaxyRecord) (*GalaxyResultModel, error) {
	episodes, err := storage.EncodeJSON(rec.QuenchEpisodes)
	if err != nil {
		return nil, err
	}
	rejuvenations, err := storage.EncodeJSON(rec.Rejuvenations)
	if err != nil {
		return nil, err
	}
	blob, err := storage.EncodeSeries(rec.Interpolated)
	if err != nil {
		return nil, err
	}
	return &GalaxyResultModel{
		RunID:          rec.RunID,
		GalaxyID:       rec.GalaxyID,
		Outcome:        string(rec.Outcome),
		QuenchEpisodes: nullable(episodes),
		Rejuvenations:  nullable(rejuvenations),
		Interpolated:   blob,
	}, nil
}

func fromGalaxyModel(m *GalaxyResultModel) (*storage.GalaxyRecord, error) {
	rec := &storage.GalaxyRecord{
		RunID:    m.RunID,
		GalaxyID: m.GalaxyID,
		Outcome:  batch.Outcome(m.Outcome),
	}
	if err := storage.DecodeJSON(deref(m.QuenchEpisodes), &rec.QuenchEpisodes); err != nil {
		return nil, fmt.Errorf("galaxy %d: bad episodes: %w", m.GalaxyID, err)
	}
	if err := storage.DecodeJSON(deref(m.Rejuvenations), &rec.Rejuvenations); err != nil {
		return nil, fmt.Errorf("galaxy %d: bad rejuvenations: %w", m.GalaxyID, err)
	}
	var err error
	if rec.Interpolated, err = storage.DecodeSeries(m.Interpolated); err != nil {
		return nil, fmt.Errorf("galaxy %d: bad interpolated series: %w", m.GalaxyID, err)
	}
	return rec, nil
}

// SaveRun stores a run and its galaxy records in one transaction
func (t *Store) SaveRun(ctx context.Context, summary *batch.Summary, galaxies []*galaxy.Galaxy) error {
	run, err := toRunModel(summary)
	if err != nil {
		return fmt.Errorf("failed to encode run %s: %w", summary.RunID, err)
	}

	records := storage.Records(summary, galaxies)
	models := make([]*GalaxyResultModel, 0, len(records))
	for i := range records {
		m, err := toGalaxyModel(&records[i])
		if err != nil {
			return fmt.Errorf("failed to encode galaxy %d: %w", records[i].GalaxyID, err)
		}
		models = append(models, m)
	}

	return t.TimescaleDBConn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("could not store run %s: %w", summary.RunID, err)
		}
		if len(models) > 0 {
			if err := tx.CreateInBatches(models, 500).Error; err != nil {
				return fmt.Errorf("could not store galaxy results: %w", err)
			}
		}
		return nil
	})
}

// ListRuns returns every stored run, newest first. Outcomes are not loaded.
func (t *Store) ListRuns(ctx context.Context) ([]batch.Summary, error) {
	var models []RunModel
	if err := t.TimescaleDBConn.WithContext(ctx).Order("started_at DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("error querying runs: %w", err)
	}

	runs := make([]batch.Summary, 0, len(models))
	for i := range models {
		s, err := fromRunModel(&models[i])
		if err != nil {
			return nil, err
		}
		runs = append(runs, *s)
	}
	return runs, nil
}

// GetRun returns a stored run with its per-galaxy outcomes
func (t *Store) GetRun(ctx context.Context, runID uuid.UUID) (*batch.Summary, error) {
	var m RunModel
	err := t.TimescaleDBConn.WithContext(ctx).Where("run_id = ?", runID).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("run %s: %w", runID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying run %s: %w", runID, err)
	}

	s, err := fromRunModel(&m)
	if err != nil {
		return nil, err
	}

	var outcomes []string
	err = t.TimescaleDBConn.WithContext(ctx).Model(&GalaxyResultModel{}).
		Where("run_id = ?", runID).Order("id").Pluck("outcome", &outcomes).Error
	if err != nil {
		return nil, fmt.Errorf("error querying outcomes of run %s: %w", runID, err)
	}
	for _, o := range outcomes {
		s.Outcomes = append(s.Outcomes, batch.Outcome(o))
	}
	return s, nil
}

// ListGalaxies returns the galaxy records of a run in input order
func (t *Store) ListGalaxies(ctx context.Context, runID uuid.UUID) ([]storage.GalaxyRecord, error) {
	var models []GalaxyResultModel
	if err := t.TimescaleDBConn.WithContext(ctx).Where("run_id = ?", runID).Order("id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("error querying galaxies of run %s: %w", runID, err)
	}
	if len(models) == 0 {
		if _, err := t.GetRun(ctx, runID); err != nil {
			return nil, err
		}
	}

	out := make([]storage.GalaxyRecord, 0, len(models))
	for i := range models {
		rec, err := fromGalaxyModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

// GetGalaxy returns one galaxy record of a run
func (t *Store) GetGalaxy(ctx context.Context, runID uuid.UUID, galaxyID int) (*storage.GalaxyRecord, error) {
	var m GalaxyResultModel
	err := t.TimescaleDBConn.WithContext(ctx).Where("run_id = ? AND galaxy_id = ?", runID, galaxyID).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("galaxy %d of run %s: %w", galaxyID, runID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying galaxy %d: %w", galaxyID, err)
	}
	return fromGalaxyModel(&m)
}

// Ping checks the connection with a trivial query
func (t *Store) Ping(ctx context.Context) error {
	sqlDB, err := t.TimescaleDBConn.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return err
	}
	var result int
	return t.TimescaleDBConn.WithContext(ctx).Raw("SELECT 1").Scan(&result).Error
}

// Close closes the underlying connection pool
func (t *Store) Close() error {
	sqlDB, err := t.TimescaleDBConn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
