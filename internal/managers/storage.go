package managers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chrissnell/quenchfinder/internal/batch"
	"github.com/chrissnell/quenchfinder/internal/galaxy"
	"github.com/chrissnell/quenchfinder/internal/storage"
	"github.com/chrissnell/quenchfinder/internal/storage/sqlite"
	"github.com/chrissnell/quenchfinder/internal/storage/timescaledb"
	"github.com/chrissnell/quenchfinder/pkg/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoStores is returned by reads when no result store is configured
var ErrNoStores = errors.New("no result store configured")

const healthCheckInterval = 30 * time.Second

// StorageEngine is one configured result store
type StorageEngine struct {
	Name  string
	Store storage.ResultStore
}

// StorageManager holds our active result stores. Writes fan out to every
// engine; reads are served by the first one.
type StorageManager struct {
	Engines []StorageEngine
	Health  *storage.HealthManager
	logger  *zap.SugaredLogger
}

var _ storage.ResultStore = (*StorageManager)(nil)

// NewStorageManager creates a StorageManager populated with all configured stores
func NewStorageManager(ctx context.Context, c *config.StorageData, logger *zap.SugaredLogger) (*StorageManager, error) {
	s := &StorageManager{
		Health: storage.NewHealthManager(),
		logger: logger,
	}

	if c.SQLite != nil && c.SQLite.Path != "" {
		if err := s.AddEngine(ctx, "sqlite", c); err != nil {
			s.Close()
			return nil, fmt.Errorf("could not add SQLite storage backend: %w", err)
		}
	}

	if c.TimescaleDB != nil && c.TimescaleDB.ConnectionString != "" {
		if err := s.AddEngine(ctx, "timescaledb", c); err != nil {
			s.Close()
			return nil, fmt.Errorf("could not add TimescaleDB storage backend: %w", err)
		}
	}

	return s, nil
}

// AddEngine opens the store named engineName and adds it to the manager
func (s *StorageManager) AddEngine(ctx context.Context, engineName string, c *config.StorageData) error {
	var (
		store storage.ResultStore
		err   error
	)

	switch engineName {
	case "sqlite":
		store, err = sqlite.New(c.SQLite.Path, s.logger)
	case "timescaledb":
		store, err = timescaledb.New(ctx, c.TimescaleDB.ConnectionString, s.logger.Desugar())
	default:
		return fmt.Errorf("unknown storage engine: %s", engineName)
	}
	if err != nil {
		return err
	}

	s.Engines = append(s.Engines, StorageEngine{Name: engineName, Store: store})
	return nil
}

// StartHealthMonitor pings every engine periodically until ctx is done
func (s *StorageManager) StartHealthMonitor(ctx context.Context, wg *sync.WaitGroup) {
	if len(s.Engines) == 0 {
		return
	}
	stores := make(map[string]storage.ResultStore, len(s.Engines))
	for _, e := range s.Engines {
		stores[e.Name] = e.Store
	}
	s.Health.StartHealthMonitor(ctx, wg, stores, healthCheckInterval, s.logger)
}

func (s *StorageManager) primary() (storage.ResultStore, error) {
	if len(s.Engines) == 0 {
		return nil, ErrNoStores
	}
	return s.Engines[0].Store, nil
}

// SaveRun writes the run to every engine. A failing engine does not stop the others.
func (s *StorageManager) SaveRun(ctx context.Context, summary *batch.Summary, galaxies []*galaxy.Galaxy) error {
	var errs []error
	for _, e := range s.Engines {
		if err := e.Store.SaveRun(ctx, summary, galaxies); err != nil {
			s.logger.Errorw("could not store run", "engine", e.Name, "run", summary.RunID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
			continue
		}
		s.logger.Infow("stored run", "engine", e.Name, "run", summary.RunID, "galaxies", len(galaxies))
	}
	return errors.Join(errs...)
}

func (s *StorageManager) ListRuns(ctx context.Context) ([]batch.Summary, error) {
	p, err := s.primary()
	if err != nil {
		return nil, err
	}
	return p.ListRuns(ctx)
}

func (s *StorageManager) GetRun(ctx context.Context, runID uuid.UUID) (*batch.Summary, error) {
	p, err := s.primary()
	if err != nil {
		return nil, err
	}
	return p.GetRun(ctx, runID)
}

func (s *StorageManager) ListGalaxies(ctx context.Context, runID uuid.UUID) ([]storage.GalaxyRecord, error) {
	p, err := s.primary()
	if err != nil {
		return nil, err
	}
	return p.ListGalaxies(ctx, runID)
}

func (s *StorageManager) GetGalaxy(ctx context.Context, runID uuid.UUID, galaxyID int) (*storage.GalaxyRecord, error) {
	p, err := s.primary()
	if err != nil {
		return nil, err
	}
	return p.GetGalaxy(ctx, runID, galaxyID)
}

// Ping checks every engine and records the results in Health
func (s *StorageManager) Ping(ctx context.Context) error {
	if len(s.Engines) == 0 {
		return ErrNoStores
	}
	var errs []error
	for _, e := range s.Engines {
		if h := s.Health.Check(ctx, e.Name, e.Store); h.Error != "" {
			errs = append(errs, fmt.Errorf("%s: %s", e.Name, h.Error))
		}
	}
	return errors.Join(errs...)
}

// Close closes every engine
func (s *StorageManager) Close() error {
	var errs []error
	for _, e := range s.Engines {
		if err := e.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
		}
	}
	return errors.Join(errs...)
}
