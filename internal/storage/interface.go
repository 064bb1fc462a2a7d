// Package storage defines the result stores that persist batch runs and the
// per-galaxy quench results they produced.
package storage

import (
	"context"
	"errors"

	"github.com/chrissnell/quenchfinder/internal/batch"
	"github.com/chrissnell/quenchfinder/internal/galaxy"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a run or galaxy is not in the store
var ErrNotFound = errors.New("not found")

// GalaxyRecord is the stored result of one galaxy in one run
type GalaxyRecord struct {
	RunID          uuid.UUID              `json:"run_id"`
	GalaxyID       int                    `json:"galaxy_id"`
	Outcome        batch.Outcome          `json:"outcome"`
	QuenchEpisodes []galaxy.QuenchEpisode `json:"quench_episodes,omitempty"`
	Rejuvenations  []int                  `json:"rejuvenations,omitempty"`
	Interpolated   *galaxy.Series         `json:"interpolated,omitempty"`
}

// ResultStore is implemented by every storage backend
type ResultStore interface {
	// SaveRun stores the summary of a run and one record per galaxy
	SaveRun(ctx context.Context, summary *batch.Summary, galaxies []*galaxy.Galaxy) error
	ListRuns(ctx context.Context) ([]batch.Summary, error)
	GetRun(ctx context.Context, runID uuid.UUID) (*batch.Summary, error)
	ListGalaxies(ctx context.Context, runID uuid.UUID) ([]GalaxyRecord, error)
	GetGalaxy(ctx context.Context, runID uuid.UUID, galaxyID int) (*GalaxyRecord, error)
	Ping(ctx context.Context) error
	Close() error
}

// Records builds the per-galaxy records of a run. galaxies must be index-aligned
// with summary.Outcomes.
func Records(summary *batch.Summary, galaxies []*galaxy.Galaxy) []GalaxyRecord {
	out := make([]GalaxyRecord, 0, len(galaxies))
	for i, g := range galaxies {
		if g == nil {
			continue
		}
		rec := GalaxyRecord{
			RunID:          summary.RunID,
			GalaxyID:       g.ID,
			QuenchEpisodes: g.QuenchEpisodes,
			Rejuvenations:  g.Rejuvenations,
			Interpolated:   g.Interpolated,
		}
		if i < len(summary.Outcomes) {
			rec.Outcome = summary.Outcomes[i]
		}
		out = append(out, rec)
	}
	return out
}
