package restserver

import (
	"github.com/chrissnell/quenchfinder/internal/batch"
	"github.com/chrissnell/quenchfinder/internal/storage"
)

// RunList is the response of /runs
type RunList struct {
	Count int             `json:"count"`
	Runs  []batch.Summary `json:"runs"`
}

// GalaxyList is the response of /runs/{id}/galaxies
type GalaxyList struct {
	RunID    string                 `json:"run_id"`
	Count    int                    `json:"count"`
	Galaxies []storage.GalaxyRecord `json:"galaxies"`
}

// RunStats is the response of /runs/{id}/stats
type RunStats struct {
	RunID    string             `json:"run_id"`
	Outcomes map[string]int     `json:"outcomes"`
	Episodes batch.EpisodeStats `json:"episodes"`
}

// HealthResponse is the response of /health
type HealthResponse struct {
	Status string                    `json:"status"`
	Stores map[string]storage.Health `json:"stores,omitempty"`
	Error  string                    `json:"error,omitempty"`
}
