package batch

import (
	"sort"

	"github.com/chrissnell/quenchfinder/internal/galaxy"
	"gonum.org/v1/gonum/stat"
)

// EpisodeStats summarizes the durations of the quench episodes of a run, Gyr
type EpisodeStats struct {
	Count          int     `json:"count"`
	MeanDuration   float64 `json:"mean_duration"`
	MedianDuration float64 `json:"median_duration"`
	StdDev         float64 `json:"std_dev"`
	MinDuration    float64 `json:"min_duration"`
	MaxDuration    float64 `json:"max_duration"`
}

// Stats computes episode duration statistics over every galaxy in galaxies
func Stats(galaxies []*galaxy.Galaxy) EpisodeStats {
	var durations []float64
	for _, g := range galaxies {
		if g == nil {
			continue
		}
		for _, ep := range g.QuenchEpisodes {
			durations = append(durations, ep.Duration)
		}
	}

	st := EpisodeStats{Count: len(durations)}
	if len(durations) == 0 {
		return st
	}

	sort.Float64s(durations)
	st.MeanDuration = stat.Mean(durations, nil)
	st.MedianDuration = stat.Quantile(0.5, stat.Empirical, durations, nil)
	st.MinDuration = durations[0]
	st.MaxDuration = durations[len(durations)-1]
	if len(durations) > 1 {
		st.StdDev = stat.StdDev(durations, nil)
	}
	return st
}
