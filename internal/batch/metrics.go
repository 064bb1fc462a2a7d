package batch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	galaxiesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quenchfinder",
		Subsystem: "batch",
		Name:      "galaxies_total",
		Help:      "Galaxies processed, by outcome.",
	}, []string{"outcome", "variant"})

	episodesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quenchfinder",
		Subsystem: "batch",
		Name:      "quench_episodes_total",
		Help:      "Finalized quench episodes kept after scanning.",
	})

	rejuvenationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quenchfinder",
		Subsystem: "batch",
		Name:      "rejuvenations_total",
		Help:      "Genuine rejuvenations recorded after scanning.",
	})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "quenchfinder",
		Subsystem: "batch",
		Name:      "run_duration_seconds",
		Help:      "Wall time of a batch run.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
	}, []string{"variant"})
)

func observeRun(s *Summary) {
	variant := "raw"
	if s.Interpolation {
		variant = "interpolated"
	}
	for _, o := range s.Outcomes {
		galaxiesTotal.WithLabelValues(string(o), variant).Inc()
	}
	episodesTotal.Add(float64(s.Episodes))
	rejuvenationsTotal.Add(float64(s.Rejuvenations))
	runDuration.WithLabelValues(variant).Observe(s.Elapsed.Seconds())
}
