package quench

import (
	"math"

	"github.com/chrissnell/quenchfinder/internal/galaxy"
)

// Thresholds of RedshiftPolicy at z = 0
const (
	hi   = 1e-9  // above the start threshold (10^-9.5)
	mid  = 1e-10 // between the two thresholds
	lo   = 1e-12 // below the end threshold (10^-11)
	near = 5e-12 // below the end threshold
)

// evenTimes returns n cosmic times starting at t0 with spacing dt
func evenTimes(n int, t0, dt float64) []float64 {
	ts := make([]float64, n)
	for i := range ts {
		ts[i] = t0 + float64(i)*dt
	}
	return ts
}

// buildSeries makes a z = 0 series with mass growing 5% per snapshot and the given sSFR
func buildSeries(times, ssfr []float64) galaxy.Series {
	n := len(times)
	s := galaxy.Series{
		Time:     append([]float64(nil), times...),
		Mass:     make([]float64, n),
		SFR:      make([]float64, n),
		Redshift: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		s.Mass[i] = 1e10 * math.Pow(1.05, float64(i))
		s.SFR[i] = ssfr[i] * s.Mass[i]
	}
	return s
}

func buildGalaxy(id int, times, ssfr []float64) *galaxy.Galaxy {
	return &galaxy.Galaxy{ID: id, Raw: buildSeries(times, ssfr)}
}
