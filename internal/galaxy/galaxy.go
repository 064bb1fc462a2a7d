// Package galaxy holds the per-galaxy time series that the quenching finder scans.
// Each galaxy carries a raw variant (native snapshot sampling) and, once an episode has
// been refined, an interpolated variant resampled on a fine time grid.
package galaxy

import (
	"errors"
	"fmt"
	"math"
)

// ErrMalformedSeries is returned when a series has misaligned arrays or non-increasing time
var ErrMalformedSeries = errors.New("malformed series")

// Variant selects one of the two time series carried by a galaxy
type Variant int

const (
	// Raw is the native snapshot sampling from the simulation
	Raw Variant = iota
	// Interpolated is the spline-resampled series built around quench episodes
	Interpolated
)

// String returns the variant name used in logs and stored records
func (v Variant) String() string {
	switch v {
	case Raw:
		return "raw"
	case Interpolated:
		return "interpolated"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// Series is one time-ordered variant of a galaxy's star-formation history.
// All slices are index-aligned: element i describes snapshot i.
type Series struct {
	Mass     []float64    `json:"mass"`               // stellar mass, Msun
	SFR      []float64    `json:"sfr"`                // star-formation rate, Msun/yr
	SSFR     []float64    `json:"ssfr,omitempty"`     // specific SFR, 1/yr
	Time     []float64    `json:"time"`               // cosmic time, Gyr
	Redshift []float64    `json:"redshift,omitempty"` // redshift per snapshot
	Position [][3]float64 `json:"position,omitempty"` // comoving position, optional
}

// Len returns the number of snapshots in the series
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Time)
}

// Empty reports whether the series has no snapshots
func (s *Series) Empty() bool {
	return s.Len() == 0
}

// ComputeSSFR fills SSFR from SFR/Mass when it was not stored separately
func (s *Series) ComputeSSFR() {
	if s == nil || len(s.SSFR) == len(s.SFR) && len(s.SSFR) > 0 {
		return
	}
	s.SSFR = make([]float64, len(s.SFR))
	for i := range s.SFR {
		s.SSFR[i] = s.SFR[i] / s.Mass[i]
	}
}

// Validate checks array alignment, strictly increasing time and positive mass
func (s *Series) Validate() error {
	n := len(s.Time)
	if len(s.Mass) != n || len(s.SFR) != n {
		return fmt.Errorf("%w: time/mass/sfr lengths %d/%d/%d", ErrMalformedSeries, n, len(s.Mass), len(s.SFR))
	}
	if len(s.SSFR) != 0 && len(s.SSFR) != n {
		return fmt.Errorf("%w: ssfr length %d, want %d", ErrMalformedSeries, len(s.SSFR), n)
	}
	if len(s.Redshift) != 0 && len(s.Redshift) != n {
		return fmt.Errorf("%w: redshift length %d, want %d", ErrMalformedSeries, len(s.Redshift), n)
	}
	if len(s.Position) != 0 && len(s.Position) != n {
		return fmt.Errorf("%w: position length %d, want %d", ErrMalformedSeries, len(s.Position), n)
	}
	for i := 1; i < n; i++ {
		if !(s.Time[i] > s.Time[i-1]) {
			return fmt.Errorf("%w: time not increasing at snapshot %d (%g after %g)", ErrMalformedSeries, i, s.Time[i], s.Time[i-1])
		}
	}
	for i, m := range s.Mass {
		if !(m > 0) {
			return fmt.Errorf("%w: non-positive mass %g at snapshot %d", ErrMalformedSeries, m, i)
		}
	}
	return nil
}

// Clone returns a deep copy of the series
func (s *Series) Clone() *Series {
	if s == nil {
		return nil
	}
	c := &Series{
		Mass:     cloneFloats(s.Mass),
		SFR:      cloneFloats(s.SFR),
		SSFR:     cloneFloats(s.SSFR),
		Time:     cloneFloats(s.Time),
		Redshift: cloneFloats(s.Redshift),
	}
	if s.Position != nil {
		c.Position = make([][3]float64, len(s.Position))
		copy(c.Position, s.Position)
	}
	return c
}

// LogMassAt returns log10 of the stellar mass at snapshot j
func (s *Series) LogMassAt(j int) float64 {
	return math.Log10(s.Mass[j])
}

// QuenchEpisode is one candidate quenching event. It is kept only once BelowIndex
// has been set (Finalized).
type QuenchEpisode struct {
	AboveIndex    int     `json:"above_index"`    // last snapshot above the start threshold
	BelowIndex    int     `json:"below_index"`    // first snapshot below the end threshold
	Finalized     bool    `json:"finalized"`      // BelowIndex is meaningful
	Duration      float64 `json:"duration"`       // Gyr between the drop and the confirmation
	ResolvedIndex int     `json:"resolved_index"` // BelowIndex expressed in the raw variant
}

// Galaxy is a single simulated galaxy and the derived quenching results
type Galaxy struct {
	ID             int             `json:"id"`
	Raw            Series          `json:"raw"`
	Interpolated   *Series         `json:"interpolated,omitempty"`
	QuenchEpisodes []QuenchEpisode `json:"quench_episodes,omitempty"`
	Rejuvenations  []int           `json:"rejuvenations,omitempty"`
}

// Series returns the requested variant, or nil if the galaxy does not carry it
func (g *Galaxy) Series(v Variant) *Series {
	switch v {
	case Raw:
		return &g.Raw
	case Interpolated:
		return g.Interpolated
	default:
		return nil
	}
}

// Validate checks both variants that are present
func (g *Galaxy) Validate() error {
	if err := g.Raw.Validate(); err != nil {
		return fmt.Errorf("galaxy %d raw: %w", g.ID, err)
	}
	if g.Interpolated != nil {
		if err := g.Interpolated.Validate(); err != nil {
			return fmt.Errorf("galaxy %d interpolated: %w", g.ID, err)
		}
	}
	return nil
}

// ComputeSSFR fills the specific SFR of every variant present
func (g *Galaxy) ComputeSSFR() {
	g.Raw.ComputeSSFR()
	g.Interpolated.ComputeSSFR()
}

// Clone returns a deep copy that shares no memory with g
func (g *Galaxy) Clone() *Galaxy {
	c := &Galaxy{
		ID:           g.ID,
		Raw:          *g.Raw.Clone(),
		Interpolated: g.Interpolated.Clone(),
	}
	if g.QuenchEpisodes != nil {
		c.QuenchEpisodes = make([]QuenchEpisode, len(g.QuenchEpisodes))
		copy(c.QuenchEpisodes, g.QuenchEpisodes)
	}
	if g.Rejuvenations != nil {
		c.Rejuvenations = make([]int, len(g.Rejuvenations))
		copy(c.Rejuvenations, g.Rejuvenations)
	}
	return c
}

func cloneFloats(in []float64) []float64 {
	if in == nil {
		return nil
	}
	out := make([]float64, len(in))
	copy(out, in)
	return out
}
