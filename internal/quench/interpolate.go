package quench

import (
	"fmt"
	"math"

	"github.com/chrissnell/quenchfinder/internal/galaxy"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

// DefaultResampleStep is the time step of interpolated series, Gyr
const DefaultResampleStep = 0.001

// minWindowSnapshots is the window size a spline fit needs to be attempted
const minWindowSnapshots = 3

// Interpolator builds the interpolated variant of a galaxy around its quench episodes
type Interpolator struct {
	Step float64
}

// NewInterpolator returns an Interpolator resampling at DefaultResampleStep
func NewInterpolator() *Interpolator {
	return &Interpolator{Step: DefaultResampleStep}
}

// Window returns the inclusive raw snapshot range spanning every finalized episode
// of g, and whether it is wide enough to interpolate.
func Window(g *galaxy.Galaxy) (first, last int, ok bool) {
	n := g.Raw.Len()
	if len(g.QuenchEpisodes) == 0 {
		return 0, 0, false
	}

	lo, hi := math.MaxInt, math.MinInt
	limit := 0
	for _, ep := range g.QuenchEpisodes {
		above, below := ep.AboveIndex, ep.BelowIndex+1
		limit = 0
		if above-limit < 0 || below+limit >= n {
			limit = min(n-below, above)
		}
		lo = min(lo, above-limit)
		hi = max(hi, below+limit)
	}

	// the padding of the last episode also pads the union window
	return lo - limit, hi + limit, hi+limit-lo > minWindowSnapshots
}

// Interpolate fits cubic splines to SFR and mass over the episode window of the raw
// variant and stores the resampled series as g.Interpolated. It returns
// ErrInsufficientWindow, leaving g untouched, when the window is too narrow.
func (in *Interpolator) Interpolate(g *galaxy.Galaxy) error {
	first, last, ok := Window(g)
	if !ok {
		return fmt.Errorf("%w: galaxy %d window [%d, %d]", ErrInsufficientWindow, g.ID, first, last)
	}
	raw := &g.Raw
	if first < 0 || last >= raw.Len() {
		return &ScanError{GalaxyID: g.ID, Index: last, Err: fmt.Errorf("%w: window [%d, %d] of %d snapshots",
			ErrOutOfRange, first, last, raw.Len())}
	}

	ts := raw.Time[first : last+1]
	grid := resampleGrid(floats.Min(ts), floats.Max(ts), in.Step)

	sfr, err := fitCubic(ts, raw.SFR[first:last+1], grid)
	if err != nil {
		return fmt.Errorf("galaxy %d: sfr spline: %w", g.ID, err)
	}
	mass, err := fitCubic(ts, raw.Mass[first:last+1], grid)
	if err != nil {
		return fmt.Errorf("galaxy %d: mass spline: %w", g.ID, err)
	}

	out := &galaxy.Series{
		Time: grid,
		SFR:  sfr,
		Mass: mass,
		SSFR: make([]float64, len(grid)),
	}
	for i := range grid {
		out.SSFR[i] = sfr[i] / mass[i]
	}

	if len(raw.Redshift) == raw.Len() {
		var z interp.PiecewiseLinear
		if err := z.Fit(ts, raw.Redshift[first:last+1]); err != nil {
			return fmt.Errorf("galaxy %d: redshift fit: %w", g.ID, err)
		}
		out.Redshift = predict(&z, grid)
	}

	g.Interpolated = out
	return nil
}

// fitCubic fits a not-a-knot cubic spline through (xs, ys) and evaluates it on grid
func fitCubic(xs, ys, grid []float64) ([]float64, error) {
	var spline interp.NotAKnotCubic
	if err := spline.Fit(xs, ys); err != nil {
		return nil, err
	}
	return predict(&spline, grid), nil
}

func predict(p interp.Predictor, grid []float64) []float64 {
	out := make([]float64, len(grid))
	for i, x := range grid {
		out[i] = p.Predict(x)
	}
	return out
}

// resampleGrid returns lo, lo+step, ... strictly below hi
func resampleGrid(lo, hi, step float64) []float64 {
	n := int(math.Ceil((hi - lo) / step))
	if n < 0 {
		n = 0
	}
	grid := make([]float64, n)
	for i := range grid {
		grid[i] = lo + float64(i)*step
	}
	return grid
}
