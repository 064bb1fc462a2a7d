package quench

import (
	"errors"
	"reflect"
	"testing"

	"github.com/chrissnell/quenchfinder/internal/galaxy"
	"go.uber.org/zap"
)

func newTestScanner() *Scanner {
	return NewScanner(RedshiftPolicy{}, zap.NewNop().Sugar())
}

func TestScanRaw(t *testing.T) {
	tests := []struct {
		name          string
		times         []float64
		ssfr          []float64
		episodes      []galaxy.QuenchEpisode
		rejuvenations []int
	}{
		{
			name:  "single quench",
			times: evenTimes(10, 1.0, 0.5),
			ssfr:  []float64{hi, hi, mid, lo, lo, lo, lo, lo, lo, lo},
			episodes: []galaxy.QuenchEpisode{
				{AboveIndex: 1, BelowIndex: 3, Finalized: true, Duration: 0.5, ResolvedIndex: 3},
			},
		},
		{
			name:  "never quenches",
			times: evenTimes(8, 1.0, 0.5),
			ssfr:  []float64{hi, hi, hi, hi, hi, hi, hi, hi},
		},
		{
			name:  "never star forming",
			times: evenTimes(8, 1.0, 0.5),
			ssfr:  []float64{lo, lo, lo, lo, lo, lo, lo, lo},
		},
		{
			name:  "open episode at the end is dropped",
			times: evenTimes(8, 1.0, 0.5),
			ssfr:  []float64{hi, hi, mid, mid, mid, mid, mid, mid},
		},
		{
			name:  "false alarm restarts detection",
			times: evenTimes(10, 1.0, 0.5),
			ssfr:  []float64{hi, mid, hi, mid, lo, lo, lo, lo, lo, lo},
			episodes: []galaxy.QuenchEpisode{
				{AboveIndex: 2, BelowIndex: 4, Finalized: true, Duration: 0.5, ResolvedIndex: 4},
			},
		},
		{
			name:  "upturn inside the cooldown discards the quench",
			times: evenTimes(10, 1.0, 0.05),
			ssfr:  []float64{hi, mid, lo, hi, hi, hi, hi, hi, hi, hi},
		},
		{
			name:  "rejuvenation after the cooldown",
			times: evenTimes(10, 1.0, 0.5),
			ssfr:  []float64{hi, mid, lo, lo, hi, hi, hi, hi, hi, hi},
			episodes: []galaxy.QuenchEpisode{
				{AboveIndex: 0, BelowIndex: 2, Finalized: true, Duration: 0.5, ResolvedIndex: 2},
			},
			rejuvenations: []int{4},
		},
		{
			name:  "last three snapshots are not scanned",
			times: evenTimes(8, 1.0, 0.5),
			ssfr:  []float64{hi, hi, hi, hi, hi, mid, lo, lo},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildGalaxy(1, tt.times, tt.ssfr)
			g.ComputeSSFR()

			if err := newTestScanner().Scan(g, galaxy.Raw); err != nil {
				t.Fatalf("Scan: %v", err)
			}
			if len(g.QuenchEpisodes) != len(tt.episodes) {
				t.Fatalf("got %d episodes, expected %d: %+v", len(g.QuenchEpisodes), len(tt.episodes), g.QuenchEpisodes)
			}
			for i, want := range tt.episodes {
				assertEpisode(t, g.QuenchEpisodes[i], want)
			}
			if len(g.Rejuvenations) != len(tt.rejuvenations) ||
				(len(tt.rejuvenations) > 0 && !reflect.DeepEqual(g.Rejuvenations, tt.rejuvenations)) {
				t.Errorf("rejuvenations = %v, expected %v", g.Rejuvenations, tt.rejuvenations)
			}
		})
	}
}

func TestScanRejectsMassSpike(t *testing.T) {
	g := buildGalaxy(1, evenTimes(10, 1.0, 0.5), []float64{hi, mid, lo, lo, hi, hi, hi, hi, hi, hi})
	// a merger-like jump at the upturn snapshot
	g.Raw.Mass[4] *= 3
	g.Raw.SFR[4] *= 3
	g.ComputeSSFR()

	if err := newTestScanner().Scan(g, galaxy.Raw); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(g.Rejuvenations) != 0 {
		t.Errorf("expected no rejuvenations, got %v", g.Rejuvenations)
	}
	if len(g.QuenchEpisodes) != 1 {
		t.Errorf("expected the quench to survive, got %+v", g.QuenchEpisodes)
	}
}

func TestScanNoVariant(t *testing.T) {
	g := buildGalaxy(3, evenTimes(6, 1.0, 0.5), []float64{hi, hi, hi, hi, hi, hi})

	err := newTestScanner().Scan(g, galaxy.Interpolated)
	if !errors.Is(err, ErrNoVariant) {
		t.Fatalf("expected ErrNoVariant, got %v", err)
	}
	var se *ScanError
	if !errors.As(err, &se) || se.GalaxyID != 3 {
		t.Errorf("expected a ScanError for galaxy 3, got %#v", err)
	}
}

func TestScanInterpolatedResolvesRawIndices(t *testing.T) {
	raw := buildSeries(evenTimes(6, 1.0, 1.0), []float64{hi, hi, lo, lo, lo, lo})
	interpTimes := []float64{1.0, 1.2, 1.4, 1.6, 1.8, 2.2, 2.4, 2.6, 2.8, 3.0, 3.2, 3.4}
	interpolated := buildSeries(interpTimes, []float64{hi, hi, hi, hi, hi, mid, near, near, near, hi, hi, hi})
	for i := range interpolated.Mass {
		interpolated.Mass[i] = 1e10 * (1 + 0.02*float64(i))
	}
	for i, s := range []float64{hi, hi, hi, hi, hi, mid, near, near, near, hi, hi, hi} {
		interpolated.SFR[i] = s * interpolated.Mass[i]
	}
	g := &galaxy.Galaxy{ID: 9, Raw: raw, Interpolated: &interpolated}

	if err := newTestScanner().ProcessInterpolated(g); err != nil {
		t.Fatalf("ProcessInterpolated: %v", err)
	}

	if len(g.QuenchEpisodes) != 1 {
		t.Fatalf("expected one episode, got %+v", g.QuenchEpisodes)
	}
	// t=2.4 is nearest raw snapshot 1, which is still above the end threshold
	assertEpisode(t, g.QuenchEpisodes[0], galaxy.QuenchEpisode{
		AboveIndex: 4, BelowIndex: 6, Finalized: true, Duration: 0.2, ResolvedIndex: 2,
	})
	// t=3.0 is raw snapshot 2, which is still below the start threshold
	if !reflect.DeepEqual(g.Rejuvenations, []int{3}) {
		t.Errorf("rejuvenations = %v, expected [3]", g.Rejuvenations)
	}
}

func TestScanInterpolatedOutOfRange(t *testing.T) {
	times := evenTimes(5, 1.0, 0.5)
	raw := buildSeries(times, []float64{hi, mid, lo, lo, hi})
	interpolated := buildSeries(times, []float64{hi, mid, lo, lo, hi})
	g := &galaxy.Galaxy{ID: 4, Raw: raw, Interpolated: &interpolated}

	err := newTestScanner().ProcessInterpolated(g)
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	var se *ScanError
	if !errors.As(err, &se) || se.Index != 4 {
		t.Errorf("expected the error at snapshot 4, got %#v", err)
	}
}

func TestProcessRaw(t *testing.T) {
	ssfr := []float64{hi, hi, mid, 5e-11, 2e-11, lo, lo, lo, lo, lo, lo, lo}
	g := buildGalaxy(2, evenTimes(len(ssfr), 1.0, 0.5), ssfr)

	if err := newTestScanner().ProcessRaw(g); err != nil {
		t.Fatalf("ProcessRaw: %v", err)
	}
	if g.QuenchEpisodes != nil || g.Rejuvenations != nil {
		t.Errorf("expected lists cleared, got %+v / %v", g.QuenchEpisodes, g.Rejuvenations)
	}
	if g.Interpolated == nil || g.Interpolated.Empty() {
		t.Fatalf("expected an interpolated variant")
	}
	n := g.Interpolated.Len()
	if len(g.Interpolated.SSFR) != n || len(g.Interpolated.Redshift) != n {
		t.Errorf("interpolated series misaligned: %d times, %d ssfr, %d redshifts",
			n, len(g.Interpolated.SSFR), len(g.Interpolated.Redshift))
	}
}

func TestProcessRawNarrowWindow(t *testing.T) {
	g := buildGalaxy(2, evenTimes(10, 1.0, 0.5), []float64{hi, mid, lo, lo, lo, lo, lo, lo, lo, lo})

	if err := newTestScanner().ProcessRaw(g); err != nil {
		t.Fatalf("ProcessRaw: %v", err)
	}
	if g.Interpolated != nil {
		t.Errorf("expected no interpolated variant for a three snapshot window")
	}
}

func TestPassesTerminalGate(t *testing.T) {
	tests := []struct {
		name      string
		ssfr      []float64
		massLimit float64
		expected  bool
	}{
		{name: "quenched and massive", ssfr: []float64{hi, hi, lo}, massLimit: 10, expected: true},
		{name: "still star forming", ssfr: []float64{lo, lo, hi}, massLimit: 10, expected: false},
		{name: "too light", ssfr: []float64{hi, hi, lo}, massLimit: 11, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildGalaxy(1, evenTimes(3, 1.0, 0.5), tt.ssfr)
			before := g.Clone()
			if got := newTestScanner().PassesTerminalGate(g, tt.massLimit); got != tt.expected {
				t.Errorf("PassesTerminalGate = %v, expected %v", got, tt.expected)
			}
			if !reflect.DeepEqual(g, before) {
				t.Errorf("PassesTerminalGate modified the galaxy")
			}
		})
	}
}

func assertEpisode(t *testing.T, got, want galaxy.QuenchEpisode) {
	t.Helper()
	if got.AboveIndex != want.AboveIndex || got.BelowIndex != want.BelowIndex ||
		got.Finalized != want.Finalized || got.ResolvedIndex != want.ResolvedIndex {
		t.Errorf("episode = %+v, expected %+v", got, want)
	}
	if d := got.Duration - want.Duration; d > 1e-9 || d < -1e-9 {
		t.Errorf("duration = %f, expected %f", got.Duration, want.Duration)
	}
}
