package galaxy

import (
	"errors"
	"math"
	"testing"
)

func validSeries() Series {
	return Series{
		Mass:     []float64{1e10, 2e10, 3e10},
		SFR:      []float64{10, 5, 0.1},
		Time:     []float64{1, 2, 3},
		Redshift: []float64{5, 3, 2},
	}
}

func TestSeriesValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Series)
		wantErr bool
	}{
		{name: "valid", mutate: func(s *Series) {}},
		{name: "short mass", mutate: func(s *Series) { s.Mass = s.Mass[:2] }, wantErr: true},
		{name: "misaligned redshift", mutate: func(s *Series) { s.Redshift = []float64{1} }, wantErr: true},
		{name: "repeated time", mutate: func(s *Series) { s.Time[2] = 2 }, wantErr: true},
		{name: "decreasing time", mutate: func(s *Series) { s.Time[1] = 0.5 }, wantErr: true},
		{name: "zero mass", mutate: func(s *Series) { s.Mass[0] = 0 }, wantErr: true},
		{name: "nan mass", mutate: func(s *Series) { s.Mass[1] = math.NaN() }, wantErr: true},
		{name: "no redshift is fine", mutate: func(s *Series) { s.Redshift = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSeries()
			tt.mutate(&s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformedSeries) {
				t.Errorf("expected ErrMalformedSeries, got %v", err)
			}
		})
	}
}

func TestComputeSSFR(t *testing.T) {
	s := validSeries()
	s.ComputeSSFR()
	for i := range s.SSFR {
		if want := s.SFR[i] / s.Mass[i]; s.SSFR[i] != want {
			t.Errorf("ssfr[%d] = %g, expected %g", i, s.SSFR[i], want)
		}
	}

	// stored values are kept
	s.SSFR = []float64{1, 2, 3}
	s.ComputeSSFR()
	if s.SSFR[0] != 1 {
		t.Errorf("ComputeSSFR overwrote stored values")
	}
}

func TestGalaxyClone(t *testing.T) {
	interp := validSeries()
	g := &Galaxy{
		ID:             7,
		Raw:            validSeries(),
		Interpolated:   &interp,
		QuenchEpisodes: []QuenchEpisode{{AboveIndex: 1, BelowIndex: 2, Finalized: true}},
		Rejuvenations:  []int{2},
	}
	c := g.Clone()

	c.Raw.Mass[0] = -1
	c.Interpolated.SFR[0] = -1
	c.QuenchEpisodes[0].AboveIndex = 99
	c.Rejuvenations[0] = 99

	if g.Raw.Mass[0] == -1 || g.Interpolated.SFR[0] == -1 {
		t.Errorf("clone shares series memory with the original")
	}
	if g.QuenchEpisodes[0].AboveIndex == 99 || g.Rejuvenations[0] == 99 {
		t.Errorf("clone shares result memory with the original")
	}
}

func TestGalaxySeries(t *testing.T) {
	g := &Galaxy{Raw: validSeries()}
	if g.Series(Raw) != &g.Raw {
		t.Errorf("Series(Raw) should return the raw variant")
	}
	if !g.Series(Interpolated).Empty() {
		t.Errorf("missing interpolated variant should be empty")
	}
	if g.Series(Variant(9)) != nil {
		t.Errorf("unknown variant should be nil")
	}
}
