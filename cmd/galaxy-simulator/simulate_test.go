package main

import (
	"math"
	"reflect"
	"testing"
)

func TestSimulatorGalaxy(t *testing.T) {
	tests := []struct {
		history History
		quiet   bool
	}{
		{history: StarForming, quiet: false},
		{history: Quenching, quiet: true},
		{history: Rejuvenating, quiet: false},
	}

	p := DefaultParams
	p.Noise = 0

	for _, tt := range tests {
		t.Run(tt.history.String(), func(t *testing.T) {
			g := NewSimulator(p, 1).Galaxy(7, tt.history)
			if err := g.Validate(); err != nil {
				t.Fatalf("Validate: %v", err)
			}
			s := g.Raw
			if s.Len() != p.Snapshots {
				t.Fatalf("len = %d, expected %d", s.Len(), p.Snapshots)
			}
			for i := 1; i < s.Len(); i++ {
				if s.Mass[i] < s.Mass[i-1] {
					t.Fatalf("mass decreased at %d", i)
				}
				if s.Redshift[i] >= s.Redshift[i-1] {
					t.Fatalf("redshift not decreasing at %d", i)
				}
			}

			last := s.SSFR[s.Len()-1]
			if quiet := last <= 2*p.QuenchFloor; quiet != tt.quiet {
				t.Errorf("final sSFR %g, expected quiescent=%v", last, tt.quiet)
			}
		})
	}
}

func TestSimulatorReproducible(t *testing.T) {
	a := NewSimulator(DefaultParams, 42).Population(20, 0.5, 0.2)
	b := NewSimulator(DefaultParams, 42).Population(20, 0.5, 0.2)
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed should give the same population")
	}
	if a[0].ID != 1 || a[19].ID != 20 {
		t.Errorf("ids = %d..%d", a[0].ID, a[19].ID)
	}
}

func TestRedshiftAt(t *testing.T) {
	if z := redshiftAt(ageOfUniverse); math.Abs(z) > 1e-12 {
		t.Errorf("z(today) = %g", z)
	}
	if z := redshiftAt(ageOfUniverse / 8); math.Abs(z-3) > 1e-9 {
		t.Errorf("z(t0/8) = %g, expected 3", z)
	}
}
