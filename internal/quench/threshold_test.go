package quench

import (
	"errors"
	"math"
	"testing"

	"github.com/chrissnell/quenchfinder/internal/galaxy"
)

func TestRedshiftPolicy(t *testing.T) {
	tests := []struct {
		name     string
		z        float64
		edge     Edge
		expected float64
	}{
		{name: "start at z=0", z: 0, edge: EdgeStart, expected: -9.5},
		{name: "end at z=0", z: 0, edge: EdgeEnd, expected: -11},
		{name: "start at z=1", z: 1, edge: EdgeStart, expected: -9.2},
		{name: "end at z=1", z: 1, edge: EdgeEnd, expected: -10.7},
		{name: "start at z=2 keeps the offset", z: 2, edge: EdgeStart, expected: -8.9},
		{name: "end above z=2 drops the offset", z: 2.5, edge: EdgeEnd, expected: -11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &galaxy.Series{Time: []float64{1}, Redshift: []float64{tt.z}}
			got := RedshiftPolicy{}.Threshold(tt.edge, s, 0)
			if math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("Threshold = %.6f, expected %.6f", got, tt.expected)
			}
		})
	}
}

func TestCosmicTimePolicy(t *testing.T) {
	s := &galaxy.Series{Time: []float64{1, 10}}

	tests := []struct {
		name     string
		j        int
		edge     Edge
		expected float64
	}{
		{name: "start at 1 Gyr", j: 0, edge: EdgeStart, expected: -9},
		{name: "end at 1 Gyr", j: 0, edge: EdgeEnd, expected: math.Log10(0.2) - 9},
		{name: "start at 10 Gyr", j: 1, edge: EdgeStart, expected: -10},
		{name: "undefined snapshot", j: 5, edge: EdgeStart, expected: 0},
		{name: "negative snapshot", j: -1, edge: EdgeEnd, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosmicTimePolicy{}.Threshold(tt.edge, s, tt.j)
			if math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("Threshold = %.6f, expected %.6f", got, tt.expected)
			}
		})
	}
}

func TestNewPolicy(t *testing.T) {
	if p, err := NewPolicy(PolicyRedshift); err != nil || p == nil {
		t.Errorf("NewPolicy(redshift) = %v, %v", p, err)
	}
	if _, ok := mustPolicy(t, PolicyCosmicTime).(CosmicTimePolicy); !ok {
		t.Errorf("NewPolicy(cosmic_time) returned the wrong policy")
	}
	if _, err := NewPolicy(PolicyID(7)); err == nil {
		t.Errorf("expected an error for an unknown policy")
	}
}

func TestCheckSeries(t *testing.T) {
	s := &galaxy.Series{Time: []float64{1, 2}, Mass: []float64{1, 1}, SFR: []float64{1, 1}}

	if err := CheckSeries(RedshiftPolicy{}, s); !errors.Is(err, galaxy.ErrMalformedSeries) {
		t.Errorf("expected ErrMalformedSeries without redshifts, got %v", err)
	}
	if err := CheckSeries(CosmicTimePolicy{}, s); err != nil {
		t.Errorf("cosmic time policy should not need redshifts: %v", err)
	}
}

func mustPolicy(t *testing.T, id PolicyID) ThresholdPolicy {
	t.Helper()
	p, err := NewPolicy(id)
	if err != nil {
		t.Fatalf("NewPolicy(%s): %v", id, err)
	}
	return p
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in       string
		expected PolicyID
		wantErr  bool
	}{
		{in: "redshift", expected: PolicyRedshift},
		{in: "", expected: PolicyRedshift},
		{in: "1", expected: PolicyCosmicTime},
		{in: "cosmic_time", expected: PolicyCosmicTime},
		{in: "hubble", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParsePolicy(%q) = %s, expected %s", tt.in, got, tt.expected)
		}
	}
}
