package main

import (
	"math"
	"math/rand"

	"github.com/chrissnell/quenchfinder/internal/galaxy"
)

// Age of the universe in Gyr, used for the matter-dominated time/redshift relation
const ageOfUniverse = 13.8

// History is the kind of star-formation history a synthetic galaxy follows
type History int

const (
	StarForming History = iota
	Quenching
	Rejuvenating
)

func (h History) String() string {
	switch h {
	case StarForming:
		return "star_forming"
	case Quenching:
		return "quenching"
	case Rejuvenating:
		return "rejuvenating"
	}
	return "unknown"
}

// Params control the synthetic population
type Params struct {
	Snapshots   int
	StartTime   float64 // Gyr
	EndTime     float64 // Gyr
	LogMassMin  float64 // initial log10 Msun
	LogMassMax  float64
	Noise       float64 // lognormal sigma applied to sSFR
	QuenchTau   float64 // e-folding time of the sSFR decline, Gyr
	QuenchFloor float64 // sSFR floor after quenching, 1/yr
}

// DefaultParams is a population resembling a coarse cosmological run
var DefaultParams = Params{
	Snapshots:   60,
	StartTime:   0.5,
	EndTime:     13.7,
	LogMassMin:  8.5,
	LogMassMax:  10.0,
	Noise:       0.05,
	QuenchTau:   0.3,
	QuenchFloor: 1e-12,
}

// redshiftAt inverts t = t0 (1+z)^(-3/2)
func redshiftAt(t float64) float64 {
	return math.Pow(ageOfUniverse/t, 2.0/3.0) - 1
}

// mainSequence is a declining star-forming sSFR, 1/yr
func mainSequence(t float64) float64 {
	return 2e-9 / math.Max(t, 0.5)
}

// Simulator draws synthetic galaxies
type Simulator struct {
	p   Params
	rng *rand.Rand
}

// NewSimulator returns a Simulator with a fixed seed so catalogs are reproducible
func NewSimulator(p Params, seed int64) *Simulator {
	return &Simulator{p: p, rng: rand.New(rand.NewSource(seed))}
}

// Galaxy draws one galaxy with the given history
func (s *Simulator) Galaxy(id int, h History) *galaxy.Galaxy {
	p := s.p
	n := p.Snapshots
	dt := (p.EndTime - p.StartTime) / float64(n-1)

	span := p.EndTime - p.StartTime
	tQuench := p.StartTime + span*(0.3+0.4*s.rng.Float64())
	tRejuv := tQuench + span*(0.1+0.15*s.rng.Float64())

	series := galaxy.Series{
		Mass:     make([]float64, n),
		SFR:      make([]float64, n),
		SSFR:     make([]float64, n),
		Time:     make([]float64, n),
		Redshift: make([]float64, n),
	}

	mass := math.Pow(10, p.LogMassMin+(p.LogMassMax-p.LogMassMin)*s.rng.Float64())
	for i := 0; i < n; i++ {
		t := p.StartTime + float64(i)*dt

		ssfr := mainSequence(t)
		if h != StarForming && t > tQuench {
			ssfr = math.Max(ssfr*math.Exp(-(t-tQuench)/p.QuenchTau), p.QuenchFloor)
			if h == Rejuvenating && t > tRejuv {
				ssfr = mainSequence(t) / 2
			}
		}
		ssfr *= math.Exp(p.Noise * s.rng.NormFloat64())

		series.Time[i] = t
		series.Redshift[i] = redshiftAt(t)
		series.Mass[i] = mass
		series.SSFR[i] = ssfr
		series.SFR[i] = ssfr * mass

		// Gyr to yr
		mass += series.SFR[i] * dt * 1e9
	}

	return &galaxy.Galaxy{ID: id, Raw: series}
}

// Population draws count galaxies with the given fractions of quenching and
// rejuvenating histories; the rest keep forming stars
func (s *Simulator) Population(count int, quenchFrac, rejuvFrac float64) []*galaxy.Galaxy {
	out := make([]*galaxy.Galaxy, 0, count)
	for i := 0; i < count; i++ {
		h := StarForming
		switch r := s.rng.Float64(); {
		case r < rejuvFrac:
			h = Rejuvenating
		case r < rejuvFrac+quenchFrac:
			h = Quenching
		}
		out = append(out, s.Galaxy(i+1, h))
	}
	return out
}
