// Package quench detects quenching and rejuvenation episodes in galaxy star-formation
// histories. A Scanner walks one galaxy's series through a four-phase state machine,
// the rejuvenation test filters noise-driven upturns, and the interpolator refines
// episode boundaries with cubic splines.
package quench

import (
	"fmt"
	"math"

	"github.com/chrissnell/quenchfinder/internal/galaxy"
)

// Edge selects which boundary of a quench the threshold describes
type Edge int

const (
	// EdgeStart is the star-forming threshold a galaxy must drop below to start a quench
	EdgeStart Edge = iota
	// EdgeEnd is the quenched threshold that confirms the episode
	EdgeEnd
)

func (e Edge) String() string {
	if e == EdgeEnd {
		return "end"
	}
	return "start"
}

// ThresholdPolicy maps a snapshot to a log10 specific-SFR threshold
type ThresholdPolicy interface {
	Threshold(edge Edge, s *galaxy.Series, j int) float64
}

// PolicyID identifies a threshold policy in configuration and stored runs
type PolicyID int

const (
	// PolicyRedshift offsets constant thresholds by redshift
	PolicyRedshift PolicyID = 0
	// PolicyCosmicTime scales the thresholds with the inverse of cosmic time
	PolicyCosmicTime PolicyID = 1
)

func (p PolicyID) String() string {
	switch p {
	case PolicyRedshift:
		return "redshift"
	case PolicyCosmicTime:
		return "cosmic_time"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// NewPolicy returns the policy registered under id
func NewPolicy(id PolicyID) (ThresholdPolicy, error) {
	switch id {
	case PolicyRedshift:
		return RedshiftPolicy{}, nil
	case PolicyCosmicTime:
		return CosmicTimePolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown threshold policy %d", int(id))
	}
}

// RedshiftPolicy uses log sSFR thresholds of -9.5 (start) and -11 (end), both raised
// by 0.3*z at z <= 2
type RedshiftPolicy struct{}

// Threshold implements ThresholdPolicy. The series must carry redshifts.
func (RedshiftPolicy) Threshold(edge Edge, s *galaxy.Series, j int) float64 {
	z := s.Redshift[j]
	a := 0.0
	if z <= 2.0 {
		a = 0.3
	}
	if edge == EdgeEnd {
		return -11 + a*z
	}
	return -9.5 + a*z
}

// CosmicTimePolicy uses log10(1/t)-9 (start) and log10(0.2/t)-9 (end), t in Gyr
type CosmicTimePolicy struct{}

// Threshold implements ThresholdPolicy. An undefined snapshot yields 0.
func (CosmicTimePolicy) Threshold(edge Edge, s *galaxy.Series, j int) float64 {
	if s == nil || j < 0 || j >= len(s.Time) {
		return 0
	}
	t := s.Time[j]
	if edge == EdgeEnd {
		return math.Log10(0.2/t) - 9
	}
	return math.Log10(1/t) - 9
}

// linear converts a log10 threshold back to a specific-SFR value
func linear(logThreshold float64) float64 {
	return math.Pow(10, logThreshold)
}

// CheckSeries reports whether s carries every array the policy reads
func CheckSeries(policy ThresholdPolicy, s *galaxy.Series) error {
	if _, ok := policy.(RedshiftPolicy); ok && len(s.Redshift) != s.Len() {
		return fmt.Errorf("%w: %s policy needs %d redshifts, have %d",
			galaxy.ErrMalformedSeries, PolicyRedshift, s.Len(), len(s.Redshift))
	}
	return nil
}

// ParsePolicy maps a policy name, as written in config files, to its PolicyID.
// The numeric ids "0" and "1" are accepted too.
func ParsePolicy(name string) (PolicyID, error) {
	switch name {
	case "redshift", "0", "":
		return PolicyRedshift, nil
	case "cosmic_time", "1":
		return PolicyCosmicTime, nil
	default:
		return 0, fmt.Errorf("unknown threshold policy %q", name)
	}
}
