package quench

import (
	"errors"
	"fmt"
	"math"

	"github.com/chrissnell/quenchfinder/internal/galaxy"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// Phase is the position of a galaxy scan in the quench/rejuvenation cycle
type Phase int

const (
	// PhaseSearching waits for the galaxy to be star forming
	PhaseSearching Phase = iota
	// PhaseReadyToDetect waits for sSFR to fall below the start threshold
	PhaseReadyToDetect
	// PhaseConfirmingDrop waits for sSFR to reach the end threshold, or recover
	PhaseConfirmingDrop
	// PhaseMonitoring watches a confirmed quench for a rejuvenation
	PhaseMonitoring
)

func (p Phase) String() string {
	switch p {
	case PhaseSearching:
		return "searching"
	case PhaseReadyToDetect:
		return "ready_to_detect"
	case PhaseConfirmingDrop:
		return "confirming_drop"
	case PhaseMonitoring:
		return "monitoring"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

const (
	// rawLookAhead keeps the rejuvenation test's j+1 read inside raw series
	rawLookAhead = 3

	// minCooldownTime is the floor applied to the episode start time, Gyr
	minCooldownTime = 0.5

	// cooldownFactor scales the start time to the earliest time a rejuvenation may occur
	cooldownFactor = 1.2
)

// ScanState is the control state carried from one snapshot to the next.
// A cleared StartTime is zero.
type ScanState struct {
	Phase         Phase
	StartTime     float64
	PreQuenchTime float64
}

// Scanner runs the quench state machine over galaxies using a single threshold policy
type Scanner struct {
	policy       ThresholdPolicy
	interpolator *Interpolator
	logger       *zap.SugaredLogger
}

// NewScanner creates a Scanner. A nil logger disables logging.
func NewScanner(policy ThresholdPolicy, logger *zap.SugaredLogger) *Scanner {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Scanner{
		policy:       policy,
		interpolator: NewInterpolator(),
		logger:       logger,
	}
}

// Policy returns the threshold policy the scanner evaluates
func (s *Scanner) Policy() ThresholdPolicy {
	return s.policy
}

// PassesTerminalGate reports whether a galaxy ends quenched and massive enough to be
// scanned: its final raw sSFR is below the end threshold and log10 of its final mass
// is at least massLimit. It does not modify g.
func (s *Scanner) PassesTerminalGate(g *galaxy.Galaxy, massLimit float64) bool {
	raw := &g.Raw
	last := raw.Len() - 1
	if last < 0 {
		return false
	}
	end := s.policy.Threshold(EdgeEnd, raw, last)
	ssfr := raw.SFR[last] / raw.Mass[last]
	return ssfr < linear(end) && raw.LogMassAt(last) >= massLimit
}

// ProcessRaw scans the raw variant, refines any finalized episodes into an
// interpolated variant, then clears the episode and rejuvenation lists.
func (s *Scanner) ProcessRaw(g *galaxy.Galaxy) error {
	g.ComputeSSFR()
	if err := s.Scan(g, galaxy.Raw); err != nil {
		return err
	}

	if len(g.QuenchEpisodes) > 0 {
		err := s.interpolator.Interpolate(g)
		switch {
		case errors.Is(err, ErrInsufficientWindow):
			s.logger.Debugf("galaxy %d: skipping interpolation: %v", g.ID, err)
		case err != nil:
			return err
		}
	}

	g.QuenchEpisodes = nil
	g.Rejuvenations = nil
	return nil
}

// ProcessInterpolated scans the interpolated variant and keeps the detected episodes
// and rejuvenations, with indices resolved into the raw variant.
func (s *Scanner) ProcessInterpolated(g *galaxy.Galaxy) error {
	g.ComputeSSFR()
	return s.Scan(g, galaxy.Interpolated)
}

// Scan walks variant v of g through the state machine, appending episodes and
// rejuvenations to g. An episode still open at the end of the scan is dropped.
func (s *Scanner) Scan(g *galaxy.Galaxy, v galaxy.Variant) error {
	series := g.Series(v)
	if series.Empty() {
		return &ScanError{GalaxyID: g.ID, Index: 0, Err: fmt.Errorf("%w %s", ErrNoVariant, v)}
	}
	if err := CheckSeries(s.policy, series); err != nil {
		return &ScanError{GalaxyID: g.ID, Index: 0, Err: err}
	}
	if len(series.SSFR) != series.Len() {
		series.ComputeSSFR()
	}

	sc := &scan{
		policy:  s.policy,
		galaxy:  g,
		series:  series,
		variant: v,
		state:   ScanState{Phase: PhaseSearching, StartTime: series.Time[0]},
	}

	limit := series.Len()
	if v == galaxy.Raw {
		limit -= rawLookAhead
	}
	for j := 0; j < limit; j++ {
		if err := sc.step(j); err != nil {
			return err
		}
	}

	if n := len(g.QuenchEpisodes); n > 0 && !g.QuenchEpisodes[n-1].Finalized {
		g.QuenchEpisodes = g.QuenchEpisodes[:n-1]
	}

	s.logger.Debugf("galaxy %d: %s scan of %d snapshots found %d episodes, %d rejuvenations",
		g.ID, v, series.Len(), len(g.QuenchEpisodes), len(g.Rejuvenations))
	return nil
}

// scan is the per-galaxy state of one Scan call
type scan struct {
	policy  ThresholdPolicy
	galaxy  *galaxy.Galaxy
	series  *galaxy.Series
	variant galaxy.Variant
	state   ScanState
}

func (sc *scan) threshold(edge Edge, j int) float64 {
	return linear(sc.policy.Threshold(edge, sc.series, j))
}

func (sc *scan) step(j int) error {
	ssfr, t := sc.series.SSFR[j], sc.series.Time[j]

	switch sc.state.Phase {
	case PhaseSearching:
		if ssfr > sc.threshold(EdgeStart, j) {
			sc.state = ScanState{Phase: PhaseReadyToDetect, StartTime: t}
		} else {
			sc.state = ScanState{Phase: PhaseSearching}
		}

	case PhaseReadyToDetect:
		if ssfr <= sc.threshold(EdgeStart, j) {
			sc.galaxy.QuenchEpisodes = append(sc.galaxy.QuenchEpisodes, galaxy.QuenchEpisode{AboveIndex: j - 1})
			sc.state = ScanState{Phase: PhaseConfirmingDrop, StartTime: sc.state.StartTime, PreQuenchTime: t}
		}

	case PhaseConfirmingDrop:
		end := sc.threshold(EdgeEnd, j)
		if ssfr < end {
			if err := sc.finalizeEpisode(j, end); err != nil {
				return err
			}
			sc.state = ScanState{Phase: PhaseMonitoring, StartTime: sc.state.StartTime}
		} else if ssfr >= sc.threshold(EdgeStart, j) {
			sc.dropLastEpisode()
			sc.state = ScanState{Phase: PhaseReadyToDetect, StartTime: t}
		}

	case PhaseMonitoring:
		start := sc.threshold(EdgeStart, j)
		floor := math.Max(sc.state.StartTime, minCooldownTime)
		if t > cooldownFactor*floor {
			if ssfr > start {
				if err := sc.checkRejuvenation(j, start); err != nil {
					return err
				}
				sc.state = ScanState{Phase: PhaseReadyToDetect, StartTime: t}
			}
		} else if ssfr > start {
			// upturn inside the cooldown: the quench was noise
			sc.dropLastEpisode()
			sc.state = ScanState{Phase: PhaseReadyToDetect, StartTime: t}
		}
	}
	return nil
}

func (sc *scan) finalizeEpisode(j int, end float64) error {
	episodes := sc.galaxy.QuenchEpisodes
	if len(episodes) == 0 {
		return &ScanError{GalaxyID: sc.galaxy.ID, Index: j, Err: errors.New("no open episode to finalize")}
	}
	ep := &episodes[len(episodes)-1]
	ep.BelowIndex = j
	ep.Finalized = true
	ep.Duration = math.Abs(sc.state.PreQuenchTime - sc.series.Time[j])
	ep.ResolvedIndex = j

	if sc.variant == galaxy.Interpolated {
		idx, err := sc.nearestRawIndex(j)
		if err != nil {
			return err
		}
		if sc.galaxy.Raw.SSFR[idx] >= end {
			idx++
		}
		ep.ResolvedIndex = idx
	}
	return nil
}

func (sc *scan) checkRejuvenation(j int, start float64) error {
	if !rejuvenationWindowOK(sc.series, j) {
		return &ScanError{GalaxyID: sc.galaxy.ID, Index: j, Err: ErrOutOfRange}
	}
	if !IsGenuineRejuvenation(sc.series, j) {
		return nil
	}

	idx := j
	if sc.variant == galaxy.Interpolated {
		var err error
		idx, err = sc.nearestRawIndex(j)
		if err != nil {
			return err
		}
		if sc.galaxy.Raw.SSFR[idx] <= start {
			idx++
		}
	}
	sc.galaxy.Rejuvenations = append(sc.galaxy.Rejuvenations, idx)
	return nil
}

func (sc *scan) dropLastEpisode() {
	if n := len(sc.galaxy.QuenchEpisodes); n > 0 {
		sc.galaxy.QuenchEpisodes = sc.galaxy.QuenchEpisodes[:n-1]
	}
}

// nearestRawIndex maps snapshot j of the scanned series onto the raw snapshot closest
// in cosmic time
func (sc *scan) nearestRawIndex(j int) (int, error) {
	raw := &sc.galaxy.Raw
	if raw.Empty() || len(raw.SSFR) != raw.Len() {
		return 0, &ScanError{GalaxyID: sc.galaxy.ID, Index: j, Err: fmt.Errorf("%w %s", ErrNoVariant, galaxy.Raw)}
	}
	t := sc.series.Time[j]
	diffs := make([]float64, raw.Len())
	for i, rt := range raw.Time {
		diffs[i] = math.Abs(rt - t)
	}
	return floats.MinIdx(diffs), nil
}
