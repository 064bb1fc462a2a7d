// Package batch runs the quench scanner over a whole catalog of galaxies on a
// fixed-size worker pool.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/chrissnell/quenchfinder/internal/galaxy"
	"github.com/chrissnell/quenchfinder/internal/quench"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

var (
	// ErrEmptyBatch is returned when Run is given no galaxies
	ErrEmptyBatch = errors.New("empty batch")

	// ErrTaskPanic marks a galaxy whose task panicked
	ErrTaskPanic = errors.New("galaxy task panicked")
)

// Options configure a batch run
type Options struct {
	Policy        quench.PolicyID
	MassLimit     float64 // log10 Msun
	Interpolation bool    // scan the interpolated variant instead of the raw one
	Workers       int     // pool size, defaults to runtime.NumCPU()
}

// Outcome is what happened to a single galaxy during a run
type Outcome string

const (
	// OutcomeUnscanned galaxies did not pass the gate and are returned unchanged
	OutcomeUnscanned Outcome = "unscanned"
	// OutcomeQuenched galaxies were scanned and count toward the quenched total
	OutcomeQuenched Outcome = "quenched"
	// OutcomeSkipped galaxies had malformed series
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed galaxies hit a scan error or a panic
	OutcomeFailed Outcome = "failed"
)

// Failure records why a galaxy was skipped or failed
type Failure struct {
	GalaxyID int     `json:"galaxy_id"`
	Outcome  Outcome `json:"outcome"`
	Message  string  `json:"error"`
	Err      error   `json:"-"`
}

// Summary reports the result of a run. Outcomes is index-aligned with the input.
type Summary struct {
	RunID         uuid.UUID     `json:"run_id"`
	Policy        string        `json:"policy"`
	MassLimit     float64       `json:"mass_limit"`
	Interpolation bool          `json:"interpolation"`
	StartedAt     time.Time     `json:"started_at"`
	Elapsed       time.Duration `json:"elapsed"`
	Total         int           `json:"total"`
	Quenched      int           `json:"total_quenched"`
	Failed        int           `json:"failed"`
	Skipped       int           `json:"skipped"`
	Episodes      int           `json:"episodes"`
	Rejuvenations int           `json:"rejuvenations"`
	Outcomes      []Outcome     `json:"outcomes"`
	Failures      []Failure     `json:"failures,omitempty"`
}

// Result is the galaxy slice after a run, with scanned galaxies replaced by their
// updated copies, and the run summary
type Result struct {
	Galaxies []*galaxy.Galaxy
	Summary  Summary
}

// Runner fans galaxies out to scanner tasks
type Runner struct {
	opts    Options
	scanner *quench.Scanner
	logger  *zap.SugaredLogger
}

// NewRunner creates a Runner for the given options
func NewRunner(opts Options, logger *zap.SugaredLogger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	policy, err := quench.NewPolicy(opts.Policy)
	if err != nil {
		return nil, err
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Runner{
		opts:    opts,
		scanner: quench.NewScanner(policy, logger),
		logger:  logger,
	}, nil
}

// Options returns the effective options of the runner
func (r *Runner) Options() Options {
	return r.opts
}

type taskResult struct {
	galaxy  *galaxy.Galaxy
	outcome Outcome
	err     error
}

// Run scans every galaxy and returns the updated slice. The input galaxies are never
// modified: a scanned galaxy is replaced by a scanned copy. ctx is checked before each
// dispatch; tasks already running are not interrupted.
func (r *Runner) Run(ctx context.Context, galaxies []*galaxy.Galaxy) (*Result, error) {
	if len(galaxies) == 0 {
		return nil, ErrEmptyBatch
	}

	started := time.Now()
	pool, err := ants.NewPool(r.opts.Workers, ants.WithPanicHandler(func(p any) {
		r.logger.Errorf("worker panic escaped its task: %v", p)
	}))
	if err != nil {
		return nil, fmt.Errorf("could not create worker pool: %w", err)
	}
	defer pool.Release()

	results := make([]taskResult, len(galaxies))
	var wg sync.WaitGroup

	var cancelled error
	for i, g := range galaxies {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}

		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			results[i] = r.process(g)
		})
		if err != nil {
			wg.Done()
			results[i] = taskResult{galaxy: g, outcome: OutcomeFailed, err: fmt.Errorf("could not submit galaxy %d: %w", g.ID, err)}
		}
	}
	wg.Wait()

	if cancelled != nil {
		return nil, fmt.Errorf("batch cancelled: %w", cancelled)
	}

	res := r.collect(galaxies, results, started)
	observeRun(&res.Summary)
	r.logger.Infow("batch finished",
		"run_id", res.Summary.RunID,
		"total", res.Summary.Total,
		"quenched", res.Summary.Quenched,
		"failed", res.Summary.Failed,
		"skipped", res.Summary.Skipped,
		"elapsed", res.Summary.Elapsed)
	return res, nil
}

// process runs a single galaxy. It never modifies g.
func (r *Runner) process(g *galaxy.Galaxy) (res taskResult) {
	res = taskResult{galaxy: g, outcome: OutcomeUnscanned}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Errorw("galaxy task panic recovered", "galaxy", g.ID, "panic", p)
			res = taskResult{galaxy: g, outcome: OutcomeFailed, err: fmt.Errorf("%w: galaxy %d: %v", ErrTaskPanic, g.ID, p)}
		}
	}()

	if err := r.check(g); err != nil {
		r.logger.Warnw("skipping malformed galaxy", "galaxy", g.ID, "error", err)
		return taskResult{galaxy: g, outcome: OutcomeSkipped, err: err}
	}

	var scan func(*galaxy.Galaxy) error
	if r.opts.Interpolation {
		if g.Interpolated.Empty() {
			return res
		}
		scan = r.scanner.ProcessInterpolated
	} else {
		if !r.scanner.PassesTerminalGate(g, r.opts.MassLimit) {
			return res
		}
		scan = r.scanner.ProcessRaw
	}

	c := g.Clone()
	if err := scan(c); err != nil {
		r.logger.Errorw("galaxy scan failed", "galaxy", g.ID, "error", err)
		return taskResult{galaxy: g, outcome: OutcomeFailed, err: err}
	}
	return taskResult{galaxy: c, outcome: OutcomeQuenched}
}

// check rejects galaxies whose series the scanner cannot read
func (r *Runner) check(g *galaxy.Galaxy) error {
	if err := g.Validate(); err != nil {
		return err
	}
	s := &g.Raw
	if r.opts.Interpolation && !g.Interpolated.Empty() {
		s = g.Interpolated
	}
	if err := quench.CheckSeries(r.scanner.Policy(), s); err != nil {
		return fmt.Errorf("galaxy %d: %w", g.ID, err)
	}
	return nil
}

func (r *Runner) collect(in []*galaxy.Galaxy, results []taskResult, started time.Time) *Result {
	res := &Result{
		Galaxies: make([]*galaxy.Galaxy, len(in)),
		Summary: Summary{
			RunID:         uuid.New(),
			Policy:        r.opts.Policy.String(),
			MassLimit:     r.opts.MassLimit,
			Interpolation: r.opts.Interpolation,
			StartedAt:     started,
			Total:         len(in),
			Outcomes:      make([]Outcome, len(in)),
		},
	}

	s := &res.Summary
	for i, tr := range results {
		res.Galaxies[i] = tr.galaxy
		s.Outcomes[i] = tr.outcome

		switch tr.outcome {
		case OutcomeQuenched:
			s.Quenched++
			s.Episodes += len(tr.galaxy.QuenchEpisodes)
			s.Rejuvenations += len(tr.galaxy.Rejuvenations)
		case OutcomeSkipped:
			s.Skipped++
		case OutcomeFailed:
			s.Failed++
		}
		if tr.err != nil {
			s.Failures = append(s.Failures, Failure{
				GalaxyID: tr.galaxy.ID,
				Outcome:  tr.outcome,
				Message:  tr.err.Error(),
				Err:      tr.err,
			})
		}
	}
	s.Elapsed = time.Since(started)
	return res
}
