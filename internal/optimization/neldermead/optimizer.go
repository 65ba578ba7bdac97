// Package neldermead implements the Nelder–Mead simplex method, a
// derivative-free local optimizer over continuous spaces. It searches for a
// local minimum using only objective evaluations and geometric
// transformations of a simplex of n+1 candidate points.
// Reference: https://en.wikipedia.org/wiki/Nelder%E2%80%93Mead_method
package neldermead

import (
	"context"
	"sync"

	"github.com/copyleftdev/simplexd/internal/optimization"
)

// Config contains the hyperparameters for a Nelder–Mead run. All values are
// immutable for the lifetime of the run. The coefficients are applied exactly
// as given, never validated or clamped: a negative Rho, for example, flips
// the contraction direction away from the centroid.
type Config struct {
	// Step is the look-around radius used to build the initial simplex.
	Step float64

	// NoImproveThr is the minimum score decrease that counts as improvement.
	NoImproveThr float64

	// NoImproveBreak terminates the run after this many consecutive
	// iterations without improvement.
	NoImproveBreak int

	// MaxIterations always terminates the run after this many iterations.
	MaxIterations int

	// Alpha is the reflection coefficient, conventionally 1.0.
	Alpha float64

	// Gamma is the expansion coefficient, conventionally 2.0.
	Gamma float64

	// Rho is the contraction coefficient, conventionally 0.5.
	Rho float64

	// Sigma is the shrink coefficient, conventionally 0.5.
	Sigma float64

	// Observer, when non-nil, is invoked once per counted iteration with
	// the iteration index and the current best score.
	Observer optimization.Observer
}

// DefaultConfig returns a Config with the conventional coefficients and
// a modest iteration budget.
func DefaultConfig() Config {
	return Config{
		Step:           0.1,
		NoImproveThr:   1e-5,
		NoImproveBreak: 10,
		MaxIterations:  100,
		Alpha:          1.0,
		Gamma:          2.0,
		Rho:            0.5,
		Sigma:          0.5,
	}
}

// Minimize runs a full Nelder–Mead optimization and returns the best
// position found together with its score.
func Minimize(ctx context.Context, objective optimization.Objective, xStart []float64, cfg Config) ([]float64, float64, error) {
	o, err := New(objective, xStart, cfg)
	if err != nil {
		return nil, 0, err
	}
	result, err := o.Optimize(ctx)
	if err != nil {
		return nil, 0, err
	}
	return result.BestSolution.Position, result.BestSolution.Score, nil
}

// Optimizer runs the Nelder–Mead method for a single objective and starting
// point. It owns the simplex exclusively for the duration of the run; the
// loop is fully sequential with exactly one objective evaluation in flight
// at a time.
type Optimizer struct {
	objective optimization.Objective
	xStart    []float64
	cfg       Config

	// mu guards the reporting surface; the simplex itself has a single
	// owner and needs no locking.
	mu      sync.Mutex
	best    *optimization.Solution
	history []optimization.Evaluation

	cancel context.CancelFunc
}

// New creates a Nelder–Mead optimizer. The starting point establishes the
// dimensionality of the run and must be non-empty; this is checked before
// any objective evaluation occurs.
func New(objective optimization.Objective, xStart []float64, cfg Config) (*Optimizer, error) {
	if objective == nil {
		return nil, &optimization.InvalidConfigError{Field: "objective", Reason: "objective function is required"}
	}
	if len(xStart) == 0 {
		return nil, &optimization.InvalidConfigError{Field: "x_start", Reason: "initial position must have at least one coordinate"}
	}

	histCap := cfg.MaxIterations
	if histCap < 0 {
		histCap = 0
	}

	return &Optimizer{
		objective: objective,
		xStart:    append([]float64(nil), xStart...),
		cfg:       cfg,
		history:   make([]optimization.Evaluation, 0, histCap),
	}, nil
}

// Optimize runs the optimization until a termination condition is hit and
// returns the best vertex found. Reaching the iteration budget or the
// no-improvement break is a normal termination; objective failures and
// non-comparable scores abort the run with an error, since the simplex
// invariant of n+1 valid vertices cannot be restored once violated.
func (o *Optimizer) Optimize(ctx context.Context) (*optimization.Result, error) {
	ctx, o.cancel = context.WithCancel(ctx)
	defer o.cancel()

	simplex, err := initialSimplex(o.eval, o.xStart, o.cfg.Step)
	if err != nil {
		return nil, err
	}

	// The un-perturbed seed score baselines the improvement tracking.
	prevBest := simplex[0].Score
	noImprov := 0
	iters := 0

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := simplex.sortByScore(); err != nil {
			return nil, err
		}
		best := simplex[0].Score

		// The terminal check precedes the counter increment: a zero budget
		// returns the initial best after a single sort with no operator
		// applied.
		if iters >= o.cfg.MaxIterations {
			return o.finish(simplex, iters, optimization.TerminatedMaxIterations), nil
		}
		iters++

		if o.cfg.Observer != nil {
			o.cfg.Observer(iters, best)
		}
		o.record(iters, simplex[0])

		if best < prevBest-o.cfg.NoImproveThr {
			noImprov = 0
			prevBest = best
		} else {
			noImprov++
		}
		if noImprov >= o.cfg.NoImproveBreak {
			return o.finish(simplex, iters, optimization.TerminatedNoImprovement), nil
		}

		last := len(simplex) - 1
		x0 := simplex.centroid()
		worst := simplex[last]
		secondWorst := simplex[last-1].Score

		// Reflection. The lower bound is non-strict and the upper bound
		// strict; ties determine which branch degenerate scores take.
		xr := movePoint(x0, worst.Position, o.cfg.Alpha)
		rscore, err := o.eval(xr)
		if err != nil {
			return nil, err
		}
		if best <= rscore && rscore < secondWorst {
			simplex[last] = Vertex{Position: xr, Score: rscore}
			continue
		}

		// Expansion, only when the reflected point beat the best vertex.
		if rscore < best {
			xe := movePoint(x0, worst.Position, o.cfg.Gamma)
			escore, err := o.eval(xe)
			if err != nil {
				return nil, err
			}
			if escore < rscore {
				simplex[last] = Vertex{Position: xe, Score: escore}
			} else {
				simplex[last] = Vertex{Position: xr, Score: rscore}
			}
			continue
		}

		// Contraction.
		xc := movePoint(x0, worst.Position, o.cfg.Rho)
		cscore, err := o.eval(xc)
		if err != nil {
			return nil, err
		}
		if cscore < worst.Score {
			simplex[last] = Vertex{Position: xc, Score: cscore}
			continue
		}

		// Shrink. Replaces all n+1 vertices.
		simplex, err = simplex.shrink(o.cfg.Sigma, o.eval)
		if err != nil {
			return nil, err
		}
	}
}

// BestSolution returns the best solution found so far.
func (o *Optimizer) BestSolution() *optimization.Solution {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.best
}

// History returns the per-iteration record of best solutions. The returned
// slice is a snapshot and safe to inspect while the run is in flight.
func (o *Optimizer) History() []optimization.Evaluation {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]optimization.Evaluation(nil), o.history...)
}

// Stop cooperatively cancels a running optimization. The run observes the
// cancellation at its next iteration boundary.
func (o *Optimizer) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
}

// eval calls the objective exactly once for a newly constructed point.
// Evaluation failures are always fatal to the run.
func (o *Optimizer) eval(x []float64) (float64, error) {
	score, err := o.objective(x)
	if err != nil {
		return 0, optimization.WrapError(err, "objective evaluation failed").
			WithComponent("neldermead").
			WithOperation("evaluate")
	}
	return score, nil
}

// record tracks the sorted best vertex for the given iteration.
func (o *Optimizer) record(iteration int, v Vertex) {
	sol := &optimization.Solution{
		Position: append([]float64(nil), v.Position...),
		Score:    v.Score,
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.history = append(o.history, optimization.Evaluation{Iteration: iteration, Solution: sol})
	if o.best == nil || sol.Score < o.best.Score {
		o.best = sol
	}
}

func (o *Optimizer) finish(s Simplex, iters int, reason optimization.TerminationReason) *optimization.Result {
	sol := &optimization.Solution{
		Position: append([]float64(nil), s[0].Position...),
		Score:    s[0].Score,
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.best == nil || sol.Score < o.best.Score {
		o.best = sol
	}
	return &optimization.Result{
		BestSolution: sol,
		History:      o.history,
		Iterations:   iters,
		Reason:       reason,
	}
}
