package optimization

import (
	"context"
)

// Optimizer defines the interface for optimization algorithms
type Optimizer interface {
	// Optimize runs the optimization process until termination
	Optimize(ctx context.Context) (*Result, error)

	// BestSolution returns the best solution found so far
	BestSolution() *Solution

	// History returns the per-iteration record of best solutions
	History() []Evaluation

	// Stop cooperatively stops the optimization process
	Stop()
}

// Objective is the caller-supplied evaluation capability: it maps an
// n-dimensional position to a scalar score. Lower scores are better.
// The optimizer assumes it is deterministic and calls it exactly once
// per newly constructed candidate point.
type Objective func(x []float64) (float64, error)

// Observer receives a progress notification once per counted iteration.
// It is a diagnostics side channel, not part of the functional contract;
// a nil Observer keeps the run silent.
type Observer func(iteration int, bestScore float64)

// Solution represents a point in the search space and its score
type Solution struct {
	Position []float64
	Score    float64
}

// Evaluation records the best solution at a given iteration
type Evaluation struct {
	Iteration int
	Solution  *Solution
}

// TerminationReason names the path by which a run ended normally.
type TerminationReason string

const (
	// TerminatedMaxIterations means the iteration budget was exhausted.
	TerminatedMaxIterations TerminationReason = "max_iterations"
	// TerminatedNoImprovement means the no-improvement break fired.
	TerminatedNoImprovement TerminationReason = "no_improvement"
)

// Result contains the outcome of an optimization run
type Result struct {
	BestSolution *Solution
	History      []Evaluation
	Iterations   int
	Reason       TerminationReason
}
