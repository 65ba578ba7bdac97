package neldermead

import (
	"fmt"

	"github.com/copyleftdev/simplexd/internal/optimization"
)

// positionKey formats a position for use as a map key in scripted objectives.
func positionKey(x []float64) string {
	return fmt.Sprintf("%v", x)
}

// scriptedObjective returns fixed scores for known positions and fails the
// run on any position it was not scripted for. calls records how many times
// each position was evaluated.
type scriptedObjective struct {
	scores map[string]float64
	calls  map[string]int
	total  int
}

func newScriptedObjective(scores map[string]float64) *scriptedObjective {
	return &scriptedObjective{
		scores: scores,
		calls:  make(map[string]int),
	}
}

func (s *scriptedObjective) eval(x []float64) (float64, error) {
	k := positionKey(x)
	s.calls[k]++
	s.total++
	score, ok := s.scores[k]
	if !ok {
		return 0, fmt.Errorf("unexpected evaluation at %v", x)
	}
	return score, nil
}

// countingObjective wraps an objective and counts its evaluations.
func countingObjective(obj optimization.Objective, count *int) optimization.Objective {
	return func(x []float64) (float64, error) {
		*count++
		return obj(x)
	}
}

// quadratic is f(x) = sum(xi^2).
func quadratic(x []float64) (float64, error) {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return sum, nil
}
