package neldermead

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/copyleftdev/simplexd/internal/optimization"
)

// Vertex pairs a position in the search space with its objective score.
// The score is always derived from the position, never set independently.
type Vertex struct {
	Position []float64
	Score    float64
}

// Simplex is the ordered collection of n+1 vertices maintained by one
// optimization run, where n is the dimensionality of the initial point.
type Simplex []Vertex

// initialSimplex builds the starting simplex from a seed point: the seed
// itself, then for each coordinate axis a copy of the seed with that axis
// increased by step. Every vertex is evaluated immediately. The result is
// unsorted; the seed is vertex 0.
func initialSimplex(eval func([]float64) (float64, error), xStart []float64, step float64) (Simplex, error) {
	seed := append([]float64(nil), xStart...)
	score, err := eval(seed)
	if err != nil {
		return nil, err
	}

	s := make(Simplex, 0, len(seed)+1)
	s = append(s, Vertex{Position: seed, Score: score})

	for i := range seed {
		x := append([]float64(nil), seed...)
		x[i] += step
		sc, err := eval(x)
		if err != nil {
			return nil, err
		}
		s = append(s, Vertex{Position: x, Score: sc})
	}

	return s, nil
}

// sortByScore orders the vertices ascending by score, best first. A NaN
// score breaks total ordering, so it is reported as an explicit error
// identifying the offending vertex instead of being sorted arbitrarily.
func (s Simplex) sortByScore() error {
	for i, v := range s {
		if math.IsNaN(v.Score) {
			return &optimization.IncomparableScoreError{
				Vertex:   i,
				Position: v.Position,
				Score:    v.Score,
			}
		}
	}
	sort.SliceStable(s, func(i, j int) bool { return s[i].Score < s[j].Score })
	return nil
}

// centroid returns the coordinate-wise mean of all vertices except the
// worst. The simplex must be sorted. Each coordinate is accumulated as
// c/n rather than summed and divided once, preserving the reference
// floating-point behavior.
func (s Simplex) centroid() []float64 {
	last := len(s) - 1
	x0 := make([]float64, len(s[0].Position))
	for _, v := range s[:last] {
		for i, c := range v.Position {
			x0[i] += c / float64(last)
		}
	}
	return x0
}

// movePoint computes centroid + coeff*(centroid - worst), the shared form
// of the reflection, expansion and contraction points.
func movePoint(centroid, worst []float64, coeff float64) []float64 {
	diff := make([]float64, len(centroid))
	floats.SubTo(diff, centroid, worst)
	out := make([]float64, len(centroid))
	floats.AddScaledTo(out, centroid, coeff, diff)
	return out
}

// shrink rebuilds the entire simplex around the best vertex: every vertex,
// the best included, is mapped to best + sigma*(vertex - best) and
// re-evaluated. The best vertex maps onto its own position but its score is
// still recomputed, never reused.
func (s Simplex) shrink(sigma float64, eval func([]float64) (float64, error)) (Simplex, error) {
	base := append([]float64(nil), s[0].Position...)
	diff := make([]float64, len(base))

	out := make(Simplex, 0, len(s))
	for _, v := range s {
		floats.SubTo(diff, v.Position, base)
		x := make([]float64, len(base))
		floats.AddScaledTo(x, base, sigma, diff)

		score, err := eval(x)
		if err != nil {
			return nil, err
		}
		out = append(out, Vertex{Position: x, Score: score})
	}

	return out, nil
}
