package neldermead

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/simplexd/internal/optimization"
)

func TestInitialSimplex(t *testing.T) {
	count := 0
	obj := countingObjective(quadratic, &count)

	s, err := initialSimplex(obj, []float64{1.0, 2.0, 3.0}, 0.5)
	require.NoError(t, err)

	require.Len(t, s, 4, "simplex must have n+1 vertices")
	assert.Equal(t, 4, count, "every vertex is evaluated exactly once")

	// Vertex 0 is the un-perturbed seed.
	assert.Equal(t, []float64{1.0, 2.0, 3.0}, s[0].Position)
	assert.Equal(t, 14.0, s[0].Score)

	// Each remaining vertex perturbs exactly one axis, in order.
	assert.Equal(t, []float64{1.5, 2.0, 3.0}, s[1].Position)
	assert.Equal(t, []float64{1.0, 2.5, 3.0}, s[2].Position)
	assert.Equal(t, []float64{1.0, 2.0, 3.5}, s[3].Position)
}

func TestInitialSimplexDoesNotAliasSeed(t *testing.T) {
	seed := []float64{1.0, 1.0}
	s, err := initialSimplex(quadratic, seed, 1.0)
	require.NoError(t, err)

	seed[0] = 99.0
	assert.Equal(t, []float64{1.0, 1.0}, s[0].Position)
	assert.Equal(t, []float64{2.0, 1.0}, s[1].Position)
}

func TestInitialSimplexPropagatesEvaluationError(t *testing.T) {
	calls := 0
	failing := func(x []float64) (float64, error) {
		calls++
		if calls == 3 {
			return 0, assert.AnError
		}
		return 0, nil
	}

	s, err := initialSimplex(failing, []float64{0, 0, 0}, 1.0)
	require.Error(t, err)
	assert.Nil(t, s)
	assert.Equal(t, 3, calls, "evaluation stops at the first failure")
}

func TestSortByScore(t *testing.T) {
	s := Simplex{
		{Position: []float64{3}, Score: 9.0},
		{Position: []float64{1}, Score: 1.0},
		{Position: []float64{2}, Score: 4.0},
	}

	require.NoError(t, s.sortByScore())

	assert.Equal(t, 1.0, s[0].Score)
	assert.Equal(t, 4.0, s[1].Score)
	assert.Equal(t, 9.0, s[2].Score)
}

func TestSortByScoreStableOnTies(t *testing.T) {
	s := Simplex{
		{Position: []float64{1}, Score: 5.0},
		{Position: []float64{2}, Score: 5.0},
		{Position: []float64{3}, Score: 1.0},
	}

	require.NoError(t, s.sortByScore())

	assert.Equal(t, []float64{3}, s[0].Position)
	assert.Equal(t, []float64{1}, s[1].Position)
	assert.Equal(t, []float64{2}, s[2].Position)
}

func TestSortByScoreRejectsNaN(t *testing.T) {
	s := Simplex{
		{Position: []float64{1}, Score: 1.0},
		{Position: []float64{2}, Score: math.NaN()},
		{Position: []float64{3}, Score: 3.0},
	}

	err := s.sortByScore()
	require.Error(t, err)

	var scoreErr *optimization.IncomparableScoreError
	require.ErrorAs(t, err, &scoreErr)
	assert.Equal(t, 1, scoreErr.Vertex)
	assert.Equal(t, []float64{2}, scoreErr.Position)
}

func TestCentroidExcludesWorst(t *testing.T) {
	s := Simplex{
		{Position: []float64{0.0, 0.0}, Score: 1.0},
		{Position: []float64{2.0, 4.0}, Score: 2.0},
		{Position: []float64{100.0, 100.0}, Score: 3.0}, // worst, excluded
	}

	x0 := s.centroid()
	assert.Equal(t, []float64{1.0, 2.0}, x0)
}

func TestMovePoint(t *testing.T) {
	centroid := []float64{1.0, 2.0}
	worst := []float64{3.0, 0.0}

	// centroid + coeff*(centroid - worst)
	assert.Equal(t, []float64{-1.0, 4.0}, movePoint(centroid, worst, 1.0))
	assert.Equal(t, []float64{-3.0, 6.0}, movePoint(centroid, worst, 2.0))
	assert.Equal(t, []float64{0.0, 3.0}, movePoint(centroid, worst, 0.5))
	// A negative coefficient moves toward the worst vertex instead.
	assert.Equal(t, []float64{2.0, 1.0}, movePoint(centroid, worst, -0.5))
}

func TestShrinkKeepsSimplexSize(t *testing.T) {
	s := Simplex{
		{Position: []float64{0.0, 0.0}, Score: 1.0},
		{Position: []float64{2.0, 0.0}, Score: 2.0},
		{Position: []float64{0.0, 2.0}, Score: 3.0},
	}

	count := 0
	shrunk, err := s.shrink(0.5, countingObjective(quadratic, &count))
	require.NoError(t, err)

	require.Len(t, shrunk, len(s), "shrink preserves the n+1 size invariant")
	assert.Equal(t, len(s), count, "every vertex is re-evaluated, the best included")

	assert.Equal(t, []float64{0.0, 0.0}, shrunk[0].Position)
	assert.Equal(t, []float64{1.0, 0.0}, shrunk[1].Position)
	assert.Equal(t, []float64{0.0, 1.0}, shrunk[2].Position)
	assert.Equal(t, 1.0, shrunk[1].Score)
}
