// Package objectives provides the built-in objective functions that the
// service surface can resolve by name. Library callers are not limited to
// these; any optimization.Objective works.
package objectives

import (
	"fmt"
	"math"

	"github.com/copyleftdev/simplexd/internal/optimization"
)

// UnknownObjectiveError reports a request for an objective name that is not
// registered.
type UnknownObjectiveError struct {
	Name string
}

func (e *UnknownObjectiveError) Error() string {
	return fmt.Sprintf("unknown objective function: %q", e.Name)
}

// DimensionError reports an evaluation with the wrong input arity for a
// fixed-dimensional objective.
type DimensionError struct {
	Name string
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("objective %q expects %d dimensions, got %d", e.Name, e.Want, e.Got)
}

const (
	// NameSphere is the sum of squares, minimum 0 at the origin.
	NameSphere = "sphere"
	// NameTrigProduct is sin(x0)*cos(x1)/(|x2|+1), three-dimensional.
	NameTrigProduct = "trigproduct"
	// NameStyblinskiTang is the Styblinski–Tang function over any dimension.
	NameStyblinskiTang = "styblinski-tang"
	// NameRosenbrock is the Rosenbrock valley, minimum 0 at (1, ..., 1).
	NameRosenbrock = "rosenbrock"
)

// Names lists the registered objective names.
func Names() []string {
	return []string{NameSphere, NameTrigProduct, NameStyblinskiTang, NameRosenbrock}
}

// ByName resolves a registered objective function by name.
func ByName(name string) (optimization.Objective, error) {
	switch name {
	case NameSphere:
		return Sphere, nil
	case NameTrigProduct:
		return TrigProduct, nil
	case NameStyblinskiTang:
		return StyblinskiTang, nil
	case NameRosenbrock:
		return Rosenbrock, nil
	default:
		return nil, &UnknownObjectiveError{Name: name}
	}
}

// Sphere is f(x) = sum(xi^2).
func Sphere(x []float64) (float64, error) {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return sum, nil
}

// TrigProduct is f(x) = sin(x0)*cos(x1)*(1/(|x2|+1)). It requires exactly
// three dimensions.
func TrigProduct(x []float64) (float64, error) {
	if len(x) != 3 {
		return 0, &DimensionError{Name: NameTrigProduct, Want: 3, Got: len(x)}
	}
	return math.Sin(x[0]) * math.Cos(x[1]) * (1.0 / (math.Abs(x[2]) + 1.0)), nil
}

// StyblinskiTang is f(x) = 0.5*sum(xi^4 - 16*xi^2 + 5*xi). Its global
// minimum is about -39.166*n at xi ≈ -2.9035.
func StyblinskiTang(x []float64) (float64, error) {
	sum := 0.0
	for _, v := range x {
		sum += v*v*v*v - 16*v*v + 5*v
	}
	return 0.5 * sum, nil
}

// Rosenbrock is f(x) = sum(100*(x[i+1]-xi^2)^2 + (1-xi)^2). It requires at
// least two dimensions.
func Rosenbrock(x []float64) (float64, error) {
	if len(x) < 2 {
		return 0, &DimensionError{Name: NameRosenbrock, Want: 2, Got: len(x)}
	}
	sum := 0.0
	for i := 0; i < len(x)-1; i++ {
		a := x[i+1] - x[i]*x[i]
		b := 1 - x[i]
		sum += 100*a*a + b*b
	}
	return sum, nil
}
