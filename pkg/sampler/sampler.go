// Package sampler builds the evenly spaced x-grid a function is evaluated on.
package sampler

import (
	"fmt"
	"math"

	"github.com/lemonberrylabs/fnplot/pkg/types"
)

const (
	// DefaultPoints is the grid size used when none is configured.
	DefaultPoints = 500

	// MinPoints and MaxPoints bound the configurable grid size.
	MinPoints = 2
	MaxPoints = 10000
)

// ValidateRange checks that xMin and xMax are finite, ordered and that the
// span between them is representable.
func ValidateRange(xMin, xMax float64) error {
	if math.IsNaN(xMin) || math.IsInf(xMin, 0) {
		return types.NewRangeError(fmt.Sprintf("x_min must be a finite number, got %v", xMin))
	}
	if math.IsNaN(xMax) || math.IsInf(xMax, 0) {
		return types.NewRangeError(fmt.Sprintf("x_max must be a finite number, got %v", xMax))
	}
	if xMin >= xMax {
		return types.NewRangeError(fmt.Sprintf("x_max must be strictly greater than x_min (got x_min=%v, x_max=%v)", xMin, xMax))
	}
	if math.IsInf(xMax-xMin, 0) {
		return types.NewRangeError("the range between x_min and x_max is too wide to sample")
	}
	return nil
}

// ValidatePoints checks a grid size against [MinPoints, MaxPoints].
func ValidatePoints(n int) error {
	if n < MinPoints || n > MaxPoints {
		return types.NewRangeError(fmt.Sprintf("point count must be between %d and %d, got %d", MinPoints, MaxPoints, n))
	}
	return nil
}

// Grid returns n evenly spaced values x_min + i*(x_max-x_min)/(n-1) for i in
// [0, n-1]. The last value is exactly xMax.
func Grid(xMin, xMax float64, n int) ([]float64, error) {
	if err := ValidateRange(xMin, xMax); err != nil {
		return nil, err
	}
	if err := ValidatePoints(n); err != nil {
		return nil, err
	}

	// Dividing first keeps i*step finite for any representable span.
	step := (xMax - xMin) / float64(n-1)
	grid := make([]float64, n)
	for i := range grid {
		grid[i] = xMin + float64(i)*step
	}
	grid[n-1] = xMax
	return grid, nil
}
