package sampler

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemonberrylabs/fnplot/pkg/types"
)

func TestGrid(t *testing.T) {
	grid, err := Grid(-1, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, -0.5, 0, 0.5, 1}, grid)
}

func TestGridEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		xMin, xMax float64
		n          int
	}{
		{"default size", -10, 10, DefaultPoints},
		{"minimum size", 0, 1, MinPoints},
		{"maximum size", -math.Pi, math.Pi, MaxPoints},
		{"awkward step", 0.1, 0.7, 7},
		{"huge span", -1e307, 1e307, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grid, err := Grid(tt.xMin, tt.xMax, tt.n)
			require.NoError(t, err)
			require.Len(t, grid, tt.n)
			assert.Equal(t, tt.xMin, grid[0])
			assert.Equal(t, tt.xMax, grid[tt.n-1])
			for i := 1; i < len(grid); i++ {
				assert.Less(t, grid[i-1], grid[i], "grid not increasing at %d", i)
			}
		})
	}
}

func TestGridWideRangeStaysFinite(t *testing.T) {
	grid, err := Grid(-5e307, 5e307, 500)
	require.NoError(t, err)
	require.Len(t, grid, 500)
	for i, x := range grid {
		require.False(t, math.IsInf(x, 0) || math.IsNaN(x), "grid[%d] = %v", i, x)
		if i > 0 {
			require.Less(t, grid[i-1], x, "grid not increasing at %d", i)
		}
	}
	assert.Equal(t, 5e307, grid[499])
}

func TestGridSpacing(t *testing.T) {
	grid, err := Grid(0, 10, 101)
	require.NoError(t, err)
	for i := 1; i < len(grid); i++ {
		assert.InDelta(t, 0.1, grid[i]-grid[i-1], 1e-12)
	}
}

func TestValidateRange(t *testing.T) {
	tests := []struct {
		name       string
		xMin, xMax float64
		wantErr    bool
	}{
		{"ordered", -1, 1, false},
		{"tiny span", 1, math.Nextafter(1, 2), false},
		{"equal", 1, 1, true},
		{"reversed", 2, 1, true},
		{"nan min", math.NaN(), 1, true},
		{"nan max", 0, math.NaN(), true},
		{"inf min", math.Inf(-1), 1, true},
		{"inf max", 0, math.Inf(1), true},
		{"span overflows", -math.MaxFloat64, math.MaxFloat64, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRange(tt.xMin, tt.xMax)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrRange), "got %v", err)
			pe, _ := types.AsPlotError(err)
			assert.False(t, pe.HasPos())
		})
	}
}

func TestValidatePoints(t *testing.T) {
	assert.NoError(t, ValidatePoints(MinPoints))
	assert.NoError(t, ValidatePoints(MaxPoints))
	for _, n := range []int{-1, 0, 1, MaxPoints + 1} {
		err := ValidatePoints(n)
		assert.ErrorIs(t, err, types.ErrRange, "n=%d", n)
	}
}

func TestGridRejectsBadInput(t *testing.T) {
	_, err := Grid(1, 0, 10)
	assert.ErrorIs(t, err, types.ErrRange)

	_, err = Grid(0, 1, 1)
	assert.ErrorIs(t, err, types.ErrRange)
}
