package cost

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCostFromArray_EvenDistributionIsZero(t *testing.T) {
	require.InDelta(t, 0, CostFromArray([]float64{5, 5, 5, 5}), 1e-9)
}

func TestCostFromArray_AllMassOnOneBucketIsOne(t *testing.T) {
	require.InDelta(t, 1, CostFromArray([]float64{10, 0, 0, 0}), 1e-9)
}

func TestCostFromArray_EmptyIsZero(t *testing.T) {
	require.Equal(t, 0.0, CostFromArray(nil))
}

func TestCostFromArray_AlwaysInUnitRange(t *testing.T) {
	cases := [][]float64{
		{1, 2, 3},
		{0, 0, 0},
		{100, 1, 1, 1, 1},
		{7},
		{0.5, 1.5, 2.5, 100},
	}
	for _, values := range cases {
		got := CostFromArray(values)
		require.GreaterOrEqualf(t, got, 0.0, "values=%v", values)
		require.LessOrEqualf(t, got, 1.0, "values=%v", values)
	}
}
