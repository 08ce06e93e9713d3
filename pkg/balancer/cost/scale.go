package cost

import (
	"math"

	"github.com/montanaflynn/stats"
)

// CostFromArray is the scaling primitive shared by every skew-style cost
// function (spec.md §4.2). Given an array treated as a zero-sum
// distribution across n buckets, it returns the normalized distance
// between the actual dispersion and the best achievable (evenly
// distributed) dispersion, clamped to [0, 1].
func CostFromArray(values []float64) float64 {
	n := float64(len(values))
	if n == 0 {
		return 0
	}
	total, err := stats.Sum(values)
	if err != nil {
		return 0
	}
	mean := total / n
	max := (n-1)*mean + (total - mean)

	var min float64
	if total < n {
		min = (n-total)*mean + (1-mean)*total
	} else {
		frac := total - math.Floor(mean)*n
		min = frac*(math.Ceil(mean)-mean) + (n-frac)*(mean-math.Floor(mean))
	}

	if max <= min {
		return 0
	}

	var dispersion float64
	for _, v := range values {
		dispersion += math.Abs(v - mean)
	}

	return clamp((dispersion-min)/(max-min), 0, 1)
}
