package vectors

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic statistical helpers used across the library, built on gonum

// Median calculates the median of a slice
func Median(data []float64) float64 {
	return Percentile(data, 0.5)
}

// Percentile calculates the p-th percentile (p between 0 and 1)
func Percentile(data []float64, p float64) float64 {
	if len(data) == 0 || p < 0 || p > 1 {
		return 0.0
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// StdDev calculates the sample standard deviation of a slice
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	return stat.StdDev(data, nil)
}

// Sum accumulates src into dst in place. Both slices must have equal length.
func Sum(dst, src []float64) error {
	if err := checkDims(dst, src); err != nil {
		return err
	}
	floats.Add(dst, src)
	return nil
}

// Scale divides every component of v by n, leaving v untouched when n is zero
func Scale(v []float64, n float64) {
	if n == 0 {
		return
	}
	floats.Scale(1.0/n, v)
}

// AccumulateNonMissing adds the present dimensions of v to sums and bumps the
// matching per-dimension counts. A zero component is a missing measurement and
// contributes nothing (see NormalizedManhattan for the convention).
func AccumulateNonMissing(sums []float64, counts []int, v []float64) {
	for i, val := range v {
		if val == 0 {
			continue
		}
		sums[i] += val
		counts[i]++
	}
}

// AverageCounts divides each summed dimension by its own sample count,
// producing a mean vector where dimensions nobody measured stay zero.
func AverageCounts(sums []float64, counts []int) []float64 {
	mean := make([]float64, len(sums))
	for i := range sums {
		if counts[i] > 0 {
			mean[i] = sums[i] / float64(counts[i])
		}
	}
	return mean
}

// EqualWithin reports whether every component of a and b differs by at most
// eps. Vectors of different lengths are never equal.
func EqualWithin(a, b []float64, eps float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}
