package vectors

import (
	"fmt"
	"math"
)

// MaxDistance is the reserved sentinel for "no valid comparison". It is
// returned instead of an absent value so that callers can keep distances in
// plain float64 grids.
const MaxDistance = math.MaxFloat64

// DistanceFunc is a function type for computing distance between two vectors
type DistanceFunc func(a, b []float64) (float64, error)

// Metric identifies the distance measures supported by the library
type Metric int

const (
	NormalizedManhattanMetric Metric = iota
	ManhattanMetric
	EuclideanMetric
	CorrelationMetric
)

// GetDistanceFunc returns the appropriate distance function for the given metric
func GetDistanceFunc(metric Metric) DistanceFunc {
	switch metric {
	case ManhattanMetric:
		return Manhattan
	case EuclideanMetric:
		return Euclidean
	case CorrelationMetric:
		return CorrelationDistance
	default:
		return NormalizedManhattan
	}
}

func checkDims(a, b []float64) error {
	if len(a) != len(b) {
		return fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	return nil
}

// Manhattan calculates Manhattan (L1) distance between two vectors
func Manhattan(a, b []float64) (float64, error) {
	if err := checkDims(a, b); err != nil {
		return 0, err
	}
	sum := 0.0
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum, nil
}

// NormalizedManhattan calculates Manhattan distance over the dimensions that
// carry a measurement in both vectors, normalized by how many such dimensions
// there are. A value of exactly zero marks a missing dimension, not a real
// measurement of zero; dimensions missing on either side are skipped.
// If no dimension is jointly present the vectors are incomparable and
// MaxDistance is returned.
func NormalizedManhattan(a, b []float64) (float64, error) {
	if err := checkDims(a, b); err != nil {
		return 0, err
	}
	sum := 0.0
	count := 0
	for i := range a {
		if a[i] == 0 || b[i] == 0 {
			continue
		}
		sum += math.Abs(a[i] - b[i])
		count++
	}
	if count == 0 {
		return MaxDistance, nil
	}
	return sum / float64(count), nil
}

// Euclidean calculates Euclidean (L2) distance between two vectors
func Euclidean(a, b []float64) (float64, error) {
	if err := checkDims(a, b); err != nil {
		return 0, err
	}
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum), nil
}

// Correlation calculates the Pearson correlation coefficient between two vectors
func Correlation(a, b []float64) (float64, error) {
	if err := checkDims(a, b); err != nil {
		return 0, err
	}
	n := len(a)
	if n == 0 {
		return 0, nil
	}

	meanA := 0.0
	meanB := 0.0
	for i := range a {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(n)
	meanB /= float64(n)

	numerator := 0.0
	sumSqA := 0.0
	sumSqB := 0.0
	for i := range a {
		diffA := a[i] - meanA
		diffB := b[i] - meanB
		numerator += diffA * diffB
		sumSqA += diffA * diffA
		sumSqB += diffB * diffB
	}

	if sumSqA == 0 || sumSqB == 0 {
		return 0, nil
	}
	return numerator / math.Sqrt(sumSqA*sumSqB), nil
}

// CorrelationDistance calculates Pearson correlation distance (1 - |correlation|)
func CorrelationDistance(a, b []float64) (float64, error) {
	corr, err := Correlation(a, b)
	if err != nil {
		return 0, err
	}
	return 1.0 - math.Abs(corr), nil
}

// BoundedManhattan accumulates dimension-wise absolute differences and aborts
// as soon as the running sum reaches the bound. The second return value is
// false when the bound was hit, meaning "not better than the bound"; the
// partial sum returned in that case is not a valid distance.
//
// The caller is responsible for passing vectors of equal length; this runs in
// the innermost loop of the pruned nearest-pose search and skips the check.
func BoundedManhattan(a, b []float64, bound float64) (float64, bool) {
	sum := 0.0
	for i := range a {
		sum += math.Abs(a[i] - b[i])
		if sum >= bound {
			return sum, false
		}
	}
	return sum, true
}
