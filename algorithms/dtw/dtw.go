package dtw

import (
	"fmt"
	"math"
)

// Overflow is the reserved sentinel for "no valid path" or "no match better
// than the bound". Grids always hold a value, never an absent cell.
const Overflow = math.MaxFloat64

// Comparator supplies the pairwise element measures the alignment algorithms
// are parameterized by. Implementations typically close over the active
// configuration (class label, fusion weights, distance cache) and may consult
// a cache before recomputing.
type Comparator[T any] interface {
	// Distance returns a non-negative cost between two elements
	Distance(a, b T) (float64, error)
	// Correlation returns a similarity between two elements, higher is closer
	Correlation(a, b T) (float64, error)
}

// Funcs adapts plain functions to the Comparator interface
type Funcs[T any] struct {
	DistanceFunc    func(a, b T) (float64, error)
	CorrelationFunc func(a, b T) (float64, error)
}

func (f Funcs[T]) Distance(a, b T) (float64, error) {
	return f.DistanceFunc(a, b)
}

func (f Funcs[T]) Correlation(a, b T) (float64, error) {
	return f.CorrelationFunc(a, b)
}

// minNeighbor selects the cheapest of the three predecessors with the fixed
// tie-break order this library has always used: prefer up when it ties with
// both others, else left when it ties with the diagonal, else the diagonal.
// This differs from the textbook prefer-diagonal rule and is load-bearing for
// path reconstruction on tied inputs, so it must not be "fixed".
func minNeighbor(diagonal, up, left float64) float64 {
	if up <= diagonal && up <= left {
		return up
	}
	if left <= diagonal {
		return left
	}
	return diagonal
}

// Distance performs full dynamic time warping between two sequences and
// returns the total cumulative alignment cost.
func Distance[T any](query, reference []T, cmp Comparator[T]) (float64, error) {
	n := len(query)
	m := len(reference)
	if n == 0 || m == 0 {
		return Overflow, nil
	}

	cost := newGrid(n, m, Overflow)
	cost[0][0] = 0

	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			local, err := cmp.Distance(query[i-1], reference[j-1])
			if err != nil {
				return 0, fmt.Errorf("dtw cell (%d,%d): %w", i, j, err)
			}
			prev := minNeighbor(cost[i-1][j-1], cost[i-1][j], cost[i][j-1])
			if prev == Overflow {
				cost[i][j] = Overflow
				continue
			}
			cost[i][j] = local + prev
		}
	}

	return cost[n][m], nil
}

func newGrid(n, m int, fill float64) [][]float64 {
	grid := make([][]float64, n+1)
	for i := range grid {
		grid[i] = make([]float64, m+1)
		for j := range grid[i] {
			grid[i][j] = fill
		}
	}
	return grid
}
