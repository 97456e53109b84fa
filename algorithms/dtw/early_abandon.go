package dtw

import (
	"fmt"
	"math"
)

// BoundedDistance performs dynamic time warping with early abandoning: any
// cell whose cumulative cost would exceed the bound is recorded as Overflow
// and never explored further, and the computation aborts as soon as an entire
// row overflows. The bound is typically the best distance found among the
// templates compared so far, so unmatched templates never fill a full grid.
//
// The result is either the exact full-DTW distance (when it is at or below
// the bound) or Overflow. Pairwise element distances are computed lazily and
// memoized per cell, so cost evaluation skipped by the bound stays skipped.
func BoundedDistance[T any](query, reference []T, cmp Comparator[T], bound float64) (float64, error) {
	n := len(query)
	m := len(reference)
	if n == 0 || m == 0 {
		return Overflow, nil
	}

	cost := newGrid(n, m, Overflow)
	cost[0][0] = 0

	local := make([][]float64, n)
	for i := range local {
		local[i] = make([]float64, m)
		for j := range local[i] {
			local[i][j] = math.NaN()
		}
	}

	for i := 1; i <= n; i++ {
		rowAlive := false
		for j := 1; j <= m; j++ {
			prev := minNeighbor(cost[i-1][j-1], cost[i-1][j], cost[i][j-1])
			if prev == Overflow {
				continue
			}

			if math.IsNaN(local[i-1][j-1]) {
				d, err := cmp.Distance(query[i-1], reference[j-1])
				if err != nil {
					return 0, fmt.Errorf("dtw cell (%d,%d): %w", i, j, err)
				}
				local[i-1][j-1] = d
			}

			candidate := local[i-1][j-1] + prev
			if candidate > bound {
				continue
			}
			cost[i][j] = candidate
			rowAlive = true
		}
		if !rowAlive {
			return Overflow, nil
		}
	}

	return cost[n][m], nil
}
