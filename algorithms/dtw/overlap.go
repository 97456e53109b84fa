package dtw

import (
	"fmt"
)

// OverlapSimilarity performs partial alignment in the Needleman style: the
// start of either sequence may align at any offset (first row and column are
// seeded to zero rather than infinity) and similarity accumulates through the
// maximum of the three predecessors instead of cost through the minimum. The
// score is the best value anywhere along the last row or last column, since
// the trailing end of either sequence need not be aligned.
//
// Used for gesture-style partial matching; whole-sequence classification goes
// through BoundedDistance instead.
func OverlapSimilarity[T any](query, reference []T, cmp Comparator[T]) (float64, error) {
	n := len(query)
	m := len(reference)
	if n == 0 || m == 0 {
		return 0, nil
	}

	sim := newGrid(n, m, 0)

	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			local, err := cmp.Correlation(query[i-1], reference[j-1])
			if err != nil {
				return 0, fmt.Errorf("overlap dtw cell (%d,%d): %w", i, j, err)
			}
			sim[i][j] = local + maxNeighbor(sim[i-1][j-1], sim[i-1][j], sim[i][j-1])
		}
	}

	best := sim[n][m]
	for j := 0; j <= m; j++ {
		if sim[n][j] > best {
			best = sim[n][j]
		}
	}
	for i := 0; i <= n; i++ {
		if sim[i][m] > best {
			best = sim[i][m]
		}
	}
	return best, nil
}

func maxNeighbor(diagonal, up, left float64) float64 {
	best := diagonal
	if up > best {
		best = up
	}
	if left > best {
		best = left
	}
	return best
}
