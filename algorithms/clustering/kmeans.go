package clustering

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"

	"github.com/DAIGroup/BagOfKeyPoses/algorithms/vectors"
)

// Algorithm represents the supported center-selection methods
type Algorithm int

const (
	// KMeans is restarted Lloyd clustering with missing-aware centroids
	KMeans Algorithm = iota
	// RandomSelection picks K training samples uniformly as the centers
	RandomSelection
)

// Params contains parameters for the clustering engine
type Params struct {
	NumClusters   int            `json:"num_clusters"`
	Restarts      int            `json:"restarts"`
	MaxIterations int            `json:"max_iterations"`
	Epsilon       float64        `json:"epsilon"` // Component-wise equality bound for seeds and convergence
	SeedRetries   int            `json:"seed_retries"`
	Algorithm     Algorithm      `json:"algorithm"`
	Metric        vectors.Metric `json:"metric"`
	Workers       int            `json:"workers"` // Assignment fan-out; <=0 means GOMAXPROCS
	RandomSeed    int64          `json:"random_seed"`
}

// Result contains the outcome of a clustering run
type Result struct {
	Centers     [][]float64 `json:"centers"`
	Labels      []int       `json:"labels"`      // Center assignment for each sample
	Compactness float64     `json:"compactness"` // Sum of sample-to-center distances of the kept run
	SSE         float64     `json:"sse"`         // Sum of squared sample-to-center distances
	Iterations  int         `json:"iterations"`
	Converged   bool        `json:"converged"`
	Unclustered bool        `json:"unclustered"` // True when K >= sample count and samples were returned as-is
}

// Clusterer derives representative centers from pools of feature vectors.
// The best of several independent restarts is kept, compared by compactness
// error with an early exit once a partial sum already exceeds the best run.
//
// References:
//   - MacQueen, J. (1967). "Some methods for classification and analysis of
//     multivariate observations"
//   - Jain, A. K., & Dubes, R. C. (1988). "Algorithms for clustering data"
type Clusterer struct {
	params Params
	rng    *rand.Rand
	dist   vectors.DistanceFunc
}

// DefaultParams returns the parameters used when none are supplied
func DefaultParams() Params {
	return Params{
		NumClusters:   8,
		Restarts:      5,
		MaxIterations: 100,
		Epsilon:       1e-9,
		SeedRetries:   20,
		Algorithm:     KMeans,
		Metric:        vectors.NormalizedManhattanMetric,
		RandomSeed:    42,
	}
}

// New creates a clusterer with default parameters
func New() *Clusterer {
	return NewWithParams(DefaultParams())
}

// NewWithParams creates a clusterer with custom parameters
func NewWithParams(params Params) *Clusterer {
	if params.Restarts < 1 {
		params.Restarts = 1
	}
	if params.MaxIterations < 1 {
		params.MaxIterations = 1
	}
	if params.Workers <= 0 {
		params.Workers = runtime.GOMAXPROCS(0)
	}
	return &Clusterer{
		params: params,
		rng:    rand.New(rand.NewSource(params.RandomSeed)),
		dist:   vectors.GetDistanceFunc(params.Metric),
	}
}

// Fit derives up to NumClusters centers from the data. Fewer centers may come
// back when a center loses every assigned sample. When NumClusters is at
// least the sample count, the samples themselves are returned unclustered.
func (c *Clusterer) Fit(data [][]float64) (*Result, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("clustering: empty data")
	}
	dim := len(data[0])
	for i, v := range data {
		if len(v) != dim {
			return nil, fmt.Errorf("clustering: sample %d has %d dimensions, want %d", i, len(v), dim)
		}
	}

	if c.params.NumClusters < 1 {
		return nil, fmt.Errorf("clustering: cluster count %d is not positive", c.params.NumClusters)
	}
	if c.params.NumClusters >= len(data) {
		return c.passthrough(data), nil
	}

	switch c.params.Algorithm {
	case KMeans:
		return c.restartedKMeans(data)
	case RandomSelection:
		return c.randomSelection(data)
	default:
		return nil, fmt.Errorf("clustering: unsupported algorithm %d", c.params.Algorithm)
	}
}

// passthrough returns every sample as its own center
func (c *Clusterer) passthrough(data [][]float64) *Result {
	centers := make([][]float64, len(data))
	labels := make([]int, len(data))
	for i, v := range data {
		centers[i] = append([]float64(nil), v...)
		labels[i] = i
	}
	return &Result{
		Centers:     centers,
		Labels:      labels,
		Converged:   true,
		Unclustered: true,
	}
}

// restartedKMeans keeps the lowest-compactness run of several independent runs.
// Ties keep the first run found.
func (c *Clusterer) restartedKMeans(data [][]float64) (*Result, error) {
	var best *Result
	bestErr := math.Inf(1)

	for r := 0; r < c.params.Restarts; r++ {
		centers, labels, iterations, converged := c.singleRun(data)

		compactness, better := c.compactness(data, labels, centers, bestErr)
		if !better {
			continue
		}

		sse := 0.0
		for i, v := range data {
			d, _ := c.dist(v, centers[labels[i]])
			sse += d * d
		}

		bestErr = compactness
		best = &Result{
			Centers:     centers,
			Labels:      labels,
			Compactness: compactness,
			SSE:         sse,
			Iterations:  iterations,
			Converged:   converged,
		}
	}

	if best == nil {
		return nil, fmt.Errorf("clustering: no run produced a usable solution")
	}
	return best, nil
}

// singleRun executes one seeded Lloyd iteration to convergence or the cap
func (c *Clusterer) singleRun(data [][]float64) (centers [][]float64, labels []int, iterations int, converged bool) {
	centers = c.seedCenters(data, c.params.NumClusters)
	labels = make([]int, len(data))

	for iterations = 0; iterations < c.params.MaxIterations; iterations++ {
		sums, counts, sizes := c.assign(data, centers, labels)

		newCenters := make([][]float64, 0, len(centers))
		remap := make([]int, len(centers))
		moved := false
		for i := range centers {
			if sizes[i] == 0 {
				// Center lost all samples and is dropped.
				remap[i] = -1
				moved = true
				continue
			}
			center := vectors.AverageCounts(sums[i], counts[i])
			if !vectors.EqualWithin(center, centers[i], c.params.Epsilon) {
				moved = true
			}
			remap[i] = len(newCenters)
			newCenters = append(newCenters, center)
		}
		centers = newCenters

		for i := range labels {
			if mapped := remap[labels[i]]; mapped >= 0 {
				labels[i] = mapped
			} else {
				labels[i] = 0
			}
		}

		if !moved {
			converged = true
			iterations++
			break
		}
	}

	// Labels must reflect the final centers.
	c.assignLabelsOnly(data, centers, labels)
	return centers, labels, iterations, converged
}

// seedCenters picks seeds by uniform sampling, rejecting a candidate that lies
// within Epsilon of an already-chosen seed. The retry budget caps how long a
// degenerate pool (many duplicate frames) can stall seeding.
func (c *Clusterer) seedCenters(data [][]float64, k int) [][]float64 {
	centers := make([][]float64, 0, k)
	for len(centers) < k {
		retries := 0
		for {
			candidate := data[c.rng.Intn(len(data))]
			duplicate := false
			for _, seed := range centers {
				if vectors.EqualWithin(candidate, seed, c.params.Epsilon) {
					duplicate = true
					break
				}
			}
			if !duplicate || retries >= c.params.SeedRetries {
				centers = append(centers, append([]float64(nil), candidate...))
				break
			}
			retries++
		}
	}
	return centers
}

// assign runs the assignment step fanned out across workers. Each sample's
// nearest-center lookup is independent; only the shared per-cluster
// accumulators need the mutex.
func (c *Clusterer) assign(data [][]float64, centers [][]float64, labels []int) (sums [][]float64, counts [][]int, sizes []int) {
	dim := len(data[0])
	sums = make([][]float64, len(centers))
	counts = make([][]int, len(centers))
	sizes = make([]int, len(centers))
	for i := range centers {
		sums[i] = make([]float64, dim)
		counts[i] = make([]int, dim)
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	chunk := (len(data) + c.params.Workers - 1) / c.params.Workers

	for start := 0; start < len(data); start += chunk {
		end := min(start+chunk, len(data))
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				labels[i] = c.nearestCenter(data[i], centers)
			}
			mu.Lock()
			defer mu.Unlock()
			for i := start; i < end; i++ {
				cluster := labels[i]
				sizes[cluster]++
				vectors.AccumulateNonMissing(sums[cluster], counts[cluster], data[i])
			}
		}(start, end)
	}
	wg.Wait()
	return sums, counts, sizes
}

func (c *Clusterer) assignLabelsOnly(data [][]float64, centers [][]float64, labels []int) {
	var wg sync.WaitGroup
	chunk := (len(data) + c.params.Workers - 1) / c.params.Workers
	for start := 0; start < len(data); start += chunk {
		end := min(start+chunk, len(data))
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				labels[i] = c.nearestCenter(data[i], centers)
			}
		}(start, end)
	}
	wg.Wait()
}

func (c *Clusterer) nearestCenter(v []float64, centers [][]float64) int {
	best := 0
	bestDist := math.Inf(1)
	for j, center := range centers {
		d, _ := c.dist(v, center)
		if d < bestDist {
			bestDist = d
			best = j
		}
	}
	return best
}

// compactness sums each sample's distance to its assigned center, bailing out
// once the partial sum already exceeds the best error seen so far. The second
// return value reports whether this run beat the bound.
func (c *Clusterer) compactness(data [][]float64, labels []int, centers [][]float64, bound float64) (float64, bool) {
	sum := 0.0
	for i, v := range data {
		d, _ := c.dist(v, centers[labels[i]])
		sum += d
		if sum >= bound {
			return sum, false
		}
	}
	return sum, true
}

// randomSelection picks K distinct samples uniformly and assigns the rest
func (c *Clusterer) randomSelection(data [][]float64) (*Result, error) {
	k := c.params.NumClusters
	picked := c.rng.Perm(len(data))[:k]

	centers := make([][]float64, k)
	for i, idx := range picked {
		centers[i] = append([]float64(nil), data[idx]...)
	}

	labels := make([]int, len(data))
	c.assignLabelsOnly(data, centers, labels)

	compactness := 0.0
	sse := 0.0
	for i, v := range data {
		d, _ := c.dist(v, centers[labels[i]])
		compactness += d
		sse += d * d
	}

	return &Result{
		Centers:     centers,
		Labels:      labels,
		Compactness: compactness,
		SSE:         sse,
		Iterations:  1,
		Converged:   true,
	}, nil
}
