package recognition

import (
	"fmt"

	"github.com/DAIGroup/BagOfKeyPoses/algorithms/vectors"
	"github.com/DAIGroup/BagOfKeyPoses/keypose"
	"github.com/DAIGroup/BagOfKeyPoses/keypose/config"
)

// poseComparator is the strategy object handed to the alignment algorithms.
// It closes over the active class label, the fusion weight table and the
// shared distance cache, so the DTW code stays ignorant of all three.
type poseComparator struct {
	class  string
	fusion *config.FusionConfig
	cache  *keypose.DistanceCache
}

func newPoseComparator(class string, fusion *config.FusionConfig, cache *keypose.DistanceCache) *poseComparator {
	return &poseComparator{class: class, fusion: fusion, cache: cache}
}

// Distance compares two poses, consulting the cache before recomputing. With
// fusion configured, each named source's sub-vector is compared separately and
// the per-source distances combine under the class-by-source weights.
func (pc *poseComparator) Distance(a, b *keypose.KeyPose) (float64, error) {
	if pc.cache != nil {
		if d, ok := pc.cache.Get(a.ID, b.ID); ok {
			return d, nil
		}
	}

	var d float64
	var err error
	if pc.fusion != nil {
		d, err = pc.fusedDistance(a.Feature, b.Feature)
	} else {
		d, err = vectors.NormalizedManhattan(a.Feature, b.Feature)
	}
	if err != nil {
		return 0, err
	}

	if pc.cache != nil {
		pc.cache.Put(a.ID, b.ID, d)
	}
	return d, nil
}

// Correlation compares two poses by similarity rather than cost; fusion
// weights apply the same way as for distances.
func (pc *poseComparator) Correlation(a, b *keypose.KeyPose) (float64, error) {
	if pc.fusion == nil {
		return vectors.Correlation(a.Feature, b.Feature)
	}

	sum := 0.0
	weightSum := 0.0
	err := pc.eachSource(a.Feature, b.Feature, func(source string, subA, subB []float64) error {
		corr, err := vectors.Correlation(subA, subB)
		if err != nil {
			return err
		}
		w := pc.fusion.Weight(pc.class, source)
		sum += w * corr
		weightSum += w
		return nil
	})
	if err != nil {
		return 0, err
	}
	if weightSum == 0 {
		return 0, nil
	}
	return sum / weightSum, nil
}

func (pc *poseComparator) fusedDistance(a, b []float64) (float64, error) {
	sum := 0.0
	weightSum := 0.0
	err := pc.eachSource(a, b, func(source string, subA, subB []float64) error {
		d, err := vectors.NormalizedManhattan(subA, subB)
		if err != nil {
			return err
		}
		if d == vectors.MaxDistance {
			// This source carries no jointly present dimension.
			return nil
		}
		w := pc.fusion.Weight(pc.class, source)
		sum += w * d
		weightSum += w
		return nil
	})
	if err != nil {
		return 0, err
	}
	if weightSum == 0 {
		return vectors.MaxDistance, nil
	}
	return sum / weightSum, nil
}

// eachSource walks the fusion sources, handing each source's sub-vectors of a
// and b to fn. The sub-vectors are laid out in source declaration order.
func (pc *poseComparator) eachSource(a, b []float64, fn func(source string, subA, subB []float64) error) error {
	total := pc.fusion.TotalLength()
	if len(a) != total || len(b) != total {
		return fmt.Errorf("fusion: frame length %d/%d does not match source layout length %d", len(a), len(b), total)
	}

	offset := 0
	for _, src := range pc.fusion.Sources {
		end := offset + src.Length
		if err := fn(src.Name, a[offset:end], b[offset:end]); err != nil {
			return err
		}
		offset = end
	}
	return nil
}
