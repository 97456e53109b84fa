package keypose

import (
	"fmt"
	"math"

	"github.com/DAIGroup/BagOfKeyPoses/algorithms/vectors"
)

// Match couples a key pose with the distance of the comparison that found it.
// Returning the distance here instead of mutating shared pose state keeps
// concurrent recognition free of stale reads.
type Match struct {
	Pose     *KeyPose
	Distance float64
}

// Nearest finds the closest key pose across every class.
//
// With pruning, the search uses a bounded Manhattan accumulation that aborts
// a candidate as soon as its running sum reaches the best distance so far.
// That trades the guarantee of a strict global minimum for speed, so ties
// resolve in encounter order (ClassOrder, then pose order within a class).
// Without pruning, the normalized missing-dimension-aware distance is used
// and the strict global minimum is kept.
//
// A nil pose in the result means the vocabulary is empty or the frame was
// comparable to no pose.
func (m *TrainingMemory) Nearest(frame []float64, pruned bool) (Match, error) {
	best := Match{Distance: math.MaxFloat64}

	for _, class := range m.ClassOrder {
		for _, kp := range m.Poses[class] {
			if pruned {
				if len(kp.Feature) != len(frame) {
					return Match{}, fmt.Errorf("nearest key pose: dimension mismatch: %d vs %d", len(frame), len(kp.Feature))
				}
				d, better := vectors.BoundedManhattan(frame, kp.Feature, best.Distance)
				if better {
					best = Match{Pose: kp, Distance: d}
				}
				continue
			}

			d, err := vectors.NormalizedManhattan(frame, kp.Feature)
			if err != nil {
				return Match{}, err
			}
			if d < best.Distance {
				best = Match{Pose: kp, Distance: d}
			}
		}
	}

	return best, nil
}

// NearestPerClass finds, for every class, the closest key pose of that class.
// The per-class search always uses the normalized distance un-pruned, since
// the evidence scores built on top of it need reliable distances. Classes
// with an empty vocabulary are absent from the result.
func (m *TrainingMemory) NearestPerClass(frame []float64) (map[string]Match, error) {
	result := make(map[string]Match, len(m.ClassOrder))

	for _, class := range m.ClassOrder {
		best := Match{Distance: math.MaxFloat64}
		for _, kp := range m.Poses[class] {
			d, err := vectors.NormalizedManhattan(frame, kp.Feature)
			if err != nil {
				return nil, err
			}
			if d < best.Distance {
				best = Match{Pose: kp, Distance: d}
			}
		}
		if best.Pose != nil {
			result[class] = best
		}
	}

	return result, nil
}
