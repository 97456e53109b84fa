package recognition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DAIGroup/BagOfKeyPoses/keypose"
	"github.com/DAIGroup/BagOfKeyPoses/keypose/config"
)

func twoSources() []config.Source {
	return []config.Source{
		{Name: "skeleton", Length: 2},
		{Name: "depth", Length: 2},
	}
}

func TestPoseComparator(t *testing.T) {
	t.Parallel()

	t.Run("plain distance is the normalized pose distance", func(t *testing.T) {
		t.Parallel()
		cmp := newPoseComparator("", nil, nil)
		a := &keypose.KeyPose{ID: 1, Feature: []float64{1, 0.5}}
		b := &keypose.KeyPose{ID: 2, Feature: []float64{0.5, 1}}
		d, err := cmp.Distance(a, b)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, d, 1e-12)
	})

	t.Run("cache serves repeated comparisons", func(t *testing.T) {
		t.Parallel()
		cache := keypose.NewDistanceCache()
		cmp := newPoseComparator("", nil, cache)
		a := &keypose.KeyPose{ID: 1, Feature: []float64{1, 0.5}}
		b := &keypose.KeyPose{ID: 2, Feature: []float64{0.5, 1}}

		first, err := cmp.Distance(a, b)
		require.NoError(t, err)
		assert.Equal(t, 1, cache.Len())

		// A hit bypasses the feature vectors entirely.
		b.Feature = []float64{9, 9}
		again, err := cmp.Distance(b, a)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	})

	t.Run("fusion weights the per-source distances", func(t *testing.T) {
		t.Parallel()
		fusion := &config.FusionConfig{
			Sources: twoSources(),
			Weights: map[string]map[string]float64{
				"walk": {"skeleton": 3},
			},
		}
		cmp := newPoseComparator("walk", fusion, nil)

		// skeleton sub-vectors differ by 0.5 per dimension, depth by 0.1.
		a := &keypose.KeyPose{ID: 1, Feature: []float64{1, 1, 0.2, 0.2}}
		b := &keypose.KeyPose{ID: 2, Feature: []float64{0.5, 0.5, 0.3, 0.3}}
		d, err := cmp.Distance(a, b)
		require.NoError(t, err)
		assert.InDelta(t, (3*0.5+1*0.1)/4.0, d, 1e-12)
	})

	t.Run("source with no joint dimensions drops out", func(t *testing.T) {
		t.Parallel()
		cmp := newPoseComparator("walk", &config.FusionConfig{Sources: twoSources()}, nil)
		a := &keypose.KeyPose{ID: 1, Feature: []float64{1, 1, 0, 0}}
		b := &keypose.KeyPose{ID: 2, Feature: []float64{0.5, 0.5, 0.3, 0.3}}
		d, err := cmp.Distance(a, b)
		require.NoError(t, err)
		// Only the skeleton source counts.
		assert.InDelta(t, 0.5, d, 1e-12)
	})

	t.Run("layout mismatch is an error", func(t *testing.T) {
		t.Parallel()
		cmp := newPoseComparator("walk", &config.FusionConfig{Sources: twoSources()}, nil)
		a := &keypose.KeyPose{ID: 1, Feature: []float64{1, 1}}
		b := &keypose.KeyPose{ID: 2, Feature: []float64{0.5, 0.5, 0.3, 0.3}}
		_, err := cmp.Distance(a, b)
		assert.Error(t, err)
	})
}
