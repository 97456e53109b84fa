package recognition

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DAIGroup/BagOfKeyPoses/keypose"
	"github.com/DAIGroup/BagOfKeyPoses/keypose/config"
)

func evidenceConfig() config.EvidenceConfig {
	return config.EvidenceConfig{
		HistorySize:  3,
		Calibration:  30,
		ZeroFallback: 25,
		Sharpening:   1,
	}
}

func TestRecencyKernel(t *testing.T) {
	t.Parallel()

	t.Run("strictly decreasing from the newest sample", func(t *testing.T) {
		t.Parallel()
		kernel := recencyKernel(6)
		require.Len(t, kernel, 6)
		for i := 1; i < len(kernel); i++ {
			assert.Less(t, kernel[i], kernel[i-1], "kernel[%d]", i)
		}
	})

	t.Run("degenerate single-sample history", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, []float64{1}, recencyKernel(1))
	})
}

func TestEvidenceSmoother(t *testing.T) {
	t.Parallel()

	t.Run("no match yields neutral evidence", func(t *testing.T) {
		t.Parallel()
		sm := NewEvidenceSmoother(evidenceConfig())
		assert.Equal(t, 1.0, sm.Update(keypose.Match{}))
	})

	t.Run("zero distance without history falls back", func(t *testing.T) {
		t.Parallel()
		sm := NewEvidenceSmoother(evidenceConfig())
		got := sm.Update(keypose.Match{
			Pose:     &keypose.KeyPose{Weight: 1},
			Distance: 0,
		})
		assert.InDelta(t, math.Exp(25.0/30.0), got, 1e-12)
	})

	t.Run("zero distance with history repeats the last sample", func(t *testing.T) {
		t.Parallel()
		sm := NewEvidenceSmoother(evidenceConfig())
		pose := &keypose.KeyPose{Weight: 0.5}
		sm.Update(keypose.Match{Pose: pose, Distance: 0.25})
		got := sm.Update(keypose.Match{Pose: pose, Distance: 0})
		// Both history samples equal 0.5/0.25/30, so the average is exact.
		assert.InDelta(t, math.Exp(0.5/0.25/30.0), got, 1e-12)
	})

	t.Run("closer matches raise evidence", func(t *testing.T) {
		t.Parallel()
		near := NewEvidenceSmoother(evidenceConfig())
		far := NewEvidenceSmoother(evidenceConfig())
		pose := &keypose.KeyPose{Weight: 1}
		a := near.Update(keypose.Match{Pose: pose, Distance: 0.1})
		b := far.Update(keypose.Match{Pose: pose, Distance: 0.9})
		assert.Greater(t, a, b)
	})

	t.Run("smoothing dampens a single outlier", func(t *testing.T) {
		t.Parallel()
		sm := NewEvidenceSmoother(evidenceConfig())
		pose := &keypose.KeyPose{Weight: 1}
		steady := 0.0
		for n := 0; n < 3; n++ {
			steady = sm.Update(keypose.Match{Pose: pose, Distance: 0.5})
		}
		spiked := sm.Update(keypose.Match{Pose: pose, Distance: 0.05})

		fresh := NewEvidenceSmoother(evidenceConfig())
		unsmoothed := fresh.Update(keypose.Match{Pose: pose, Distance: 0.05})

		assert.Greater(t, spiked, steady)
		assert.Less(t, spiked, unsmoothed)
	})

	t.Run("reset drops history", func(t *testing.T) {
		t.Parallel()
		sm := NewEvidenceSmoother(evidenceConfig())
		pose := &keypose.KeyPose{Weight: 1}
		sm.Update(keypose.Match{Pose: pose, Distance: 0.1})
		sm.Reset()
		assert.Equal(t, 1.0, sm.Update(keypose.Match{}))
	})
}
