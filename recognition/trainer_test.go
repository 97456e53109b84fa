package recognition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DAIGroup/BagOfKeyPoses/keypose/config"
)

// Three well-separated classes, each training on repeats of its own
// prototype frame. Exact zeros are avoided: a zero component means the
// dimension is missing.
var prototypes = map[string][]float64{
	"bend": {1, 0.1, 0.1},
	"jump": {0.1, 1, 0.1},
	"walk": {0.1, 0.1, 1},
}

func repeatFrames(frame []float64, n int) FrameSequence {
	seq := make(FrameSequence, n)
	for i := range seq {
		seq[i] = frame
	}
	return seq
}

func threeClassData(framesPerClass int) TrainingData {
	data := make(TrainingData, len(prototypes))
	for class, frame := range prototypes {
		data[class] = []FrameSequence{repeatFrames(frame, framesPerClass)}
	}
	return data
}

func threeClassConfig() *config.LearningConfig {
	cfg := config.Default("bend", "jump", "walk")
	cfg.VocabularySize = 1
	return cfg
}

func TestTrain(t *testing.T) {
	t.Parallel()

	t.Run("single-cluster classes learn their prototype", func(t *testing.T) {
		t.Parallel()
		memory, err := NewTrainer(threeClassConfig()).Train(threeClassData(100))
		require.NoError(t, err)

		assert.Equal(t, 3, memory.PoseCount())
		for class, frame := range prototypes {
			require.Len(t, memory.Poses[class], 1, class)
			kp := memory.Poses[class][0]
			assert.InDeltaSlice(t, frame, kp.Feature, 1e-9)
			// Every training frame matched its own class's pose.
			assert.Equal(t, 1.0, kp.Weight)

			require.Len(t, memory.Templates[class], 1, class)
			// Identical frames summarize down to one entry.
			assert.Equal(t, 1, memory.Templates[class][0].Len())
		}
	})

	t.Run("vocabulary-only training skips weighting and templates", func(t *testing.T) {
		t.Parallel()
		cfg := threeClassConfig()
		cfg.ComputeWeights = false
		memory, err := NewTrainer(cfg).Train(threeClassData(20))
		require.NoError(t, err)

		assert.Equal(t, 3, memory.PoseCount())
		assert.Empty(t, memory.Templates)
		assert.Zero(t, memory.Poses["bend"][0].Weight)
	})

	t.Run("zones need the weighting pass", func(t *testing.T) {
		t.Parallel()
		cfg := threeClassConfig()
		cfg.UseZones = true
		cfg.ComputeWeights = false
		_, err := NewTrainer(cfg).Train(threeClassData(20))
		assert.Error(t, err)
	})

	t.Run("invalid config fails before touching data", func(t *testing.T) {
		t.Parallel()
		cfg := config.Default()
		_, err := NewTrainer(cfg).Train(TrainingData{})
		assert.Error(t, err)
	})

	t.Run("class without data stays unreachable", func(t *testing.T) {
		t.Parallel()
		data := threeClassData(20)
		delete(data, "walk")
		memory, err := NewTrainer(threeClassConfig()).Train(data)
		require.NoError(t, err)
		assert.Empty(t, memory.Poses["walk"])
		assert.Len(t, memory.Poses["bend"], 1)
	})

	t.Run("progress runs to completion", func(t *testing.T) {
		t.Parallel()
		trainer := NewTrainer(threeClassConfig())
		var last float64
		trainer.SetProgress(func(percent float64, _ string) { last = percent })
		_, err := trainer.Train(threeClassData(20))
		require.NoError(t, err)
		assert.Equal(t, 100.0, last)
	})

	t.Run("progress defaults to the logging sink", func(t *testing.T) {
		t.Parallel()
		assert.NotNil(t, NewTrainer(threeClassConfig()).progress)
	})
}

func TestTrainWithVocabulary(t *testing.T) {
	t.Parallel()

	prior, err := NewTrainer(threeClassConfig()).Train(threeClassData(50))
	require.NoError(t, err)

	memory, err := NewTrainer(threeClassConfig()).TrainWithVocabulary(threeClassData(50), prior)
	require.NoError(t, err)

	// Already-learned classes reuse the prior pose objects verbatim.
	for class := range prototypes {
		require.Len(t, memory.Poses[class], 1, class)
		assert.Same(t, prior.Poses[class][0], memory.Poses[class][0], class)
	}
}

func TestTrainWithZones(t *testing.T) {
	t.Parallel()

	cfg := threeClassConfig()
	cfg.UseZones = true
	memory, err := NewTrainer(cfg).Train(threeClassData(100))
	require.NoError(t, err)

	// 100 frames of unambiguous evidence split at the zone length cap:
	// 40 + 40 + 20 frames, each run above the minimum.
	for class := range prototypes {
		zones := memory.Templates[class]
		require.Len(t, zones, 3, class)
		for _, zone := range zones {
			assert.Equal(t, 1, zone.Len())
		}
	}
}

func TestTrainOneClass(t *testing.T) {
	t.Parallel()

	cfg := config.Default("normal")
	cfg.OneClass = true
	cfg.VocabularySize = 0

	frames := repeatFrames([]float64{0.5, 0.5, 0.5}, 10)
	memory, err := NewTrainer(cfg).Train(TrainingData{"normal": {frames}})
	require.NoError(t, err)

	// One-class training keeps the raw samples instead of cluster centers.
	assert.Len(t, memory.Poses["normal"], 10)
	require.NotEmpty(t, memory.Templates["normal"])
}
