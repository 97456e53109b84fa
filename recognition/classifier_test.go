package recognition

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DAIGroup/BagOfKeyPoses/algorithms/dtw"
	"github.com/DAIGroup/BagOfKeyPoses/keypose"
	"github.com/DAIGroup/BagOfKeyPoses/keypose/config"
	"github.com/DAIGroup/BagOfKeyPoses/logging"
)

func trainedThreeClassModel(t *testing.T) (*config.LearningConfig, *keypose.TrainingMemory) {
	t.Helper()
	cfg := threeClassConfig()
	memory, err := NewTrainer(cfg).Train(threeClassData(100))
	require.NoError(t, err)
	return cfg, memory
}

func TestClassify(t *testing.T) {
	t.Parallel()

	t.Run("held-out variants of each prototype classify correctly", func(t *testing.T) {
		t.Parallel()
		cfg, memory := trainedThreeClassModel(t)
		clf := NewClassifier(cfg, memory)

		variants := map[string][]float64{
			"bend": {0.95, 0.15, 0.1},
			"jump": {0.12, 0.97, 0.08},
			"walk": {0.1, 0.14, 0.93},
		}
		for class, frame := range variants {
			result, err := clf.Classify(repeatFrames(frame, 20))
			require.NoError(t, err)
			assert.Equal(t, class, result.Class)
			assert.Equal(t, Recognized, clf.State())
		}
	})

	t.Run("per-class distances separate the winner", func(t *testing.T) {
		t.Parallel()
		cfg, memory := trainedThreeClassModel(t)
		result, err := NewClassifier(cfg, memory).Classify(repeatFrames(prototypes["bend"], 10))
		require.NoError(t, err)

		assert.Equal(t, "bend", result.Class)
		assert.Zero(t, result.Distance)
		assert.Zero(t, result.ClassDistances["bend"])
		// Losing classes were abandoned against the zero bound.
		assert.Equal(t, dtw.Overflow, result.ClassDistances["jump"])
		assert.Equal(t, dtw.Overflow, result.ClassDistances["walk"])
	})

	t.Run("untrained model yields no class", func(t *testing.T) {
		t.Parallel()
		cfg := threeClassConfig()
		memory := keypose.NewTrainingMemory(cfg.Classes)
		result, err := NewClassifier(cfg, memory).Classify(repeatFrames([]float64{1, 0.1, 0.1}, 10))
		require.NoError(t, err)
		assert.Empty(t, result.Class)
	})

	t.Run("empty sequence yields no class", func(t *testing.T) {
		t.Parallel()
		cfg, memory := trainedThreeClassModel(t)
		result, err := NewClassifier(cfg, memory).Classify(nil)
		require.NoError(t, err)
		assert.Empty(t, result.Class)
	})

	t.Run("dimension mismatch surfaces as an error", func(t *testing.T) {
		t.Parallel()
		cfg, memory := trainedThreeClassModel(t)
		_, err := NewClassifier(cfg, memory).Classify(repeatFrames([]float64{1}, 5))
		assert.Error(t, err)
	})
}

func TestClassifierStates(t *testing.T) {
	t.Parallel()

	cfg, memory := trainedThreeClassModel(t)
	clf := NewClassifier(cfg, memory)
	assert.Equal(t, Idle, clf.State())

	_, err := clf.Step()
	assert.Error(t, err)

	clf.Initialize(repeatFrames(prototypes["walk"], 3))
	assert.Equal(t, Initialized, clf.State())

	more, err := clf.Step()
	require.NoError(t, err)
	assert.True(t, more)
	assert.Equal(t, Accumulating, clf.State())

	for more {
		more, err = clf.Step()
		require.NoError(t, err)
	}
	assert.Equal(t, Exhausted, clf.State())

	_, err = clf.Step()
	assert.Error(t, err)
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "recognized", Recognized.String())
	assert.Equal(t, "unknown", State(99).String())
}

// recordingLogger captures every message for assertion; level filtering is
// deliberately absent so debug output is visible too.
type recordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingLogger) record(msg string) {
	r.mu.Lock()
	r.messages = append(r.messages, msg)
	r.mu.Unlock()
}

func (r *recordingLogger) has(msg string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m == msg {
			return true
		}
	}
	return false
}

func (r *recordingLogger) Debug(msg string, _ ...logging.Fields)          { r.record(msg) }
func (r *recordingLogger) Info(msg string, _ ...logging.Fields)           { r.record(msg) }
func (r *recordingLogger) Warn(msg string, _ ...logging.Fields)           { r.record(msg) }
func (r *recordingLogger) Error(_ error, msg string, _ ...logging.Fields) { r.record(msg) }
func (r *recordingLogger) Fatal(_ error, msg string, _ ...logging.Fields) { r.record(msg) }
func (r *recordingLogger) WithFields(logging.Fields) logging.Logger       { return r }
func (r *recordingLogger) WithContext(context.Context) logging.Logger     { return r }
func (r *recordingLogger) SetLevel(logging.Level)                         {}

// Swaps the global logger, so no t.Parallel here.
func TestClassifyLogsOutcome(t *testing.T) {
	rec := &recordingLogger{}
	prev := logging.GetGlobalLogger()
	logging.SetGlobalLogger(rec)
	defer logging.SetGlobalLogger(prev)

	cfg, memory := trainedThreeClassModel(t)
	result, err := NewClassifier(cfg, memory).Classify(repeatFrames(prototypes["bend"], 5))
	require.NoError(t, err)
	require.Equal(t, "bend", result.Class)
	assert.True(t, rec.has("sequence classified"))
}

func TestClassifyOneClass(t *testing.T) {
	t.Parallel()

	cfg := config.Default("normal")
	cfg.OneClass = true
	cfg.VocabularySize = 0

	normal := []float64{0.5, 0.5, 0.5}
	memory, err := NewTrainer(cfg).Train(TrainingData{"normal": {repeatFrames(normal, 10)}})
	require.NoError(t, err)

	clf := NewClassifier(cfg, memory)

	result, err := clf.Classify(repeatFrames([]float64{0.52, 0.48, 0.5}, 5))
	require.NoError(t, err)
	assert.Equal(t, "normal", result.Class)

	far, err := clf.Classify(repeatFrames([]float64{5, 5, 5}, 5))
	require.NoError(t, err)
	// Still the only class, but at a distance a threshold would reject.
	assert.Equal(t, "normal", far.Class)
	assert.Greater(t, far.Distance, result.Distance)
}
