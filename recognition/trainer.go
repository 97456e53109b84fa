package recognition

import (
	"fmt"

	"github.com/DAIGroup/BagOfKeyPoses/algorithms/clustering"
	"github.com/DAIGroup/BagOfKeyPoses/algorithms/vectors"
	"github.com/DAIGroup/BagOfKeyPoses/keypose"
	"github.com/DAIGroup/BagOfKeyPoses/keypose/config"
	"github.com/DAIGroup/BagOfKeyPoses/logging"
)

// FrameSequence is one training or test example: an ordered run of
// fixed-length feature vectors, one per frame.
type FrameSequence [][]float64

// TrainingData maps each class label to its ordered training sequences
type TrainingData map[string][]FrameSequence

// Trainer drives vocabulary learning, the discriminative weighting pass and
// template (or action zone) extraction, producing a TrainingMemory. Training
// is all-or-nothing: on error nothing is committed.
type Trainer struct {
	cfg      *config.LearningConfig
	progress ProgressFunc
	log      logging.Logger
}

// NewTrainer creates a trainer for the given configuration. Progress reports
// go to the library logger until SetProgress installs another sink.
func NewTrainer(cfg *config.LearningConfig) *Trainer {
	return &Trainer{
		cfg:      cfg,
		progress: LoggingProgress,
		log:      logging.WithFields(logging.Fields{"component": "trainer"}),
	}
}

// SetProgress installs a progress sink. A nil sink silences progress
// reporting; it never changes training behavior.
func (t *Trainer) SetProgress(fn ProgressFunc) {
	t.progress = fn
}

// Train learns a fresh model from scratch
func (t *Trainer) Train(data TrainingData) (*keypose.TrainingMemory, error) {
	return t.TrainWithVocabulary(data, nil)
}

// TrainWithVocabulary learns a model, reusing the vocabulary of any class the
// prior memory has already learned. Reused key poses are adopted verbatim.
func (t *Trainer) TrainWithVocabulary(data TrainingData, prior *keypose.TrainingMemory) (*keypose.TrainingMemory, error) {
	if err := t.cfg.Validate(); err != nil {
		return nil, err
	}
	if t.cfg.UseZones && !t.cfg.ComputeWeights {
		return nil, fmt.Errorf("training: zone extraction needs the weighting pass")
	}

	memory := keypose.NewTrainingMemory(t.cfg.Classes)
	if prior != nil {
		for _, class := range t.cfg.Classes {
			memory.AdoptVocabulary(prior, class)
		}
	}

	if err := t.learnVocabulary(memory, data); err != nil {
		return nil, err
	}

	if !t.cfg.ComputeWeights {
		t.report(100, "training complete (vocabulary only)")
		return memory, nil
	}

	matched, err := t.weightingPass(memory, data)
	if err != nil {
		return nil, err
	}

	if t.cfg.UseZones {
		if err := t.extractZones(memory, data, matched); err != nil {
			return nil, err
		}
	} else {
		for _, class := range t.cfg.Classes {
			for _, seq := range matched[class] {
				memory.AddTemplate(seq)
			}
		}
	}

	t.report(100, "training complete")
	t.log.Info("model trained", logging.Fields{
		"classes":   len(t.cfg.Classes),
		"key_poses": memory.PoseCount(),
	})
	return memory, nil
}

// learnVocabulary clusters each class's pooled frames into its vocabulary.
// Classes already carrying poses (adopted from a prior model) are skipped.
func (t *Trainer) learnVocabulary(memory *keypose.TrainingMemory, data TrainingData) error {
	for i, class := range t.cfg.Classes {
		t.report(50*float64(i)/float64(len(t.cfg.Classes)), fmt.Sprintf("learning vocabulary for %s", class))
		if memory.HasClass(class) {
			t.log.Debug("class already learned, skipping", logging.Fields{"class": class})
			continue
		}

		pool := poolFrames(data[class])
		if len(pool) == 0 {
			// A class without training data stays unreachable, not fatal.
			t.log.Warn("class has no training frames", logging.Fields{"class": class})
			continue
		}

		if t.cfg.OneClass {
			for _, frame := range pool {
				memory.NewKeyPose(class, append([]float64(nil), frame...))
			}
			continue
		}

		result, err := t.cluster(pool, t.cfg.VocabularyFor(class))
		if err != nil {
			return fmt.Errorf("training class %q: clustering: %w", class, err)
		}
		for _, center := range result.Centers {
			memory.NewKeyPose(class, center)
		}
		t.log.Debug("class vocabulary built", logging.Fields{
			"class":     class,
			"key_poses": len(result.Centers),
			"sse":       result.SSE,
		})
	}
	return nil
}

func (t *Trainer) cluster(pool [][]float64, k int) (*clustering.Result, error) {
	algorithm := clustering.KMeans
	if t.cfg.Clustering.Algorithm == config.ClusteringRandom {
		algorithm = clustering.RandomSelection
	}
	params := clustering.DefaultParams()
	params.NumClusters = k
	params.Algorithm = algorithm
	if t.cfg.Clustering.Restarts > 0 {
		params.Restarts = t.cfg.Clustering.Restarts
	}
	if t.cfg.Clustering.MaxIterations > 0 {
		params.MaxIterations = t.cfg.Clustering.MaxIterations
	}
	if t.cfg.Clustering.Epsilon > 0 {
		params.Epsilon = t.cfg.Clustering.Epsilon
	}
	if t.cfg.Clustering.SeedRetries > 0 {
		params.SeedRetries = t.cfg.Clustering.SeedRetries
	}
	if t.cfg.Clustering.RandomSeed != 0 {
		params.RandomSeed = t.cfg.Clustering.RandomSeed
	}
	return clustering.NewWithParams(params).Fit(pool)
}

// weightingPass replays every training frame through the pruned global
// nearest-pose search, counting within-class and out-of-class hits, and
// builds each sequence's matched key pose sequence along the way.
func (t *Trainer) weightingPass(memory *keypose.TrainingMemory, data TrainingData) (map[string][]*keypose.Sequence, error) {
	matched := make(map[string][]*keypose.Sequence, len(t.cfg.Classes))

	for i, class := range t.cfg.Classes {
		t.report(50+30*float64(i)/float64(len(t.cfg.Classes)), fmt.Sprintf("weighting key poses against %s", class))
		for _, frames := range data[class] {
			seq := keypose.NewSequence(class)
			for _, frame := range frames {
				match, err := memory.Nearest(frame, true)
				if err != nil {
					return nil, fmt.Errorf("training class %q: weighting: %w", class, err)
				}
				if match.Pose == nil {
					continue
				}
				match.Pose.RecordMatch(match.Pose.Class == class)
				seq.Append(match.Pose, t.cfg.Summarize)
			}
			matched[class] = append(matched[class], seq)
		}
	}

	for _, class := range t.cfg.Classes {
		for _, kp := range memory.Poses[class] {
			kp.ComputeWeight()
		}
	}
	return matched, nil
}

// extractZones streams every training sequence and keeps the sub-sequences
// where the ground-truth class's evidence exceeds the median evidence of the
// other classes by more than the class margin. Sequences producing no
// qualifying zone fall back to their whole matched sequence.
func (t *Trainer) extractZones(memory *keypose.TrainingMemory, data TrainingData, matched map[string][]*keypose.Sequence) error {
	for i, class := range t.cfg.Classes {
		t.report(80+20*float64(i)/float64(len(t.cfg.Classes)), fmt.Sprintf("extracting action zones for %s", class))
		margin := t.cfg.MarginFor(class)

		for seqIdx, frames := range data[class] {
			zones, err := t.sequenceZones(memory, class, frames, margin)
			if err != nil {
				return fmt.Errorf("training class %q: zones: %w", class, err)
			}
			if len(zones) == 0 {
				// No qualifying zone; keep the whole matched sequence.
				memory.AddTemplate(matched[class][seqIdx])
				continue
			}
			for _, zone := range zones {
				memory.AddTemplate(zone)
			}
		}
	}
	return nil
}

func (t *Trainer) sequenceZones(memory *keypose.TrainingMemory, class string, frames FrameSequence, margin float64) ([]*keypose.Sequence, error) {
	smoothers := make(map[string]*EvidenceSmoother, len(t.cfg.Classes))
	for _, cl := range t.cfg.Classes {
		smoothers[cl] = NewEvidenceSmoother(t.cfg.Evidence)
	}

	var zones []*keypose.Sequence
	zone := keypose.NewSequence(class)
	zoneFrames := 0

	closeZone := func() {
		if zoneFrames >= t.cfg.MinZoneFrames && zone.Len() > 0 {
			zones = append(zones, zone)
		}
		zone = keypose.NewSequence(class)
		zoneFrames = 0
	}

	for _, frame := range frames {
		perClass, err := memory.NearestPerClass(frame)
		if err != nil {
			return nil, err
		}

		evidence := make(map[string]float64, len(t.cfg.Classes))
		for _, cl := range t.cfg.Classes {
			evidence[cl] = smoothers[cl].Update(perClass[cl])
		}

		others := make([]float64, 0, len(t.cfg.Classes)-1)
		for _, cl := range t.cfg.Classes {
			if cl != class {
				others = append(others, evidence[cl])
			}
		}

		if evidence[class] > vectors.Median(others)+margin {
			if match, ok := perClass[class]; ok {
				zone.Append(match.Pose, t.cfg.Summarize)
				zoneFrames++
			}
			if zoneFrames >= t.cfg.MaxZoneFrames {
				closeZone()
			}
			continue
		}

		closeZone()
	}
	closeZone()

	return zones, nil
}

func poolFrames(sequences []FrameSequence) [][]float64 {
	var pool [][]float64
	for _, seq := range sequences {
		pool = append(pool, seq...)
	}
	return pool
}
