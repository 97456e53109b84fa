package recognition

import (
	"fmt"

	"github.com/DAIGroup/BagOfKeyPoses/algorithms/dtw"
	"github.com/DAIGroup/BagOfKeyPoses/keypose"
	"github.com/DAIGroup/BagOfKeyPoses/keypose/config"
	"github.com/DAIGroup/BagOfKeyPoses/logging"
)

// State tracks a classifier through one test sequence
type State int

const (
	Idle State = iota
	Initialized
	Accumulating
	Recognized
	Exhausted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Initialized:
		return "initialized"
	case Accumulating:
		return "accumulating"
	case Recognized:
		return "recognized"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Result is the outcome of a whole-sequence classification. An empty Class
// means no class could be selected (for example, an untrained model); that is
// a valid result, not an error.
type Result struct {
	Class    string  `json:"class"`
	Distance float64 `json:"distance"`

	// ClassDistances holds the best template distance seen per class. Values
	// equal to dtw.Overflow mean every template of that class was abandoned
	// against the running bound, so they are advisory, not exact.
	ClassDistances map[string]float64 `json:"class_distances,omitempty"`
}

// Classifier matches test sequences against the templates of a trained
// model. One instance serves one test sequence at a time; it must not be
// shared across concurrently classified sequences.
type Classifier struct {
	cfg    *config.LearningConfig
	memory *keypose.TrainingMemory
	log    logging.Logger

	state  State
	frames FrameSequence
	cursor int
	buffer *keypose.Sequence
}

// NewClassifier creates a classifier over a trained model
func NewClassifier(cfg *config.LearningConfig, memory *keypose.TrainingMemory) *Classifier {
	return &Classifier{
		cfg:    cfg,
		memory: memory,
		log:    logging.WithFields(logging.Fields{"component": "classifier"}),
		state:  Idle,
	}
}

// State returns the current recognition state
func (c *Classifier) State() State {
	return c.state
}

// Initialize resets the match buffer and frame cursor for a new sequence
func (c *Classifier) Initialize(frames FrameSequence) {
	c.frames = frames
	c.cursor = 0
	c.buffer = keypose.NewSequence("")
	c.state = Initialized
}

// Step consumes the next frame: it is assigned to its nearest key pose (or,
// in one-class mode, wrapped as an ad-hoc pose), appended to the running
// matched sequence subject to summarization, and the cursor advances. The
// return value reports whether frames remain.
func (c *Classifier) Step() (bool, error) {
	if c.state != Initialized && c.state != Accumulating {
		return false, fmt.Errorf("classifier: Step in state %s", c.state)
	}
	if c.cursor >= len(c.frames) {
		c.state = Exhausted
		return false, nil
	}

	frame := c.frames[c.cursor]
	pose, err := c.matchFrame(frame)
	if err != nil {
		return false, err
	}
	if pose != nil {
		c.buffer.Append(pose, c.cfg.Summarize)
	}

	c.cursor++
	c.state = Accumulating
	if c.cursor >= len(c.frames) {
		c.state = Exhausted
		return false, nil
	}
	return true, nil
}

func (c *Classifier) matchFrame(frame []float64) (*keypose.KeyPose, error) {
	if c.cfg.OneClass {
		return c.memory.AdHocKeyPose(append([]float64(nil), frame...)), nil
	}
	match, err := c.memory.Nearest(frame, true)
	if err != nil {
		return nil, err
	}
	return match.Pose, nil
}

// Classify runs a whole test sequence to completion and matches the resulting
// key pose sequence against every stored template via early-abandon DTW. The
// minimum-distance template's class wins; ties keep the first template in
// class order.
func (c *Classifier) Classify(frames FrameSequence) (*Result, error) {
	c.Initialize(frames)
	for {
		more, err := c.Step()
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
	}

	result, err := matchTemplates(c.cfg, c.memory, c.buffer.Poses)
	if err != nil {
		return nil, err
	}
	if result.Class != "" {
		c.state = Recognized
	}
	c.log.Debug("sequence classified", logging.Fields{
		"class":    result.Class,
		"frames":   len(frames),
		"distance": result.Distance,
	})
	return result, nil
}

// matchTemplates compares a matched key pose sequence against all templates,
// carrying the best distance so far as the early-abandon bound so hopeless
// templates never fill a full grid.
func matchTemplates(cfg *config.LearningConfig, memory *keypose.TrainingMemory, query []*keypose.KeyPose) (*Result, error) {
	result := &Result{
		Distance:       dtw.Overflow,
		ClassDistances: make(map[string]float64, len(memory.ClassOrder)),
	}

	for _, class := range memory.ClassOrder {
		templates := memory.Templates[class]
		if len(templates) == 0 {
			continue
		}
		cmp := newPoseComparator(class, cfg.Fusion, memory.Cache())
		classBest := dtw.Overflow

		for _, tpl := range templates {
			if tpl.Len() == 0 {
				continue
			}
			d, err := dtw.BoundedDistance(query, tpl.Poses, cmp, result.Distance)
			if err != nil {
				return nil, fmt.Errorf("matching against class %q: %w", class, err)
			}
			if d < classBest {
				classBest = d
			}
			if d < result.Distance {
				result.Distance = d
				result.Class = class
			}
		}
		result.ClassDistances[class] = classBest
	}

	return result, nil
}
