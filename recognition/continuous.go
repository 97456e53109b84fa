package recognition

import (
	"fmt"

	"github.com/DAIGroup/BagOfKeyPoses/keypose"
	"github.com/DAIGroup/BagOfKeyPoses/keypose/config"
	"github.com/DAIGroup/BagOfKeyPoses/logging"
)

// LabelUnknown marks frames discarded from an overgrown window without a
// confident match.
const LabelUnknown = "unknown"

// FrameStatus is the per-frame decision state of continuous classification
type FrameStatus int

const (
	// StatusProcessing means the frame sits in the current window, undecided
	StatusProcessing FrameStatus = iota
	// StatusDecided means the frame received a class label
	StatusDecided
	// StatusUnknown means the frame was discarded without a confident match
	StatusUnknown
)

// FrameLabel is the eventual per-frame output of continuous classification
type FrameLabel struct {
	Index  int         `json:"index"`
	Class  string      `json:"class,omitempty"`
	Status FrameStatus `json:"status"`
}

// windowEntry pairs a consumed frame with its matched pose. The pose may be
// nil when the vocabulary had nothing comparable; such frames still occupy
// window space and receive labels, they just contribute nothing to alignment.
type windowEntry struct {
	index int
	pose  *keypose.KeyPose
}

// ContinuousClassifier consumes a live stream of frames one at a time inside
// a growing window and emits a label per frame, eventually. Small windows
// reject matches to avoid committing prematurely; the maximum window length
// bounds worst-case latency and memory by discarding the oldest frames as
// "unknown" when no confident match arrives.
type ContinuousClassifier struct {
	cfg    *config.LearningConfig
	memory *keypose.TrainingMemory
	log    logging.Logger

	window       []windowEntry
	labels       []FrameLabel
	total        int
	sinceAttempt int
}

// NewContinuousClassifier creates a streaming classifier over a trained model
func NewContinuousClassifier(cfg *config.LearningConfig, memory *keypose.TrainingMemory) *ContinuousClassifier {
	return &ContinuousClassifier{
		cfg:    cfg,
		memory: memory,
		log:    logging.WithFields(logging.Fields{"component": "continuous"}),
		// The first window attempts as soon as it reaches the minimum length.
		sinceAttempt: cfg.Window.StepInterval,
	}
}

// Push consumes one frame from the stream
func (c *ContinuousClassifier) Push(frame []float64) error {
	var pose *keypose.KeyPose
	if c.cfg.OneClass {
		pose = c.memory.AdHocKeyPose(append([]float64(nil), frame...))
	} else {
		match, err := c.memory.Nearest(frame, true)
		if err != nil {
			return fmt.Errorf("continuous classification: %w", err)
		}
		pose = match.Pose
	}

	c.window = append(c.window, windowEntry{index: c.total, pose: pose})
	c.labels = append(c.labels, FrameLabel{Index: c.total, Status: StatusProcessing})
	c.total++
	c.sinceAttempt++

	if len(c.window) >= c.cfg.Window.MinFrames && c.sinceAttempt >= c.cfg.Window.StepInterval {
		if err := c.attempt(); err != nil {
			return err
		}
	}

	if c.cfg.Window.MaxFrames > 0 && len(c.window) > c.cfg.Window.MaxFrames {
		c.discardOldest()
	}
	return nil
}

// attempt runs one recognition pass over the current window, accepting the
// best template match only when its distance stays within the class's
// per-frame threshold scaled by the window length.
func (c *ContinuousClassifier) attempt() error {
	c.sinceAttempt = 0

	query := c.queryPoses()
	if len(query) == 0 {
		return nil
	}

	result, err := matchTemplates(c.cfg, c.memory, query)
	if err != nil {
		return fmt.Errorf("continuous classification: %w", err)
	}
	if result.Class == "" {
		return nil
	}

	if threshold := c.cfg.ThresholdFor(result.Class); threshold > 0 {
		if result.Distance > threshold*float64(len(c.window)) {
			return nil
		}
	}

	// Confident match: every frame in the window gets the label and a fresh
	// window starts.
	for _, entry := range c.window {
		c.labels[entry.index] = FrameLabel{Index: entry.index, Class: result.Class, Status: StatusDecided}
	}
	c.log.Debug("window recognized", logging.Fields{
		"class":    result.Class,
		"frames":   len(c.window),
		"distance": result.Distance,
	})
	c.window = c.window[:0]
	c.sinceAttempt = c.cfg.Window.StepInterval
	return nil
}

// discardOldest permanently labels the oldest frames "unknown" and shrinks
// the window
func (c *ContinuousClassifier) discardOldest() {
	n := c.cfg.Window.DiscardFrames
	if n < 1 {
		n = 1
	}
	if n > len(c.window) {
		n = len(c.window)
	}
	for _, entry := range c.window[:n] {
		c.labels[entry.index] = FrameLabel{Index: entry.index, Class: LabelUnknown, Status: StatusUnknown}
	}
	c.window = c.window[n:]
}

// queryPoses builds the alignment query from the window, dropping frames
// without a matched pose and collapsing immediate repeats when summarization
// is active
func (c *ContinuousClassifier) queryPoses() []*keypose.KeyPose {
	query := make([]*keypose.KeyPose, 0, len(c.window))
	for _, entry := range c.window {
		if entry.pose == nil {
			continue
		}
		if c.cfg.Summarize && len(query) > 0 && query[len(query)-1] == entry.pose {
			continue
		}
		query = append(query, entry.pose)
	}
	return query
}

// Labels returns the per-frame labels emitted so far, one per consumed frame.
// Frames still inside the window report StatusProcessing.
func (c *ContinuousClassifier) Labels() []FrameLabel {
	return append([]FrameLabel(nil), c.labels...)
}

// Finish ends the stream: one last recognition attempt is made over whatever
// the window holds, and any frames still undecided afterwards are labeled
// "unknown".
func (c *ContinuousClassifier) Finish() ([]FrameLabel, error) {
	if len(c.window) >= c.cfg.Window.MinFrames {
		if err := c.attempt(); err != nil {
			return nil, err
		}
	}
	for _, entry := range c.window {
		c.labels[entry.index] = FrameLabel{Index: entry.index, Class: LabelUnknown, Status: StatusUnknown}
	}
	c.window = c.window[:0]
	return c.Labels(), nil
}
