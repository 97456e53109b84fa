package keypose

// KeyPose is a learned representative feature vector standing in for a
// cluster of similar frames within one class. Identity is assigned by the
// TrainingMemory that owns the pose and is unique within it.
//
// The weight is the pose's class-specificity in [0,1]: how often the pose was
// the nearest match for frames of its own class versus frames of any other
// class during the weighting pass. A pose that never matched keeps weight 0.
type KeyPose struct {
	ID      int64     `json:"id"`
	Class   string    `json:"class"`
	Feature []float64 `json:"feature"`
	Weight  float64   `json:"weight"`

	// Match counters, mutated only during the weighting pass
	WithinClass int `json:"within_class"`
	OutOfClass  int `json:"out_of_class"`
}

// RecordMatch bumps the counter for one nearest-pose hit during training
func (kp *KeyPose) RecordMatch(sameClass bool) {
	if sameClass {
		kp.WithinClass++
	} else {
		kp.OutOfClass++
	}
}

// ComputeWeight derives the weight from the accumulated counters. A pose with
// zero total matches keeps weight 0 rather than dividing by zero.
func (kp *KeyPose) ComputeWeight() {
	total := kp.WithinClass + kp.OutOfClass
	if total == 0 {
		kp.Weight = 0
		return
	}
	kp.Weight = float64(kp.WithinClass) / float64(total)
}

// Sequence is an ordered list of key pose references with a class label. It
// serves both as a stored template (produced during training) and as the
// running match buffer of a recognition window.
type Sequence struct {
	Class string
	Poses []*KeyPose
}

// NewSequence creates an empty sequence for the given class
func NewSequence(class string) *Sequence {
	return &Sequence{Class: class}
}

// Append adds a matched pose to the sequence. With summarize set, an
// immediate repeat of the previous entry is collapsed; repetition is decided
// by reference identity, since matched poses are shared objects.
func (s *Sequence) Append(kp *KeyPose, summarize bool) {
	if summarize && len(s.Poses) > 0 && s.Poses[len(s.Poses)-1] == kp {
		return
	}
	s.Poses = append(s.Poses, kp)
}

// Len returns the number of entries in the sequence
func (s *Sequence) Len() int {
	return len(s.Poses)
}
