package keypose

import (
	"sync/atomic"
)

// TrainingMemory is the learned model: the per-class vocabulary of key poses,
// the per-class template (or action-zone) sequences used for alignment, and
// the shared pairwise distance cache. It also owns the pose identity
// generator, so identities stay unique even when learning runs concurrently
// across classes.
//
// A class with zero key poses is a valid but unreachable state: recognition
// against it simply never selects it.
type TrainingMemory struct {
	// ClassOrder is the authoritative class ordering. Per-class threshold
	// arrays supplied positionally follow this order.
	ClassOrder []string
	Poses      map[string][]*KeyPose
	Templates  map[string][]*Sequence

	cache  *DistanceCache
	nextID atomic.Int64
}

// NewTrainingMemory creates an empty model for the given classes
func NewTrainingMemory(classes []string) *TrainingMemory {
	m := &TrainingMemory{
		ClassOrder: append([]string(nil), classes...),
		Poses:      make(map[string][]*KeyPose),
		Templates:  make(map[string][]*Sequence),
		cache:      NewDistanceCache(),
	}
	return m
}

// NewKeyPose creates a pose with the next unique identity and registers it in
// the class vocabulary
func (m *TrainingMemory) NewKeyPose(class string, feature []float64) *KeyPose {
	kp := &KeyPose{
		ID:      m.nextID.Add(1),
		Class:   class,
		Feature: feature,
	}
	m.Poses[class] = append(m.Poses[class], kp)
	return kp
}

// AdHocKeyPose creates an unregistered, unlabeled pose wrapping a raw frame.
// One-class recognition fabricates these instead of matching a vocabulary.
func (m *TrainingMemory) AdHocKeyPose(feature []float64) *KeyPose {
	return &KeyPose{
		ID:      m.nextID.Add(1),
		Feature: feature,
	}
}

// AdoptVocabulary copies the vocabulary learned for one class from another
// memory, reusing the pose objects verbatim and keeping identity assignment
// ahead of every adopted ID. Called during model setup, before any concurrent
// pose creation starts.
func (m *TrainingMemory) AdoptVocabulary(from *TrainingMemory, class string) {
	poses := from.Poses[class]
	if len(poses) == 0 {
		return
	}
	m.Poses[class] = append(m.Poses[class], poses...)
	for _, kp := range poses {
		if kp.ID > m.nextID.Load() {
			m.nextID.Store(kp.ID)
		}
	}
}

// AddTemplate stores a template sequence for its class
func (m *TrainingMemory) AddTemplate(seq *Sequence) {
	m.Templates[seq.Class] = append(m.Templates[seq.Class], seq)
}

// HasClass reports whether the class already carries a vocabulary. Training
// skips such classes so previously learned poses are reused verbatim.
func (m *TrainingMemory) HasClass(class string) bool {
	return len(m.Poses[class]) > 0
}

// Cache returns the shared pairwise distance cache
func (m *TrainingMemory) Cache() *DistanceCache {
	return m.cache
}

// PoseCount returns the total vocabulary size across classes
func (m *TrainingMemory) PoseCount() int {
	total := 0
	for _, poses := range m.Poses {
		total += len(poses)
	}
	return total
}

// PoseByID finds a pose by its identity, scanning classes in order
func (m *TrainingMemory) PoseByID(id int64) *KeyPose {
	for _, class := range m.ClassOrder {
		for _, kp := range m.Poses[class] {
			if kp.ID == id {
				return kp
			}
		}
	}
	return nil
}
