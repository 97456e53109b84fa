package keypose

import (
	"encoding/json"
	"fmt"
	"io"
)

// PoseRecord is the self-describing persisted form of one key pose
type PoseRecord struct {
	ID      int64     `json:"id"`
	Class   string    `json:"class"`
	Feature []float64 `json:"feature"`
	Weight  float64   `json:"weight"`
}

// SequenceRecord persists a template or zone as ordered pose identities
type SequenceRecord struct {
	Class   string  `json:"class"`
	PoseIDs []int64 `json:"pose_ids"`
}

// Snapshot is the full serialized model: enough to reconstruct the vocabulary
// and the template sequences, nothing transient (match counters and the
// distance cache are rebuilt, not persisted).
type Snapshot struct {
	Classes   []string         `json:"classes"`
	Poses     []PoseRecord     `json:"poses"`
	Templates []SequenceRecord `json:"templates"`
}

// Snapshot captures the current model state for persistence or inspection
func (m *TrainingMemory) Snapshot() *Snapshot {
	snap := &Snapshot{Classes: append([]string(nil), m.ClassOrder...)}

	for _, class := range m.ClassOrder {
		for _, kp := range m.Poses[class] {
			snap.Poses = append(snap.Poses, PoseRecord{
				ID:      kp.ID,
				Class:   kp.Class,
				Feature: kp.Feature,
				Weight:  kp.Weight,
			})
		}
		for _, seq := range m.Templates[class] {
			rec := SequenceRecord{Class: seq.Class}
			for _, kp := range seq.Poses {
				rec.PoseIDs = append(rec.PoseIDs, kp.ID)
			}
			snap.Templates = append(snap.Templates, rec)
		}
	}

	return snap
}

// Save writes the model as JSON
func (m *TrainingMemory) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m.Snapshot()); err != nil {
		return fmt.Errorf("saving training memory: %w", err)
	}
	return nil
}

// Load reads a JSON model and reconstructs the full TrainingMemory, resolving
// template entries back to the shared pose objects by identity.
func Load(r io.Reader) (*TrainingMemory, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("loading training memory: %w", err)
	}
	return Restore(&snap)
}

// Restore rebuilds a TrainingMemory from a snapshot
func Restore(snap *Snapshot) (*TrainingMemory, error) {
	m := NewTrainingMemory(snap.Classes)

	byID := make(map[int64]*KeyPose, len(snap.Poses))
	maxID := int64(0)
	for _, rec := range snap.Poses {
		kp := &KeyPose{
			ID:      rec.ID,
			Class:   rec.Class,
			Feature: rec.Feature,
			Weight:  rec.Weight,
		}
		m.Poses[rec.Class] = append(m.Poses[rec.Class], kp)
		byID[rec.ID] = kp
		if rec.ID > maxID {
			maxID = rec.ID
		}
	}

	for _, rec := range snap.Templates {
		seq := NewSequence(rec.Class)
		for _, id := range rec.PoseIDs {
			kp, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("restoring training memory: template references unknown pose %d", id)
			}
			seq.Poses = append(seq.Poses, kp)
		}
		m.AddTemplate(seq)
	}

	m.nextID.Store(maxID)
	return m, nil
}
