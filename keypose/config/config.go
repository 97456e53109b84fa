package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Clustering algorithm names accepted by LearningConfig
const (
	ClusteringKMeans = "kmeans"
	ClusteringRandom = "random"
)

// Source describes one named feature source when multi-source fusion is in
// use: its name and the length of its sub-vector within the full frame.
// Sub-vectors are laid out in declaration order.
type Source struct {
	Name   string `json:"name" yaml:"name"`
	Length int    `json:"length" yaml:"length"`
}

// FusionConfig describes multi-source weighted feature fusion: the named
// sources and a class-by-source weight table applied when comparing frames.
type FusionConfig struct {
	Sources []Source                      `json:"sources" yaml:"sources"`
	Weights map[string]map[string]float64 `json:"weights" yaml:"weights"` // class -> source -> weight
}

// TotalLength returns the full frame length implied by the sources
func (f *FusionConfig) TotalLength() int {
	total := 0
	for _, s := range f.Sources {
		total += s.Length
	}
	return total
}

// Weight returns the fusion weight for a class/source pair, defaulting to 1
func (f *FusionConfig) Weight(class, source string) float64 {
	if perSource, ok := f.Weights[class]; ok {
		if w, ok := perSource[source]; ok {
			return w
		}
	}
	return 1.0
}

// ClusteringConfig carries the knobs of the center-derivation stage
type ClusteringConfig struct {
	Algorithm     string  `json:"algorithm" yaml:"algorithm"`
	Restarts      int     `json:"restarts" yaml:"restarts"`
	MaxIterations int     `json:"max_iterations" yaml:"max_iterations"`
	Epsilon       float64 `json:"epsilon" yaml:"epsilon"`
	SeedRetries   int     `json:"seed_retries" yaml:"seed_retries"`
	RandomSeed    int64   `json:"random_seed" yaml:"random_seed"`
}

// EvidenceConfig carries the smoothing parameters of the per-class evidence
// signal used by zone extraction (see the recognition package).
type EvidenceConfig struct {
	HistorySize  int     `json:"history_size" yaml:"history_size"`   // Ring buffer capacity
	Calibration  float64 `json:"calibration" yaml:"calibration"`     // Maximum plausible raw evidence
	ZeroFallback float64 `json:"zero_fallback" yaml:"zero_fallback"` // Raw evidence when distance is exactly zero and no history exists
	Sharpening   float64 `json:"sharpening" yaml:"sharpening"`       // Exponent multiplier of the final transform
}

// WindowConfig bounds the sliding window of continuous classification
type WindowConfig struct {
	MinFrames     int `json:"min_frames" yaml:"min_frames"`
	MaxFrames     int `json:"max_frames" yaml:"max_frames"`
	StepInterval  int `json:"step_interval" yaml:"step_interval"`
	DiscardFrames int `json:"discard_frames" yaml:"discard_frames"` // Oldest frames dropped when the window overflows
}

// LearningConfig is the full configuration of training and recognition.
// Per-class values are explicit maps keyed by class label; the Classes slice
// remains the authoritative ordering for anything positional.
type LearningConfig struct {
	Classes []string `json:"classes" yaml:"classes"`

	// VocabularySize is the per-class key pose count; PerClassVocabulary
	// overrides it for the classes it names.
	VocabularySize     int            `json:"vocabulary_size" yaml:"vocabulary_size"`
	PerClassVocabulary map[string]int `json:"per_class_vocabulary,omitempty" yaml:"per_class_vocabulary,omitempty"`

	Clustering ClusteringConfig `json:"clustering" yaml:"clustering"`
	Evidence   EvidenceConfig   `json:"evidence" yaml:"evidence"`
	Window     WindowConfig     `json:"window" yaml:"window"`

	Fusion *FusionConfig `json:"fusion,omitempty" yaml:"fusion,omitempty"`

	// Mode flags
	OneClass       bool `json:"one_class" yaml:"one_class"`             // Anomaly mode: raw samples instead of cluster centers
	Summarize      bool `json:"summarize" yaml:"summarize"`             // Collapse consecutive repeated matches
	UseZones       bool `json:"use_zones" yaml:"use_zones"`             // Replace templates with action zones
	ComputeWeights bool `json:"compute_weights" yaml:"compute_weights"` // Weighting pass; skippable when only the vocabulary is needed

	// Zone extraction
	MinZoneFrames int `json:"min_zone_frames" yaml:"min_zone_frames"`
	MaxZoneFrames int `json:"max_zone_frames" yaml:"max_zone_frames"`

	// Per-class decision parameters
	EvidenceMargins    map[string]float64 `json:"evidence_margins,omitempty" yaml:"evidence_margins,omitempty"`
	DistanceThresholds map[string]float64 `json:"distance_thresholds,omitempty" yaml:"distance_thresholds,omitempty"`
}

// Default returns a configuration with the defaults the library has always
// shipped; classes and thresholds still have to be filled in by the caller.
func Default(classes ...string) *LearningConfig {
	return &LearningConfig{
		Classes:        classes,
		VocabularySize: 8,
		Clustering: ClusteringConfig{
			Algorithm:     ClusteringKMeans,
			Restarts:      5,
			MaxIterations: 100,
			Epsilon:       1e-9,
			SeedRetries:   20,
			RandomSeed:    42,
		},
		Evidence: EvidenceConfig{
			HistorySize:  10,
			Calibration:  30.0,
			ZeroFallback: 25.0,
			Sharpening:   10.0,
		},
		Window: WindowConfig{
			MinFrames:     5,
			MaxFrames:     35,
			StepInterval:  5,
			DiscardFrames: 5,
		},
		ComputeWeights: true,
		Summarize:      true,
		MinZoneFrames:  5,
		MaxZoneFrames:  40,
	}
}

// VocabularyFor returns the vocabulary size configured for a class
func (c *LearningConfig) VocabularyFor(class string) int {
	if n, ok := c.PerClassVocabulary[class]; ok {
		return n
	}
	return c.VocabularySize
}

// MarginFor returns the zone-extraction evidence margin for a class
func (c *LearningConfig) MarginFor(class string) float64 {
	return c.EvidenceMargins[class]
}

// ThresholdFor returns the per-frame distance threshold for a class. Zero
// means no threshold was configured and any distance is acceptable.
func (c *LearningConfig) ThresholdFor(class string) float64 {
	return c.DistanceThresholds[class]
}

// Validate checks the configuration for the mistakes that would otherwise
// surface deep inside training
func (c *LearningConfig) Validate() error {
	if len(c.Classes) == 0 {
		return fmt.Errorf("config: no classes defined")
	}
	seen := make(map[string]bool, len(c.Classes))
	for _, class := range c.Classes {
		if class == "" {
			return fmt.Errorf("config: empty class label")
		}
		if seen[class] {
			return fmt.Errorf("config: duplicate class %q", class)
		}
		seen[class] = true
	}
	if !c.OneClass {
		for _, class := range c.Classes {
			if c.VocabularyFor(class) <= 0 {
				return fmt.Errorf("config: class %q has no positive vocabulary size", class)
			}
		}
	}
	switch c.Clustering.Algorithm {
	case ClusteringKMeans, ClusteringRandom, "":
	default:
		return fmt.Errorf("config: unknown clustering algorithm %q", c.Clustering.Algorithm)
	}
	if c.Window.MinFrames > c.Window.MaxFrames && c.Window.MaxFrames > 0 {
		return fmt.Errorf("config: window min frames %d exceeds max frames %d", c.Window.MinFrames, c.Window.MaxFrames)
	}
	if c.Fusion != nil && len(c.Fusion.Sources) == 0 {
		return fmt.Errorf("config: fusion enabled with no sources")
	}
	return nil
}

// LoadFile reads a LearningConfig from a YAML file
func LoadFile(path string) (*LearningConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
