package recognition

import (
	"math"

	"github.com/mjibson/go-dsp/window"

	"github.com/DAIGroup/BagOfKeyPoses/keypose"
	"github.com/DAIGroup/BagOfKeyPoses/keypose/config"
)

// EvidenceSmoother turns a stream of per-frame nearest-pose matches for one
// class into a smoothed, sharpened evidence score. It keeps a bounded history
// of normalized evidence samples (a ring buffer, oldest evicted first) and
// applies a weighted moving average under a fixed decreasing recency kernel,
// then an exponential transform that accentuates separations near the peak.
type EvidenceSmoother struct {
	cfg     config.EvidenceConfig
	kernel  []float64
	history []float64
	head    int
	count   int
}

// NewEvidenceSmoother creates a smoother with an empty history
func NewEvidenceSmoother(cfg config.EvidenceConfig) *EvidenceSmoother {
	if cfg.HistorySize < 1 {
		cfg.HistorySize = 1
	}
	return &EvidenceSmoother{
		cfg:     cfg,
		kernel:  recencyKernel(cfg.HistorySize),
		history: make([]float64, cfg.HistorySize),
	}
}

// recencyKernel builds the monotonically decreasing weight kernel, largest at
// index 0 (the current frame): the descending half of a Hamming window.
func recencyKernel(size int) []float64 {
	if size == 1 {
		return []float64{1}
	}
	w := window.Hamming(2*size - 1)
	kernel := make([]float64, size)
	copy(kernel, w[size-1:])
	return kernel
}

// Update pushes one frame's match and returns the new evidence value. The raw
// sample is matched weight over matched distance, calibrated by the maximum
// plausible evidence; a distance of exactly zero reuses the previous history
// value when there is one, else the configured fallback for "very good match".
func (e *EvidenceSmoother) Update(match keypose.Match) float64 {
	var raw float64
	switch {
	case match.Pose == nil:
		raw = 0
	case match.Distance == 0:
		if e.count > 0 {
			raw = e.history[e.head]
		} else {
			raw = e.cfg.ZeroFallback / e.cfg.Calibration
		}
	default:
		raw = match.Pose.Weight / match.Distance / e.cfg.Calibration
	}

	e.push(raw)
	return math.Exp(e.cfg.Sharpening * e.smoothed())
}

func (e *EvidenceSmoother) push(v float64) {
	if e.count < len(e.history) {
		e.head = e.count
		e.count++
	} else {
		e.head = (e.head + 1) % len(e.history)
	}
	e.history[e.head] = v
}

// smoothed computes the weighted moving average over the samples actually
// present, normalized by the sum of the kernel weights used. Index 0 of the
// kernel maps to the newest sample.
func (e *EvidenceSmoother) smoothed() float64 {
	sum := 0.0
	weightSum := 0.0
	for i := 0; i < e.count; i++ {
		idx := (e.head - i + len(e.history)) % len(e.history)
		sum += e.kernel[i] * e.history[idx]
		weightSum += e.kernel[i]
	}
	if weightSum == 0 {
		return 0
	}
	return sum / weightSum
}

// Reset drops the accumulated history
func (e *EvidenceSmoother) Reset() {
	e.head = 0
	e.count = 0
}
