package recognition

import "github.com/DAIGroup/BagOfKeyPoses/logging"

// ProgressFunc receives periodic training progress updates. A nil sink is
// always legal and only removes visibility, never behavior.
type ProgressFunc func(percent float64, message string)

// LoggingProgress reports progress through the library logger
func LoggingProgress(percent float64, message string) {
	logging.Info(message, logging.Fields{"percent": percent})
}

func (t *Trainer) report(percent float64, message string) {
	if t.progress != nil {
		t.progress(percent, message)
	}
}
