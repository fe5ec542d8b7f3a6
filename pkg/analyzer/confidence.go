package analyzer

import (
	"math"

	"github.com/opscart/cloud-cost-advisor/pkg/models"
	"github.com/opscart/cloud-cost-advisor/pkg/stats"
)

const (
	// DefaultMinSamples is the observation count at which the data-volume
	// sub-score saturates.
	DefaultMinSamples = 30

	// DefaultThreshold is the confidence below which recommendations are
	// discarded before they reach the approval queue.
	DefaultThreshold = 0.7

	seasonalQualityWithData    = 0.9
	seasonalQualityWithoutData = 0.5
)

// Scorer computes a bounded confidence score for a usage pattern.
// The score is the mean of three sub-scores, each clamped to [0,1]:
// consistency (low variance), data volume (enough samples), and
// seasonal quality (any seasonal shape at all).
type Scorer struct {
	minSamples int
	threshold  float64
}

// NewScorer creates a Scorer with the default sample floor and threshold.
func NewScorer() *Scorer {
	return &Scorer{
		minSamples: DefaultMinSamples,
		threshold:  DefaultThreshold,
	}
}

// NewScorerWith creates a Scorer with explicit tuning. Non-positive
// arguments fall back to the defaults.
func NewScorerWith(minSamples int, threshold float64) *Scorer {
	s := NewScorer()
	if minSamples > 0 {
		s.minSamples = minSamples
	}
	if threshold > 0 {
		s.threshold = threshold
	}
	return s
}

// Threshold returns the configured minimum acceptable confidence.
func (s *Scorer) Threshold() float64 {
	return s.threshold
}

// Score returns the confidence for a pattern given its utilization
// samples. The result is always in [0,1] and never NaN, including for
// patterns with zero samples.
func (s *Scorer) Score(pattern models.UsagePattern, samples []float64) float64 {
	consistency := clamp01(1 - stats.Variance(samples))
	dataVolume := clamp01(float64(len(samples)) / float64(s.minSamples))

	seasonalQuality := seasonalQualityWithoutData
	if pattern.Seasonal.HasData() {
		seasonalQuality = seasonalQualityWithData
	}

	score := (consistency + dataVolume + seasonalQuality) / 3
	if math.IsNaN(score) {
		return 0
	}
	return clamp01(score)
}

// Acceptable reports whether a score clears the configured threshold.
// This is a hard filter, not a ranking penalty.
func (s *Scorer) Acceptable(score float64) bool {
	return score >= s.threshold
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
