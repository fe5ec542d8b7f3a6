package analyzer

import (
	"math"
	"testing"

	"github.com/opscart/cloud-cost-advisor/pkg/models"
)

func TestScoreAlwaysInRange(t *testing.T) {
	s := NewScorer()

	cases := []struct {
		name    string
		pattern models.UsagePattern
		samples []float64
	}{
		{"empty", models.UsagePattern{}, nil},
		{"single sample", models.UsagePattern{}, []float64{0.5}},
		{"erratic", models.UsagePattern{}, []float64{0, 100, 0, 100, 0}},
		{"steady with seasonal", patternWithSeasonal(), steady(100, 0.5)},
		{"huge volume", models.UsagePattern{}, steady(10000, 0.3)},
	}

	for _, tc := range cases {
		score := s.Score(tc.pattern, tc.samples)
		if math.IsNaN(score) {
			t.Errorf("%s: score is NaN", tc.name)
		}
		if score < 0 || score > 1 {
			t.Errorf("%s: score %f out of [0,1]", tc.name, score)
		}
	}
}

func TestScoreZeroSeasonalNotNaN(t *testing.T) {
	s := NewScorer()

	score := s.Score(models.UsagePattern{}, nil)
	if math.IsNaN(score) {
		t.Fatal("Score for zero-sample pattern is NaN")
	}

	// consistency=1 (zero variance), volume=0, seasonal=0.5
	want := (1.0 + 0 + 0.5) / 3
	if math.Abs(score-want) > 1e-9 {
		t.Errorf("Expected %f, got %f", want, score)
	}
}

func TestScoreDataVolumeSaturates(t *testing.T) {
	s := NewScorer()

	small := s.Score(models.UsagePattern{}, steady(15, 0.5))
	full := s.Score(models.UsagePattern{}, steady(30, 0.5))
	excess := s.Score(models.UsagePattern{}, steady(300, 0.5))

	if small >= full {
		t.Errorf("Expected fewer samples to score lower: %f >= %f", small, full)
	}
	if full != excess {
		t.Errorf("Expected volume sub-score to saturate at minSamples: %f != %f", full, excess)
	}
}

func TestScoreSeasonalQuality(t *testing.T) {
	s := NewScorer()
	samples := steady(30, 0.5)

	without := s.Score(models.UsagePattern{}, samples)
	with := s.Score(patternWithSeasonal(), samples)

	// Sub-score difference 0.9-0.5 spread over the /3 mean.
	want := (0.9 - 0.5) / 3
	if math.Abs((with-without)-want) > 1e-9 {
		t.Errorf("Expected seasonal bump %f, got %f", want, with-without)
	}
}

func TestAcceptableThreshold(t *testing.T) {
	s := NewScorer()

	if s.Acceptable(0.65) {
		t.Error("0.65 must not clear the default 0.7 threshold")
	}
	if !s.Acceptable(0.7) {
		t.Error("0.7 must clear the default threshold")
	}

	strict := NewScorerWith(0, 0.9)
	if strict.Acceptable(0.85) {
		t.Error("0.85 must not clear a 0.9 threshold")
	}
}

func patternWithSeasonal() models.UsagePattern {
	p := models.UsagePattern{}
	p.Seasonal.Daily[9] = 0.8
	return p
}

func steady(n int, v float64) []float64 {
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = v
	}
	return samples
}
