package recommender

import (
	"math"
	"testing"

	"github.com/opscart/cloud-cost-advisor/pkg/analyzer"
	"github.com/opscart/cloud-cost-advisor/pkg/models"
	"github.com/opscart/cloud-cost-advisor/pkg/pricing"
)

func newGenerator() *Generator {
	return New(analyzer.NewScorer(), pricing.NewStaticProvider(pricing.DefaultAssumptions()))
}

// repeat tiles the quad of values until n samples exist.
func repeat(n int, values ...float64) []float64 {
	out := make([]float64, 0, n)
	for len(out) < n {
		out = append(out, values...)
	}
	return out[:n]
}

func flatSeasonal(v float64) models.SeasonalPattern {
	var s models.SeasonalPattern
	for i := range s.Daily {
		s.Daily[i] = v
	}
	for i := range s.Weekly {
		s.Weekly[i] = v
	}
	return s
}

func TestRightsizingSavingsFormula(t *testing.T) {
	g := newGenerator()

	// Enough repetitions of the sample quad to clear the volume sub-score.
	samples := repeat(32, 0.1, 0.15, 0.2, 0.1)
	pattern := models.UsagePattern{
		ResourceID:         "i-under",
		Provider:           "aws",
		Service:            "ec2",
		AverageUtilization: 0.1375,
		PeakUtilization:    0.2,
		CostPerUnit:        100,
		SampleCount:        len(samples),
		Seasonal:           flatSeasonal(0.14),
	}

	recs := g.Generate([]Input{{Pattern: pattern, Samples: samples}})
	if len(recs) == 0 {
		t.Fatal("Expected at least one recommendation")
	}

	var rightsizing *models.Recommendation
	for i := range recs {
		if recs[i].Type == models.RecommendationRightsizing {
			rightsizing = &recs[i]
			break
		}
	}
	if rightsizing == nil {
		t.Fatal("Expected a rightsizing recommendation for 13.75% average utilization")
	}

	// 100 - (100 * ceil(0.2/0.8))/100 = 99
	if math.Abs(rightsizing.EstimatedSavings-99) > 1e-9 {
		t.Errorf("Expected savings 99, got %f", rightsizing.EstimatedSavings)
	}
	if rightsizing.Status != models.StatusPendingApproval {
		t.Errorf("Expected pending_approval, got %s", rightsizing.Status)
	}
	if rightsizing.Explanation == "" {
		t.Error("Expected a non-empty explanation")
	}
}

func TestReservedCapacityTriggersOnSustainedWeek(t *testing.T) {
	g := newGenerator()

	pattern := models.UsagePattern{
		ResourceID:         "i-steady",
		Provider:           "aws",
		Service:            "ec2",
		AverageUtilization: 0.88,
		PeakUtilization:    0.95,
		CostPerUnit:        200,
		Seasonal:           flatSeasonal(0.85),
	}
	pattern.Seasonal.Weekly = [7]float64{0.85, 0.9, 0.82, 0.95, 0.88, 0.91, 0.84}

	recs := g.Generate([]Input{{Pattern: pattern, Samples: repeat(30, 0.88)}})
	if len(recs) != 1 {
		t.Fatalf("Expected exactly one recommendation, got %d", len(recs))
	}
	if recs[0].Type != models.RecommendationReservedCapacity {
		t.Fatalf("Expected reserved_instances, got %s", recs[0].Type)
	}

	// costPerUnit * 0.4
	if math.Abs(recs[0].EstimatedSavings-80) > 1e-9 {
		t.Errorf("Expected savings 80, got %f", recs[0].EstimatedSavings)
	}
}

func TestReservedNotTriggeredByOneSlowDay(t *testing.T) {
	g := newGenerator()

	pattern := models.UsagePattern{
		Provider:           "aws",
		AverageUtilization: 0.85,
		CostPerUnit:        100,
		Seasonal:           flatSeasonal(0.85),
	}
	pattern.Seasonal.Weekly[6] = 0.5 // quiet Saturdays

	for _, rec := range g.Generate([]Input{{Pattern: pattern, Samples: repeat(30, 0.85)}}) {
		if rec.Type == models.RecommendationReservedCapacity {
			t.Fatal("Reserved capacity must require every weekly bucket above the threshold")
		}
	}
}

func TestSpotSavingsScaledByUtilization(t *testing.T) {
	g := newGenerator()

	pattern := models.UsagePattern{
		Provider:           "aws",
		AverageUtilization: 0.5,
		PeakUtilization:    0.9,
		CostPerUnit:        100,
		Seasonal:           flatSeasonal(0.5),
	}
	pattern.Seasonal.Daily[3] = 0.1 // overnight idle window

	recs := g.Generate([]Input{{Pattern: pattern, Samples: repeat(30, 0.5)}})

	var spot *models.Recommendation
	for i := range recs {
		if recs[i].Type == models.RecommendationSpot {
			spot = &recs[i]
		}
	}
	if spot == nil {
		t.Fatal("Expected a spot recommendation for a daily idle window")
	}

	// 100 * 0.7 * 0.5
	if math.Abs(spot.EstimatedSavings-35) > 1e-9 {
		t.Errorf("Expected savings 35, got %f", spot.EstimatedSavings)
	}
}

func TestLowConfidenceNeverListed(t *testing.T) {
	g := newGenerator()

	// Few erratic samples: high variance, low volume, no seasonal shape.
	samples := repeat(6, 0, 1, 0, 1)
	pattern := models.UsagePattern{
		Provider:           "aws",
		AverageUtilization: 0.5,
		PeakUtilization:    1,
		CostPerUnit:        500,
	}

	recs := g.Generate([]Input{{Pattern: pattern, Samples: samples}})
	if len(recs) != 0 {
		t.Fatalf("Sub-threshold confidence must be filtered, got %d recommendations", len(recs))
	}
}

func TestGenerateSortedBySavings(t *testing.T) {
	g := newGenerator()

	inputs := []Input{
		{
			Pattern: models.UsagePattern{
				Provider: "aws", ResourceID: "a",
				AverageUtilization: 0.2, PeakUtilization: 0.3, CostPerUnit: 50,
				Seasonal: flatSeasonal(0.35),
			},
			Samples: repeat(40, 0.2),
		},
		{
			Pattern: models.UsagePattern{
				Provider: "aws", ResourceID: "b",
				AverageUtilization: 0.1, PeakUtilization: 0.15, CostPerUnit: 400,
				Seasonal: flatSeasonal(0.35),
			},
			Samples: repeat(40, 0.1),
		},
		{
			Pattern: models.UsagePattern{
				Provider: "aws", ResourceID: "c",
				AverageUtilization: 0.9, PeakUtilization: 0.95, CostPerUnit: 120,
				Seasonal: flatSeasonal(0.85),
			},
			Samples: repeat(40, 0.9),
		},
	}

	recs := g.Generate(inputs)
	if len(recs) < 3 {
		t.Fatalf("Expected at least 3 recommendations, got %d", len(recs))
	}

	for i := 1; i < len(recs); i++ {
		if recs[i-1].EstimatedSavings < recs[i].EstimatedSavings {
			t.Fatalf("Not sorted at %d: %f < %f", i,
				recs[i-1].EstimatedSavings, recs[i].EstimatedSavings)
		}
	}
}

func TestZeroPatternDoesNotPanic(t *testing.T) {
	g := newGenerator()

	// All-zero pattern from a resource with no utilization samples.
	recs := g.Generate([]Input{{Pattern: models.UsagePattern{Provider: "aws"}}})

	for _, rec := range recs {
		if rec.EstimatedSavings < 0 {
			t.Errorf("Negative savings from zero pattern: %f", rec.EstimatedSavings)
		}
	}
}
