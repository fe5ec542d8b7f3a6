package planner

import (
	"testing"

	"github.com/opscart/cloud-cost-advisor/pkg/analyzer"
	"github.com/opscart/cloud-cost-advisor/pkg/models"
	"github.com/opscart/cloud-cost-advisor/pkg/pricing"
)

func newPlanner() *Planner {
	return New(analyzer.NewScorer(), pricing.NewStaticProvider(pricing.DefaultAssumptions()))
}

func steadySamples(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func confidentPattern(avg, peak float64) models.UsagePattern {
	p := models.UsagePattern{
		Provider:           "aws",
		Service:            "ec2",
		AverageUtilization: avg,
		PeakUtilization:    peak,
		CostPerUnit:        100,
		SampleCount:        60,
	}
	p.Seasonal.Daily[9] = avg
	return p
}

func TestPlanHighVolumeLongTerm(t *testing.T) {
	p := newPlanner()

	commitments := p.Plan([]Input{{
		Pattern:    confidentPattern(0.85, 0.95),
		Samples:    steadySamples(60, 0.85),
		UsageHours: 2200,
	}})
	if len(commitments) != 1 {
		t.Fatalf("Expected one commitment, got %d", len(commitments))
	}

	c := commitments[0]
	if c.CommitmentType != models.CommitmentReserved {
		t.Errorf("Expected reserved for peak > 0.8, got %s", c.CommitmentType)
	}
	if c.TermMonths != 36 {
		t.Errorf("Expected 36-month term, got %d", c.TermMonths)
	}
	if c.PaymentOption != models.PaymentAllUpfront {
		t.Errorf("Expected all_upfront, got %s", c.PaymentOption)
	}

	// ceil(0.85 * 2200 / 730) = ceil(2.56) = 3
	if c.Quantity != 3 {
		t.Errorf("Expected quantity 3, got %d", c.Quantity)
	}
}

func TestPlanLowVolumeShortTerm(t *testing.T) {
	p := newPlanner()

	commitments := p.Plan([]Input{{
		Pattern:    confidentPattern(0.5, 0.7),
		Samples:    steadySamples(60, 0.5),
		UsageHours: 800,
	}})
	if len(commitments) != 1 {
		t.Fatalf("Expected one commitment, got %d", len(commitments))
	}

	c := commitments[0]
	if c.CommitmentType != models.CommitmentSavingsPlan {
		t.Errorf("Expected savings_plan for peak <= 0.8, got %s", c.CommitmentType)
	}
	if c.TermMonths != 12 {
		t.Errorf("Expected 12-month term, got %d", c.TermMonths)
	}
	if c.PaymentOption != models.PaymentPartialUpfront {
		t.Errorf("Expected partial_upfront, got %s", c.PaymentOption)
	}
}

func TestRiskFactorsAccumulate(t *testing.T) {
	pattern := models.UsagePattern{
		Provider:           "aws",
		Service:            "ec2",
		AverageUtilization: 0.3,  // over-provisioned
		PeakUtilization:    0.95, // burst risk
		// no seasonal data: low forecast confidence
	}

	risks := riskFactors(pattern)
	if len(risks) != 3 {
		t.Fatalf("Expected all three risk factors, got %v", risks)
	}
}

func TestNoRiskFactorsForHealthyPattern(t *testing.T) {
	if risks := riskFactors(confidentPattern(0.6, 0.75)); len(risks) != 0 {
		t.Errorf("Expected no risk factors, got %v", risks)
	}
}

func TestLowConfidenceCommitmentNeverCreated(t *testing.T) {
	p := newPlanner()

	// Erratic, sparse samples with no seasonal shape.
	commitments := p.Plan([]Input{{
		Pattern:    models.UsagePattern{Provider: "aws", Service: "ec2", AverageUtilization: 0.5, PeakUtilization: 1},
		Samples:    []float64{0, 1, 0, 1, 0, 1},
		UsageHours: 3000,
	}})
	if len(commitments) != 0 {
		t.Fatalf("Sub-threshold commitment must not be created, got %d", len(commitments))
	}
}

func TestPaymentScheduleAllUpfront(t *testing.T) {
	upfront, monthly := paymentSchedule(100, 0.4, 36, models.PaymentAllUpfront)

	// 100 * 0.6 * 36 = 2160, all paid up front.
	if upfront != "2160.00" {
		t.Errorf("Expected upfront 2160.00, got %s", upfront)
	}
	if monthly != "0.00" {
		t.Errorf("Expected monthly 0.00, got %s", monthly)
	}
}

func TestPaymentSchedulePartialUpfront(t *testing.T) {
	upfront, monthly := paymentSchedule(100, 0.4, 12, models.PaymentPartialUpfront)

	// Total 720, half up front, the rest spread over 12 months.
	if upfront != "360.00" {
		t.Errorf("Expected upfront 360.00, got %s", upfront)
	}
	if monthly != "30.00" {
		t.Errorf("Expected monthly 30.00, got %s", monthly)
	}
}
