// Package planner specializes the analysis pipeline for multi-month
// reserved-capacity purchases. It operates on per-service aggregated
// patterns rather than per-resource ones.
package planner

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opscart/cloud-cost-advisor/pkg/analyzer"
	"github.com/opscart/cloud-cost-advisor/pkg/models"
	"github.com/opscart/cloud-cost-advisor/pkg/pricing"
)

const (
	// Usage-hour volume above which long terms and upfront payment pay off.
	longTermUsageHours = 2000

	// Risk thresholds.
	burstRiskPeak        = 0.9
	overProvisionAverage = 0.4
)

// Risk factor wording is stable because it is persisted and surfaced.
const (
	riskBurstCapacity   = "may need on-demand burst capacity"
	riskOverProvisioned = "possible over-provisioning"
	riskNoForecast      = "low forecast confidence"
)

// Input is one aggregated service pattern with its backing samples and
// the usage hours observed across the analysis window.
type Input struct {
	Pattern    models.UsagePattern
	Samples    []float64
	UsageHours float64
}

// Planner builds commitment recommendations from aggregated usage.
type Planner struct {
	scorer      *analyzer.Scorer
	assumptions pricing.Provider
	now         func() time.Time
}

// New creates a Planner with the given scorer and pricing assumptions.
func New(scorer *analyzer.Scorer, assumptions pricing.Provider) *Planner {
	return &Planner{
		scorer:      scorer,
		assumptions: assumptions,
		now:         time.Now,
	}
}

// Plan evaluates each aggregated service pattern and returns commitment
// recommendations. A commitment below the confidence threshold is never
// created.
func (p *Planner) Plan(inputs []Input) []models.CommitmentRecommendation {
	var commitments []models.CommitmentRecommendation

	for _, in := range inputs {
		score := p.scorer.Score(in.Pattern, in.Samples)
		if !p.scorer.Acceptable(score) {
			continue
		}

		c := p.plan(in)
		c.ConfidenceScore = score
		commitments = append(commitments, c)
	}

	return commitments
}

func (p *Planner) plan(in Input) models.CommitmentRecommendation {
	pattern := in.Pattern
	a := p.assumptions.Assumptions(pattern.Provider)

	commitmentType := models.CommitmentSavingsPlan
	if pattern.PeakUtilization > a.HeadroomTarget {
		commitmentType = models.CommitmentReserved
	}

	termMonths := 12
	paymentOption := models.PaymentPartialUpfront
	if in.UsageHours > longTermUsageHours {
		termMonths = 36
		paymentOption = models.PaymentAllUpfront
	}

	quantity := int(math.Ceil(pattern.AverageUtilization * in.UsageHours / a.HoursPerMonth))
	savings := pattern.CostPerUnit * a.ReservedDiscount

	upfront, monthly := paymentSchedule(pattern.CostPerUnit, a.ReservedDiscount, termMonths, paymentOption)

	return models.CommitmentRecommendation{
		Recommendation: models.Recommendation{
			ID:               uuid.New().String(),
			Type:             models.RecommendationReservedCapacity,
			Provider:         pattern.Provider,
			Service:          pattern.Service,
			EstimatedSavings: savings,
			Impact:           impactFor(savings),
			Complexity:       models.ComplexityMedium,
			Explanation: fmt.Sprintf("%s commitment for %s: %.1f%% average utilization over %.0f usage hours (%d samples)",
				commitmentType, pattern.Service, pattern.AverageUtilization*100, in.UsageHours, pattern.SampleCount),
			Status:    models.StatusPendingApproval,
			CreatedAt: p.now(),
		},
		CommitmentType: commitmentType,
		TermMonths:     termMonths,
		PaymentOption:  paymentOption,
		Quantity:       quantity,
		RiskFactors:    riskFactors(pattern),
		UpfrontCost:    upfront,
		MonthlyCost:    monthly,
	}
}

// riskFactors appends every applicable risk; they are not mutually
// exclusive.
func riskFactors(pattern models.UsagePattern) []string {
	var risks []string
	if pattern.PeakUtilization > burstRiskPeak {
		risks = append(risks, riskBurstCapacity)
	}
	if pattern.AverageUtilization < overProvisionAverage {
		risks = append(risks, riskOverProvisioned)
	}
	if !pattern.Seasonal.HasData() {
		risks = append(risks, riskNoForecast)
	}
	return risks
}

// paymentSchedule splits the discounted committed spend across the
// term according to the payment option. Currency amounts use decimal
// math and round to cents.
func paymentSchedule(costPerUnit, discount float64, termMonths int, option models.PaymentOption) (upfront, monthly string) {
	monthlySpend := decimal.NewFromFloat(costPerUnit).
		Mul(decimal.NewFromFloat(1 - discount))
	total := monthlySpend.Mul(decimal.NewFromInt(int64(termMonths)))
	term := decimal.NewFromInt(int64(termMonths))

	var up, per decimal.Decimal
	switch option {
	case models.PaymentAllUpfront:
		up = total
	case models.PaymentPartialUpfront:
		up = total.Div(decimal.NewFromInt(2))
		per = total.Sub(up).Div(term)
	default: // no_upfront
		per = total.Div(term)
	}

	return up.Round(2).StringFixed(2), per.Round(2).StringFixed(2)
}

func impactFor(savings float64) models.Impact {
	switch {
	case savings > 50:
		return models.ImpactHigh
	case savings > 20:
		return models.ImpactMedium
	default:
		return models.ImpactLow
	}
}
