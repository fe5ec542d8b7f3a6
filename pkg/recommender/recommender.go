// Package recommender applies classification rules to usage patterns
// and emits ranked, confidence-scored optimization recommendations.
package recommender

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/opscart/cloud-cost-advisor/pkg/analyzer"
	"github.com/opscart/cloud-cost-advisor/pkg/models"
	"github.com/opscart/cloud-cost-advisor/pkg/pricing"
	"github.com/opscart/cloud-cost-advisor/pkg/stats"
)

const (
	// Rightsizing triggers below this average utilization.
	underutilizedThreshold = 0.4

	// Reserved capacity triggers when every weekly bucket exceeds this.
	sustainedUseThreshold = 0.8

	// Spot substitution triggers when any daily bucket falls below this.
	idleWindowThreshold = 0.3
)

// Input pairs a usage pattern with the raw utilization samples behind
// it, so confidence can be scored alongside classification.
type Input struct {
	Pattern models.UsagePattern
	Samples []float64
}

// Generator evaluates the rule branches against usage patterns.
// Construct one per pipeline run and inject its collaborators; it holds
// no global state.
type Generator struct {
	scorer      *analyzer.Scorer
	assumptions pricing.Provider
	now         func() time.Time
}

// New creates a Generator with the given scorer and pricing assumptions.
func New(scorer *analyzer.Scorer, assumptions pricing.Provider) *Generator {
	return &Generator{
		scorer:      scorer,
		assumptions: assumptions,
		now:         time.Now,
	}
}

// Generate evaluates every input independently against the three rule
// branches. A pattern can yield zero, one, or several recommendations.
// Results below the confidence threshold are discarded here, before
// anything reaches the approval queue, and the survivors are sorted by
// estimated savings descending with confidence as the tiebreak.
func (g *Generator) Generate(inputs []Input) []models.Recommendation {
	var recommendations []models.Recommendation

	for _, in := range inputs {
		score := g.scorer.Score(in.Pattern, in.Samples)
		if !g.scorer.Acceptable(score) {
			continue
		}

		for _, rec := range g.evaluate(in.Pattern, in.Samples) {
			rec.ConfidenceScore = score
			recommendations = append(recommendations, rec)
		}
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		if recommendations[i].EstimatedSavings != recommendations[j].EstimatedSavings {
			return recommendations[i].EstimatedSavings > recommendations[j].EstimatedSavings
		}
		return recommendations[i].ConfidenceScore > recommendations[j].ConfidenceScore
	})

	return recommendations
}

// evaluate runs the rule branches for one pattern. Confidence is filled
// in by the caller.
func (g *Generator) evaluate(pattern models.UsagePattern, samples []float64) []models.Recommendation {
	var out []models.Recommendation
	a := g.assumptions.Assumptions(pattern.Provider)

	if pattern.AverageUtilization < underutilizedThreshold {
		out = append(out, g.rightsizing(pattern, samples, a))
	}
	if sustainedAllWeek(pattern.Seasonal) {
		out = append(out, g.reserved(pattern, samples, a))
	}
	if hasIdleWindow(pattern.Seasonal) {
		out = append(out, g.spot(pattern, samples, a))
	}

	return out
}

// rightsizing prices the smallest size that still keeps peak
// utilization at or below the headroom target, against current cost.
func (g *Generator) rightsizing(pattern models.UsagePattern, samples []float64, a pricing.Assumptions) models.Recommendation {
	resizedCost := pattern.CostPerUnit * math.Ceil(pattern.PeakUtilization/a.HeadroomTarget) / 100
	savings := pattern.CostPerUnit - resizedCost

	return g.newRecommendation(pattern, models.RecommendationRightsizing, savings, models.ComplexityMedium,
		fmt.Sprintf("Average utilization %.1f%% across %d samples (stddev %.3f); peak %.1f%% fits a smaller size with %.0f%% headroom",
			pattern.AverageUtilization*100, len(samples), stats.StdDev(samples),
			pattern.PeakUtilization*100, a.HeadroomTarget*100))
}

// reserved assumes a flat commitment discount on sustained usage.
func (g *Generator) reserved(pattern models.UsagePattern, samples []float64, a pricing.Assumptions) models.Recommendation {
	savings := pattern.CostPerUnit * a.ReservedDiscount

	return g.newRecommendation(pattern, models.RecommendationReservedCapacity, savings, models.ComplexityEasy,
		fmt.Sprintf("Sustained usage above %.0f%% every day of the week over %d samples; commitment discount %.0f%% applies",
			sustainedUseThreshold*100, len(samples), a.ReservedDiscount*100))
}

// spot scales the spot discount by how much of the resource is used.
func (g *Generator) spot(pattern models.UsagePattern, samples []float64, a pricing.Assumptions) models.Recommendation {
	savings := pattern.CostPerUnit * a.SpotDiscount * pattern.AverageUtilization

	return g.newRecommendation(pattern, models.RecommendationSpot, savings, models.ComplexityHard,
		fmt.Sprintf("Daily low-usage window below %.0f%% detected over %d samples; interruptible capacity discount %.0f%% scaled by %.1f%% utilization",
			idleWindowThreshold*100, len(samples), a.SpotDiscount*100, pattern.AverageUtilization*100))
}

func (g *Generator) newRecommendation(pattern models.UsagePattern, recType models.RecommendationType, savings float64, complexity models.Complexity, explanation string) models.Recommendation {
	return models.Recommendation{
		ID:               uuid.New().String(),
		Type:             recType,
		Provider:         pattern.Provider,
		Service:          pattern.Service,
		ResourceIDs:      resourceIDs(pattern),
		EstimatedSavings: savings,
		Impact:           impactFor(savings),
		Complexity:       complexity,
		Explanation:      explanation,
		Status:           models.StatusPendingApproval,
		CreatedAt:        g.now(),
	}
}

func resourceIDs(pattern models.UsagePattern) []string {
	if pattern.ResourceID == "" {
		return nil
	}
	return []string{pattern.ResourceID}
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

func sustainedAllWeek(s models.SeasonalPattern) bool {
	for _, v := range s.Weekly {
		if v <= sustainedUseThreshold {
			return false
		}
	}
	return true
}

func hasIdleWindow(s models.SeasonalPattern) bool {
	for _, v := range s.Daily {
		if v < idleWindowThreshold {
			return true
		}
	}
	return false
}
