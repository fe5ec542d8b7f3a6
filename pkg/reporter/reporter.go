// Package reporter renders recommendation and commitment lists for
// the CLI.
package reporter

import (
	"time"

	"github.com/opscart/cloud-cost-advisor/pkg/models"
)

// ReportFormat represents the output format
type ReportFormat string

const (
	FormatText ReportFormat = "text"
	FormatCSV  ReportFormat = "csv"
)

// Report contains all data for generating reports
type Report struct {
	GeneratedAt     time.Time
	Recommendations []*models.Recommendation
	Commitments     []*models.CommitmentRecommendation
	TotalSavings    float64
	ByType          map[models.RecommendationType]*TypeStats
}

// TypeStats holds statistics per recommendation type
type TypeStats struct {
	Type          models.RecommendationType
	Count         int
	TotalSavings  float64
	AvgConfidence float64
}

// Generate builds a report from recommendation and commitment lists.
func Generate(recommendations []*models.Recommendation, commitments []*models.CommitmentRecommendation) *Report {
	report := &Report{
		GeneratedAt:     time.Now(),
		Recommendations: recommendations,
		Commitments:     commitments,
		ByType:          make(map[models.RecommendationType]*TypeStats),
	}

	for _, rec := range recommendations {
		report.TotalSavings += rec.EstimatedSavings

		stat, exists := report.ByType[rec.Type]
		if !exists {
			stat = &TypeStats{Type: rec.Type}
			report.ByType[rec.Type] = stat
		}
		stat.Count++
		stat.TotalSavings += rec.EstimatedSavings
		stat.AvgConfidence += rec.ConfidenceScore
	}
	for _, c := range commitments {
		report.TotalSavings += c.EstimatedSavings
	}

	for _, stat := range report.ByType {
		if stat.Count > 0 {
			stat.AvgConfidence /= float64(stat.Count)
		}
	}

	return report
}
