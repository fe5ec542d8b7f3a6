package reporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/opscart/cloud-cost-advisor/pkg/models"
)

// WriteText renders the report as a colored terminal listing.
func WriteText(report *Report, w io.Writer) error {
	header := color.New(color.Bold, color.FgCyan)
	savings := color.New(color.FgGreen)

	header.Fprintln(w, "COST OPTIMIZATION RECOMMENDATIONS")
	fmt.Fprintf(w, "Generated: %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(w, strings.Repeat("-", 72))

	if len(report.Recommendations) == 0 && len(report.Commitments) == 0 {
		fmt.Fprintln(w, "No recommendations above the confidence threshold.")
		return nil
	}

	for i, rec := range report.Recommendations {
		fmt.Fprintf(w, "%d. [%s] %s/%s %s\n",
			i+1, typeLabel(rec.Type), rec.Provider, rec.Service, strings.Join(rec.ResourceIDs, ", "))
		savings.Fprintf(w, "   Estimated savings: $%.2f", rec.EstimatedSavings)
		fmt.Fprintf(w, "  confidence: %.2f  impact: %s  complexity: %s\n",
			rec.ConfidenceScore, rec.Impact, rec.Complexity)
		if rec.Explanation != "" {
			fmt.Fprintf(w, "   %s\n", rec.Explanation)
		}
		fmt.Fprintf(w, "   id: %s  status: %s\n", rec.ID, statusLabel(rec.Status))
	}

	if len(report.Commitments) > 0 {
		fmt.Fprintln(w)
		header.Fprintln(w, "COMMITMENT PLANS")
		for i, c := range report.Commitments {
			fmt.Fprintf(w, "%d. [%s] %s/%s %dx %d months, %s\n",
				i+1, c.CommitmentType, c.Provider, c.Service, c.Quantity, c.TermMonths, c.PaymentOption)
			savings.Fprintf(w, "   Estimated savings: $%.2f", c.EstimatedSavings)
			fmt.Fprintf(w, "  confidence: %.2f  upfront: $%s  monthly: $%s\n",
				c.ConfidenceScore, c.UpfrontCost, c.MonthlyCost)
			for _, risk := range c.RiskFactors {
				color.New(color.FgYellow).Fprintf(w, "   risk: %s\n", risk)
			}
			fmt.Fprintf(w, "   id: %s  status: %s\n", c.ID, statusLabel(c.Status))
		}
	}

	fmt.Fprintln(w, strings.Repeat("-", 72))
	savings.Fprintf(w, "Total estimated savings: $%.2f\n", report.TotalSavings)

	for _, stat := range report.ByType {
		fmt.Fprintf(w, "  %-22s %2d recommendation(s), $%.2f, avg confidence %.2f\n",
			typeLabel(stat.Type), stat.Count, stat.TotalSavings, stat.AvgConfidence)
	}
	return nil
}

func typeLabel(t models.RecommendationType) string {
	switch t {
	case models.RecommendationRightsizing:
		return "rightsizing"
	case models.RecommendationReservedCapacity:
		return "reserved capacity"
	case models.RecommendationSpot:
		return "spot substitution"
	case models.RecommendationStorage:
		return "storage optimization"
	default:
		return string(t)
	}
}

func statusLabel(s models.Status) string {
	switch s {
	case models.StatusPendingApproval:
		return color.YellowString(string(s))
	case models.StatusApproved, models.StatusApplied:
		return color.GreenString(string(s))
	case models.StatusRejected, models.StatusFailed:
		return color.RedString(string(s))
	default:
		return string(s)
	}
}
