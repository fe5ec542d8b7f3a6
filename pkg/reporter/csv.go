package reporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// WriteCSV creates a CSV report
func WriteCSV(report *Report, writer io.Writer) error {
	w := csv.NewWriter(writer)
	defer w.Flush()

	header := []string{
		"ID",
		"Type",
		"Provider",
		"Service",
		"Resources",
		"Estimated Savings ($)",
		"Confidence",
		"Impact",
		"Complexity",
		"Status",
		"Explanation",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, rec := range report.Recommendations {
		row := []string{
			rec.ID,
			string(rec.Type),
			rec.Provider,
			rec.Service,
			strings.Join(rec.ResourceIDs, ";"),
			fmt.Sprintf("%.2f", rec.EstimatedSavings),
			fmt.Sprintf("%.2f", rec.ConfidenceScore),
			string(rec.Impact),
			string(rec.Complexity),
			string(rec.Status),
			rec.Explanation,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	for _, c := range report.Commitments {
		row := []string{
			c.ID,
			fmt.Sprintf("commitment/%s", c.CommitmentType),
			c.Provider,
			c.Service,
			fmt.Sprintf("%dx %dmo %s", c.Quantity, c.TermMonths, c.PaymentOption),
			fmt.Sprintf("%.2f", c.EstimatedSavings),
			fmt.Sprintf("%.2f", c.ConfidenceScore),
			string(c.Impact),
			string(c.Complexity),
			string(c.Status),
			strings.Join(c.RiskFactors, "; "),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	// Summary rows
	w.Write([]string{})
	w.Write([]string{"SUMMARY"})
	w.Write([]string{"Total Recommendations", fmt.Sprintf("%d", len(report.Recommendations))})
	w.Write([]string{"Total Commitments", fmt.Sprintf("%d", len(report.Commitments))})
	w.Write([]string{"Total Estimated Savings", fmt.Sprintf("$%.2f", report.TotalSavings)})

	return nil
}
