package analyzer

import (
	"reflect"
	"testing"
	"time"

	"github.com/opscart/cloud-cost-advisor/pkg/models"
)

// recordsAt builds one record per utilization value, spaced hourly from base.
func recordsAt(base time.Time, cost float64, utils ...float64) []models.UsageRecord {
	records := make([]models.UsageRecord, len(utils))
	for i, u := range utils {
		records[i] = models.UsageRecord{
			ResourceID:     "i-0abc123",
			Provider:       "aws",
			Service:        "ec2",
			Timestamp:      base.Add(time.Duration(i) * time.Hour),
			Cost:           cost,
			Utilization:    u,
			HasUtilization: true,
		}
	}
	return records
}

func TestBuildPatternEmpty(t *testing.T) {
	a := New()

	pattern := a.BuildPattern(nil)
	if pattern.AverageUtilization != 0 || pattern.PeakUtilization != 0 {
		t.Errorf("Expected zero pattern for no records, got %+v", pattern)
	}
	if pattern.Seasonal.HasData() {
		t.Error("Expected all-zero seasonal arrays for no records")
	}
}

func TestBuildPatternNoUtilizationSamples(t *testing.T) {
	a := New()

	records := []models.UsageRecord{
		{ResourceID: "vol-1", Provider: "aws", Service: "ebs", Timestamp: time.Now(), Cost: 10},
		{ResourceID: "vol-1", Provider: "aws", Service: "ebs", Timestamp: time.Now(), Cost: 14},
	}

	pattern := a.BuildPattern(records)
	if pattern.AverageUtilization != 0 || pattern.PeakUtilization != 0 {
		t.Errorf("Expected zero utilization, got avg=%f peak=%f",
			pattern.AverageUtilization, pattern.PeakUtilization)
	}
	if pattern.Seasonal.HasData() {
		t.Error("Expected all-zero seasonal arrays")
	}
	if pattern.CostPerUnit != 12 {
		t.Errorf("Expected costPerUnit 12, got %f", pattern.CostPerUnit)
	}
}

func TestBuildPatternAverageAndPeak(t *testing.T) {
	a := New()
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	pattern := a.BuildPattern(recordsAt(base, 100, 0.1, 0.15, 0.2, 0.1))

	if got := pattern.AverageUtilization; got != 0.1375 {
		t.Errorf("Expected average 0.1375, got %f", got)
	}
	if pattern.PeakUtilization != 0.2 {
		t.Errorf("Expected peak 0.2, got %f", pattern.PeakUtilization)
	}
	if pattern.CostPerUnit != 100 {
		t.Errorf("Expected costPerUnit 100, got %f", pattern.CostPerUnit)
	}
	if pattern.SampleCount != 4 {
		t.Errorf("Expected 4 samples, got %d", pattern.SampleCount)
	}
}

func TestBuildPatternSparseBucketsNotDiluted(t *testing.T) {
	a := New()

	// Two samples in hour 3, nothing anywhere else. The bucket average
	// must divide by the bucket's own sample count, not the window size.
	base := time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)
	records := []models.UsageRecord{
		{ResourceID: "r", Provider: "aws", Service: "ec2", Timestamp: base, Utilization: 0.4, HasUtilization: true},
		{ResourceID: "r", Provider: "aws", Service: "ec2", Timestamp: base.Add(7 * 24 * time.Hour), Utilization: 0.6, HasUtilization: true},
	}

	pattern := a.BuildPattern(records)
	if got := pattern.Seasonal.Daily[3]; got != 0.5 {
		t.Errorf("Expected hour-3 bucket 0.5, got %f", got)
	}
	if got := pattern.Seasonal.Daily[4]; got != 0 {
		t.Errorf("Expected empty hour-4 bucket, got %f", got)
	}
}

func TestBuildPatternIdempotent(t *testing.T) {
	a := New()
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	records := recordsAt(base, 42, 0.3, 0.5, 0.7, 0.2, 0.9)

	first := a.BuildPattern(records)
	second := a.BuildPattern(records)

	if !reflect.DeepEqual(first, second) {
		t.Error("Re-running analysis on unchanged records produced a different pattern")
	}
}

func TestGroupByResource(t *testing.T) {
	records := []models.UsageRecord{
		{ResourceID: "a", Provider: "aws"},
		{ResourceID: "b", Provider: "aws"},
		{ResourceID: "a", Provider: "aws"},
		{ResourceID: "a", Provider: "gcp"},
	}

	groups := GroupByResource(records)
	if len(groups) != 3 {
		t.Fatalf("Expected 3 groups, got %d", len(groups))
	}
	if len(groups["aws/a"]) != 2 {
		t.Errorf("Expected 2 records for aws/a, got %d", len(groups["aws/a"]))
	}
}

func TestAggregateByService(t *testing.T) {
	patterns := []models.UsagePattern{
		{Provider: "aws", Service: "ec2", AverageUtilization: 0.4, PeakUtilization: 0.6, CostPerUnit: 100, SampleCount: 10},
		{Provider: "aws", Service: "ec2", AverageUtilization: 0.8, PeakUtilization: 0.9, CostPerUnit: 50, SampleCount: 30},
	}

	agg := AggregateByService(patterns)
	svc, ok := agg["aws/ec2"]
	if !ok {
		t.Fatal("Expected aws/ec2 aggregate")
	}

	// Weighted: (0.4*10 + 0.8*30) / 40 = 0.7
	if svc.AverageUtilization != 0.7 {
		t.Errorf("Expected weighted average 0.7, got %f", svc.AverageUtilization)
	}
	if svc.PeakUtilization != 0.9 {
		t.Errorf("Expected peak 0.9, got %f", svc.PeakUtilization)
	}
	if svc.CostPerUnit != 150 {
		t.Errorf("Expected summed cost 150, got %f", svc.CostPerUnit)
	}
}
