package models

import "time"

// UsageRecord is a single cost/utilization sample for one resource.
// Records are produced by the ingestion layer and are read-only here.
type UsageRecord struct {
	ResourceID string
	Provider   string
	Service    string
	Timestamp  time.Time
	Cost       float64

	// Utilization is the fraction of provisioned capacity in use (0-1).
	// Not every record carries one; HasUtilization distinguishes a real
	// zero from a missing sample.
	Utilization    float64
	HasUtilization bool
}

// SeasonalPattern holds per-bucket average utilization.
type SeasonalPattern struct {
	Daily  [24]float64 // hour of day
	Weekly [7]float64  // day of week, Sunday = 0
}

// HasData reports whether any seasonal bucket is non-zero.
func (s SeasonalPattern) HasData() bool {
	for _, v := range s.Daily {
		if v != 0 {
			return true
		}
	}
	for _, v := range s.Weekly {
		if v != 0 {
			return true
		}
	}
	return false
}

// UsagePattern is the analyzed shape of one resource's usage over a window.
// It is rebuilt fresh on every analysis run and never mutated in place.
type UsagePattern struct {
	ResourceID string
	Provider   string
	Service    string

	AverageUtilization float64 // mean of utilization samples (0-1)
	PeakUtilization    float64 // max of utilization samples (0-1)
	CostPerUnit        float64 // total cost / sample count

	Seasonal SeasonalPattern

	// SampleCount is the number of utilization samples behind the pattern.
	SampleCount int

	WindowStart time.Time
	WindowEnd   time.Time
}
