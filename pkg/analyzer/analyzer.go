// Package analyzer turns raw usage records into stable usage patterns
// and scores how much those patterns can be trusted.
package analyzer

import (
	"time"

	"github.com/opscart/cloud-cost-advisor/pkg/models"
	"github.com/opscart/cloud-cost-advisor/pkg/stats"
)

// Analyzer builds UsagePatterns from usage records. It is stateless and
// safe to share across goroutines; callers construct one and inject it
// wherever analysis runs.
type Analyzer struct{}

// New creates an Analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// BuildPattern analyzes all records for one (provider, resourceId) pair
// over an analysis window and returns a fresh UsagePattern. Records are
// expected to be timestamp-ordered; gaps are tolerated.
//
// Seasonal buckets average only the samples that land in the bucket, so
// sparse buckets are not diluted toward zero by the window length. A
// resource with no utilization samples produces an all-zero pattern;
// callers must handle that without crashing.
func (a *Analyzer) BuildPattern(records []models.UsageRecord) models.UsagePattern {
	pattern := models.UsagePattern{}
	if len(records) == 0 {
		return pattern
	}

	pattern.ResourceID = records[0].ResourceID
	pattern.Provider = records[0].Provider
	pattern.Service = records[0].Service
	pattern.WindowStart = records[0].Timestamp
	pattern.WindowEnd = records[len(records)-1].Timestamp

	var (
		totalCost    float64
		utilization  []float64
		hourlySums   [24]float64
		hourlyCounts [24]int
		weeklySums   [7]float64
		weeklyCounts [7]int
	)

	for _, rec := range records {
		totalCost += rec.Cost

		if !rec.HasUtilization {
			continue
		}

		utilization = append(utilization, rec.Utilization)

		hour := rec.Timestamp.Hour()
		hourlySums[hour] += rec.Utilization
		hourlyCounts[hour]++

		day := int(rec.Timestamp.Weekday())
		weeklySums[day] += rec.Utilization
		weeklyCounts[day]++
	}

	pattern.CostPerUnit = totalCost / float64(len(records))
	pattern.SampleCount = len(utilization)

	if len(utilization) == 0 {
		return pattern
	}

	pattern.AverageUtilization = stats.Mean(utilization)
	peak := utilization[0]
	for _, v := range utilization[1:] {
		if v > peak {
			peak = v
		}
	}
	pattern.PeakUtilization = peak

	for hour := 0; hour < 24; hour++ {
		if hourlyCounts[hour] > 0 {
			pattern.Seasonal.Daily[hour] = hourlySums[hour] / float64(hourlyCounts[hour])
		}
	}
	for day := 0; day < 7; day++ {
		if weeklyCounts[day] > 0 {
			pattern.Seasonal.Weekly[day] = weeklySums[day] / float64(weeklyCounts[day])
		}
	}

	return pattern
}

// UtilizationSamples extracts the utilization values from records,
// skipping records that carry none.
func UtilizationSamples(records []models.UsageRecord) []float64 {
	var samples []float64
	for _, rec := range records {
		if rec.HasUtilization {
			samples = append(samples, rec.Utilization)
		}
	}
	return samples
}

// GroupByResource splits a mixed record stream into per-resource groups
// keyed by provider/resourceId, preserving record order within a group.
func GroupByResource(records []models.UsageRecord) map[string][]models.UsageRecord {
	groups := make(map[string][]models.UsageRecord)
	for _, rec := range records {
		key := rec.Provider + "/" + rec.ResourceID
		groups[key] = append(groups[key], rec)
	}
	return groups
}

// AggregateByService merges per-resource patterns into one pattern per
// service, weighting utilization by each resource's sample count. The
// commitment planner operates on these aggregates. usageHours is the
// window length in hours attributed to the aggregate.
func AggregateByService(patterns []models.UsagePattern) map[string]models.UsagePattern {
	type acc struct {
		utilSum     float64
		peak        float64
		costSum     float64
		sampleCount int
		dailySums   [24]float64
		dailyCounts [24]int
		weeklySums  [7]float64
		weeklyCount [7]int
		start, end  time.Time
		provider    string
	}

	accs := make(map[string]*acc)
	for _, p := range patterns {
		key := p.Provider + "/" + p.Service
		a, ok := accs[key]
		if !ok {
			a = &acc{start: p.WindowStart, end: p.WindowEnd, provider: p.Provider}
			accs[key] = a
		}

		a.utilSum += p.AverageUtilization * float64(p.SampleCount)
		if p.PeakUtilization > a.peak {
			a.peak = p.PeakUtilization
		}
		a.costSum += p.CostPerUnit
		a.sampleCount += p.SampleCount

		for h := 0; h < 24; h++ {
			if p.Seasonal.Daily[h] != 0 {
				a.dailySums[h] += p.Seasonal.Daily[h]
				a.dailyCounts[h]++
			}
		}
		for d := 0; d < 7; d++ {
			if p.Seasonal.Weekly[d] != 0 {
				a.weeklySums[d] += p.Seasonal.Weekly[d]
				a.weeklyCount[d]++
			}
		}

		if p.WindowStart.Before(a.start) {
			a.start = p.WindowStart
		}
		if p.WindowEnd.After(a.end) {
			a.end = p.WindowEnd
		}
	}

	out := make(map[string]models.UsagePattern, len(accs))
	for key, a := range accs {
		p := models.UsagePattern{
			Provider:        a.provider,
			Service:         serviceFromKey(key),
			PeakUtilization: a.peak,
			CostPerUnit:     a.costSum,
			SampleCount:     a.sampleCount,
			WindowStart:     a.start,
			WindowEnd:       a.end,
		}
		if a.sampleCount > 0 {
			p.AverageUtilization = a.utilSum / float64(a.sampleCount)
		}
		for h := 0; h < 24; h++ {
			if a.dailyCounts[h] > 0 {
				p.Seasonal.Daily[h] = a.dailySums[h] / float64(a.dailyCounts[h])
			}
		}
		for d := 0; d < 7; d++ {
			if a.weeklyCount[d] > 0 {
				p.Seasonal.Weekly[d] = a.weeklySums[d] / float64(a.weeklyCount[d])
			}
		}
		out[key] = p
	}

	return out
}

func serviceFromKey(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == '/' {
			return key[i+1:]
		}
	}
	return key
}
