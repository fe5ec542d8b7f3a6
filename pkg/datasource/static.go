package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/opscart/cloud-cost-advisor/pkg/models"
)

// StaticSource serves usage records loaded from a JSON file. Used for
// offline analysis and tests.
type StaticSource struct {
	records map[string][]models.UsageRecord
}

type staticRecord struct {
	ResourceID  string    `json:"resource_id"`
	Provider    string    `json:"provider"`
	Service     string    `json:"service"`
	Timestamp   time.Time `json:"timestamp"`
	Cost        float64   `json:"cost"`
	Utilization *float64  `json:"utilization"`
}

// NewStaticSource creates a source from pre-built records.
func NewStaticSource(records []models.UsageRecord) *StaticSource {
	s := &StaticSource{records: make(map[string][]models.UsageRecord)}
	for _, rec := range records {
		s.records[rec.ResourceID] = append(s.records[rec.ResourceID], rec)
	}
	for id := range s.records {
		recs := s.records[id]
		sort.Slice(recs, func(i, j int) bool {
			return recs[i].Timestamp.Before(recs[j].Timestamp)
		})
	}
	return s
}

// LoadStaticSource reads records from a JSON file. A null utilization
// marks a sample with cost data only.
func LoadStaticSource(path string) (*StaticSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read usage file: %w", err)
	}

	var raw []staticRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse usage file: %w", err)
	}

	records := make([]models.UsageRecord, 0, len(raw))
	for _, r := range raw {
		rec := models.UsageRecord{
			ResourceID: r.ResourceID,
			Provider:   r.Provider,
			Service:    r.Service,
			Timestamp:  r.Timestamp,
			Cost:       r.Cost,
		}
		if r.Utilization != nil {
			rec.Utilization = *r.Utilization
			rec.HasUtilization = true
		}
		records = append(records, rec)
	}

	return NewStaticSource(records), nil
}

func (s *StaticSource) Name() string {
	return "static"
}

func (s *StaticSource) ListResources(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *StaticSource) GetUsage(ctx context.Context, resourceID string, from, to time.Time) ([]models.UsageRecord, error) {
	var out []models.UsageRecord
	for _, rec := range s.records[resourceID] {
		if rec.Timestamp.Before(from) || !rec.Timestamp.Before(to) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *StaticSource) IsAvailable(ctx context.Context) bool {
	return true
}
