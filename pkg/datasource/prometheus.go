package datasource

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"go.uber.org/zap"

	"github.com/opscart/cloud-cost-advisor/pkg/models"
)

// sampleStep is the resolution of range queries.
const sampleStep = time.Hour

// PrometheusSource reads utilization and cost series from Prometheus.
// Utilization comes from a gauge in [0,1] labeled by resource id; cost
// comes from a per-sample cost metric with the same label.
type PrometheusSource struct {
	client   v1.API
	url      string
	provider string
	service  string
	logger   *zap.Logger
}

// NewPrometheusSource creates a source reading from the given
// Prometheus server. provider and service are stamped onto every
// record produced.
func NewPrometheusSource(url, provider, service string, logger *zap.Logger) (*PrometheusSource, error) {
	client, err := api.NewClient(api.Config{
		Address: url,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PrometheusSource{
		client:   v1.NewAPI(client),
		url:      url,
		provider: provider,
		service:  service,
		logger:   logger,
	}, nil
}

func (p *PrometheusSource) Name() string {
	return "prometheus"
}

// ListResources returns the resource ids present in the utilization
// metric.
func (p *PrometheusSource) ListResources(ctx context.Context) ([]string, error) {
	result, warnings, err := p.client.Query(ctx, `count by (resource_id) (resource_utilization_ratio)`, time.Now())
	if err != nil {
		return nil, fmt.Errorf("resource listing query failed: %w", err)
	}
	if len(warnings) > 0 {
		p.logger.Warn("prometheus query warnings", zap.Strings("warnings", warnings))
	}

	vector, ok := result.(model.Vector)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %T for resource listing", result)
	}

	ids := make([]string, 0, len(vector))
	for _, sample := range vector {
		if id := string(sample.Metric["resource_id"]); id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// GetUsage reads one resource's utilization and cost series over a
// window and joins them by timestamp.
func (p *PrometheusSource) GetUsage(ctx context.Context, resourceID string, from, to time.Time) ([]models.UsageRecord, error) {
	r := v1.Range{Start: from, End: to, Step: sampleStep}

	utilQuery := fmt.Sprintf(`resource_utilization_ratio{resource_id=%q}`, resourceID)
	utilSeries, err := p.queryRange(ctx, utilQuery, r)
	if err != nil {
		return nil, fmt.Errorf("utilization query failed: %w", err)
	}

	costQuery := fmt.Sprintf(`resource_cost_per_sample{resource_id=%q}`, resourceID)
	costSeries, err := p.queryRange(ctx, costQuery, r)
	if err != nil {
		return nil, fmt.Errorf("cost query failed: %w", err)
	}

	costAt := make(map[int64]float64, len(costSeries))
	for _, pair := range costSeries {
		costAt[pair.Timestamp.Unix()] = float64(pair.Value)
	}

	records := make([]models.UsageRecord, 0, len(utilSeries))
	for _, pair := range utilSeries {
		ts := pair.Timestamp.Time()
		records = append(records, models.UsageRecord{
			ResourceID:     resourceID,
			Provider:       p.provider,
			Service:        p.service,
			Timestamp:      ts,
			Cost:           costAt[pair.Timestamp.Unix()],
			Utilization:    float64(pair.Value),
			HasUtilization: true,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	return records, nil
}

func (p *PrometheusSource) queryRange(ctx context.Context, query string, r v1.Range) ([]model.SamplePair, error) {
	result, warnings, err := p.client.QueryRange(ctx, query, r)
	if err != nil {
		return nil, err
	}
	if len(warnings) > 0 {
		p.logger.Warn("prometheus query warnings",
			zap.String("query", query),
			zap.Strings("warnings", warnings))
	}

	matrix, ok := result.(model.Matrix)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %T for query %s", result, query)
	}

	var pairs []model.SamplePair
	for _, stream := range matrix {
		pairs = append(pairs, stream.Values...)
	}
	return pairs, nil
}

func (p *PrometheusSource) IsAvailable(ctx context.Context) bool {
	_, _, err := p.client.Query(ctx, "up", time.Now())
	return err == nil
}
