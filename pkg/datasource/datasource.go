// Package datasource supplies usage records to the analysis pipeline.
// Records arrive timestamp-ordered within a window; gaps are expected
// and tolerated downstream.
package datasource

import (
	"context"
	"time"

	"github.com/opscart/cloud-cost-advisor/pkg/models"
)

// Source is one origin of usage records.
type Source interface {
	// Name identifies the source in logs and reports.
	Name() string

	// ListResources returns the resource ids visible to this source.
	ListResources(ctx context.Context) ([]string, error)

	// GetUsage returns one resource's usage records over a window,
	// timestamp-ordered.
	GetUsage(ctx context.Context, resourceID string, from, to time.Time) ([]models.UsageRecord, error)

	// IsAvailable reports whether the backing system is reachable.
	IsAvailable(ctx context.Context) bool
}
