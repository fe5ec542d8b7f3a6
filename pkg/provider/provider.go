// Package provider defines the adapter contract the executor uses to
// mutate external resources, one adapter per cloud provider.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/opscart/cloud-cost-advisor/pkg/models"
)

// ErrUnknownProvider is returned when no adapter is registered for a
// provider name.
var ErrUnknownProvider = errors.New("unknown provider")

// Result is the outcome of a successful dispatch call.
type Result struct {
	ResourceID string
	Detail     string
}

// Adapter is the per-provider contract for state capture, mutation and
// restoration. All methods may fail; the executor owns retry and
// rollback policy.
type Adapter interface {
	Name() string

	// GetResourceState captures the resource's current state. The
	// executor calls this before any mutating call and keeps the
	// snapshot for rollback.
	GetResourceState(ctx context.Context, resourceID string) (*models.Snapshot, error)

	// RestoreState reverts the resource to a previously captured
	// snapshot.
	RestoreState(ctx context.Context, resourceID string, snapshot *models.Snapshot) error

	// Resize changes the resource's provisioned size.
	Resize(ctx context.Context, resourceID string, params *models.ResizeParams) (*Result, error)

	// AdjustCommitment changes reserved-capacity coverage for the
	// resource's service.
	AdjustCommitment(ctx context.Context, resourceID string, params *models.CommitmentParams) (*Result, error)

	// Cleanup removes or schedules removal of an unused resource.
	Cleanup(ctx context.Context, resourceID string, params *models.CleanupParams) (*Result, error)
}

// Registry holds the configured adapters keyed by provider name.
// Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter under its own name, replacing any previous
// adapter for that provider.
func (r *Registry) Register(adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Name()] = adapter
}

// Get returns the adapter for a provider name.
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return adapter, nil
}

// Names returns the registered provider names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}
