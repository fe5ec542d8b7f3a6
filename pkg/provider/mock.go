package provider

import (
	"context"
	"sync"
	"time"

	"github.com/opscart/cloud-cost-advisor/pkg/models"
)

// MockAdapter is an in-memory Adapter for tests and dry runs. Every
// call is recorded, and each method's behavior can be overridden with
// a function hook.
type MockAdapter struct {
	mu sync.Mutex

	ProviderName string
	States       map[string]map[string]string

	GetStateFunc   func(resourceID string) (*models.Snapshot, error)
	RestoreFunc    func(resourceID string, snapshot *models.Snapshot) error
	ResizeFunc     func(resourceID string, params *models.ResizeParams) (*Result, error)
	CommitmentFunc func(resourceID string, params *models.CommitmentParams) (*Result, error)
	CleanupFunc    func(resourceID string, params *models.CleanupParams) (*Result, error)

	RestoreCalls []RestoreCall
	ResizeCalls  []string
}

// RestoreCall records one RestoreState invocation.
type RestoreCall struct {
	ResourceID string
	Snapshot   *models.Snapshot
}

// NewMockAdapter creates a mock adapter for the given provider name.
func NewMockAdapter(name string) *MockAdapter {
	return &MockAdapter{
		ProviderName: name,
		States:       make(map[string]map[string]string),
	}
}

func (m *MockAdapter) Name() string {
	return m.ProviderName
}

func (m *MockAdapter) GetResourceState(ctx context.Context, resourceID string) (*models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetStateFunc != nil {
		return m.GetStateFunc(resourceID)
	}

	state := map[string]string{}
	for k, v := range m.States[resourceID] {
		state[k] = v
	}
	return &models.Snapshot{
		ResourceID: resourceID,
		Provider:   m.ProviderName,
		CapturedAt: time.Now(),
		State:      state,
	}, nil
}

func (m *MockAdapter) RestoreState(ctx context.Context, resourceID string, snapshot *models.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RestoreCalls = append(m.RestoreCalls, RestoreCall{ResourceID: resourceID, Snapshot: snapshot})
	if m.RestoreFunc != nil {
		return m.RestoreFunc(resourceID, snapshot)
	}
	m.States[resourceID] = snapshot.State
	return nil
}

func (m *MockAdapter) Resize(ctx context.Context, resourceID string, params *models.ResizeParams) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ResizeCalls = append(m.ResizeCalls, resourceID)
	if m.ResizeFunc != nil {
		return m.ResizeFunc(resourceID, params)
	}
	if m.States[resourceID] == nil {
		m.States[resourceID] = make(map[string]string)
	}
	m.States[resourceID]["size"] = params.TargetSize
	return &Result{ResourceID: resourceID, Detail: "resized to " + params.TargetSize}, nil
}

func (m *MockAdapter) AdjustCommitment(ctx context.Context, resourceID string, params *models.CommitmentParams) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CommitmentFunc != nil {
		return m.CommitmentFunc(resourceID, params)
	}
	return &Result{ResourceID: resourceID, Detail: "commitment adjusted"}, nil
}

func (m *MockAdapter) Cleanup(ctx context.Context, resourceID string, params *models.CleanupParams) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CleanupFunc != nil {
		return m.CleanupFunc(resourceID, params)
	}
	delete(m.States, resourceID)
	return &Result{ResourceID: resourceID, Detail: "cleaned up"}, nil
}
