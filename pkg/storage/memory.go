package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opscart/cloud-cost-advisor/pkg/models"
)

// MemoryStore is an in-memory Store for tests and dry runs. Safe for
// concurrent use.
type MemoryStore struct {
	mu              sync.RWMutex
	recommendations map[string]*models.Recommendation
	commitments     map[string]*models.CommitmentRecommendation
	actions         map[string]*models.WorkflowAction
	audit           []*models.AuditLogEntry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		recommendations: make(map[string]*models.Recommendation),
		commitments:     make(map[string]*models.CommitmentRecommendation),
		actions:         make(map[string]*models.WorkflowAction),
	}
}

// SaveRecommendation stores a recommendation, assigning id and
// timestamp when missing.
func (s *MemoryStore) SaveRecommendation(ctx context.Context, rec *models.Recommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	clone := *rec
	s.recommendations[rec.ID] = &clone
	return nil
}

// GetRecommendation retrieves a recommendation by id.
func (s *MemoryStore) GetRecommendation(ctx context.Context, id string) (*models.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.recommendations[id]
	if !ok {
		return nil, ErrNotFound
	}

	clone := *rec
	return &clone, nil
}

// ListRecommendations returns recommendations with the given status
// (empty matches all), newest first.
func (s *MemoryStore) ListRecommendations(ctx context.Context, status models.Status, limit int) ([]*models.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Recommendation
	for _, rec := range s.recommendations {
		if status != "" && rec.Status != status {
			continue
		}
		clone := *rec
		out = append(out, &clone)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateRecommendationStatus transitions a recommendation's status,
// persisting the rejection reason when given.
func (s *MemoryStore) UpdateRecommendationStatus(ctx context.Context, id string, status models.Status, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.recommendations[id]
	if !ok {
		return ErrNotFound
	}

	rec.Status = status
	if reason != "" {
		rec.RejectionReason = reason
	}
	if status == models.StatusApplied {
		now := time.Now()
		rec.AppliedAt = &now
	}
	return nil
}

// SaveCommitment stores a commitment recommendation.
func (s *MemoryStore) SaveCommitment(ctx context.Context, c *models.CommitmentRecommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	clone := *c
	s.commitments[c.ID] = &clone
	return nil
}

// GetCommitment retrieves a commitment by id.
func (s *MemoryStore) GetCommitment(ctx context.Context, id string) (*models.CommitmentRecommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.commitments[id]
	if !ok {
		return nil, ErrNotFound
	}

	clone := *c
	return &clone, nil
}

// ListCommitments returns commitments with the given status (empty
// matches all), newest first.
func (s *MemoryStore) ListCommitments(ctx context.Context, status models.Status, limit int) ([]*models.CommitmentRecommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.CommitmentRecommendation
	for _, c := range s.commitments {
		if status != "" && c.Status != status {
			continue
		}
		clone := *c
		out = append(out, &clone)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateCommitmentStatus transitions a commitment's status.
func (s *MemoryStore) UpdateCommitmentStatus(ctx context.Context, id string, status models.Status, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.commitments[id]
	if !ok {
		return ErrNotFound
	}

	c.Status = status
	if reason != "" {
		c.RejectionReason = reason
	}
	return nil
}

// SaveAction stores a workflow action.
func (s *MemoryStore) SaveAction(ctx context.Context, action *models.WorkflowAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if action.ID == "" {
		action.ID = uuid.New().String()
	}
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now()
	}

	clone := *action
	s.actions[action.ID] = &clone
	return nil
}

// GetAction retrieves an action by id.
func (s *MemoryStore) GetAction(ctx context.Context, id string) (*models.WorkflowAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	action, ok := s.actions[id]
	if !ok {
		return nil, ErrNotFound
	}

	clone := *action
	return &clone, nil
}

// UpdateActionStatus transitions an action's status.
func (s *MemoryStore) UpdateActionStatus(ctx context.Context, id string, status models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	action, ok := s.actions[id]
	if !ok {
		return ErrNotFound
	}

	action.Status = status
	return nil
}

// AppendAudit appends an audit log entry. Entries are never updated
// or removed.
func (s *MemoryStore) AppendAudit(ctx context.Context, entry *models.AuditLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	clone := *entry
	s.audit = append(s.audit, &clone)
	return nil
}

// GetAuditLog returns the audit entries for an action in append order.
func (s *MemoryStore) GetAuditLog(ctx context.Context, actionID string) ([]*models.AuditLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.AuditLogEntry
	for _, entry := range s.audit {
		if entry.ActionID == actionID {
			clone := *entry
			out = append(out, &clone)
		}
	}
	return out, nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
