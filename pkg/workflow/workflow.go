// Package workflow governs recommendation and commitment lifecycle:
// pending_approval through approval or rejection to a terminal applied,
// failed, or rejected state. Records are never deleted, only
// transitioned.
package workflow

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/opscart/cloud-cost-advisor/pkg/models"
	"github.com/opscart/cloud-cost-advisor/pkg/storage"
)

var (
	// ErrInvalidTransition is returned when a status change is not
	// allowed from the record's current state.
	ErrInvalidTransition = errors.New("invalid workflow transition")

	// ErrReasonRequired is returned when a rejection carries no reason.
	ErrReasonRequired = errors.New("rejection requires a reason")
)

// transitions maps each state to the states reachable from it.
// rejected, applied and failed are terminal.
var transitions = map[models.Status][]models.Status{
	models.StatusPendingApproval: {models.StatusApproved, models.StatusRejected},
	models.StatusApproved:        {models.StatusApplied, models.StatusFailed},
}

// CanTransition reports whether moving from one status to another is
// allowed.
func CanTransition(from, to models.Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Engine applies workflow transitions against the store. Approval
// decisions come from the presentation layer; applied/failed
// transitions come from the executor.
type Engine struct {
	store  storage.Store
	logger *zap.Logger
}

// NewEngine creates a workflow engine.
func NewEngine(store storage.Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, logger: logger}
}

// ApproveRecommendation moves a pending recommendation to approved.
func (e *Engine) ApproveRecommendation(ctx context.Context, id, approver string) error {
	rec, err := e.store.GetRecommendation(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load recommendation %s: %w", id, err)
	}
	if !CanTransition(rec.Status, models.StatusApproved) {
		return fmt.Errorf("%w: %s -> approved", ErrInvalidTransition, rec.Status)
	}

	if err := e.store.UpdateRecommendationStatus(ctx, id, models.StatusApproved, ""); err != nil {
		return fmt.Errorf("failed to approve recommendation %s: %w", id, err)
	}

	e.logger.Info("recommendation approved",
		zap.String("id", id),
		zap.String("approver", approver))
	return nil
}

// RejectRecommendation moves a pending recommendation to rejected.
// The reason is mandatory and persisted with the record.
func (e *Engine) RejectRecommendation(ctx context.Context, id, approver, reason string) error {
	if reason == "" {
		return ErrReasonRequired
	}

	rec, err := e.store.GetRecommendation(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load recommendation %s: %w", id, err)
	}
	if !CanTransition(rec.Status, models.StatusRejected) {
		return fmt.Errorf("%w: %s -> rejected", ErrInvalidTransition, rec.Status)
	}

	if err := e.store.UpdateRecommendationStatus(ctx, id, models.StatusRejected, reason); err != nil {
		return fmt.Errorf("failed to reject recommendation %s: %w", id, err)
	}

	e.logger.Info("recommendation rejected",
		zap.String("id", id),
		zap.String("approver", approver),
		zap.String("reason", reason))
	return nil
}

// MarkRecommendationApplied records a successful execution. Only the
// executor calls this.
func (e *Engine) MarkRecommendationApplied(ctx context.Context, id string) error {
	return e.markRecommendation(ctx, id, models.StatusApplied)
}

// MarkRecommendationFailed records a failed execution. Only the
// executor calls this.
func (e *Engine) MarkRecommendationFailed(ctx context.Context, id string) error {
	return e.markRecommendation(ctx, id, models.StatusFailed)
}

func (e *Engine) markRecommendation(ctx context.Context, id string, status models.Status) error {
	rec, err := e.store.GetRecommendation(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load recommendation %s: %w", id, err)
	}
	if !CanTransition(rec.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, status)
	}
	if err := e.store.UpdateRecommendationStatus(ctx, id, status, ""); err != nil {
		return fmt.Errorf("failed to update recommendation %s: %w", id, err)
	}
	return nil
}

// ApproveCommitment moves a pending commitment to approved.
func (e *Engine) ApproveCommitment(ctx context.Context, id, approver string) error {
	c, err := e.store.GetCommitment(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load commitment %s: %w", id, err)
	}
	if !CanTransition(c.Status, models.StatusApproved) {
		return fmt.Errorf("%w: %s -> approved", ErrInvalidTransition, c.Status)
	}

	if err := e.store.UpdateCommitmentStatus(ctx, id, models.StatusApproved, ""); err != nil {
		return fmt.Errorf("failed to approve commitment %s: %w", id, err)
	}

	e.logger.Info("commitment approved",
		zap.String("id", id),
		zap.String("approver", approver))
	return nil
}

// RejectCommitment moves a pending commitment to rejected with a
// mandatory reason.
func (e *Engine) RejectCommitment(ctx context.Context, id, approver, reason string) error {
	if reason == "" {
		return ErrReasonRequired
	}

	c, err := e.store.GetCommitment(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load commitment %s: %w", id, err)
	}
	if !CanTransition(c.Status, models.StatusRejected) {
		return fmt.Errorf("%w: %s -> rejected", ErrInvalidTransition, c.Status)
	}

	if err := e.store.UpdateCommitmentStatus(ctx, id, models.StatusRejected, reason); err != nil {
		return fmt.Errorf("failed to reject commitment %s: %w", id, err)
	}

	e.logger.Info("commitment rejected",
		zap.String("id", id),
		zap.String("approver", approver),
		zap.String("reason", reason))
	return nil
}
