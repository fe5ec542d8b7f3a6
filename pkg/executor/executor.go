// Package executor turns approved workflow actions into provider calls
// with capture/attempt/compensate rollback semantics. Every transition
// is written to the audit log before control returns; the log is the
// durable record of what happened even if the process dies mid-action.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opscart/cloud-cost-advisor/pkg/models"
	"github.com/opscart/cloud-cost-advisor/pkg/notify"
	"github.com/opscart/cloud-cost-advisor/pkg/provider"
	"github.com/opscart/cloud-cost-advisor/pkg/storage"
)

var (
	// ErrResourceBusy is returned when another action is already in
	// flight for the same resource. The caller retries later; actions
	// are never interleaved or queued implicitly.
	ErrResourceBusy = errors.New("resource has an action in flight")

	// ErrNotApproved is returned when the action is not in the
	// approved state. Checked before any external call.
	ErrNotApproved = errors.New("action is not approved")

	// ErrUnsupportedActionType is returned for action types with no
	// dispatch handler.
	ErrUnsupportedActionType = errors.New("unsupported action type")
)

// Result classifies how an execution ended.
type Result string

const (
	// ResultApplied: the dispatch succeeded.
	ResultApplied Result = "applied"

	// ResultRolledBack: the dispatch failed and the resource was
	// restored to its pre-action snapshot.
	ResultRolledBack Result = "rolled_back"

	// ResultRollbackFailed: the dispatch failed and restoration also
	// failed. The resource needs manual operator attention.
	ResultRollbackFailed Result = "rollback_failed"
)

// Outcome is the first-class execution result. Err carries the
// original dispatch error for the two failure results; RollbackErr is
// set only for ResultRollbackFailed.
type Outcome struct {
	ActionID    string
	Result      Result
	Detail      string
	Err         error
	RollbackErr error
}

// DefaultDispatchTimeout bounds each external provider call.
const DefaultDispatchTimeout = 2 * time.Minute

// Executor runs one approved action at a time per resource.
type Executor struct {
	store    storage.Store
	registry *provider.Registry
	notifier notify.Notifier
	logger   *zap.Logger
	timeout  time.Duration
	actor    string
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// Option configures an Executor.
type Option func(*Executor)

// WithTimeout overrides the per-call provider timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithActor sets the actor recorded on audit entries.
func WithActor(actor string) Option {
	return func(e *Executor) { e.actor = actor }
}

// New creates an executor. A nil notifier or logger disables that
// side channel.
func New(store storage.Store, registry *provider.Registry, notifier notify.Notifier, logger *zap.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}
	e := &Executor{
		store:    store,
		registry: registry,
		notifier: notifier,
		logger:   logger,
		timeout:  DefaultDispatchTimeout,
		actor:    "executor",
		inFlight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one approved action end to end. Ordering is strict:
// audit started, capture snapshot, dispatch, then either audit
// completed or audit failed followed by a rollback attempt with its
// own audit entry. The original dispatch error is always returned in
// the outcome regardless of rollback result.
func (e *Executor) Execute(ctx context.Context, action *models.WorkflowAction) (*Outcome, error) {
	if action.Status != models.StatusApproved {
		return nil, fmt.Errorf("%w: action %s is %s", ErrNotApproved, action.ID, action.Status)
	}

	if !e.acquire(action.ResourceID) {
		return nil, fmt.Errorf("%w: %s", ErrResourceBusy, action.ResourceID)
	}
	defer e.release(action.ResourceID)

	adapter, err := e.registry.Get(action.Provider)
	if err != nil {
		return nil, err
	}

	if err := e.audit(ctx, action.ID, models.AuditStarted, ""); err != nil {
		return nil, err
	}

	snapshot, err := e.capture(ctx, adapter, action.ResourceID)
	if err != nil {
		captureErr := fmt.Errorf("failed to capture state for %s: %w", action.ResourceID, err)
		e.auditBestEffort(ctx, action.ID, models.AuditFailed, captureErr.Error())
		e.markFailed(ctx, action)
		e.send(ctx, "action failed before dispatch",
			fmt.Sprintf("action %s on %s: %v", action.ID, action.ResourceID, captureErr))
		return nil, captureErr
	}

	result, dispatchErr := e.dispatch(ctx, adapter, action)
	if dispatchErr == nil {
		auditErr := e.audit(ctx, action.ID, models.AuditCompleted, result.Detail)
		e.markApplied(ctx, action)
		e.send(ctx, "action applied",
			fmt.Sprintf("action %s on %s: %s", action.ID, action.ResourceID, result.Detail))

		// The resource did change; the caller gets the applied outcome
		// even when the completed audit entry could not be written.
		return &Outcome{
			ActionID: action.ID,
			Result:   ResultApplied,
			Detail:   result.Detail,
		}, auditErr
	}

	e.auditBestEffort(ctx, action.ID, models.AuditFailed, dispatchErr.Error())
	e.markFailed(ctx, action)
	e.send(ctx, "action failed",
		fmt.Sprintf("action %s on %s: %v", action.ID, action.ResourceID, dispatchErr))

	rollbackErr := e.restore(ctx, adapter, action.ResourceID, snapshot)
	if rollbackErr == nil {
		e.auditBestEffort(ctx, action.ID, models.AuditRolledBack, "restored pre-action state")
		return &Outcome{
			ActionID: action.ID,
			Result:   ResultRolledBack,
			Err:      dispatchErr,
		}, dispatchErr
	}

	e.auditBestEffort(ctx, action.ID, models.AuditRollbackFailed, rollbackErr.Error())
	e.logger.Error("rollback failed, manual intervention required",
		zap.String("action_id", action.ID),
		zap.String("resource_id", action.ResourceID),
		zap.Error(rollbackErr))
	e.send(ctx, "rollback failed: manual intervention required",
		fmt.Sprintf("action %s on %s failed (%v) and could not be rolled back (%v)",
			action.ID, action.ResourceID, dispatchErr, rollbackErr))

	return &Outcome{
		ActionID:    action.ID,
		Result:      ResultRollbackFailed,
		Err:         dispatchErr,
		RollbackErr: rollbackErr,
	}, dispatchErr
}

func (e *Executor) acquire(resourceID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, busy := e.inFlight[resourceID]; busy {
		return false
	}
	e.inFlight[resourceID] = struct{}{}
	return true
}

func (e *Executor) release(resourceID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, resourceID)
}

func (e *Executor) capture(ctx context.Context, adapter provider.Adapter, resourceID string) (*models.Snapshot, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return adapter.GetResourceState(callCtx, resourceID)
}

func (e *Executor) dispatch(ctx context.Context, adapter provider.Adapter, action *models.WorkflowAction) (*provider.Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	switch action.Type {
	case models.ActionResize:
		return adapter.Resize(callCtx, action.ResourceID, action.Parameters.Resize)
	case models.ActionCommitment:
		return adapter.AdjustCommitment(callCtx, action.ResourceID, action.Parameters.Commitment)
	case models.ActionCleanup:
		return adapter.Cleanup(callCtx, action.ResourceID, action.Parameters.Cleanup)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedActionType, action.Type)
	}
}

func (e *Executor) restore(ctx context.Context, adapter provider.Adapter, resourceID string, snapshot *models.Snapshot) error {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return adapter.RestoreState(callCtx, resourceID, snapshot)
}

func (e *Executor) audit(ctx context.Context, actionID string, status models.AuditStatus, detail string) error {
	entry := &models.AuditLogEntry{
		ID:        uuid.New().String(),
		ActionID:  actionID,
		Status:    status,
		Detail:    detail,
		Actor:     e.actor,
		Timestamp: time.Now(),
	}
	if err := e.store.AppendAudit(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit entry %s for action %s: %w", status, actionID, err)
	}
	return nil
}

// auditBestEffort is used on the failure path, where the original
// error must reach the caller even if the audit write itself fails.
func (e *Executor) auditBestEffort(ctx context.Context, actionID string, status models.AuditStatus, detail string) {
	if err := e.audit(ctx, actionID, status, detail); err != nil {
		e.logger.Error("audit write failed",
			zap.String("action_id", actionID),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

func (e *Executor) markApplied(ctx context.Context, action *models.WorkflowAction) {
	e.markStatus(ctx, action, models.StatusApplied)
}

func (e *Executor) markFailed(ctx context.Context, action *models.WorkflowAction) {
	e.markStatus(ctx, action, models.StatusFailed)
}

func (e *Executor) markStatus(ctx context.Context, action *models.WorkflowAction, status models.Status) {
	if err := e.store.UpdateActionStatus(ctx, action.ID, status); err != nil {
		e.logger.Error("failed to update action status",
			zap.String("action_id", action.ID),
			zap.String("status", string(status)),
			zap.Error(err))
	}
	action.Status = status

	if action.RecommendationID == "" {
		return
	}
	if err := e.store.UpdateRecommendationStatus(ctx, action.RecommendationID, status, ""); err != nil {
		e.logger.Error("failed to update recommendation status",
			zap.String("recommendation_id", action.RecommendationID),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

// send delivers a notification without letting a delivery failure
// affect the orchestration.
func (e *Executor) send(ctx context.Context, subject, body string) {
	if err := e.notifier.Send(ctx, notify.Message{Subject: subject, Body: body}); err != nil {
		e.logger.Warn("notification delivery failed",
			zap.String("subject", subject),
			zap.Error(err))
	}
}
