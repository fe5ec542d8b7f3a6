package storage

import (
	"context"
	"errors"

	"github.com/opscart/cloud-cost-advisor/pkg/models"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for persistent storage. Records are
// append-capable and keyed by id; status updates never delete.
type Store interface {
	SaveRecommendation(ctx context.Context, rec *models.Recommendation) error
	GetRecommendation(ctx context.Context, id string) (*models.Recommendation, error)
	ListRecommendations(ctx context.Context, status models.Status, limit int) ([]*models.Recommendation, error)
	UpdateRecommendationStatus(ctx context.Context, id string, status models.Status, reason string) error

	SaveCommitment(ctx context.Context, c *models.CommitmentRecommendation) error
	GetCommitment(ctx context.Context, id string) (*models.CommitmentRecommendation, error)
	ListCommitments(ctx context.Context, status models.Status, limit int) ([]*models.CommitmentRecommendation, error)
	UpdateCommitmentStatus(ctx context.Context, id string, status models.Status, reason string) error

	SaveAction(ctx context.Context, action *models.WorkflowAction) error
	GetAction(ctx context.Context, id string) (*models.WorkflowAction, error)
	UpdateActionStatus(ctx context.Context, id string, status models.Status) error

	AppendAudit(ctx context.Context, entry *models.AuditLogEntry) error
	GetAuditLog(ctx context.Context, actionID string) ([]*models.AuditLogEntry, error)

	Ping(ctx context.Context) error
	Close() error
}

// Config selects and configures a storage backend.
type Config struct {
	Type string // postgres, memory
	DSN  string
}
