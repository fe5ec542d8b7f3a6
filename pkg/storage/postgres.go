package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/opscart/cloud-cost-advisor/pkg/models"
)

//go:embed migrations/*.sql
var postgresFS embed.FS

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db  *sql.DB
	dsn string
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{
		db:  db,
		dsn: dsn,
	}

	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// migrate runs database migrations
func (s *PostgresStore) migrate() error {
	schema, err := postgresFS.ReadFile("migrations/001_schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}

	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// SaveRecommendation saves a recommendation
func (s *PostgresStore) SaveRecommendation(ctx context.Context, rec *models.Recommendation) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO recommendations (
			id, type, provider, service, resource_ids,
			estimated_savings, confidence_score, impact, complexity,
			explanation, status, rejection_reason,
			created_at, applied_at, applied_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Type, rec.Provider, rec.Service, pq.Array(rec.ResourceIDs),
		rec.EstimatedSavings, rec.ConfidenceScore, rec.Impact, rec.Complexity,
		rec.Explanation, rec.Status, rec.RejectionReason,
		rec.CreatedAt, rec.AppliedAt, rec.AppliedBy,
	)

	return err
}

// GetRecommendation retrieves a recommendation by ID
func (s *PostgresStore) GetRecommendation(ctx context.Context, id string) (*models.Recommendation, error) {
	query := `
		SELECT id, type, provider, service, resource_ids,
			estimated_savings, confidence_score, impact, complexity,
			explanation, status, rejection_reason,
			created_at, applied_at, applied_by
		FROM recommendations
		WHERE id = $1
	`

	rec, err := scanRecommendation(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// ListRecommendations retrieves recommendations filtered by status
// (empty matches all), newest first.
func (s *PostgresStore) ListRecommendations(ctx context.Context, status models.Status, limit int) ([]*models.Recommendation, error) {
	query := `
		SELECT id, type, provider, service, resource_ids,
			estimated_savings, confidence_score, impact, complexity,
			explanation, status, rejection_reason,
			created_at, applied_at, applied_by
		FROM recommendations
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recommendations []*models.Recommendation
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		recommendations = append(recommendations, rec)
	}

	return recommendations, rows.Err()
}

// UpdateRecommendationStatus transitions a recommendation's status,
// persisting the rejection reason when given.
func (s *PostgresStore) UpdateRecommendationStatus(ctx context.Context, id string, status models.Status, reason string) error {
	query := `
		UPDATE recommendations
		SET status = $1,
			rejection_reason = CASE WHEN $2 <> '' THEN $2 ELSE rejection_reason END,
			applied_at = CASE WHEN $1 = 'applied' THEN NOW() ELSE applied_at END
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, string(status), reason, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// SaveCommitment saves a commitment recommendation
func (s *PostgresStore) SaveCommitment(ctx context.Context, c *models.CommitmentRecommendation) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO commitments (
			id, provider, service, commitment_type, term_months,
			payment_option, quantity, risk_factors,
			estimated_savings, confidence_score, impact, complexity,
			explanation, status, rejection_reason,
			upfront_cost, monthly_cost, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.Provider, c.Service, c.CommitmentType, c.TermMonths,
		c.PaymentOption, c.Quantity, pq.Array(c.RiskFactors),
		c.EstimatedSavings, c.ConfidenceScore, c.Impact, c.Complexity,
		c.Explanation, c.Status, c.RejectionReason,
		c.UpfrontCost, c.MonthlyCost, c.CreatedAt,
	)

	return err
}

// GetCommitment retrieves a commitment by ID
func (s *PostgresStore) GetCommitment(ctx context.Context, id string) (*models.CommitmentRecommendation, error) {
	query := `
		SELECT id, provider, service, commitment_type, term_months,
			payment_option, quantity, risk_factors,
			estimated_savings, confidence_score, impact, complexity,
			explanation, status, rejection_reason,
			upfront_cost, monthly_cost, created_at
		FROM commitments
		WHERE id = $1
	`

	c, err := scanCommitment(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return c, nil
}

// ListCommitments retrieves commitments filtered by status (empty
// matches all), newest first.
func (s *PostgresStore) ListCommitments(ctx context.Context, status models.Status, limit int) ([]*models.CommitmentRecommendation, error) {
	query := `
		SELECT id, provider, service, commitment_type, term_months,
			payment_option, quantity, risk_factors,
			estimated_savings, confidence_score, impact, complexity,
			explanation, status, rejection_reason,
			upfront_cost, monthly_cost, created_at
		FROM commitments
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commitments []*models.CommitmentRecommendation
	for rows.Next() {
		c, err := scanCommitment(rows)
		if err != nil {
			return nil, err
		}
		commitments = append(commitments, c)
	}

	return commitments, rows.Err()
}

// UpdateCommitmentStatus transitions a commitment's status.
func (s *PostgresStore) UpdateCommitmentStatus(ctx context.Context, id string, status models.Status, reason string) error {
	query := `
		UPDATE commitments
		SET status = $1,
			rejection_reason = CASE WHEN $2 <> '' THEN $2 ELSE rejection_reason END
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, string(status), reason, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// SaveAction saves a workflow action. Parameters are stored as JSON.
func (s *PostgresStore) SaveAction(ctx context.Context, action *models.WorkflowAction) error {
	if action.ID == "" {
		action.ID = uuid.New().String()
	}
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now()
	}

	params, err := json.Marshal(action.Parameters)
	if err != nil {
		return fmt.Errorf("failed to encode action parameters: %w", err)
	}

	query := `
		INSERT INTO workflow_actions (
			id, recommendation_id, type, provider, resource_id,
			parameters, requires_approval, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.db.ExecContext(ctx, query,
		action.ID, action.RecommendationID, action.Type, action.Provider, action.ResourceID,
		params, action.RequiresApproval, action.Status, action.CreatedAt,
	)

	return err
}

// GetAction retrieves a workflow action by ID
func (s *PostgresStore) GetAction(ctx context.Context, id string) (*models.WorkflowAction, error) {
	query := `
		SELECT id, recommendation_id, type, provider, resource_id,
			parameters, requires_approval, status, created_at
		FROM workflow_actions
		WHERE id = $1
	`

	var action models.WorkflowAction
	var recommendationID sql.NullString
	var params []byte

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&action.ID, &recommendationID, &action.Type, &action.Provider, &action.ResourceID,
		&params, &action.RequiresApproval, &action.Status, &action.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	action.RecommendationID = recommendationID.String
	if len(params) > 0 {
		if err := json.Unmarshal(params, &action.Parameters); err != nil {
			return nil, fmt.Errorf("failed to decode action parameters: %w", err)
		}
	}

	return &action, nil
}

// UpdateActionStatus transitions an action's status.
func (s *PostgresStore) UpdateActionStatus(ctx context.Context, id string, status models.Status) error {
	query := `UPDATE workflow_actions SET status = $1 WHERE id = $2`

	result, err := s.db.ExecContext(ctx, query, string(status), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// AppendAudit appends an entry to the audit trail
func (s *PostgresStore) AppendAudit(ctx context.Context, entry *models.AuditLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	query := `
		INSERT INTO audit_log (
			id, action_id, status, detail, actor, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.ActionID, entry.Status, entry.Detail, entry.Actor, entry.Timestamp,
	)

	return err
}

// GetAuditLog retrieves audit log entries for an action in append order
func (s *PostgresStore) GetAuditLog(ctx context.Context, actionID string) ([]*models.AuditLogEntry, error) {
	query := `
		SELECT id, action_id, status, detail, actor, created_at
		FROM audit_log
		WHERE action_id = $1
		ORDER BY created_at ASC, seq ASC
	`

	rows, err := s.db.QueryContext(ctx, query, actionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.AuditLogEntry
	for rows.Next() {
		var entry models.AuditLogEntry
		var detail, actor sql.NullString

		err := rows.Scan(
			&entry.ID, &entry.ActionID, &entry.Status, &detail, &actor, &entry.Timestamp,
		)
		if err != nil {
			return nil, err
		}

		entry.Detail = detail.String
		entry.Actor = actor.String
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecommendation(row rowScanner) (*models.Recommendation, error) {
	var rec models.Recommendation
	var resourceIDs pq.StringArray
	var rejectionReason, appliedBy sql.NullString
	var appliedAt sql.NullTime

	err := row.Scan(
		&rec.ID, &rec.Type, &rec.Provider, &rec.Service, &resourceIDs,
		&rec.EstimatedSavings, &rec.ConfidenceScore, &rec.Impact, &rec.Complexity,
		&rec.Explanation, &rec.Status, &rejectionReason,
		&rec.CreatedAt, &appliedAt, &appliedBy,
	)
	if err != nil {
		return nil, err
	}

	rec.ResourceIDs = resourceIDs
	rec.RejectionReason = rejectionReason.String
	rec.AppliedBy = appliedBy.String
	if appliedAt.Valid {
		rec.AppliedAt = &appliedAt.Time
	}

	return &rec, nil
}

func scanCommitment(row rowScanner) (*models.CommitmentRecommendation, error) {
	var c models.CommitmentRecommendation
	var riskFactors pq.StringArray
	var rejectionReason sql.NullString

	err := row.Scan(
		&c.ID, &c.Provider, &c.Service, &c.CommitmentType, &c.TermMonths,
		&c.PaymentOption, &c.Quantity, &riskFactors,
		&c.EstimatedSavings, &c.ConfidenceScore, &c.Impact, &c.Complexity,
		&c.Explanation, &c.Status, &rejectionReason,
		&c.UpfrontCost, &c.MonthlyCost, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Type = models.RecommendationReservedCapacity
	c.RiskFactors = riskFactors
	c.RejectionReason = rejectionReason.String

	return &c, nil
}
