package models

import "time"

// ActionType is the kind of change a WorkflowAction performs.
type ActionType string

const (
	ActionResize     ActionType = "resize"
	ActionCommitment ActionType = "commitment"
	ActionCleanup    ActionType = "cleanup"
	ActionSecurity   ActionType = "security"
)

// ResizeParams carries the fields a resize action needs.
type ResizeParams struct {
	TargetSize string // provider-specific size/instance type
	CPU        int64  // millicores, kubernetes targets only
	MemoryMB   int64
}

// CommitmentParams carries the fields a commitment adjustment needs.
type CommitmentParams struct {
	CommitmentType CommitmentType
	TermMonths     int
	PaymentOption  PaymentOption
	Quantity       int
}

// CleanupParams carries the fields a cleanup action needs.
type CleanupParams struct {
	DeleteAfter time.Time
	Reason      string
}

// ActionParameters is a closed union: exactly one variant is set,
// selected by the action's Type.
type ActionParameters struct {
	Resize     *ResizeParams
	Commitment *CommitmentParams
	Cleanup    *CleanupParams
}

// WorkflowAction is one executable change against exactly one resource.
type WorkflowAction struct {
	ID               string
	RecommendationID string
	Type             ActionType
	Provider         string
	ResourceID       string
	Parameters       ActionParameters
	RequiresApproval bool
	Status           Status
	CreatedAt        time.Time
}

// AuditStatus is the status recorded on an audit log entry.
type AuditStatus string

const (
	AuditStarted        AuditStatus = "started"
	AuditCompleted      AuditStatus = "completed"
	AuditFailed         AuditStatus = "failed"
	AuditRolledBack     AuditStatus = "rolled_back"
	AuditRollbackFailed AuditStatus = "rollback_failed"
)

// AuditLogEntry is one append-only record of an orchestrator transition.
// Every transition writes exactly one entry before control returns.
type AuditLogEntry struct {
	ID        string
	ActionID  string
	Status    AuditStatus
	Detail    string
	Actor     string
	Timestamp time.Time
}

// Snapshot is a resource's state captured before a mutating call,
// used to restore it if the action fails. The payload is opaque to
// everything except the provider adapter that produced it.
type Snapshot struct {
	ResourceID string
	Provider   string
	CapturedAt time.Time
	State      map[string]string
}
