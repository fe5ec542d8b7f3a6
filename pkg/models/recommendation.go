package models

import "time"

// RecommendationType represents the type of recommendation
type RecommendationType string

const (
	RecommendationRightsizing      RecommendationType = "rightsizing"
	RecommendationReservedCapacity RecommendationType = "reserved_instances"
	RecommendationSpot             RecommendationType = "spot_instances"
	RecommendationStorage          RecommendationType = "storage_optimization"
)

// Impact describes how much a recommendation moves the bill.
type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

// Complexity describes how hard a recommendation is to apply.
type Complexity string

const (
	ComplexityEasy   Complexity = "easy"
	ComplexityMedium Complexity = "medium"
	ComplexityHard   Complexity = "hard"
)

// Status is the workflow state of a recommendation or commitment.
// Records are never deleted, only transitioned.
type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
	StatusApplied         Status = "applied"
	StatusFailed          Status = "failed"
)

// Recommendation represents an optimization recommendation
type Recommendation struct {
	ID          string
	Type        RecommendationType
	Provider    string
	Service     string
	ResourceIDs []string

	EstimatedSavings float64
	ConfidenceScore  float64 // clamped to [0,1]
	Impact           Impact
	Complexity       Complexity
	Explanation      string

	Status          Status
	RejectionReason string

	CreatedAt time.Time
	AppliedAt *time.Time
	AppliedBy string
}

// CommitmentType distinguishes the two commitment products.
type CommitmentType string

const (
	CommitmentReserved    CommitmentType = "reserved"
	CommitmentSavingsPlan CommitmentType = "savings_plan"
)

// PaymentOption is how a commitment is paid for.
type PaymentOption string

const (
	PaymentAllUpfront     PaymentOption = "all_upfront"
	PaymentPartialUpfront PaymentOption = "partial_upfront"
	PaymentNoUpfront      PaymentOption = "no_upfront"
)

// CommitmentRecommendation specializes Recommendation for multi-month
// reserved-capacity purchases.
type CommitmentRecommendation struct {
	Recommendation

	CommitmentType CommitmentType
	TermMonths     int
	PaymentOption  PaymentOption
	Quantity       int
	RiskFactors    []string

	// Payment schedule derived from quantity, rate and term.
	UpfrontCost string // decimal string, currency units
	MonthlyCost string // decimal string, currency units
}
