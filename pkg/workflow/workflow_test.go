package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/opscart/cloud-cost-advisor/pkg/models"
	"github.com/opscart/cloud-cost-advisor/pkg/storage"
)

func savePending(t *testing.T, store storage.Store) string {
	t.Helper()
	rec := &models.Recommendation{
		Type:     models.RecommendationRightsizing,
		Provider: "aws",
		Service:  "ec2",
		Status:   models.StatusPendingApproval,
	}
	if err := store.SaveRecommendation(context.Background(), rec); err != nil {
		t.Fatalf("SaveRecommendation failed: %v", err)
	}
	return rec.ID
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.Status
		want     bool
	}{
		{models.StatusPendingApproval, models.StatusApproved, true},
		{models.StatusPendingApproval, models.StatusRejected, true},
		{models.StatusPendingApproval, models.StatusApplied, false},
		{models.StatusApproved, models.StatusApplied, true},
		{models.StatusApproved, models.StatusFailed, true},
		{models.StatusApproved, models.StatusRejected, false},
		{models.StatusRejected, models.StatusApproved, false},
		{models.StatusApplied, models.StatusApproved, false},
		{models.StatusFailed, models.StatusApproved, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestApproveRecommendation(t *testing.T) {
	store := storage.NewMemoryStore()
	engine := NewEngine(store, nil)
	ctx := context.Background()

	id := savePending(t, store)
	if err := engine.ApproveRecommendation(ctx, id, "alice"); err != nil {
		t.Fatalf("ApproveRecommendation failed: %v", err)
	}

	rec, _ := store.GetRecommendation(ctx, id)
	if rec.Status != models.StatusApproved {
		t.Errorf("expected approved, got %s", rec.Status)
	}
}

func TestApproveTerminalRecordFails(t *testing.T) {
	store := storage.NewMemoryStore()
	engine := NewEngine(store, nil)
	ctx := context.Background()

	id := savePending(t, store)
	if err := engine.RejectRecommendation(ctx, id, "alice", "not worth it"); err != nil {
		t.Fatalf("RejectRecommendation failed: %v", err)
	}

	err := engine.ApproveRecommendation(ctx, id, "bob")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	store := storage.NewMemoryStore()
	engine := NewEngine(store, nil)
	ctx := context.Background()

	id := savePending(t, store)
	err := engine.RejectRecommendation(ctx, id, "alice", "")
	if !errors.Is(err, ErrReasonRequired) {
		t.Errorf("expected ErrReasonRequired, got %v", err)
	}

	// Record must be untouched after the rejected call.
	rec, _ := store.GetRecommendation(ctx, id)
	if rec.Status != models.StatusPendingApproval {
		t.Errorf("expected status unchanged, got %s", rec.Status)
	}
}

func TestRejectPersistsReason(t *testing.T) {
	store := storage.NewMemoryStore()
	engine := NewEngine(store, nil)
	ctx := context.Background()

	id := savePending(t, store)
	if err := engine.RejectRecommendation(ctx, id, "alice", "prod freeze"); err != nil {
		t.Fatalf("RejectRecommendation failed: %v", err)
	}

	rec, _ := store.GetRecommendation(ctx, id)
	if rec.Status != models.StatusRejected {
		t.Errorf("expected rejected, got %s", rec.Status)
	}
	if rec.RejectionReason != "prod freeze" {
		t.Errorf("expected reason persisted, got %q", rec.RejectionReason)
	}
}

func TestMarkAppliedOnlyFromApproved(t *testing.T) {
	store := storage.NewMemoryStore()
	engine := NewEngine(store, nil)
	ctx := context.Background()

	id := savePending(t, store)

	err := engine.MarkRecommendationApplied(ctx, id)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition from pending, got %v", err)
	}

	if err := engine.ApproveRecommendation(ctx, id, "alice"); err != nil {
		t.Fatalf("ApproveRecommendation failed: %v", err)
	}
	if err := engine.MarkRecommendationApplied(ctx, id); err != nil {
		t.Fatalf("MarkRecommendationApplied failed: %v", err)
	}

	rec, _ := store.GetRecommendation(ctx, id)
	if rec.Status != models.StatusApplied {
		t.Errorf("expected applied, got %s", rec.Status)
	}
}

func TestCommitmentLifecycle(t *testing.T) {
	store := storage.NewMemoryStore()
	engine := NewEngine(store, nil)
	ctx := context.Background()

	c := &models.CommitmentRecommendation{
		Recommendation: models.Recommendation{
			Provider: "aws",
			Service:  "ec2",
			Status:   models.StatusPendingApproval,
		},
		CommitmentType: models.CommitmentReserved,
		TermMonths:     36,
	}
	if err := store.SaveCommitment(ctx, c); err != nil {
		t.Fatalf("SaveCommitment failed: %v", err)
	}

	if err := engine.ApproveCommitment(ctx, c.ID, "alice"); err != nil {
		t.Fatalf("ApproveCommitment failed: %v", err)
	}

	got, _ := store.GetCommitment(ctx, c.ID)
	if got.Status != models.StatusApproved {
		t.Errorf("expected approved, got %s", got.Status)
	}

	err := engine.RejectCommitment(ctx, c.ID, "bob", "budget changed")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition after approval, got %v", err)
	}
}

func TestMissingRecordWrapsNotFound(t *testing.T) {
	engine := NewEngine(storage.NewMemoryStore(), nil)

	err := engine.ApproveRecommendation(context.Background(), "missing", "alice")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
