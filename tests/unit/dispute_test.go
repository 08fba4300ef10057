package unit

import (
	"context"
	"errors"
	"testing"

	"github.com/venturelink/deal-service/internal/application"
	"github.com/venturelink/deal-service/internal/domain"
)

// fundedMilestone drives a fresh contract's first milestone to in_review so
// dispute paths have something to argue about.
func fundedMilestone(t *testing.T, f *fixture) domain.Milestone {
	t.Helper()
	ctx := context.Background()
	result := acceptToContract(t, f)
	m := result.Milestones[0]
	if _, err := f.service.FundMilestone(ctx, requester(nextKey()), m.MilestoneID); err != nil {
		t.Fatalf("fund failed: %v", err)
	}
	reviewed, err := f.service.AttachDeliverable(ctx, performer(""), m.MilestoneID, application.AttachDeliverableInput{
		Name:    "draft.zip",
		FileURL: "https://files.example.com/draft.zip",
	})
	if err != nil {
		t.Fatalf("attach deliverable failed: %v", err)
	}
	return reviewed
}

func TestOpenDisputeFreezesMilestone(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	m := fundedMilestone(t, f)

	dispute, err := f.service.OpenDispute(ctx, performer(nextKey()), m.MilestoneID, application.OpenDisputeInput{
		Reason: "requester keeps moving the goalposts",
		Evidence: []application.EvidenceFileInput{
			{Filename: "chat-log.txt", FileURL: "https://files.example.com/chat-log.txt"},
		},
	})
	if err != nil {
		t.Fatalf("open dispute failed: %v", err)
	}
	if dispute.Status != domain.DisputeStatusOpen {
		t.Fatalf("expected open dispute, got %s", dispute.Status)
	}

	frozen, err := f.repos.Milestones.GetByID(ctx, m.MilestoneID)
	if err != nil {
		t.Fatalf("load milestone failed: %v", err)
	}
	if frozen.Status != domain.MilestoneStatusDisputed {
		t.Fatalf("expected disputed milestone, got %s", frozen.Status)
	}

	// Normal review actions are locked out while disputed.
	if _, err := f.service.ApproveMilestone(ctx, requester(""), m.MilestoneID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected approve to fail while disputed, got %v", err)
	}
	if _, err := f.service.RejectMilestone(ctx, requester(""), m.MilestoneID, application.RejectMilestoneInput{Notes: "no"}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected reject to fail while disputed, got %v", err)
	}
}

func TestOpenDisputeRequiresReason(t *testing.T) {
	t.Parallel()

	f := newFixture()
	m := fundedMilestone(t, f)

	_, err := f.service.OpenDispute(context.Background(), performer(nextKey()), m.MilestoneID, application.OpenDisputeInput{})
	if _, ok := domain.AsValidationError(err); !ok {
		t.Fatalf("expected validation error for empty reason, got %v", err)
	}
}

func TestSecondUnresolvedDisputeRejected(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	m := fundedMilestone(t, f)

	if _, err := f.service.OpenDispute(ctx, performer(nextKey()), m.MilestoneID, application.OpenDisputeInput{Reason: "first"}); err != nil {
		t.Fatalf("open dispute failed: %v", err)
	}
	if _, err := f.service.OpenDispute(ctx, requester(nextKey()), m.MilestoneID, application.OpenDisputeInput{Reason: "second"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on second unresolved dispute, got %v", err)
	}
}

func TestOutsiderCannotDispute(t *testing.T) {
	t.Parallel()

	f := newFixture()
	m := fundedMilestone(t, f)

	outsider := application.Actor{SubjectID: "rando-9", Role: "member", IdempotencyKey: nextKey()}
	_, err := f.service.OpenDispute(context.Background(), outsider, m.MilestoneID, application.OpenDisputeInput{Reason: "drive-by"})
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission denied for outsider, got %v", err)
	}
}

func TestResolveReleasePaysOut(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	m := fundedMilestone(t, f)

	dispute, err := f.service.OpenDispute(ctx, performer(nextKey()), m.MilestoneID, application.OpenDisputeInput{Reason: "work is done"})
	if err != nil {
		t.Fatalf("open dispute failed: %v", err)
	}
	inReview, err := f.service.StartDisputeReview(ctx, arbitrator(), dispute.DisputeID)
	if err != nil {
		t.Fatalf("start review failed: %v", err)
	}
	if inReview.Status != domain.DisputeStatusInReview {
		t.Fatalf("expected in_review dispute, got %s", inReview.Status)
	}

	resolved, err := f.service.ResolveDispute(ctx, arbitrator(), dispute.DisputeID, application.ResolveDisputeInput{
		Outcome: "release",
		Notes:   "deliverable matches the milestone scope",
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.Status != domain.DisputeStatusResolved {
		t.Fatalf("expected resolved dispute, got %s", resolved.Status)
	}
	if resolved.ResolvedAt == nil {
		t.Fatalf("expected resolved_at to be set")
	}

	released, err := f.repos.Milestones.GetByID(ctx, m.MilestoneID)
	if err != nil {
		t.Fatalf("load milestone failed: %v", err)
	}
	if released.Status != domain.MilestoneStatusReleased {
		t.Fatalf("expected released milestone, got %s", released.Status)
	}
	payout, err := f.repos.Payouts.GetByMilestoneID(ctx, m.MilestoneID)
	if err != nil {
		t.Fatalf("load payout failed: %v", err)
	}
	if payout.Status != domain.PayoutStatusPending {
		t.Fatalf("expected pending payout after release, got %s", payout.Status)
	}
}

func TestResolveReopenReturnsMilestoneToHeld(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	m := fundedMilestone(t, f)

	dispute, err := f.service.OpenDispute(ctx, requester(nextKey()), m.MilestoneID, application.OpenDisputeInput{Reason: "not what was agreed"})
	if err != nil {
		t.Fatalf("open dispute failed: %v", err)
	}
	resolved, err := f.service.ResolveDispute(ctx, arbitrator(), dispute.DisputeID, application.ResolveDisputeInput{
		Outcome: "reopen",
		Notes:   "performer should rework milestone one",
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.Outcome != domain.DisputeOutcomeReopen {
		t.Fatalf("expected reopen outcome, got %s", resolved.Outcome)
	}

	held, err := f.repos.Milestones.GetByID(ctx, m.MilestoneID)
	if err != nil {
		t.Fatalf("load milestone failed: %v", err)
	}
	if held.Status != domain.MilestoneStatusHeld {
		t.Fatalf("expected held milestone after reopen, got %s", held.Status)
	}

	// Funds stay escrowed; a reopen never advances the payout.
	payout, err := f.repos.Payouts.GetByMilestoneID(ctx, m.MilestoneID)
	if err != nil {
		t.Fatalf("load payout failed: %v", err)
	}
	if payout.Status != domain.PayoutStatusHeld {
		t.Fatalf("expected held payout after reopen, got %s", payout.Status)
	}

	// The pair can dispute again once the first one is settled.
	if _, err := f.service.OpenDispute(ctx, performer(nextKey()), m.MilestoneID, application.OpenDisputeInput{Reason: "round two"}); err != nil {
		t.Fatalf("second dispute after resolution failed: %v", err)
	}
}

func TestOnlyArbitratorResolves(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	m := fundedMilestone(t, f)

	dispute, err := f.service.OpenDispute(ctx, performer(nextKey()), m.MilestoneID, application.OpenDisputeInput{Reason: "stalled"})
	if err != nil {
		t.Fatalf("open dispute failed: %v", err)
	}
	if _, err := f.service.ResolveDispute(ctx, requester(""), dispute.DisputeID, application.ResolveDisputeInput{Outcome: "release"}); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission denied for party resolve, got %v", err)
	}
	if _, err := f.service.StartDisputeReview(ctx, performer(""), dispute.DisputeID); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission denied for party review, got %v", err)
	}
}

func TestResolveRejectsUnknownOutcome(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	m := fundedMilestone(t, f)

	dispute, err := f.service.OpenDispute(ctx, performer(nextKey()), m.MilestoneID, application.OpenDisputeInput{Reason: "stalled"})
	if err != nil {
		t.Fatalf("open dispute failed: %v", err)
	}
	if _, err := f.service.ResolveDispute(ctx, arbitrator(), dispute.DisputeID, application.ResolveDisputeInput{Outcome: "split-the-difference"}); err == nil {
		t.Fatalf("expected unknown outcome to be rejected")
	}
}
