package unit

import (
	"errors"
	"testing"
	"time"

	"github.com/venturelink/deal-service/internal/domain"
)

func milestoneIn(status domain.MilestoneStatus) domain.Milestone {
	return domain.Milestone{
		MilestoneID: "m-1",
		ContractID:  "c-1",
		Title:       "Build",
		Price:       500,
		Status:      status,
		Deliverables: []domain.Deliverable{
			{Name: "build.zip", FileURL: "https://files.example.com/build.zip", UploadedAt: time.Now()},
		},
	}
}

func TestMilestoneTransitionTable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		status  domain.MilestoneStatus
		action  domain.MilestoneAction
		role    domain.PartyRole
		input   domain.TransitionInput
		want    domain.MilestoneStatus
		wantErr error
	}{
		{
			name:   "requester funds with confirmed escrow",
			status: domain.MilestoneStatusNotFunded,
			action: domain.MilestoneActionFund,
			role:   domain.RoleRequester,
			input:  domain.TransitionInput{FundingConfirmed: true},
			want:   domain.MilestoneStatusHeld,
		},
		{
			name:    "fund without escrow confirmation",
			status:  domain.MilestoneStatusNotFunded,
			action:  domain.MilestoneActionFund,
			role:    domain.RoleRequester,
			wantErr: domain.ErrExternalDependency,
		},
		{
			name:    "performer cannot fund",
			status:  domain.MilestoneStatusNotFunded,
			action:  domain.MilestoneActionFund,
			role:    domain.RolePerformer,
			input:   domain.TransitionInput{FundingConfirmed: true},
			wantErr: domain.ErrPermissionDenied,
		},
		{
			name:    "double fund",
			status:  domain.MilestoneStatusHeld,
			action:  domain.MilestoneActionFund,
			role:    domain.RoleRequester,
			input:   domain.TransitionInput{FundingConfirmed: true},
			wantErr: domain.ErrInvalidTransition,
		},
		{
			name:   "performer submits held work",
			status: domain.MilestoneStatusHeld,
			action: domain.MilestoneActionSubmit,
			role:   domain.RolePerformer,
			want:   domain.MilestoneStatusInReview,
		},
		{
			name:   "requester approves review",
			status: domain.MilestoneStatusInReview,
			action: domain.MilestoneActionApprove,
			role:   domain.RoleRequester,
			want:   domain.MilestoneStatusReleased,
		},
		{
			name:    "approve before review",
			status:  domain.MilestoneStatusHeld,
			action:  domain.MilestoneActionApprove,
			role:    domain.RoleRequester,
			wantErr: domain.ErrInvalidTransition,
		},
		{
			name:    "performer cannot approve",
			status:  domain.MilestoneStatusInReview,
			action:  domain.MilestoneActionApprove,
			role:    domain.RolePerformer,
			wantErr: domain.ErrPermissionDenied,
		},
		{
			name:   "reject with notes returns to held",
			status: domain.MilestoneStatusInReview,
			action: domain.MilestoneActionReject,
			role:   domain.RoleRequester,
			input:  domain.TransitionInput{Notes: "needs rework"},
			want:   domain.MilestoneStatusHeld,
		},
		{
			name:   "either party disputes a review",
			status: domain.MilestoneStatusInReview,
			action: domain.MilestoneActionDispute,
			role:   domain.RolePerformer,
			want:   domain.MilestoneStatusDisputed,
		},
		{
			name:   "requester disputes held work",
			status: domain.MilestoneStatusHeld,
			action: domain.MilestoneActionDispute,
			role:   domain.RoleRequester,
			want:   domain.MilestoneStatusDisputed,
		},
		{
			name:    "arbitrator cannot dispute",
			status:  domain.MilestoneStatusInReview,
			action:  domain.MilestoneActionDispute,
			role:    domain.RoleArbitrator,
			wantErr: domain.ErrPermissionDenied,
		},
		{
			name:   "arbitrator releases a dispute",
			status: domain.MilestoneStatusDisputed,
			action: domain.MilestoneActionResolveRelease,
			role:   domain.RoleArbitrator,
			want:   domain.MilestoneStatusReleased,
		},
		{
			name:   "arbitrator reopens a dispute",
			status: domain.MilestoneStatusDisputed,
			action: domain.MilestoneActionResolveReopen,
			role:   domain.RoleArbitrator,
			want:   domain.MilestoneStatusHeld,
		},
		{
			name:    "requester cannot resolve",
			status:  domain.MilestoneStatusDisputed,
			action:  domain.MilestoneActionResolveRelease,
			role:    domain.RoleRequester,
			wantErr: domain.ErrPermissionDenied,
		},
		{
			name:    "released is terminal",
			status:  domain.MilestoneStatusReleased,
			action:  domain.MilestoneActionDispute,
			role:    domain.RolePerformer,
			wantErr: domain.ErrInvalidTransition,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := domain.ApplyMilestoneTransition(milestoneIn(tc.status), tc.action, tc.role, tc.input)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestSubmitGuardRequiresDeliverable(t *testing.T) {
	t.Parallel()

	bare := milestoneIn(domain.MilestoneStatusHeld)
	bare.Deliverables = nil
	_, err := domain.ApplyMilestoneTransition(bare, domain.MilestoneActionSubmit, domain.RolePerformer, domain.TransitionInput{})
	if _, ok := domain.AsValidationError(err); !ok {
		t.Fatalf("expected validation error without deliverables, got %v", err)
	}
}

func TestRejectGuardRequiresNotes(t *testing.T) {
	t.Parallel()

	_, err := domain.ApplyMilestoneTransition(milestoneIn(domain.MilestoneStatusInReview), domain.MilestoneActionReject, domain.RoleRequester, domain.TransitionInput{})
	if _, ok := domain.AsValidationError(err); !ok {
		t.Fatalf("expected validation error without notes, got %v", err)
	}
}

func TestMilestoneTerminal(t *testing.T) {
	t.Parallel()

	if !domain.MilestoneTerminal(domain.MilestoneStatusReleased) {
		t.Fatalf("released must be terminal")
	}
	for _, status := range []domain.MilestoneStatus{
		domain.MilestoneStatusNotFunded,
		domain.MilestoneStatusHeld,
		domain.MilestoneStatusInReview,
		domain.MilestoneStatusDisputed,
	} {
		if domain.MilestoneTerminal(status) {
			t.Fatalf("%s must not be terminal", status)
		}
	}
}
