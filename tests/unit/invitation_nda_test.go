package unit

import (
	"context"
	"errors"
	"testing"

	"github.com/venturelink/deal-service/internal/application"
	"github.com/venturelink/deal-service/internal/domain"
)

func invite(t *testing.T, f *fixture, ndaRequired bool) domain.Invitation {
	t.Helper()
	invitation, err := f.service.CreateInvitation(context.Background(), requester(nextKey()), application.CreateInvitationInput{
		PerformerID: "perf-1",
		Title:       "Storefront revamp",
		Message:     "saw your portfolio, interested?",
		NDARequired: ndaRequired,
	})
	if err != nil {
		t.Fatalf("create invitation failed: %v", err)
	}
	return invitation
}

func TestAcceptInvitationSeedsDraftProposal(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	invitation := invite(t, f, false)

	result, err := f.service.AcceptInvitation(ctx, performer(""), invitation.InvitationID)
	if err != nil {
		t.Fatalf("accept invitation failed: %v", err)
	}
	if result.Invitation.Status != domain.InvitationStatusAccepted {
		t.Fatalf("expected accepted invitation, got %s", result.Invitation.Status)
	}
	if result.Proposal.Status != domain.ProposalStatusDraft {
		t.Fatalf("expected seeded draft proposal, got %s", result.Proposal.Status)
	}
	if result.Proposal.RequesterID != invitation.RequesterID || result.Proposal.PerformerID != invitation.PerformerID {
		t.Fatalf("seeded proposal parties do not match invitation")
	}
	if result.Proposal.InvitationID != invitation.InvitationID {
		t.Fatalf("seeded proposal not linked to invitation")
	}
}

func TestDeclineInvitationIsTerminal(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	invitation := invite(t, f, false)

	declined, err := f.service.DeclineInvitation(ctx, performer(""), invitation.InvitationID)
	if err != nil {
		t.Fatalf("decline invitation failed: %v", err)
	}
	if declined.Status != domain.InvitationStatusDeclined {
		t.Fatalf("expected declined, got %s", declined.Status)
	}
	if _, err := f.service.AcceptInvitation(ctx, performer(""), invitation.InvitationID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition after decline, got %v", err)
	}
}

func TestInvitationOnlyPerformerMayDecide(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	invitation := invite(t, f, false)

	if _, err := f.service.AcceptInvitation(ctx, requester(""), invitation.InvitationID); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission denied for requester accept, got %v", err)
	}
}

func TestSelfInvitationRejected(t *testing.T) {
	t.Parallel()

	f := newFixture()
	_, err := f.service.CreateInvitation(context.Background(), requester(nextKey()), application.CreateInvitationInput{
		PerformerID: "req-1",
		Title:       "Solo act",
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected self-invite rejection, got %v", err)
	}
}

func TestNDAGateBlocksInvitationAcceptUntilSigned(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	invitation := invite(t, f, true)

	if _, err := f.service.AcceptInvitation(ctx, performer(""), invitation.InvitationID); !errors.Is(err, domain.ErrNDARequired) {
		t.Fatalf("expected nda gate to block accept, got %v", err)
	}

	signed, err := f.service.AcceptNDA(ctx, performer(""), invitation.InvitationID, "https://docs.example.com/nda.pdf")
	if err != nil {
		t.Fatalf("accept nda failed: %v", err)
	}
	if signed.Record.SubjectID != invitation.InvitationID || signed.Record.ViewerID != "perf-1" {
		t.Fatalf("nda record not scoped to (invitation, performer)")
	}

	result, err := f.service.AcceptInvitation(ctx, performer(""), invitation.InvitationID)
	if err != nil {
		t.Fatalf("accept after signing failed: %v", err)
	}
	if result.Invitation.Status != domain.InvitationStatusAccepted {
		t.Fatalf("expected accepted after signing, got %s", result.Invitation.Status)
	}
}

func TestAccessRequestParksIntentAndAcceptResumes(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	viewer := performer("")

	if _, err := f.service.SetNDARequirement(ctx, requester(""), application.SetNDARequirementInput{
		SubjectID:   "listing-42",
		NDARequired: true,
	}); err != nil {
		t.Fatalf("set nda requirement failed: %v", err)
	}

	decision, err := f.service.RequestAccess(ctx, viewer, application.AccessRequestInput{
		SubjectID: "listing-42",
		Action:    "view_brief",
		TargetID:  "brief-7",
	})
	if err != nil {
		t.Fatalf("request access failed: %v", err)
	}
	if decision.Granted || !decision.NDAChallenge {
		t.Fatalf("expected nda challenge, got granted=%v challenge=%v", decision.Granted, decision.NDAChallenge)
	}
	if decision.Intent == nil || decision.Intent.Action != "view_brief" {
		t.Fatalf("parked intent not returned with challenge")
	}

	accepted, err := f.service.AcceptNDA(ctx, viewer, "listing-42", "")
	if err != nil {
		t.Fatalf("accept nda failed: %v", err)
	}
	if accepted.Resume == nil || accepted.Resume.TargetID != "brief-7" {
		t.Fatalf("expected parked intent to resume on accept")
	}

	// The resume is single-shot; a second accept finds nothing parked.
	again, err := f.service.AcceptNDA(ctx, viewer, "listing-42", "")
	if err != nil {
		t.Fatalf("repeated accept failed: %v", err)
	}
	if again.Resume != nil {
		t.Fatalf("parked intent resumed twice")
	}
	if again.Record.NDARecordID != accepted.Record.NDARecordID {
		t.Fatalf("repeated accept minted a second record")
	}

	// With the record on file the gate opens directly.
	granted, err := f.service.RequestAccess(ctx, viewer, application.AccessRequestInput{SubjectID: "listing-42", Action: "view_brief"})
	if err != nil {
		t.Fatalf("request access after signing failed: %v", err)
	}
	if !granted.Granted {
		t.Fatalf("expected access after signing")
	}
}

func TestDeclineNDADropsParkedIntent(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	viewer := performer("")

	if _, err := f.service.SetNDARequirement(ctx, requester(""), application.SetNDARequirementInput{
		SubjectID:   "listing-drop",
		NDARequired: true,
	}); err != nil {
		t.Fatalf("set nda requirement failed: %v", err)
	}
	if _, err := f.service.RequestAccess(ctx, viewer, application.AccessRequestInput{SubjectID: "listing-drop", Action: "view_brief"}); err != nil {
		t.Fatalf("request access failed: %v", err)
	}
	if err := f.service.DeclineNDA(ctx, viewer, "listing-drop"); err != nil {
		t.Fatalf("decline nda failed: %v", err)
	}

	// A later accept signs the agreement but has nothing to resume.
	accepted, err := f.service.AcceptNDA(ctx, viewer, "listing-drop", "")
	if err != nil {
		t.Fatalf("accept after decline failed: %v", err)
	}
	if accepted.Resume != nil {
		t.Fatalf("declined intent should not resume")
	}
}

func TestOwnerBypassesOwnGate(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	owner := requester("")

	if _, err := f.service.SetNDARequirement(ctx, owner, application.SetNDARequirementInput{
		SubjectID:   "listing-own",
		NDARequired: true,
	}); err != nil {
		t.Fatalf("set nda requirement failed: %v", err)
	}
	decision, err := f.service.RequestAccess(ctx, owner, application.AccessRequestInput{SubjectID: "listing-own", Action: "view_brief"})
	if err != nil {
		t.Fatalf("owner access failed: %v", err)
	}
	if !decision.Granted {
		t.Fatalf("owner must not be challenged on their own subject")
	}
}

func TestNDARequirementOwnerOnly(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	if _, err := f.service.SetNDARequirement(ctx, requester(""), application.SetNDARequirementInput{
		SubjectID:   "listing-guard",
		NDARequired: true,
	}); err != nil {
		t.Fatalf("set nda requirement failed: %v", err)
	}
	if _, err := f.service.SetNDARequirement(ctx, performer(""), application.SetNDARequirementInput{
		SubjectID:   "listing-guard",
		NDARequired: false,
	}); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission denied for non-owner toggle, got %v", err)
	}
}
