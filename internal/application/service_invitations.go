package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/venturelink/deal-service/internal/domain"
)

// AcceptInvitationResult carries the draft proposal an accept seeds.
type AcceptInvitationResult struct {
	Invitation domain.Invitation `json:"invitation"`
	Proposal   domain.Proposal   `json:"proposal"`
}

// CreateInvitation lets a requester invite a performer directly. When the
// invitation protects confidential material the NDA flag gates its detail.
func (s *Service) CreateInvitation(ctx context.Context, actor Actor, input CreateInvitationInput) (domain.Invitation, error) {
	if err := requireActor(actor); err != nil {
		return domain.Invitation{}, err
	}
	if err := requireIdempotencyKey(actor); err != nil {
		return domain.Invitation{}, err
	}
	violations := make([]domain.FieldViolation, 0, 2)
	if strings.TrimSpace(input.PerformerID) == "" {
		violations = append(violations, domain.FieldViolation{Field: "performer_id", Reason: "must not be empty"})
	}
	if strings.TrimSpace(input.Title) == "" {
		violations = append(violations, domain.FieldViolation{Field: "title", Reason: "must not be empty"})
	}
	if len(violations) > 0 {
		return domain.Invitation{}, domain.NewValidationError(violations...)
	}
	if strings.TrimSpace(input.PerformerID) == actor.SubjectID {
		return domain.Invitation{}, fmt.Errorf("%w: cannot invite yourself", domain.ErrInvalidInput)
	}

	requestHash := hashPayload(input)
	var cached domain.Invitation
	if ok, err := s.idempotentReplay(ctx, actor, requestHash, &cached); err != nil {
		return domain.Invitation{}, err
	} else if ok {
		return cached, nil
	}
	if err := s.reserveIdempotency(ctx, actor, requestHash); err != nil {
		return domain.Invitation{}, err
	}

	now := s.nowFn()
	invitation := domain.Invitation{
		InvitationID: uuid.NewString(),
		RequesterID:  actor.SubjectID,
		PerformerID:  strings.TrimSpace(input.PerformerID),
		Title:        strings.TrimSpace(input.Title),
		Message:      strings.TrimSpace(input.Message),
		NDARequired:  input.NDARequired,
		Status:       domain.InvitationStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.invitations.Create(ctx, invitation); err != nil {
		return domain.Invitation{}, err
	}
	if input.NDARequired && s.ndaSettings != nil {
		if err := s.ndaSettings.Upsert(ctx, domain.NDASetting{
			SubjectID:   invitation.InvitationID,
			OwnerID:     actor.SubjectID,
			NDARequired: true,
			UpdatedAt:   now,
		}); err != nil {
			return domain.Invitation{}, err
		}
	}

	if err := s.enqueueTransition(ctx, domain.EventInvitationCreated, domain.TransitionEvent{
		ActorID:    actor.SubjectID,
		Action:     "invite",
		EntityType: domain.EntityTypeInvitation,
		EntityID:   invitation.InvitationID,
		ToStatus:   string(domain.InvitationStatusPending),
		Message:    domain.HumanMessage(domain.EventInvitationCreated, invitation.Title, 0),
		OccurredAt: now,
	}); err != nil {
		return domain.Invitation{}, err
	}

	s.completeIdempotency(ctx, actor, 201, invitation)
	return invitation, nil
}

// AcceptInvitation moves the invitation to accepted and seeds a draft
// proposal for the pair. The proposal starts empty; milestones come later
// through the normal revise/submit path.
func (s *Service) AcceptInvitation(ctx context.Context, actor Actor, invitationID string) (AcceptInvitationResult, error) {
	if err := requireActor(actor); err != nil {
		return AcceptInvitationResult{}, err
	}
	invitation, err := s.invitations.GetByID(ctx, strings.TrimSpace(invitationID))
	if err != nil {
		return AcceptInvitationResult{}, err
	}
	if invitation.PerformerID != actor.SubjectID {
		return AcceptInvitationResult{}, fmt.Errorf("%w: only the invited performer may accept", domain.ErrPermissionDenied)
	}
	if err := domain.ValidateInvitationTransition(invitation.Status, domain.InvitationStatusAccepted); err != nil {
		return AcceptInvitationResult{}, err
	}
	if invitation.NDARequired {
		if err := s.requireNDARecord(ctx, invitation.InvitationID, actor.SubjectID); err != nil {
			return AcceptInvitationResult{}, err
		}
	}

	now := s.nowFn()
	prior := invitation.Status
	invitation.Status = domain.InvitationStatusAccepted
	invitation.DecidedAt = &now
	invitation.UpdatedAt = now
	if err := s.invitations.UpdateWithPrecondition(ctx, invitation, prior); err != nil {
		return AcceptInvitationResult{}, err
	}

	proposal := domain.Proposal{
		ProposalID:   uuid.NewString(),
		RequesterID:  invitation.RequesterID,
		PerformerID:  invitation.PerformerID,
		InvitationID: invitation.InvitationID,
		Title:        invitation.Title,
		Status:       domain.ProposalStatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.proposals.Create(ctx, proposal); err != nil {
		return AcceptInvitationResult{}, err
	}

	if err := s.enqueueTransition(ctx, domain.EventInvitationAccepted, domain.TransitionEvent{
		ActorID:    actor.SubjectID,
		Action:     "accept",
		EntityType: domain.EntityTypeInvitation,
		EntityID:   invitation.InvitationID,
		FromStatus: string(prior),
		ToStatus:   string(domain.InvitationStatusAccepted),
		Message:    domain.HumanMessage(domain.EventInvitationAccepted, invitation.Title, 0),
		OccurredAt: now,
	}); err != nil {
		return AcceptInvitationResult{}, err
	}
	return AcceptInvitationResult{Invitation: invitation, Proposal: proposal}, nil
}

// DeclineInvitation is terminal; no proposal is seeded.
func (s *Service) DeclineInvitation(ctx context.Context, actor Actor, invitationID string) (domain.Invitation, error) {
	if err := requireActor(actor); err != nil {
		return domain.Invitation{}, err
	}
	invitation, err := s.invitations.GetByID(ctx, strings.TrimSpace(invitationID))
	if err != nil {
		return domain.Invitation{}, err
	}
	if invitation.PerformerID != actor.SubjectID {
		return domain.Invitation{}, fmt.Errorf("%w: only the invited performer may decline", domain.ErrPermissionDenied)
	}
	if err := domain.ValidateInvitationTransition(invitation.Status, domain.InvitationStatusDeclined); err != nil {
		return domain.Invitation{}, err
	}

	now := s.nowFn()
	prior := invitation.Status
	invitation.Status = domain.InvitationStatusDeclined
	invitation.DecidedAt = &now
	invitation.UpdatedAt = now
	if err := s.invitations.UpdateWithPrecondition(ctx, invitation, prior); err != nil {
		return domain.Invitation{}, err
	}

	if err := s.enqueueTransition(ctx, domain.EventInvitationDeclined, domain.TransitionEvent{
		ActorID:    actor.SubjectID,
		Action:     "decline",
		EntityType: domain.EntityTypeInvitation,
		EntityID:   invitation.InvitationID,
		FromStatus: string(prior),
		ToStatus:   string(domain.InvitationStatusDeclined),
		Message:    domain.HumanMessage(domain.EventInvitationDeclined, invitation.Title, 0),
		OccurredAt: now,
	}); err != nil {
		return domain.Invitation{}, err
	}
	return invitation, nil
}

// ListInvitations returns the performer's inbox.
func (s *Service) ListInvitations(ctx context.Context, actor Actor, limit int) ([]domain.Invitation, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.invitations.ListByPerformer(ctx, actor.SubjectID, limit)
}
