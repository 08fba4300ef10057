package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/venturelink/deal-service/internal/domain"
)

// OpenDispute freezes a held or in-review milestone. Exactly one unresolved
// dispute may exist per milestone; the milestone's precondition update is
// the tiebreaker when an approval races a dispute.
func (s *Service) OpenDispute(ctx context.Context, actor Actor, milestoneID string, input OpenDisputeInput) (domain.Dispute, error) {
	if err := requireActor(actor); err != nil {
		return domain.Dispute{}, err
	}
	if err := requireIdempotencyKey(actor); err != nil {
		return domain.Dispute{}, err
	}
	if err := domain.ValidateDisputeReason(input.Reason); err != nil {
		return domain.Dispute{}, err
	}
	milestone, contract, role, err := s.loadMilestoneForActor(ctx, milestoneID, actor)
	if err != nil {
		return domain.Dispute{}, err
	}
	if role == domain.RoleArbitrator {
		return domain.Dispute{}, fmt.Errorf("%w: only a contract party may open a dispute", domain.ErrPermissionDenied)
	}

	requestHash := hashPayload(input)
	var cached domain.Dispute
	if ok, err := s.idempotentReplay(ctx, actor, requestHash, &cached); err != nil {
		return domain.Dispute{}, err
	} else if ok {
		return cached, nil
	}
	if err := s.reserveIdempotency(ctx, actor, requestHash); err != nil {
		return domain.Dispute{}, err
	}

	if existing, err := s.disputes.GetOpenByMilestoneID(ctx, milestone.MilestoneID); err == nil && existing.DisputeID != "" {
		return domain.Dispute{}, fmt.Errorf("%w: an unresolved dispute already exists for this milestone", domain.ErrConflict)
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.Dispute{}, err
	}

	next, err := domain.ApplyMilestoneTransition(milestone, domain.MilestoneActionDispute, role, domain.TransitionInput{})
	if err != nil {
		return domain.Dispute{}, err
	}

	now := s.nowFn()
	prior := milestone.Status
	milestone.Status = next
	milestone.UpdatedAt = now
	if err := s.milestones.UpdateWithPrecondition(ctx, milestone, prior); err != nil {
		return domain.Dispute{}, err
	}

	evidence := make([]domain.EvidenceFile, 0, len(input.Evidence))
	for _, f := range input.Evidence {
		evidence = append(evidence, domain.EvidenceFile{
			Filename: strings.TrimSpace(f.Filename),
			FileURL:  strings.TrimSpace(f.FileURL),
		})
	}
	dispute := domain.Dispute{
		DisputeID:   uuid.NewString(),
		ContractID:  contract.ContractID,
		MilestoneID: milestone.MilestoneID,
		OpenedByID:  actor.SubjectID,
		Reason:      strings.TrimSpace(input.Reason),
		Evidence:    evidence,
		Status:      domain.DisputeStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.disputes.Create(ctx, dispute); err != nil {
		return domain.Dispute{}, err
	}

	s.recordTransition(ctx, domain.StateTransition{
		EntityType: domain.EntityTypeDispute,
		EntityID:   dispute.DisputeID,
		ContractID: contract.ContractID,
		ToStatus:   string(domain.DisputeStatusOpen),
		ActorID:    actor.SubjectID,
		Reason:     dispute.Reason,
		Message:    domain.HumanMessage(domain.EventDisputeOpened, milestone.Title, 0),
		OccurredAt: now,
	})
	if err := s.enqueueTransition(ctx, domain.EventDisputeOpened, domain.TransitionEvent{
		ActorID:    actor.SubjectID,
		Action:     "open_dispute",
		EntityType: domain.EntityTypeDispute,
		EntityID:   dispute.DisputeID,
		ContractID: contract.ContractID,
		FromStatus: string(prior),
		ToStatus:   string(domain.DisputeStatusOpen),
		Amount:     milestone.Price,
		Message:    domain.HumanMessage(domain.EventDisputeOpened, milestone.Title, 0),
		OccurredAt: now,
	}); err != nil {
		return domain.Dispute{}, err
	}

	s.completeIdempotency(ctx, actor, 201, dispute)
	return dispute, nil
}

// StartDisputeReview moves an open dispute under arbitration.
func (s *Service) StartDisputeReview(ctx context.Context, actor Actor, disputeID string) (domain.Dispute, error) {
	if err := requireActor(actor); err != nil {
		return domain.Dispute{}, err
	}
	if actor.Role != string(domain.RoleArbitrator) {
		return domain.Dispute{}, fmt.Errorf("%w: only an arbitrator may review disputes", domain.ErrPermissionDenied)
	}
	dispute, err := s.disputes.GetByID(ctx, strings.TrimSpace(disputeID))
	if err != nil {
		return domain.Dispute{}, err
	}
	if err := domain.ValidateDisputeTransition(dispute.Status, domain.DisputeStatusInReview); err != nil {
		return domain.Dispute{}, err
	}

	now := s.nowFn()
	prior := dispute.Status
	dispute.Status = domain.DisputeStatusInReview
	dispute.UpdatedAt = now
	if err := s.disputes.UpdateWithPrecondition(ctx, dispute, prior); err != nil {
		return domain.Dispute{}, err
	}
	s.recordTransition(ctx, domain.StateTransition{
		EntityType: domain.EntityTypeDispute,
		EntityID:   dispute.DisputeID,
		ContractID: dispute.ContractID,
		FromStatus: string(prior),
		ToStatus:   string(domain.DisputeStatusInReview),
		ActorID:    actor.SubjectID,
		OccurredAt: now,
	})
	return dispute, nil
}

// ResolveDispute records the arbitration decision and forces the frozen
// milestone to released or back to held. A release outcome advances the
// payout exactly as a normal approval would.
func (s *Service) ResolveDispute(ctx context.Context, actor Actor, disputeID string, input ResolveDisputeInput) (domain.Dispute, error) {
	if err := requireActor(actor); err != nil {
		return domain.Dispute{}, err
	}
	if actor.Role != string(domain.RoleArbitrator) {
		return domain.Dispute{}, fmt.Errorf("%w: only an arbitrator may resolve disputes", domain.ErrPermissionDenied)
	}
	outcome := domain.NormalizeDisputeOutcome(input.Outcome)
	if outcome == "" {
		return domain.Dispute{}, domain.NewValidationError(domain.FieldViolation{Field: "outcome", Reason: "must be release or reopen"})
	}
	dispute, err := s.disputes.GetByID(ctx, strings.TrimSpace(disputeID))
	if err != nil {
		return domain.Dispute{}, err
	}
	if err := domain.ValidateDisputeTransition(dispute.Status, domain.DisputeStatusResolved); err != nil {
		return domain.Dispute{}, err
	}
	milestone, err := s.milestones.GetByID(ctx, dispute.MilestoneID)
	if err != nil {
		return domain.Dispute{}, err
	}
	contract, err := s.contracts.GetByID(ctx, dispute.ContractID)
	if err != nil {
		return domain.Dispute{}, err
	}

	action, err := domain.MilestoneActionForOutcome(outcome)
	if err != nil {
		return domain.Dispute{}, err
	}
	next, err := domain.ApplyMilestoneTransition(milestone, action, domain.RoleArbitrator, domain.TransitionInput{})
	if err != nil {
		return domain.Dispute{}, err
	}

	now := s.nowFn()
	milestonePrior := milestone.Status
	milestone.Status = next
	milestone.UpdatedAt = now
	if err := s.milestones.UpdateWithPrecondition(ctx, milestone, milestonePrior); err != nil {
		return domain.Dispute{}, err
	}

	disputePrior := dispute.Status
	dispute.Status = domain.DisputeStatusResolved
	dispute.Outcome = outcome
	dispute.ResolutionNotes = strings.TrimSpace(input.Notes)
	dispute.ResolvedByID = actor.SubjectID
	dispute.ResolvedAt = &now
	dispute.UpdatedAt = now
	if err := s.disputes.UpdateWithPrecondition(ctx, dispute, disputePrior); err != nil {
		return domain.Dispute{}, err
	}

	if outcome == domain.DisputeOutcomeRelease {
		if _, err := s.advancePayoutToPending(ctx, milestone, now); err != nil {
			return domain.Dispute{}, err
		}
	}

	s.recordTransition(ctx, domain.StateTransition{
		EntityType: domain.EntityTypeDispute,
		EntityID:   dispute.DisputeID,
		ContractID: dispute.ContractID,
		FromStatus: string(disputePrior),
		ToStatus:   string(domain.DisputeStatusResolved),
		ActorID:    actor.SubjectID,
		Reason:     dispute.ResolutionNotes,
		Message:    domain.HumanMessage(domain.EventDisputeResolved, milestone.Title, 0),
		OccurredAt: now,
	})
	if err := s.enqueueTransition(ctx, domain.EventDisputeResolved, domain.TransitionEvent{
		ActorID:    actor.SubjectID,
		Action:     "resolve_" + string(outcome),
		EntityType: domain.EntityTypeDispute,
		EntityID:   dispute.DisputeID,
		ContractID: dispute.ContractID,
		FromStatus: string(disputePrior),
		ToStatus:   string(domain.DisputeStatusResolved),
		Amount:     milestone.Price,
		Message:    domain.HumanMessage(domain.EventDisputeResolved, milestone.Title, 0),
		OccurredAt: now,
	}); err != nil {
		return domain.Dispute{}, err
	}

	if outcome == domain.DisputeOutcomeRelease {
		if err := s.recomputeContractCompletion(ctx, actor, contract); err != nil {
			return domain.Dispute{}, err
		}
	}
	return dispute, nil
}

// GetDispute returns a dispute for its contract parties or an arbitrator.
func (s *Service) GetDispute(ctx context.Context, actor Actor, disputeID string) (domain.Dispute, error) {
	if err := requireActor(actor); err != nil {
		return domain.Dispute{}, err
	}
	dispute, err := s.disputes.GetByID(ctx, strings.TrimSpace(disputeID))
	if err != nil {
		return domain.Dispute{}, err
	}
	contract, err := s.contracts.GetByID(ctx, dispute.ContractID)
	if err != nil {
		return domain.Dispute{}, err
	}
	if _, err := domain.RoleForActor(contract, domain.ActorRef{SubjectID: actor.SubjectID, Role: actor.Role}); err != nil {
		return domain.Dispute{}, err
	}
	return dispute, nil
}
