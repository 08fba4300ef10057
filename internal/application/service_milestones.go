package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/venturelink/deal-service/internal/domain"
	"github.com/venturelink/deal-service/internal/ports"
)

// MilestoneDetail pairs a milestone with its payout when one exists.
type MilestoneDetail struct {
	Milestone domain.Milestone `json:"milestone"`
	Payout    *domain.Payout   `json:"payout,omitempty"`
}

// FundMilestone escrows the milestone amount. The rail confirmation runs
// first; on rail failure nothing is written, so state never advances past
// a step that depends on an external collaborator.
func (s *Service) FundMilestone(ctx context.Context, actor Actor, milestoneID string) (MilestoneDetail, error) {
	if err := requireActor(actor); err != nil {
		return MilestoneDetail{}, err
	}
	if err := requireIdempotencyKey(actor); err != nil {
		return MilestoneDetail{}, err
	}
	milestone, contract, role, err := s.loadMilestoneForActor(ctx, milestoneID, actor)
	if err != nil {
		return MilestoneDetail{}, err
	}
	if contract.Status != domain.ContractStatusActive {
		return MilestoneDetail{}, fmt.Errorf("%w: contract is %s", domain.ErrInvalidTransition, contract.Status)
	}

	requestHash := hashPayload(map[string]string{"milestone_id": milestone.MilestoneID, "action": "fund"})
	var cached MilestoneDetail
	if ok, err := s.idempotentReplay(ctx, actor, requestHash, &cached); err != nil {
		return MilestoneDetail{}, err
	} else if ok {
		return cached, nil
	}
	if err := s.reserveIdempotency(ctx, actor, requestHash); err != nil {
		return MilestoneDetail{}, err
	}

	// Check the transition is admissible before calling out to the rail.
	// Up to the rail confirmation nothing is written, so every bail-out
	// below also releases the reservation and the key stays retryable.
	if _, err := domain.ApplyMilestoneTransition(milestone, domain.MilestoneActionFund, role, domain.TransitionInput{FundingConfirmed: true}); err != nil {
		s.releaseIdempotency(ctx, actor)
		return MilestoneDetail{}, err
	}
	if s.payments == nil {
		s.releaseIdempotency(ctx, actor)
		return MilestoneDetail{}, fmt.Errorf("%w: payment rail unavailable", domain.ErrExternalDependency)
	}
	hold, err := s.payments.HoldFunds(ctx, ports.HoldFundsRequest{
		ContractID:  contract.ContractID,
		MilestoneID: milestone.MilestoneID,
		PayerID:     actor.SubjectID,
		Amount:      milestone.Price,
		Currency:    s.cfg.DefaultCurrency,
	})
	if err != nil {
		s.releaseIdempotency(ctx, actor)
		return MilestoneDetail{}, fmt.Errorf("%w: %v", domain.ErrExternalDependency, err)
	}
	if !hold.Confirmed {
		s.releaseIdempotency(ctx, actor)
		return MilestoneDetail{}, fmt.Errorf("%w: escrow hold was not confirmed", domain.ErrExternalDependency)
	}

	next, err := domain.ApplyMilestoneTransition(milestone, domain.MilestoneActionFund, role, domain.TransitionInput{FundingConfirmed: hold.Confirmed})
	if err != nil {
		return MilestoneDetail{}, err
	}
	now := s.nowFn()
	prior := milestone.Status
	milestone.Status = next
	milestone.UpdatedAt = now
	if err := s.milestones.UpdateWithPrecondition(ctx, milestone, prior); err != nil {
		return MilestoneDetail{}, err
	}

	payout := domain.Payout{
		PayoutID:    uuid.NewString(),
		ContractID:  contract.ContractID,
		MilestoneID: milestone.MilestoneID,
		Amount:      milestone.Price,
		Currency:    s.cfg.DefaultCurrency,
		Status:      domain.PayoutStatusHeld,
		ReferenceID: hold.ReferenceID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.payouts.Create(ctx, payout); err != nil {
		return MilestoneDetail{}, err
	}

	s.recordTransition(ctx, domain.StateTransition{
		EntityType: domain.EntityTypeMilestone,
		EntityID:   milestone.MilestoneID,
		ContractID: contract.ContractID,
		FromStatus: string(prior),
		ToStatus:   string(next),
		ActorID:    actor.SubjectID,
		Amount:     milestone.Price,
		Message:    domain.HumanMessage(domain.EventMilestoneFunded, milestone.Title, milestone.Price),
		OccurredAt: now,
	})
	if err := s.enqueueTransition(ctx, domain.EventMilestoneFunded, domain.TransitionEvent{
		ActorID:    actor.SubjectID,
		Action:     "fund",
		EntityType: domain.EntityTypeMilestone,
		EntityID:   milestone.MilestoneID,
		ContractID: contract.ContractID,
		FromStatus: string(prior),
		ToStatus:   string(next),
		Amount:     milestone.Price,
		Message:    domain.HumanMessage(domain.EventMilestoneFunded, milestone.Title, milestone.Price),
		OccurredAt: now,
	}); err != nil {
		return MilestoneDetail{}, err
	}

	detail := MilestoneDetail{Milestone: milestone, Payout: &payout}
	s.completeIdempotency(ctx, actor, 200, detail)
	return detail, nil
}

// AttachDeliverable appends to the milestone's deliverable list (append-only,
// performer-owned) and moves a held milestone into review.
func (s *Service) AttachDeliverable(ctx context.Context, actor Actor, milestoneID string, input AttachDeliverableInput) (domain.Milestone, error) {
	if err := requireActor(actor); err != nil {
		return domain.Milestone{}, err
	}
	milestone, contract, role, err := s.loadMilestoneForActor(ctx, milestoneID, actor)
	if err != nil {
		return domain.Milestone{}, err
	}
	if role != domain.RolePerformer {
		return domain.Milestone{}, fmt.Errorf("%w: only the performer may attach deliverables", domain.ErrPermissionDenied)
	}
	violations := make([]domain.FieldViolation, 0, 2)
	if strings.TrimSpace(input.Name) == "" {
		violations = append(violations, domain.FieldViolation{Field: "name", Reason: "must not be empty"})
	}
	if strings.TrimSpace(input.FileURL) == "" {
		violations = append(violations, domain.FieldViolation{Field: "file_url", Reason: "must not be empty"})
	}
	if len(violations) > 0 {
		return domain.Milestone{}, domain.NewValidationError(violations...)
	}
	if milestone.Status != domain.MilestoneStatusHeld && milestone.Status != domain.MilestoneStatusInReview {
		return domain.Milestone{}, fmt.Errorf("%w: milestone is %s, deliverables are closed", domain.ErrInvalidTransition, milestone.Status)
	}

	now := s.nowFn()
	prior := milestone.Status
	milestone.Deliverables = append(milestone.Deliverables, domain.Deliverable{
		Name:       strings.TrimSpace(input.Name),
		FileURL:    strings.TrimSpace(input.FileURL),
		UploadedAt: now,
	})
	if milestone.Status == domain.MilestoneStatusHeld {
		next, err := domain.ApplyMilestoneTransition(milestone, domain.MilestoneActionSubmit, role, domain.TransitionInput{})
		if err != nil {
			return domain.Milestone{}, err
		}
		milestone.Status = next
	}
	milestone.UpdatedAt = now
	if err := s.milestones.UpdateWithPrecondition(ctx, milestone, prior); err != nil {
		return domain.Milestone{}, err
	}

	if milestone.Status != prior {
		s.recordTransition(ctx, domain.StateTransition{
			EntityType: domain.EntityTypeMilestone,
			EntityID:   milestone.MilestoneID,
			ContractID: contract.ContractID,
			FromStatus: string(prior),
			ToStatus:   string(milestone.Status),
			ActorID:    actor.SubjectID,
			Message:    domain.HumanMessage(domain.EventMilestoneSubmitted, milestone.Title, 0),
			OccurredAt: now,
		})
		if err := s.enqueueTransition(ctx, domain.EventMilestoneSubmitted, domain.TransitionEvent{
			ActorID:    actor.SubjectID,
			Action:     "submit_for_review",
			EntityType: domain.EntityTypeMilestone,
			EntityID:   milestone.MilestoneID,
			ContractID: contract.ContractID,
			FromStatus: string(prior),
			ToStatus:   string(milestone.Status),
			Message:    domain.HumanMessage(domain.EventMilestoneSubmitted, milestone.Title, 0),
			OccurredAt: now,
		}); err != nil {
			return domain.Milestone{}, err
		}
	}
	return milestone, nil
}

// ApproveMilestone releases an in-review milestone and advances its payout
// to pending. The precondition update decides concurrent approvals: the
// loser is told the expected status no longer holds.
func (s *Service) ApproveMilestone(ctx context.Context, actor Actor, milestoneID string) (MilestoneDetail, error) {
	if err := requireActor(actor); err != nil {
		return MilestoneDetail{}, err
	}
	milestone, contract, role, err := s.loadMilestoneForActor(ctx, milestoneID, actor)
	if err != nil {
		return MilestoneDetail{}, err
	}
	next, err := domain.ApplyMilestoneTransition(milestone, domain.MilestoneActionApprove, role, domain.TransitionInput{})
	if err != nil {
		return MilestoneDetail{}, err
	}

	now := s.nowFn()
	prior := milestone.Status
	milestone.Status = next
	milestone.UpdatedAt = now
	if err := s.milestones.UpdateWithPrecondition(ctx, milestone, prior); err != nil {
		return MilestoneDetail{}, err
	}

	payout, err := s.advancePayoutToPending(ctx, milestone, now)
	if err != nil {
		return MilestoneDetail{}, err
	}

	s.recordTransition(ctx, domain.StateTransition{
		EntityType: domain.EntityTypeMilestone,
		EntityID:   milestone.MilestoneID,
		ContractID: contract.ContractID,
		FromStatus: string(prior),
		ToStatus:   string(next),
		ActorID:    actor.SubjectID,
		Amount:     milestone.Price,
		Message:    domain.HumanMessage(domain.EventMilestoneReleased, milestone.Title, milestone.Price),
		OccurredAt: now,
	})
	if err := s.enqueueTransition(ctx, domain.EventMilestoneReleased, domain.TransitionEvent{
		ActorID:    actor.SubjectID,
		Action:     "approve",
		EntityType: domain.EntityTypeMilestone,
		EntityID:   milestone.MilestoneID,
		ContractID: contract.ContractID,
		FromStatus: string(prior),
		ToStatus:   string(next),
		Amount:     milestone.Price,
		Message:    domain.HumanMessage(domain.EventMilestoneReleased, milestone.Title, milestone.Price),
		OccurredAt: now,
	}); err != nil {
		return MilestoneDetail{}, err
	}

	if err := s.recomputeContractCompletion(ctx, actor, contract); err != nil {
		return MilestoneDetail{}, err
	}
	return MilestoneDetail{Milestone: milestone, Payout: payout}, nil
}

// RejectMilestone returns an in-review milestone to held for resubmission.
// Notes are mandatory; the deliverable list is untouched.
func (s *Service) RejectMilestone(ctx context.Context, actor Actor, milestoneID string, input RejectMilestoneInput) (domain.Milestone, error) {
	if err := requireActor(actor); err != nil {
		return domain.Milestone{}, err
	}
	milestone, contract, role, err := s.loadMilestoneForActor(ctx, milestoneID, actor)
	if err != nil {
		return domain.Milestone{}, err
	}
	next, err := domain.ApplyMilestoneTransition(milestone, domain.MilestoneActionReject, role, domain.TransitionInput{Notes: input.Notes})
	if err != nil {
		return domain.Milestone{}, err
	}

	now := s.nowFn()
	prior := milestone.Status
	milestone.Status = next
	milestone.ReviewNotes = strings.TrimSpace(input.Notes)
	milestone.UpdatedAt = now
	if err := s.milestones.UpdateWithPrecondition(ctx, milestone, prior); err != nil {
		return domain.Milestone{}, err
	}

	s.recordTransition(ctx, domain.StateTransition{
		EntityType: domain.EntityTypeMilestone,
		EntityID:   milestone.MilestoneID,
		ContractID: contract.ContractID,
		FromStatus: string(prior),
		ToStatus:   string(next),
		ActorID:    actor.SubjectID,
		Reason:     milestone.ReviewNotes,
		Message:    domain.HumanMessage(domain.EventMilestoneReopened, milestone.Title, 0),
		OccurredAt: now,
	})
	if err := s.enqueueTransition(ctx, domain.EventMilestoneReopened, domain.TransitionEvent{
		ActorID:    actor.SubjectID,
		Action:     "reject",
		EntityType: domain.EntityTypeMilestone,
		EntityID:   milestone.MilestoneID,
		ContractID: contract.ContractID,
		FromStatus: string(prior),
		ToStatus:   string(next),
		Message:    domain.HumanMessage(domain.EventMilestoneReopened, milestone.Title, 0),
		OccurredAt: now,
	}); err != nil {
		return domain.Milestone{}, err
	}
	return milestone, nil
}

// GetMilestone returns one milestone with its payout, parties only.
func (s *Service) GetMilestone(ctx context.Context, actor Actor, milestoneID string) (MilestoneDetail, error) {
	if err := requireActor(actor); err != nil {
		return MilestoneDetail{}, err
	}
	milestone, _, _, err := s.loadMilestoneForActor(ctx, milestoneID, actor)
	if err != nil {
		return MilestoneDetail{}, err
	}
	detail := MilestoneDetail{Milestone: milestone}
	if payout, err := s.payouts.GetByMilestoneID(ctx, milestone.MilestoneID); err == nil {
		detail.Payout = &payout
	} else if !errors.Is(err, domain.ErrNotFound) {
		return MilestoneDetail{}, err
	}
	return detail, nil
}

// advancePayoutToPending moves the milestone's payout held -> pending after
// a release. Missing payout on a funded milestone is a data fault, not a
// skippable condition.
func (s *Service) advancePayoutToPending(ctx context.Context, milestone domain.Milestone, now time.Time) (*domain.Payout, error) {
	payout, err := s.payouts.GetByMilestoneID(ctx, milestone.MilestoneID)
	if err != nil {
		return nil, err
	}
	if payout.Status != domain.PayoutStatusHeld {
		// Already advanced by an earlier release of this milestone.
		return &payout, nil
	}
	prior := payout.Status
	payout.Status = domain.PayoutStatusPending
	payout.PendingAt = &now
	payout.UpdatedAt = now
	if err := s.payouts.UpdateWithPrecondition(ctx, payout, prior); err != nil {
		return nil, err
	}
	if err := s.enqueueTransition(ctx, domain.EventPayoutPending, domain.TransitionEvent{
		ActorID:    "system",
		Action:     "payout_pending",
		EntityType: domain.EntityTypePayout,
		EntityID:   payout.PayoutID,
		ContractID: payout.ContractID,
		FromStatus: string(prior),
		ToStatus:   string(domain.PayoutStatusPending),
		Amount:     payout.Amount,
		Message:    domain.HumanMessage(domain.EventPayoutPending, milestone.Title, payout.Amount),
		OccurredAt: now,
	}); err != nil {
		return nil, err
	}
	return &payout, nil
}

// recomputeContractCompletion marks the contract completed once every
// milestone has been released.
func (s *Service) recomputeContractCompletion(ctx context.Context, actor Actor, contract domain.Contract) error {
	milestones, err := s.milestones.ListByContractID(ctx, contract.ContractID)
	if err != nil {
		return err
	}
	if !domain.ContractComplete(milestones) {
		return nil
	}
	if contract.Status != domain.ContractStatusActive {
		return nil
	}

	now := s.nowFn()
	prior := contract.Status
	contract.Status = domain.ContractStatusCompleted
	contract.CompletedAt = &now
	contract.UpdatedAt = now
	if err := s.contracts.UpdateWithPrecondition(ctx, contract, prior); err != nil {
		// A concurrent recompute already completed it; that is the outcome we wanted.
		if errors.Is(err, domain.ErrPreconditionFailed) {
			return nil
		}
		return err
	}

	s.recordTransition(ctx, domain.StateTransition{
		EntityType: domain.EntityTypeContract,
		EntityID:   contract.ContractID,
		ContractID: contract.ContractID,
		FromStatus: string(prior),
		ToStatus:   string(domain.ContractStatusCompleted),
		ActorID:    actor.SubjectID,
		Amount:     contract.TotalAmount,
		Message:    domain.HumanMessage(domain.EventContractCompleted, contract.Title, 0),
		OccurredAt: now,
	})
	return s.enqueueTransition(ctx, domain.EventContractCompleted, domain.TransitionEvent{
		ActorID:    actor.SubjectID,
		Action:     "complete",
		EntityType: domain.EntityTypeContract,
		EntityID:   contract.ContractID,
		ContractID: contract.ContractID,
		FromStatus: string(prior),
		ToStatus:   string(domain.ContractStatusCompleted),
		Amount:     contract.TotalAmount,
		Message:    domain.HumanMessage(domain.EventContractCompleted, contract.Title, 0),
		OccurredAt: now,
	})
}

// loadMilestoneForActor fetches the milestone, its contract, and resolves
// the actor's role against the contract's party pair.
func (s *Service) loadMilestoneForActor(ctx context.Context, milestoneID string, actor Actor) (domain.Milestone, domain.Contract, domain.PartyRole, error) {
	milestone, err := s.milestones.GetByID(ctx, strings.TrimSpace(milestoneID))
	if err != nil {
		return domain.Milestone{}, domain.Contract{}, "", err
	}
	if milestone.ContractID == "" {
		return domain.Milestone{}, domain.Contract{}, "", fmt.Errorf("%w: milestone is not attached to a contract", domain.ErrInvalidTransition)
	}
	contract, err := s.contracts.GetByID(ctx, milestone.ContractID)
	if err != nil {
		return domain.Milestone{}, domain.Contract{}, "", err
	}
	role, err := domain.RoleForActor(contract, domain.ActorRef{SubjectID: actor.SubjectID, Role: actor.Role})
	if err != nil {
		return domain.Milestone{}, domain.Contract{}, "", err
	}
	return milestone, contract, role, nil
}
