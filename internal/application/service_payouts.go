package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/venturelink/deal-service/internal/domain"
)

// ConfirmPayoutPaid records the payment rail's settlement confirmation.
// The rail initiates the transfer; this service only records the result,
// and only for payouts it had already marked pending.
func (s *Service) ConfirmPayoutPaid(ctx context.Context, input PaymentConfirmationInput) (domain.Payout, error) {
	payoutID := strings.TrimSpace(input.PayoutID)
	if payoutID == "" {
		return domain.Payout{}, fmt.Errorf("%w: payout_id is required", domain.ErrInvalidInput)
	}
	payout, err := s.payouts.GetByID(ctx, payoutID)
	if err != nil {
		return domain.Payout{}, err
	}
	if payout.Status == domain.PayoutStatusPaid {
		// Duplicate confirmation from the rail is a no-op.
		return payout, nil
	}
	if err := domain.ValidatePayoutTransition(payout.Status, domain.PayoutStatusPaid); err != nil {
		return domain.Payout{}, err
	}

	now := s.nowFn()
	prior := payout.Status
	payout.Status = domain.PayoutStatusPaid
	payout.PaidAt = &now
	payout.UpdatedAt = now
	if ref := strings.TrimSpace(input.ReferenceID); ref != "" {
		payout.ReferenceID = ref
	}
	if err := s.payouts.UpdateWithPrecondition(ctx, payout, prior); err != nil {
		return domain.Payout{}, err
	}

	milestoneTitle := payout.MilestoneID
	if milestone, err := s.milestones.GetByID(ctx, payout.MilestoneID); err == nil {
		milestoneTitle = milestone.Title
	}
	s.recordTransition(ctx, domain.StateTransition{
		EntityType: domain.EntityTypePayout,
		EntityID:   payout.PayoutID,
		ContractID: payout.ContractID,
		FromStatus: string(prior),
		ToStatus:   string(domain.PayoutStatusPaid),
		ActorID:    "payment-rail",
		Amount:     payout.Amount,
		Message:    domain.HumanMessage(domain.EventPayoutPaid, milestoneTitle, payout.Amount),
		OccurredAt: now,
	})
	if err := s.enqueueTransition(ctx, domain.EventPayoutPaid, domain.TransitionEvent{
		ActorID:    "payment-rail",
		Action:     "confirm_paid",
		EntityType: domain.EntityTypePayout,
		EntityID:   payout.PayoutID,
		ContractID: payout.ContractID,
		FromStatus: string(prior),
		ToStatus:   string(domain.PayoutStatusPaid),
		Amount:     payout.Amount,
		Message:    domain.HumanMessage(domain.EventPayoutPaid, milestoneTitle, payout.Amount),
		OccurredAt: now,
	}); err != nil {
		return domain.Payout{}, err
	}
	return payout, nil
}

func (s *Service) ListPayouts(ctx context.Context, actor Actor, contractID string) ([]domain.Payout, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	contract, err := s.contracts.GetByID(ctx, strings.TrimSpace(contractID))
	if err != nil {
		return nil, err
	}
	if _, err := domain.RoleForActor(contract, domain.ActorRef{SubjectID: actor.SubjectID, Role: actor.Role}); err != nil {
		return nil, err
	}
	return s.payouts.ListByContractID(ctx, contract.ContractID)
}
