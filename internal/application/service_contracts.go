package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/venturelink/deal-service/internal/domain"
)

// ContractDetail is the contract with its milestone snapshot and payouts.
type ContractDetail struct {
	Contract   domain.Contract    `json:"contract"`
	Milestones []domain.Milestone `json:"milestones"`
	Payouts    []domain.Payout    `json:"payouts,omitempty"`
}

func (s *Service) GetContract(ctx context.Context, actor Actor, contractID string) (ContractDetail, error) {
	if err := requireActor(actor); err != nil {
		return ContractDetail{}, err
	}
	contract, err := s.contracts.GetByID(ctx, strings.TrimSpace(contractID))
	if err != nil {
		return ContractDetail{}, err
	}
	if _, err := domain.RoleForActor(contract, domain.ActorRef{SubjectID: actor.SubjectID, Role: actor.Role}); err != nil {
		return ContractDetail{}, err
	}
	milestones, err := s.milestones.ListByContractID(ctx, contract.ContractID)
	if err != nil {
		return ContractDetail{}, err
	}
	payouts, err := s.payouts.ListByContractID(ctx, contract.ContractID)
	if err != nil {
		return ContractDetail{}, err
	}
	return ContractDetail{Contract: contract, Milestones: milestones, Payouts: payouts}, nil
}

func (s *Service) ListContracts(ctx context.Context, actor Actor, limit int) ([]domain.Contract, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.contracts.ListByParty(ctx, actor.SubjectID, limit)
}

// CancelContract is the terminal failure path, reachable from active only.
// A completed contract can never be cancelled.
func (s *Service) CancelContract(ctx context.Context, actor Actor, contractID string, reason string) (domain.Contract, error) {
	if err := requireActor(actor); err != nil {
		return domain.Contract{}, err
	}
	contract, err := s.contracts.GetByID(ctx, strings.TrimSpace(contractID))
	if err != nil {
		return domain.Contract{}, err
	}
	role, err := domain.RoleForActor(contract, domain.ActorRef{SubjectID: actor.SubjectID, Role: actor.Role})
	if err != nil {
		return domain.Contract{}, err
	}
	if role == domain.RoleArbitrator {
		return domain.Contract{}, fmt.Errorf("%w: only a contract party may cancel", domain.ErrPermissionDenied)
	}
	if err := domain.ValidateContractTransition(contract.Status, domain.ContractStatusCancelled); err != nil {
		return domain.Contract{}, err
	}

	now := s.nowFn()
	prior := contract.Status
	contract.Status = domain.ContractStatusCancelled
	contract.CancelledAt = &now
	contract.UpdatedAt = now
	if err := s.contracts.UpdateWithPrecondition(ctx, contract, prior); err != nil {
		return domain.Contract{}, err
	}

	s.recordTransition(ctx, domain.StateTransition{
		EntityType: domain.EntityTypeContract,
		EntityID:   contract.ContractID,
		ContractID: contract.ContractID,
		FromStatus: string(prior),
		ToStatus:   string(domain.ContractStatusCancelled),
		ActorID:    actor.SubjectID,
		Reason:     strings.TrimSpace(reason),
		Message:    domain.HumanMessage(domain.EventContractCancelled, contract.Title, 0),
		OccurredAt: now,
	})
	if err := s.enqueueTransition(ctx, domain.EventContractCancelled, domain.TransitionEvent{
		ActorID:    actor.SubjectID,
		Action:     "cancel",
		EntityType: domain.EntityTypeContract,
		EntityID:   contract.ContractID,
		ContractID: contract.ContractID,
		FromStatus: string(prior),
		ToStatus:   string(domain.ContractStatusCancelled),
		Message:    domain.HumanMessage(domain.EventContractCancelled, contract.Title, 0),
		OccurredAt: now,
	}); err != nil {
		return domain.Contract{}, err
	}
	return contract, nil
}

// ContractStatusSummary is the internal cross-service view of a contract.
type ContractStatusSummary struct {
	ContractID       string
	ProposalID       string
	RequesterID      string
	PerformerID      string
	Status           domain.ContractStatus
	TotalAmount      float64
	MilestonesTotal  int
	MilestonesClosed int
}

// ContractStatus serves internal lookups from peer services. Callers are
// trusted service identities, so no party check applies here.
func (s *Service) ContractStatus(ctx context.Context, contractID string) (ContractStatusSummary, error) {
	contract, err := s.contracts.GetByID(ctx, strings.TrimSpace(contractID))
	if err != nil {
		return ContractStatusSummary{}, err
	}
	milestones, err := s.milestones.ListByContractID(ctx, contract.ContractID)
	if err != nil {
		return ContractStatusSummary{}, err
	}
	closed := 0
	for _, m := range milestones {
		if m.Status == domain.MilestoneStatusReleased {
			closed++
		}
	}
	return ContractStatusSummary{
		ContractID:       contract.ContractID,
		ProposalID:       contract.ProposalID,
		RequesterID:      contract.RequesterID,
		PerformerID:      contract.PerformerID,
		Status:           contract.Status,
		TotalAmount:      contract.TotalAmount,
		MilestonesTotal:  len(milestones),
		MilestonesClosed: closed,
	}, nil
}

// ContractFeed returns the activity history rows backing the chat thread.
func (s *Service) ContractFeed(ctx context.Context, actor Actor, contractID string) ([]domain.StateTransition, error) {
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
	return s.history.ListByContractID(ctx, contract.ContractID, s.cfg.HistoryFeedLimit)
}
