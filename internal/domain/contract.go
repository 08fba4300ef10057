package domain

import (
	"fmt"
	"time"
)

type ContractStatus string

const (
	ContractStatusActive    ContractStatus = "active"
	ContractStatusCompleted ContractStatus = "completed"
	ContractStatusCancelled ContractStatus = "cancelled"
)

// Contract is created exactly once from an accepted proposal and carries a
// snapshot of the milestone list at acceptance time. Later milestone edits
// happen on the contract's rows, never the proposal's.
type Contract struct {
	ContractID  string         `json:"contract_id"`
	ProposalID  string         `json:"proposal_id"`
	RequesterID string         `json:"requester_id"`
	PerformerID string         `json:"performer_id"`
	Title       string         `json:"title"`
	TotalAmount float64        `json:"total_amount"`
	Status      ContractStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	CancelledAt *time.Time     `json:"cancelled_at,omitempty"`
}

func ValidateContractTransition(from, to ContractStatus) error {
	switch {
	case from == ContractStatusActive && to == ContractStatusCompleted:
		return nil
	case from == ContractStatusActive && to == ContractStatusCancelled:
		return nil
	default:
		return fmt.Errorf("%w: contract is %s, cannot become %s", ErrInvalidTransition, from, to)
	}
}

// ContractComplete reports whether every milestone has been released.
func ContractComplete(milestones []Milestone) bool {
	if len(milestones) == 0 {
		return false
	}
	for _, m := range milestones {
		if m.Status != MilestoneStatusReleased {
			return false
		}
	}
	return true
}

// RoleForActor resolves the actor's role relative to a contract's party
// pair. Arbitrators are recognized by actor role, not party membership.
func RoleForActor(contract Contract, actor ActorRef) (PartyRole, error) {
	if actor.Role == string(RoleArbitrator) {
		return RoleArbitrator, nil
	}
	switch actor.SubjectID {
	case contract.RequesterID:
		return RoleRequester, nil
	case contract.PerformerID:
		return RolePerformer, nil
	default:
		return "", fmt.Errorf("%w: subject is not a party to this contract", ErrPermissionDenied)
	}
}

// ActorRef is the minimal identity a domain rule needs to place an actor.
type ActorRef struct {
	SubjectID string
	Role      string
}
