package domain

import "time"

// StateTransition is one audit row recorded for every status change on a
// proposal, contract, milestone, payout, dispute, or invitation.
type StateTransition struct {
	TransitionID string    `json:"transition_id"`
	EntityType   string    `json:"entity_type"`
	EntityID     string    `json:"entity_id"`
	ContractID   string    `json:"contract_id,omitempty"`
	FromStatus   string    `json:"from_status,omitempty"`
	ToStatus     string    `json:"to_status"`
	ActorID      string    `json:"actor_id"`
	Reason       string    `json:"reason,omitempty"`
	Amount       float64   `json:"amount,omitempty"`
	Message      string    `json:"message,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

const (
	EntityTypeProposal   = "proposal"
	EntityTypeContract   = "contract"
	EntityTypeMilestone  = "milestone"
	EntityTypePayout     = "payout"
	EntityTypeDispute    = "dispute"
	EntityTypeInvitation = "invitation"
	EntityTypeNDA        = "nda"
)
