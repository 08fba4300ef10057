package domain

import (
	"fmt"
	"time"
)

const (
	CanonicalEventClassDomain        = "domain"
	CanonicalEventClassAnalyticsOnly = "analytics_only"
	CanonicalEventClassOps           = "ops"
)

const (
	EventProposalSent      = "proposal.sent"
	EventProposalCountered = "proposal.countered"
	EventProposalAccepted  = "proposal.accepted"
	EventProposalDeclined  = "proposal.declined"

	EventContractCreated   = "contract.created"
	EventContractCompleted = "contract.completed"
	EventContractCancelled = "contract.cancelled"

	EventMilestoneFunded    = "milestone.funded"
	EventMilestoneSubmitted = "milestone.submitted"
	EventMilestoneReleased  = "milestone.released"
	EventMilestoneReopened  = "milestone.reopened"

	EventDisputeOpened   = "dispute.opened"
	EventDisputeResolved = "dispute.resolved"

	EventPayoutPending = "payout.pending"
	EventPayoutPaid    = "payout.paid"

	EventInvitationCreated  = "invitation.created"
	EventInvitationAccepted = "invitation.accepted"
	EventInvitationDeclined = "invitation.declined"

	EventNDAAccepted = "nda.accepted"
)

// TransitionEvent is the payload every state change produces for the
// notification layer. Delivery is someone else's job; we only build it.
type TransitionEvent struct {
	ActorID    string    `json:"actor_id"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	ContractID string    `json:"contract_id,omitempty"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status,omitempty"`
	Amount     float64   `json:"amount,omitempty"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// HumanMessage renders the chat-thread line for a transition event type.
func HumanMessage(eventType string, title string, amount float64) string {
	switch eventType {
	case EventProposalSent:
		return fmt.Sprintf("Proposal %q sent for $%.2f", title, amount)
	case EventProposalCountered:
		return fmt.Sprintf("Proposal %q countered", title)
	case EventProposalAccepted:
		return fmt.Sprintf("Proposal %q accepted", title)
	case EventProposalDeclined:
		return fmt.Sprintf("Proposal %q declined", title)
	case EventContractCreated:
		return fmt.Sprintf("Contract started for %q, $%.2f total", title, amount)
	case EventContractCompleted:
		return fmt.Sprintf("Contract %q completed", title)
	case EventContractCancelled:
		return fmt.Sprintf("Contract %q cancelled", title)
	case EventMilestoneFunded:
		return fmt.Sprintf("Milestone %q funded, $%.2f held in escrow", title, amount)
	case EventMilestoneSubmitted:
		return fmt.Sprintf("Milestone %q submitted for review", title)
	case EventMilestoneReleased:
		return fmt.Sprintf("Milestone %q released, $%.2f pending payout", title, amount)
	case EventMilestoneReopened:
		return fmt.Sprintf("Milestone %q returned for resubmission", title)
	case EventDisputeOpened:
		return fmt.Sprintf("Dispute opened on milestone %q", title)
	case EventDisputeResolved:
		return fmt.Sprintf("Dispute on milestone %q resolved", title)
	case EventPayoutPending:
		return fmt.Sprintf("Payout of $%.2f pending for %q", amount, title)
	case EventPayoutPaid:
		return fmt.Sprintf("Payout of $%.2f paid for %q", amount, title)
	case EventInvitationCreated:
		return fmt.Sprintf("Invitation sent for %q", title)
	case EventInvitationAccepted:
		return fmt.Sprintf("Invitation for %q accepted", title)
	case EventInvitationDeclined:
		return fmt.Sprintf("Invitation for %q declined", title)
	case EventNDAAccepted:
		return fmt.Sprintf("NDA accepted for %q", title)
	default:
		return eventType
	}
}

// IsCanonicalEmittedEvent reports whether eventType is one this service
// publishes. The outbox refuses anything else.
func IsCanonicalEmittedEvent(eventType string) bool {
	switch eventType {
	case EventProposalSent, EventProposalCountered, EventProposalAccepted, EventProposalDeclined,
		EventContractCreated, EventContractCompleted, EventContractCancelled,
		EventMilestoneFunded, EventMilestoneSubmitted, EventMilestoneReleased, EventMilestoneReopened,
		EventDisputeOpened, EventDisputeResolved,
		EventPayoutPending, EventPayoutPaid,
		EventInvitationCreated, EventInvitationAccepted, EventInvitationDeclined,
		EventNDAAccepted:
		return true
	default:
		return false
	}
}

func CanonicalEventClass(eventType string) string {
	switch eventType {
	case EventContractCreated, EventContractCompleted, EventContractCancelled,
		EventMilestoneFunded, EventMilestoneReleased,
		EventDisputeOpened, EventDisputeResolved,
		EventPayoutPending, EventPayoutPaid:
		return CanonicalEventClassDomain
	case EventProposalSent, EventProposalCountered, EventProposalAccepted, EventProposalDeclined,
		EventMilestoneSubmitted, EventMilestoneReopened,
		EventInvitationCreated, EventInvitationAccepted, EventInvitationDeclined,
		EventNDAAccepted:
		return CanonicalEventClassAnalyticsOnly
	default:
		return ""
	}
}
