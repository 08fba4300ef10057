package unit

import (
	"testing"

	"github.com/venturelink/deal-service/internal/domain"
)

var emittedEventTypes = []string{
	domain.EventProposalSent,
	domain.EventProposalCountered,
	domain.EventProposalAccepted,
	domain.EventProposalDeclined,
	domain.EventContractCreated,
	domain.EventContractCompleted,
	domain.EventContractCancelled,
	domain.EventMilestoneFunded,
	domain.EventMilestoneSubmitted,
	domain.EventMilestoneReleased,
	domain.EventMilestoneReopened,
	domain.EventDisputeOpened,
	domain.EventDisputeResolved,
	domain.EventPayoutPending,
	domain.EventPayoutPaid,
	domain.EventInvitationCreated,
	domain.EventInvitationAccepted,
	domain.EventInvitationDeclined,
	domain.EventNDAAccepted,
}

func TestEveryEmittedEventIsClassified(t *testing.T) {
	t.Parallel()

	for _, eventType := range emittedEventTypes {
		if !domain.IsCanonicalEmittedEvent(eventType) {
			t.Fatalf("%s not recognised as an emitted event", eventType)
		}
		if domain.CanonicalEventClass(eventType) == "" {
			t.Fatalf("%s has no event class", eventType)
		}
		if domain.HumanMessage(eventType, "Landing page", 500) == eventType {
			t.Fatalf("%s has no chat-thread rendering", eventType)
		}
	}
}

func TestUnknownEventTypeIsRejected(t *testing.T) {
	t.Parallel()

	for _, eventType := range []string{"", "milestone.deleted", "MILESTONE.FUNDED", "payment.confirmed"} {
		if domain.IsCanonicalEmittedEvent(eventType) {
			t.Fatalf("%q should not be an emitted event", eventType)
		}
		if class := domain.CanonicalEventClass(eventType); class != "" {
			t.Fatalf("%q classified as %q, want empty", eventType, class)
		}
	}
}
