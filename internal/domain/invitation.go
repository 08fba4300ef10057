package domain

import (
	"fmt"
	"time"
)

type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusDeclined InvitationStatus = "declined"
)

// Invitation is the requester-to-performer side channel. Accepting one
// seeds a draft proposal for the pair; it never touches the milestone
// machine itself.
type Invitation struct {
	InvitationID string           `json:"invitation_id"`
	RequesterID  string           `json:"requester_id"`
	PerformerID  string           `json:"performer_id"`
	Title        string           `json:"title"`
	Message      string           `json:"message,omitempty"`
	NDARequired  bool             `json:"nda_required"`
	Status       InvitationStatus `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	DecidedAt    *time.Time       `json:"decided_at,omitempty"`
}

func ValidateInvitationTransition(from, to InvitationStatus) error {
	if from == InvitationStatusPending && (to == InvitationStatusAccepted || to == InvitationStatusDeclined) {
		return nil
	}
	return fmt.Errorf("%w: invitation is %s, cannot become %s", ErrInvalidTransition, from, to)
}
