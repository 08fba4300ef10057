package domain

import (
	"fmt"
	"time"
)

type PayoutStatus string

const (
	PayoutStatusHeld    PayoutStatus = "held"
	PayoutStatusPending PayoutStatus = "pending"
	PayoutStatusPaid    PayoutStatus = "paid"
)

// Payout tracks the money owed on one milestone. It is created held the
// moment the milestone is funded, moves to pending when the milestone is
// released, and to paid only when the payment rail confirms settlement.
// The rail's transfer itself is outside this service; we record the result.
type Payout struct {
	PayoutID    string       `json:"payout_id"`
	ContractID  string       `json:"contract_id"`
	MilestoneID string       `json:"milestone_id"`
	Amount      float64      `json:"amount"`
	Currency    string       `json:"currency"`
	Status      PayoutStatus `json:"status"`
	ReferenceID string       `json:"reference_id,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	PendingAt   *time.Time   `json:"pending_at,omitempty"`
	PaidAt      *time.Time   `json:"paid_at,omitempty"`
}

func ValidatePayoutTransition(from, to PayoutStatus) error {
	switch {
	case from == PayoutStatusHeld && to == PayoutStatusPending:
		return nil
	case from == PayoutStatusPending && to == PayoutStatusPaid:
		return nil
	default:
		return fmt.Errorf("%w: payout is %s, cannot become %s", ErrInvalidTransition, from, to)
	}
}
