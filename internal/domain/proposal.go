package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type ProposalStatus string

const (
	ProposalStatusDraft     ProposalStatus = "draft"
	ProposalStatusSent      ProposalStatus = "sent"
	ProposalStatusCountered ProposalStatus = "countered"
	ProposalStatusAccepted  ProposalStatus = "accepted"
	ProposalStatusDeclined  ProposalStatus = "declined"
)

type Proposal struct {
	ProposalID   string         `json:"proposal_id"`
	RequesterID  string         `json:"requester_id"`
	PerformerID  string         `json:"performer_id"`
	InvitationID string         `json:"invitation_id,omitempty"`
	Title        string         `json:"title"`
	TotalAmount  float64        `json:"total_amount"`
	Status       ProposalStatus `json:"status"`
	CounterNotes string         `json:"counter_notes,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	SentAt       *time.Time     `json:"sent_at,omitempty"`
	DecidedAt    *time.Time     `json:"decided_at,omitempty"`
}

var proposalTransitions = map[ProposalStatus]map[ProposalStatus]bool{
	ProposalStatusDraft:     {ProposalStatusSent: true},
	ProposalStatusSent:      {ProposalStatusAccepted: true, ProposalStatusDeclined: true, ProposalStatusCountered: true},
	ProposalStatusCountered: {ProposalStatusSent: true, ProposalStatusDeclined: true},
}

func ValidateProposalTransition(from, to ProposalStatus) error {
	if next, ok := proposalTransitions[from]; ok && next[to] {
		return nil
	}
	return fmt.Errorf("%w: proposal is %s, cannot become %s", ErrInvalidTransition, from, to)
}

// ValidateProposalForSubmit checks all submit preconditions in one pass and
// reports the complete violation set rather than failing on the first field.
func ValidateProposalForSubmit(p Proposal, milestones []Milestone, now time.Time) error {
	violations := make([]FieldViolation, 0)
	if strings.TrimSpace(p.Title) == "" {
		violations = append(violations, FieldViolation{Field: "title", Reason: "must not be empty"})
	}
	if len(milestones) == 0 {
		violations = append(violations, FieldViolation{Field: "milestones", Reason: "at least one milestone is required"})
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var sum float64
	for i, m := range milestones {
		prefix := fmt.Sprintf("milestones[%d].", i)
		if strings.TrimSpace(m.Title) == "" {
			violations = append(violations, FieldViolation{Field: prefix + "title", Reason: "must not be empty"})
		}
		if m.DueAt.Before(today) {
			violations = append(violations, FieldViolation{Field: prefix + "due_at", Reason: "due date must not be in the past"})
		}
		if m.Price <= 0 {
			violations = append(violations, FieldViolation{Field: prefix + "price", Reason: "price must be positive"})
		}
		sum += m.Price
	}
	if len(milestones) > 0 {
		if v, mismatch := totalAmountViolation(p.TotalAmount, sum); mismatch {
			violations = append(violations, v)
		}
	}
	if len(violations) > 0 {
		return NewValidationError(violations...)
	}
	return nil
}

// ValidateProposalAmounts enforces the pricing invariant on drafts: whenever
// milestones are present their prices must sum to the declared total. Runs
// at creation and on every revision, so a stored draft can never carry a
// mismatched total. Drafts without milestones, such as the empty proposal an
// accepted invitation seeds, are exempt until milestones arrive.
func ValidateProposalAmounts(totalAmount float64, milestones []Milestone) error {
	if len(milestones) == 0 {
		return nil
	}
	if v, mismatch := totalAmountViolation(totalAmount, MilestoneSum(milestones)); mismatch {
		return NewValidationError(v)
	}
	return nil
}

// totalAmountViolation compares within a half-cent tolerance so float
// accumulation over many milestones cannot trip the invariant.
func totalAmountViolation(totalAmount, sum float64) (FieldViolation, bool) {
	if math.Abs(sum-totalAmount) <= 0.005 {
		return FieldViolation{}, false
	}
	return FieldViolation{
		Field:  "total_amount",
		Reason: fmt.Sprintf("declared total %.2f does not equal milestone sum %.2f", totalAmount, sum),
	}, true
}

// MilestoneSum returns the sum of milestone prices for invariant checks.
func MilestoneSum(milestones []Milestone) float64 {
	var sum float64
	for _, m := range milestones {
		sum += m.Price
	}
	return sum
}
