package domain

import (
	"fmt"
	"strings"
	"time"
)

type DisputeStatus string

const (
	DisputeStatusOpen     DisputeStatus = "open"
	DisputeStatusInReview DisputeStatus = "in_review"
	DisputeStatusResolved DisputeStatus = "resolved"
)

type DisputeOutcome string

const (
	DisputeOutcomeRelease DisputeOutcome = "release"
	DisputeOutcomeReopen  DisputeOutcome = "reopen"
)

type EvidenceFile struct {
	Filename string `json:"filename"`
	FileURL  string `json:"file_url"`
}

// Dispute attaches to exactly one (contract, milestone) pair. While it is
// unresolved the milestone and its payout are frozen; resolution reassigns
// the milestone to released or held.
type Dispute struct {
	DisputeID       string         `json:"dispute_id"`
	ContractID      string         `json:"contract_id"`
	MilestoneID     string         `json:"milestone_id"`
	OpenedByID      string         `json:"opened_by_id"`
	Reason          string         `json:"reason"`
	Evidence        []EvidenceFile `json:"evidence,omitempty"`
	Status          DisputeStatus  `json:"status"`
	Outcome         DisputeOutcome `json:"outcome,omitempty"`
	ResolutionNotes string         `json:"resolution_notes,omitempty"`
	ResolvedByID    string         `json:"resolved_by_id,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	ResolvedAt      *time.Time     `json:"resolved_at,omitempty"`
}

var disputeTransitions = map[DisputeStatus]map[DisputeStatus]bool{
	DisputeStatusOpen:     {DisputeStatusInReview: true, DisputeStatusResolved: true},
	DisputeStatusInReview: {DisputeStatusResolved: true},
}

func ValidateDisputeTransition(from, to DisputeStatus) error {
	if next, ok := disputeTransitions[from]; ok && next[to] {
		return nil
	}
	return fmt.Errorf("%w: dispute is %s, cannot become %s", ErrInvalidTransition, from, to)
}

func ValidateDisputeReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return NewValidationError(FieldViolation{Field: "reason", Reason: "must not be empty"})
	}
	return nil
}

func NormalizeDisputeOutcome(raw string) DisputeOutcome {
	switch DisputeOutcome(strings.ToLower(strings.TrimSpace(raw))) {
	case DisputeOutcomeRelease:
		return DisputeOutcomeRelease
	case DisputeOutcomeReopen:
		return DisputeOutcomeReopen
	default:
		return ""
	}
}

// MilestoneActionForOutcome maps a resolution decision onto the milestone
// transition it forces.
func MilestoneActionForOutcome(outcome DisputeOutcome) (MilestoneAction, error) {
	switch outcome {
	case DisputeOutcomeRelease:
		return MilestoneActionResolveRelease, nil
	case DisputeOutcomeReopen:
		return MilestoneActionResolveReopen, nil
	default:
		return "", fmt.Errorf("%w: unknown dispute outcome %q", ErrInvalidInput, outcome)
	}
}
