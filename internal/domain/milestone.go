package domain

import (
	"fmt"
	"strings"
	"time"
)

type MilestoneStatus string

const (
	MilestoneStatusNotFunded MilestoneStatus = "not_funded"
	MilestoneStatusHeld      MilestoneStatus = "held"
	MilestoneStatusInReview  MilestoneStatus = "in_review"
	MilestoneStatusReleased  MilestoneStatus = "released"
	MilestoneStatusDisputed  MilestoneStatus = "disputed"
)

type MilestoneAction string

const (
	MilestoneActionFund           MilestoneAction = "fund"
	MilestoneActionSubmit         MilestoneAction = "submit_for_review"
	MilestoneActionApprove        MilestoneAction = "approve"
	MilestoneActionReject         MilestoneAction = "reject"
	MilestoneActionDispute        MilestoneAction = "dispute"
	MilestoneActionResolveRelease MilestoneAction = "resolve_release"
	MilestoneActionResolveReopen  MilestoneAction = "resolve_reopen"
)

// PartyRole is the actor's role relative to a specific contract, resolved
// from the authenticated subject against the contract's party pair.
type PartyRole string

const (
	RoleRequester  PartyRole = "requester"
	RolePerformer  PartyRole = "performer"
	RoleArbitrator PartyRole = "arbitrator"
)

type Deliverable struct {
	Name       string    `json:"name"`
	FileURL    string    `json:"file_url"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type Milestone struct {
	MilestoneID  string          `json:"milestone_id"`
	ProposalID   string          `json:"proposal_id,omitempty"`
	ContractID   string          `json:"contract_id,omitempty"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	DueAt        time.Time       `json:"due_at"`
	Price        float64         `json:"price"`
	Status       MilestoneStatus `json:"status"`
	Deliverables []Deliverable   `json:"deliverables,omitempty"`
	ReviewNotes  string          `json:"review_notes,omitempty"`
	Position     int             `json:"position"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type milestoneTransition struct {
	from  map[MilestoneStatus]bool
	to    MilestoneStatus
	roles map[PartyRole]bool
	guard func(m Milestone, input TransitionInput) error
}

// TransitionInput carries the action-specific evidence a guard inspects.
type TransitionInput struct {
	Notes            string
	FundingConfirmed bool
}

var milestoneTransitions = map[MilestoneAction]milestoneTransition{
	MilestoneActionFund: {
		from:  map[MilestoneStatus]bool{MilestoneStatusNotFunded: true},
		to:    MilestoneStatusHeld,
		roles: map[PartyRole]bool{RoleRequester: true},
		guard: func(_ Milestone, input TransitionInput) error {
			if !input.FundingConfirmed {
				return fmt.Errorf("%w: escrow confirmation missing", ErrExternalDependency)
			}
			return nil
		},
	},
	MilestoneActionSubmit: {
		from:  map[MilestoneStatus]bool{MilestoneStatusHeld: true},
		to:    MilestoneStatusInReview,
		roles: map[PartyRole]bool{RolePerformer: true},
		guard: func(m Milestone, _ TransitionInput) error {
			if len(m.Deliverables) == 0 {
				return NewValidationError(FieldViolation{Field: "deliverables", Reason: "at least one deliverable is required before review"})
			}
			return nil
		},
	},
	MilestoneActionApprove: {
		from:  map[MilestoneStatus]bool{MilestoneStatusInReview: true},
		to:    MilestoneStatusReleased,
		roles: map[PartyRole]bool{RoleRequester: true},
	},
	MilestoneActionReject: {
		from:  map[MilestoneStatus]bool{MilestoneStatusInReview: true},
		to:    MilestoneStatusHeld,
		roles: map[PartyRole]bool{RoleRequester: true},
		guard: func(_ Milestone, input TransitionInput) error {
			if strings.TrimSpace(input.Notes) == "" {
				return NewValidationError(FieldViolation{Field: "notes", Reason: "rejection notes are required"})
			}
			return nil
		},
	},
	MilestoneActionDispute: {
		from:  map[MilestoneStatus]bool{MilestoneStatusHeld: true, MilestoneStatusInReview: true},
		to:    MilestoneStatusDisputed,
		roles: map[PartyRole]bool{RoleRequester: true, RolePerformer: true},
	},
	MilestoneActionResolveRelease: {
		from:  map[MilestoneStatus]bool{MilestoneStatusDisputed: true},
		to:    MilestoneStatusReleased,
		roles: map[PartyRole]bool{RoleArbitrator: true},
	},
	MilestoneActionResolveReopen: {
		from:  map[MilestoneStatus]bool{MilestoneStatusDisputed: true},
		to:    MilestoneStatusHeld,
		roles: map[PartyRole]bool{RoleArbitrator: true},
	},
}

// ApplyMilestoneTransition evaluates one row of the transition table without
// touching storage. Callers persist the returned status with the current
// status as precondition; the single-row conditional update is the
// serialization point for concurrent transitions.
func ApplyMilestoneTransition(m Milestone, action MilestoneAction, role PartyRole, input TransitionInput) (MilestoneStatus, error) {
	t, ok := milestoneTransitions[action]
	if !ok {
		return "", fmt.Errorf("%w: unknown milestone action %q", ErrInvalidInput, action)
	}
	if !t.roles[role] {
		return "", fmt.Errorf("%w: role %q may not %s a milestone", ErrPermissionDenied, role, action)
	}
	if !t.from[m.Status] {
		return "", fmt.Errorf("%w: milestone is %s, cannot %s", ErrInvalidTransition, m.Status, action)
	}
	if t.guard != nil {
		if err := t.guard(m, input); err != nil {
			return "", err
		}
	}
	return t.to, nil
}

// MilestoneTerminal reports whether no further transitions exist for a status.
func MilestoneTerminal(status MilestoneStatus) bool {
	return status == MilestoneStatusReleased
}

func ValidMilestoneStatus(raw string) bool {
	switch MilestoneStatus(raw) {
	case MilestoneStatusNotFunded, MilestoneStatusHeld, MilestoneStatusInReview, MilestoneStatusReleased, MilestoneStatusDisputed:
		return true
	default:
		return false
	}
}
