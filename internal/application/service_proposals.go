package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/venturelink/deal-service/internal/domain"
)

// ProposalDetail pairs a proposal with its current milestone list.
type ProposalDetail struct {
	Proposal   domain.Proposal    `json:"proposal"`
	Milestones []domain.Milestone `json:"milestones"`
}

// AcceptProposalResult reports the contract spawned (or found) by an accept.
type AcceptProposalResult struct {
	Proposal   domain.Proposal    `json:"proposal"`
	Contract   domain.Contract    `json:"contract"`
	Milestones []domain.Milestone `json:"milestones"`
}

// CreateProposal drafts a proposal with its milestone list. The performer
// is the author; nothing is visible to the requester until submit.
func (s *Service) CreateProposal(ctx context.Context, actor Actor, input CreateProposalInput) (ProposalDetail, error) {
	if err := requireActor(actor); err != nil {
		return ProposalDetail{}, err
	}
	if err := requireIdempotencyKey(actor); err != nil {
		return ProposalDetail{}, err
	}
	input.RequesterID = strings.TrimSpace(input.RequesterID)
	input.Title = strings.TrimSpace(input.Title)
	if input.RequesterID == "" {
		return ProposalDetail{}, fmt.Errorf("%w: requester_id is required", domain.ErrInvalidInput)
	}
	if input.RequesterID == actor.SubjectID {
		return ProposalDetail{}, fmt.Errorf("%w: requester and performer must differ", domain.ErrInvalidInput)
	}

	now := s.nowFn()
	milestones := buildMilestones("", input.Milestones, now)
	if err := domain.ValidateProposalAmounts(input.TotalAmount, milestones); err != nil {
		return ProposalDetail{}, err
	}

	requestHash := hashPayload(input)
	var cached ProposalDetail
	if ok, err := s.idempotentReplay(ctx, actor, requestHash, &cached); err != nil {
		return ProposalDetail{}, err
	} else if ok {
		return cached, nil
	}
	if err := s.reserveIdempotency(ctx, actor, requestHash); err != nil {
		return ProposalDetail{}, err
	}

	proposal := domain.Proposal{
		ProposalID:   uuid.NewString(),
		RequesterID:  input.RequesterID,
		PerformerID:  actor.SubjectID,
		InvitationID: strings.TrimSpace(input.InvitationID),
		Title:        input.Title,
		TotalAmount:  input.TotalAmount,
		Status:       domain.ProposalStatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for i := range milestones {
		milestones[i].ProposalID = proposal.ProposalID
	}
	if err := s.proposals.Create(ctx, proposal); err != nil {
		return ProposalDetail{}, err
	}
	if len(milestones) > 0 {
		if err := s.milestones.CreateMany(ctx, milestones); err != nil {
			return ProposalDetail{}, err
		}
	}

	detail := ProposalDetail{Proposal: proposal, Milestones: milestones}
	s.completeIdempotency(ctx, actor, 201, detail)
	return detail, nil
}

// ReviseProposal replaces the draft's milestone list. Only the authoring
// performer may revise, and only while the proposal is draft or countered.
func (s *Service) ReviseProposal(ctx context.Context, actor Actor, proposalID string, input ReviseProposalInput) (ProposalDetail, error) {
	if err := requireActor(actor); err != nil {
		return ProposalDetail{}, err
	}
	proposal, err := s.proposals.GetByID(ctx, strings.TrimSpace(proposalID))
	if err != nil {
		return ProposalDetail{}, err
	}
	if proposal.PerformerID != actor.SubjectID {
		return ProposalDetail{}, fmt.Errorf("%w: only the performer may revise a proposal", domain.ErrPermissionDenied)
	}
	if proposal.Status != domain.ProposalStatusDraft && proposal.Status != domain.ProposalStatusCountered {
		return ProposalDetail{}, fmt.Errorf("%w: proposal is %s, revisions are closed", domain.ErrInvalidTransition, proposal.Status)
	}

	now := s.nowFn()
	milestones := buildMilestones(proposal.ProposalID, input.Milestones, now)
	if err := domain.ValidateProposalAmounts(input.TotalAmount, milestones); err != nil {
		return ProposalDetail{}, err
	}

	prior := proposal.Status
	if title := strings.TrimSpace(input.Title); title != "" {
		proposal.Title = title
	}
	proposal.TotalAmount = input.TotalAmount
	proposal.UpdatedAt = now

	if err := s.proposals.UpdateWithPrecondition(ctx, proposal, prior); err != nil {
		return ProposalDetail{}, err
	}
	if err := s.milestones.ReplaceForProposal(ctx, proposal.ProposalID, milestones); err != nil {
		return ProposalDetail{}, err
	}
	return ProposalDetail{Proposal: proposal, Milestones: milestones}, nil
}

// SubmitProposal validates the full draft in one pass and moves it to sent.
// Validation reports every offending field together, not fail-fast.
func (s *Service) SubmitProposal(ctx context.Context, actor Actor, proposalID string) (ProposalDetail, error) {
	if err := requireActor(actor); err != nil {
		return ProposalDetail{}, err
	}
	if err := s.enforceRateLimit(ctx, "proposal:submit:"+actor.SubjectID, s.cfg.SubmitRateThreshold, s.cfg.SubmitRateWindow); err != nil {
		return ProposalDetail{}, err
	}
	proposal, err := s.proposals.GetByID(ctx, strings.TrimSpace(proposalID))
	if err != nil {
		return ProposalDetail{}, err
	}
	if proposal.PerformerID != actor.SubjectID {
		return ProposalDetail{}, fmt.Errorf("%w: only the performer may submit a proposal", domain.ErrPermissionDenied)
	}
	if err := domain.ValidateProposalTransition(proposal.Status, domain.ProposalStatusSent); err != nil {
		return ProposalDetail{}, err
	}
	milestones, err := s.milestones.ListByProposalID(ctx, proposal.ProposalID)
	if err != nil {
		return ProposalDetail{}, err
	}
	now := s.nowFn()
	if err := domain.ValidateProposalForSubmit(proposal, milestones, now); err != nil {
		return ProposalDetail{}, err
	}

	prior := proposal.Status
	proposal.Status = domain.ProposalStatusSent
	proposal.SentAt = &now
	proposal.UpdatedAt = now
	if err := s.proposals.UpdateWithPrecondition(ctx, proposal, prior); err != nil {
		return ProposalDetail{}, err
	}

	s.recordTransition(ctx, domain.StateTransition{
		EntityType: domain.EntityTypeProposal,
		EntityID:   proposal.ProposalID,
		FromStatus: string(prior),
		ToStatus:   string(domain.ProposalStatusSent),
		ActorID:    actor.SubjectID,
		Amount:     proposal.TotalAmount,
		Message:    domain.HumanMessage(domain.EventProposalSent, proposal.Title, proposal.TotalAmount),
		OccurredAt: now,
	})
	if err := s.enqueueTransition(ctx, domain.EventProposalSent, domain.TransitionEvent{
		ActorID:    actor.SubjectID,
		Action:     "submit",
		EntityType: domain.EntityTypeProposal,
		EntityID:   proposal.ProposalID,
		FromStatus: string(prior),
		ToStatus:   string(domain.ProposalStatusSent),
		Amount:     proposal.TotalAmount,
		Message:    domain.HumanMessage(domain.EventProposalSent, proposal.Title, proposal.TotalAmount),
		OccurredAt: now,
	}); err != nil {
		return ProposalDetail{}, err
	}
	return ProposalDetail{Proposal: proposal, Milestones: milestones}, nil
}

// CounterProposal returns a sent proposal to the performer for revision.
func (s *Service) CounterProposal(ctx context.Context, actor Actor, proposalID string, input CounterProposalInput) (domain.Proposal, error) {
	if err := requireActor(actor); err != nil {
		return domain.Proposal{}, err
	}
	proposal, err := s.proposals.GetByID(ctx, strings.TrimSpace(proposalID))
	if err != nil {
		return domain.Proposal{}, err
	}
	if proposal.RequesterID != actor.SubjectID {
		return domain.Proposal{}, fmt.Errorf("%w: only the requester may counter a proposal", domain.ErrPermissionDenied)
	}
	if err := domain.ValidateProposalTransition(proposal.Status, domain.ProposalStatusCountered); err != nil {
		return domain.Proposal{}, err
	}
	if strings.TrimSpace(input.Notes) == "" {
		return domain.Proposal{}, domain.NewValidationError(domain.FieldViolation{Field: "notes", Reason: "counter notes are required"})
	}

	now := s.nowFn()
	prior := proposal.Status
	proposal.Status = domain.ProposalStatusCountered
	proposal.CounterNotes = strings.TrimSpace(input.Notes)
	proposal.UpdatedAt = now
	if err := s.proposals.UpdateWithPrecondition(ctx, proposal, prior); err != nil {
		return domain.Proposal{}, err
	}

	s.recordTransition(ctx, domain.StateTransition{
		EntityType: domain.EntityTypeProposal,
		EntityID:   proposal.ProposalID,
		FromStatus: string(prior),
		ToStatus:   string(domain.ProposalStatusCountered),
		ActorID:    actor.SubjectID,
		Reason:     proposal.CounterNotes,
		Message:    domain.HumanMessage(domain.EventProposalCountered, proposal.Title, 0),
		OccurredAt: now,
	})
	if err := s.enqueueTransition(ctx, domain.EventProposalCountered, domain.TransitionEvent{
		ActorID:    actor.SubjectID,
		Action:     "counter",
		EntityType: domain.EntityTypeProposal,
		EntityID:   proposal.ProposalID,
		FromStatus: string(prior),
		ToStatus:   string(domain.ProposalStatusCountered),
		Message:    domain.HumanMessage(domain.EventProposalCountered, proposal.Title, 0),
		OccurredAt: now,
	}); err != nil {
		return domain.Proposal{}, err
	}
	return proposal, nil
}

// AcceptProposal promotes a sent proposal into a contract. The accept is
// atomic on the proposal row (sent -> accepted precondition) and contract
// creation is idempotent keyed by proposal id, so two simultaneous accepts
// cannot spawn two contracts.
func (s *Service) AcceptProposal(ctx context.Context, actor Actor, proposalID string) (AcceptProposalResult, error) {
	if err := requireActor(actor); err != nil {
		return AcceptProposalResult{}, err
	}
	proposal, err := s.proposals.GetByID(ctx, strings.TrimSpace(proposalID))
	if err != nil {
		return AcceptProposalResult{}, err
	}
	if proposal.RequesterID != actor.SubjectID {
		return AcceptProposalResult{}, fmt.Errorf("%w: only the requester may accept a proposal", domain.ErrPermissionDenied)
	}

	// Replayed accept: the contract already exists, return it.
	if proposal.Status == domain.ProposalStatusAccepted {
		return s.acceptedResult(ctx, proposal)
	}
	if err := domain.ValidateProposalTransition(proposal.Status, domain.ProposalStatusAccepted); err != nil {
		return AcceptProposalResult{}, err
	}

	drafts, err := s.milestones.ListByProposalID(ctx, proposal.ProposalID)
	if err != nil {
		return AcceptProposalResult{}, err
	}
	now := s.nowFn()
	if err := domain.ValidateProposalForSubmit(proposal, drafts, now); err != nil {
		return AcceptProposalResult{}, err
	}

	prior := proposal.Status
	proposal.Status = domain.ProposalStatusAccepted
	proposal.DecidedAt = &now
	proposal.UpdatedAt = now
	if err := s.proposals.UpdateWithPrecondition(ctx, proposal, prior); err != nil {
		if errors.Is(err, domain.ErrPreconditionFailed) {
			// The race loser: if the winner accepted, serve its contract.
			current, getErr := s.proposals.GetByID(ctx, proposal.ProposalID)
			if getErr == nil && current.Status == domain.ProposalStatusAccepted {
				return s.acceptedResult(ctx, current)
			}
		}
		return AcceptProposalResult{}, err
	}

	contract := domain.Contract{
		ContractID:  uuid.NewString(),
		ProposalID:  proposal.ProposalID,
		RequesterID: proposal.RequesterID,
		PerformerID: proposal.PerformerID,
		Title:       proposal.Title,
		TotalAmount: proposal.TotalAmount,
		Status:      domain.ContractStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	snapshot := snapshotMilestones(contract.ContractID, drafts, now)
	created, wasCreated, err := s.contracts.CreateIdempotent(ctx, contract, snapshot)
	if err != nil {
		return AcceptProposalResult{}, err
	}
	if !wasCreated {
		snapshot, err = s.milestones.ListByContractID(ctx, created.ContractID)
		if err != nil {
			return AcceptProposalResult{}, err
		}
	}

	s.recordTransition(ctx, domain.StateTransition{
		EntityType: domain.EntityTypeProposal,
		EntityID:   proposal.ProposalID,
		ContractID: created.ContractID,
		FromStatus: string(prior),
		ToStatus:   string(domain.ProposalStatusAccepted),
		ActorID:    actor.SubjectID,
		Amount:     proposal.TotalAmount,
		Message:    domain.HumanMessage(domain.EventProposalAccepted, proposal.Title, 0),
		OccurredAt: now,
	})
	if err := s.enqueueTransition(ctx, domain.EventContractCreated, domain.TransitionEvent{
		ActorID:    actor.SubjectID,
		Action:     "accept",
		EntityType: domain.EntityTypeContract,
		EntityID:   created.ContractID,
		ContractID: created.ContractID,
		ToStatus:   string(domain.ContractStatusActive),
		Amount:     created.TotalAmount,
		Message:    domain.HumanMessage(domain.EventContractCreated, created.Title, created.TotalAmount),
		OccurredAt: now,
	}); err != nil {
		return AcceptProposalResult{}, err
	}
	return AcceptProposalResult{Proposal: proposal, Contract: created, Milestones: snapshot}, nil
}

// DeclineProposal is terminal for the proposal; no contract is spawned.
func (s *Service) DeclineProposal(ctx context.Context, actor Actor, proposalID string) (domain.Proposal, error) {
	if err := requireActor(actor); err != nil {
		return domain.Proposal{}, err
	}
	proposal, err := s.proposals.GetByID(ctx, strings.TrimSpace(proposalID))
	if err != nil {
		return domain.Proposal{}, err
	}
	if proposal.RequesterID != actor.SubjectID {
		return domain.Proposal{}, fmt.Errorf("%w: only the requester may decline a proposal", domain.ErrPermissionDenied)
	}
	if err := domain.ValidateProposalTransition(proposal.Status, domain.ProposalStatusDeclined); err != nil {
		return domain.Proposal{}, err
	}

	now := s.nowFn()
	prior := proposal.Status
	proposal.Status = domain.ProposalStatusDeclined
	proposal.DecidedAt = &now
	proposal.UpdatedAt = now
	if err := s.proposals.UpdateWithPrecondition(ctx, proposal, prior); err != nil {
		return domain.Proposal{}, err
	}

	s.recordTransition(ctx, domain.StateTransition{
		EntityType: domain.EntityTypeProposal,
		EntityID:   proposal.ProposalID,
		FromStatus: string(prior),
		ToStatus:   string(domain.ProposalStatusDeclined),
		ActorID:    actor.SubjectID,
		Message:    domain.HumanMessage(domain.EventProposalDeclined, proposal.Title, 0),
		OccurredAt: now,
	})
	if err := s.enqueueTransition(ctx, domain.EventProposalDeclined, domain.TransitionEvent{
		ActorID:    actor.SubjectID,
		Action:     "decline",
		EntityType: domain.EntityTypeProposal,
		EntityID:   proposal.ProposalID,
		FromStatus: string(prior),
		ToStatus:   string(domain.ProposalStatusDeclined),
		Message:    domain.HumanMessage(domain.EventProposalDeclined, proposal.Title, 0),
		OccurredAt: now,
	}); err != nil {
		return domain.Proposal{}, err
	}
	return proposal, nil
}

// GetProposal returns a proposal with milestones; parties only.
func (s *Service) GetProposal(ctx context.Context, actor Actor, proposalID string) (ProposalDetail, error) {
	if err := requireActor(actor); err != nil {
		return ProposalDetail{}, err
	}
	proposal, err := s.proposals.GetByID(ctx, strings.TrimSpace(proposalID))
	if err != nil {
		return ProposalDetail{}, err
	}
	if proposal.RequesterID != actor.SubjectID && proposal.PerformerID != actor.SubjectID {
		return ProposalDetail{}, fmt.Errorf("%w: subject is not a party to this proposal", domain.ErrPermissionDenied)
	}
	milestones, err := s.milestones.ListByProposalID(ctx, proposal.ProposalID)
	if err != nil {
		return ProposalDetail{}, err
	}
	return ProposalDetail{Proposal: proposal, Milestones: milestones}, nil
}

// ListProposals returns proposals in which the actor is a party.
func (s *Service) ListProposals(ctx context.Context, actor Actor, limit int) ([]domain.Proposal, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.proposals.ListByParty(ctx, actor.SubjectID, limit)
}

func (s *Service) acceptedResult(ctx context.Context, proposal domain.Proposal) (AcceptProposalResult, error) {
	contract, err := s.contracts.GetByProposalID(ctx, proposal.ProposalID)
	if err != nil {
		return AcceptProposalResult{}, err
	}
	milestones, err := s.milestones.ListByContractID(ctx, contract.ContractID)
	if err != nil {
		return AcceptProposalResult{}, err
	}
	return AcceptProposalResult{Proposal: proposal, Contract: contract, Milestones: milestones}, nil
}

func buildMilestones(proposalID string, inputs []MilestoneInput, now time.Time) []domain.Milestone {
	rows := make([]domain.Milestone, 0, len(inputs))
	for i, in := range inputs {
		rows = append(rows, domain.Milestone{
			MilestoneID: uuid.NewString(),
			ProposalID:  proposalID,
			Title:       strings.TrimSpace(in.Title),
			Description: strings.TrimSpace(in.Description),
			DueAt:       in.DueAt,
			Price:       in.Price,
			Status:      domain.MilestoneStatusNotFunded,
			Position:    i,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return rows
}

// snapshotMilestones copies the proposal's milestone list onto the contract.
// Fresh ids keep later contract-side edits off the proposal's rows.
func snapshotMilestones(contractID string, drafts []domain.Milestone, now time.Time) []domain.Milestone {
	rows := make([]domain.Milestone, 0, len(drafts))
	for _, d := range drafts {
		rows = append(rows, domain.Milestone{
			MilestoneID: uuid.NewString(),
			ContractID:  contractID,
			Title:       d.Title,
			Description: d.Description,
			DueAt:       d.DueAt,
			Price:       d.Price,
			Status:      domain.MilestoneStatusNotFunded,
			Position:    d.Position,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return rows
}
