package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/venturelink/deal-service/internal/domain"
	"gorm.io/gorm"
)

func toDomainProposal(row proposalModel) domain.Proposal {
	invitationID := ""
	if row.InvitationID != nil {
		invitationID = *row.InvitationID
	}
	return domain.Proposal{
		ProposalID:   row.ProposalID,
		RequesterID:  row.RequesterID,
		PerformerID:  row.PerformerID,
		InvitationID: invitationID,
		Title:        row.Title,
		TotalAmount:  row.TotalAmount,
		Status:       domain.ProposalStatus(row.Status),
		CounterNotes: row.CounterNotes,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		SentAt:       row.SentAt,
		DecidedAt:    row.DecidedAt,
	}
}

func toProposalModel(p domain.Proposal) proposalModel {
	return proposalModel{
		ProposalID:   p.ProposalID,
		RequesterID:  p.RequesterID,
		PerformerID:  p.PerformerID,
		InvitationID: nullableString(p.InvitationID),
		Title:        p.Title,
		TotalAmount:  p.TotalAmount,
		Status:       string(p.Status),
		CounterNotes: p.CounterNotes,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		SentAt:       p.SentAt,
		DecidedAt:    p.DecidedAt,
	}
}

// toDomainMilestone refuses rows whose status column does not name a known
// milestone state. The transition table works on status values, so a bad row
// must surface here instead of silently entering the state machine.
func toDomainMilestone(row milestoneModel) (domain.Milestone, error) {
	if !domain.ValidMilestoneStatus(row.Status) {
		return domain.Milestone{}, fmt.Errorf("milestone %s: unknown stored status %q", row.MilestoneID, row.Status)
	}
	m := domain.Milestone{
		MilestoneID: row.MilestoneID,
		Title:       row.Title,
		Description: row.Description,
		DueAt:       row.DueAt,
		Price:       row.Price,
		Status:      domain.MilestoneStatus(row.Status),
		ReviewNotes: row.ReviewNotes,
		Position:    row.Position,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if row.ProposalID != nil {
		m.ProposalID = *row.ProposalID
	}
	if row.ContractID != nil {
		m.ContractID = *row.ContractID
	}
	if raw := strings.TrimSpace(row.Deliverables); raw != "" {
		_ = json.Unmarshal([]byte(raw), &m.Deliverables)
	}
	return m, nil
}

func toMilestoneModel(m domain.Milestone) milestoneModel {
	deliverables := "[]"
	if len(m.Deliverables) > 0 {
		if raw, err := json.Marshal(m.Deliverables); err == nil {
			deliverables = string(raw)
		}
	}
	return milestoneModel{
		MilestoneID:  m.MilestoneID,
		ProposalID:   nullableString(m.ProposalID),
		ContractID:   nullableString(m.ContractID),
		Title:        m.Title,
		Description:  m.Description,
		DueAt:        m.DueAt,
		Price:        m.Price,
		Status:       string(m.Status),
		Deliverables: deliverables,
		ReviewNotes:  m.ReviewNotes,
		Position:     m.Position,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toDomainContract(row contractModel) domain.Contract {
	return domain.Contract{
		ContractID:  row.ContractID,
		ProposalID:  row.ProposalID,
		RequesterID: row.RequesterID,
		PerformerID: row.PerformerID,
		Title:       row.Title,
		TotalAmount: row.TotalAmount,
		Status:      domain.ContractStatus(row.Status),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
		CompletedAt: row.CompletedAt,
		CancelledAt: row.CancelledAt,
	}
}

func toContractModel(c domain.Contract) contractModel {
	return contractModel{
		ContractID:  c.ContractID,
		ProposalID:  c.ProposalID,
		RequesterID: c.RequesterID,
		PerformerID: c.PerformerID,
		Title:       c.Title,
		TotalAmount: c.TotalAmount,
		Status:      string(c.Status),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		CompletedAt: c.CompletedAt,
		CancelledAt: c.CancelledAt,
	}
}

func toDomainPayout(row payoutModel) domain.Payout {
	return domain.Payout{
		PayoutID:    row.PayoutID,
		ContractID:  row.ContractID,
		MilestoneID: row.MilestoneID,
		Amount:      row.Amount,
		Currency:    row.Currency,
		Status:      domain.PayoutStatus(row.Status),
		ReferenceID: row.ReferenceID,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
		PendingAt:   row.PendingAt,
		PaidAt:      row.PaidAt,
	}
}

func toPayoutModel(p domain.Payout) payoutModel {
	return payoutModel{
		PayoutID:    p.PayoutID,
		ContractID:  p.ContractID,
		MilestoneID: p.MilestoneID,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Status:      string(p.Status),
		ReferenceID: p.ReferenceID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		PendingAt:   p.PendingAt,
		PaidAt:      p.PaidAt,
	}
}

func toDomainDispute(row disputeModel) domain.Dispute {
	d := domain.Dispute{
		DisputeID:       row.DisputeID,
		ContractID:      row.ContractID,
		MilestoneID:     row.MilestoneID,
		OpenedByID:      row.OpenedByID,
		Reason:          row.Reason,
		Status:          domain.DisputeStatus(row.Status),
		Outcome:         domain.DisputeOutcome(row.Outcome),
		ResolutionNotes: row.ResolutionNotes,
		ResolvedByID:    row.ResolvedByID,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
		ResolvedAt:      row.ResolvedAt,
	}
	if raw := strings.TrimSpace(row.Evidence); raw != "" {
		_ = json.Unmarshal([]byte(raw), &d.Evidence)
	}
	return d
}

func toDisputeModel(d domain.Dispute) disputeModel {
	evidence := "[]"
	if len(d.Evidence) > 0 {
		if raw, err := json.Marshal(d.Evidence); err == nil {
			evidence = string(raw)
		}
	}
	return disputeModel{
		DisputeID:       d.DisputeID,
		ContractID:      d.ContractID,
		MilestoneID:     d.MilestoneID,
		OpenedByID:      d.OpenedByID,
		Reason:          d.Reason,
		Evidence:        evidence,
		Status:          string(d.Status),
		Outcome:         string(d.Outcome),
		ResolutionNotes: d.ResolutionNotes,
		ResolvedByID:    d.ResolvedByID,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
		ResolvedAt:      d.ResolvedAt,
	}
}

func toDomainInvitation(row invitationModel) domain.Invitation {
	return domain.Invitation{
		InvitationID: row.InvitationID,
		RequesterID:  row.RequesterID,
		PerformerID:  row.PerformerID,
		Title:        row.Title,
		Message:      row.Message,
		NDARequired:  row.NDARequired,
		Status:       domain.InvitationStatus(row.Status),
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		DecidedAt:    row.DecidedAt,
	}
}

func toInvitationModel(i domain.Invitation) invitationModel {
	return invitationModel{
		InvitationID: i.InvitationID,
		RequesterID:  i.RequesterID,
		PerformerID:  i.PerformerID,
		Title:        i.Title,
		Message:      i.Message,
		NDARequired:  i.NDARequired,
		Status:       string(i.Status),
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
		DecidedAt:    i.DecidedAt,
	}
}

func toDomainTransition(row stateTransitionModel) domain.StateTransition {
	return domain.StateTransition{
		TransitionID: row.TransitionID,
		EntityType:   row.EntityType,
		EntityID:     row.EntityID,
		ContractID:   row.ContractID,
		FromStatus:   row.FromStatus,
		ToStatus:     row.ToStatus,
		ActorID:      row.ActorID,
		Reason:       row.Reason,
		Amount:       row.Amount,
		Message:      row.Message,
		OccurredAt:   row.OccurredAt,
	}
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
