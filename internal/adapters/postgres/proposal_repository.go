package postgres

import (
	"context"
	"errors"

	"github.com/venturelink/deal-service/internal/domain"
	"gorm.io/gorm"
)

type proposalRepository struct {
	db *gorm.DB
}

func (r *proposalRepository) Create(ctx context.Context, row domain.Proposal) error {
	rec := toProposalModel(row)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *proposalRepository) GetByID(ctx context.Context, proposalID string) (domain.Proposal, error) {
	var rec proposalModel
	if err := r.db.WithContext(ctx).Where("proposal_id = ?", proposalID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Proposal{}, domain.ErrNotFound
		}
		return domain.Proposal{}, err
	}
	return toDomainProposal(rec), nil
}

// UpdateWithPrecondition writes the full row only when the stored status
// still matches the expected prior status. A zero-row update against an
// existing proposal means a concurrent transition won.
func (r *proposalRepository) UpdateWithPrecondition(ctx context.Context, row domain.Proposal, expected domain.ProposalStatus) error {
	rec := toProposalModel(row)
	res := r.db.WithContext(ctx).
		Model(&proposalModel{}).
		Where("proposal_id = ?", row.ProposalID).
		Where("status = ?", string(expected)).
		Updates(map[string]any{
			"title":         rec.Title,
			"total_amount":  rec.TotalAmount,
			"status":        rec.Status,
			"counter_notes": rec.CounterNotes,
			"updated_at":    rec.UpdatedAt,
			"sent_at":       rec.SentAt,
			"decided_at":    rec.DecidedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.classifyMiss(ctx, row.ProposalID)
	}
	return nil
}

func (r *proposalRepository) classifyMiss(ctx context.Context, proposalID string) error {
	var exists int64
	if err := r.db.WithContext(ctx).Model(&proposalModel{}).Where("proposal_id = ?", proposalID).Count(&exists).Error; err != nil {
		return err
	}
	if exists == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrPreconditionFailed
}

func (r *proposalRepository) ListByParty(ctx context.Context, subjectID string, limit int) ([]domain.Proposal, error) {
	var rows []proposalModel
	if err := r.db.WithContext(ctx).
		Where("requester_id = ? OR performer_id = ?", subjectID, subjectID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Proposal, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainProposal(row))
	}
	return result, nil
}
