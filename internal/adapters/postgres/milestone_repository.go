package postgres

import (
	"context"
	"errors"

	"github.com/venturelink/deal-service/internal/domain"
	"gorm.io/gorm"
)

type milestoneRepository struct {
	db *gorm.DB
}

func (r *milestoneRepository) CreateMany(ctx context.Context, rows []domain.Milestone) error {
	if len(rows) == 0 {
		return nil
	}
	recs := make([]milestoneModel, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, toMilestoneModel(row))
	}
	return r.db.WithContext(ctx).Create(&recs).Error
}

func (r *milestoneRepository) GetByID(ctx context.Context, milestoneID string) (domain.Milestone, error) {
	var rec milestoneModel
	if err := r.db.WithContext(ctx).Where("milestone_id = ?", milestoneID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Milestone{}, domain.ErrNotFound
		}
		return domain.Milestone{}, err
	}
	return toDomainMilestone(rec)
}

func (r *milestoneRepository) ListByProposalID(ctx context.Context, proposalID string) ([]domain.Milestone, error) {
	return r.list(ctx, "proposal_id = ?", proposalID)
}

func (r *milestoneRepository) ListByContractID(ctx context.Context, contractID string) ([]domain.Milestone, error) {
	return r.list(ctx, "contract_id = ?", contractID)
}

func (r *milestoneRepository) list(ctx context.Context, cond string, arg string) ([]domain.Milestone, error) {
	var rows []milestoneModel
	if err := r.db.WithContext(ctx).
		Where(cond, arg).
		Order("position ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Milestone, 0, len(rows))
	for _, row := range rows {
		m, err := toDomainMilestone(row)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, nil
}

// ReplaceForProposal swaps the draft milestone list atomically. Only draft
// proposals are ever replaced; contract milestones are immutable rows.
func (r *milestoneRepository) ReplaceForProposal(ctx context.Context, proposalID string, rows []domain.Milestone) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("proposal_id = ?", proposalID).Delete(&milestoneModel{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		recs := make([]milestoneModel, 0, len(rows))
		for _, row := range rows {
			recs = append(recs, toMilestoneModel(row))
		}
		return tx.Create(&recs).Error
	})
}

func (r *milestoneRepository) UpdateWithPrecondition(ctx context.Context, row domain.Milestone, expected domain.MilestoneStatus) error {
	rec := toMilestoneModel(row)
	res := r.db.WithContext(ctx).
		Model(&milestoneModel{}).
		Where("milestone_id = ?", row.MilestoneID).
		Where("status = ?", string(expected)).
		Updates(map[string]any{
			"status":       rec.Status,
			"deliverables": rec.Deliverables,
			"review_notes": rec.ReviewNotes,
			"updated_at":   rec.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var exists int64
		if err := r.db.WithContext(ctx).Model(&milestoneModel{}).Where("milestone_id = ?", row.MilestoneID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrNotFound
		}
		return domain.ErrPreconditionFailed
	}
	return nil
}
