package postgres

import (
	"context"
	"errors"

	"github.com/venturelink/deal-service/internal/domain"
	"gorm.io/gorm"
)

type disputeRepository struct {
	db *gorm.DB
}

func (r *disputeRepository) Create(ctx context.Context, row domain.Dispute) error {
	rec := toDisputeModel(row)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *disputeRepository) GetByID(ctx context.Context, disputeID string) (domain.Dispute, error) {
	var rec disputeModel
	if err := r.db.WithContext(ctx).Where("dispute_id = ?", disputeID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Dispute{}, domain.ErrNotFound
		}
		return domain.Dispute{}, err
	}
	return toDomainDispute(rec), nil
}

func (r *disputeRepository) GetOpenByMilestoneID(ctx context.Context, milestoneID string) (domain.Dispute, error) {
	var rec disputeModel
	if err := r.db.WithContext(ctx).
		Where("milestone_id = ?", milestoneID).
		Where("status <> ?", string(domain.DisputeStatusResolved)).
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Dispute{}, domain.ErrNotFound
		}
		return domain.Dispute{}, err
	}
	return toDomainDispute(rec), nil
}

func (r *disputeRepository) UpdateWithPrecondition(ctx context.Context, row domain.Dispute, expected domain.DisputeStatus) error {
	rec := toDisputeModel(row)
	res := r.db.WithContext(ctx).
		Model(&disputeModel{}).
		Where("dispute_id = ?", row.DisputeID).
		Where("status = ?", string(expected)).
		Updates(map[string]any{
			"status":           rec.Status,
			"outcome":          rec.Outcome,
			"resolution_notes": rec.ResolutionNotes,
			"resolved_by_id":   rec.ResolvedByID,
			"updated_at":       rec.UpdatedAt,
			"resolved_at":      rec.ResolvedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var exists int64
		if err := r.db.WithContext(ctx).Model(&disputeModel{}).Where("dispute_id = ?", row.DisputeID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrNotFound
		}
		return domain.ErrPreconditionFailed
	}
	return nil
}

func (r *disputeRepository) ListByContractID(ctx context.Context, contractID string) ([]domain.Dispute, error) {
	var rows []disputeModel
	if err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Dispute, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainDispute(row))
	}
	return result, nil
}
