package postgres

import (
	"context"
	"errors"

	"github.com/venturelink/deal-service/internal/domain"
	"gorm.io/gorm"
)

type payoutRepository struct {
	db *gorm.DB
}

func (r *payoutRepository) Create(ctx context.Context, row domain.Payout) error {
	rec := toPayoutModel(row)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *payoutRepository) GetByID(ctx context.Context, payoutID string) (domain.Payout, error) {
	var rec payoutModel
	if err := r.db.WithContext(ctx).Where("payout_id = ?", payoutID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Payout{}, domain.ErrNotFound
		}
		return domain.Payout{}, err
	}
	return toDomainPayout(rec), nil
}

func (r *payoutRepository) GetByMilestoneID(ctx context.Context, milestoneID string) (domain.Payout, error) {
	var rec payoutModel
	if err := r.db.WithContext(ctx).Where("milestone_id = ?", milestoneID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Payout{}, domain.ErrNotFound
		}
		return domain.Payout{}, err
	}
	return toDomainPayout(rec), nil
}

func (r *payoutRepository) UpdateWithPrecondition(ctx context.Context, row domain.Payout, expected domain.PayoutStatus) error {
	rec := toPayoutModel(row)
	res := r.db.WithContext(ctx).
		Model(&payoutModel{}).
		Where("payout_id = ?", row.PayoutID).
		Where("status = ?", string(expected)).
		Updates(map[string]any{
			"status":       rec.Status,
			"reference_id": rec.ReferenceID,
			"updated_at":   rec.UpdatedAt,
			"pending_at":   rec.PendingAt,
			"paid_at":      rec.PaidAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var exists int64
		if err := r.db.WithContext(ctx).Model(&payoutModel{}).Where("payout_id = ?", row.PayoutID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrNotFound
		}
		return domain.ErrPreconditionFailed
	}
	return nil
}

func (r *payoutRepository) ListByContractID(ctx context.Context, contractID string) ([]domain.Payout, error) {
	var rows []payoutModel
	if err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Payout, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainPayout(row))
	}
	return result, nil
}
