package postgres

import (
	"context"
	"errors"

	"github.com/venturelink/deal-service/internal/domain"
	"gorm.io/gorm"
)

type contractRepository struct {
	db *gorm.DB
}

// CreateIdempotent inserts the contract plus its milestone snapshot in one
// transaction. The unique index on proposal_id makes concurrent accepts
// collapse to a single contract: the loser reads back the winner's row and
// reports created=false.
func (r *contractRepository) CreateIdempotent(ctx context.Context, row domain.Contract, snapshot []domain.Milestone) (domain.Contract, bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := toContractModel(row)
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		if len(snapshot) == 0 {
			return nil
		}
		recs := make([]milestoneModel, 0, len(snapshot))
		for _, m := range snapshot {
			recs = append(recs, toMilestoneModel(m))
		}
		return tx.Create(&recs).Error
	})
	if err == nil {
		return row, true, nil
	}
	if !isUniqueViolation(err) {
		return domain.Contract{}, false, err
	}
	existing, getErr := r.GetByProposalID(ctx, row.ProposalID)
	if getErr != nil {
		return domain.Contract{}, false, getErr
	}
	return existing, false, nil
}

func (r *contractRepository) GetByID(ctx context.Context, contractID string) (domain.Contract, error) {
	var rec contractModel
	if err := r.db.WithContext(ctx).Where("contract_id = ?", contractID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Contract{}, domain.ErrNotFound
		}
		return domain.Contract{}, err
	}
	return toDomainContract(rec), nil
}

func (r *contractRepository) GetByProposalID(ctx context.Context, proposalID string) (domain.Contract, error) {
	var rec contractModel
	if err := r.db.WithContext(ctx).Where("proposal_id = ?", proposalID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Contract{}, domain.ErrNotFound
		}
		return domain.Contract{}, err
	}
	return toDomainContract(rec), nil
}

func (r *contractRepository) UpdateWithPrecondition(ctx context.Context, row domain.Contract, expected domain.ContractStatus) error {
	rec := toContractModel(row)
	res := r.db.WithContext(ctx).
		Model(&contractModel{}).
		Where("contract_id = ?", row.ContractID).
		Where("status = ?", string(expected)).
		Updates(map[string]any{
			"status":       rec.Status,
			"updated_at":   rec.UpdatedAt,
			"completed_at": rec.CompletedAt,
			"cancelled_at": rec.CancelledAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var exists int64
		if err := r.db.WithContext(ctx).Model(&contractModel{}).Where("contract_id = ?", row.ContractID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrNotFound
		}
		return domain.ErrPreconditionFailed
	}
	return nil
}

func (r *contractRepository) ListByParty(ctx context.Context, subjectID string, limit int) ([]domain.Contract, error) {
	var rows []contractModel
	if err := r.db.WithContext(ctx).
		Where("requester_id = ? OR performer_id = ?", subjectID, subjectID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Contract, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainContract(row))
	}
	return result, nil
}
