package postgres

import (
	"context"

	"github.com/venturelink/deal-service/internal/domain"
	"gorm.io/gorm"
)

type historyRepository struct {
	db *gorm.DB
}

func (r *historyRepository) Append(ctx context.Context, row domain.StateTransition) error {
	rec := stateTransitionModel{
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
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *historyRepository) ListByContractID(ctx context.Context, contractID string, limit int) ([]domain.StateTransition, error) {
	var rows []stateTransitionModel
	if err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("occurred_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.StateTransition, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainTransition(row))
	}
	return result, nil
}
