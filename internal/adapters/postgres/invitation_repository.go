package postgres

import (
	"context"
	"errors"

	"github.com/venturelink/deal-service/internal/domain"
	"gorm.io/gorm"
)

type invitationRepository struct {
	db *gorm.DB
}

func (r *invitationRepository) Create(ctx context.Context, row domain.Invitation) error {
	rec := toInvitationModel(row)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *invitationRepository) GetByID(ctx context.Context, invitationID string) (domain.Invitation, error) {
	var rec invitationModel
	if err := r.db.WithContext(ctx).Where("invitation_id = ?", invitationID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Invitation{}, domain.ErrNotFound
		}
		return domain.Invitation{}, err
	}
	return toDomainInvitation(rec), nil
}

func (r *invitationRepository) UpdateWithPrecondition(ctx context.Context, row domain.Invitation, expected domain.InvitationStatus) error {
	rec := toInvitationModel(row)
	res := r.db.WithContext(ctx).
		Model(&invitationModel{}).
		Where("invitation_id = ?", row.InvitationID).
		Where("status = ?", string(expected)).
		Updates(map[string]any{
			"status":     rec.Status,
			"updated_at": rec.UpdatedAt,
			"decided_at": rec.DecidedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var exists int64
		if err := r.db.WithContext(ctx).Model(&invitationModel{}).Where("invitation_id = ?", row.InvitationID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrNotFound
		}
		return domain.ErrPreconditionFailed
	}
	return nil
}

func (r *invitationRepository) ListByPerformer(ctx context.Context, performerID string, limit int) ([]domain.Invitation, error) {
	var rows []invitationModel
	if err := r.db.WithContext(ctx).
		Where("performer_id = ?", performerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Invitation, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainInvitation(row))
	}
	return result, nil
}
