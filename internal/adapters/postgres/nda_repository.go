package postgres

import (
	"context"
	"errors"

	"github.com/venturelink/deal-service/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ndaSettingRepository struct {
	db *gorm.DB
}

func (r *ndaSettingRepository) Upsert(ctx context.Context, row domain.NDASetting) error {
	rec := ndaSettingModel{
		SubjectID:   row.SubjectID,
		OwnerID:     row.OwnerID,
		NDARequired: row.NDARequired,
		UpdatedAt:   row.UpdatedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "subject_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"nda_required": rec.NDARequired,
			"updated_at":   rec.UpdatedAt,
		}),
	}).Create(&rec).Error
}

func (r *ndaSettingRepository) Get(ctx context.Context, subjectID string) (domain.NDASetting, error) {
	var rec ndaSettingModel
	if err := r.db.WithContext(ctx).Where("subject_id = ?", subjectID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NDASetting{}, domain.ErrNotFound
		}
		return domain.NDASetting{}, err
	}
	return domain.NDASetting{
		SubjectID:   rec.SubjectID,
		OwnerID:     rec.OwnerID,
		NDARequired: rec.NDARequired,
		UpdatedAt:   rec.UpdatedAt,
	}, nil
}

type ndaRecordRepository struct {
	db *gorm.DB
}

func (r *ndaRecordRepository) Create(ctx context.Context, row domain.NDARecord) error {
	rec := ndaRecordModel{
		NDARecordID: row.NDARecordID,
		SubjectID:   row.SubjectID,
		ViewerID:    row.ViewerID,
		DocumentURL: row.DocumentURL,
		AcceptedAt:  row.AcceptedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *ndaRecordRepository) Get(ctx context.Context, subjectID, viewerID string) (domain.NDARecord, error) {
	var rec ndaRecordModel
	if err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Where("viewer_id = ?", viewerID).
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NDARecord{}, domain.ErrNotFound
		}
		return domain.NDARecord{}, err
	}
	return domain.NDARecord{
		NDARecordID: rec.NDARecordID,
		SubjectID:   rec.SubjectID,
		ViewerID:    rec.ViewerID,
		DocumentURL: rec.DocumentURL,
		AcceptedAt:  rec.AcceptedAt,
	}, nil
}
