package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/venturelink/deal-service/internal/domain"
	"github.com/venturelink/deal-service/internal/ports"
)

const (
	idempotencyPending   = "PENDING"
	idempotencyCompleted = "COMPLETED"
)

// idempotencyRepository stores one row per Idempotency-Key. Reservation is
// an insert racing on the primary key; the race loser sees a conflict and
// either replays the completed response or rejects upstream. Rows whose TTL
// has lapsed are reclaimed in place rather than blocking the key forever.
type idempotencyRepository struct {
	db *gorm.DB
}

func (r *idempotencyRepository) Get(ctx context.Context, key string) (*ports.IdempotencyRecord, error) {
	var rows []dealIdempotencyModel
	if err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	rec := rows[0]
	out := ports.IdempotencyRecord{
		Key:          rec.IdempotencyKey,
		RequestHash:  rec.RequestHash,
		Status:       rec.Status,
		ResponseCode: rec.ResponseCode,
		ExpiresAt:    rec.ExpiresAt,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
	if rec.ResponseBody != nil {
		out.ResponseBody = []byte(*rec.ResponseBody)
	}
	return &out, nil
}

func (r *idempotencyRepository) Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error {
	now := time.Now().UTC()
	insert := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).
		Create(&dealIdempotencyModel{
			IdempotencyKey: key,
			RequestHash:    requestHash,
			Status:         idempotencyPending,
			ExpiresAt:      expiresAt,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	if insert.Error != nil {
		return insert.Error
	}
	if insert.RowsAffected > 0 {
		return nil
	}

	// Key already taken. A row past its TTL is dead weight; take it over
	// with the new hash so the key stays usable after the replay window.
	reclaim := r.db.WithContext(ctx).
		Model(&dealIdempotencyModel{}).
		Where("idempotency_key = ? AND expires_at < ?", key, now).
		Updates(map[string]any{
			"request_hash":  requestHash,
			"status":        idempotencyPending,
			"response_code": 0,
			"response_body": nil,
			"expires_at":    expiresAt,
			"updated_at":    now,
		})
	if reclaim.Error != nil {
		return reclaim.Error
	}
	if reclaim.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *idempotencyRepository) Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error {
	var body *string
	if len(responseBody) > 0 {
		raw := string(responseBody)
		body = &raw
	}
	// Guarded on PENDING: a completed row is immutable.
	return r.db.WithContext(ctx).
		Model(&dealIdempotencyModel{}).
		Where("idempotency_key = ? AND status = ?", key, idempotencyPending).
		Updates(map[string]any{
			"status":        idempotencyCompleted,
			"response_code": responseCode,
			"response_body": body,
			"updated_at":    at,
		}).Error
}

func (r *idempotencyRepository) Release(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).
		Where("idempotency_key = ? AND status = ?", key, idempotencyPending).
		Delete(&dealIdempotencyModel{}).Error
}
