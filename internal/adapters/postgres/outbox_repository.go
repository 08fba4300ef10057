package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/venturelink/deal-service/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type outboxRepository struct {
	db *gorm.DB
}

func (r *outboxRepository) Enqueue(ctx context.Context, event ports.OutboxEvent) error {
	rec := dealOutboxModel{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      string(event.Payload),
		CreatedAt:    event.OccurredAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

// ClaimUnpublished marks a batch with the worker's claim token under SKIP
// LOCKED so concurrent workers never publish the same record twice.
func (r *outboxRepository) ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]ports.OutboxRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	if claimToken == "" {
		return nil, fmt.Errorf("claim token is required")
	}

	now := time.Now().UTC()
	var rows []dealOutboxModel
	if err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subquery := tx.Model(&dealOutboxModel{}).
			Select("outbox_id").
			Where("published_at IS NULL").
			Where("dead_lettered_at IS NULL").
			Where("claim_until IS NULL OR claim_until < ?", now).
			Order("created_at ASC").
			Limit(limit).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})

		if err := tx.Model(&dealOutboxModel{}).
			Where("outbox_id IN (?)", subquery).
			Updates(map[string]any{
				"claim_token": claimToken,
				"claim_until": claimUntil,
			}).Error; err != nil {
			return err
		}

		return tx.Where("claim_token = ?", claimToken).
			Where("published_at IS NULL").
			Where("dead_lettered_at IS NULL").
			Order("created_at ASC").
			Find(&rows).Error
	}); err != nil {
		return nil, err
	}

	result := make([]ports.OutboxRecord, 0, len(rows))
	for _, row := range rows {
		result = append(result, ports.OutboxRecord{
			OutboxID:       row.OutboxID,
			EventType:      row.EventType,
			PartitionKey:   row.PartitionKey,
			Payload:        []byte(row.Payload),
			RetryCount:     row.RetryCount,
			LastError:      row.LastError,
			CreatedAt:      row.CreatedAt,
			PublishedAt:    row.PublishedAt,
			LastErrorAt:    row.LastErrorAt,
			ClaimToken:     row.ClaimToken,
			ClaimUntil:     row.ClaimUntil,
			DeadLetteredAt: row.DeadLetteredAt,
		})
	}
	return result, nil
}

func (r *outboxRepository) MarkPublished(ctx context.Context, outboxID string, claimToken string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&dealOutboxModel{}).
		Where("outbox_id = ?", outboxID).
		Where("claim_token = ?", claimToken).
		Updates(map[string]any{
			"published_at": at,
			"claim_token":  nil,
			"claim_until":  nil,
		}).Error
}

// MarkFailed bumps the retry counter; past maxRetries the record is dead
// lettered instead of retried forever.
func (r *outboxRepository) MarkFailed(ctx context.Context, outboxID string, claimToken string, reason string, at time.Time, maxRetries int) error {
	updates := map[string]any{
		"retry_count":   gorm.Expr("retry_count + 1"),
		"last_error":    reason,
		"last_error_at": at,
		"claim_token":   nil,
		"claim_until":   nil,
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&dealOutboxModel{}).
			Where("outbox_id = ?", outboxID).
			Where("claim_token = ?", claimToken).
			Updates(updates).Error; err != nil {
			return err
		}
		if maxRetries <= 0 {
			return nil
		}
		return tx.Model(&dealOutboxModel{}).
			Where("outbox_id = ?", outboxID).
			Where("retry_count >= ?", maxRetries).
			Where("dead_lettered_at IS NULL").
			Update("dead_lettered_at", at).Error
	})
}
