package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/venturelink/deal-service/internal/domain"
)

func hashPayload(v any) string {
	b, _ := json.Marshal(v)
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

func requireActor(actor Actor) error {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.ErrUnauthorized
	}
	return nil
}

func requireIdempotencyKey(actor Actor) error {
	if strings.TrimSpace(actor.IdempotencyKey) == "" {
		return domain.ErrIdempotencyRequired
	}
	return nil
}

// idempotentReplay returns true and decodes the cached response when this
// key already completed with an identical request hash. A same-key request
// with a different hash is a client bug and surfaces as a conflict.
func (s *Service) idempotentReplay(ctx context.Context, actor Actor, requestHash string, out any) (bool, error) {
	if s.idempotency == nil || strings.TrimSpace(actor.IdempotencyKey) == "" {
		return false, nil
	}
	rec, err := s.idempotency.Get(ctx, actor.IdempotencyKey)
	if err != nil || rec == nil {
		return false, err
	}
	if rec.RequestHash != requestHash {
		return false, domain.ErrIdempotencyConflict
	}
	if len(rec.ResponseBody) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(rec.ResponseBody, out); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *Service) reserveIdempotency(ctx context.Context, actor Actor, requestHash string) error {
	if s.idempotency == nil {
		return nil
	}
	if err := s.idempotency.Reserve(ctx, actor.IdempotencyKey, requestHash, s.nowFn().Add(s.cfg.IdempotencyTTL)); err != nil {
		if err == domain.ErrConflict {
			return domain.ErrIdempotencyConflict
		}
		return err
	}
	return nil
}

// releaseIdempotency frees a reservation whose operation wrote nothing, so
// a legitimate retry under the same key can go through instead of hitting
// the pending-reservation conflict.
func (s *Service) releaseIdempotency(ctx context.Context, actor Actor) {
	if s.idempotency == nil || strings.TrimSpace(actor.IdempotencyKey) == "" {
		return
	}
	_ = s.idempotency.Release(ctx, actor.IdempotencyKey)
}

func (s *Service) completeIdempotency(ctx context.Context, actor Actor, responseCode int, payload any) {
	if s.idempotency == nil || strings.TrimSpace(actor.IdempotencyKey) == "" {
		return
	}
	b, _ := json.Marshal(payload)
	_ = s.idempotency.Complete(ctx, actor.IdempotencyKey, responseCode, b, s.nowFn())
}

// enforceRateLimit applies a fixed-window counter per key; exceeding the
// threshold rejects the request without touching any state.
func (s *Service) enforceRateLimit(ctx context.Context, key string, threshold int, window time.Duration) error {
	if s.limiter == nil || threshold <= 0 {
		return nil
	}
	count, err := s.limiter.Increment(ctx, key, window)
	if err != nil {
		// The limiter is advisory; a broken counter must not block deals.
		return nil
	}
	if count > int64(threshold) {
		return fmt.Errorf("%w: rate limit exceeded", domain.ErrConflict)
	}
	return nil
}
