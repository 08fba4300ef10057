package ports

import (
	"context"
	"time"

	"github.com/venturelink/deal-service/internal/domain"
)

// IntentStore parks the viewer's original action while the NDA agreement
// step runs. Take removes and returns the intent so a resume happens at
// most once; Drop clears it on decline.
type IntentStore interface {
	Park(ctx context.Context, intent domain.ParkedIntent, ttl time.Duration) error
	Take(ctx context.Context, subjectID, viewerID string) (domain.ParkedIntent, bool, error)
	Drop(ctx context.Context, subjectID, viewerID string) error
}

// RateLimiter applies a fixed-window counter per key.
type RateLimiter interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}
