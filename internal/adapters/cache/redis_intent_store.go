package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/venturelink/deal-service/internal/domain"
)

// RedisIntentStore parks the viewer's pending action while the agreement
// step completes. GETDEL on take keeps the resume single-shot even with
// concurrent accepts.
type RedisIntentStore struct {
	client *redis.Client
}

func NewRedisIntentStore(client *redis.Client) *RedisIntentStore {
	return &RedisIntentStore{client: client}
}

func intentKey(subjectID, viewerID string) string {
	return "deal:nda:intent:" + subjectID + ":" + viewerID
}

func (s *RedisIntentStore) Park(ctx context.Context, intent domain.ParkedIntent, ttl time.Duration) error {
	raw, err := json.Marshal(intent)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, intentKey(intent.SubjectID, intent.ViewerID), raw, ttl).Err()
}

func (s *RedisIntentStore) Take(ctx context.Context, subjectID, viewerID string) (domain.ParkedIntent, bool, error) {
	raw, err := s.client.GetDel(ctx, intentKey(subjectID, viewerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ParkedIntent{}, false, nil
		}
		return domain.ParkedIntent{}, false, err
	}
	var intent domain.ParkedIntent
	if err := json.Unmarshal(raw, &intent); err != nil {
		return domain.ParkedIntent{}, false, err
	}
	return intent, true, nil
}

func (s *RedisIntentStore) Drop(ctx context.Context, subjectID, viewerID string) error {
	return s.client.Del(ctx, intentKey(subjectID, viewerID)).Err()
}
