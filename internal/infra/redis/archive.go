package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/livequiz/session-engine/internal/domain"
)

// Archive stores terminal session snapshots in Redis with a TTL, so final
// standings outlive the in-memory session after eviction. Key:
// quiz:result:{code}.
type Archive struct {
	client *redis.Client
	ttl    time.Duration
}

func NewArchive(client *redis.Client, ttl time.Duration) *Archive {
	return &Archive{client: client, ttl: ttl}
}

func (a *Archive) SaveResult(ctx context.Context, result domain.SessionResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return a.client.Set(ctx, a.key(result.Code), data, a.ttl).Err()
}

// LoadResult retrieves an archived snapshot, returning ErrSessionNotFound
// when none exists or the TTL elapsed.
func (a *Archive) LoadResult(ctx context.Context, code string) (domain.SessionResult, error) {
	raw, err := a.client.Get(ctx, a.key(code)).Bytes()
	if err == redis.Nil {
		return domain.SessionResult{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.SessionResult{}, err
	}
	var result domain.SessionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.SessionResult{}, err
	}
	return result, nil
}

func (a *Archive) key(code string) string {
	return "quiz:result:" + code
}
