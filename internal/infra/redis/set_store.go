package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/livequiz/session-engine/internal/domain"
)

// SetLoader fetches question sets from a backing store (e.g., Postgres).
type SetLoader interface {
	LoadQuestionSet(ctx context.Context, id string) (domain.QuestionSet, error)
}

// SetStore caches full question sets in Redis as JSON and falls back to a
// loader on cache miss. Key: quiz:set:{id}.
type SetStore struct {
	client *redis.Client
	loader SetLoader
	ttl    time.Duration
	sf     singleflight.Group
}

func NewSetStore(client *redis.Client, loader SetLoader, ttl time.Duration) *SetStore {
	return &SetStore{
		client: client,
		loader: loader,
		ttl:    ttl,
	}
}

func (s *SetStore) GetQuestionSet(ctx context.Context, id string) (domain.QuestionSet, error) {
	if set, ok := s.cached(ctx, id); ok {
		return set, nil
	}

	result, err, _ := s.sf.Do(id, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if set, ok := s.cached(ctx, id); ok {
			return set, nil
		}

		set, err := s.loader.LoadQuestionSet(ctx, id)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		data, err := json.Marshal(set)
		if err != nil {
			return domain.QuestionSet{}, err
		}
		_ = s.client.Set(ctx, s.key(id), data, s.ttlWithJitter()).Err()
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

func (s *SetStore) cached(ctx context.Context, id string) (domain.QuestionSet, bool) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		return domain.QuestionSet{}, false
	}
	var set domain.QuestionSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return domain.QuestionSet{}, false
	}
	return set, true
}

func (s *SetStore) key(id string) string {
	return "quiz:set:" + id
}

// ttlWithJitter spreads expirations by up to 10%. Uses the top-level rand
// functions: singleflight only serializes callers of the same key, so misses
// on different ids reach here concurrently.
func (s *SetStore) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
