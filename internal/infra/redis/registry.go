package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/livequiz/session-engine/internal/domain"
	"github.com/livequiz/session-engine/internal/game"
)

// Registry decorates an in-process registry with Redis liveness markers.
// Sessions themselves stay in process memory (single authoritative owner);
// the markers let operators and adjacent services see which codes are live.
type Registry struct {
	inner  game.Registry
	client *redis.Client
	ttl    time.Duration
}

func NewRegistry(inner game.Registry, client *redis.Client, ttl time.Duration) *Registry {
	return &Registry{inner: inner, client: client, ttl: ttl}
}

func (r *Registry) Create(set domain.QuestionSet) (*game.Session, error) {
	session, err := r.inner.Create(set)
	if err != nil {
		return nil, err
	}
	// best-effort liveness marker
	_ = r.client.Set(context.Background(), r.key(session.Code()), set.ID, r.ttl).Err()
	return session, nil
}

func (r *Registry) Get(code string) (*game.Session, bool) {
	return r.inner.Get(code)
}

func (r *Registry) Remove(code string) {
	r.inner.Remove(code)
	_ = r.client.Del(context.Background(), r.key(game.NormalizeCode(code))).Err()
}

func (r *Registry) Sweep(olderThan time.Duration) []string {
	evicted := r.inner.Sweep(olderThan)
	for _, code := range evicted {
		_ = r.client.Del(context.Background(), r.key(code)).Err()
	}
	return evicted
}

func (r *Registry) key(code string) string {
	return "quiz:session:" + code
}
