package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/livequiz/session-engine/internal/domain"
)

// SetLoader fetches question sets from a backing store (e.g., Postgres).
type SetLoader interface {
	LoadQuestionSet(ctx context.Context, id string) (domain.QuestionSet, error)
}

// SetStore caches question sets with TTL to avoid repeated backing-store
// hits while sessions reference the same set.
type SetStore struct {
	loader SetLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedSet
}

type cachedSet struct {
	set       domain.QuestionSet
	expiresAt time.Time
}

func NewSetStore(loader SetLoader, ttl time.Duration) *SetStore {
	return &SetStore{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSet),
	}
}

func (s *SetStore) GetQuestionSet(ctx context.Context, id string) (domain.QuestionSet, error) {
	now := s.clock()

	s.mu.RLock()
	if entry, ok := s.cache[id]; ok && entry.expiresAt.After(now) {
		s.mu.RUnlock()
		return entry.set, nil
	}
	s.mu.RUnlock()

	result, err, _ := s.sf.Do(id, func() (interface{}, error) {
		now := s.clock()
		s.mu.RLock()
		if entry, ok := s.cache[id]; ok && entry.expiresAt.After(now) {
			s.mu.RUnlock()
			return entry.set, nil
		}
		s.mu.RUnlock()

		set, err := s.loader.LoadQuestionSet(ctx, id)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		s.mu.Lock()
		s.cache[id] = cachedSet{set: set, expiresAt: now.Add(s.ttlWithJitter())}
		s.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

// StaticSetLoader is a loader backed by an in-memory map, used for demos and
// tests.
type StaticSetLoader struct {
	sets map[string]domain.QuestionSet
}

func NewStaticSetLoader(sets map[string]domain.QuestionSet) *StaticSetLoader {
	return &StaticSetLoader{sets: sets}
}

func (l *StaticSetLoader) LoadQuestionSet(_ context.Context, id string) (domain.QuestionSet, error) {
	if set, ok := l.sets[id]; ok {
		return set, nil
	}
	return domain.QuestionSet{}, domain.ErrQuestionSetNotFound
}

func (s *SetStore) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}
