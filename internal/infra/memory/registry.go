package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/livequiz/session-engine/internal/domain"
	"github.com/livequiz/session-engine/internal/game"
)

// maxCodeAttempts bounds collision retries; with a 32^6 code space this is
// only ever hit when the injected CodeFunc is degenerate.
const maxCodeAttempts = 100

// Registry is the in-memory implementation of game.Registry. Generation and
// registration of a code happen under one lock, so concurrent Create calls
// can never share a code.
type Registry struct {
	codeFn game.CodeFunc
	clock  clockwork.Clock

	mu       sync.Mutex
	sessions map[string]*game.Session
}

// Option configures a Registry.
type Option func(*Registry)

// WithCodeFunc injects a code-generation strategy, mainly for tests.
func WithCodeFunc(fn game.CodeFunc) Option {
	return func(r *Registry) { r.codeFn = fn }
}

// WithClock injects the clock handed to new sessions.
func WithClock(clock clockwork.Clock) Option {
	return func(r *Registry) { r.clock = clock }
}

// NewRegistry creates an empty registry using random codes and the wall
// clock.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		codeFn:   game.RandomCode,
		clock:    clockwork.NewRealClock(),
		sessions: make(map[string]*game.Session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Create(set domain.QuestionSet) (*game.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := game.NormalizeCode(r.codeFn())
		if _, taken := r.sessions[code]; taken {
			continue
		}
		session := game.NewSessionWithClock(code, set, uuid.NewString(), r.clock)
		r.sessions[code] = session
		return session, nil
	}
	return nil, fmt.Errorf("could not allocate a unique session code after %d attempts", maxCodeAttempts)
}

func (r *Registry) Get(code string) (*game.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[game.NormalizeCode(code)]
	return session, ok
}

func (r *Registry) Remove(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := game.NormalizeCode(code)
	if session, ok := r.sessions[key]; ok {
		session.Close()
		delete(r.sessions, key)
	}
}

func (r *Registry) Sweep(olderThan time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.clock.Now().Add(-olderThan)
	var evicted []string
	for code, session := range r.sessions {
		if session.Status() == game.StatusFinished || session.CreatedAt().Before(cutoff) {
			session.Close()
			delete(r.sessions, code)
			evicted = append(evicted, code)
		}
	}
	return evicted
}
