package game

import (
	"context"
	"time"

	"github.com/livequiz/session-engine/internal/domain"
)

// Registry owns the process-wide collection of live sessions. Code
// generation and registration are one atomic step: Create never returns a
// code already held by another live session.
type Registry interface {
	Create(set domain.QuestionSet) (*Session, error)
	Get(code string) (*Session, bool)
	Remove(code string)
	// Sweep evicts finished sessions and sessions older than olderThan,
	// returning the evicted codes.
	Sweep(olderThan time.Duration) []string
}

// SetRepository loads question sets (from cache/backing store).
type SetRepository interface {
	GetQuestionSet(ctx context.Context, id string) (domain.QuestionSet, error)
}

// ResultArchive persists terminal session snapshots, best-effort.
type ResultArchive interface {
	SaveResult(ctx context.Context, result domain.SessionResult) error
}
