package game

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/livequiz/session-engine/internal/domain"
)

// Service is the command boundary of the engine. Every caller action enters
// here, is routed to the owning session, and any failure is returned to that
// caller alone; room broadcasts flow through session subscriptions.
type Service struct {
	registry Registry
	sets     SetRepository
	archive  ResultArchive
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithArchive attaches a terminal-snapshot archive.
func WithArchive(a ResultArchive) Option {
	return func(s *Service) { s.archive = a }
}

// NewService wires the engine's use cases.
func NewService(registry Registry, sets SetRepository, opts ...Option) *Service {
	s := &Service{registry: registry, sets: sets}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession loads and validates the question set, then registers a new
// lobby session. The returned token is the host capability; the caller must
// ClaimHost with it to drive the game.
func (s *Service) CreateSession(ctx context.Context, setID string) (code, hostToken string, err error) {
	set, err := s.sets.GetQuestionSet(ctx, setID)
	if err != nil {
		return "", "", err
	}
	if err := set.Validate(); err != nil {
		return "", "", err
	}
	session, err := s.registry.Create(set)
	if err != nil {
		return "", "", err
	}
	log.Info().Str("code", session.Code()).Str("set_id", setID).Msg("session created")
	return session.Code(), session.HostToken(), nil
}

// ClaimHost binds a connection to the host seat of a session.
func (s *Service) ClaimHost(code, token, conn string) error {
	session, ok := s.registry.Get(code)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.ClaimHost(token, conn)
}

// Join admits or rebinds a player and returns the final nickname.
func (s *Service) Join(code, nickname, conn string) (string, error) {
	session, ok := s.registry.Get(code)
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	return session.Join(nickname, conn)
}

// Start begins the first question. Host only.
func (s *Service) Start(code, conn string) error {
	session, ok := s.registry.Get(code)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.Start(conn)
}

// SubmitAnswer records a player answer and reports correctness to the caller.
func (s *Service) SubmitAnswer(code, playerKey string, choice int) (bool, error) {
	session, ok := s.registry.Get(code)
	if !ok {
		return false, domain.ErrSessionNotFound
	}
	return session.SubmitAnswer(playerKey, choice)
}

// EndQuestion cuts the current question short. Host only.
func (s *Service) EndQuestion(code, conn string) error {
	session, ok := s.registry.Get(code)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.EndQuestion(conn)
}

// Advance moves to the next question or finishes the session, archiving the
// terminal snapshot when one is produced.
func (s *Service) Advance(ctx context.Context, code, conn string) error {
	session, ok := s.registry.Get(code)
	if !ok {
		return domain.ErrSessionNotFound
	}
	finished, err := session.Advance(conn)
	if err != nil {
		return err
	}
	if finished {
		log.Info().Str("code", session.Code()).Msg("session finished")
		if s.archive != nil {
			if err := s.archive.SaveResult(ctx, session.Result()); err != nil {
				log.Warn().Err(err).Str("code", session.Code()).Msg("archive result failed")
			}
		}
	}
	return nil
}

// Kick forcibly removes a player. Host only.
func (s *Service) Kick(code, conn, nickname string) error {
	session, ok := s.registry.Get(code)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.Kick(conn, nickname)
}

// Block blocklists a nickname and removes any matching player. Host only.
func (s *Service) Block(code, conn, nickname string) error {
	session, ok := s.registry.Get(code)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.Block(conn, nickname)
}

// Unblock removes a nickname from the blocklist. Host only.
func (s *Service) Unblock(code, conn, nickname string) error {
	session, ok := s.registry.Get(code)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.Unblock(conn, nickname)
}

// Disconnect reacts to a dropped connection. Presence is cleared; scores and
// the session itself survive so the owner can return.
func (s *Service) Disconnect(code, conn string) {
	session, ok := s.registry.Get(code)
	if !ok {
		return
	}
	if session.Disconnect(conn) {
		log.Info().Str("code", session.Code()).Msg("host disconnected, session awaiting resume")
	}
}

// Subscribe attaches a room subscriber for a session's broadcasts. The
// caller must invoke the returned cancel function.
func (s *Service) Subscribe(code string) (<-chan Event, func(), error) {
	session, ok := s.registry.Get(code)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Leaderboard returns the standings for a session.
func (s *Service) Leaderboard(code string, limit int) ([]domain.LeaderboardEntry, error) {
	session, ok := s.registry.Get(code)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Leaderboard(limit), nil
}

// QuestionSetPreview returns a sanitized copy of a set for host UIs.
func (s *Service) QuestionSetPreview(ctx context.Context, id string) (domain.QuestionSet, error) {
	set, err := s.sets.GetQuestionSet(ctx, id)
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return set.Sanitized(), nil
}

// RunSweeper periodically evicts finished and abandoned sessions until the
// context is cancelled.
func (s *Service) RunSweeper(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if evicted := s.registry.Sweep(maxAge); len(evicted) > 0 {
				log.Info().Strs("codes", evicted).Msg("swept sessions")
			}
		}
	}
}
