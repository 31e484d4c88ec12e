package game

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"

	"github.com/livequiz/session-engine/internal/domain"
)

const maxNicknameLen = 20

// Status is the lifecycle phase of a session.
type Status string

const (
	StatusLobby    Status = "lobby"
	StatusQuestion Status = "question"
	StatusScored   Status = "scored"
	StatusFinished Status = "finished"
)

type player struct {
	nickname string // display casing preserved
	score    int
	streak   int
	conn     string // connection id, "" when offline
}

type answer struct {
	choice    int
	elapsedMs int64
}

// Session is the in-memory aggregate for one live game. All mutations run to
// completion under a single mutex; the per-question timeout is the only
// deferred work and re-enters through the same mutex.
type Session struct {
	code      string
	set       domain.QuestionSet
	hostToken string
	clock     clockwork.Clock
	createdAt time.Time

	mu            sync.Mutex
	hostConn      string
	players       map[string]*player // keyed by PlayerKey(nickname)
	blocked       map[string]struct{}
	status        Status
	questionIndex int
	startedAt     time.Time
	answers       map[string]answer
	scored        bool
	timerCancel   chan struct{}
	history       []domain.QuestionResult
	subscribers   map[chan Event]struct{}
	closed        bool
}

// NewSession creates a session in the lobby state using the wall clock.
func NewSession(code string, set domain.QuestionSet, hostToken string) *Session {
	return NewSessionWithClock(code, set, hostToken, clockwork.NewRealClock())
}

// NewSessionWithClock allows a fake clock for deterministic timer tests.
func NewSessionWithClock(code string, set domain.QuestionSet, hostToken string, clock clockwork.Clock) *Session {
	return &Session{
		code:          code,
		set:           set,
		hostToken:     hostToken,
		clock:         clock,
		createdAt:     clock.Now(),
		players:       make(map[string]*player),
		blocked:       make(map[string]struct{}),
		status:        StatusLobby,
		questionIndex: -1,
		answers:       make(map[string]answer),
		subscribers:   make(map[chan Event]struct{}),
	}
}

// Code returns the session code.
func (s *Session) Code() string { return s.code }

// SetID returns the id of the question set this session plays.
func (s *Session) SetID() string { return s.set.ID }

// HostToken returns the capability token required to (re)claim the host seat.
func (s *Session) HostToken() string { return s.hostToken }

// CreatedAt returns the creation timestamp, used by registry sweeps.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Status returns the current lifecycle phase.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// ClaimHost binds a connection to the host seat. The first claim after
// creation and any resume after a host disconnect both go through here; a
// resume requires the capability token handed out at creation.
func (s *Session) ClaimHost(token, conn string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusFinished {
		return domain.ErrSessionFinished
	}
	if token != s.hostToken {
		return domain.ErrHostTokenMismatch
	}
	if s.hostConn != "" && s.hostConn != conn {
		return domain.ErrInvalidState
	}
	s.hostConn = conn
	return nil
}

// Join admits a player, or rebinds a disconnected player's record to a new
// connection with score and streak intact. New nicknames are accepted in the
// lobby only; rebinds are allowed mid-game so a dropped player can return.
func (s *Session) Join(rawNickname, conn string) (string, error) {
	nickname := strings.TrimSpace(rawNickname)
	if nickname == "" {
		return "", domain.ErrInvalidNickname
	}
	if utf8.RuneCountInString(nickname) > maxNicknameLen {
		nickname = string([]rune(nickname)[:maxNicknameLen])
	}
	key := PlayerKey(nickname)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusFinished {
		return "", domain.ErrSessionFinished
	}
	if _, ok := s.blocked[key]; ok {
		return "", domain.ErrNicknameBlocked
	}
	if p, ok := s.players[key]; ok {
		if p.conn != "" && p.conn != conn {
			return "", domain.ErrNicknameInUse
		}
		p.conn = conn
		s.broadcastLocked(Event{Type: EventLobbyUpdate, Payload: s.lobbyLocked()})
		return p.nickname, nil
	}
	if s.status != StatusLobby {
		return "", domain.ErrGameAlreadyStarted
	}
	s.players[key] = &player{nickname: nickname, conn: conn}
	s.broadcastLocked(Event{Type: EventLobbyUpdate, Payload: s.lobbyLocked()})
	return nickname, nil
}

// Disconnect clears the presence of whichever party owned the connection.
// Player records keep their score for a later rebind; the host seat is left
// vacant until resumed with the capability token.
func (s *Session) Disconnect(conn string) (wasHost bool) {
	if conn == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if conn == s.hostConn {
		s.hostConn = ""
		s.broadcastLocked(Event{Type: EventHostDisconnected, Payload: HostDisconnected{}})
		return true
	}
	for _, p := range s.players {
		if p.conn == conn {
			p.conn = ""
			s.broadcastLocked(Event{Type: EventLobbyUpdate, Payload: s.lobbyLocked()})
			break
		}
	}
	return false
}

// Kick removes a player record entirely. Host only.
func (s *Session) Kick(conn, nickname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireHostLocked(conn); err != nil {
		return err
	}
	return s.removePlayerLocked(PlayerKey(nickname))
}

// Block adds a nickname to the blocklist consulted at join time and removes
// any matching player record. Host only.
func (s *Session) Block(conn, nickname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireHostLocked(conn); err != nil {
		return err
	}
	key := PlayerKey(nickname)
	s.blocked[key] = struct{}{}
	if _, ok := s.players[key]; ok {
		return s.removePlayerLocked(key)
	}
	return nil
}

// Unblock removes a nickname from the blocklist. Host only.
func (s *Session) Unblock(conn, nickname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireHostLocked(conn); err != nil {
		return err
	}
	delete(s.blocked, PlayerKey(nickname))
	return nil
}

func (s *Session) removePlayerLocked(key string) error {
	p, ok := s.players[key]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	delete(s.players, key)
	delete(s.answers, key)
	s.broadcastLocked(Event{Type: EventPlayerKicked, Payload: PlayerKicked{Nickname: p.nickname}})
	s.broadcastLocked(Event{Type: EventLobbyUpdate, Payload: s.lobbyLocked()})
	// removing the last holdout may complete the question
	if s.status == StatusQuestion && !s.scored && len(s.players) > 0 && len(s.answers) >= s.eligibleLocked() {
		s.endQuestionLocked()
	}
	return nil
}

func (s *Session) requireHostLocked(conn string) error {
	if s.hostConn == "" || conn != s.hostConn {
		return domain.ErrNotHost
	}
	return nil
}

func (s *Session) eligibleLocked() int {
	n := 0
	for key := range s.players {
		if _, blocked := s.blocked[key]; !blocked {
			n++
		}
	}
	return n
}

// Subscribe registers a room subscriber and immediately delivers the current
// lobby view. The caller must invoke the returned cancel function.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	// sent under the lock so no broadcast can precede the initial snapshot
	ch <- Event{Type: EventLobbyUpdate, Payload: s.lobbyLocked()}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Close cancels any outstanding timer and closes all subscriber channels.
// Called when the registry evicts the session.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.disarmTimerLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *Session) broadcastLocked(ev Event) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// drop the oldest update rather than block the engine on a slow
			// subscriber
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func (s *Session) lobbyLocked() LobbyUpdate {
	return LobbyUpdate{
		Code:    s.code,
		Title:   s.set.Title,
		Players: s.leaderboardLocked(0),
	}
}
