package game

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/livequiz/session-engine/internal/domain"
)

// Start moves a lobby session to its first question. Host only.
func (s *Session) Start(conn string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireHostLocked(conn); err != nil {
		return err
	}
	if s.status != StatusLobby {
		return domain.ErrInvalidState
	}
	if s.eligibleLocked() == 0 {
		return domain.ErrNoPlayers
	}
	s.questionIndex = 0
	s.beginQuestionLocked()
	return nil
}

// SubmitAnswer records a player's answer for the current question and
// reports, to that caller only, whether it was correct. A second answer from
// the same player is rejected without touching the ledger. Reaching a full
// ledger ends the question.
func (s *Session) SubmitAnswer(playerKey string, choice int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusQuestion {
		return false, domain.ErrInvalidState
	}
	if _, ok := s.players[playerKey]; !ok {
		return false, domain.ErrPlayerNotFound
	}
	if _, dup := s.answers[playerKey]; dup {
		return false, domain.ErrAlreadyAnswered
	}
	q := s.set.Questions[s.questionIndex]
	if choice < 0 || choice >= len(q.Choices) {
		return false, domain.ErrInvalidChoice
	}

	elapsed := s.clock.Now().Sub(s.startedAt).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}
	s.answers[playerKey] = answer{choice: choice, elapsedMs: elapsed}
	correct := choice == q.CorrectIndex

	s.broadcastLocked(Event{Type: EventAnswerProgress, Payload: AnswerProgress{
		Answered: len(s.answers),
		Total:    s.eligibleLocked(),
	}})
	if len(s.answers) >= s.eligibleLocked() {
		s.endQuestionLocked()
	}
	return correct, nil
}

// EndQuestion lets the host cut a question short. Host only; scoring remains
// idempotent against the timeout racing in.
func (s *Session) EndQuestion(conn string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireHostLocked(conn); err != nil {
		return err
	}
	if s.status != StatusQuestion {
		return domain.ErrInvalidState
	}
	s.endQuestionLocked()
	return nil
}

// Advance moves to the next question, or finishes the session after the last
// one. Host only. The finished return tells the caller a terminal snapshot is
// now available.
func (s *Session) Advance(conn string) (finished bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireHostLocked(conn); err != nil {
		return false, err
	}
	if s.status != StatusScored {
		return false, domain.ErrInvalidState
	}
	if s.questionIndex+1 >= len(s.set.Questions) {
		s.finishLocked()
		return true, nil
	}
	s.questionIndex++
	s.beginQuestionLocked()
	return false, nil
}

// beginQuestionLocked resets the per-question state, arms the timeout, and
// shows the question to the room.
func (s *Session) beginQuestionLocked() {
	s.status = StatusQuestion
	s.answers = make(map[string]answer)
	s.scored = false
	s.startedAt = s.clock.Now()
	s.armTimerLocked()

	q := s.set.Questions[s.questionIndex]
	s.broadcastLocked(Event{Type: EventQuestionShown, Payload: QuestionShown{
		Index:        s.questionIndex,
		Total:        len(s.set.Questions),
		Prompt:       q.Prompt,
		Choices:      q.Choices,
		TimeLimitSec: q.TimeLimitSec,
	}})
}

// endQuestionLocked scores the current question exactly once. The scored flag
// is the idempotency guard between the timeout, an all-answered trigger, and
// a manual host end.
func (s *Session) endQuestionLocked() {
	if s.scored || s.status != StatusQuestion {
		return
	}
	s.scored = true
	s.disarmTimerLocked()

	q := s.set.Questions[s.questionIndex]
	streaks := make(map[string]int, len(s.players))
	for key, p := range s.players {
		streaks[key] = p.streak
	}
	ledger := make([]AnswerRecord, 0, len(s.answers))
	for key, a := range s.answers {
		ledger = append(ledger, AnswerRecord{PlayerKey: key, Choice: a.choice, ElapsedMs: a.elapsedMs})
	}
	for key, delta := range ScoreQuestion(q, ledger, streaks) {
		if p, ok := s.players[key]; ok {
			p.score += delta.Points
			p.streak = delta.Streak
		}
	}

	summary := summarize(q.CorrectIndex, s.answers)
	s.history = append(s.history, domain.QuestionResult{
		Index:        s.questionIndex,
		Prompt:       q.Prompt,
		CorrectIndex: q.CorrectIndex,
		Summary:      summary,
	})
	s.status = StatusScored

	s.broadcastLocked(Event{Type: EventLeaderboardUpdate, Payload: LeaderboardUpdate{Entries: s.leaderboardLocked(0)}})
	s.broadcastLocked(Event{Type: EventQuestionSummary, Payload: summary})
}

func (s *Session) finishLocked() {
	s.status = StatusFinished
	s.disarmTimerLocked()
	s.broadcastLocked(Event{Type: EventSessionFinished, Payload: SessionFinished{
		Leaderboard: s.leaderboardLocked(0),
		History:     append([]domain.QuestionResult(nil), s.history...),
	}})
}

// armTimerLocked schedules the question timeout. The goroutine re-enters
// through timedOut, which revalidates the question index so a stray late
// firing can never touch a later question's ledger.
func (s *Session) armTimerLocked() {
	q := s.set.Questions[s.questionIndex]
	t := s.clock.NewTimer(time.Duration(q.TimeLimitSec) * time.Second)
	cancel := make(chan struct{})
	s.timerCancel = cancel
	idx := s.questionIndex
	go func() {
		select {
		case <-t.Chan():
			s.timedOut(idx)
		case <-cancel:
			stopAndDrainTimer(t)
		}
	}()
}

// disarmTimerLocked cancels the pending timeout. Every non-timeout path that
// ends a question goes through here.
func (s *Session) disarmTimerLocked() {
	if s.timerCancel != nil {
		close(s.timerCancel)
		s.timerCancel = nil
	}
}

func (s *Session) timedOut(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusQuestion || s.questionIndex != idx || s.scored {
		return
	}
	s.endQuestionLocked()
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired,
// per the time.Timer.Stop contract.
func stopAndDrainTimer(t clockwork.Timer) {
	if !t.Stop() {
		select {
		case <-t.Chan():
		default:
		}
	}
}
