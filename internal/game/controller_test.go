package game_test

import (
	"testing"
	"time"

	"github.com/livequiz/session-engine/internal/domain"
	"github.com/livequiz/session-engine/internal/game"
)

func TestFullGameFlow(t *testing.T) {
	session, fc := newLobbySession(t, 1)
	mustJoin(t, session, "Alice", "c1")
	mustJoin(t, session, "Bob", "c2")

	if err := session.Start(hostConn); err != nil {
		t.Fatalf("start: %v", err)
	}
	if session.Status() != game.StatusQuestion {
		t.Fatalf("expected question status, got %s", session.Status())
	}

	fc.Advance(2 * time.Second)
	correct, err := session.SubmitAnswer("alice", 1)
	if err != nil || !correct {
		t.Fatalf("expected alice correct, got correct=%v err=%v", correct, err)
	}

	fc.Advance(3 * time.Second)
	correct, err = session.SubmitAnswer("bob", 0)
	if err != nil || correct {
		t.Fatalf("expected bob incorrect, got correct=%v err=%v", correct, err)
	}

	// full ledger ends the question synchronously
	if session.Status() != game.StatusScored {
		t.Fatalf("expected scored after all answered, got %s", session.Status())
	}

	lb := session.Leaderboard(0)
	if lb[0].Nickname != "Alice" || lb[0].Score != 1450 || lb[0].Streak != 1 {
		t.Fatalf("unexpected leader %+v", lb[0])
	}
	if lb[1].Nickname != "Bob" || lb[1].Score != 0 || lb[1].Streak != 0 {
		t.Fatalf("unexpected runner-up %+v", lb[1])
	}

	history := session.History()
	if len(history) != 1 {
		t.Fatalf("expected one history entry, got %d", len(history))
	}
	sum := history[0].Summary
	if sum.TotalAnswers != 2 || sum.CorrectCount != 1 || sum.WrongCount != 1 || sum.AvgResponseMs != 3500 {
		t.Fatalf("unexpected summary %+v", sum)
	}

	finished, err := session.Advance(hostConn)
	if err != nil || !finished {
		t.Fatalf("expected advance past last question to finish, got finished=%v err=%v", finished, err)
	}
	if session.Status() != game.StatusFinished {
		t.Fatalf("expected finished, got %s", session.Status())
	}
	if _, err := session.SubmitAnswer("alice", 1); err != domain.ErrInvalidState {
		t.Fatalf("expected answers after finish rejected, got %v", err)
	}
}

func TestTimerExpiryScoresQuestion(t *testing.T) {
	session, fc := newLobbySession(t, 1)
	mustJoin(t, session, "Alice", "c1")

	if err := session.Start(hostConn); err != nil {
		t.Fatalf("start: %v", err)
	}

	fc.Advance(20 * time.Second)
	waitFor(t, "timeout scoring", func() bool { return session.Status() == game.StatusScored })

	history := session.History()
	if len(history) != 1 {
		t.Fatalf("expected one history entry, got %d", len(history))
	}
	sum := history[0].Summary
	if sum.TotalAnswers != 0 || sum.AvgResponseMs != 0 {
		t.Fatalf("expected empty summary with zero average, got %+v", sum)
	}
}

func TestManualEndAndTimerScoreOnce(t *testing.T) {
	session, fc := newLobbySession(t, 1)
	mustJoin(t, session, "Alice", "c1")

	events, cancel := session.Subscribe()
	defer cancel()

	if err := session.Start(hostConn); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := session.EndQuestion(hostConn); err != nil {
		t.Fatalf("manual end: %v", err)
	}
	if err := session.EndQuestion(hostConn); err != domain.ErrInvalidState {
		t.Fatalf("expected second end rejected, got %v", err)
	}

	// the timeout firing after a manual end must not score again
	fc.Advance(20 * time.Second)
	time.Sleep(50 * time.Millisecond)

	if got := len(session.History()); got != 1 {
		t.Fatalf("expected exactly one scored question, got %d", got)
	}

	summaries := 0
	for {
		select {
		case ev := <-events:
			if ev.Type == game.EventQuestionSummary {
				summaries++
			}
			continue
		default:
		}
		break
	}
	if summaries != 1 {
		t.Fatalf("expected one questionSummary broadcast, got %d", summaries)
	}
}

func TestCancelledTimerCannotTouchLaterQuestion(t *testing.T) {
	session, fc := newLobbySession(t, 2)
	mustJoin(t, session, "Alice", "c1")

	if err := session.Start(hostConn); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := session.EndQuestion(hostConn); err != nil {
		t.Fatalf("end: %v", err)
	}
	if finished, err := session.Advance(hostConn); err != nil || finished {
		t.Fatalf("advance: finished=%v err=%v", finished, err)
	}

	// only the second question's timer is armed now
	fc.Advance(20 * time.Second)
	waitFor(t, "second question timeout", func() bool { return len(session.History()) == 2 })

	history := session.History()
	if history[0].Index != 0 || history[1].Index != 1 {
		t.Fatalf("unexpected history indexes %+v", history)
	}
}

func TestDuplicateAnswerIgnored(t *testing.T) {
	session, _ := newLobbySession(t, 1)
	mustJoin(t, session, "Alice", "c1")
	mustJoin(t, session, "Bob", "c2")

	if err := session.Start(hostConn); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := session.SubmitAnswer("alice", 0); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	if _, err := session.SubmitAnswer("alice", 1); err != domain.ErrAlreadyAnswered {
		t.Fatalf("expected duplicate answer rejected, got %v", err)
	}
	if err := session.EndQuestion(hostConn); err != nil {
		t.Fatalf("end: %v", err)
	}

	sum := session.History()[0].Summary
	if sum.TotalAnswers != 1 || sum.WrongCount != 1 {
		t.Fatalf("expected the first answer to stand, got %+v", sum)
	}
}

func TestStateMachineGuards(t *testing.T) {
	session, _ := newLobbySession(t, 1)

	if err := session.Start(hostConn); err != domain.ErrNoPlayers {
		t.Fatalf("expected no-players rejection, got %v", err)
	}
	mustJoin(t, session, "Alice", "c1")

	if err := session.EndQuestion(hostConn); err != domain.ErrInvalidState {
		t.Fatalf("expected end in lobby rejected, got %v", err)
	}
	if _, err := session.Advance(hostConn); err != domain.ErrInvalidState {
		t.Fatalf("expected advance in lobby rejected, got %v", err)
	}
	if err := session.Start("not-the-host"); err != domain.ErrNotHost {
		t.Fatalf("expected non-host start rejected, got %v", err)
	}

	if err := session.Start(hostConn); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := session.Start(hostConn); err != domain.ErrInvalidState {
		t.Fatalf("expected second start rejected, got %v", err)
	}
	if _, err := session.Advance(hostConn); err != domain.ErrInvalidState {
		t.Fatalf("expected advance mid-question rejected, got %v", err)
	}
	if _, err := session.SubmitAnswer("ghost", 1); err != domain.ErrPlayerNotFound {
		t.Fatalf("expected unknown player rejected, got %v", err)
	}
	if _, err := session.SubmitAnswer("alice", 99); err != domain.ErrInvalidChoice {
		t.Fatalf("expected out-of-range choice rejected, got %v", err)
	}
}

func TestKickingLastHoldoutEndsQuestion(t *testing.T) {
	session, _ := newLobbySession(t, 1)
	mustJoin(t, session, "Alice", "c1")
	mustJoin(t, session, "Bob", "c2")

	if err := session.Start(hostConn); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := session.SubmitAnswer("alice", 1); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := session.Kick(hostConn, "Bob"); err != nil {
		t.Fatalf("kick: %v", err)
	}
	if session.Status() != game.StatusScored {
		t.Fatalf("expected kicking the last holdout to end the question, got %s", session.Status())
	}
}

func mustJoin(t *testing.T, session *game.Session, nickname, conn string) {
	t.Helper()
	if _, err := session.Join(nickname, conn); err != nil {
		t.Fatalf("join %s: %v", nickname, err)
	}
}
