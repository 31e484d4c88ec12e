package game

import (
	"sort"

	"github.com/livequiz/session-engine/internal/domain"
)

// Leaderboard returns the standings, score descending with streak as the tie
// breaker, truncated to limit when limit is positive. Pure read projection.
func (s *Session) Leaderboard(limit int) []domain.LeaderboardEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leaderboardLocked(limit)
}

func (s *Session) leaderboardLocked(limit int) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(s.players))
	for _, p := range s.players {
		entries = append(entries, domain.LeaderboardEntry{
			Nickname: p.nickname,
			Score:    p.score,
			Streak:   p.streak,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].Streak != entries[j].Streak {
			return entries[i].Streak > entries[j].Streak
		}
		return entries[i].Nickname < entries[j].Nickname
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// History returns a copy of the per-question results so far.
func (s *Session) History() []domain.QuestionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.QuestionResult(nil), s.history...)
}

// Result snapshots a finished session for archival.
func (s *Session) Result() domain.SessionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SessionResult{
		Code:        s.code,
		SetID:       s.set.ID,
		Leaderboard: s.leaderboardLocked(0),
		History:     append([]domain.QuestionResult(nil), s.history...),
		FinishedAt:  s.clock.Now(),
	}
}

// summarize aggregates an answer ledger into the per-question statistics.
// The average is zero when nobody answered.
func summarize(correctIndex int, answers map[string]answer) domain.QuestionSummary {
	sum := domain.QuestionSummary{TotalAnswers: len(answers)}
	if len(answers) == 0 {
		return sum
	}
	var totalMs int64
	for _, a := range answers {
		if a.choice == correctIndex {
			sum.CorrectCount++
		} else {
			sum.WrongCount++
		}
		totalMs += a.elapsedMs
	}
	sum.AvgResponseMs = totalMs / int64(len(answers))
	return sum
}
