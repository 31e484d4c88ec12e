package domain

import "time"

// Question models a single multiple-choice question.
type Question struct {
	Prompt       string   `json:"prompt"`
	Choices      []string `json:"choices"`
	CorrectIndex int      `json:"correctIndex"`
	TimeLimitSec int      `json:"timeLimitSec"`
}

// QuestionSet is an ordered collection of questions. Sessions hold it by
// value and never mutate it.
type QuestionSet struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Validate checks the structural invariants every set must satisfy before a
// session may reference it.
func (qs QuestionSet) Validate() error {
	if len(qs.Questions) == 0 {
		return ErrInvalidQuestionSet
	}
	for _, q := range qs.Questions {
		if len(q.Choices) < 2 {
			return ErrInvalidQuestionSet
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Choices) {
			return ErrInvalidQuestionSet
		}
		if q.TimeLimitSec <= 0 {
			return ErrInvalidQuestionSet
		}
	}
	return nil
}

// Sanitized returns a copy of the set with correct indexes withheld, safe to
// hand to clients before or during play.
func (qs QuestionSet) Sanitized() QuestionSet {
	out := QuestionSet{ID: qs.ID, Title: qs.Title, Questions: make([]Question, len(qs.Questions))}
	for i, q := range qs.Questions {
		out.Questions[i] = Question{
			Prompt:       q.Prompt,
			Choices:      q.Choices,
			CorrectIndex: -1,
			TimeLimitSec: q.TimeLimitSec,
		}
	}
	return out
}

// LeaderboardEntry is a snapshot-friendly view of a player.
type LeaderboardEntry struct {
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
	Streak   int    `json:"streak"`
}

// QuestionSummary aggregates the answer ledger of a just-ended question.
type QuestionSummary struct {
	TotalAnswers  int   `json:"totalAnswers"`
	CorrectCount  int   `json:"correctCount"`
	WrongCount    int   `json:"wrongCount"`
	AvgResponseMs int64 `json:"avgResponseMs"`
}

// QuestionResult is the per-question history entry kept for the lifetime of a
// session and replayed in the final standings.
type QuestionResult struct {
	Index        int             `json:"index"`
	Prompt       string          `json:"prompt"`
	CorrectIndex int             `json:"correctIndex"`
	Summary      QuestionSummary `json:"summary"`
}

// SessionResult is the terminal snapshot of a finished session, archived
// best-effort for later retrieval.
type SessionResult struct {
	Code        string             `json:"code"`
	SetID       string             `json:"setId"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	History     []QuestionResult   `json:"history"`
	FinishedAt  time.Time          `json:"finishedAt"`
}
