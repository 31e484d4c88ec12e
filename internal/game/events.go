package game

import "github.com/livequiz/session-engine/internal/domain"

// EventType tags a room broadcast.
type EventType string

const (
	EventLobbyUpdate       EventType = "lobbyUpdate"
	EventQuestionShown     EventType = "questionShown"
	EventAnswerProgress    EventType = "answerProgress"
	EventLeaderboardUpdate EventType = "leaderboardUpdate"
	EventQuestionSummary   EventType = "questionSummary"
	EventSessionFinished   EventType = "sessionFinished"
	EventHostDisconnected  EventType = "hostDisconnected"
	EventPlayerKicked      EventType = "playerKicked"
)

// Event is a single message fanned out to every room subscriber. Per-caller
// responses (join results, answer feedback) are returned from the command
// instead and never broadcast.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// LobbyUpdate reflects the current set of players, scores included so that a
// reconnecting player's standing survives in the view.
type LobbyUpdate struct {
	Code    string                    `json:"code"`
	Title   string                    `json:"title"`
	Players []domain.LeaderboardEntry `json:"players"`
}

// QuestionShown presents a question to the room. The correct index is
// withheld.
type QuestionShown struct {
	Index        int      `json:"index"`
	Total        int      `json:"total"`
	Prompt       string   `json:"prompt"`
	Choices      []string `json:"choices"`
	TimeLimitSec int      `json:"timeLimitSec"`
}

// AnswerProgress tells the room how many answers are in for the current
// question.
type AnswerProgress struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

// LeaderboardUpdate carries the standings after a question is scored.
type LeaderboardUpdate struct {
	Entries []domain.LeaderboardEntry `json:"entries"`
}

// SessionFinished carries the final standings and the full per-question
// history.
type SessionFinished struct {
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
	History     []domain.QuestionResult   `json:"history"`
}

// PlayerKicked notifies the room that a player was removed by the host. The
// transport uses it to drop the affected connection.
type PlayerKicked struct {
	Nickname string `json:"nickname"`
}

// HostDisconnected signals that the host connection dropped and the session
// is waiting for a resume.
type HostDisconnected struct{}
