package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/livequiz/session-engine/internal/domain"
)

func TestArchiveRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	archive := NewArchive(newClient(mr), time.Hour)
	result := domain.SessionResult{
		Code:  "ABC234",
		SetID: "set-1",
		Leaderboard: []domain.LeaderboardEntry{
			{Nickname: "Alice", Score: 1450, Streak: 1},
		},
		History: []domain.QuestionResult{
			{Index: 0, Prompt: "pick B", CorrectIndex: 1, Summary: domain.QuestionSummary{TotalAnswers: 1, CorrectCount: 1}},
		},
		FinishedAt: time.Now().UTC(),
	}

	if err := archive.SaveResult(context.Background(), result); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := archive.LoadResult(context.Background(), "ABC234")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Leaderboard) != 1 || loaded.Leaderboard[0].Nickname != "Alice" {
		t.Fatalf("unexpected archived leaderboard %+v", loaded.Leaderboard)
	}

	if _, err := archive.LoadResult(context.Background(), "MISSIN"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected not-found for missing result, got %v", err)
	}
}
