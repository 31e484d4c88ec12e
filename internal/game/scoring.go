package game

import (
	"math"
	"sort"

	"github.com/livequiz/session-engine/internal/domain"
)

// Scoring constants. A correct answer earns the base plus a speed bonus that
// decays linearly over the question's time limit, plus a capped streak bonus
// computed from the streak held before this question.
const (
	BasePoints     = 1000
	SpeedBonusMax  = 500
	StreakUnit     = 100
	StreakBonusCap = 500
)

// AnswerRecord is one entry of a question's answer ledger.
type AnswerRecord struct {
	PlayerKey string
	Choice    int
	ElapsedMs int64
}

// ScoreDelta is the outcome of one question for one player. Points is always
// non-negative; wrong or missing answers cost streak, never score.
type ScoreDelta struct {
	Correct bool
	Points  int
	Streak  int
}

// ScoreQuestion computes per-player deltas for a just-ended question. It is
// pure: the same ledger and streak map always yield the same result. Every
// player present in streaks receives a delta; players absent from the ledger
// are treated as incorrect and have their streak reset.
func ScoreQuestion(q domain.Question, ledger []AnswerRecord, streaks map[string]int) map[string]ScoreDelta {
	sorted := make([]AnswerRecord, len(ledger))
	copy(sorted, ledger)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ElapsedMs != sorted[j].ElapsedMs {
			return sorted[i].ElapsedMs < sorted[j].ElapsedMs
		}
		return sorted[i].PlayerKey < sorted[j].PlayerKey
	})

	out := make(map[string]ScoreDelta, len(streaks))
	for key := range streaks {
		out[key] = ScoreDelta{}
	}
	for _, rec := range sorted {
		prev := streaks[rec.PlayerKey]
		if rec.Choice != q.CorrectIndex {
			out[rec.PlayerKey] = ScoreDelta{}
			continue
		}
		streakBonus := 0
		if prev > 0 {
			streakBonus = prev * StreakUnit
			if streakBonus > StreakBonusCap {
				streakBonus = StreakBonusCap
			}
		}
		out[rec.PlayerKey] = ScoreDelta{
			Correct: true,
			Points:  BasePoints + speedBonus(q.TimeLimitSec, rec.ElapsedMs) + streakBonus,
			Streak:  prev + 1,
		}
	}
	return out
}

// speedBonus maps elapsed time onto [0, SpeedBonusMax], full bonus at zero
// elapsed and zero at or past the limit.
func speedBonus(timeLimitSec int, elapsedMs int64) int {
	limitMs := int64(timeLimitSec) * 1000
	if limitMs <= 0 {
		return 0
	}
	if elapsedMs < 0 {
		elapsedMs = 0
	}
	if elapsedMs >= limitMs {
		return 0
	}
	return int(math.Round(float64(limitMs-elapsedMs) / float64(limitMs) * SpeedBonusMax))
}
