package models

import (
	"fmt"
	"time"
)

// GameMode identifies how a round was played
type GameMode string

// Game modes
const (
	GameModeTraining GameMode = "training"
	GameModeTimed    GameMode = "chrono"
	GameModeSurvival GameMode = "survival"
)

// ValidGameMode reports whether the mode is one the accumulator understands
func ValidGameMode(m GameMode) bool {
	switch m {
	case GameModeTraining, GameModeTimed, GameModeSurvival:
		return true
	}
	return false
}

// Attempt is one finished round as reported by the game screen.
type Attempt struct {
	Mode       GameMode `json:"mode"`
	ExerciseID string   `json:"exercise_id"`
	Level      int      `json:"level"`
	// Score is the number of correct answers for training and survival modes
	Score int `json:"score"`
	// ElapsedSeconds is the completion time for timed mode
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	// TablesDrill raises the pass threshold for times-table style drills
	TablesDrill bool `json:"tables_drill"`
}

// UserProgress is the persisted per-user progress document. It is mutated
// exclusively through the progress service's ApplyOutcome, inside one
// database transaction per finished attempt.
type UserProgress struct {
	UserID int `json:"user_id"`
	XP     int `json:"xp"`
	// TrainingCounts counts all passing rounds per exercise and level
	TrainingCounts map[string]map[int]int `json:"training_counts"`
	// XPCaps counts credited (XP-earning) rounds per exercise and level,
	// never exceeding the mastery cap and never decreasing
	XPCaps map[string]map[int]int `json:"xp_caps"`
	// BestScores holds the best value per history key: lowest time for
	// timed mode, highest score for survival
	BestScores map[string]float64 `json:"best_scores"`
	// History holds the bounded top results per history key, ascending for
	// time-based keys and descending for score-based ones
	History map[string][]float64 `json:"history"`

	DailyQuest *DailyQuest `json:"daily_quest,omitempty"`

	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUserProgress returns an empty progress document for a fresh account.
func NewUserProgress(userID int) *UserProgress {
	return &UserProgress{
		UserID:         userID,
		TrainingCounts: make(map[string]map[int]int),
		XPCaps:         make(map[string]map[int]int),
		BestScores:     make(map[string]float64),
		History:        make(map[string][]float64),
	}
}

// HistoryKey builds the composite key used for best scores and histories.
func HistoryKey(mode GameMode, exerciseID string) string {
	return fmt.Sprintf("%s:%s", mode, exerciseID)
}

// DailyQuest is the state of one calendar day's quest. Date is the UTC day
// the quest was assigned for; Streak counts consecutive completed days.
type DailyQuest struct {
	Date         string      `json:"date"`
	Streak       int         `json:"streak"`
	BonusAwarded bool        `json:"bonus_awarded"`
	SubQuests    []*SubQuest `json:"sub_quests"`
}

// Completed reports whether every sub-quest reached its target.
func (q *DailyQuest) Completed() bool {
	if q == nil || len(q.SubQuests) == 0 {
		return false
	}
	for _, sq := range q.SubQuests {
		if !sq.Done() {
			return false
		}
	}
	return true
}

// SubQuest is one sub-skill target within a daily quest.
type SubQuest struct {
	ExerciseID string `json:"exercise_id"`
	Level      int    `json:"level"`
	Target     int    `json:"target"`
	Progress   int    `json:"progress"`
}

// Done reports whether the sub-quest target is fully covered.
func (s *SubQuest) Done() bool {
	return s.Progress >= s.Target
}

// ProgressDelta describes what one applied attempt changed, for the result
// screen.
type ProgressDelta struct {
	XPGained          int            `json:"xp_gained"`
	QuestCompletedNow bool           `json:"quest_completed_now"`
	NewBest           bool           `json:"new_best"`
	Breakdown         map[string]int `json:"breakdown,omitempty"`
}
