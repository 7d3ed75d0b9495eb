package services

import (
	"testing"
	"time"

	"mathapp/internal/config"
	"mathapp/internal/models"
	contextutils "mathapp/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trainingAttempt(exerciseID string, level, score int) *models.Attempt {
	return &models.Attempt{
		Mode:       models.GameModeTraining,
		ExerciseID: exerciseID,
		Level:      level,
		Score:      score,
	}
}

func TestApplyOutcomeXPCapPerLevel(t *testing.T) {
	progress := models.NewUserProgress(1)
	now := time.Now()

	// Three passing level-2 rounds each earn 2 * 10 XP.
	total := 0
	for i := 0; i < config.XPCapPerLevel; i++ {
		delta := applyOutcome(progress, trainingAttempt("equations", 2, 10), now, config.DefaultMaxHistory, config.DefaultQuestBonusXP)
		assert.Equal(t, 20, delta.XPGained)
		total += delta.XPGained
	}
	assert.Equal(t, 60, total)
	assert.Equal(t, 60, progress.XP)

	// The fourth pass still counts but awards nothing.
	delta := applyOutcome(progress, trainingAttempt("equations", 2, 10), now, config.DefaultMaxHistory, config.DefaultQuestBonusXP)
	assert.Equal(t, 0, delta.XPGained)
	assert.Equal(t, 60, progress.XP)
	assert.Equal(t, 4, progress.TrainingCounts["equations"][2])
	assert.Equal(t, config.XPCapPerLevel, progress.XPCaps["equations"][2])
}

func TestApplyOutcomeCapIsPerExerciseAndLevel(t *testing.T) {
	progress := models.NewUserProgress(1)
	now := time.Now()

	for i := 0; i < config.XPCapPerLevel; i++ {
		applyOutcome(progress, trainingAttempt("equations", 1, 10), now, config.DefaultMaxHistory, config.DefaultQuestBonusXP)
	}
	assert.Equal(t, 30, progress.XP)

	// A different level of the same exercise earns fresh XP.
	delta := applyOutcome(progress, trainingAttempt("equations", 2, 10), now, config.DefaultMaxHistory, config.DefaultQuestBonusXP)
	assert.Equal(t, 20, delta.XPGained)

	// So does a different exercise at the capped level.
	delta = applyOutcome(progress, trainingAttempt("pythagore", 1, 10), now, config.DefaultMaxHistory, config.DefaultQuestBonusXP)
	assert.Equal(t, 10, delta.XPGained)
}

func TestApplyOutcomePassThresholds(t *testing.T) {
	now := time.Now()

	progress := models.NewUserProgress(1)
	delta := applyOutcome(progress, trainingAttempt("equations", 1, config.PassThresholdDefault-1), now, config.DefaultMaxHistory, config.DefaultQuestBonusXP)
	assert.Equal(t, 0, delta.XPGained)
	assert.Empty(t, progress.TrainingCounts)

	delta = applyOutcome(progress, trainingAttempt("equations", 1, config.PassThresholdDefault), now, config.DefaultMaxHistory, config.DefaultQuestBonusXP)
	assert.Equal(t, 10, delta.XPGained)

	// Table drills need 9/10: a score of 8 passes normally but not for tables.
	tables := trainingAttempt("tables-multiplication", 1, config.PassThresholdDefault)
	tables.TablesDrill = true
	delta = applyOutcome(progress, tables, now, config.DefaultMaxHistory, config.DefaultQuestBonusXP)
	assert.Equal(t, 0, delta.XPGained)

	tables.Score = config.PassThresholdTables
	delta = applyOutcome(progress, tables, now, config.DefaultMaxHistory, config.DefaultQuestBonusXP)
	assert.Equal(t, 10, delta.XPGained)
}

func TestApplyOutcomeTimedHistoryKeepsBestTimes(t *testing.T) {
	progress := models.NewUserProgress(1)
	now := time.Now()

	times := []float64{45.2, 39.1, 50.0, 41.7, 38.3, 47.9, 36.0}
	for _, elapsed := range times {
		attempt := &models.Attempt{
			Mode:           models.GameModeTimed,
			ExerciseID:     "tables-multiplication",
			Level:          1,
			ElapsedSeconds: elapsed,
		}
		applyOutcome(progress, attempt, now, config.DefaultMaxHistory, config.DefaultQuestBonusXP)
	}

	key := models.HistoryKey(models.GameModeTimed, "tables-multiplication")
	assert.Equal(t, []float64{36.0, 38.3, 39.1, 41.7, 45.2}, progress.History[key])
	assert.Equal(t, 36.0, progress.BestScores[key])
	// Timed rounds never award XP.
	assert.Equal(t, 0, progress.XP)
}

func TestApplyOutcomeSurvivalHistoryKeepsBestScores(t *testing.T) {
	progress := models.NewUserProgress(1)
	now := time.Now()

	var lastDelta *models.ProgressDelta
	for _, score := range []int{12, 25, 8, 31, 19, 22, 27} {
		attempt := &models.Attempt{
			Mode:       models.GameModeSurvival,
			ExerciseID: "divisibilite",
			Level:      1,
			Score:      score,
		}
		lastDelta = applyOutcome(progress, attempt, now, config.DefaultMaxHistory, config.DefaultQuestBonusXP)
	}

	key := models.HistoryKey(models.GameModeSurvival, "divisibilite")
	assert.Equal(t, []float64{31, 27, 25, 22, 19}, progress.History[key])
	assert.Equal(t, 31.0, progress.BestScores[key])
	// 27 was not a new overall best.
	assert.False(t, lastDelta.NewBest)
}

func TestApplyOutcomeNewBestFlag(t *testing.T) {
	progress := models.NewUserProgress(1)
	now := time.Now()

	first := &models.Attempt{Mode: models.GameModeTimed, ExerciseID: "equations", Level: 1, ElapsedSeconds: 60}
	delta := applyOutcome(progress, first, now, config.DefaultMaxHistory, config.DefaultQuestBonusXP)
	assert.True(t, delta.NewBest)

	slower := &models.Attempt{Mode: models.GameModeTimed, ExerciseID: "equations", Level: 1, ElapsedSeconds: 70}
	delta = applyOutcome(progress, slower, now, config.DefaultMaxHistory, config.DefaultQuestBonusXP)
	assert.False(t, delta.NewBest)

	faster := &models.Attempt{Mode: models.GameModeTimed, ExerciseID: "equations", Level: 1, ElapsedSeconds: 50}
	delta = applyOutcome(progress, faster, now, config.DefaultMaxHistory, config.DefaultQuestBonusXP)
	assert.True(t, delta.NewBest)
}

func TestApplyOutcomeQuestBonusOncePerDay(t *testing.T) {
	now := time.Now()
	progress := models.NewUserProgress(1)
	progress.DailyQuest = &models.DailyQuest{
		Date:   contextutils.QuestDay(now),
		Streak: 2,
		SubQuests: []*models.SubQuest{
			{ExerciseID: "equations", Level: 1, Target: 1},
			{ExerciseID: "pythagore", Level: 2, Target: 1},
		},
	}

	delta := applyOutcome(progress, trainingAttempt("equations", 1, 10), now, config.DefaultMaxHistory, config.DefaultQuestBonusXP)
	assert.False(t, delta.QuestCompletedNow)

	delta = applyOutcome(progress, trainingAttempt("pythagore", 2, 10), now, config.DefaultMaxHistory, config.DefaultQuestBonusXP)
	assert.True(t, delta.QuestCompletedNow)
	assert.Equal(t, 20+config.DefaultQuestBonusXP, delta.XPGained)
	assert.Equal(t, 3, progress.DailyQuest.Streak)
	assert.True(t, progress.DailyQuest.BonusAwarded)

	// Repeating a sub-quest exercise never re-awards the bonus.
	delta = applyOutcome(progress, trainingAttempt("equations", 1, 10), now, config.DefaultMaxHistory, config.DefaultQuestBonusXP)
	assert.False(t, delta.QuestCompletedNow)
	assert.Equal(t, 3, progress.DailyQuest.Streak)
}

func TestApplyOutcomeStaleQuestIsIgnored(t *testing.T) {
	now := time.Now()
	progress := models.NewUserProgress(1)
	progress.DailyQuest = &models.DailyQuest{
		Date:      contextutils.QuestDay(now.AddDate(0, 0, -1)),
		SubQuests: []*models.SubQuest{{ExerciseID: "equations", Level: 1, Target: 1}},
	}

	delta := applyOutcome(progress, trainingAttempt("equations", 1, 10), now, config.DefaultMaxHistory, config.DefaultQuestBonusXP)
	assert.False(t, delta.QuestCompletedNow)
	assert.Equal(t, 0, progress.DailyQuest.SubQuests[0].Progress)
}

func TestApplyOutcomeFailedRoundStillTouchesActivity(t *testing.T) {
	progress := models.NewUserProgress(1)
	now := time.Now()

	applyOutcome(progress, trainingAttempt("equations", 1, 3), now, config.DefaultMaxHistory, config.DefaultQuestBonusXP)
	assert.Equal(t, now, progress.LastActivity)
}

func TestValidateAttempt(t *testing.T) {
	require.NoError(t, validateAttempt(trainingAttempt("equations", 1, 8)))

	err := validateAttempt(nil)
	assert.ErrorIs(t, err, contextutils.ErrInvalidAttempt)

	bad := trainingAttempt("equations", 1, 8)
	bad.Mode = "arcade"
	assert.ErrorIs(t, validateAttempt(bad), contextutils.ErrUnknownGameMode)

	bad = trainingAttempt("", 1, 8)
	assert.ErrorIs(t, validateAttempt(bad), contextutils.ErrInvalidAttempt)

	bad = trainingAttempt("equations", 4, 8)
	assert.ErrorIs(t, validateAttempt(bad), contextutils.ErrInvalidAttempt)

	bad = trainingAttempt("equations", 1, config.QuestionsPerRound+1)
	assert.ErrorIs(t, validateAttempt(bad), contextutils.ErrInvalidAttempt)

	timed := &models.Attempt{Mode: models.GameModeTimed, ExerciseID: "equations", Level: 1}
	assert.ErrorIs(t, validateAttempt(timed), contextutils.ErrInvalidAttempt)
}
