package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"mathapp/internal/config"
	"mathapp/internal/models"
	"mathapp/internal/observability"
	contextutils "mathapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// ProgressServiceInterface defines the interface for progress operations
type ProgressServiceInterface interface {
	GetOrCreateProgress(ctx context.Context, userID int) (*models.UserProgress, error)
	ApplyOutcome(ctx context.Context, userID int, attempt *models.Attempt) (*models.ProgressDelta, error)
	EnsureDailyQuest(ctx context.Context, userID int, subQuests []*models.SubQuest) (*models.DailyQuest, error)
	GetLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	GetModeLeaderboard(ctx context.Context, mode models.GameMode, exerciseID string, limit int) ([]ModeLeaderboardEntry, error)
}

// LeaderboardEntry is one row of the XP leaderboard.
type LeaderboardEntry struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	XP       int    `json:"xp"`
}

// ModeLeaderboardEntry is one row of a per-exercise mode leaderboard.
type ModeLeaderboardEntry struct {
	UserID   int     `json:"user_id"`
	Username string  `json:"username"`
	Score    float64 `json:"score"`
}

// ProgressService owns the progress accumulator. Every finished attempt goes
// through ApplyOutcome, which holds a row lock on the user's progress
// document for the duration of the update.
type ProgressService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger
}

// NewProgressServiceWithLogger creates a new ProgressService instance with logger
func NewProgressServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger) *ProgressService {
	return &ProgressService{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
}

// GetOrCreateProgress returns the user's progress document, creating an
// empty one on first access.
func (s *ProgressService) GetOrCreateProgress(ctx context.Context, userID int) (result0 *models.UserProgress, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "get_or_create_progress", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	progress, err := s.loadProgress(ctx, s.db, userID, false)
	if err != nil {
		return nil, err
	}
	if progress != nil {
		return progress, nil
	}

	progress = models.NewUserProgress(userID)
	if err := s.insertProgress(ctx, progress); err != nil {
		return nil, err
	}
	return progress, nil
}

// ApplyOutcome records one finished attempt and returns what changed. The
// whole update runs in a single transaction with the progress row locked.
func (s *ProgressService) ApplyOutcome(ctx context.Context, userID int, attempt *models.Attempt) (result0 *models.ProgressDelta, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "apply_outcome",
		observability.AttributeUserID(userID),
		attribute.String("attempt.mode", string(attempt.Mode)),
		observability.AttributeExerciseID(attempt.ExerciseID),
		observability.AttributeLevel(attempt.Level),
		observability.AttributeScore(attempt.Score))
	defer observability.FinishSpan(span, &err)

	if err := validateAttempt(attempt); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Warn(ctx, "Failed to rollback transaction", map[string]interface{}{"error": rbErr.Error()})
			}
		}
	}()

	progress, err := s.loadProgress(ctx, tx, userID, true)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		progress = models.NewUserProgress(userID)
		if err = s.insertProgressTx(ctx, tx, progress); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	delta := applyOutcome(progress, attempt, now, s.cfg.MaxHistoryOrDefault(), s.cfg.CompletionBonusXPOrDefault())

	if err = s.writeProgressTx(ctx, tx, progress); err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE users SET last_active = $2 WHERE id = $1`, userID, now); err != nil {
		return nil, contextutils.WrapError(err, "failed to update last active")
	}

	if err = tx.Commit(); err != nil {
		return nil, contextutils.WrapError(err, "failed to commit transaction")
	}

	if delta.XPGained > 0 {
		s.logger.Info(ctx, "XP awarded", map[string]interface{}{
			"user_id":     userID,
			"exercise_id": attempt.ExerciseID,
			"level":       attempt.Level,
			"xp_gained":   delta.XPGained,
		})
	}
	return delta, nil
}

// applyOutcome is the pure accumulator. It mutates progress in place and
// reports the delta. Splitting it from the transaction wrapper keeps the
// scoring rules directly testable.
func applyOutcome(progress *models.UserProgress, attempt *models.Attempt, now time.Time, maxHistory, questBonusXP int) *models.ProgressDelta {
	delta := &models.ProgressDelta{Breakdown: make(map[string]int)}

	switch attempt.Mode {
	case models.GameModeTraining:
		applyTraining(progress, attempt, now, questBonusXP, delta)
	case models.GameModeTimed:
		key := models.HistoryKey(models.GameModeTimed, attempt.ExerciseID)
		delta.NewBest = recordBest(progress, key, attempt.ElapsedSeconds, maxHistory, false)
	case models.GameModeSurvival:
		key := models.HistoryKey(models.GameModeSurvival, attempt.ExerciseID)
		delta.NewBest = recordBest(progress, key, float64(attempt.Score), maxHistory, true)
	}

	progress.LastActivity = now
	progress.UpdatedAt = now
	return delta
}

func applyTraining(progress *models.UserProgress, attempt *models.Attempt, now time.Time, questBonusXP int, delta *models.ProgressDelta) {
	threshold := config.PassThresholdDefault
	if attempt.TablesDrill {
		threshold = config.PassThresholdTables
	}
	if attempt.Score < threshold {
		return
	}

	if progress.TrainingCounts[attempt.ExerciseID] == nil {
		progress.TrainingCounts[attempt.ExerciseID] = make(map[int]int)
	}
	progress.TrainingCounts[attempt.ExerciseID][attempt.Level]++

	if progress.XPCaps[attempt.ExerciseID] == nil {
		progress.XPCaps[attempt.ExerciseID] = make(map[int]int)
	}
	if progress.XPCaps[attempt.ExerciseID][attempt.Level] < config.XPCapPerLevel {
		progress.XPCaps[attempt.ExerciseID][attempt.Level]++
		gained := attempt.Level * config.XPPerLevel
		progress.XP += gained
		delta.XPGained += gained
		delta.Breakdown["round"] = gained
	}

	advanceQuest(progress, attempt, now, questBonusXP, delta)
}

// advanceQuest ticks any matching sub-quest and awards the completion bonus.
// The bonus and streak fire at most once per quest day.
func advanceQuest(progress *models.UserProgress, attempt *models.Attempt, now time.Time, questBonusXP int, delta *models.ProgressDelta) {
	quest := progress.DailyQuest
	if quest == nil || quest.Date != contextutils.QuestDay(now) {
		return
	}

	for _, sq := range quest.SubQuests {
		if sq.ExerciseID == attempt.ExerciseID && sq.Level == attempt.Level && !sq.Done() {
			sq.Progress++
			break
		}
	}

	if quest.Completed() && !quest.BonusAwarded {
		quest.BonusAwarded = true
		quest.Streak++
		progress.XP += questBonusXP
		delta.XPGained += questBonusXP
		delta.QuestCompletedNow = true
		delta.Breakdown["quest_bonus"] = questBonusXP
	}
}

// recordBest folds a result into the bounded history for one key. Timed
// histories keep the lowest values ascending, survival histories the highest
// values descending. Returns true when the overall best improved.
func recordBest(progress *models.UserProgress, key string, value float64, maxHistory int, higherIsBetter bool) bool {
	history := append(progress.History[key], value)
	if higherIsBetter {
		sort.Sort(sort.Reverse(sort.Float64Slice(history)))
	} else {
		sort.Float64s(history)
	}
	if len(history) > maxHistory {
		history = history[:maxHistory]
	}
	progress.History[key] = history

	best, seen := progress.BestScores[key]
	improved := !seen || (higherIsBetter && value > best) || (!higherIsBetter && value < best)
	if improved {
		progress.BestScores[key] = value
	}
	return improved
}

// EnsureDailyQuest installs today's quest if none is assigned yet. The streak
// carries over only when yesterday's quest was completed; any other gap
// resets it. Passing the same day twice is a no-op.
func (s *ProgressService) EnsureDailyQuest(ctx context.Context, userID int, subQuests []*models.SubQuest) (result0 *models.DailyQuest, err error) {
	ctx, span := observability.TraceQuestFunction(ctx, "ensure_daily_quest", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Warn(ctx, "Failed to rollback transaction", map[string]interface{}{"error": rbErr.Error()})
			}
		}
	}()

	progress, err := s.loadProgress(ctx, tx, userID, true)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		progress = models.NewUserProgress(userID)
		if err = s.insertProgressTx(ctx, tx, progress); err != nil {
			return nil, err
		}
	}

	today := contextutils.QuestDay(time.Now())
	if progress.DailyQuest != nil && progress.DailyQuest.Date == today {
		if err = tx.Commit(); err != nil {
			return nil, contextutils.WrapError(err, "failed to commit transaction")
		}
		return progress.DailyQuest, nil
	}

	streak := 0
	if prev := progress.DailyQuest; prev != nil && prev.BonusAwarded && contextutils.IsYesterday(prev.Date, today) {
		streak = prev.Streak
	}

	progress.DailyQuest = &models.DailyQuest{
		Date:      today,
		Streak:    streak,
		SubQuests: subQuests,
	}
	progress.UpdatedAt = time.Now()
	if progress.LastActivity.IsZero() {
		progress.LastActivity = progress.UpdatedAt
	}

	if err = s.writeProgressTx(ctx, tx, progress); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, contextutils.WrapError(err, "failed to commit transaction")
	}

	s.logger.Info(ctx, "Assigned daily quest", map[string]interface{}{
		"user_id":    userID,
		"quest_date": today,
		"streak":     streak,
		"sub_quests": len(subQuests),
	})
	return progress.DailyQuest, nil
}

// GetLeaderboard returns the top users by XP
func (s *ProgressService) GetLeaderboard(ctx context.Context, limit int) (result0 []LeaderboardEntry, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "get_leaderboard", observability.AttributeLimit(limit))
	defer observability.FinishSpan(span, &err)

	if limit <= 0 || limit > 100 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, p.xp
		FROM user_progress p
		JOIN users u ON u.id = p.user_id
		ORDER BY p.xp DESC, u.username
		LIMIT $1`, limit)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query leaderboard")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var entries []LeaderboardEntry
	for rows.Next() {
		var entry LeaderboardEntry
		if err := rows.Scan(&entry.UserID, &entry.Username, &entry.XP); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan leaderboard entry")
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// GetModeLeaderboard ranks users on their best score for one exercise in a
// timed or survival mode. Timed rankings sort ascending (faster is better),
// survival rankings sort descending.
func (s *ProgressService) GetModeLeaderboard(ctx context.Context, mode models.GameMode, exerciseID string, limit int) (result0 []ModeLeaderboardEntry, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "get_mode_leaderboard",
		observability.AttributeGameMode(string(mode)),
		observability.AttributeExerciseID(exerciseID),
		observability.AttributeLimit(limit))
	defer observability.FinishSpan(span, &err)

	var direction string
	switch mode {
	case models.GameModeTimed:
		direction = "ASC"
	case models.GameModeSurvival:
		direction = "DESC"
	default:
		return nil, contextutils.WrapErrorf(contextutils.ErrUnknownGameMode, "mode %q has no leaderboard", mode)
	}

	if limit <= 0 || limit > 100 {
		limit = 10
	}

	key := models.HistoryKey(mode, exerciseID)
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, (p.best_scores->>$1)::double precision AS score
		FROM user_progress p
		JOIN users u ON u.id = p.user_id
		WHERE p.best_scores ? $1
		ORDER BY score `+direction+`, u.username
		LIMIT $2`, key, limit)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query mode leaderboard")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var entries []ModeLeaderboardEntry
	for rows.Next() {
		var entry ModeLeaderboardEntry
		if err := rows.Scan(&entry.UserID, &entry.Username, &entry.Score); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan mode leaderboard entry")
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func validateAttempt(attempt *models.Attempt) error {
	if attempt == nil {
		return contextutils.WrapError(contextutils.ErrInvalidAttempt, "attempt cannot be nil")
	}
	if !models.ValidGameMode(attempt.Mode) {
		return contextutils.WrapErrorf(contextutils.ErrUnknownGameMode, "mode %q", attempt.Mode)
	}
	if attempt.ExerciseID == "" {
		return contextutils.WrapError(contextutils.ErrInvalidAttempt, "exercise id cannot be empty")
	}
	if attempt.Level < 1 || attempt.Level > 3 {
		return contextutils.WrapErrorf(contextutils.ErrInvalidAttempt, "level %d out of range", attempt.Level)
	}
	if attempt.Score < 0 || (attempt.Mode == models.GameModeTraining && attempt.Score > config.QuestionsPerRound) {
		return contextutils.WrapErrorf(contextutils.ErrInvalidAttempt, "score %d out of range", attempt.Score)
	}
	if attempt.Mode == models.GameModeTimed && attempt.ElapsedSeconds <= 0 {
		return contextutils.WrapError(contextutils.ErrInvalidAttempt, "elapsed time must be positive")
	}
	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// loadProgress reads and unmarshals one progress row. With forUpdate set it
// must be called inside a transaction, and the row stays locked until commit.
func (s *ProgressService) loadProgress(ctx context.Context, q queryRower, userID int, forUpdate bool) (*models.UserProgress, error) {
	query := `
		SELECT user_id, xp, training_counts, xp_caps, best_scores, history, daily_quest,
		       COALESCE(last_activity, created_at), created_at, updated_at
		FROM user_progress WHERE user_id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	progress := models.NewUserProgress(userID)
	var trainingCounts, xpCaps, bestScores, history []byte
	var dailyQuest sql.NullString

	err := q.QueryRowContext(ctx, query, userID).Scan(
		&progress.UserID, &progress.XP, &trainingCounts, &xpCaps, &bestScores, &history,
		&dailyQuest, &progress.LastActivity, &progress.CreatedAt, &progress.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, contextutils.WrapError(err, "failed to query progress")
	}

	if err := json.Unmarshal(trainingCounts, &progress.TrainingCounts); err != nil {
		return nil, contextutils.WrapError(err, "failed to decode training counts")
	}
	if err := json.Unmarshal(xpCaps, &progress.XPCaps); err != nil {
		return nil, contextutils.WrapError(err, "failed to decode xp caps")
	}
	if err := json.Unmarshal(bestScores, &progress.BestScores); err != nil {
		return nil, contextutils.WrapError(err, "failed to decode best scores")
	}
	if err := json.Unmarshal(history, &progress.History); err != nil {
		return nil, contextutils.WrapError(err, "failed to decode history")
	}
	if dailyQuest.Valid && dailyQuest.String != "" {
		quest := &models.DailyQuest{}
		if err := json.Unmarshal([]byte(dailyQuest.String), quest); err != nil {
			return nil, contextutils.WrapError(err, "failed to decode daily quest")
		}
		progress.DailyQuest = quest
	}
	return progress, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *ProgressService) insertProgress(ctx context.Context, progress *models.UserProgress) error {
	return s.insertProgressTx(ctx, s.db, progress)
}

func (s *ProgressService) insertProgressTx(ctx context.Context, e execer, progress *models.UserProgress) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO user_progress (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING`, progress.UserID)
	if err != nil {
		return contextutils.WrapError(err, "failed to create progress row")
	}
	return nil
}

func (s *ProgressService) writeProgressTx(ctx context.Context, e execer, progress *models.UserProgress) error {
	trainingCounts, err := json.Marshal(progress.TrainingCounts)
	if err != nil {
		return contextutils.WrapError(err, "failed to encode training counts")
	}
	xpCaps, err := json.Marshal(progress.XPCaps)
	if err != nil {
		return contextutils.WrapError(err, "failed to encode xp caps")
	}
	bestScores, err := json.Marshal(progress.BestScores)
	if err != nil {
		return contextutils.WrapError(err, "failed to encode best scores")
	}
	history, err := json.Marshal(progress.History)
	if err != nil {
		return contextutils.WrapError(err, "failed to encode history")
	}

	var dailyQuest interface{}
	if progress.DailyQuest != nil {
		raw, err := json.Marshal(progress.DailyQuest)
		if err != nil {
			return contextutils.WrapError(err, "failed to encode daily quest")
		}
		dailyQuest = raw
	}

	_, err = e.ExecContext(ctx, `
		UPDATE user_progress
		SET xp = $2, training_counts = $3, xp_caps = $4, best_scores = $5,
		    history = $6, daily_quest = $7, last_activity = $8, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1`,
		progress.UserID, progress.XP, trainingCounts, xpCaps, bestScores,
		history, dailyQuest, progress.LastActivity)
	if err != nil {
		return contextutils.WrapError(err, "failed to write progress")
	}
	return nil
}
