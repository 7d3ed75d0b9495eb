package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"mathapp/internal/config"
	"mathapp/internal/models"
	"mathapp/internal/observability"
	contextutils "mathapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// ExerciseServiceInterface defines the interface for exercise catalog operations
type ExerciseServiceInterface interface {
	CreateExercise(ctx context.Context, exercise *models.Exercise) error
	GetExercise(ctx context.Context, id string) (*models.Exercise, error)
	GetAllExercises(ctx context.Context, enabledOnly bool) ([]*models.Exercise, error)
	UpdateExercise(ctx context.Context, exercise *models.Exercise) error
	DeleteExercise(ctx context.Context, id string) error
	SetExerciseEnabled(ctx context.Context, id string, enabled bool) error
	UpsertLevelConfig(ctx context.Context, exerciseID string, level int, levelCfg *models.ExerciseLevelConfig) error
	GetLevelConfig(ctx context.Context, exerciseID string, level int) (*models.ExerciseLevelConfig, error)
	InvalidateCache()
}

type cachedExercise struct {
	exercise *models.Exercise
	expires  time.Time
}

// ExerciseService manages the exercise catalog and its per-level dynamic
// configurations. Reads are served from a small TTL cache since exercise
// definitions change rarely but are fetched on every question.
type ExerciseService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger

	mu    sync.RWMutex
	cache map[string]cachedExercise
}

const defaultExerciseCacheTTL = 5 * time.Minute

const exerciseSelectFields = `id, name, topic, generator_key, tables_drill, premium, enabled, created_at, updated_at`

// NewExerciseServiceWithLogger creates a new ExerciseService instance with logger
func NewExerciseServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger) *ExerciseService {
	return &ExerciseService{
		db:     db,
		cfg:    cfg,
		logger: logger,
		cache:  make(map[string]cachedExercise),
	}
}

func (s *ExerciseService) cacheTTL() time.Duration {
	if s.cfg != nil && s.cfg.Server.ExerciseCacheTTL > 0 {
		return s.cfg.Server.ExerciseCacheTTL
	}
	return defaultExerciseCacheTTL
}

func (s *ExerciseService) cacheGet(id string) *models.Exercise {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.cache[id]
	if !ok || time.Now().After(entry.expires) {
		return nil
	}
	return entry.exercise
}

func (s *ExerciseService) cachePut(exercise *models.Exercise) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[exercise.ID] = cachedExercise{
		exercise: exercise,
		expires:  time.Now().Add(s.cacheTTL()),
	}
}

func (s *ExerciseService) cacheDrop(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, id)
}

// InvalidateCache drops every cached exercise definition. Admin mutations
// call this so edits are visible on the next question.
func (s *ExerciseService) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]cachedExercise)
}

// CreateExercise inserts an exercise and any attached level configurations
func (s *ExerciseService) CreateExercise(ctx context.Context, exercise *models.Exercise) (err error) {
	ctx, span := observability.TraceExerciseFunction(ctx, "create_exercise", observability.AttributeExerciseID(exercise.ID))
	defer observability.FinishSpan(span, &err)

	if err := validateExercise(exercise); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return contextutils.WrapError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Warn(ctx, "Failed to rollback transaction", map[string]interface{}{"error": rbErr.Error()})
			}
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO exercises (id, name, topic, generator_key, tables_drill, premium, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		exercise.ID, exercise.Name, exercise.Topic, exercise.GeneratorKey,
		exercise.TablesDrill, exercise.Premium, exercise.Enabled)
	if err != nil {
		if isDuplicateKeyError(err) {
			return contextutils.ErrRecordExists
		}
		return contextutils.WrapError(err, "failed to insert exercise")
	}

	for level, levelCfg := range exercise.Levels {
		if err = upsertLevelConfigTx(ctx, tx, exercise.ID, level, levelCfg); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return contextutils.WrapError(err, "failed to commit transaction")
	}
	return nil
}

// GetExercise returns an exercise with its level configurations loaded,
// or nil when the id is unknown.
func (s *ExerciseService) GetExercise(ctx context.Context, id string) (result0 *models.Exercise, err error) {
	ctx, span := observability.TraceExerciseFunction(ctx, "get_exercise", observability.AttributeExerciseID(id))
	defer observability.FinishSpan(span, &err)

	if cached := s.cacheGet(id); cached != nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}

	query := fmt.Sprintf("SELECT %s FROM exercises WHERE id = $1", exerciseSelectFields)
	row := s.db.QueryRowContext(ctx, query, id)
	exercise, err := scanExercise(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, contextutils.WrapError(err, "failed to query exercise")
	}

	if err := s.loadLevels(ctx, exercise); err != nil {
		return nil, err
	}

	s.cachePut(exercise)
	return exercise, nil
}

// GetAllExercises lists the catalog, optionally restricted to enabled entries.
// Level configurations are loaded for each exercise.
func (s *ExerciseService) GetAllExercises(ctx context.Context, enabledOnly bool) (result0 []*models.Exercise, err error) {
	ctx, span := observability.TraceExerciseFunction(ctx, "get_all_exercises", attribute.Bool("exercise.enabled_only", enabledOnly))
	defer observability.FinishSpan(span, &err)

	query := fmt.Sprintf("SELECT %s FROM exercises", exerciseSelectFields)
	if enabledOnly {
		query += " WHERE enabled = TRUE"
	}
	query += " ORDER BY topic, id"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query exercises")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var exercises []*models.Exercise
	for rows.Next() {
		exercise, scanErr := scanExercise(rows)
		if scanErr != nil {
			return nil, contextutils.WrapError(scanErr, "failed to scan exercise")
		}
		exercises = append(exercises, exercise)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, exercise := range exercises {
		if err := s.loadLevels(ctx, exercise); err != nil {
			return nil, err
		}
	}
	return exercises, nil
}

// UpdateExercise updates exercise metadata; level configurations are managed
// through UpsertLevelConfig.
func (s *ExerciseService) UpdateExercise(ctx context.Context, exercise *models.Exercise) (err error) {
	ctx, span := observability.TraceExerciseFunction(ctx, "update_exercise", observability.AttributeExerciseID(exercise.ID))
	defer observability.FinishSpan(span, &err)

	if err := validateExercise(exercise); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE exercises
		SET name = $2, topic = $3, generator_key = $4, tables_drill = $5,
		    premium = $6, enabled = $7, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`,
		exercise.ID, exercise.Name, exercise.Topic, exercise.GeneratorKey,
		exercise.TablesDrill, exercise.Premium, exercise.Enabled)
	if err != nil {
		return contextutils.WrapError(err, "failed to update exercise")
	}
	if err := requireRowsAffected(result); err != nil {
		return err
	}

	s.cacheDrop(exercise.ID)
	return nil
}

// DeleteExercise removes an exercise; level configurations cascade
func (s *ExerciseService) DeleteExercise(ctx context.Context, id string) (err error) {
	ctx, span := observability.TraceExerciseFunction(ctx, "delete_exercise", observability.AttributeExerciseID(id))
	defer observability.FinishSpan(span, &err)

	result, err := s.db.ExecContext(ctx, `DELETE FROM exercises WHERE id = $1`, id)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete exercise")
	}
	if err := requireRowsAffected(result); err != nil {
		return err
	}

	s.cacheDrop(id)
	return nil
}

// SetExerciseEnabled toggles an exercise without touching the rest of its row
func (s *ExerciseService) SetExerciseEnabled(ctx context.Context, id string, enabled bool) (err error) {
	ctx, span := observability.TraceExerciseFunction(ctx, "set_exercise_enabled",
		observability.AttributeExerciseID(id), attribute.Bool("exercise.enabled", enabled))
	defer observability.FinishSpan(span, &err)

	result, err := s.db.ExecContext(ctx,
		`UPDATE exercises SET enabled = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`, id, enabled)
	if err != nil {
		return contextutils.WrapError(err, "failed to toggle exercise")
	}
	if err := requireRowsAffected(result); err != nil {
		return err
	}

	s.cacheDrop(id)
	return nil
}

// UpsertLevelConfig writes a level's dynamic configuration as JSONB
func (s *ExerciseService) UpsertLevelConfig(ctx context.Context, exerciseID string, level int, levelCfg *models.ExerciseLevelConfig) (err error) {
	ctx, span := observability.TraceExerciseFunction(ctx, "upsert_level_config",
		observability.AttributeExerciseID(exerciseID), observability.AttributeLevel(level))
	defer observability.FinishSpan(span, &err)

	if level < 1 || level > 3 {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "level %d out of range", level)
	}
	if levelCfg == nil {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "level config cannot be nil")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return contextutils.WrapError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Warn(ctx, "Failed to rollback transaction", map[string]interface{}{"error": rbErr.Error()})
			}
		}
	}()

	if err = upsertLevelConfigTx(ctx, tx, exerciseID, level, levelCfg); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return contextutils.WrapError(err, "failed to commit transaction")
	}

	s.cacheDrop(exerciseID)
	return nil
}

// GetLevelConfig returns the configuration for one level of an exercise.
// A missing exercise or level yields ErrLevelNotConfigured.
func (s *ExerciseService) GetLevelConfig(ctx context.Context, exerciseID string, level int) (result0 *models.ExerciseLevelConfig, err error) {
	ctx, span := observability.TraceExerciseFunction(ctx, "get_level_config",
		observability.AttributeExerciseID(exerciseID), observability.AttributeLevel(level))
	defer observability.FinishSpan(span, &err)

	exercise, err := s.GetExercise(ctx, exerciseID)
	if err != nil {
		return nil, err
	}
	if exercise == nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrExerciseNotFound, "exercise %q", exerciseID)
	}
	levelCfg, ok := exercise.Levels[level]
	if !ok || levelCfg == nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrLevelNotConfigured, "exercise %q level %d", exerciseID, level)
	}
	return levelCfg, nil
}

func (s *ExerciseService) loadLevels(ctx context.Context, exercise *models.Exercise) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT level, config FROM exercise_levels WHERE exercise_id = $1 ORDER BY level`, exercise.ID)
	if err != nil {
		return contextutils.WrapError(err, "failed to query exercise levels")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	exercise.Levels = make(map[int]*models.ExerciseLevelConfig)
	for rows.Next() {
		var level int
		var raw []byte
		if err := rows.Scan(&level, &raw); err != nil {
			return contextutils.WrapError(err, "failed to scan exercise level")
		}
		levelCfg := &models.ExerciseLevelConfig{}
		if err := json.Unmarshal(raw, levelCfg); err != nil {
			return contextutils.WrapErrorf(contextutils.ErrInvalidExerciseConfig, "exercise %q level %d: %v", exercise.ID, level, err)
		}
		exercise.Levels[level] = levelCfg
	}
	return rows.Err()
}

func upsertLevelConfigTx(ctx context.Context, tx *sql.Tx, exerciseID string, level int, levelCfg *models.ExerciseLevelConfig) error {
	raw, err := json.Marshal(levelCfg)
	if err != nil {
		return contextutils.WrapError(contextutils.ErrInvalidExerciseConfig, "level config is not serializable")
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO exercise_levels (exercise_id, level, config)
		VALUES ($1, $2, $3)
		ON CONFLICT (exercise_id, level)
		DO UPDATE SET config = EXCLUDED.config, updated_at = CURRENT_TIMESTAMP`,
		exerciseID, level, raw)
	if err != nil {
		return contextutils.WrapError(err, "failed to upsert level config")
	}
	return nil
}

func validateExercise(exercise *models.Exercise) error {
	if exercise == nil {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "exercise cannot be nil")
	}
	if strings.TrimSpace(exercise.ID) == "" {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "exercise id cannot be empty")
	}
	if strings.TrimSpace(exercise.Name) == "" {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "exercise name cannot be empty")
	}
	if strings.TrimSpace(exercise.Topic) == "" {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "exercise topic cannot be empty")
	}
	return nil
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanExercise(row scannable) (*models.Exercise, error) {
	exercise := &models.Exercise{}
	err := row.Scan(
		&exercise.ID, &exercise.Name, &exercise.Topic, &exercise.GeneratorKey,
		&exercise.TablesDrill, &exercise.Premium, &exercise.Enabled,
		&exercise.CreatedAt, &exercise.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return exercise, nil
}
