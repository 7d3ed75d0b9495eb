// Package worker contains the background worker that assigns daily quests.
// It runs independently of HTTP request handling: on every tick it finds
// users whose quest is missing or stale and installs today's quest for them,
// carrying streaks over from completed quests.
package worker

import (
	"context"
	"database/sql"
	"math/rand"
	"sync"
	"time"

	"mathapp/internal/config"
	"mathapp/internal/models"
	"mathapp/internal/observability"
	"mathapp/internal/services"
	contextutils "mathapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// Status represents the current state of the worker
type Status struct {
	IsRunning     bool      `json:"is_running"`
	LastRunStart  time.Time `json:"last_run_start"`
	LastRunFinish time.Time `json:"last_run_finish"`
	LastRunError  string    `json:"last_run_error,omitempty"`
	UsersAssigned int       `json:"users_assigned"`
	NextRun       time.Time `json:"next_run"`
}

// Worker assigns daily quests in the background
type Worker struct {
	db              *sql.DB
	exerciseService services.ExerciseServiceInterface
	progressService services.ProgressServiceInterface
	instance        string
	cfg             *config.Config
	logger          *observability.Logger

	mu     sync.RWMutex
	status Status
	rng    *rand.Rand

	// Overridable for tests
	timeNow func() time.Time
	cancel  context.CancelFunc
}

// NewWorker creates a new Worker instance
func NewWorker(
	db *sql.DB,
	exerciseService services.ExerciseServiceInterface,
	progressService services.ProgressServiceInterface,
	instance string,
	cfg *config.Config,
	logger *observability.Logger,
) *Worker {
	return &Worker{
		db:              db,
		exerciseService: exerciseService,
		progressService: progressService,
		instance:        instance,
		cfg:             cfg,
		logger:          logger,
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
		timeNow:         time.Now,
	}
}

// Start runs the assignment loop until the context is cancelled
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	w.setRunning(true)
	defer w.setRunning(false)

	w.logger.Info(ctx, "Daily quest worker started", map[string]interface{}{
		"instance": w.instance,
		"interval": config.WorkerCheckInterval.String(),
	})

	ticker := time.NewTicker(config.WorkerCheckInterval)
	defer ticker.Stop()

	// Run once on startup so a fresh deploy assigns quests immediately
	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "Daily quest worker stopping", map[string]interface{}{
				"instance": w.instance,
			})
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// Stop cancels the worker's run loop
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}

// GetStatus returns a snapshot of the worker state
func (w *Worker) GetStatus() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

func (w *Worker) setRunning(running bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status.IsRunning = running
}

func (w *Worker) runOnce(ctx context.Context) {
	var err error
	ctx, span := observability.TraceWorkerFunction(ctx, "assign_daily_quests",
		attribute.String("worker.instance", w.instance))
	defer observability.FinishSpan(span, &err)

	start := w.timeNow()
	w.mu.Lock()
	w.status.LastRunStart = start
	w.mu.Unlock()

	assigned, err := w.assignQuests(ctx)

	w.mu.Lock()
	w.status.LastRunFinish = w.timeNow()
	w.status.NextRun = w.status.LastRunFinish.Add(config.WorkerCheckInterval)
	w.status.UsersAssigned = assigned
	if err != nil {
		w.status.LastRunError = err.Error()
	} else {
		w.status.LastRunError = ""
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Error(ctx, "Quest assignment run failed", err, map[string]interface{}{
			"instance": w.instance,
		})
		return
	}
	if assigned > 0 {
		w.logger.Info(ctx, "Assigned daily quests", map[string]interface{}{
			"instance": w.instance,
			"users":    assigned,
		})
	}
}

// assignQuests installs today's quest for every user who needs one
func (w *Worker) assignQuests(ctx context.Context) (int, error) {
	userIDs, err := w.eligibleUsers(ctx)
	if err != nil {
		return 0, err
	}
	if len(userIDs) == 0 {
		return 0, nil
	}

	exercises, err := w.exerciseService.GetAllExercises(ctx, true)
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to load exercise catalog")
	}

	assigned := 0
	for _, userID := range userIDs {
		select {
		case <-ctx.Done():
			return assigned, ctx.Err()
		default:
		}

		subQuests := w.drawSubQuests(exercises)
		if len(subQuests) == 0 {
			continue
		}
		if _, err := w.progressService.EnsureDailyQuest(ctx, userID, subQuests); err != nil {
			w.logger.Warn(ctx, "Failed to assign daily quest", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
			continue
		}
		assigned++
		time.Sleep(config.WorkerSleepDuration)
	}
	return assigned, nil
}

func (w *Worker) drawSubQuests(exercises []*models.Exercise) []*models.SubQuest {
	w.mu.Lock()
	defer w.mu.Unlock()
	return services.BuildSubQuests(w.rng, exercises, w.cfg.SubQuestsPerDayOrDefault())
}

// eligibleUsers returns users whose stored quest is missing or not today's.
// Recently active users come first so regulars get their quest promptly.
func (w *Worker) eligibleUsers(ctx context.Context) (result0 []int, err error) {
	ctx, span := observability.TraceWorkerFunction(ctx, "eligible_users")
	defer observability.FinishSpan(span, &err)

	today := contextutils.QuestDay(w.timeNow())
	rows, err := w.db.QueryContext(ctx, `
		SELECT u.id
		FROM users u
		LEFT JOIN user_progress p ON p.user_id = u.id
		WHERE p.user_id IS NULL
		   OR p.daily_quest IS NULL
		   OR p.daily_quest->>'date' <> $1
		ORDER BY u.last_active DESC NULLS LAST`, today)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query eligible users")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			w.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var userIDs []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan user id")
		}
		userIDs = append(userIDs, id)
	}
	return userIDs, rows.Err()
}
