package handlers

import (
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"mathapp/internal/config"
	"mathapp/internal/middleware"
	"mathapp/internal/models"
	"mathapp/internal/observability"
	"mathapp/internal/services"
	contextutils "mathapp/internal/utils"

	"github.com/gin-gonic/gin"
)

// PlayHandler serves the gameplay endpoints: catalog listing, question
// generation, attempt submission, progress and quests.
type PlayHandler struct {
	exerciseService services.ExerciseServiceInterface
	questionService services.QuestionServiceInterface
	progressService services.ProgressServiceInterface
	userService     services.UserServiceInterface
	cfg             *config.Config
	logger          *observability.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPlayHandler creates a new PlayHandler instance
func NewPlayHandler(
	exerciseService services.ExerciseServiceInterface,
	questionService services.QuestionServiceInterface,
	progressService services.ProgressServiceInterface,
	userService services.UserServiceInterface,
	cfg *config.Config,
	logger *observability.Logger,
) *PlayHandler {
	return &PlayHandler{
		exerciseService: exerciseService,
		questionService: questionService,
		progressService: progressService,
		userService:     userService,
		cfg:             cfg,
		logger:          logger,
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type exerciseListEntry struct {
	*models.Exercise
	Locked bool `json:"locked"`
}

// ListExercises returns the enabled catalog. Premium exercises are included
// but flagged as locked for non-premium accounts.
func (h *PlayHandler) ListExercises(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		StandardizeHTTPError(c, http.StatusUnauthorized, "Authentication required", "")
		return
	}

	exercises, err := h.exerciseService.GetAllExercises(c.Request.Context(), true)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	premium, err := h.userIsPremium(c, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	entries := make([]exerciseListEntry, 0, len(exercises))
	for _, exercise := range exercises {
		entries = append(entries, exerciseListEntry{
			Exercise: exercise,
			Locked:   exercise.Premium && !premium,
		})
	}
	c.JSON(http.StatusOK, gin.H{"exercises": entries})
}

// GetQuestion generates one question for an exercise and level
func (h *PlayHandler) GetQuestion(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		StandardizeHTTPError(c, http.StatusUnauthorized, "Authentication required", "")
		return
	}

	exerciseID := c.Param("id")
	level, err := strconv.Atoi(c.DefaultQuery("level", "1"))
	if err != nil || level < 1 || level > 3 {
		StandardizeHTTPError(c, http.StatusBadRequest, "Invalid level", "level must be 1, 2 or 3")
		return
	}

	exercise, err := h.exerciseService.GetExercise(c.Request.Context(), exerciseID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	if exercise == nil || !exercise.Enabled {
		StandardizeHTTPError(c, http.StatusNotFound, "Exercise not found", "")
		return
	}

	if exercise.Premium {
		premium, premErr := h.userIsPremium(c, userID)
		if premErr != nil {
			HandleAppError(c, premErr)
			return
		}
		if !premium {
			StandardizeHTTPError(c, http.StatusForbidden, "Premium access required", "")
			return
		}
	}

	question, err := h.questionService.GetQuestion(c.Request.Context(), exerciseID, level)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrLevelNotConfigured) {
			StandardizeHTTPError(c, http.StatusNotFound, "Level not available", "")
			return
		}
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"question": question})
}

// SubmitAttempt records one finished round and returns the progress delta
func (h *PlayHandler) SubmitAttempt(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		StandardizeHTTPError(c, http.StatusUnauthorized, "Authentication required", "")
		return
	}

	var attempt models.Attempt
	if err := c.ShouldBindJSON(&attempt); err != nil {
		StandardizeHTTPError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	// The client reports tables_drill but the catalog is authoritative
	exercise, err := h.exerciseService.GetExercise(c.Request.Context(), attempt.ExerciseID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	if exercise == nil {
		StandardizeHTTPError(c, http.StatusNotFound, "Exercise not found", "")
		return
	}
	attempt.TablesDrill = exercise.TablesDrill

	delta, err := h.progressService.ApplyOutcome(c.Request.Context(), userID, &attempt)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"delta": delta})
}

// GetProgress returns the caller's full progress document
func (h *PlayHandler) GetProgress(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		StandardizeHTTPError(c, http.StatusUnauthorized, "Authentication required", "")
		return
	}

	progress, err := h.progressService.GetOrCreateProgress(c.Request.Context(), userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": progress})
}

// GetDailyQuest returns today's quest, assigning one on demand when the
// worker has not come around yet.
func (h *PlayHandler) GetDailyQuest(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		StandardizeHTTPError(c, http.StatusUnauthorized, "Authentication required", "")
		return
	}

	exercises, err := h.exerciseService.GetAllExercises(c.Request.Context(), true)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	h.mu.Lock()
	subQuests := services.BuildSubQuests(h.rng, exercises, h.cfg.SubQuestsPerDayOrDefault())
	h.mu.Unlock()

	quest, err := h.progressService.EnsureDailyQuest(c.Request.Context(), userID, subQuests)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quest": quest})
}

// GetLeaderboard returns the top users by XP, or by best score for one
// exercise when mode and exercise_id query parameters are given.
func (h *PlayHandler) GetLeaderboard(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		StandardizeHTTPError(c, http.StatusBadRequest, "Invalid limit", "")
		return
	}

	mode := c.Query("mode")
	exerciseID := c.Query("exercise_id")
	if mode != "" || exerciseID != "" {
		if mode == "" || exerciseID == "" {
			StandardizeHTTPError(c, http.StatusBadRequest, "mode and exercise_id must be given together", "")
			return
		}
		entries, err := h.progressService.GetModeLeaderboard(c.Request.Context(), models.GameMode(mode), exerciseID, limit)
		if err != nil {
			if contextutils.IsError(err, contextutils.ErrUnknownGameMode) {
				StandardizeHTTPError(c, http.StatusBadRequest, "Unknown game mode", mode)
				return
			}
			HandleAppError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
		return
	}

	entries, err := h.progressService.GetLeaderboard(c.Request.Context(), limit)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}

func (h *PlayHandler) userIsPremium(c *gin.Context, userID int) (bool, error) {
	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}
	return user.Premium, nil
}
