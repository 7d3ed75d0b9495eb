package handlers

import (
	"net/http"
	"strconv"

	"mathapp/internal/config"
	"mathapp/internal/models"
	"mathapp/internal/observability"
	"mathapp/internal/services"
	contextutils "mathapp/internal/utils"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves the catalog and user administration endpoints
type AdminHandler struct {
	userService     services.UserServiceInterface
	exerciseService services.ExerciseServiceInterface
	progressService services.ProgressServiceInterface
	cfg             *config.Config
	logger          *observability.Logger
}

// NewAdminHandlerWithLogger creates a new AdminHandler instance with logger
func NewAdminHandlerWithLogger(
	userService services.UserServiceInterface,
	exerciseService services.ExerciseServiceInterface,
	progressService services.ProgressServiceInterface,
	cfg *config.Config,
	logger *observability.Logger,
) *AdminHandler {
	return &AdminHandler{
		userService:     userService,
		exerciseService: exerciseService,
		progressService: progressService,
		cfg:             cfg,
		logger:          logger,
	}
}

// ListExercises returns the full catalog including disabled entries
func (h *AdminHandler) ListExercises(c *gin.Context) {
	exercises, err := h.exerciseService.GetAllExercises(c.Request.Context(), false)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exercises": exercises})
}

// CreateExercise adds a catalog entry
func (h *AdminHandler) CreateExercise(c *gin.Context) {
	var exercise models.Exercise
	if err := c.ShouldBindJSON(&exercise); err != nil {
		StandardizeHTTPError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	if err := h.exerciseService.CreateExercise(c.Request.Context(), &exercise); err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordExists) {
			StandardizeHTTPError(c, http.StatusConflict, "Exercise already exists", "")
			return
		}
		HandleAppError(c, err)
		return
	}

	h.logger.Info(c.Request.Context(), "Exercise created", map[string]interface{}{
		"exercise_id": exercise.ID,
	})
	c.JSON(http.StatusCreated, gin.H{"exercise": exercise})
}

// GetExercise returns one catalog entry with its level configurations
func (h *AdminHandler) GetExercise(c *gin.Context) {
	exercise, err := h.exerciseService.GetExercise(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleAppError(c, err)
		return
	}
	if exercise == nil {
		StandardizeHTTPError(c, http.StatusNotFound, "Exercise not found", "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"exercise": exercise})
}

// UpdateExercise replaces a catalog entry's metadata
func (h *AdminHandler) UpdateExercise(c *gin.Context) {
	var exercise models.Exercise
	if err := c.ShouldBindJSON(&exercise); err != nil {
		StandardizeHTTPError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	exercise.ID = c.Param("id")

	if err := h.exerciseService.UpdateExercise(c.Request.Context(), &exercise); err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			StandardizeHTTPError(c, http.StatusNotFound, "Exercise not found", "")
			return
		}
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exercise": exercise})
}

// DeleteExercise removes a catalog entry
func (h *AdminHandler) DeleteExercise(c *gin.Context) {
	if err := h.exerciseService.DeleteExercise(c.Request.Context(), c.Param("id")); err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			StandardizeHTTPError(c, http.StatusNotFound, "Exercise not found", "")
			return
		}
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Exercise deleted"})
}

type enableRequest struct {
	Enabled bool `json:"enabled"`
}

// SetExerciseEnabled toggles an exercise's availability
func (h *AdminHandler) SetExerciseEnabled(c *gin.Context) {
	var req enableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		StandardizeHTTPError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	if err := h.exerciseService.SetExerciseEnabled(c.Request.Context(), c.Param("id"), req.Enabled); err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			StandardizeHTTPError(c, http.StatusNotFound, "Exercise not found", "")
			return
		}
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": req.Enabled})
}

// UpsertLevelConfig stores the dynamic configuration for one level
func (h *AdminHandler) UpsertLevelConfig(c *gin.Context) {
	level, err := strconv.Atoi(c.Param("level"))
	if err != nil || level < 1 || level > 3 {
		StandardizeHTTPError(c, http.StatusBadRequest, "Invalid level", "level must be 1, 2 or 3")
		return
	}

	var levelCfg models.ExerciseLevelConfig
	if err := c.ShouldBindJSON(&levelCfg); err != nil {
		StandardizeHTTPError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	if err := h.exerciseService.UpsertLevelConfig(c.Request.Context(), c.Param("id"), level, &levelCfg); err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Level configuration saved"})
}

// InvalidateCache drops the exercise definition cache
func (h *AdminHandler) InvalidateCache(c *gin.Context) {
	h.exerciseService.InvalidateCache()
	c.JSON(http.StatusOK, gin.H{"message": "Cache invalidated"})
}

// ListUsers returns all accounts
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.userService.GetAllUsers(c.Request.Context())
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// DeleteUser removes an account and its progress
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		StandardizeHTTPError(c, http.StatusBadRequest, "Invalid user id", "")
		return
	}

	if err := h.userService.DeleteUser(c.Request.Context(), userID); err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			StandardizeHTTPError(c, http.StatusNotFound, "User not found", "")
			return
		}
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// GetUserProgress returns one user's full progress document
func (h *AdminHandler) GetUserProgress(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		StandardizeHTTPError(c, http.StatusBadRequest, "Invalid user id", "")
		return
	}

	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	if user == nil {
		StandardizeHTTPError(c, http.StatusNotFound, "User not found", "")
		return
	}

	progress, err := h.progressService.GetOrCreateProgress(c.Request.Context(), userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": progress})
}

type premiumRequest struct {
	Premium bool `json:"premium"`
}

// SetUserPremium manually flips an account's premium flag
func (h *AdminHandler) SetUserPremium(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		StandardizeHTTPError(c, http.StatusBadRequest, "Invalid user id", "")
		return
	}

	var req premiumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		StandardizeHTTPError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	if err := h.userService.SetPremium(c.Request.Context(), userID, req.Premium); err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			StandardizeHTTPError(c, http.StatusNotFound, "User not found", "")
			return
		}
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"premium": req.Premium})
}
