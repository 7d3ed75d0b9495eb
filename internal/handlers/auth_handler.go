package handlers

import (
	"net/http"

	"mathapp/internal/config"
	"mathapp/internal/middleware"
	"mathapp/internal/models"
	"mathapp/internal/observability"
	"mathapp/internal/services"
	contextutils "mathapp/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles signup, login and session state
type AuthHandler struct {
	userService  services.UserServiceInterface
	emailService services.EmailServiceInterface
	cfg          *config.Config
	logger       *observability.Logger
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(userService services.UserServiceInterface, emailService services.EmailServiceInterface, cfg *config.Config, logger *observability.Logger) *AuthHandler {
	return &AuthHandler{
		userService:  userService,
		emailService: emailService,
		cfg:          cfg,
		logger:       logger,
	}
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup creates a new account and opens a session for it
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		StandardizeHTTPError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	if !h.cfg.IsSignupAllowed(req.Email) {
		StandardizeHTTPError(c, http.StatusForbidden, "Signups are currently disabled", "")
		return
	}

	user, err := h.userService.CreateUserWithPassword(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordExists) {
			StandardizeHTTPError(c, http.StatusConflict, "Username or email already taken", "")
			return
		}
		HandleAppError(c, err)
		return
	}

	if sendErr := h.emailService.SendWelcomeEmail(c.Request.Context(), user); sendErr != nil {
		h.logger.Warn(c.Request.Context(), "Failed to send welcome email", map[string]interface{}{
			"user_id": user.ID,
			"error":   sendErr.Error(),
		})
	}

	h.openSession(c, user)
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Login authenticates credentials and opens a session
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		StandardizeHTTPError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	user, err := h.userService.AuthenticateUser(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrInvalidCredentials) {
			StandardizeHTTPError(c, http.StatusUnauthorized, "Invalid username or password", "")
			return
		}
		HandleAppError(c, err)
		return
	}

	if err := h.userService.UpdateLastActive(c.Request.Context(), user.ID); err != nil {
		h.logger.Warn(c.Request.Context(), "Failed to update last active", map[string]interface{}{
			"user_id": user.ID,
			"error":   err.Error(),
		})
	}

	h.openSession(c, user)
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Logout clears the session
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: config.SessionPath, MaxAge: -1})
	if err := session.Save(); err != nil {
		StandardizeHTTPError(c, http.StatusInternalServerError, "Failed to clear session", "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Status reports the current session's user, if any
func (h *AuthHandler) Status(c *gin.Context) {
	session := sessions.Default(c)
	userID, ok := session.Get(middleware.UserIDKey).(int)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}

	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil || user == nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": user})
}

// SignupStatus reports whether new accounts can be created
func (h *AuthHandler) SignupStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"signups_disabled": h.cfg.IsSignupDisabled()})
}

func (h *AuthHandler) openSession(c *gin.Context, user *models.User) {
	session := sessions.Default(c)
	session.Set(middleware.UserIDKey, user.ID)
	session.Set(middleware.UsernameKey, user.Username)
	if err := session.Save(); err != nil {
		h.logger.Error(c.Request.Context(), "Failed to save session", err, map[string]interface{}{
			"user_id": user.ID,
		})
	}
}
