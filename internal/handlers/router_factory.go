package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"mathapp/internal/config"
	"mathapp/internal/middleware"
	"mathapp/internal/observability"
	"mathapp/internal/services"
	"mathapp/internal/version"
)

// NewRouter wires the middleware stack and every API route
func NewRouter(
	cfg *config.Config,
	userService services.UserServiceInterface,
	exerciseService services.ExerciseServiceInterface,
	questionService services.QuestionServiceInterface,
	progressService services.ProgressServiceInterface,
	emailService services.EmailServiceInterface,
	logger *observability.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.RedirectTrailingSlash = false
	router.Use(middleware.ErrorRecovery(logger))
	router.Use(requestLogging(logger))

	// Health check endpoint (defined before any middleware)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "backend"})
	})

	router.Use(observability.GinMiddlewareWithErrorHandling("mathapp-backend"))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{"http://localhost:5173"}
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Requested-With"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	store := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	sessionOpts := sessions.Options{
		Path:     config.SessionPath,
		MaxAge:   int(config.SessionMaxAge.Seconds()),
		HttpOnly: config.SessionHTTPOnly,
		Secure:   config.SessionSecure,
	}
	if cfg.Server.Debug {
		sessionOpts.SameSite = http.SameSiteDefaultMode
	} else {
		sessionOpts.SameSite = http.SameSiteLaxMode
		sessionOpts.Secure = true
	}
	store.Options(sessionOpts)
	router.Use(sessions.Sessions(config.SessionName, store))

	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.ContentSecurityPolicy = config.DefaultCSP
	router.Use(secure.New(secureConfig))

	schemas := middleware.MustNewSchemaLoader()

	authHandler := NewAuthHandler(userService, emailService, cfg, logger)
	playHandler := NewPlayHandler(exerciseService, questionService, progressService, userService, cfg, logger)
	adminHandler := NewAdminHandlerWithLogger(userService, exerciseService, progressService, cfg, logger)
	webhookHandler := NewWebhookHandler(userService, emailService, cfg, logger)

	v1 := router.Group("/v1")
	{
		v1.GET("/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"service":   "backend",
				"version":   version.Version,
				"commit":    version.Commit,
				"buildTime": version.BuildTime,
			})
		})

		auth := v1.Group("/auth")
		{
			auth.POST("/signup", middleware.ValidateJSONBody(logger, schemas, "Signup"), authHandler.Signup)
			auth.POST("/login", middleware.ValidateJSONBody(logger, schemas, "Login"), authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/status", authHandler.Status)
			auth.GET("/signup/status", authHandler.SignupStatus)
		}

		play := v1.Group("")
		play.Use(middleware.RequireAuth())
		{
			play.GET("/exercises", playHandler.ListExercises)
			play.GET("/exercises/:id/question", playHandler.GetQuestion)
			play.POST("/attempts", middleware.ValidateJSONBody(logger, schemas, "Attempt"), playHandler.SubmitAttempt)
			play.GET("/progress", playHandler.GetProgress)
			play.GET("/quests/daily", playHandler.GetDailyQuest)
			play.GET("/leaderboard", playHandler.GetLeaderboard)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.RequireAdmin(userService))
		{
			admin.GET("/exercises", adminHandler.ListExercises)
			admin.POST("/exercises", middleware.ValidateJSONBody(logger, schemas, "Exercise"), adminHandler.CreateExercise)
			admin.GET("/exercises/:id", adminHandler.GetExercise)
			admin.PUT("/exercises/:id", middleware.ValidateJSONBody(logger, schemas, "Exercise"), adminHandler.UpdateExercise)
			admin.DELETE("/exercises/:id", adminHandler.DeleteExercise)
			admin.PUT("/exercises/:id/enabled", adminHandler.SetExerciseEnabled)
			admin.PUT("/exercises/:id/levels/:level", middleware.ValidateJSONBody(logger, schemas, "ExerciseLevelConfig"), adminHandler.UpsertLevelConfig)
			admin.POST("/cache/invalidate", adminHandler.InvalidateCache)
			admin.GET("/users", adminHandler.ListUsers)
			admin.GET("/users/:id/progress", adminHandler.GetUserProgress)
			admin.DELETE("/users/:id", adminHandler.DeleteUser)
			admin.PUT("/users/:id/premium", adminHandler.SetUserPremium)
		}

		v1.POST("/webhooks/stripe", webhookHandler.HandleStripeEvent)
	}

	return router
}

// requestLogging logs each request through the structured logger
func requestLogging(logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		statusCode := c.Writer.Status()
		fields := map[string]interface{}{
			"http.method":      c.Request.Method,
			"http.path":        c.Request.URL.Path,
			"http.status_code": statusCode,
			"http.latency_ms":  time.Since(start).Milliseconds(),
			"http.client_ip":   c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields["http.error"] = c.Errors.String()
		}

		switch {
		case statusCode >= 500:
			logger.Error(c.Request.Context(), "HTTP request failed", nil, fields)
		case statusCode >= 400:
			logger.Warn(c.Request.Context(), "HTTP request warning", fields)
		default:
			logger.Info(c.Request.Context(), "HTTP request", fields)
		}
	}
}
