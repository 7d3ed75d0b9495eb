// Package middleware provides authentication, request validation and panic
// recovery middleware for the Gin router.
package middleware

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Session keys for storing user information
const (
	// UserIDKey is the key used to store user ID in session
	UserIDKey = "user_id"
	// UsernameKey is the key used to store username in session
	UsernameKey = "username"
)

// AdminChecker is the slice of the user service the admin middleware needs.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID int) (bool, error)
}

func abortUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"error": "Authentication required",
		"code":  "UNAUTHORIZED",
	})
	c.Abort()
}

// sessionUserID extracts a validated user id from the session, or -1.
// Session values round-trip through gob so numbers can come back as float64.
func sessionUserID(c *gin.Context) int {
	session := sessions.Default(c)
	switch v := session.Get(UserIDKey).(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return -1
	}
}

// RequireAuth returns a middleware that requires a logged-in session
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := sessionUserID(c)
		if userID < 0 {
			abortUnauthorized(c)
			return
		}

		session := sessions.Default(c)
		username, ok := session.Get(UsernameKey).(string)
		if !ok || username == "" {
			abortUnauthorized(c)
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(UsernameKey, username)
		c.Next()
	}
}

// RequireAdmin returns a middleware that requires a session with the admin role
func RequireAdmin(users AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := sessionUserID(c)
		if userID < 0 {
			abortUnauthorized(c)
			return
		}

		isAdmin, err := users.IsAdmin(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to verify permissions",
				"code":  "INTERNAL_ERROR",
			})
			c.Abort()
			return
		}
		if !isAdmin {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Admin access required",
				"code":  "FORBIDDEN",
			})
			c.Abort()
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// GetUserID returns the authenticated user id placed in the context by
// RequireAuth or RequireAdmin.
func GetUserID(c *gin.Context) (int, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	userID, ok := v.(int)
	return userID, ok
}
