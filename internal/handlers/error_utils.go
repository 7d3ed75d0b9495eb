// Package handlers exposes the HTTP API: authentication, gameplay, the admin
// catalog surface and the billing webhook.
package handlers

import (
	"errors"
	"net/http"

	contextutils "mathapp/internal/utils"

	"github.com/gin-gonic/gin"
)

// StandardizeHTTPError sends a consistent structured error response
func StandardizeHTTPError(c *gin.Context, statusCode int, message, details string) {
	var errorCode contextutils.ErrorCode
	var severity contextutils.SeverityLevel

	switch statusCode {
	case http.StatusBadRequest:
		errorCode = contextutils.ErrorCodeInvalidInput
		severity = contextutils.SeverityWarn
	case http.StatusUnauthorized:
		errorCode = contextutils.ErrorCodeUnauthorized
		severity = contextutils.SeverityWarn
	case http.StatusForbidden:
		errorCode = contextutils.ErrorCodeForbidden
		severity = contextutils.SeverityWarn
	case http.StatusNotFound:
		errorCode = contextutils.ErrorCodeRecordNotFound
		severity = contextutils.SeverityInfo
	case http.StatusConflict:
		errorCode = contextutils.ErrorCodeRecordExists
		severity = contextutils.SeverityInfo
	case http.StatusServiceUnavailable:
		errorCode = contextutils.ErrorCodeServiceUnavailable
		severity = contextutils.SeverityError
	default:
		errorCode = contextutils.ErrorCodeInternalError
		severity = contextutils.SeverityError
	}

	appErr := contextutils.NewAppError(errorCode, severity, message, details)
	c.JSON(statusCode, appErr.ToJSON())
}

// HandleAppError maps a service error onto an HTTP response
func HandleAppError(c *gin.Context, err error) {
	var appErr *contextutils.AppError
	if errors.As(err, &appErr) {
		c.JSON(mapErrorCodeToHTTPStatus(appErr.Code), appErr.ToJSON())
		return
	}
	StandardizeHTTPError(c, http.StatusInternalServerError, "Internal server error", "")
}

func mapErrorCodeToHTTPStatus(code contextutils.ErrorCode) int {
	switch code {
	case contextutils.ErrorCodeInvalidInput,
		contextutils.ErrorCodeMissingRequired,
		contextutils.ErrorCodeInvalidFormat,
		contextutils.ErrorCodeValidationFailed,
		contextutils.ErrorCodeInvalidAttempt,
		contextutils.ErrorCodeUnknownGameMode,
		contextutils.ErrorCodeInvalidExerciseConfig,
		contextutils.ErrorCodeWebhookPayload,
		contextutils.ErrorCodeWebhookSignature:
		return http.StatusBadRequest
	case contextutils.ErrorCodeUnauthorized,
		contextutils.ErrorCodeInvalidCredentials,
		contextutils.ErrorCodeSessionExpired:
		return http.StatusUnauthorized
	case contextutils.ErrorCodeForbidden:
		return http.StatusForbidden
	case contextutils.ErrorCodeRecordNotFound,
		contextutils.ErrorCodeExerciseNotFound,
		contextutils.ErrorCodeLevelNotConfigured,
		contextutils.ErrorCodeProgressNotFound:
		return http.StatusNotFound
	case contextutils.ErrorCodeRecordExists,
		contextutils.ErrorCodeConflict:
		return http.StatusConflict
	case contextutils.ErrorCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case contextutils.ErrorCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
