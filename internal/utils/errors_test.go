package contextutils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name: "with details",
			err: &AppError{
				Code:    ErrorCodeGenerationFailed,
				Message: "Question generation failed",
				Details: "fractions level 2",
			},
			expected: "GENERATION_FAILED: Question generation failed - fractions level 2",
		},
		{
			name: "without details",
			err: &AppError{
				Code:    ErrorCodeExerciseNotFound,
				Message: "Exercise not found",
			},
			expected: "EXERCISE_NOT_FOUND: Exercise not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_Is(t *testing.T) {
	err := WrapError(ErrExerciseNotFound, "looking up exercise")
	assert.True(t, errors.Is(err, ErrExerciseNotFound))
	assert.False(t, errors.Is(err, ErrProgressNotFound))
}

func TestWrapError_PreservesCode(t *testing.T) {
	wrapped := WrapError(ErrLevelNotConfigured, "loading level 3")
	var appErr *AppError
	require.True(t, AsError(wrapped, &appErr))
	assert.Equal(t, ErrorCodeLevelNotConfigured, appErr.Code)
	assert.Equal(t, "loading level 3", appErr.Message)
	assert.Equal(t, ErrLevelNotConfigured, errors.Unwrap(wrapped))
}

func TestWrapError_PlainError(t *testing.T) {
	cause := errors.New("boom")
	wrapped := WrapError(cause, "doing something")
	var appErr *AppError
	require.True(t, AsError(wrapped, &appErr))
	assert.Equal(t, ErrorCodeInternalError, appErr.Code)
	assert.Equal(t, cause, errors.Unwrap(wrapped))
}

func TestWrapError_Nil(t *testing.T) {
	assert.Nil(t, WrapError(nil, "context"))
	assert.Nil(t, WrapErrorf(nil, "context %d", 1))
}

func TestWrapErrorf_WithVerbW(t *testing.T) {
	cause := errors.New("db down")
	wrapped := WrapErrorf(cause, "saving attempt: %w", cause)
	var appErr *AppError
	require.True(t, AsError(wrapped, &appErr))
	assert.Contains(t, appErr.Message, "saving attempt")
	assert.Contains(t, appErr.Message, "db down")
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, ErrorCodeWebhookSignature, GetErrorCode(ErrWebhookSignature))
	assert.Equal(t, ErrorCodeInternalError, GetErrorCode(errors.New("plain")))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrDatabaseConnection))
	assert.True(t, IsRetryable(ErrTimeout))
	assert.False(t, IsRetryable(ErrExerciseNotFound))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestAppError_ToJSON(t *testing.T) {
	err := NewAppError(ErrorCodeInvalidAttempt, SeverityWarn, "Attempt payload invalid", "score out of range")
	result := err.ToJSON()

	assert.Equal(t, "INVALID_ATTEMPT", result["code"])
	assert.Equal(t, "Attempt payload invalid", result["message"])
	assert.Equal(t, "score out of range", result["details"])
	assert.Equal(t, false, result["retryable"])
	assert.NotContains(t, result, "cause")
}
