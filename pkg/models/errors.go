package models

import (
	"errors"
	"fmt"
	"time"
)

// Common error codes for JSON responses
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// Common errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrProgressNotFound   = errors.New("user progress not found")
	ErrRuleNotFound       = errors.New("rule not found")
	ErrBadgeNotFound      = errors.New("badge not found")
	ErrCampaignNotFound   = errors.New("campaign not found")
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUnauthorized       = errors.New("unauthorized access")
	ErrForbidden          = errors.New("forbidden access")
	ErrInvalidInput       = errors.New("invalid input")

	// Gamification errors
	ErrVersionConflict    = errors.New("progress record was modified concurrently")
	ErrInsufficientPoints = errors.New("insufficient points balance")
	ErrInvalidEventType   = errors.New("invalid event type")
)

// AppError carries an error code, user-facing message and HTTP status
type AppError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ToHTTPError converts to the standard API envelope
func (e *AppError) ToHTTPError() *APIResponse {
	return &APIResponse{
		Success:   false,
		Error:     e.Message,
		Message:   e.Message,
		Timestamp: time.Now(),
	}
}

// NewHTTPError builds an AppError bound to an HTTP status
func NewHTTPError(code, message string, statusCode int, err error) *AppError {
	details := map[string]interface{}{}
	if err != nil {
		details["original_error"] = err.Error()
	}
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
	}
}

// StatusOf returns the HTTP status for an error, defaulting to 500.
// AppErrors carry their own status; known sentinels get a fixed mapping.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	switch {
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrProgressNotFound),
		errors.Is(err, ErrRuleNotFound),
		errors.Is(err, ErrBadgeNotFound),
		errors.Is(err, ErrCampaignNotFound),
		errors.Is(err, ErrNotFound):
		return 404
	case errors.Is(err, ErrVersionConflict):
		return 409
	case errors.Is(err, ErrInsufficientPoints),
		errors.Is(err, ErrInvalidEventType),
		errors.Is(err, ErrInvalidInput):
		return 400
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrUnauthorized):
		return 401
	case errors.Is(err, ErrForbidden):
		return 403
	}
	return 500
}
