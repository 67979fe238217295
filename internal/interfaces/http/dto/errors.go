package dto

import (
	"errors"
	"net/http"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/auth"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeInvalidSettings is used when settings fail validation
	ErrCodeInvalidSettings = "ERR_INVALID_SETTINGS"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeForbidden is used when the operator lacks a scope
	ErrCodeForbidden = "ERR_FORBIDDEN"
	// ErrCodeTokenExpired is used when the auth token has expired
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	// ErrCodeTokenInvalid is used when the auth token is invalid
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
	// ErrCodeTokenRevoked is used when the token id is on the blacklist
	ErrCodeTokenRevoked = "ERR_TOKEN_REVOKED"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeSyncInProgress is used when the entity is already being synced
	ErrCodeSyncInProgress = "ERR_SYNC_IN_PROGRESS"
)

// Integration error codes
const (
	// ErrCodeIntegrationDisabled is used when the integration is switched off
	ErrCodeIntegrationDisabled = "ERR_INTEGRATION_DISABLED"
	// ErrCodeCredentialsIncomplete is used when storefront credentials are missing
	ErrCodeCredentialsIncomplete = "ERR_CREDENTIALS_INCOMPLETE"
	// ErrCodeQueueUnavailable is used when a task cannot be queued
	ErrCodeQueueUnavailable = "ERR_QUEUE_UNAVAILABLE"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used when a path or query value is invalid
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when the body is not valid JSON
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeRequestTooLarge is used when the body exceeds the limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeInvalidSettings: http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeTokenRevoked: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:       http.StatusNotFound,
	ErrCodeConflict:       http.StatusConflict,
	ErrCodeSyncInProgress: http.StatusConflict,

	// Integration state -> 422 Unprocessable Entity
	ErrCodeIntegrationDisabled:   http.StatusUnprocessableEntity,
	ErrCodeCredentialsIncomplete: http.StatusUnprocessableEntity,
	ErrCodeQueueUnavailable:      http.StatusServiceUnavailable,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	// Rate limiting -> 429 Too Many Requests
	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// errorCodes maps sentinel errors to API error codes. Order matters: the
// first match wins.
var errorCodes = []struct {
	err  error
	code string
}{
	{integration.ErrInvalidLocalID, ErrCodeInvalidInput},
	{integration.ErrInvalidRemoteID, ErrCodeInvalidInput},
	{integration.ErrInvalidEntityKind, ErrCodeInvalidInput},
	{integration.ErrLocalEntityNotFound, ErrCodeNotFound},
	{integration.ErrMappingNotFound, ErrCodeNotFound},
	{integration.ErrCategoryMappingNotFound, ErrCodeNotFound},
	{integration.ErrSettingsNotFound, ErrCodeNotFound},
	{integration.ErrSyncInProgress, ErrCodeSyncInProgress},
	{integration.ErrMappingAlreadyExists, ErrCodeConflict},
	{integration.ErrMappingConflict, ErrCodeConflict},
	{integration.ErrInvalidSettings, ErrCodeInvalidSettings},
	{integration.ErrIntegrationDisabled, ErrCodeIntegrationDisabled},
	{integration.ErrCredentialsIncomplete, ErrCodeCredentialsIncomplete},
	{integration.ErrValidation, ErrCodeValidation},
	{auth.ErrExpiredToken, ErrCodeTokenExpired},
	{auth.ErrTokenRevoked, ErrCodeTokenRevoked},
	{auth.ErrInvalidToken, ErrCodeTokenInvalid},
	{auth.ErrTokenNotYetValid, ErrCodeTokenInvalid},
	{auth.ErrInvalidClaims, ErrCodeTokenInvalid},
}

// ErrorCode returns the API error code for err, ErrCodeInternal when err
// matches no known sentinel
func ErrorCode(err error) string {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return ErrCodeInternal
}
