package integration

import (
	"errors"
)

// ---------------------------------------------------------------------------
// Integration Errors
// ---------------------------------------------------------------------------

var (
	// Error taxonomy for sync attempts
	ErrConfiguration   = errors.New("integration: configuration error")
	ErrValidation      = errors.New("integration: payload validation failed")
	ErrRemoteClient    = errors.New("integration: storefront rejected request")
	ErrRemoteTransient = errors.New("integration: storefront temporarily unavailable")
	ErrRateLimited     = errors.New("integration: storefront rate limited")
	ErrUnexpected      = errors.New("integration: unexpected sync failure")

	// Configuration errors
	ErrIntegrationDisabled   = errors.New("integration: integration is disabled")
	ErrCredentialsIncomplete = errors.New("integration: storefront credentials incomplete")
	ErrSettingsNotFound      = errors.New("integration: settings not found")
	ErrInvalidSettings       = errors.New("integration: invalid settings")

	// Mapping errors
	ErrInvalidLocalID       = errors.New("integration: invalid local id")
	ErrInvalidRemoteID      = errors.New("integration: invalid remote id")
	ErrInvalidEntityKind    = errors.New("integration: invalid entity kind")
	ErrLocalEntityNotFound  = errors.New("integration: local entity not found")
	ErrMappingAlreadyExists = errors.New("integration: entity mapping already exists")
	ErrMappingNotFound      = errors.New("integration: entity mapping not found")
	ErrSyncInProgress       = errors.New("integration: sync already in progress for entity")
	ErrMappingConflict      = errors.New("integration: entity mapping changed concurrently")
	ErrMappingDisabled      = errors.New("integration: sync is disabled for entity")
	ErrNotSynced            = errors.New("integration: entity has no storefront counterpart")

	// Category errors
	ErrCategoryMappingNotFound = errors.New("integration: category mapping not found")

	// Webhook errors
	ErrInvalidSignature = errors.New("integration: invalid webhook signature")
	ErrMissingSignature = errors.New("integration: missing webhook signature")
	ErrMissingEventType = errors.New("integration: missing webhook event type")
	ErrMalformedPayload = errors.New("integration: malformed webhook payload")
	ErrPayloadTooLarge  = errors.New("integration: webhook payload too large")
	ErrUnreadableBody   = errors.New("integration: webhook body could not be read")

	// Order errors
	ErrInvalidInboundOrder = errors.New("integration: invalid inbound order")
	ErrOrderNotFound       = errors.New("integration: order not found")
)

// ---------------------------------------------------------------------------
// ErrorKind
// ---------------------------------------------------------------------------

// ErrorKind classifies the failure of a sync attempt
type ErrorKind string

const (
	// ErrorKindNone means no failure
	ErrorKindNone ErrorKind = ""
	// ErrorKindConfiguration means the integration is disabled or misconfigured
	ErrorKindConfiguration ErrorKind = "CONFIGURATION"
	// ErrorKindValidation means the payload failed local validation
	ErrorKindValidation ErrorKind = "VALIDATION"
	// ErrorKindRemoteClient means the storefront rejected the payload (4xx)
	ErrorKindRemoteClient ErrorKind = "REMOTE_CLIENT"
	// ErrorKindRemoteTransient means 5xx, timeout or connection failure
	ErrorKindRemoteTransient ErrorKind = "REMOTE_TRANSIENT"
	// ErrorKindRateLimit means the storefront throttled the request
	ErrorKindRateLimit ErrorKind = "RATE_LIMIT"
	// ErrorKindUnexpected means anything not anticipated above
	ErrorKindUnexpected ErrorKind = "UNEXPECTED"
)

// String returns the string representation of ErrorKind
func (k ErrorKind) String() string {
	return string(k)
}

// Err returns the sentinel error for the kind, nil for ErrorKindNone
func (k ErrorKind) Err() error {
	switch k {
	case ErrorKindConfiguration:
		return ErrConfiguration
	case ErrorKindValidation:
		return ErrValidation
	case ErrorKindRemoteClient:
		return ErrRemoteClient
	case ErrorKindRemoteTransient:
		return ErrRemoteTransient
	case ErrorKindRateLimit:
		return ErrRateLimited
	case ErrorKindUnexpected:
		return ErrUnexpected
	default:
		return nil
	}
}

// KindOf maps an error to its ErrorKind using the sentinel errors above.
// Errors that match no sentinel are unexpected.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ErrorKindNone
	case errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrIntegrationDisabled),
		errors.Is(err, ErrCredentialsIncomplete),
		errors.Is(err, ErrInvalidSettings):
		return ErrorKindConfiguration
	case errors.Is(err, ErrValidation):
		return ErrorKindValidation
	case errors.Is(err, ErrRemoteClient):
		return ErrorKindRemoteClient
	case errors.Is(err, ErrRemoteTransient):
		return ErrorKindRemoteTransient
	case errors.Is(err, ErrRateLimited):
		return ErrorKindRateLimit
	default:
		return ErrorKindUnexpected
	}
}
