package integration

import (
	"context"
	"fmt"
	"net/http"
)

// ---------------------------------------------------------------------------
// RemoteResult
// ---------------------------------------------------------------------------

// FailureType tells transport failures apart from HTTP-level errors
type FailureType string

const (
	FailureNone       FailureType = ""
	FailureHTTP       FailureType = "HTTP"
	FailureTimeout    FailureType = "TIMEOUT"
	FailureConnection FailureType = "CONNECTION"
	FailureDecode     FailureType = "DECODE"
)

// RemoteResult is the outcome of one storefront call. Expected remote
// failures are reported here rather than as Go errors.
type RemoteResult struct {
	Success bool
	// RemoteID is the storefront id found in the response, if any
	RemoteID string
	// Data is the decoded response body
	Data map[string]any
	// Error is a human readable failure description
	Error string
	// ErrorData is the parsed error body, or the raw text if it was not JSON
	ErrorData any
	// StatusCode is the HTTP status, 0 when no response arrived
	StatusCode int
	Failure    FailureType
}

// Succeeded builds a successful result
func Succeeded(statusCode int, remoteID string, data map[string]any) *RemoteResult {
	return &RemoteResult{Success: true, StatusCode: statusCode, RemoteID: remoteID, Data: data}
}

// Failed builds a failed result
func Failed(failure FailureType, statusCode int, msg string, errorData any) *RemoteResult {
	return &RemoteResult{Failure: failure, StatusCode: statusCode, Error: msg, ErrorData: errorData}
}

// Kind classifies a failed result; ErrorKindNone for successes
func (r *RemoteResult) Kind() ErrorKind {
	if r == nil {
		return ErrorKindUnexpected
	}
	if r.Success {
		return ErrorKindNone
	}
	switch r.Failure {
	case FailureTimeout, FailureConnection:
		return ErrorKindRemoteTransient
	case FailureDecode:
		return ErrorKindUnexpected
	}
	switch {
	case r.StatusCode == http.StatusTooManyRequests:
		return ErrorKindRateLimit
	case r.StatusCode >= 500:
		return ErrorKindRemoteTransient
	case r.StatusCode == http.StatusRequestTimeout:
		return ErrorKindRemoteTransient
	case r.StatusCode >= 400:
		if IsRateLimitMessage(r.Error) {
			return ErrorKindRateLimit
		}
		return ErrorKindRemoteClient
	default:
		return ErrorKindUnexpected
	}
}

// IsNotFound reports whether the storefront answered 404
func (r *RemoteResult) IsNotFound() bool {
	return r != nil && r.StatusCode == http.StatusNotFound
}

// Err converts a failed result into an error wrapping the kind's sentinel
func (r *RemoteResult) Err() error {
	if r != nil && r.Success {
		return nil
	}
	kind := r.Kind()
	msg := "no result"
	if r != nil {
		msg = r.Error
		if r.StatusCode > 0 {
			msg = fmt.Sprintf("HTTP %d: %s", r.StatusCode, r.Error)
		}
	}
	return fmt.Errorf("%w: %s", kind.Err(), msg)
}

// ---------------------------------------------------------------------------
// StorefrontClient port
// ---------------------------------------------------------------------------

// StorefrontClient is the port for the storefront REST API. Settings are
// passed on every call so that the auth headers always reflect the current
// credentials. Implementations carry no business logic.
type StorefrontClient interface {
	// CreateProduct creates a product; 200 and 201 are success
	CreateProduct(ctx context.Context, s Settings, payload *ProductPayload) *RemoteResult

	// UpdateProduct updates a product; 200 is success
	UpdateProduct(ctx context.Context, s Settings, remoteID string, payload *ProductPayload) *RemoteResult

	// GetProduct fetches a product
	GetProduct(ctx context.Context, s Settings, remoteID string) *RemoteResult

	// DeleteProduct deletes a product; 200, 204 and 404 are success
	DeleteProduct(ctx context.Context, s Settings, remoteID string) *RemoteResult

	// CreateCategory creates a category
	CreateCategory(ctx context.Context, s Settings, payload *CategoryPayload) *RemoteResult

	// UpdateInventory sets the stock level of a product
	UpdateInventory(ctx context.Context, s Settings, remoteID string, payload *InventoryPayload) *RemoteResult

	// TestConnection performs a read-only call to validate credentials
	TestConnection(ctx context.Context, s Settings) *RemoteResult
}
