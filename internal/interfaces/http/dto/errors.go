package dto

import (
	"errors"
	"net/http"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/storefront"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeNotFound is used when a route or resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
	// ErrCodeRequestTooLarge is used when the body exceeds the limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	// ErrCodeMaxConnections is used when the stream limit is reached
	ErrCodeMaxConnections = "ERR_MAX_CONNECTIONS"
)

// Failure codes, one per storefront failure reason plus refinements
const (
	ErrCodeNotAuthenticated   = "ERR_NOT_AUTHENTICATED"
	ErrCodeNoCartForAccount   = "ERR_NO_CART_FOR_ACCOUNT"
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeBackendRejected    = "ERR_BACKEND_REJECTED"
	ErrCodeBackendUnavailable = "ERR_BACKEND_UNAVAILABLE"

	// ErrCodeInvalidState is used when checkout cannot perform an operation
	// in its current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeInProgress is used when the same line or submission is
	// already being processed
	ErrCodeInProgress = "ERR_IN_PROGRESS"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeMaxConnections:  http.StatusServiceUnavailable,

	ErrCodeNotAuthenticated:   http.StatusUnauthorized,
	ErrCodeNoCartForAccount:   http.StatusConflict,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeBackendRejected:    http.StatusBadGateway,
	ErrCodeBackendUnavailable: http.StatusServiceUnavailable,
	ErrCodeInvalidState:       http.StatusUnprocessableEntity,
	ErrCodeInProgress:         http.StatusConflict,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

var reasonCodes = map[storefront.FailureReason]string{
	storefront.ReasonNotAuthenticated: ErrCodeNotAuthenticated,
	storefront.ReasonNoCartForAccount: ErrCodeNoCartForAccount,
	storefront.ReasonValidation:       ErrCodeValidation,
	storefront.ReasonBackendRejected:  ErrCodeBackendRejected,
	storefront.ReasonNetworkOrParse:   ErrCodeBackendUnavailable,
}

// CodeForFailure picks the error code of a Failure. Busy lines and
// submissions become conflicts, checkout state violations become invalid
// state; everything else follows the failure reason.
func CodeForFailure(f *storefront.Failure) string {
	if f == nil {
		return ErrCodeInternal
	}
	switch f.Key {
	case storefront.MsgLineBusy, storefront.MsgSubmissionInProgress:
		return ErrCodeInProgress
	case storefront.MsgOrderNotFound, storefront.MsgUnknownAddress:
		return ErrCodeNotFound
	}
	var domainErr *shared.DomainError
	if f.Reason == storefront.ReasonValidation && errors.As(f, &domainErr) {
		return ErrCodeInvalidState
	}
	if code, ok := reasonCodes[f.Reason]; ok {
		return code
	}
	return ErrCodeInternal
}
