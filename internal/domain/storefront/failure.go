package storefront

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/storefront/backend/internal/domain/shared"
)

// FailureReason is the stable classification of a failed operation
type FailureReason string

const (
	ReasonNotAuthenticated FailureReason = "NOT_AUTHENTICATED"
	ReasonNoCartForAccount FailureReason = "NO_CART_FOR_ACCOUNT"
	ReasonValidation       FailureReason = "VALIDATION_FAILURE"
	ReasonBackendRejected  FailureReason = "BACKEND_REJECTED"
	ReasonNetworkOrParse   FailureReason = "NETWORK_OR_PARSE_FAILURE"
)

// Sentinel errors, one per reason. A *Failure unwraps to the sentinel of
// its reason.
var (
	ErrNotAuthenticated = errors.New("storefront: not authenticated")
	ErrNoCartForAccount = errors.New("storefront: no cart for account")
	ErrValidation       = errors.New("storefront: validation failed")
	ErrBackendRejected  = errors.New("storefront: backend rejected request")
	ErrNetworkOrParse   = errors.New("storefront: network or parse failure")
)

// IsValid checks if the reason is known
func (r FailureReason) IsValid() bool {
	switch r {
	case ReasonNotAuthenticated, ReasonNoCartForAccount, ReasonValidation, ReasonBackendRejected, ReasonNetworkOrParse:
		return true
	}
	return false
}

// String returns the string representation of FailureReason
func (r FailureReason) String() string {
	return string(r)
}

// Retryable reports whether repeating the same call unchanged may succeed
func (r FailureReason) Retryable() bool {
	return r == ReasonNetworkOrParse
}

// Sentinel returns the sentinel error for the reason
func (r FailureReason) Sentinel() error {
	switch r {
	case ReasonNotAuthenticated:
		return ErrNotAuthenticated
	case ReasonNoCartForAccount:
		return ErrNoCartForAccount
	case ReasonValidation:
		return ErrValidation
	case ReasonBackendRejected:
		return ErrBackendRejected
	default:
		return ErrNetworkOrParse
	}
}

// Diagnostic is the raw evidence behind a failure. It is only rendered to
// clients when debugging is enabled.
type Diagnostic struct {
	Operation  string          `json:"operation,omitempty"`
	StatusCode int             `json:"status,omitempty"`
	Body       json.RawMessage `json:"body,omitempty"`
	Detail     string          `json:"detail,omitempty"`
}

// Failure is the error returned across the client boundary. It carries a
// stable reason, a user-presentable message and optional diagnostics.
type Failure struct {
	Reason         FailureReason
	Key            MessageKey // empty when Message is backend text passed through verbatim
	Message        string
	BackendMessage string
	Diagnostic     *Diagnostic
	cause          error
}

// NewFailure creates a failure with the default text of key
func NewFailure(reason FailureReason, key MessageKey) *Failure {
	return &Failure{
		Reason:  reason,
		Key:     key,
		Message: key.Default(),
	}
}

// NewBackendFailure creates a BackendRejected failure whose message is the
// backend's own text
func NewBackendFailure(message string) *Failure {
	return &Failure{
		Reason:         ReasonBackendRejected,
		Message:        message,
		BackendMessage: message,
	}
}

// Error implements the error interface
func (f *Failure) Error() string {
	if f.cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Reason, f.Message, f.cause)
	}
	return fmt.Sprintf("%s: %s", f.Reason, f.Message)
}

// Unwrap exposes the reason sentinel and the underlying cause
func (f *Failure) Unwrap() []error {
	errs := []error{f.Reason.Sentinel()}
	if f.cause != nil {
		errs = append(errs, f.cause)
	}
	return errs
}

// WithCause attaches the underlying error
func (f *Failure) WithCause(err error) *Failure {
	f.cause = err
	return f
}

// WithDiagnostic attaches raw diagnostics
func (f *Failure) WithDiagnostic(d *Diagnostic) *Failure {
	f.Diagnostic = d
	return f
}

// WithBackendMessage records the raw backend text next to a translated message
func (f *Failure) WithBackendMessage(msg string) *Failure {
	f.BackendMessage = msg
	return f
}

func (*Failure) isOrderResult() {}

// Kind implements OrderResult
func (*Failure) Kind() ResultKind {
	return ResultFailure
}

// AsFailure extracts a *Failure from err
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// ToFailure classifies any error as a Failure. Domain rule violations
// become validation failures, anything unrecognised is treated as a
// network or parse failure.
func ToFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	if f, ok := AsFailure(err); ok {
		return f
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return (&Failure{
			Reason:  ReasonValidation,
			Message: domainErr.Message,
		}).WithCause(err)
	}
	return NewFailure(ReasonNetworkOrParse, MsgGenericRetry).WithCause(err)
}
