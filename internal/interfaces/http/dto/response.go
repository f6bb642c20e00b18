package dto

import "github.com/storefront/backend/internal/domain/storefront"

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Reason    string                 `json:"reason,omitempty"`
	Retryable bool                   `json:"retryable,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Details   []ValidationDetail     `json:"details,omitempty"`
	Actions   []string               `json:"actions,omitempty"`
	Backend   string                 `json:"backend_message,omitempty"`
	Debug     *storefront.Diagnostic `json:"diagnostic,omitempty"`
}

// ValidationDetail describes one rejected request field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data interface{}) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}

// NewErrorResponseWithRequestID creates an error response tagged with the
// request id
func NewErrorResponseWithRequestID(code, message, requestID string) Response {
	resp := NewErrorResponse(code, message)
	resp.Error.RequestID = requestID
	return resp
}

// NewValidationErrorResponse creates a validation error response with
// per-field details
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) Response {
	resp := NewErrorResponseWithRequestID(ErrCodeValidation, message, requestID)
	resp.Error.Details = details
	return resp
}

// FailureOptions controls how a Failure is rendered
type FailureOptions struct {
	// Message is the localized text shown to the shopper
	Message   string
	RequestID string
	// Debug exposes raw backend text and diagnostics
	Debug   bool
	Actions []string
}

// NewFailureResponse renders a Failure and returns it with its HTTP status
func NewFailureResponse(f *storefront.Failure, opts FailureOptions) (int, Response) {
	code := CodeForFailure(f)
	message := opts.Message
	if message == "" {
		message = f.Message
	}
	info := &ErrorInfo{
		Code:      code,
		Message:   message,
		Reason:    f.Reason.String(),
		Retryable: f.Reason.Retryable(),
		RequestID: opts.RequestID,
		Actions:   opts.Actions,
	}
	if opts.Debug {
		info.Debug = f.Diagnostic
		if f.BackendMessage != message {
			info.Backend = f.BackendMessage
		}
	}
	return GetHTTPStatus(code), Response{Success: false, Error: info}
}
