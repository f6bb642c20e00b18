package shared

// DomainError is a rule violation identified by a stable code
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError with the same code, so errors.Is works
// against the sentinels below regardless of message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// ErrInvalidTransition is returned when a state machine is asked to move
// along an edge it does not have
var ErrInvalidTransition = NewDomainError("INVALID_STATE_TRANSITION", "operation not allowed in the current state")
