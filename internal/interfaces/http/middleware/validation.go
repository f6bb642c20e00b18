package middleware

import (
	"errors"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/storefront/backend/internal/application/address"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// SetupValidator registers the storefront rules on gin's binding engine so
// bound request bodies report fields by their JSON names
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		address.RegisterRules(v)
	}
}

// HandleValidationError answers a request whose body could not be bound:
// 413 past the body limit, 400 with per-field details for rule
// violations, plain 400 for anything unparseable.
func HandleValidationError(c *gin.Context, err error) {
	requestID := GetRequestID(c)

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size", requestID))
		return
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeBadRequest, "Request body is not valid JSON", requestID))
		return
	}

	details := make([]dto.ValidationDetail, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, dto.ValidationDetail{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	c.AbortWithStatusJSON(http.StatusBadRequest,
		dto.NewValidationErrorResponse("Request validation failed", requestID, details))
}

var fieldMessages = map[string]func(fe validator.FieldError) string{
	"required": func(validator.FieldError) string { return "This field is required" },
	"min":      func(fe validator.FieldError) string { return bound("at least", fe) },
	"max":      func(fe validator.FieldError) string { return bound("at most", fe) },
	"gte":      func(fe validator.FieldError) string { return "Must be greater than or equal to " + fe.Param() },
	"oneof":    func(fe validator.FieldError) string { return "Must be one of: " + fe.Param() },
	"numeric":  func(validator.FieldError) string { return "Must be numeric" },
	"phone":    func(validator.FieldError) string { return "Invalid phone number" },
}

func fieldMessage(fe validator.FieldError) string {
	if msg, ok := fieldMessages[fe.Tag()]; ok {
		return msg(fe)
	}
	return "Invalid value"
}

// bound renders min/max, counting characters for strings
func bound(limit string, fe validator.FieldError) string {
	msg := "Must be " + limit + " " + fe.Param()
	if fe.Kind() == reflect.String {
		msg += " characters"
	}
	return msg
}
