package address

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/storefront/backend/internal/domain/storefront"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 \-]{5,18}[0-9]$`)

// NewValidator returns a validator that knows the address rules and
// reports fields by their JSON names
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	RegisterRules(v)
	return v
}

// RegisterRules adds the address rules to v. The HTTP layer registers them
// on the gin binding engine as well.
func RegisterRules(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
}

// validateInput checks an address before it is sent to the backend
func validateInput(v *validator.Validate, input storefront.AddressInput) error {
	err := v.Struct(input)
	if err == nil {
		return nil
	}

	var fields []string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			fields = append(fields, fe.Field()+":"+fe.Tag())
		}
	}
	return storefront.NewFailure(storefront.ReasonValidation, storefront.MsgInvalidAddress).
		WithCause(err).
		WithDiagnostic(&storefront.Diagnostic{
			Operation: "address.validate",
			Detail:    strings.Join(fields, ","),
		})
}

// normalizeInput trims surrounding whitespace from every field
func normalizeInput(input storefront.AddressInput) storefront.AddressInput {
	return storefront.AddressInput{
		Label:      strings.TrimSpace(input.Label),
		Details:    strings.TrimSpace(input.Details),
		Phone:      strings.TrimSpace(input.Phone),
		City:       strings.TrimSpace(input.City),
		PostalCode: strings.TrimSpace(input.PostalCode),
	}
}
