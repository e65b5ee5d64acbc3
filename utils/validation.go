package utils

import (
	"errors"
	"fmt"
	"strings"

	"spatools/api/models/dtos"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo"
)

var validate = validator.New()

// EchoValidator plugs the shared validator into echo's c.Validate.
type EchoValidator struct{}

func (EchoValidator) Validate(i interface{}) error {
	return validate.Struct(i)
}

// ReadAndValidateRequest binds the body into req, applies `default` tags
// and validates it. A nil result means the request is usable.
func ReadAndValidateRequest(c echo.Context, req interface{}) []dtos.GeneralError {
	if err := c.Bind(req); err != nil {
		return toGeneralErrors(err)
	}
	if err := defaults.Set(req); err != nil {
		return toGeneralErrors(err)
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return toGeneralErrors(err)
	}
	return nil
}

func toGeneralErrors(err error) []dtos.GeneralError {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		errs := make([]dtos.GeneralError, 0, len(validationErrors))
		for _, fe := range validationErrors {
			errs = append(errs, dtos.GeneralError{
				Code:    "ERR_" + strings.ToUpper(fe.Tag()),
				Field:   fe.Namespace(),
				Message: validationMessage(fe),
			})
		}
		return errs
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return []dtos.GeneralError{{Code: "ERR_BIND", Message: fmt.Sprintf("%v", he.Message)}}
	}

	return []dtos.GeneralError{{Code: "ERR_UNKNOWN", Message: err.Error()}}
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s element(s)", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}
