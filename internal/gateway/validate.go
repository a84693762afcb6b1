package gateway

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pubsync/pubsync/internal/common/apperrors"
)

// inputValidator is built once at package initialization; a Validate is safe for
// concurrent use after its configuration is complete.
var inputValidator = newInputValidator()

// V returns the validator used for gateway inputs.
func V() *validator.Validate {
	return inputValidator
}

// newInputValidator names fields in messages after their json tags.
func newInputValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateStruct(s any) error {
	return validationError(V().Struct(s))
}

func validateVar(name string, value any, tag string) error {
	err := V().Var(value, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperrors.ErrClientValidation.Msg(describe(name, verrs[0]))
	}
	return apperrors.ErrClientValidation.Err(err)
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.ErrClientValidation.Err(err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe.Field(), fe))
	}
	return apperrors.ErrClientValidation.Msg(strings.Join(msgs, "; "))
}

func describe(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gt":
		return field + " must be positive"
	case "gte":
		return field + " must not be negative"
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}
