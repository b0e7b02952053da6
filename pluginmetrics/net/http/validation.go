package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrValidationFailed is returned when struct validation fails.
	ErrValidationFailed = errors.New("validation failed")
	// ErrFieldRequired is returned when a required field is missing.
	ErrFieldRequired = errors.New("field is required")
	// ErrFieldMaxLength is returned when a field exceeds maximum length.
	ErrFieldMaxLength = errors.New("field exceeds maximum length")
	// ErrFieldGreaterThanOrEqual is returned when a field must be greater than or equal to a value.
	ErrFieldGreaterThanOrEqual = errors.New("field must be greater than or equal to constraint")
	// ErrFieldLessThanOrEqual is returned when a field must be less than or equal to a value.
	ErrFieldLessThanOrEqual = errors.New("field must be less than or equal to constraint")
	// ErrFieldOneOf is returned when a field must be one of allowed values.
	ErrFieldOneOf = errors.New("field must be one of allowed values")
	// ErrFieldMetricName is returned when a field is not a valid metric name.
	ErrFieldMetricName = errors.New("field must be a valid metric name")
	// ErrBodyParseFailed is returned when request body parsing fails.
	ErrBodyParseFailed = errors.New("failed to parse request body")
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
	errValidate  error
)

// GetValidator returns the process-wide validator.
func GetValidator() (*validator.Validate, error) {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(fieldName)

		if err := validate.RegisterValidation("metric_name", isMetricName); err != nil {
			validate, errValidate = nil, fmt.Errorf("register 'metric_name': %w", err)
		}
	})

	return validate, errValidate
}

// fieldName reports a field by its json name, then its env name, then snake case.
func fieldName(f reflect.StructField) string {
	for _, tag := range [...]string{"json", "env"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name != "" && name != "-" {
			return name
		}
	}

	return toSnakeCase(f.Name)
}

// isMetricName accepts empty values; pair it with required when needed.
func isMetricName(fl validator.FieldLevel) bool {
	for i, r := range fl.Field().String() {
		letter := r < unicode.MaxASCII && unicode.IsLetter(r)
		digit := i > 0 && r >= '0' && r <= '9'

		if !letter && !digit && r != '_' && r != ':' {
			return false
		}
	}

	return true
}

// ValidateStruct validates payload with its `validate` tags and returns the first failure.
func ValidateStruct(payload any) error {
	vld, err := GetValidator()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	err = vld.Struct(payload)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	return fieldError(fieldErrs[0])
}

func fieldError(fe validator.FieldError) error {
	field, param := fe.Field(), fe.Param()

	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%w: '%s'", ErrFieldRequired, field)
	case "max":
		return fmt.Errorf("%w: '%s' must be at most %s", ErrFieldMaxLength, field, param)
	case "gte":
		return fmt.Errorf("%w: '%s' must be at least %s", ErrFieldGreaterThanOrEqual, field, param)
	case "gt":
		return fmt.Errorf("%w: '%s' must be greater than %s", ErrValidationFailed, field, param)
	case "lte":
		return fmt.Errorf("%w: '%s' must be at most %s", ErrFieldLessThanOrEqual, field, param)
	case "oneof":
		return fmt.Errorf("%w: '%s' must be one of [%s]", ErrFieldOneOf, field, param)
	case "metric_name":
		return fmt.Errorf("%w: '%s'", ErrFieldMetricName, field)
	default:
		return fmt.Errorf("%w: '%s' failed '%s'", ErrValidationFailed, field, fe.Tag())
	}
}

func toSnakeCase(s string) string {
	var sb strings.Builder

	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				sb.WriteByte('_')
			}

			r = unicode.ToLower(r)
		}

		sb.WriteRune(r)
	}

	return sb.String()
}
