// Package validation provides request validation and custom validators.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/form/v4"
	"github.com/go-playground/validator/v10"

	"github.com/surfreport/hub/internal/api/response"
)

var (
	// validate and decoder are package-level singletons that are safe for concurrent
	// read-only access. All registrations MUST happen in init() only.
	validate *validator.Validate
	decoder  *form.Decoder
)

var spotIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

func init() {
	validate = validator.New()
	decoder = form.NewDecoder()

	// Report JSON names in messages, not Go field names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			name, _, _ = strings.Cut(f.Tag.Get("form"), ",")
		}

		if name == "" || name == "-" {
			return f.Name
		}

		return name
	})

	if err := validate.RegisterValidation("spot_id", validateSpotID); err != nil {
		slog.Error("Failed to register spot_id validator", "error", err)
	}

	if err := validate.RegisterValidation("no_null_bytes", validateNoNullBytes); err != nil {
		slog.Error("Failed to register no_null_bytes validator", "error", err)
	}
}

// ValidateStruct validates a struct using go-playground/validator.
func ValidateStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		return formatValidationErrors(err)
	}

	return nil
}

// validationFailure keeps the validator errors for GetValidationErrorDetails.
type validationFailure struct {
	msg  string
	errs validator.ValidationErrors
}

func (e *validationFailure) Error() string { return e.msg }

func (e *validationFailure) Unwrap() error { return e.errs }

func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		messages := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			messages = append(messages, formatFieldError(fieldError))
		}

		return &validationFailure{
			msg:  "validation failed: " + strings.Join(messages, "; "),
			errs: validationErrors,
		}
	}

	return err
}

func formatFieldError(fieldError validator.FieldError) string {
	field := fieldError.Field()

	switch fieldError.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fieldError.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fieldError.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fieldError.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fieldError.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fieldError.Param())
	case "spot_id":
		return field + " must contain only lowercase letters, digits and hyphens"
	case "no_null_bytes":
		return field + " must not contain NULL bytes"
	default:
		return field + " is invalid"
	}
}

// GetValidationErrorDetails extracts field-level error details from validation errors.
func GetValidationErrorDetails(err error) []response.ErrorDetail {
	var details []response.ErrorDetail

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fieldError := range validationErrors {
			details = append(details, response.ErrorDetail{
				Location: fieldError.Namespace(),
				Message:  formatFieldError(fieldError),
				Value:    fieldError.Value(),
			})
		}
	}

	return details
}

// RespondValidationError writes a 400 problem response listing every failed field.
func RespondValidationError(w http.ResponseWriter, err error) {
	response.RespondProblem(w, response.ProblemDetails{
		Type:   "about:blank",
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
		Detail: err.Error(),
		Errors: GetValidationErrorDetails(err),
	})
}

// DecodeJSONBody decodes the request body into dst, rejecting unknown fields and trailing data.
func DecodeJSONBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}

	if dec.More() {
		return errors.New("decode request body: unexpected data after JSON object")
	}

	return nil
}

// ValidateAndDecodeJSON decodes and validates a JSON body in one step.
func ValidateAndDecodeJSON(r *http.Request, dst any) error {
	if err := DecodeJSONBody(r, dst); err != nil {
		return err
	}

	return ValidateStruct(dst)
}

// DecodeQueryParams decodes URL query parameters into a struct.
func DecodeQueryParams(r *http.Request, dst any) error {
	if err := decoder.Decode(dst, r.URL.Query()); err != nil {
		return fmt.Errorf("failed to decode query parameters: %w", err)
	}

	return nil
}

// ValidateAndDecodeQueryParams decodes and validates query parameters in one step.
func ValidateAndDecodeQueryParams(r *http.Request, dst any) error {
	if err := DecodeQueryParams(r, dst); err != nil {
		return err
	}

	return ValidateStruct(dst)
}

func validateSpotID(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}

	return spotIDPattern.MatchString(field.String())
}

// validateNoNullBytes handles both string and *string.
func validateNoNullBytes(fl validator.FieldLevel) bool {
	field := fl.Field()

	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return true
		}

		field = field.Elem()
	}

	if field.Kind() != reflect.String {
		return true
	}

	return !strings.Contains(field.String(), "\x00")
}
