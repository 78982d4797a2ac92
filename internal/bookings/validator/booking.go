package validator

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	apperrors "bookit/pkg/errors"
	"bookit/pkg/model"
)

// BookingValidator checks booking requests at the service boundary, before
// any capacity is claimed.
type BookingValidator interface {
	Validate(req *model.BookingRequest) error
}

type bookingValidator struct {
	validate *validator.Validate
}

func NewBookingValidator() BookingValidator {
	return &bookingValidator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (v *bookingValidator) Validate(req *model.BookingRequest) error {
	if err := v.validate.Struct(req); err != nil {
		return translateValidationErrors(err)
	}
	return nil
}

// translateValidationErrors flattens validator output into one AppError
// with a per-field detail map.
func translateValidationErrors(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return apperrors.Validation("Invalid booking request", nil)
	}

	details := make(map[string]any, len(validationErrs))
	for _, fieldErr := range validationErrs {
		details[fieldErr.Field()] = fieldMessage(fieldErr)
	}

	return apperrors.Validation("Booking request failed validation", details)
}

func fieldMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fieldErr.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fieldErr.Param())
	case "email":
		return "must be a valid email address"
	case "mongodb":
		return "must be a valid object ID"
	case "gte":
		return fmt.Sprintf("must be %s or greater", fieldErr.Param())
	default:
		return fmt.Sprintf("failed %s validation", fieldErr.Tag())
	}
}
