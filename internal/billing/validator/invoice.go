package validator

import (
	"errors"
	"fmt"
	"strings"

	"tutorhub/pkg/logger"
	"tutorhub/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type InvoiceValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewInvoiceValidator(log *logger.Logger) *InvoiceValidator {
	v := validator.New()

	log.Info("Invoice validator initialized successfully")

	return &InvoiceValidator{
		validate: v,
		logger:   log,
	}
}

func (v *InvoiceValidator) Validate(invoice *model.Invoice) error {
	if err := v.validate.Struct(invoice); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}

	// Manual methods submit a receipt for review; without one an
	// administrator has nothing to verify.
	if !invoice.PaymentMethod.Instant() && invoice.ReceiptRef == "" {
		return ValidationErrors{
			ValidationError{
				Field:   "ReceiptRef",
				Message: "receipt_ref is required for manual payment methods",
			},
		}
	}

	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
