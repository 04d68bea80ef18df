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

type LessonValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewLessonValidator(log *logger.Logger) *LessonValidator {
	v := validator.New()

	log.Info("Lesson validator initialized successfully")

	return &LessonValidator{
		validate: v,
		logger:   log,
	}
}

func (v *LessonValidator) Validate(lesson *model.Lesson) error {
	if err := v.validate.Struct(lesson); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}

	if lesson.Kind == model.LessonKindGroupCourse && lesson.TotalSessions < 2 {
		return ValidationErrors{
			ValidationError{
				Field:   "TotalSessions",
				Message: "a group course must have at least 2 sessions",
			},
		}
	}

	if lesson.Kind == model.LessonKindIndividual && lesson.TotalSessions > 1 {
		return ValidationErrors{
			ValidationError{
				Field:   "TotalSessions",
				Message: "an individual lesson has a single session",
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
