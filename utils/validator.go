package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationService struct {
	validator *validator.Validate
}

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

func NewValidationService() *ValidationService {
	v := validator.New()

	// Register custom validators
	v.RegisterValidation("phone", validatePhone)
	v.RegisterValidation("coordinate", validateCoordinate)
	v.RegisterValidation("emergency_type", validateEmergencyType)
	v.RegisterValidation("severity", validateSeverity)

	return &ValidationService{
		validator: v,
	}
}

func (vs *ValidationService) ValidateStruct(s interface{}) []ValidationError {
	var validationErrors []ValidationError

	err := vs.validator.Struct(s)
	if err != nil {
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, ValidationError{
				Field:   err.Field(),
				Tag:     err.Tag(),
				Value:   fmt.Sprintf("%v", err.Value()),
				Message: vs.getErrorMessage(err),
			})
		}
	}

	return validationErrors
}

func (vs *ValidationService) getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Invalid email format"
	case "phone":
		return "Invalid phone number format"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "coordinate":
		return "Invalid coordinate value"
	case "emergency_type":
		return "Invalid emergency type"
	case "severity":
		return "Invalid severity level"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// Custom validation functions
func validatePhone(fl validator.FieldLevel) bool {
	phone := fl.Field().String()
	// Remove all non-digit characters
	cleaned := regexp.MustCompile(`\D`).ReplaceAllString(phone, "")

	// Check if it's a valid length (10-15 digits)
	if len(cleaned) < 10 || len(cleaned) > 15 {
		return false
	}

	// Basic phone number pattern
	phoneRegex := regexp.MustCompile(`^\+?[1-9]\d{9,14}$`)
	return phoneRegex.MatchString(phone)
}

func validateCoordinate(fl validator.FieldLevel) bool {
	coord := fl.Field().Float()
	fieldName := fl.FieldName()

	if strings.Contains(strings.ToLower(fieldName), "lat") {
		return coord >= -90 && coord <= 90
	}
	if strings.Contains(strings.ToLower(fieldName), "lon") || strings.Contains(strings.ToLower(fieldName), "lng") {
		return coord >= -180 && coord <= 180
	}

	return true
}

func validateEmergencyType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "medical", "fire", "police", "natural_disaster", "accident", "other":
		return true
	}
	return false
}

func validateSeverity(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "low", "medium", "high", "critical":
		return true
	}
	return false
}
