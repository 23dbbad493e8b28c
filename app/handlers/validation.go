package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/escomrepo/users-service/app/dto"
	"github.com/escomrepo/users-service/app/errors"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

// Institutional domains; overridden from config at startup.
var (
	staffDomain   = "@ipn.mx"
	studentDomain = "@alumno.ipn.mx"
)

func init() {
	validate = validator.New()

	// Register custom validators
	validate.RegisterValidation("ipn_domain", validateIPNDomain)
	validate.RegisterValidation("boleta", validateBoleta)
	validate.RegisterStructValidation(validateSignUpRequest, dto.SignUpRequest{})
}

// initValidation overrides the institutional domains with the configured ones.
func initValidation(staff, student string) {
	staffDomain = strings.ToLower(staff)
	studentDomain = strings.ToLower(student)
}

// validateIPNDomain accepts only institutional addresses. The leading "@" in
// both domains keeps the staff domain from matching student addresses.
func validateIPNDomain(fl validator.FieldLevel) bool {
	email := strings.ToLower(fl.Field().String())
	return strings.HasSuffix(email, studentDomain) || strings.HasSuffix(email, staffDomain)
}

// validateBoleta checks the student id format: 20YY63NNNN, with YY no later
// than next year's cohort.
func validateBoleta(fl validator.FieldLevel) bool {
	boleta := fl.Field().String()

	if len(boleta) != 10 || !strings.HasPrefix(boleta, "20") || boleta[4:6] != "63" {
		return false
	}
	for _, r := range boleta {
		if !unicode.IsDigit(r) {
			return false
		}
	}

	year, err := strconv.Atoi(boleta[0:4])
	if err != nil {
		return false
	}
	return year >= 2000 && year <= time.Now().Year()+1
}

// validateSignUpRequest enforces the cross-field rule: student-domain emails
// must carry a boleta.
func validateSignUpRequest(sl validator.StructLevel) {
	req := sl.Current().Interface().(dto.SignUpRequest)
	email := strings.ToLower(req.Email)
	if strings.HasSuffix(email, studentDomain) && req.Boleta == "" {
		sl.ReportError(req.Boleta, "Boleta", "boleta", "required_for_student", "")
	}
}

// validateRequest validates a request DTO and returns formatted error
func validateRequest(req interface{}) *errors.AppError {
	if err := validate.Struct(req); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// formatValidationErrors formats validator errors into user-friendly messages
func formatValidationErrors(err error) *errors.AppError {
	var messages []string

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrors {
			msg := formatFieldError(fieldError)
			messages = append(messages, msg)
		}
	} else {
		return errors.NewInvalidInput(err.Error())
	}

	return errors.NewInvalidInput(strings.Join(messages, "; "))
}

// formatFieldError formats a single field validation error
func formatFieldError(fe validator.FieldError) string {
	field := fe.Field()
	tag := fe.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must contain only digits", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "ipn_domain":
		return fmt.Sprintf("%s must be an institutional address (%s or %s)", field, studentDomain, staffDomain)
	case "boleta":
		return fmt.Sprintf("%s must be a valid student id (20YY63NNNN)", field)
	case "required_for_student":
		return fmt.Sprintf("%s is required for student accounts", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// sanitizeInput sanitizes user input by trimming whitespace and removing control characters
// maxLength: maximum length in runes (0 = no limit)
// preserveSpecialChars: if true, preserves special characters unfiltered
func sanitizeInput(input string, maxLength int, preserveSpecialChars bool) string {
	// Trim leading and trailing whitespace
	input = strings.TrimSpace(input)

	// Remove null bytes (always remove these)
	input = strings.ReplaceAll(input, "\x00", "")

	if preserveSpecialChars {
		if maxLength > 0 && utf8.RuneCountInString(input) > maxLength {
			runes := []rune(input)
			input = string(runes[:maxLength])
		}
		return input
	}

	// Remove control characters (except newline and tab)
	var builder strings.Builder
	for _, r := range input {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			builder.WriteRune(r)
		}
	}
	input = builder.String()

	// Limit length if specified
	if maxLength > 0 && utf8.RuneCountInString(input) > maxLength {
		runes := []rune(input)
		input = string(runes[:maxLength])
	}

	return input
}

// sanitizeEmail sanitizes email input (trims and normalizes)
func sanitizeEmail(email string, maxLength int) string {
	email = sanitizeInput(email, maxLength, false)
	// Convert to lowercase (email addresses are case-insensitive)
	email = strings.ToLower(email)
	return email
}
