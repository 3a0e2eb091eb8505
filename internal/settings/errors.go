package settings

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the category of a settings error
type ErrorType int

const (
	// ErrTypeInvalidPortCount indicates more ports than the device supports
	ErrTypeInvalidPortCount ErrorType = iota
	// ErrTypeInvalidEnumValue indicates a baud rate or flow control outside the supported set
	ErrTypeInvalidEnumValue
	// ErrTypeEncoding indicates a value that cannot be safely written into HTML
	ErrTypeEncoding
	// ErrTypeValidation indicates an otherwise invalid value (address, port number)
	ErrTypeValidation
	// ErrTypeParse indicates a value that could not be parsed at all
	ErrTypeParse
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeInvalidPortCount:
		return "Invalid Port Count"
	case ErrTypeInvalidEnumValue:
		return "Invalid Enum Value"
	case ErrTypeEncoding:
		return "Encoding Failure"
	case ErrTypeValidation:
		return "Validation Error"
	case ErrTypeParse:
		return "Parse Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is returned by validation, form decoding and page rendering.
type Error struct {
	Type    ErrorType // Category of error
	Field   string    // Form field or settings path the error refers to (may be empty)
	Message string    // Human-readable error message
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Type.String())
	b.WriteString(": ")
	if e.Field != "" {
		b.WriteString(e.Field)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(fmt.Sprintf(" (caused by: %v)", e.Err))
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// NewPortCountError reports a snapshot with more ports than max.
func NewPortCountError(count, max int) *Error {
	return &Error{
		Type:    ErrTypeInvalidPortCount,
		Field:   "ports",
		Message: fmt.Sprintf("%d ports configured, device supports at most %d", count, max),
	}
}

// NewEnumError reports a value outside an enumerated set.
func NewEnumError(field string, value any, allowed []string) *Error {
	return &Error{
		Type:    ErrTypeInvalidEnumValue,
		Field:   field,
		Message: fmt.Sprintf("unsupported value %v (allowed: %s)", value, strings.Join(allowed, ", ")),
	}
}

// NewEncodingError reports a value that cannot be HTML-escaped safely.
func NewEncodingError(field, message string) *Error {
	return &Error{
		Type:    ErrTypeEncoding,
		Field:   field,
		Message: message,
	}
}

// NewValidationError creates a validation error
func NewValidationError(field, message string) *Error {
	return &Error{
		Type:    ErrTypeValidation,
		Field:   field,
		Message: message,
	}
}

// NewParseError creates a parsing error
func NewParseError(field, message string, err error) *Error {
	return &Error{
		Type:    ErrTypeParse,
		Field:   field,
		Message: message,
		Err:     err,
	}
}

func hasType(err error, t ErrorType) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Type == t
	}
	return false
}

// IsInvalidPortCount checks if err is (or wraps) a port count error
func IsInvalidPortCount(err error) bool {
	return hasType(err, ErrTypeInvalidPortCount)
}

// IsInvalidEnumValue checks if err is (or wraps) an enum value error
func IsInvalidEnumValue(err error) bool {
	return hasType(err, ErrTypeInvalidEnumValue)
}

// IsEncodingFailure checks if err is (or wraps) an encoding error
func IsEncodingFailure(err error) bool {
	return hasType(err, ErrTypeEncoding)
}

// IsValidationError checks if err is (or wraps) a validation error
func IsValidationError(err error) bool {
	return hasType(err, ErrTypeValidation)
}

// IsParseError checks if err is (or wraps) a parse error
func IsParseError(err error) bool {
	return hasType(err, ErrTypeParse)
}

// IsWarning checks if a validation error is a warning (non-fatal).
// Warnings have messages starting with "warning:".
func IsWarning(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return strings.HasPrefix(se.Message, "warning:")
	}
	return strings.Contains(err.Error(), "warning:")
}

// SeparateWarningsAndErrors splits validation results into warnings and
// errors that must block the update.
func SeparateWarningsAndErrors(errs []error) (warnings []error, critical []error) {
	for _, err := range errs {
		if IsWarning(err) {
			warnings = append(warnings, err)
		} else {
			critical = append(critical, err)
		}
	}
	return warnings, critical
}

// FormatValidationErrors formats a slice of validation errors into a user-friendly message.
func FormatValidationErrors(errs []error) string {
	if len(errs) == 0 {
		return "No validation errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Settings validation failed with %d error(s):\n", len(errs)))

	for i, err := range errs {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}

	return sb.String()
}

// Join combines the blocking errors of a validation run into one error,
// or returns nil if there are none.
func Join(errs []error) error {
	_, critical := SeparateWarningsAndErrors(errs)
	if len(critical) == 0 {
		return nil
	}
	return errors.Join(critical...)
}
