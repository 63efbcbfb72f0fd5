package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ConfigErrorType represents configuration-related errors
	ConfigErrorType ErrorType = "CONFIG"
	// AuthErrorType represents credential and profile errors
	AuthErrorType ErrorType = "AUTH"
	// APIErrorType represents EC2 API errors
	APIErrorType ErrorType = "API"
	// ValidationErrorType represents validation-related errors
	ValidationErrorType ErrorType = "VALIDATION"
	// FileErrorType represents file system-related errors
	FileErrorType ErrorType = "FILE"
	// InstanceErrorType represents a failed lifecycle action on one instance
	InstanceErrorType ErrorType = "INSTANCE"
)

// ShottyError is the base error type for all application errors
type ShottyError struct {
	Type        ErrorType
	Message     string
	Context     map[string]interface{}
	Cause       error
	Suggestions []string
}

// Error implements the error interface
func (e *ShottyError) Error() string {
	parts := []string{fmt.Sprintf("[%s]", e.Type), e.Message}

	if len(e.Context) > 0 {
		parts = append(parts, fmt.Sprintf("(%s)", e.contextString()))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("caused by: %v", e.Cause))
	}

	return strings.Join(parts, " ")
}

// contextString renders the context sorted by key so messages are stable
func (e *ShottyError) contextString() string {
	keys := make([]string, 0, len(e.Context))
	for key := range e.Context {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	contextParts := make([]string, 0, len(keys))
	for _, key := range keys {
		contextParts = append(contextParts, fmt.Sprintf("%s=%v", key, e.Context[key]))
	}
	return strings.Join(contextParts, ", ")
}

// Unwrap returns the underlying cause error
func (e *ShottyError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error type
func (e *ShottyError) Is(target error) bool {
	if targetErr, ok := target.(*ShottyError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// WithContext adds context information to the error
func (e *ShottyError) WithContext(key string, value interface{}) *ShottyError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion to help resolve the error
func (e *ShottyError) WithSuggestion(suggestion string) *ShottyError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// GetSuggestions returns formatted suggestions for resolving the error
func (e *ShottyError) GetSuggestions() string {
	if len(e.Suggestions) == 0 {
		return ""
	}

	var result strings.Builder
	result.WriteString("Suggestions:\n")
	for i, suggestion := range e.Suggestions {
		result.WriteString(fmt.Sprintf("  %d. %s\n", i+1, suggestion))
	}
	return result.String()
}

func newError(errorType ErrorType, message string, cause error) *ShottyError {
	return &ShottyError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// ConfigErrorf creates a new configuration error with formatting
func ConfigErrorf(format string, args ...interface{}) *ShottyError {
	return newError(ConfigErrorType, fmt.Sprintf(format, args...), nil)
}

// ConfigErrorWithCause creates a new configuration error with a cause
func ConfigErrorWithCause(message string, cause error) *ShottyError {
	return newError(ConfigErrorType, message, cause)
}

// AuthErrorWithCause creates a new authentication error with a cause
func AuthErrorWithCause(message string, cause error) *ShottyError {
	return newError(AuthErrorType, message, cause)
}

// APIError creates a new EC2 API error
func APIError(message string) *ShottyError {
	return newError(APIErrorType, message, nil)
}

// APIErrorWithCause creates a new EC2 API error with a cause
func APIErrorWithCause(message string, cause error) *ShottyError {
	return newError(APIErrorType, message, cause)
}

// ValidationError creates a new validation error
func ValidationError(message string) *ShottyError {
	return newError(ValidationErrorType, message, nil)
}

// ValidationErrorf creates a new validation error with formatting
func ValidationErrorf(format string, args ...interface{}) *ShottyError {
	return newError(ValidationErrorType, fmt.Sprintf(format, args...), nil)
}

// FileError creates a new file system error
func FileError(message string) *ShottyError {
	return newError(FileErrorType, message, nil)
}

// FileErrorWithCause creates a new file system error with a cause
func FileErrorWithCause(message string, cause error) *ShottyError {
	return newError(FileErrorType, message, cause)
}

// InstanceErrorWithCause records a failed action against a single instance
func InstanceErrorWithCause(instanceID, action string, cause error) *ShottyError {
	return newError(InstanceErrorType, fmt.Sprintf("could not %s instance", action), cause).
		WithContext("instanceId", instanceID)
}

// WrapError wraps an existing error with additional context
func WrapError(err error, errorType ErrorType, message string) *ShottyError {
	if err == nil {
		return nil
	}

	// An empty type keeps the category of an existing ShottyError
	var shottyErr *ShottyError
	if stderrors.As(err, &shottyErr) && errorType == "" {
		return &ShottyError{
			Type:        shottyErr.Type,
			Message:     message,
			Context:     maps.Clone(shottyErr.Context),
			Cause:       err,
			Suggestions: slices.Clone(shottyErr.Suggestions),
		}
	}

	return newError(errorType, message, err)
}

// IsErrorType checks if an error, or anything it wraps, is of a specific type
func IsErrorType(err error, errorType ErrorType) bool {
	return GetErrorType(err) == errorType && errorType != ""
}

// GetErrorType returns the error type of an error, or empty string if not a ShottyError
func GetErrorType(err error) ErrorType {
	var shottyErr *ShottyError
	if stderrors.As(err, &shottyErr) {
		return shottyErr.Type
	}
	return ""
}

// FormatErrorForUser formats an error in a user-friendly way
func FormatErrorForUser(err error) string {
	if err == nil {
		return ""
	}

	var shottyErr *ShottyError
	if !stderrors.As(err, &shottyErr) {
		return fmt.Sprintf("Error: %v\n", err)
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Error: %s\n", shottyErr.Message))

	if len(shottyErr.Context) > 0 {
		result.WriteString("Details:\n")
		keys := make([]string, 0, len(shottyErr.Context))
		for key := range shottyErr.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			result.WriteString(fmt.Sprintf("  %s: %v\n", key, shottyErr.Context[key]))
		}
	}

	if shottyErr.Cause != nil {
		result.WriteString(fmt.Sprintf("Cause: %v\n", shottyErr.Cause))
	}

	if len(shottyErr.Suggestions) > 0 {
		result.WriteString("\n")
		result.WriteString(shottyErr.GetSuggestions())
	}

	return result.String()
}

// GetExitCode returns an appropriate exit code based on error type
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}

	switch GetErrorType(err) {
	case ConfigErrorType:
		return 2
	case AuthErrorType:
		return 3
	case APIErrorType:
		return 4
	case ValidationErrorType:
		return 5
	case FileErrorType:
		return 6
	case InstanceErrorType:
		return 7
	default:
		return 1
	}
}
