package errors

import (
	"fmt"
	"strings"
)

// Service Layer Error Patterns

// ServiceError creates a standardized service error with component context
func ServiceError(service, operation, message string, cause error) *PugsiteError {
	code := fmt.Sprintf("ERR_%s_%s", service, operation)
	if cause == nil {
		return NewInternalError(code, fmt.Sprintf("%s service %s failed: %s", service, operation, message), nil).
			WithComponent(service)
	}
	pe := Wrap(cause, ErrorTypeInternal, code, fmt.Sprintf("%s service %s failed: %s", service, operation, message))
	// Parse and manifest failures keep their category so callers can branch on it
	if HasErrorType(cause, ErrorTypeParse) {
		pe.Type = ErrorTypeParse
	} else if HasErrorType(cause, ErrorTypeManifest) {
		pe.Type = ErrorTypeManifest
	}
	return pe.WithComponent(service)
}

// UpdateError creates update-related errors
func UpdateError(operation, message string, cause error) *PugsiteError {
	return ServiceError("UPDATE", operation, message, cause)
}

// ReconcileError creates config reconciliation errors
func ReconcileError(operation, message string, cause error) *PugsiteError {
	return ServiceError("RECONCILE", operation, message, cause)
}

// Data Layer Error Patterns

// FileOperationError creates file operation errors
func FileOperationError(operation, filePath, message string, cause error) *PugsiteError {
	code := fmt.Sprintf("ERR_DATA_%s", strings.ToUpper(operation))
	msg := fmt.Sprintf("data %s failed for file:%s: %s", operation, filePath, message)
	if cause == nil {
		return NewIOError(code, msg, nil).WithContext("file_path", filePath)
	}
	return WrapIO(cause, code, msg).WithContext("file_path", filePath)
}

// ConfigurationError creates configuration-related errors
func ConfigurationError(setting, message string, value interface{}) *PugsiteError {
	return NewConfigError(
		ErrCodeConfigInvalid,
		fmt.Sprintf("invalid configuration for %s: %s", setting, message),
	).WithContext("setting", setting).WithContext("value", value)
}

// CLI Error Patterns

// CLIError creates CLI command errors with user-friendly messages
func CLIError(command, message string, cause error) *PugsiteError {
	code := fmt.Sprintf("ERR_CLI_%s", command)
	return &PugsiteError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     fmt.Sprintf("command '%s' failed: %s", command, message),
		Cause:       cause,
		Component:   "cli",
		Recoverable: true,
	}
}

// ValidationFailure creates validation errors with suggestions
func ValidationFailure(field, message string, value interface{}, suggestions ...string) *PugsiteError {
	coll := &ValidationErrorCollection{}
	coll.AddField(field, value, message, suggestions...)
	return coll.ToPugsiteError()
}
