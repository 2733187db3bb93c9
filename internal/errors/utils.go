package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Wrap wraps an error with additional context, creating a PugsiteError if the input is not already one
func Wrap(err error, errType ErrorType, code, message string) *PugsiteError {
	if err == nil {
		return nil
	}

	// Preserve location and context of an existing PugsiteError
	var pe *PugsiteError
	if errors.As(err, &pe) {
		return &PugsiteError{
			Type:        errType,
			Code:        code,
			Message:     message,
			Cause:       pe,
			Context:     pe.Context,
			Component:   pe.Component,
			FilePath:    pe.FilePath,
			Line:        pe.Line,
			Column:      pe.Column,
			Recoverable: pe.Recoverable,
		}
	}

	return &PugsiteError{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       err,
		Recoverable: errType == ErrorTypeValidation || errType == ErrorTypeManifest,
	}
}

// WrapIO wraps an error as an I/O error
func WrapIO(err error, code, message string) *PugsiteError {
	pe := Wrap(err, ErrorTypeIO, code, message)
	if pe != nil {
		pe.Recoverable = false
	}
	return pe
}

// WrapConfig wraps an error as a configuration error
func WrapConfig(err error, code, message string) *PugsiteError {
	pe := Wrap(err, ErrorTypeConfig, code, message)
	if pe != nil {
		pe.Recoverable = false
	}
	return pe
}

// WrapInternal wraps an error as an internal error
func WrapInternal(err error, code, message string) *PugsiteError {
	pe := Wrap(err, ErrorTypeInternal, code, message)
	if pe != nil {
		pe.Recoverable = false
	}
	return pe
}

// FormatErrorWithSuggestions formats an error with suggestions for ValidationError types
func FormatErrorWithSuggestions(err error) string {
	if err == nil {
		return ""
	}

	var ve ValidationError
	if errors.As(err, &ve) {
		return appendSuggestions(ve.Error(), ve.Suggestions())
	}

	return appendSuggestions(err.Error(), contextSuggestions(err))
}

func appendSuggestions(result string, suggestions []string) string {
	if len(suggestions) > 0 {
		result += "\n\nSuggestions:"
		for _, suggestion := range suggestions {
			result += fmt.Sprintf("\n  • %s", suggestion)
		}
	}
	return result
}

// contextSuggestions collects the per-field suggestions a
// ValidationErrorCollection stored on the first validation error in the chain.
func contextSuggestions(err error) []string {
	for _, e := range GetErrorChain(err) {
		pe, ok := e.(*PugsiteError)
		if !ok || pe.Type != ErrorTypeValidation || len(pe.Context) == 0 {
			continue
		}
		fields := make([]string, 0, len(pe.Context))
		for field := range pe.Context {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		var suggestions []string
		for _, field := range fields {
			entry, ok := pe.Context[field].(map[string]interface{})
			if !ok {
				continue
			}
			if list, ok := entry["suggestions"].([]string); ok {
				suggestions = append(suggestions, list...)
			}
		}
		if len(suggestions) > 0 {
			return suggestions
		}
	}
	return nil
}

// GetErrorChain returns all errors in the chain from outermost to innermost
func GetErrorChain(err error) []error {
	var chain []error
	for err != nil {
		chain = append(chain, err)
		if pe, ok := err.(*PugsiteError); ok {
			err = pe.Cause
		} else if wrapper, ok := err.(interface{ Unwrap() error }); ok {
			err = wrapper.Unwrap()
		} else {
			break
		}
	}
	return chain
}

// HasErrorCode checks if any error in the chain has the specified code
func HasErrorCode(err error, code string) bool {
	for _, e := range GetErrorChain(err) {
		if pe, ok := e.(*PugsiteError); ok && pe.Code == code {
			return true
		}
	}
	return false
}

// HasErrorType checks if any error in the chain has the specified type
func HasErrorType(err error, errType ErrorType) bool {
	for _, e := range GetErrorChain(err) {
		if pe, ok := e.(*PugsiteError); ok && pe.Type == errType {
			return true
		}
	}
	return false
}

// CombineErrors combines multiple errors into a single error with context
func CombineErrors(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	if len(nonNil) == 0 {
		return nil
	}
	if len(nonNil) == 1 {
		return nonNil[0]
	}

	var messages []string
	for _, err := range nonNil {
		messages = append(messages, err.Error())
	}

	return &PugsiteError{
		Type:    ErrorTypeInternal,
		Code:    "ERR_MULTIPLE_ERRORS",
		Message: fmt.Sprintf("multiple errors occurred: %d errors", len(nonNil)),
		Context: map[string]interface{}{
			"error_count": len(nonNil),
			"errors":      messages,
		},
		Recoverable: false,
	}
}
